package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pedrovega1/it-helpdesk/internal/api/dto"
	"github.com/pedrovega1/it-helpdesk/internal/auth"
	apperrors "github.com/pedrovega1/it-helpdesk/pkg/util"
)

// AuthHandler manages operator login, logout and token verification. There
// is a single operator principal authenticated by a shared bcrypt password.
type AuthHandler struct {
	passwordHash string
	tokens       *auth.TokenManager
	blacklist    *auth.TokenBlacklist
}

// NewAuthHandler constructs handler.
func NewAuthHandler(passwordHash string, tokens *auth.TokenManager, blacklist *auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{passwordHash: passwordHash, tokens: tokens, blacklist: blacklist}
}

// Login POST /api/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Password == "" {
		return apperrors.NewValidationError("password required", nil)
	}

	if !auth.CheckPassword(h.passwordHash, req.Password) {
		return apperrors.NewForbidden("invalid password")
	}

	token, expiresAt, err := h.tokens.GenerateToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.LoginResponse{Token: token, ExpiresAt: expiresAt})
}

// Logout POST /api/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	h.blacklist.Revoke(principal.Token)
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Verify GET /api/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	return c.JSON(fiber.Map{"valid": true, "actor": principal.Actor})
}
