package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/pedrovega1/it-helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated operator. Actor is the string
// recorded in history entries for this operator's mutations.
type Principal struct {
	Actor string
	Token string
}

// AuthMiddleware validates bearer tokens against the token manager and the
// revocation blacklist.
type AuthMiddleware struct {
	tokens    *TokenManager
	blacklist *TokenBlacklist
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, blacklist *TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, blacklist: blacklist}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	token := parts[1]

	if m.blacklist.Revoked(token) {
		return apperrors.NewUnauthorized("token revoked")
	}

	if _, err := m.tokens.ParseToken(token); err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{Actor: "admin", Token: token})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated operator.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
