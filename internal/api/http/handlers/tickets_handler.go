package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pedrovega1/it-helpdesk/internal/api/dto"
	"github.com/pedrovega1/it-helpdesk/internal/auth"
	"github.com/pedrovega1/it-helpdesk/internal/service"
	apperrors "github.com/pedrovega1/it-helpdesk/pkg/util"
)

// TicketsHandler exposes the operator console endpoints.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.lifecycle.ListTickets(c.UserContext())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "private, max-age=5")
	return c.JSON(dto.FromTickets(tickets))
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// UpdateTicket POST /api/tickets/update.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ID == 0 {
		return apperrors.NewValidationError("ticket id required", nil)
	}

	ticket, err := h.lifecycle.UpdateStatus(c.UserContext(), req.ID, req.Status, principal.Actor, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"ticket":  dto.FromTicket(ticket),
	})
}
