package dto

import (
	"time"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued operator token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UpdateTicketRequest payload for POST /api/tickets/update.
type UpdateTicketRequest struct {
	ID      int64               `json:"id"`
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// TicketResponse is the operator-console serialization of a ticket.
type TicketResponse struct {
	ID             int64               `json:"id"`
	Number         string              `json:"number"`
	ReporterName   string              `json:"reporterName"`
	ReporterHandle string              `json:"reporterHandle"`
	Department     string              `json:"department"`
	Status         domain.TicketStatus `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	Messages       []MessageResponse   `json:"messages"`
	History        []HistoryResponse   `json:"history"`
}

// MessageResponse represents one thread message.
type MessageResponse struct {
	Role domain.MessageRole `json:"role"`
	Text string             `json:"text"`
	Time time.Time          `json:"time"`
}

// HistoryResponse represents one audit trail line.
type HistoryResponse struct {
	Action string    `json:"action"`
	Actor  *string   `json:"actor"`
	Time   time.Time `json:"time"`
}

// FromTicket maps a hydrated domain ticket onto the console shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	messages := make([]MessageResponse, 0, len(t.Messages))
	for _, m := range t.Messages {
		messages = append(messages, MessageResponse{Role: m.Role, Text: m.Text, Time: m.CreatedAt})
	}
	history := make([]HistoryResponse, 0, len(t.History))
	for _, h := range t.History {
		history = append(history, HistoryResponse{Action: h.Action, Actor: h.Actor, Time: h.CreatedAt})
	}
	return TicketResponse{
		ID:             t.ID,
		Number:         t.Number,
		ReporterName:   t.ReporterName,
		ReporterHandle: t.ReporterHandle,
		Department:     t.Department,
		Status:         t.Status,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		Messages:       messages,
		History:        history,
	}
}

// FromTickets maps a listing.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, FromTicket(&tickets[i]))
	}
	return items
}
