package events

import (
	"time"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventOperatorReplied     EventType = "operator_replied"
)

// Event represents a domain event emitted by the lifecycle service. Actor is
// empty for bot-originated events.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number     string `json:"number"`
	Department string `json:"department"`
	ChatID     string `json:"chat_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID int64              `json:"message_id"`
	Role      domain.MessageRole `json:"role"`
}

// OperatorRepliedPayload carries what the notifier needs to reach the
// reporter.
type OperatorRepliedPayload struct {
	Number  string `json:"number"`
	ChatID  string `json:"chat_id"`
	Comment string `json:"comment"`
}
