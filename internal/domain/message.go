package domain

import "time"

// MessageRole indicates who authored a message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAdmin MessageRole = "admin"
)

// Message captures one entry of a ticket's conversation thread. Thread order
// is creation-time order.
type Message struct {
	ID        int64
	TicketID  int64
	Role      MessageRole
	Text      string
	CreatedAt time.Time
}
