package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// KnownStatus reports whether s belongs to the closed status set.
func KnownStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// Ticket is the aggregate for issues reported through the chat channel.
// Messages and History are hydrated oldest-first on read.
type Ticket struct {
	ID             int64
	Number         string
	ReporterName   string
	ReporterHandle string
	ChatID         string
	Department     string
	Status         TicketStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Messages       []Message
	History        []HistoryEntry
}

// Active reports whether the ticket still receives inbound reporter messages.
func (t *Ticket) Active() bool {
	return t.Status != TicketStatusResolved
}
