package domain

import "time"

// HistoryEntry is an immutable audit trail line. Actor is nil for entries
// originated by the bot.
type HistoryEntry struct {
	ID        int64
	TicketID  int64
	Action    string
	Actor     *string
	CreatedAt time.Time
}
