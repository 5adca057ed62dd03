package domain

// ConversationStep enumerates intake dialogue states.
type ConversationStep string

const (
	StepAwaitingName        ConversationStep = "awaiting_name"
	StepAwaitingDepartment  ConversationStep = "awaiting_department"
	StepAwaitingDescription ConversationStep = "awaiting_description"
)

// ConversationState accumulates intake fields for one reporter across chat
// turns. It lives in memory only and is discarded once a ticket is created.
type ConversationState struct {
	Step       ConversationStep
	Name       string
	Department string
}
