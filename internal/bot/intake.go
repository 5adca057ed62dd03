package bot

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
	"github.com/pedrovega1/it-helpdesk/internal/service"
)

const (
	promptName        = "Hello! Let's create an IT support ticket.\n\nPlease enter your full name:"
	promptDepartment  = "Please enter your department:"
	promptDescription = "Please describe the problem:"
	replyAppended     = "Your message has been added to your ticket. Support will reply shortly."
	replyApology      = "Something went wrong. Please try again later."
)

// Lifecycle is the slice of the lifecycle engine the intake flow needs.
type Lifecycle interface {
	FindActiveTicket(ctx context.Context, chatID string) (*domain.Ticket, error)
	AppendMessage(ctx context.Context, ticketID int64, role domain.MessageRole, text string) (*domain.Message, error)
	CreateTicket(ctx context.Context, input service.CreateTicketInput) (*domain.Ticket, error)
}

// Intake is the per-reporter conversation state machine. It collects name,
// department and description across chat turns and creates a ticket on
// completion. All state is in memory; a process restart loses open
// conversations.
type Intake struct {
	lifecycle Lifecycle
	logger    *zap.Logger

	mu            sync.Mutex
	conversations map[string]*domain.ConversationState
	chatLocks     map[string]*sync.Mutex
}

// NewIntake constructs the intake state machine.
func NewIntake(lifecycle Lifecycle, logger *zap.Logger) *Intake {
	return &Intake{
		lifecycle:     lifecycle,
		logger:        logger,
		conversations: make(map[string]*domain.ConversationState),
		chatLocks:     make(map[string]*sync.Mutex),
	}
}

// HandleInbound processes one inbound chat message and returns the reply to
// send back. The reporter-facing flow never fails visibly: any internal
// error resets the conversation and yields a generic apology.
//
// The active-ticket check runs before any conversation state is consulted:
// a reporter with a non-resolved ticket always appends to it, never opens a
// second one. Processing is serialized per chat identity so two rapid
// messages from the same reporter cannot race the lookup-then-create.
func (i *Intake) HandleInbound(ctx context.Context, chatID, handle, text string) string {
	lock := i.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	active, err := i.lifecycle.FindActiveTicket(ctx, chatID)
	if err != nil {
		i.logger.Error("active ticket lookup failed", zap.String("chat_id", chatID), zap.Error(err))
		i.resetConversation(chatID)
		return replyApology
	}
	if active != nil {
		if _, err := i.lifecycle.AppendMessage(ctx, active.ID, domain.RoleUser, text); err != nil {
			i.logger.Error("append to active ticket failed",
				zap.Int64("ticket_id", active.ID),
				zap.String("chat_id", chatID),
				zap.Error(err))
			return replyApology
		}
		return replyAppended
	}

	state := i.conversation(chatID)
	switch {
	case state == nil:
		i.setConversation(chatID, &domain.ConversationState{Step: domain.StepAwaitingName})
		return promptName

	case state.Step == domain.StepAwaitingName:
		state.Name = text
		state.Step = domain.StepAwaitingDepartment
		return promptDepartment

	case state.Step == domain.StepAwaitingDepartment:
		state.Department = text
		state.Step = domain.StepAwaitingDescription
		return promptDescription

	default: // StepAwaitingDescription
		// The conversation is discarded whether or not creation succeeds;
		// a failed creation restarts intake from scratch.
		i.resetConversation(chatID)

		ticket, err := i.lifecycle.CreateTicket(ctx, service.CreateTicketInput{
			ReporterName:   state.Name,
			ReporterHandle: handle,
			ChatID:         chatID,
			Department:     state.Department,
			InitialMessage: text,
		})
		if err != nil {
			i.logger.Error("ticket creation failed", zap.String("chat_id", chatID), zap.Error(err))
			return replyApology
		}
		return fmt.Sprintf(
			"Ticket %s has been created!\n\nDepartment: %s\nName: %s\n\nWe will get back to you shortly.",
			ticket.Number, ticket.Department, ticket.ReporterName)
	}
}

func (i *Intake) chatLock(chatID string) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()
	lock, ok := i.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		i.chatLocks[chatID] = lock
	}
	return lock
}

func (i *Intake) conversation(chatID string) *domain.ConversationState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conversations[chatID]
}

func (i *Intake) setConversation(chatID string, state *domain.ConversationState) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.conversations[chatID] = state
}

func (i *Intake) resetConversation(chatID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.conversations, chatID)
}
