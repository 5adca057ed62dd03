package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pedrovega1/it-helpdesk/internal/cache"
	"github.com/pedrovega1/it-helpdesk/internal/domain"
	"github.com/pedrovega1/it-helpdesk/internal/events"
	"github.com/pedrovega1/it-helpdesk/internal/repository"
	apperrors "github.com/pedrovega1/it-helpdesk/pkg/util"
)

const historyCreated = "Ticket created"
const historyOperatorReplied = "Operator replied"

// LifecycleService owns ticket state. It serializes the composite-write
// protocol around the store, keeps the listing cache coherent, and publishes
// events for outbound notification. Both producers (chat intake and operator
// console) mutate tickets exclusively through it.
type LifecycleService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	history    repository.HistoryRepository
	listing    cache.ListingCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	HistoryRepo repository.HistoryRepository
	Listing     cache.ListingCache
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// CreateTicketInput describes chat-intake ticket creation payload. No field
// is validated: the reporter is never blocked on data quality.
type CreateTicketInput struct {
	ReporterName   string
	ReporterHandle string
	ChatID         string
	Department     string
	InitialMessage string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		history:    deps.HistoryRepo,
		listing:    deps.Listing,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket writes the ticket row, then the initial message and the
// "created" history entry. The two sub-writes run concurrently and are both
// awaited before the call returns. A sub-write failure after the primary
// insert leaves the ticket in place and is logged as an inconsistency.
func (s *LifecycleService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		ReporterName:   input.ReporterName,
		ReporterHandle: input.ReporterHandle,
		ChatID:         input.ChatID,
		Department:     input.Department,
		Status:         domain.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	var wg sync.WaitGroup
	subErrs := make(chan error, 2)
	if input.InitialMessage != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := &domain.Message{TicketID: ticket.ID, Role: domain.RoleUser, Text: input.InitialMessage}
			if err := s.messages.Create(ctx, msg); err != nil {
				subErrs <- fmt.Errorf("initial message: %w", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		entry := &domain.HistoryEntry{TicketID: ticket.ID, Action: historyCreated}
		if err := s.history.Create(ctx, entry); err != nil {
			subErrs <- fmt.Errorf("created history: %w", err)
		}
	}()
	wg.Wait()
	close(subErrs)
	for err := range subErrs {
		s.logger.Error("ticket partially written",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("number", ticket.Number),
			zap.Error(err))
	}

	s.listing.Invalidate(ctx)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Number:     ticket.Number,
			Department: ticket.Department,
			ChatID:     ticket.ChatID,
		},
	})

	// Post-write state always comes from the store, never the cache.
	return s.GetTicket(ctx, ticket.ID)
}

// AppendMessage appends one message to an existing ticket's thread. Status
// and history are untouched.
func (s *LifecycleService) AppendMessage(ctx context.Context, ticketID int64, role domain.MessageRole, text string) (*domain.Message, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapReadError(err)
	}
	msg := &domain.Message{TicketID: ticketID, Role: role, Text: text}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	s.listing.Invalidate(ctx)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticketID,
		Payload:  events.TicketMessageAddedPayload{MessageID: msg.ID, Role: role},
	})
	return msg, nil
}

// UpdateStatus applies an operator update. A status change and a reply
// comment are independent effects: either, both, or neither may apply. When
// nothing changes, no write is issued at all. A supplied comment triggers an
// asynchronous reporter notification whose outcome never reaches the
// operator response.
func (s *LifecycleService) UpdateStatus(ctx context.Context, ticketID int64, newStatus domain.TicketStatus, actor, comment string) (*domain.Ticket, error) {
	if newStatus != "" && !domain.KnownStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(newStatus)})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapReadError(err)
	}

	// The comment is stored verbatim; trimming only decides whether one exists.
	hasComment := strings.TrimSpace(comment) != ""
	statusChanged := newStatus != "" && newStatus != ticket.Status

	// Once any write lands, the stale snapshot must not outlive the error.
	wrote := false

	if statusChanged {
		if err := s.tickets.SetStatus(ctx, ticketID, newStatus); err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		wrote = true
		entry := &domain.HistoryEntry{
			TicketID: ticketID,
			Action:   fmt.Sprintf("status: %s → %s", ticket.Status, newStatus),
			Actor:    &actor,
		}
		if err := s.history.Create(ctx, entry); err != nil {
			s.listing.Invalidate(ctx)
			return nil, apperrors.NewPersistenceError(err)
		}
	}

	if hasComment {
		msg := &domain.Message{TicketID: ticketID, Role: domain.RoleAdmin, Text: comment}
		if err := s.messages.Create(ctx, msg); err != nil {
			if wrote {
				s.listing.Invalidate(ctx)
			}
			return nil, apperrors.NewPersistenceError(err)
		}
		entry := &domain.HistoryEntry{TicketID: ticketID, Action: historyOperatorReplied, Actor: &actor}
		if err := s.history.Create(ctx, entry); err != nil {
			s.listing.Invalidate(ctx)
			return nil, apperrors.NewPersistenceError(err)
		}
	}

	if !statusChanged && !hasComment {
		return s.GetTicket(ctx, ticketID)
	}

	s.listing.Invalidate(ctx)

	updated, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticketID,
			Actor:    actor,
			Payload:  events.TicketStatusChangedPayload{OldStatus: ticket.Status, NewStatus: newStatus},
		})
	}
	if hasComment {
		s.publish(ctx, events.Event{
			Type:     events.EventOperatorReplied,
			TicketID: ticketID,
			Actor:    actor,
			Payload: events.OperatorRepliedPayload{
				Number:  updated.Number,
				ChatID:  updated.ChatID,
				Comment: comment,
			},
		})
	}
	return updated, nil
}

// GetTicket returns one fully hydrated ticket straight from the store.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapReadError(err)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapReadError(err)
	}
	hist, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapReadError(err)
	}
	ticket.Messages = msgs
	ticket.History = hist
	return ticket, nil
}

// FindActiveTicket returns the reporter's active ticket, or nil when every
// ticket of that chat identity is resolved.
func (s *LifecycleService) FindActiveTicket(ctx context.Context, chatID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindActiveByChatID(ctx, chatID)
	if err != nil {
		return nil, mapReadError(err)
	}
	if ticket == nil || !ticket.Active() {
		return nil, nil
	}
	return ticket, nil
}

// ListTickets serves the hydrated newest-first listing, from cache when the
// snapshot is still fresh.
func (s *LifecycleService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	if tickets, ok := s.listing.Get(ctx); ok {
		return tickets, nil
	}

	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, mapReadError(err)
	}
	msgs, err := s.messages.ListAll(ctx)
	if err != nil {
		return nil, mapReadError(err)
	}
	hist, err := s.history.ListAll(ctx)
	if err != nil {
		return nil, mapReadError(err)
	}
	hydrated := attachThreads(tickets, msgs, hist)

	s.listing.Set(ctx, hydrated)
	return hydrated, nil
}

// attachThreads distributes oldest-first messages and history entries onto
// their tickets.
func attachThreads(tickets []domain.Ticket, msgs []domain.Message, hist []domain.HistoryEntry) []domain.Ticket {
	index := make(map[int64]int, len(tickets))
	for i := range tickets {
		index[tickets[i].ID] = i
	}
	for _, msg := range msgs {
		if i, ok := index[msg.TicketID]; ok {
			tickets[i].Messages = append(tickets[i].Messages, msg)
		}
	}
	for _, entry := range hist {
		if i, ok := index[entry.TicketID]; ok {
			tickets[i].History = append(tickets[i].History, entry)
		}
	}
	return tickets
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.dispatcher.Publish(ctx, event)
}

func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}
