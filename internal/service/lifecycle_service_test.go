package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pedrovega1/it-helpdesk/internal/cache"
	"github.com/pedrovega1/it-helpdesk/internal/domain"
	"github.com/pedrovega1/it-helpdesk/internal/events"
	apperrors "github.com/pedrovega1/it-helpdesk/pkg/util"
)

// fakeStore backs all three repository interfaces in memory. Number
// assignment is serialized the same way the database sequence is.
type fakeStore struct {
	mu        sync.Mutex
	seq       int64
	nextID    int64
	tickets   map[int64]domain.Ticket
	messages  []domain.Message
	history   []domain.HistoryEntry
	listCalls int

	failMessageCreate error
	failHistoryCreate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tickets: make(map[int64]domain.Ticket)}
}

func (s *fakeStore) stamp() time.Time {
	// Distinct, strictly increasing creation timestamps.
	return time.Unix(0, s.nextID*int64(time.Millisecond))
}

type fakeTickets struct{ s *fakeStore }

func (f fakeTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.nextID++
	ticket.ID = s.nextID
	ticket.Number = fmt.Sprintf("IT-%04d", s.seq)
	ticket.CreatedAt = s.stamp()
	ticket.UpdatedAt = ticket.CreatedAt
	s.tickets[ticket.ID] = *ticket
	return nil
}

func (f fakeTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Messages = nil
	ticket.History = nil
	return &ticket, nil
}

func (f fakeTickets) List(_ context.Context) ([]domain.Ticket, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	result := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		ticket.Messages = nil
		ticket.History = nil
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (f fakeTickets) SetStatus(_ context.Context, id int64, status domain.TicketStatus) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.UpdatedAt = time.Now()
	s.tickets[id] = ticket
	return nil
}

func (f fakeTickets) FindActiveByChatID(_ context.Context, chatID string) (*domain.Ticket, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *domain.Ticket
	for _, ticket := range s.tickets {
		ticket := ticket
		if ticket.ChatID == chatID && ticket.Active() {
			if found == nil || ticket.ID > found.ID {
				found = &ticket
			}
		}
	}
	return found, nil
}

type fakeMessages struct{ s *fakeStore }

func (f fakeMessages) Create(_ context.Context, message *domain.Message) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMessageCreate != nil {
		return s.failMessageCreate
	}
	s.nextID++
	message.ID = s.nextID
	message.CreatedAt = s.stamp()
	s.messages = append(s.messages, *message)
	return nil
}

func (f fakeMessages) ListByTicket(_ context.Context, ticketID int64) ([]domain.Message, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Message
	for _, msg := range s.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (f fakeMessages) ListAll(_ context.Context) ([]domain.Message, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message{}, s.messages...), nil
}

type fakeHistory struct{ s *fakeStore }

func (f fakeHistory) Create(_ context.Context, entry *domain.HistoryEntry) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHistoryCreate != nil {
		return s.failHistoryCreate
	}
	s.nextID++
	entry.ID = s.nextID
	entry.CreatedAt = s.stamp()
	s.history = append(s.history, *entry)
	return nil
}

func (f fakeHistory) ListByTicket(_ context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.HistoryEntry
	for _, entry := range s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (f fakeHistory) ListAll(_ context.Context) ([]domain.HistoryEntry, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HistoryEntry{}, s.history...), nil
}

// recordingDispatcher captures published events synchronously.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == t {
			result = append(result, event)
		}
	}
	return result
}

func newTestService(store *fakeStore) (*LifecycleService, *recordingDispatcher) {
	dispatcher := &recordingDispatcher{}
	svc := NewLifecycleService(LifecycleDependencies{
		TicketRepo:  fakeTickets{store},
		MessageRepo: fakeMessages{store},
		HistoryRepo: fakeHistory{store},
		Listing:     cache.NewMemoryCache(time.Minute),
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})
	return svc, dispatcher
}

func createInput(chatID string) CreateTicketInput {
	return CreateTicketInput{
		ReporterName:   "Ada Lovelace",
		ReporterHandle: "@ada",
		ChatID:         chatID,
		Department:     "Engineering",
		InitialMessage: "printer on fire",
	}
}

func TestCreateTicketHydratesMessageAndHistory(t *testing.T) {
	svc, dispatcher := newTestService(newFakeStore())

	ticket, err := svc.CreateTicket(context.Background(), createInput("100"))
	require.NoError(t, err)

	assert.Equal(t, "IT-0001", ticket.Number)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	require.Len(t, ticket.Messages, 1)
	assert.Equal(t, domain.RoleUser, ticket.Messages[0].Role)
	assert.Equal(t, "printer on fire", ticket.Messages[0].Text)
	require.Len(t, ticket.History, 1)
	assert.Equal(t, "Ticket created", ticket.History[0].Action)
	assert.Nil(t, ticket.History[0].Actor, "bot-originated history has no actor")

	assert.Len(t, dispatcher.byType(events.EventTicketCreated), 1)
}

func TestCreateTicketConcurrentNumbersAreUnique(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	const n = 50
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := svc.CreateTicket(context.Background(), createInput(fmt.Sprintf("chat-%d", i)))
			if err == nil {
				numbers <- ticket.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for number := range numbers {
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
}

func TestCreateTicketPartialSubWriteStillReturnsTicket(t *testing.T) {
	store := newFakeStore()
	store.failMessageCreate = errors.New("disk full")
	svc, _ := newTestService(store)

	ticket, err := svc.CreateTicket(context.Background(), createInput("100"))
	require.NoError(t, err, "sub-write failure is an inconsistency, not a failed create")
	assert.Empty(t, ticket.Messages)
	require.Len(t, ticket.History, 1)
}

func TestAppendMessageUnknownTicket(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	_, err := svc.AppendMessage(context.Background(), 42, domain.RoleUser, "hello?")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateStatusWithCommentAppendsMessageAndTwoHistoryEntries(t *testing.T) {
	svc, dispatcher := newTestService(newFakeStore())
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)
	priorHistory := len(created.History)
	priorMessages := len(created.Messages)

	updated, err := svc.UpdateStatus(ctx, created.ID, domain.TicketStatusResolved, "admin", "rebooted the printer")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusResolved, updated.Status)

	require.Len(t, updated.Messages, priorMessages+1)
	reply := updated.Messages[len(updated.Messages)-1]
	assert.Equal(t, domain.RoleAdmin, reply.Role)
	assert.Equal(t, "rebooted the printer", reply.Text)

	require.Len(t, updated.History, priorHistory+2)
	transition := updated.History[priorHistory]
	assert.Equal(t, "status: new → resolved", transition.Action)
	require.NotNil(t, transition.Actor)
	assert.Equal(t, "admin", *transition.Actor)
	assert.Equal(t, "Operator replied", updated.History[priorHistory+1].Action)

	replied := dispatcher.byType(events.EventOperatorReplied)
	require.Len(t, replied, 1)
	payload, ok := replied[0].Payload.(events.OperatorRepliedPayload)
	require.True(t, ok)
	assert.Equal(t, "100", payload.ChatID)
	assert.Equal(t, "rebooted the printer", payload.Comment)
}

func TestUpdateStatusOnlyStatusAppendsNoMessage(t *testing.T) {
	svc, dispatcher := newTestService(newFakeStore())
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID, domain.TicketStatusInProgress, "admin", "")
	require.NoError(t, err)

	assert.Len(t, updated.Messages, len(created.Messages))
	assert.Len(t, updated.History, len(created.History)+1)
	assert.Empty(t, dispatcher.byType(events.EventOperatorReplied))
}

func TestUpdateStatusOnlyCommentAppendsNoTransition(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID, created.Status, "admin", "looking into it")
	require.NoError(t, err)

	assert.Equal(t, created.Status, updated.Status)
	assert.Len(t, updated.Messages, len(created.Messages)+1)
	require.Len(t, updated.History, len(created.History)+1)
	assert.Equal(t, "Operator replied", updated.History[len(updated.History)-1].Action)
}

func TestUpdateStatusNoopWritesNothing(t *testing.T) {
	store := newFakeStore()
	svc, dispatcher := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)
	priorEvents := len(dispatcher.events)

	updated, err := svc.UpdateStatus(ctx, created.ID, created.Status, "admin", "   ")
	require.NoError(t, err)

	assert.Len(t, updated.Messages, len(created.Messages))
	assert.Len(t, updated.History, len(created.History))
	assert.Len(t, dispatcher.events, priorEvents, "no-op update publishes nothing")
}

func TestUpdateStatusStoresCommentVerbatim(t *testing.T) {
	svc, dispatcher := newTestService(newFakeStore())
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID, created.Status, "admin", "  fixed, see attached steps  ")
	require.NoError(t, err)

	reply := updated.Messages[len(updated.Messages)-1]
	assert.Equal(t, "  fixed, see attached steps  ", reply.Text, "surrounding whitespace survives storage")

	replied := dispatcher.byType(events.EventOperatorReplied)
	require.Len(t, replied, 1)
	payload, ok := replied[0].Payload.(events.OperatorRepliedPayload)
	require.True(t, ok)
	assert.Equal(t, "  fixed, see attached steps  ", payload.Comment)
}

func TestUpdateStatusFailedFollowupWriteInvalidatesListing(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)

	_, err = svc.ListTickets(ctx)
	require.NoError(t, err)
	callsAfterFirstList := store.listCalls

	// The status row is updated before the history write fails.
	store.failHistoryCreate = errors.New("disk full")
	_, err = svc.UpdateStatus(ctx, created.ID, domain.TicketStatusResolved, "admin", "")
	require.Error(t, err)
	store.failHistoryCreate = nil

	refreshed, err := svc.ListTickets(ctx)
	require.NoError(t, err)
	assert.Greater(t, store.listCalls, callsAfterFirstList, "listing after a failed update re-reads the store")
	require.Len(t, refreshed, 1)
	assert.Equal(t, domain.TicketStatusResolved, refreshed[0].Status)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	_, err := svc.UpdateStatus(context.Background(), 1, domain.TicketStatus("archived"), "admin", "")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestListTicketsServesFromCacheUntilWrite(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	first, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)
	second, err := svc.CreateTicket(ctx, createInput("200"))
	require.NoError(t, err)

	listed, err := svc.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID, "listing is newest-first")
	callsAfterFirstList := store.listCalls

	again, err := svc.ListTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirstList, store.listCalls, "second listing within TTL hits the cache")
	assert.Equal(t, len(listed), len(again))

	// A write to any ticket invalidates the cached listing.
	_, err = svc.AppendMessage(ctx, first.ID, domain.RoleUser, "still broken")
	require.NoError(t, err)

	refreshed, err := svc.ListTickets(ctx)
	require.NoError(t, err)
	assert.Greater(t, store.listCalls, callsAfterFirstList, "post-write listing re-reads the store")
	for _, ticket := range refreshed {
		if ticket.ID == first.ID {
			assert.Equal(t, "still broken", ticket.Messages[len(ticket.Messages)-1].Text)
		}
	}
}

func TestGetTicketBypassesCache(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)

	_, err = svc.ListTickets(ctx)
	require.NoError(t, err)

	// Mutate behind the cache's back; a single-ticket read must see it.
	_, err = svc.AppendMessage(ctx, created.ID, domain.RoleUser, "update")
	require.NoError(t, err)

	got, err := svc.GetTicket(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "update", got.Messages[len(got.Messages)-1].Text)
}

// unfilteredTickets returns the chat's newest ticket without filtering on
// status, mimicking a backend that leaves the activity rule to the caller.
type unfilteredTickets struct{ fakeTickets }

func (f unfilteredTickets) FindActiveByChatID(_ context.Context, chatID string) (*domain.Ticket, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *domain.Ticket
	for _, ticket := range s.tickets {
		ticket := ticket
		if ticket.ChatID == chatID {
			if found == nil || ticket.ID > found.ID {
				found = &ticket
			}
		}
	}
	return found, nil
}

func TestFindActiveTicketFiltersResolved(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, createInput("100"))
	require.NoError(t, err)

	active, err := svc.FindActiveTicket(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, created.ID, active.ID)

	_, err = svc.UpdateStatus(ctx, created.ID, domain.TicketStatusResolved, "admin", "")
	require.NoError(t, err)

	active, err = svc.FindActiveTicket(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, active)

	// A backend that skips the status filter still never surfaces a
	// resolved ticket as active.
	unfiltered := NewLifecycleService(LifecycleDependencies{
		TicketRepo:  unfilteredTickets{fakeTickets{store}},
		MessageRepo: fakeMessages{store},
		HistoryRepo: fakeHistory{store},
		Listing:     cache.NewMemoryCache(time.Minute),
		Dispatcher:  &recordingDispatcher{},
		Logger:      zap.NewNop(),
	})
	active, err = unfiltered.FindActiveTicket(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestAttachThreadsKeepsSubOrder(t *testing.T) {
	tickets := []domain.Ticket{{ID: 2}, {ID: 1}}
	msgs := []domain.Message{
		{ID: 10, TicketID: 1, Text: "a"},
		{ID: 11, TicketID: 2, Text: "b"},
		{ID: 12, TicketID: 1, Text: "c"},
	}
	hist := []domain.HistoryEntry{
		{ID: 20, TicketID: 2, Action: "Ticket created"},
		{ID: 21, TicketID: 1, Action: "Ticket created"},
	}

	hydrated := attachThreads(tickets, msgs, hist)
	require.Len(t, hydrated, 2)
	assert.Equal(t, []string{"b"}, textsOf(hydrated[0].Messages))
	assert.Equal(t, []string{"a", "c"}, textsOf(hydrated[1].Messages))
	assert.Len(t, hydrated[0].History, 1)
	assert.Len(t, hydrated[1].History, 1)
}

func textsOf(msgs []domain.Message) []string {
	texts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		texts = append(texts, msg.Text)
	}
	return texts
}
