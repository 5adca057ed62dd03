package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pedrovega1/it-helpdesk/internal/events"
	apperrors "github.com/pedrovega1/it-helpdesk/pkg/util"
)

// Notifier delivers text to a reporter's chat identity. Implementations fail
// with a transport error; callers on the request path only ever log it.
type Notifier interface {
	Send(ctx context.Context, chatID, text string) error
}

// NotificationService turns lifecycle events into best-effort chat
// notifications. It runs entirely off the request path: the dispatcher hands
// it events on a separate goroutine and a delivery outage never becomes an
// operator-visible failure.
type NotificationService struct {
	notifier   Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(notifier Notifier, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifier:   notifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventOperatorReplied, n.handleOperatorReplied)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleOperatorReplied(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OperatorRepliedPayload)
	if !ok {
		n.logger.Warn("unexpected operator_replied payload", zap.Any("payload", event.Payload))
		return nil
	}
	if n.notifier == nil {
		return nil
	}
	text := fmt.Sprintf("Support reply for ticket %s:\n\n%s", payload.Number, payload.Comment)
	if err := n.notifier.Send(ctx, payload.ChatID, text); err != nil {
		n.logger.Warn("reporter notification failed",
			zap.Int64("ticket_id", event.TicketID),
			zap.String("chat_id", payload.ChatID),
			zap.Error(apperrors.NewDeliveryError(err)))
	}
	return nil
}
