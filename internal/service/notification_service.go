package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// NotificationService turns domain events into activity feed entries.
type NotificationService struct {
	dispatcher events.Dispatcher
	feed       repository.NotificationRepository
	clock      clock.Clock
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationItem is a feed entry with its age rendered for display.
type NotificationItem struct {
	domain.Notification
	RelativeTime string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, feed repository.NotificationRepository, clk clock.Clock, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		feed:       feed,
		clock:      orDefault(clk),
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountCreated, n.handleAccountCreated)
	n.dispatcher.Subscribe(events.EventAccountConverted, n.handleAccountConverted)
	n.dispatcher.Subscribe(events.EventAccountQualified, n.handleAccountQualified)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
}

func (n *NotificationService) handleAccountCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.emit(ctx, event, domain.NotificationAccount, "New account",
		fmt.Sprintf("%s was added as %s.", payload.Name, payload.Kind))
}

func (n *NotificationService) handleAccountConverted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountConvertedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.emit(ctx, event, domain.NotificationAccount, "Contract signed",
		fmt.Sprintf("%s is now a client.", payload.Name))
}

func (n *NotificationService) handleAccountQualified(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountQualifiedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	description := fmt.Sprintf("%s qualified as %q by %s (%s).", payload.AccountName, payload.RuleLabel, event.Actor.Name, payload.Channel)
	if payload.MarkedNC {
		description += " Marked non-conform."
	}
	if payload.TicketID != "" {
		description += " A ticket was opened."
	}
	return n.emit(ctx, event, domain.NotificationQualification, "Qualification recorded", description)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.emit(ctx, event, domain.NotificationTicket, "Ticket opened",
		fmt.Sprintf("%s for %s: %s (%s priority).", payload.Reference, payload.AccountName, payload.Subject, payload.Priority))
}

// Status changes are frequent and already on the ticket timeline, so they are only logged.
func (n *NotificationService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Debug("ticket status changed",
		zap.String("ticket_id", event.EntityID),
		zap.String("actor", event.Actor.Name),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.emit(ctx, event, domain.NotificationEscalation, "SLA breached",
		fmt.Sprintf("%s for %s was escalated from %s.", payload.Reference, payload.AccountName, payload.OldStatus))
}

func (n *NotificationService) emit(ctx context.Context, event events.Event, category domain.NotificationCategory, title, description string) error {
	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = n.clock.Now()
	}
	notification := &domain.Notification{
		ID:          newSortableID(),
		Title:       title,
		Description: description,
		Category:    category,
		CreatedAt:   createdAt,
	}
	if err := n.feed.Prepend(ctx, notification); err != nil {
		return fmt.Errorf("prepend notification: %w", err)
	}
	return nil
}

// ListNotifications returns the feed newest first. A non-positive limit falls back
// to the configured default.
func (n *NotificationService) ListNotifications(ctx context.Context, limit int) ([]NotificationItem, error) {
	if limit <= 0 {
		limit = n.cfg.ListLimit
	}
	items, err := n.feed.List(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := n.clock.Now()
	result := make([]NotificationItem, 0, len(items))
	for _, item := range items {
		result = append(result, NotificationItem{Notification: item, RelativeTime: item.RelativeTime(now)})
	}
	return result, nil
}

// MarkAllRead flags every notification as read.
func (n *NotificationService) MarkAllRead(ctx context.Context) error {
	if err := n.feed.MarkAllRead(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ClearNotifications empties the feed.
func (n *NotificationService) ClearNotifications(ctx context.Context) error {
	if err := n.feed.Clear(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	n.logger.Info("notification feed cleared")
	return nil
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
