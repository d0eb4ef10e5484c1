package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// Ticket sources recorded in metrics and events.
const (
	SourceManual    = "manual"
	SourceAutomated = "automated"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics
	locks      *entityLocks
	deadlines  *deadlineIndex
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	AccountID   string
	Subject     string
	Description string
	Priority    domain.TicketPriority
	Type        string
	Channel     string
	Department  string
	Assignee    string
}

// TicketUpdateInput carries editable fields; nil leaves a field unchanged. Status
// only changes through transitions.
type TicketUpdateInput struct {
	Subject     *string
	Description *string
	Priority    *domain.TicketPriority
	Type        *string
	Channel     *string
	Department  *string
	Assignee    *string
}

// TriggerInput describes a business event that raises a ticket automatically.
type TriggerInput struct {
	EventType   domain.TicketEventType
	AccountID   string
	AccountName string
	Details     string
	Channel     string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	AccountID   *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	OverdueOnly bool
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		accounts:   deps.AccountRepo,
		dispatcher: deps.Dispatcher,
		clock:      orDefault(deps.Clock),
		logger:     logger,
		metrics:    deps.Metrics,
		locks:      newEntityLocks(),
		deadlines:  newDeadlineIndex(),
	}
}

// AddTicket opens a ticket whose SLA deadline follows its priority.
func (s *TicketService) AddTicket(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("ticket subject is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket priority", map[string]any{"priority": priority})
	}
	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, storeError(err, "account", input.AccountID)
	}

	ticketType := strings.TrimSpace(input.Type)
	if ticketType == "" {
		ticketType = domain.TicketTypeOther
	}
	department := strings.TrimSpace(input.Department)
	if department == "" {
		department = domain.DepartmentBackOffice
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		ID:            newID(),
		Reference:     generateTicketKey(),
		AccountID:     account.ID,
		AccountName:   account.Name,
		Subject:       subject,
		Description:   strings.TrimSpace(input.Description),
		Priority:      priority,
		Status:        domain.TicketStatusOpen,
		Type:          ticketType,
		Channel:       strings.TrimSpace(input.Channel),
		Department:    department,
		Assignee:      strings.TrimSpace(input.Assignee),
		CreatedAt:     now,
		UpdatedAt:     now,
		SLADeadline:   now.Add(domain.SLAWindow(priority)),
		InternalNotes: []string{},
	}
	return s.createTicket(ctx, actor, ticket, SourceManual)
}

// TriggerTicket raises a high priority back-office ticket for a business event.
// The deadline is always AutomatedSLAWindow away regardless of the event type.
func (s *TicketService) TriggerTicket(ctx context.Context, actor Actor, input TriggerInput) (*domain.Ticket, error) {
	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, storeError(err, "account", input.AccountID)
	}
	accountName := strings.TrimSpace(input.AccountName)
	if accountName == "" {
		accountName = account.Name
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		ID:            newID(),
		Reference:     generateTicketKey(),
		AccountID:     account.ID,
		AccountName:   accountName,
		Subject:       fmt.Sprintf("Automated ticket: %s", input.EventType),
		Description:   strings.TrimSpace(input.Details),
		Priority:      domain.TicketPriorityHigh,
		Status:        domain.TicketStatusOpen,
		Type:          input.EventType.TypeFor(),
		Channel:       strings.TrimSpace(input.Channel),
		Department:    domain.DepartmentBackOffice,
		CreatedAt:     now,
		UpdatedAt:     now,
		SLADeadline:   now.Add(domain.AutomatedSLAWindow),
		InternalNotes: []string{},
	}
	return s.createTicket(ctx, actor, ticket, SourceAutomated)
}

func (s *TicketService) createTicket(ctx context.Context, actor Actor, ticket *domain.Ticket, source string) (*domain.Ticket, error) {
	open := domain.TicketStatusOpen
	ticket.Timeline = []domain.TimelineEvent{{
		ID:        newSortableID(),
		TicketID:  ticket.ID,
		Kind:      domain.TimelineStatusChange,
		Content:   fmt.Sprintf("Ticket %s created", ticket.Reference),
		Author:    actor.displayName(),
		CreatedAt: ticket.CreatedAt,
		StatusTo:  &open,
	}}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.deadlines.push(ticket.ID, ticket.SLADeadline)
	s.metrics.RecordTicketCreated(source, string(ticket.Priority))
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("reference", ticket.Reference),
		zap.String("source", source),
		zap.Time("sla_deadline", ticket.SLADeadline))

	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		Actor:    actor.event(),
		Payload: events.TicketCreatedPayload{
			Reference:   ticket.Reference,
			AccountName: ticket.AccountName,
			Subject:     ticket.Subject,
			Priority:    ticket.Priority,
			Source:      source,
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket with its timeline.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket", id)
	}
	return ticket, nil
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		AccountID:  filter.AccountID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.OverdueOnly {
		now := s.clock.Now()
		repoFilter.OverdueAt = &now
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// UpdateTicket edits descriptive fields. The SLA deadline is never recomputed,
// not even when the priority changes.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket", id)
	}
	if ticket.Archived {
		return nil, apperrors.NewConflict("archived tickets are read-only", map[string]any{"ticket_id": id})
	}
	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, apperrors.NewValidationError("ticket subject is required", nil)
		}
		ticket.Subject = subject
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("unknown ticket priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	setTrimmed(&ticket.Description, input.Description)
	setTrimmed(&ticket.Type, input.Type)
	setTrimmed(&ticket.Channel, input.Channel)
	setTrimmed(&ticket.Department, input.Department)
	setTrimmed(&ticket.Assignee, input.Assignee)
	ticket.UpdatedAt = s.clock.Now()

	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, storeError(err, "ticket", id)
	}
	return s.reload(ctx, id)
}

// DeleteTicket removes a ticket and its timeline.
func (s *TicketService) DeleteTicket(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.tickets.Delete(ctx, id); err != nil {
		return storeError(err, "ticket", id)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", id))
	return nil
}

// AddNote appends a free-form internal note to a ticket and its timeline.
func (s *TicketService) AddNote(ctx context.Context, actor Actor, id, content string) (*domain.Ticket, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("note content is required", nil)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket", id)
	}
	if ticket.Archived {
		return nil, apperrors.NewConflict("archived tickets are read-only", map[string]any{"ticket_id": id})
	}
	now := s.clock.Now()
	ticket.InternalNotes = append(ticket.InternalNotes, content)
	ticket.UpdatedAt = now

	note := noteEvent(ticket.ID, content, actor.displayName(), now)
	if err := s.tickets.Save(ctx, ticket, note); err != nil {
		return nil, storeError(err, "ticket", id)
	}
	return s.reload(ctx, id)
}

// reload returns the stored ticket so callers see the complete timeline.
func (s *TicketService) reload(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket", id)
	}
	return ticket, nil
}

func noteEvent(ticketID, content, author string, at time.Time) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:        newSortableID(),
		TicketID:  ticketID,
		Kind:      domain.TimelineNote,
		Content:   content,
		Author:    author,
		CreatedAt: at,
	}
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
