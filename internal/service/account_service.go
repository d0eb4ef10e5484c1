package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// TicketTrigger raises tickets on behalf of business events.
type TicketTrigger interface {
	TriggerTicket(ctx context.Context, actor Actor, input TriggerInput) (*domain.Ticket, error)
}

// AccountService owns account records and their contact history.
type AccountService struct {
	accounts   repository.AccountRepository
	rules      repository.RuleRepository
	tickets    TicketTrigger
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics
	locks      *entityLocks
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	AccountRepo repository.AccountRepository
	RuleRepo    repository.RuleRepository
	Tickets     TicketTrigger
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// AccountCreateInput describes a new account.
type AccountCreateInput struct {
	Name        string
	Kind        domain.AccountKind
	ContactName string
	Email       string
	Phone       string
	City        string
}

// AccountUpdateInput carries descriptive fields; nil leaves a field unchanged.
type AccountUpdateInput struct {
	Name        *string
	ContactName *string
	Email       *string
	Phone       *string
	City        *string
}

// AccountListFilter narrows account listings.
type AccountListFilter struct {
	Kind   *domain.AccountKind
	Status *string
	NCOnly bool
	Limit  int
	Offset int
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:   deps.AccountRepo,
		rules:      deps.RuleRepo,
		tickets:    deps.Tickets,
		dispatcher: deps.Dispatcher,
		clock:      orDefault(deps.Clock),
		logger:     logger,
		metrics:    deps.Metrics,
		locks:      newEntityLocks(),
	}
}

// AddAccount registers a prospect or client with an empty contact history.
func (s *AccountService) AddAccount(ctx context.Context, actor Actor, input AccountCreateInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("account name is required", nil)
	}
	kind := input.Kind
	if kind == "" {
		kind = domain.AccountKindProspect
	}
	status := domain.AccountStatusPending
	switch kind {
	case domain.AccountKindProspect:
	case domain.AccountKindClient:
		status = domain.AccountStatusSigned
	default:
		return nil, apperrors.NewValidationError("unknown account kind", map[string]any{"kind": kind})
	}

	now := s.clock.Now()
	account := &domain.Account{
		ID:           newID(),
		Name:         name,
		Kind:         kind,
		Status:       status,
		ContactName:  strings.TrimSpace(input.ContactName),
		Email:        strings.TrimSpace(input.Email),
		Phone:        strings.TrimSpace(input.Phone),
		City:         strings.TrimSpace(input.City),
		Interactions: []domain.Interaction{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:     events.EventAccountCreated,
		EntityID: account.ID,
		Actor:    actor.event(),
		Payload:  events.AccountCreatedPayload{Name: account.Name, Kind: account.Kind},
	})
	return account, nil
}

// GetAccount returns an account with its interactions, newest first.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "account", id)
	}
	return account, nil
}

// ListAccounts returns accounts matching the filter.
func (s *AccountService) ListAccounts(ctx context.Context, filter AccountListFilter) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx, repository.AccountFilter{
		Kind:   filter.Kind,
		Status: filter.Status,
		NCOnly: filter.NCOnly,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return accounts, nil
}

// UpdateAccount edits descriptive fields. Kind, status, the NC flag and the
// contact history only change through qualification and conversion.
func (s *AccountService) UpdateAccount(ctx context.Context, id string, input AccountUpdateInput) (*domain.Account, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "account", id)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("account name is required", nil)
		}
		account.Name = name
	}
	setTrimmed(&account.ContactName, input.ContactName)
	setTrimmed(&account.Email, input.Email)
	setTrimmed(&account.Phone, input.Phone)
	setTrimmed(&account.City, input.City)
	account.UpdatedAt = s.clock.Now()

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, storeError(err, "account", id)
	}
	return account, nil
}

// DeleteAccount removes an account and its history.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.accounts.Delete(ctx, id); err != nil {
		return storeError(err, "account", id)
	}
	s.logger.Info("account deleted", zap.String("account_id", id))
	return nil
}

// ConvertToClient turns a prospect into a signed client and records the signature
// as a field visit. Converting an account that is already a client is rejected.
func (s *AccountService) ConvertToClient(ctx context.Context, actor Actor, id string) (*domain.Account, error) {
	unlock := s.locks.lock(id)
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		unlock()
		return nil, storeError(err, "account", id)
	}
	if account.Kind != domain.AccountKindProspect {
		unlock()
		return nil, apperrors.NewConflict("only prospects can be converted", map[string]any{
			"account_id": id,
			"kind":       account.Kind,
		})
	}

	now := s.clock.Now()
	interaction := domain.Interaction{
		ID:        newSortableID(),
		AccountID: account.ID,
		Timestamp: now,
		Channel:   domain.ChannelFieldVisit,
		RuleID:    domain.ConversionRuleID,
		Comment:   domain.ConversionComment,
		Agent:     actor.displayName(),
	}
	account.Kind = domain.AccountKindClient
	account.Status = domain.AccountStatusSigned
	account.PrependInteraction(interaction)
	account.UpdatedAt = now

	err = s.accounts.RecordInteraction(ctx, account, interaction)
	unlock()
	if err != nil {
		return nil, storeError(err, "account", id)
	}

	s.logger.Info("account converted", zap.String("account_id", id), zap.String("agent", interaction.Agent))
	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:     events.EventAccountConverted,
		EntityID: account.ID,
		Actor:    actor.event(),
		Payload:  events.AccountConvertedPayload{Name: account.Name},
	})
	return account, nil
}

func setTrimmed(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}
