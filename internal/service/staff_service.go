package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// StaffService manages the agents and administrators who operate the engine.
type StaffService struct {
	staff      repository.StaffRepository
	bcryptCost int
	clock      clock.Clock
	logger     *zap.Logger
}

// StaffDependencies bundles collaborators for the staff service.
type StaffDependencies struct {
	StaffRepo repository.StaffRepository
	Clock     clock.Clock
	Logger    *zap.Logger
}

// StaffCreateInput describes a new staff member.
type StaffCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.StaffRole
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, deps StaffDependencies) *StaffService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{
		staff:      deps.StaffRepo,
		bcryptCost: cfg.Auth.BcryptCost,
		clock:      orDefault(deps.Clock),
		logger:     logger,
	}
}

func requireAdmin(actor *domain.StaffMember) error {
	if actor == nil || actor.Role != domain.StaffRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateStaff registers a staff member. Only administrators may do so.
func (s *StaffService) CreateStaff(ctx context.Context, actor *domain.StaffMember, input StaffCreateInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

// GetStaff fetches a staff member.
func (s *StaffService) GetStaff(ctx context.Context, id string) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "staff", id)
	}
	return staff, nil
}

// EnsureBootstrapAdmin creates the first administrator when the email is unknown.
// It is a no-op when email or password is empty.
func (s *StaffService) EnsureBootstrapAdmin(ctx context.Context, name, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}
	_, err := s.staff.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewInternalError(err)
	}
	admin, err := s.create(ctx, StaffCreateInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.StaffRoleAdmin,
	})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("staff_id", admin.ID), zap.String("email", admin.Email))
	return nil
}

func (s *StaffService) create(ctx context.Context, input StaffCreateInput) (*domain.StaffMember, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": input.Email})
	}
	if len(input.Password) < auth.MinPasswordLength {
		return nil, apperrors.NewValidationError("password too short", map[string]any{
			"min_length": auth.MinPasswordLength,
		})
	}
	switch input.Role {
	case domain.StaffRoleAgent, domain.StaffRoleTeamLead, domain.StaffRoleAdmin:
	default:
		return nil, apperrors.NewValidationError("unknown staff role", map[string]any{"role": input.Role})
	}

	if _, err := s.staff.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock.Now()
	staff := &domain.StaffMember{
		ID:           newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return staff, nil
}
