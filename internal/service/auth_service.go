package service

import (
	"context"
	"errors"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// AuthService coordinates staff login.
type AuthService struct {
	staff    repository.StaffRepository
	tokenMgr *auth.TokenManager
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	StaffRepo repository.StaffRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		staff:    deps.StaffRepo,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// LoginStaff authenticates staff and returns a role-bearing token. Unknown emails
// and wrong passwords produce the same error.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, *domain.IssuedToken, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	if !staff.Active {
		return nil, nil, apperrors.NewForbidden("staff inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, staff.Role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return staff, &domain.IssuedToken{
		AccessToken: token,
		SubjectID:   staff.ID,
		Subject:     domain.SubjectTypeStaff,
		Role:        staff.Role,
		ExpiresAt:   exp,
	}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
