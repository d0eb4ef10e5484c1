package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// StaffStore is an in-memory staff directory.
type StaffStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.StaffMember
	byEmail map[string]string
}

// NewStaffStore initializes an empty directory.
func NewStaffStore() *StaffStore {
	return &StaffStore{
		byID:    make(map[string]domain.StaffMember),
		byEmail: make(map[string]string),
	}
}

var _ repository.StaffRepository = (*StaffStore)(nil)

func (s *StaffStore) Create(_ context.Context, staff *domain.StaffMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(staff.Email)
	staff.Email = email
	s.byID[staff.ID] = *staff
	s.byEmail[email] = staff.ID
	return nil
}

func (s *StaffStore) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staff, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &staff, nil
}

func (s *StaffStore) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	staff := s.byID[id]
	return &staff, nil
}
