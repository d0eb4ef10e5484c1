// Package memory provides in-memory implementations of the repository interfaces.
// They back the service when no database is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// AccountStore holds accounts in memory. Reads return copies.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewAccountStore initializes an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*domain.Account)}
}

var _ repository.AccountRepository = (*AccountStore)(nil)

// Create stores a copy of account. Interactions on the argument are kept as the initial history.
func (s *AccountStore) Create(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account.Clone()
	return nil
}

// Update replaces the account fields, keeping the stored interaction history.
func (s *AccountStore) Update(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[account.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := account.Clone()
	next.Interactions = current.Interactions
	s.accounts[account.ID] = next
	return nil
}

// RecordInteraction replaces the account fields and prepends interaction to the stored history.
func (s *AccountStore) RecordInteraction(_ context.Context, account *domain.Account, in domain.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[account.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := account.Clone()
	next.Interactions = append([]domain.Interaction{in}, current.Interactions...)
	s.accounts[account.ID] = next
	return nil
}

// GetByID returns a copy of the account with its interactions.
func (s *AccountStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return account.Clone(), nil
}

// List returns matching accounts, most recently updated first, without interactions.
func (s *AccountStore) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	s.mu.RLock()
	result := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		if filter.Kind != nil && account.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && account.Status != *filter.Status {
			continue
		}
		if filter.NCOnly && !account.IsNC {
			continue
		}
		cp := account.Clone()
		cp.Interactions = nil
		result = append(result, *cp)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

// Delete removes the account and its history.
func (s *AccountStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

// CountRuleReferences counts interactions across all accounts that applied ruleID.
func (s *AccountStore) CountRuleReferences(_ context.Context, ruleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, account := range s.accounts {
		for _, in := range account.Interactions {
			if in.RuleID == ruleID {
				count++
			}
		}
	}
	return count, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
