package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// RuleStore is an in-memory rule catalog.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]domain.QualificationRule
}

// NewRuleStore initializes an empty catalog.
func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]domain.QualificationRule)}
}

var _ repository.RuleRepository = (*RuleStore)(nil)

func (s *RuleStore) GetByID(_ context.Context, id string) (*domain.QualificationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rule, nil
}

func (s *RuleStore) List(_ context.Context) ([]domain.QualificationRule, error) {
	s.mu.RLock()
	result := make([]domain.QualificationRule, 0, len(s.rules))
	for _, rule := range s.rules {
		result = append(result, rule)
	}
	s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *RuleStore) Upsert(_ context.Context, rule *domain.QualificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = *rule
	return nil
}

func (s *RuleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}
