package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// RuleService manages the qualification rule catalog.
type RuleService struct {
	rules    repository.RuleRepository
	accounts repository.AccountRepository
	logger   *zap.Logger
}

// RuleDependencies bundles collaborators for the rule service.
type RuleDependencies struct {
	RuleRepo    repository.RuleRepository
	AccountRepo repository.AccountRepository
	Logger      *zap.Logger
}

// NewRuleService constructs the service.
func NewRuleService(deps RuleDependencies) *RuleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{rules: deps.RuleRepo, accounts: deps.AccountRepo, logger: logger}
}

// GetRule returns a catalog entry.
func (s *RuleService) GetRule(ctx context.Context, id string) (*domain.QualificationRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "rule", id)
	}
	return rule, nil
}

// ListRules returns the catalog ordered by id.
func (s *RuleService) ListRules(ctx context.Context) ([]domain.QualificationRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return rules, nil
}

// UpsertRule creates or replaces a catalog entry.
func (s *RuleService) UpsertRule(ctx context.Context, rule domain.QualificationRule) (*domain.QualificationRule, error) {
	rule.ID = strings.TrimSpace(rule.ID)
	rule.Label = strings.TrimSpace(rule.Label)
	rule.DefaultStatus = strings.TrimSpace(rule.DefaultStatus)
	if err := rule.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"rule_id": rule.ID})
	}
	if err := s.rules.Upsert(ctx, &rule); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("qualification rule saved", zap.String("rule_id", rule.ID))
	return &rule, nil
}

// DeleteRule removes a catalog entry. A rule still referenced by an interaction is
// kept so history never points at a missing rule.
func (s *RuleService) DeleteRule(ctx context.Context, id string) error {
	if _, err := s.rules.GetByID(ctx, id); err != nil {
		return storeError(err, "rule", id)
	}
	refs, err := s.accounts.CountRuleReferences(ctx, id)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if refs > 0 {
		return apperrors.NewConflict("rule is referenced by recorded interactions", map[string]any{
			"rule_id":      id,
			"interactions": refs,
		})
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return storeError(err, "rule", id)
	}
	s.logger.Info("qualification rule deleted", zap.String("rule_id", id))
	return nil
}

// Seed loads rules into an empty catalog, stopping at the first invalid entry. A
// catalog that already holds rules is left alone, so edits and deletions made
// through the API survive restarts.
func (s *RuleService) Seed(ctx context.Context, rules []domain.QualificationRule) error {
	existing, err := s.rules.List(ctx)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if len(existing) > 0 {
		s.logger.Info("rule catalog already populated; seed skipped", zap.Int("rules", len(existing)))
		return nil
	}
	for _, rule := range rules {
		if _, err := s.UpsertRule(ctx, rule); err != nil {
			return err
		}
	}
	s.logger.Info("rule catalog seeded", zap.Int("rules", len(rules)))
	return nil
}
