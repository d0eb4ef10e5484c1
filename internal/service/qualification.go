package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// Qualification outcomes recorded in metrics.
const (
	outcomeQualified = "qualified"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// QualifyInput describes one contact event to evaluate against the catalog.
type QualifyInput struct {
	AccountID  string
	Channel    domain.Channel
	RuleID     string
	Comment    string
	RecallDate *time.Time
}

// QualificationResult reports what a qualification changed. Ticket is set only
// when the rule required one.
type QualificationResult struct {
	Account     *domain.Account
	Interaction domain.Interaction
	Ticket      *domain.Ticket
}

// Qualify applies a rule to an account: the account takes the rule's default
// status, the interaction is prepended, the NC flag can only be raised and the
// recall date follows the rule. Validation failures leave the account untouched.
//
// The account update and the automated ticket are separate steps. When the ticket
// cannot be raised the account change stands and is still announced; the error is
// returned together with the partial result.
func (s *AccountService) Qualify(ctx context.Context, actor Actor, input QualifyInput) (*QualificationResult, error) {
	if !input.Channel.Valid() {
		s.metrics.RecordQualification(input.RuleID, outcomeRejected)
		return nil, apperrors.NewValidationError("unknown contact channel", map[string]any{"channel": input.Channel})
	}
	rule, err := s.rules.GetByID(ctx, input.RuleID)
	if err != nil {
		s.metrics.RecordQualification(input.RuleID, outcomeRejected)
		return nil, storeError(err, "rule", input.RuleID)
	}
	if rule.TicketRequired && s.tickets == nil {
		s.metrics.RecordQualification(rule.ID, outcomeFailed)
		return nil, apperrors.NewInternalError(errors.New("no ticket trigger configured for rules that raise tickets"))
	}
	if rule.RecallRequired && input.RecallDate == nil {
		s.metrics.RecordQualification(rule.ID, outcomeRejected)
		return nil, apperrors.NewValidationError("recall date is required for this outcome", map[string]any{
			"rule_id": rule.ID,
		})
	}

	unlock := s.locks.lock(input.AccountID)
	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		unlock()
		s.metrics.RecordQualification(rule.ID, outcomeRejected)
		return nil, storeError(err, "account", input.AccountID)
	}

	now := s.clock.Now()
	interaction := domain.Interaction{
		ID:        newSortableID(),
		AccountID: account.ID,
		Timestamp: now,
		Channel:   input.Channel,
		RuleID:    rule.ID,
		Comment:   strings.TrimSpace(input.Comment),
		Agent:     actor.displayName(),
	}
	account.Status = rule.DefaultStatus
	account.IsNC = account.IsNC || rule.MarkNC
	account.NextRecall = nil
	if rule.RecallRequired {
		recall := *input.RecallDate
		account.NextRecall = &recall
	}
	account.PrependInteraction(interaction)
	account.UpdatedAt = now

	err = s.accounts.RecordInteraction(ctx, account, interaction)
	unlock()
	if err != nil {
		s.metrics.RecordQualification(rule.ID, outcomeFailed)
		return nil, storeError(err, "account", input.AccountID)
	}

	result := &QualificationResult{Account: account, Interaction: interaction}
	var triggerErr error
	if rule.TicketRequired {
		result.Ticket, triggerErr = s.tickets.TriggerTicket(ctx, actor, TriggerInput{
			EventType:   rule.TicketEvent(),
			AccountID:   account.ID,
			AccountName: account.Name,
			Details:     interaction.Comment,
			Channel:     string(interaction.Channel),
		})
		if triggerErr != nil {
			result.Ticket = nil
		}
	}

	// The account change is committed, so it is announced even when the ticket failed.
	payload := events.AccountQualifiedPayload{
		AccountName: account.Name,
		RuleID:      rule.ID,
		RuleLabel:   rule.Label,
		Status:      account.Status,
		Channel:     interaction.Channel,
		MarkedNC:    rule.MarkNC,
	}
	if result.Ticket != nil {
		payload.TicketID = result.Ticket.ID
	}
	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:     events.EventAccountQualified,
		EntityID: account.ID,
		Actor:    actor.event(),
		Payload:  payload,
	})

	if triggerErr != nil {
		s.metrics.RecordQualification(rule.ID, outcomeFailed)
		s.logger.Error("automated ticket failed after qualification",
			zap.String("account_id", account.ID),
			zap.String("rule_id", rule.ID),
			zap.Error(triggerErr))
		return result, triggerErr
	}
	s.metrics.RecordQualification(rule.ID, outcomeQualified)
	return result, nil
}
