package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository/memory"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func TestQualifyAppliesRule(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")

	result, err := h.accounts.Qualify(ctx, testAgent, QualifyInput{
		AccountID: account.ID,
		Channel:   domain.ChannelCall,
		RuleID:    "INTERESTED",
		Comment:   "  wants a quote ",
	})
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	got := result.Account
	if got.Status != "Finale" {
		t.Errorf("Status = %q, want Finale", got.Status)
	}
	if len(got.Interactions) != 1 || got.Interactions[0].ID != result.Interaction.ID {
		t.Fatalf("interactions = %+v", got.Interactions)
	}
	if result.Interaction.Comment != "wants a quote" || result.Interaction.Agent != "Alice" {
		t.Errorf("interaction = %+v", result.Interaction)
	}
	if got.LastInteraction == nil || !got.LastInteraction.Equal(testStart) {
		t.Errorf("LastInteraction = %v", got.LastInteraction)
	}
	if result.Ticket != nil {
		t.Error("rule without ticket raised one")
	}
}

func TestQualifyRecallRequired(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")

	// missing recall date fails and mutates nothing
	_, err := h.accounts.Qualify(ctx, testAgent, QualifyInput{AccountID: account.ID, Channel: domain.ChannelCall, RuleID: "RAPPEL"})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	stored, _ := h.accounts.GetAccount(ctx, account.ID)
	if len(stored.Interactions) != 0 || stored.Status != domain.AccountStatusPending {
		t.Fatalf("account mutated by failed qualification: %+v", stored)
	}

	recall := testStart.Add(48 * time.Hour)
	result, err := h.accounts.Qualify(ctx, testAgent, QualifyInput{
		AccountID:  account.ID,
		Channel:    domain.ChannelCall,
		RuleID:     "RAPPEL",
		RecallDate: &recall,
	})
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if result.Account.NextRecall == nil || !result.Account.NextRecall.Equal(recall) {
		t.Errorf("NextRecall = %v, want %v", result.Account.NextRecall, recall)
	}

	// A rule without recall clears the scheduled one.
	result, err = h.accounts.Qualify(ctx, testAgent, QualifyInput{AccountID: account.ID, Channel: domain.ChannelEmail, RuleID: "INTERESTED"})
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if result.Account.NextRecall != nil {
		t.Errorf("NextRecall = %v, want cleared", result.Account.NextRecall)
	}
	if len(result.Account.Interactions) != 2 || result.Account.Interactions[0].RuleID != "INTERESTED" {
		t.Errorf("interactions not newest first: %+v", result.Account.Interactions)
	}
}

func TestQualifyNCRaisesTicketAndStaysMonotonic(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")

	result, err := h.accounts.Qualify(ctx, testAgent, QualifyInput{
		AccountID: account.ID,
		Channel:   domain.ChannelFieldVisit,
		RuleID:    "NC_DEFECT",
		Comment:   "crate broken",
	})
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if !result.Account.IsNC {
		t.Error("IsNC not set")
	}
	ticket := result.Ticket
	if ticket == nil {
		t.Fatal("expected automated ticket")
	}
	if ticket.Priority != domain.TicketPriorityHigh || !ticket.SLADeadline.Equal(testStart.Add(24*time.Hour)) {
		t.Errorf("ticket priority/deadline = %s/%v", ticket.Priority, ticket.SLADeadline)
	}
	if ticket.Type != domain.TicketTypeNonConformity || ticket.Department != domain.DepartmentBackOffice {
		t.Errorf("ticket type/department = %s/%s", ticket.Type, ticket.Department)
	}
	if ticket.Description != "crate broken" || ticket.AccountName != "Acme" {
		t.Errorf("ticket = %+v", ticket)
	}

	result, err = h.accounts.Qualify(ctx, testAgent, QualifyInput{AccountID: account.ID, Channel: domain.ChannelCall, RuleID: "INTERESTED"})
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if !result.Account.IsNC {
		t.Error("IsNC was reset by a later qualification")
	}
}

func TestQualifyTechnicalTicket(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	account := h.addProspect(t, "Acme")

	result, err := h.accounts.Qualify(context.Background(), testAgent, QualifyInput{
		AccountID: account.ID,
		Channel:   domain.ChannelEmail,
		RuleID:    "TECH_ISSUE",
	})
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if result.Account.IsNC {
		t.Error("technical rule set IsNC")
	}
	if result.Ticket == nil || result.Ticket.Type != domain.TicketTypeTechnical {
		t.Fatalf("ticket = %+v", result.Ticket)
	}
}

type failingTrigger struct{ err error }

func (f failingTrigger) TriggerTicket(context.Context, Actor, TriggerInput) (*domain.Ticket, error) {
	return nil, f.err
}

// newQualifyFixture wires an AccountService over fresh stores with the given
// trigger and a notification feed listening on the same dispatcher.
func newQualifyFixture(t *testing.T, trigger TicketTrigger) (*AccountService, *memory.AccountStore, *memory.NotificationStore) {
	t.Helper()

	clk := clock.Fake(testStart)
	dispatcher := events.NewInMemoryDispatcher(nil)
	accountStore := memory.NewAccountStore()
	ruleStore := memory.NewRuleStore()
	feed := memory.NewNotificationStore()
	NewNotificationService(dispatcher, feed, clk, nil, config.NotificationConfig{ListLimit: 50}).RegisterHandlers()

	rules := NewRuleService(RuleDependencies{RuleRepo: ruleStore, AccountRepo: accountStore})
	if err := rules.Seed(context.Background(), testRules()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	accounts := NewAccountService(AccountDependencies{
		AccountRepo: accountStore,
		RuleRepo:    ruleStore,
		Tickets:     trigger,
		Dispatcher:  dispatcher,
		Clock:       clk,
	})
	return accounts, accountStore, feed
}

func TestQualifyAnnouncedWhenTicketFails(t *testing.T) {
	t.Parallel()

	storeDown := errors.New("ticket store down")
	accounts, accountStore, feed := newQualifyFixture(t, failingTrigger{err: storeDown})
	ctx := context.Background()

	account, err := accounts.AddAccount(ctx, testAgent, AccountCreateInput{Name: "Acme"})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	before, _ := feed.List(ctx, 50)

	result, err := accounts.Qualify(ctx, testAgent, QualifyInput{
		AccountID: account.ID,
		Channel:   domain.ChannelCall,
		RuleID:    "NC_DEFECT",
	})
	if !errors.Is(err, storeDown) {
		t.Fatalf("err = %v, want trigger error", err)
	}
	if result == nil || result.Ticket != nil {
		t.Fatalf("result = %+v, want partial result without ticket", result)
	}

	stored, err := accountStore.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != "Litige" || !stored.IsNC || len(stored.Interactions) != 1 {
		t.Errorf("stored = status %q nc %v interactions %d", stored.Status, stored.IsNC, len(stored.Interactions))
	}

	after, _ := feed.List(ctx, 50)
	if len(after) != len(before)+1 {
		t.Fatalf("feed grew by %d, want 1", len(after)-len(before))
	}
	if after[0].Title != "Qualification recorded" {
		t.Errorf("newest notification = %q", after[0].Title)
	}
}

func TestQualifyTicketRuleWithoutTrigger(t *testing.T) {
	t.Parallel()

	accounts, accountStore, _ := newQualifyFixture(t, nil)
	ctx := context.Background()

	account, err := accounts.AddAccount(ctx, testAgent, AccountCreateInput{Name: "Acme"})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	_, err = accounts.Qualify(ctx, testAgent, QualifyInput{
		AccountID: account.ID,
		Channel:   domain.ChannelCall,
		RuleID:    "NC_DEFECT",
	})
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Fatalf("err = %v, want internal", err)
	}

	stored, err := accountStore.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.AccountStatusPending || stored.IsNC || len(stored.Interactions) != 0 {
		t.Errorf("account changed: status %q nc %v interactions %d", stored.Status, stored.IsNC, len(stored.Interactions))
	}
}

func TestQualifyPreconditions(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	account := h.addProspect(t, "Acme")

	tests := []struct {
		name  string
		input QualifyInput
		code  string
	}{
		{name: "unknown rule", input: QualifyInput{AccountID: account.ID, Channel: domain.ChannelCall, RuleID: "NOPE"}, code: apperrors.CodeNotFound},
		{name: "unknown account", input: QualifyInput{AccountID: "missing", Channel: domain.ChannelCall, RuleID: "INTERESTED"}, code: apperrors.CodeNotFound},
		{name: "unknown channel", input: QualifyInput{AccountID: account.ID, Channel: "fax", RuleID: "INTERESTED"}, code: apperrors.CodeValidation},
	}
	for _, tc := range tests {
		_, err := h.accounts.Qualify(context.Background(), testAgent, tc.input)
		if !apperrors.HasCode(err, tc.code) {
			t.Errorf("%s: err = %v, want %s", tc.name, err, tc.code)
		}
	}
}

func TestConvertToClient(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")

	converted, err := h.accounts.ConvertToClient(ctx, Actor{}, account.ID)
	if err != nil {
		t.Fatalf("ConvertToClient: %v", err)
	}
	if converted.Kind != domain.AccountKindClient || converted.Status != domain.AccountStatusSigned {
		t.Errorf("kind/status = %s/%s", converted.Kind, converted.Status)
	}
	if len(converted.Interactions) != 1 {
		t.Fatalf("interactions = %d, want 1", len(converted.Interactions))
	}
	in := converted.Interactions[0]
	if in.Channel != domain.ChannelFieldVisit || in.RuleID != domain.ConversionRuleID || in.Agent != domain.SystemAgent {
		t.Errorf("conversion interaction = %+v", in)
	}

	if _, err := h.accounts.ConvertToClient(ctx, testAgent, account.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second conversion err = %v, want conflict", err)
	}
	if _, err := h.accounts.ConvertToClient(ctx, testAgent, "missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing account err = %v, want not found", err)
	}
}

func TestUpdateAccountKeepsHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	if _, err := h.accounts.Qualify(ctx, testAgent, QualifyInput{AccountID: account.ID, Channel: domain.ChannelCall, RuleID: "NC_DEFECT"}); err != nil {
		t.Fatalf("Qualify: %v", err)
	}

	city := " Lyon "
	updated, err := h.accounts.UpdateAccount(ctx, account.ID, AccountUpdateInput{City: &city})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if updated.City != "Lyon" || !updated.IsNC || updated.Status != "Litige" {
		t.Errorf("updated = %+v", updated)
	}
	stored, _ := h.accounts.GetAccount(ctx, account.ID)
	if len(stored.Interactions) != 1 {
		t.Errorf("interactions = %d, want 1", len(stored.Interactions))
	}

	empty := ""
	if _, err := h.accounts.UpdateAccount(ctx, account.ID, AccountUpdateInput{Name: &empty}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("empty name err = %v", err)
	}
}

func TestAddAccountValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.accounts.AddAccount(ctx, testAgent, AccountCreateInput{Name: " "}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("blank name err = %v", err)
	}
	if _, err := h.accounts.AddAccount(ctx, testAgent, AccountCreateInput{Name: "X", Kind: "Partner"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("unknown kind err = %v", err)
	}
	client, err := h.accounts.AddAccount(ctx, testAgent, AccountCreateInput{Name: "Signed Co", Kind: domain.AccountKindClient})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if client.Status != domain.AccountStatusSigned || len(client.Interactions) != 0 {
		t.Errorf("client = %+v", client)
	}
}

func TestConcurrentQualificationsKeepEveryInteraction(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	account := h.addProspect(t, "Acme")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.accounts.Qualify(context.Background(), testAgent, QualifyInput{
				AccountID: account.ID,
				Channel:   domain.ChannelCall,
				RuleID:    "INTERESTED",
			}); err != nil {
				t.Errorf("Qualify: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := h.accounts.GetAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if len(stored.Interactions) != workers {
		t.Errorf("interactions = %d, want %d", len(stored.Interactions), workers)
	}
}
