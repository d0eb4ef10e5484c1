package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository/memory"
)

var testStart = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

var testAgent = Actor{StaffID: "staff-1", Name: "Alice", Role: domain.StaffRoleAgent}

type harness struct {
	clock         *clock.FakeClock
	accountStore  *memory.AccountStore
	ticketStore   *memory.TicketStore
	feed          *memory.NotificationStore
	rules         *RuleService
	accounts      *AccountService
	tickets       *TicketService
	notifications *NotificationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := clock.Fake(testStart)
	dispatcher := events.NewInMemoryDispatcher(nil)
	accountStore := memory.NewAccountStore()
	ruleStore := memory.NewRuleStore()
	ticketStore := memory.NewTicketStore()
	feed := memory.NewNotificationStore()

	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  ticketStore,
		AccountRepo: accountStore,
		Dispatcher:  dispatcher,
		Clock:       clk,
	})
	h := &harness{
		clock:        clk,
		accountStore: accountStore,
		ticketStore:  ticketStore,
		feed:         feed,
		rules:        NewRuleService(RuleDependencies{RuleRepo: ruleStore, AccountRepo: accountStore}),
		accounts: NewAccountService(AccountDependencies{
			AccountRepo: accountStore,
			RuleRepo:    ruleStore,
			Tickets:     tickets,
			Dispatcher:  dispatcher,
			Clock:       clk,
		}),
		tickets:       tickets,
		notifications: NewNotificationService(dispatcher, feed, clk, nil, config.NotificationConfig{ListLimit: 50}),
	}
	h.notifications.RegisterHandlers()

	if err := h.rules.Seed(context.Background(), testRules()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return h
}

func testRules() []domain.QualificationRule {
	return []domain.QualificationRule{
		{ID: "RAPPEL", Label: "Call back later", DefaultStatus: "Rappel", RecallRequired: true},
		{ID: "INTERESTED", Label: "Interested", DefaultStatus: "Finale"},
		{ID: "NC_DEFECT", Label: "Non-conform delivery", DefaultStatus: "Litige", TicketRequired: true, MarkNC: true},
		{ID: "TECH_ISSUE", Label: "Technical issue", DefaultStatus: "Support", TicketRequired: true},
	}
}

func (h *harness) addProspect(t *testing.T, name string) *domain.Account {
	t.Helper()
	account, err := h.accounts.AddAccount(context.Background(), testAgent, AccountCreateInput{Name: name})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	return account
}

func (h *harness) addTicket(t *testing.T, accountID string, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.AddTicket(context.Background(), testAgent, TicketCreateInput{
		AccountID: accountID,
		Subject:   "Printer jam",
		Priority:  priority,
	})
	if err != nil {
		t.Fatalf("AddTicket: %v", err)
	}
	return ticket
}

func countKind(timeline []domain.TimelineEvent, kind domain.TimelineKind) int {
	n := 0
	for _, ev := range timeline {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
