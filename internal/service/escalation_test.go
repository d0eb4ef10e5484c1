package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

func TestSweepEscalatesOverdueOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	high := h.addTicket(t, account.ID, domain.TicketPriorityHigh)
	low := h.addTicket(t, account.ID, domain.TicketPriorityLow)

	// past the High window only
	h.clock.Advance(5 * time.Hour)
	report, err := h.tickets.EscalateOverdue(ctx)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if len(report.Escalated) != 1 || report.Escalated[0] != high.ID {
		t.Fatalf("escalated = %v, want [%s]", report.Escalated, high.ID)
	}

	got, _ := h.tickets.GetTicket(ctx, high.ID)
	if got.Status != domain.TicketStatusEscalated {
		t.Fatalf("status = %s", got.Status)
	}
	last := got.Timeline[len(got.Timeline)-1]
	if last.Kind != domain.TimelineEscalation || last.Author != domain.SystemAuthor {
		t.Errorf("last event = %+v", last)
	}
	if *last.StatusFrom != domain.TicketStatusOpen || *last.StatusTo != domain.TicketStatusEscalated {
		t.Errorf("from/to = %s/%s", *last.StatusFrom, *last.StatusTo)
	}

	for i := 0; i < 3; i++ {
		h.clock.Advance(time.Hour)
		if _, err := h.tickets.EscalateOverdue(ctx); err != nil {
			t.Fatalf("EscalateOverdue: %v", err)
		}
	}
	got, _ = h.tickets.GetTicket(ctx, high.ID)
	if n := countKind(got.Timeline, domain.TimelineEscalation); n != 1 {
		t.Errorf("escalation events = %d, want 1", n)
	}
	untouched, _ := h.tickets.GetTicket(ctx, low.ID)
	if untouched.Status != domain.TicketStatusOpen {
		t.Errorf("low priority ticket status = %s", untouched.Status)
	}
}

func TestSweepSkipsProtectedStates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")

	resolved := h.addTicket(t, account.ID, domain.TicketPriorityHigh)
	for _, step := range []TransitionInput{
		{To: domain.TicketStatusInProgress, Note: "d"},
		{To: domain.TicketStatusResolved, ResolutionSummary: "s", CorrectiveAction: "a"},
	} {
		if _, err := h.tickets.Transition(ctx, testAgent, resolved.ID, step); err != nil {
			t.Fatalf("Transition: %v", err)
		}
	}
	waiting := h.addTicket(t, account.ID, domain.TicketPriorityHigh)
	for _, step := range []TransitionInput{
		{To: domain.TicketStatusInProgress, Note: "d"},
		{To: domain.TicketStatusWaitingClient, Note: "o"},
	} {
		if _, err := h.tickets.Transition(ctx, testAgent, waiting.ID, step); err != nil {
			t.Fatalf("Transition: %v", err)
		}
	}

	h.clock.Advance(10 * time.Hour)
	report, err := h.tickets.EscalateOverdue(ctx)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if len(report.Escalated) != 1 || report.Escalated[0] != waiting.ID {
		t.Errorf("escalated = %v, want only %s", report.Escalated, waiting.ID)
	}
	got, _ := h.tickets.GetTicket(ctx, resolved.ID)
	if got.Status != domain.TicketStatusResolved || countKind(got.Timeline, domain.TimelineEscalation) != 0 {
		t.Errorf("resolved ticket touched: %s", got.Status)
	}
}

func TestUnblockedOverdueTicketEscalatesAgain(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	ticket := h.addTicket(t, account.ID, domain.TicketPriorityHigh)

	h.clock.Advance(5 * time.Hour)
	if _, err := h.tickets.EscalateOverdue(ctx); err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	unblocked, err := h.tickets.Unblock(ctx, Actor{StaffID: "admin", Name: "Root", Role: domain.StaffRoleAdmin}, ticket.ID)
	if err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if unblocked.Status != domain.TicketStatusInProgress || !unblocked.SLADeadline.Equal(ticket.SLADeadline) {
		t.Fatalf("unblocked = %s, deadline %v", unblocked.Status, unblocked.SLADeadline)
	}

	report, err := h.tickets.EscalateOverdue(ctx)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if len(report.Escalated) != 1 {
		t.Errorf("escalated = %v, want the unblocked ticket", report.Escalated)
	}
}

func TestRebuildIndexFindsStoredTickets(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	ticket := h.addTicket(t, account.ID, domain.TicketPriorityHigh)

	// A fresh service over the same store starts with an empty index.
	restarted := NewTicketService(TicketDependencies{
		TicketRepo:  h.ticketStore,
		AccountRepo: h.accountStore,
		Clock:       h.clock,
	})
	h.clock.Advance(5 * time.Hour)
	if report, _ := restarted.EscalateOverdue(ctx); len(report.Escalated) != 0 {
		t.Fatalf("escalated before rebuild: %v", report.Escalated)
	}
	n, err := restarted.RebuildIndex(ctx)
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if n != 1 {
		t.Errorf("indexed = %d, want 1", n)
	}
	report, err := restarted.SimulateEscalation(ctx)
	if err != nil {
		t.Fatalf("SimulateEscalation: %v", err)
	}
	if len(report.Escalated) != 1 || report.Escalated[0] != ticket.ID {
		t.Errorf("escalated = %v", report.Escalated)
	}
}

func TestSweepDropsDeletedTickets(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	ticket := h.addTicket(t, account.ID, domain.TicketPriorityHigh)
	if err := h.tickets.DeleteTicket(ctx, ticket.ID); err != nil {
		t.Fatalf("DeleteTicket: %v", err)
	}

	h.clock.Advance(5 * time.Hour)
	report, err := h.tickets.EscalateOverdue(ctx)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if report.Due != 1 || len(report.Escalated) != 0 {
		t.Errorf("report = %+v", report)
	}
	if h.tickets.deadlines.len() != 0 {
		t.Errorf("index still holds %d entries", h.tickets.deadlines.len())
	}
}

func TestConcurrentSweepsAndTransitions(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")

	const tickets = 25
	ids := make([]string, 0, tickets)
	for i := 0; i < tickets; i++ {
		ids = append(ids, h.addTicket(t, account.ID, domain.TicketPriorityHigh).ID)
	}
	h.clock.Advance(5 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.tickets.EscalateOverdue(ctx)
		}()
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = h.tickets.Transition(ctx, testAgent, id, TransitionInput{To: domain.TicketStatusAssigned, Assignee: "Bob"})
		}(id)
	}
	wg.Wait()
	if _, err := h.tickets.EscalateOverdue(ctx); err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}

	for _, id := range ids {
		got, err := h.tickets.GetTicket(ctx, id)
		if err != nil {
			t.Fatalf("GetTicket: %v", err)
		}
		if got.Status != domain.TicketStatusEscalated {
			t.Errorf("%s: status = %s, want Escalated", id, got.Status)
		}
		if n := countKind(got.Timeline, domain.TimelineEscalation); n != 1 {
			t.Errorf("%s: escalation events = %d, want 1", id, n)
		}
		statusEvents := 0
		for _, ev := range got.Timeline {
			if ev.IsStatusChange() {
				statusEvents++
			}
		}
		// creation + escalation, plus the assignment when it won the race
		if statusEvents != 2 && statusEvents != 3 {
			t.Errorf("%s: status events = %d", id, statusEvents)
		}
	}
}

func TestDeadlineIndexOrder(t *testing.T) {
	t.Parallel()

	idx := newDeadlineIndex()
	idx.push("late", testStart.Add(3*time.Hour))
	idx.push("early", testStart.Add(time.Hour))
	idx.push("mid", testStart.Add(2*time.Hour))

	due := idx.popDue(testStart.Add(150 * time.Minute))
	if len(due) != 2 || due[0].ticketID != "early" || due[1].ticketID != "mid" {
		t.Fatalf("due = %+v", due)
	}
	if idx.len() != 1 {
		t.Errorf("remaining = %d, want 1", idx.len())
	}
	if due := idx.popDue(testStart.Add(3 * time.Hour)); len(due) != 0 {
		t.Errorf("deadline equal to now must not be due: %+v", due)
	}
}
