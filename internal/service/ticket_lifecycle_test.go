package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func TestAddTicketDeadlineFollowsPriority(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	account := h.addProspect(t, "Acme")

	tests := []struct {
		priority domain.TicketPriority
		want     time.Duration
	}{
		{domain.TicketPriorityHigh, 4 * time.Hour},
		{domain.TicketPriorityMedium, 24 * time.Hour},
		{domain.TicketPriorityLow, 72 * time.Hour},
		{"", 24 * time.Hour},
	}
	for _, tc := range tests {
		ticket := h.addTicket(t, account.ID, tc.priority)
		if got := ticket.SLADeadline.Sub(ticket.CreatedAt); got != tc.want {
			t.Errorf("priority %q: window = %v, want %v", tc.priority, got, tc.want)
		}
		if ticket.Status != domain.TicketStatusOpen || len(ticket.Timeline) != 1 {
			t.Errorf("priority %q: status %s, timeline %d", tc.priority, ticket.Status, len(ticket.Timeline))
		}
	}

	if _, err := h.tickets.AddTicket(context.Background(), testAgent, TicketCreateInput{AccountID: account.ID, Subject: "x", Priority: "Urgent"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("unknown priority err = %v", err)
	}
	if _, err := h.tickets.AddTicket(context.Background(), testAgent, TicketCreateInput{AccountID: "missing", Subject: "x"}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("unknown account err = %v", err)
	}
}

func TestPriorityEditKeepsDeadline(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	account := h.addProspect(t, "Acme")
	ticket := h.addTicket(t, account.ID, domain.TicketPriorityLow)

	high := domain.TicketPriorityHigh
	updated, err := h.tickets.UpdateTicket(context.Background(), ticket.ID, TicketUpdateInput{Priority: &high})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if updated.Priority != high || !updated.SLADeadline.Equal(ticket.SLADeadline) {
		t.Errorf("priority %s deadline %v, want deadline %v", updated.Priority, updated.SLADeadline, ticket.SLADeadline)
	}
}

func TestTriggerTicketIgnoresEventType(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	account := h.addProspect(t, "Acme")

	for _, event := range []domain.TicketEventType{domain.TicketEventNC, domain.TicketEventTechnical, "Billing"} {
		ticket, err := h.tickets.TriggerTicket(context.Background(), Actor{}, TriggerInput{EventType: event, AccountID: account.ID})
		if err != nil {
			t.Fatalf("TriggerTicket(%s): %v", event, err)
		}
		if ticket.Priority != domain.TicketPriorityHigh {
			t.Errorf("%s: priority = %s", event, ticket.Priority)
		}
		if !ticket.SLADeadline.Equal(testStart.Add(24 * time.Hour)) {
			t.Errorf("%s: deadline = %v", event, ticket.SLADeadline)
		}
		if ticket.AccountName != "Acme" || len(ticket.InternalNotes) != 0 || len(ticket.Timeline) != 1 {
			t.Errorf("%s: ticket = %+v", event, ticket)
		}
		if ticket.Subject != "Automated ticket: "+string(event) {
			t.Errorf("%s: subject = %q", event, ticket.Subject)
		}
	}
}

func TestFullLifecycleTimeline(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	ticket := h.addTicket(t, account.ID, domain.TicketPriorityMedium)

	steps := []struct {
		input TransitionInput
		notes int
	}{
		{TransitionInput{To: domain.TicketStatusAssigned, Assignee: "Bob"}, 0},
		{TransitionInput{To: domain.TicketStatusInProgress, Note: "toner empty"}, 1},
		{TransitionInput{To: domain.TicketStatusWaitingClient, Note: "asked for model number"}, 1},
		{TransitionInput{To: domain.TicketStatusInProgress}, 0},
		{TransitionInput{To: domain.TicketStatusResolved, ResolutionSummary: "replaced toner", CorrectiveAction: "monthly check"}, 0},
		{TransitionInput{To: domain.TicketStatusClosed, Confirmed: true, Satisfied: true, FinalComment: "thanks"}, 0},
	}

	wantStatusEvents, wantNotes := 1, 0
	for _, step := range steps {
		var err error
		ticket, err = h.tickets.Transition(ctx, testAgent, ticket.ID, step.input)
		if err != nil {
			t.Fatalf("Transition to %s: %v", step.input.To, err)
		}
		wantStatusEvents++
		wantNotes += step.notes
		if ticket.Status != step.input.To {
			t.Fatalf("status = %s, want %s", ticket.Status, step.input.To)
		}
		if got := countKind(ticket.Timeline, domain.TimelineStatusChange); got != wantStatusEvents {
			t.Errorf("after %s: status events = %d, want %d", step.input.To, got, wantStatusEvents)
		}
		if got := countKind(ticket.Timeline, domain.TimelineNote); got != wantNotes {
			t.Errorf("after %s: notes = %d, want %d", step.input.To, got, wantNotes)
		}
	}

	if ticket.Assignee != "Bob" || ticket.ResolutionSummary != "replaced toner" || ticket.CorrectiveAction != "monthly check" {
		t.Errorf("guard fields not persisted: %+v", ticket)
	}
	if ticket.Satisfied == nil || !*ticket.Satisfied || ticket.FinalComment != "thanks" || ticket.ClosedAt == nil {
		t.Errorf("closing fields not persisted: %+v", ticket)
	}
	last := ticket.Timeline[len(ticket.Timeline)-1]
	if last.StatusFrom == nil || *last.StatusFrom != domain.TicketStatusResolved || *last.StatusTo != domain.TicketStatusClosed || last.Author != "Alice" {
		t.Errorf("last event = %+v", last)
	}

	archived, err := h.tickets.Archive(ctx, testAgent, ticket.ID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if archived.Status != domain.TicketStatusArchived || !archived.Archived {
		t.Errorf("archived = %s/%v", archived.Status, archived.Archived)
	}
}

func TestTransitionGuardsLeaveTicketUntouched(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")

	tests := []struct {
		name  string
		setup []TransitionInput
		input TransitionInput
		code  string
	}{
		{name: "assign without assignee", input: TransitionInput{To: domain.TicketStatusAssigned}, code: apperrors.CodeValidation},
		{name: "start without diagnostic", input: TransitionInput{To: domain.TicketStatusInProgress, Note: "  "}, code: apperrors.CodeValidation},
		{
			name:  "wait without outbound note",
			setup: []TransitionInput{{To: domain.TicketStatusInProgress, Note: "d"}},
			input: TransitionInput{To: domain.TicketStatusWaitingClient},
			code:  apperrors.CodeValidation,
		},
		{
			name:  "resolve without corrective action",
			setup: []TransitionInput{{To: domain.TicketStatusInProgress, Note: "d"}},
			input: TransitionInput{To: domain.TicketStatusResolved, ResolutionSummary: "done"},
			code:  apperrors.CodeValidation,
		},
		{
			name: "close without confirmation",
			setup: []TransitionInput{
				{To: domain.TicketStatusInProgress, Note: "d"},
				{To: domain.TicketStatusResolved, ResolutionSummary: "s", CorrectiveAction: "a"},
			},
			input: TransitionInput{To: domain.TicketStatusClosed, FinalComment: "bye"},
			code:  apperrors.CodeValidation,
		},
		{name: "open to resolved", input: TransitionInput{To: domain.TicketStatusResolved, ResolutionSummary: "s", CorrectiveAction: "a"}, code: apperrors.CodeInvalidTransition},
		{name: "manual escalation", input: TransitionInput{To: domain.TicketStatusEscalated}, code: apperrors.CodeInvalidTransition},
		{name: "unknown status", input: TransitionInput{To: "Paused"}, code: apperrors.CodeValidation},
		{
			name: "closed back to in progress",
			setup: []TransitionInput{
				{To: domain.TicketStatusInProgress, Note: "d"},
				{To: domain.TicketStatusResolved, ResolutionSummary: "s", CorrectiveAction: "a"},
				{To: domain.TicketStatusClosed, Confirmed: true, FinalComment: "bye"},
			},
			input: TransitionInput{To: domain.TicketStatusInProgress, Note: "reopen"},
			code:  apperrors.CodeInvalidTransition,
		},
		{
			name: "archive through workflow",
			setup: []TransitionInput{
				{To: domain.TicketStatusInProgress, Note: "d"},
				{To: domain.TicketStatusResolved, ResolutionSummary: "s", CorrectiveAction: "a"},
				{To: domain.TicketStatusClosed, Confirmed: true, FinalComment: "bye"},
			},
			input: TransitionInput{To: domain.TicketStatusArchived},
			code:  apperrors.CodeInvalidTransition,
		},
	}

	for _, tc := range tests {
		ticket := h.addTicket(t, account.ID, domain.TicketPriorityMedium)
		for _, step := range tc.setup {
			if _, err := h.tickets.Transition(ctx, testAgent, ticket.ID, step); err != nil {
				t.Fatalf("%s: setup %s: %v", tc.name, step.To, err)
			}
		}
		before, _ := h.tickets.GetTicket(ctx, ticket.ID)

		_, err := h.tickets.Transition(ctx, testAgent, ticket.ID, tc.input)
		if !apperrors.HasCode(err, tc.code) {
			t.Errorf("%s: err = %v, want %s", tc.name, err, tc.code)
		}
		after, _ := h.tickets.GetTicket(ctx, ticket.ID)
		if after.Status != before.Status || len(after.Timeline) != len(before.Timeline) {
			t.Errorf("%s: ticket changed: %s/%d -> %s/%d", tc.name, before.Status, len(before.Timeline), after.Status, len(after.Timeline))
		}
	}
}

func TestUnblockAndArchiveRequireSourceState(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	ticket := h.addTicket(t, account.ID, domain.TicketPriorityMedium)

	if _, err := h.tickets.Unblock(ctx, testAgent, ticket.ID); !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Errorf("unblock open ticket err = %v", err)
	}
	if _, err := h.tickets.Archive(ctx, testAgent, ticket.ID); !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Errorf("archive open ticket err = %v", err)
	}
	if _, err := h.tickets.Transition(ctx, testAgent, "missing", TransitionInput{To: domain.TicketStatusAssigned, Assignee: "x"}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing ticket err = %v", err)
	}
}

func TestAddNote(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	ticket := h.addTicket(t, account.ID, domain.TicketPriorityMedium)

	updated, err := h.tickets.AddNote(ctx, testAgent, ticket.ID, " called back ")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if len(updated.InternalNotes) != 1 || updated.InternalNotes[0] != "called back" {
		t.Errorf("InternalNotes = %v", updated.InternalNotes)
	}
	if countKind(updated.Timeline, domain.TimelineNote) != 1 || updated.Status != domain.TicketStatusOpen {
		t.Errorf("timeline = %+v", updated.Timeline)
	}
	if _, err := h.tickets.AddNote(ctx, testAgent, ticket.ID, ""); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("empty note err = %v", err)
	}
}

func TestListTicketsFilters(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	account := h.addProspect(t, "Acme")
	other := h.addProspect(t, "Globex")
	h.addTicket(t, account.ID, domain.TicketPriorityHigh)
	h.addTicket(t, account.ID, domain.TicketPriorityLow)
	h.addTicket(t, other.ID, domain.TicketPriorityLow)

	h.clock.Advance(5 * time.Hour)

	overdue, err := h.tickets.ListTickets(ctx, TicketListFilter{OverdueOnly: true})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(overdue) != 1 || overdue[0].Priority != domain.TicketPriorityHigh {
		t.Errorf("overdue = %+v", overdue)
	}

	byAccount, err := h.tickets.ListTickets(ctx, TicketListFilter{AccountID: &other.ID})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(byAccount) != 1 {
		t.Errorf("by account = %d, want 1", len(byAccount))
	}

	low, err := h.tickets.ListTickets(ctx, TicketListFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityLow}})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(low) != 2 {
		t.Errorf("low = %d, want 2", len(low))
	}
}

func TestEscalationEdgesFollowProtectedStatuses(t *testing.T) {
	t.Parallel()

	statuses := []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusAssigned,
		domain.TicketStatusInProgress,
		domain.TicketStatusWaitingClient,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusArchived,
		domain.TicketStatusEscalated,
	}
	for _, status := range statuses {
		if got, want := isValidTransition(status, domain.TicketStatusEscalated), !status.EscalationProtected(); got != want {
			t.Errorf("%s -> Escalated allowed = %v, want %v", status, got, want)
		}
	}

	want := []domain.TicketStatus{
		domain.TicketStatusAssigned,
		domain.TicketStatusInProgress,
		domain.TicketStatusOpen,
		domain.TicketStatusWaitingClient,
	}
	got := escalatableStatuses()
	if len(got) != len(want) {
		t.Fatalf("escalatable = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("escalatable[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
