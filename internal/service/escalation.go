package service

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// SweepReport summarizes one escalation sweep.
type SweepReport struct {
	Due       int
	Escalated []string
	Failed    int
	Duration  time.Duration
}

type deadlineEntry struct {
	ticketID string
	deadline time.Time
}

type deadlineHeap []deadlineEntry

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x any)        { *h = append(*h, x.(deadlineEntry)) }
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// deadlineIndex orders escalation candidates by SLA deadline. An entry may outlive
// its ticket's eligibility; the sweep re-checks the stored ticket before acting.
type deadlineIndex struct {
	mu sync.Mutex
	h  deadlineHeap
}

func newDeadlineIndex() *deadlineIndex {
	return &deadlineIndex{}
}

func (d *deadlineIndex) push(ticketID string, deadline time.Time) {
	d.mu.Lock()
	heap.Push(&d.h, deadlineEntry{ticketID: ticketID, deadline: deadline})
	d.mu.Unlock()
}

// popDue removes and returns every entry whose deadline is before now.
func (d *deadlineIndex) popDue(now time.Time) []deadlineEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	var due []deadlineEntry
	for d.h.Len() > 0 && d.h[0].deadline.Before(now) {
		due = append(due, heap.Pop(&d.h).(deadlineEntry))
	}
	return due
}

func (d *deadlineIndex) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.h.Len()
}

// RebuildIndex loads every ticket the sweep could still escalate into the deadline
// index. Call it once at startup before the sweeper runs.
func (s *TicketService) RebuildIndex(ctx context.Context) (int, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses: escalatableStatuses(),
	})
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	for _, t := range tickets {
		s.deadlines.push(t.ID, t.SLADeadline)
	}
	s.logger.Info("deadline index rebuilt", zap.Int("tickets", len(tickets)))
	return len(tickets), nil
}

// EscalateOverdue moves every overdue ticket outside the protected states to
// Escalated, authored by the system. Protected tickets are left alone, so repeated
// sweeps escalate a ticket at most once per stay outside Escalated.
func (s *TicketService) EscalateOverdue(ctx context.Context) (SweepReport, error) {
	started := time.Now()
	now := s.clock.Now()
	due := s.deadlines.popDue(now)
	report := SweepReport{Due: len(due)}

	for _, entry := range due {
		err := s.escalate(ctx, entry.ticketID)
		switch {
		case err == nil:
			report.Escalated = append(report.Escalated, entry.ticketID)
		case apperrors.HasCode(err, apperrors.CodeNotFound), apperrors.HasCode(err, apperrors.CodeInvalidTransition):
			// deleted or protected; nothing left to watch
		default:
			report.Failed++
			s.deadlines.push(entry.ticketID, entry.deadline)
			s.logger.Error("escalation failed", zap.String("ticket_id", entry.ticketID), zap.Error(err))
		}
	}

	report.Duration = time.Since(started)
	s.metrics.RecordSweep(len(report.Escalated), report.Duration)
	if len(report.Escalated) > 0 || report.Failed > 0 {
		s.logger.Info("sla sweep finished",
			zap.Int("due", report.Due),
			zap.Int("escalated", len(report.Escalated)),
			zap.Int("failed", report.Failed))
	}
	if report.Failed > 0 {
		return report, errors.New("one or more escalations failed")
	}
	return report, nil
}

// SimulateEscalation runs one sweep immediately.
func (s *TicketService) SimulateEscalation(ctx context.Context) (SweepReport, error) {
	return s.EscalateOverdue(ctx)
}

// escalate moves one ticket popped from the deadline index. Entries only leave the
// index once due and deadlines never move, so the ticket is overdue by construction.
// The status is re-read under the lock; protected statuses have no edge into
// Escalated and fail with INVALID_TRANSITION.
func (s *TicketService) escalate(ctx context.Context, id string) error {
	_, err := s.applyChange(ctx, id, change{
		to:     domain.TicketStatusEscalated,
		kind:   domain.TimelineEscalation,
		author: domain.SystemAuthor,
		actor:  sweepActor,
		apply: func(*domain.Ticket, domain.TicketStatus, time.Time) (string, error) {
			return "", nil
		},
	})
	return err
}
