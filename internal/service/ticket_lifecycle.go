package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// TransitionInput carries the target state and whatever its guard needs.
type TransitionInput struct {
	To                domain.TicketStatus
	Note              string
	Assignee          string
	ResolutionSummary string
	CorrectiveAction  string
	Confirmed         bool
	Satisfied         bool
	FinalComment      string
}

// allowedTransitions lists the workflow edges. The edges into Escalated are added
// in init from Ticket.EscalationProtected.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:          {domain.TicketStatusAssigned, domain.TicketStatusInProgress},
	domain.TicketStatusAssigned:      {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress:    {domain.TicketStatusWaitingClient, domain.TicketStatusResolved},
	domain.TicketStatusWaitingClient: {domain.TicketStatusInProgress},
	domain.TicketStatusResolved:      {domain.TicketStatusClosed},
	domain.TicketStatusClosed:        {domain.TicketStatusArchived},
	domain.TicketStatusEscalated:     {domain.TicketStatusInProgress},
	domain.TicketStatusArchived:      {},
}

func init() {
	for status, next := range allowedTransitions {
		if !status.EscalationProtected() {
			allowedTransitions[status] = append(next, domain.TicketStatusEscalated)
		}
	}
}

// escalatableStatuses returns the statuses the sweep may move to Escalated.
func escalatableStatuses() []domain.TicketStatus {
	var out []domain.TicketStatus
	for status := range allowedTransitions {
		if !status.EscalationProtected() {
			out = append(out, status)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// change describes one status move applied under the ticket lock.
type change struct {
	to     domain.TicketStatus
	kind   domain.TimelineKind
	author string
	actor  events.Actor
	// apply checks the guard on the working copy and returns the optional note
	// to record alongside the status event.
	apply func(t *domain.Ticket, from domain.TicketStatus, now time.Time) (string, error)
}

// Transition moves a ticket along the regular workflow. Escalation, unblocking and
// archiving have their own entry points and are rejected here.
func (s *TicketService) Transition(ctx context.Context, actor Actor, id string, input TransitionInput) (*domain.Ticket, error) {
	if !input.To.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": input.To})
	}
	ticket, err := s.applyChange(ctx, id, change{
		to:     input.To,
		kind:   domain.TimelineStatusChange,
		author: actor.displayName(),
		actor:  actor.event(),
		apply: func(t *domain.Ticket, from domain.TicketStatus, now time.Time) (string, error) {
			if input.To == domain.TicketStatusEscalated || input.To == domain.TicketStatusArchived ||
				from == domain.TicketStatusEscalated {
				return "", apperrors.NewInvalidTransition(string(from), string(input.To))
			}
			return applyGuard(t, from, input, now)
		},
	})
	return ticket, err
}

// Unblock returns an escalated ticket to In Progress. The deadline is unchanged, so a
// ticket that is still overdue escalates again on the next sweep.
func (s *TicketService) Unblock(ctx context.Context, actor Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.applyChange(ctx, id, change{
		to:     domain.TicketStatusInProgress,
		kind:   domain.TimelineStatusChange,
		author: actor.displayName(),
		actor:  actor.event(),
		apply: func(_ *domain.Ticket, from domain.TicketStatus, _ time.Time) (string, error) {
			if from != domain.TicketStatusEscalated {
				return "", apperrors.NewInvalidTransition(string(from), string(domain.TicketStatusInProgress))
			}
			return "", nil
		},
	})
	if err != nil {
		return nil, err
	}
	s.deadlines.push(ticket.ID, ticket.SLADeadline)
	return ticket, nil
}

// Archive files a closed ticket away for good.
func (s *TicketService) Archive(ctx context.Context, actor Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.applyChange(ctx, id, change{
		to:     domain.TicketStatusArchived,
		kind:   domain.TimelineStatusChange,
		author: actor.displayName(),
		actor:  actor.event(),
		apply: func(t *domain.Ticket, _ domain.TicketStatus, _ time.Time) (string, error) {
			t.Archived = true
			return "", nil
		},
	})
	return ticket, err
}

// applyChange runs one guarded status change under the ticket lock. The guard works on
// a copy, so a failing guard leaves the stored ticket and its timeline untouched.
func (s *TicketService) applyChange(ctx context.Context, id string, c change) (*domain.Ticket, error) {
	unlock := s.locks.lock(id)
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		unlock()
		return nil, storeError(err, "ticket", id)
	}
	from := ticket.Status
	if !isValidTransition(from, c.to) {
		unlock()
		return nil, apperrors.NewInvalidTransition(string(from), string(c.to))
	}

	now := s.clock.Now()
	note, err := c.apply(ticket, from, now)
	if err != nil {
		unlock()
		return nil, err
	}
	ticket.Status = c.to
	ticket.UpdatedAt = now

	to := c.to
	appended := []domain.TimelineEvent{{
		ID:         newSortableID(),
		TicketID:   ticket.ID,
		Kind:       c.kind,
		Content:    statusContent(c.kind, from, to, ticket.SLADeadline),
		Author:     c.author,
		CreatedAt:  now,
		StatusFrom: &from,
		StatusTo:   &to,
	}}
	if note != "" {
		appended = append(appended, noteEvent(ticket.ID, note, c.author, now))
	}
	if err := s.tickets.Save(ctx, ticket, appended...); err != nil {
		unlock()
		return nil, storeError(err, "ticket", id)
	}
	ticket.Timeline = append(ticket.Timeline, appended...)
	unlock()

	s.metrics.RecordTransition(string(from), string(to))
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("author", c.author))

	if c.kind == domain.TimelineEscalation {
		publishEvent(ctx, s.dispatcher, s.clock, events.Event{
			Type:      events.EventTicketEscalated,
			EntityID:  ticket.ID,
			Actor:     c.actor,
			Timestamp: now,
			Payload: events.TicketEscalatedPayload{
				Reference:   ticket.Reference,
				AccountName: ticket.AccountName,
				OldStatus:   from,
				Deadline:    ticket.SLADeadline,
			},
		})
	} else {
		publishEvent(ctx, s.dispatcher, s.clock, events.Event{
			Type:      events.EventTicketStatusChanged,
			EntityID:  ticket.ID,
			Actor:     c.actor,
			Timestamp: now,
			Payload: events.TicketStatusChangedPayload{
				Reference: ticket.Reference,
				OldStatus: from,
				NewStatus: to,
				Comment:   note,
			},
		})
	}
	return ticket, nil
}

// applyGuard validates the transition-specific input and copies it onto t.
func applyGuard(t *domain.Ticket, from domain.TicketStatus, input TransitionInput, now time.Time) (string, error) {
	switch input.To {
	case domain.TicketStatusAssigned:
		assignee := strings.TrimSpace(input.Assignee)
		if assignee == "" {
			return "", apperrors.NewValidationError("assignee is required", nil)
		}
		t.Assignee = assignee
	case domain.TicketStatusInProgress:
		if from == domain.TicketStatusWaitingClient {
			return "", nil
		}
		note := strings.TrimSpace(input.Note)
		if note == "" {
			return "", apperrors.NewValidationError("diagnostic note is required", nil)
		}
		return note, nil
	case domain.TicketStatusWaitingClient:
		note := strings.TrimSpace(input.Note)
		if note == "" {
			return "", apperrors.NewValidationError("outbound note is required", nil)
		}
		return note, nil
	case domain.TicketStatusResolved:
		summary := strings.TrimSpace(input.ResolutionSummary)
		action := strings.TrimSpace(input.CorrectiveAction)
		if summary == "" || action == "" {
			return "", apperrors.NewValidationError("resolution summary and corrective action are required", nil)
		}
		t.ResolutionSummary = summary
		t.CorrectiveAction = action
	case domain.TicketStatusClosed:
		comment := strings.TrimSpace(input.FinalComment)
		if !input.Confirmed || comment == "" {
			return "", apperrors.NewValidationError("closing requires confirmation and a final comment", nil)
		}
		satisfied := input.Satisfied
		closedAt := now
		t.Satisfied = &satisfied
		t.FinalComment = comment
		t.ClosedAt = &closedAt
	}
	return "", nil
}

func statusContent(kind domain.TimelineKind, from, to domain.TicketStatus, deadline time.Time) string {
	if kind == domain.TimelineEscalation {
		return fmt.Sprintf("SLA deadline %s exceeded, escalated from %s", deadline.UTC().Format(time.RFC3339), from)
	}
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}
