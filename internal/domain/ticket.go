package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "Open"
	TicketStatusAssigned      TicketStatus = "Assigned"
	TicketStatusInProgress    TicketStatus = "In Progress"
	TicketStatusWaitingClient TicketStatus = "Waiting Client"
	TicketStatusResolved      TicketStatus = "Resolved"
	TicketStatusClosed        TicketStatus = "Closed"
	TicketStatusArchived      TicketStatus = "Archived"
	TicketStatusEscalated     TicketStatus = "Escalated"
)

// Valid reports whether s is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress, TicketStatusWaitingClient,
		TicketStatusResolved, TicketStatusClosed, TicketStatusArchived, TicketStatusEscalated:
		return true
	}
	return false
}

// EscalationProtected reports whether the SLA sweep must leave a ticket in s alone.
func (s TicketStatus) EscalationProtected() bool {
	switch s {
	case TicketStatusClosed, TicketStatusResolved, TicketStatusArchived, TicketStatusEscalated:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityLow    TicketPriority = "Low"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	_, ok := slaWindows[p]
	return ok
}

var slaWindows = map[TicketPriority]time.Duration{
	TicketPriorityHigh:   4 * time.Hour,
	TicketPriorityMedium: 24 * time.Hour,
	TicketPriorityLow:    72 * time.Hour,
}

// SLAWindow returns the time allowed before a ticket of priority p escalates.
func SLAWindow(p TicketPriority) time.Duration {
	if d, ok := slaWindows[p]; ok {
		return d
	}
	return slaWindows[TicketPriorityMedium]
}

// AutomatedSLAWindow applies to every ticket raised by the automated trigger.
const AutomatedSLAWindow = 24 * time.Hour

// TicketEventType names the business event behind an automated ticket.
type TicketEventType string

const (
	TicketEventNC        TicketEventType = "NC"
	TicketEventTechnical TicketEventType = "Technical"
)

// Ticket categories.
const (
	TicketTypeNonConformity = "Non-Conformity"
	TicketTypeTechnical     = "Technical"
	TicketTypeOther         = "Other"
)

// TypeFor maps an automated event type to the ticket category it files under.
func (e TicketEventType) TypeFor() string {
	switch e {
	case TicketEventNC:
		return TicketTypeNonConformity
	case TicketEventTechnical:
		return TicketTypeTechnical
	default:
		return TicketTypeOther
	}
}

// DepartmentBackOffice is the default owning department.
const DepartmentBackOffice = "BO"

// Ticket is the aggregate for support work.
type Ticket struct {
	ID                string
	Reference         string
	AccountID         string
	AccountName       string
	Subject           string
	Description       string
	Priority          TicketPriority
	Status            TicketStatus
	Type              string
	Channel           string
	Department        string
	Assignee          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	SLADeadline       time.Time
	ResolutionSummary string
	CorrectiveAction  string
	Satisfied         *bool
	FinalComment      string
	InternalNotes     []string
	Timeline          []TimelineEvent
	Archived          bool
	ClosedAt          *time.Time
}

// Overdue reports whether the SLA deadline has passed at now.
func (t *Ticket) Overdue(now time.Time) bool {
	return t.SLADeadline.Before(now)
}

// Clone returns a deep copy of the ticket including its timeline.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.ClosedAt = cloneTime(t.ClosedAt)
	if t.Satisfied != nil {
		v := *t.Satisfied
		cp.Satisfied = &v
	}
	if t.InternalNotes != nil {
		cp.InternalNotes = append([]string(nil), t.InternalNotes...)
	}
	if t.Timeline != nil {
		cp.Timeline = make([]TimelineEvent, len(t.Timeline))
		copy(cp.Timeline, t.Timeline)
	}
	return &cp
}
