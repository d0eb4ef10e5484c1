package domain

import "time"

// TimelineKind classifies a ticket audit entry.
type TimelineKind string

const (
	TimelineStatusChange TimelineKind = "status_change"
	TimelineNote         TimelineKind = "note"
	TimelineEscalation   TimelineKind = "escalation"
)

// SystemAuthor signs every change made by the SLA sweep.
const SystemAuthor = "System AI"

// TimelineEvent is an immutable audit trail entry on a ticket.
type TimelineEvent struct {
	ID         string
	TicketID   string
	Kind       TimelineKind
	Content    string
	Author     string
	CreatedAt  time.Time
	StatusFrom *TicketStatus
	StatusTo   *TicketStatus
}

// IsStatusChange reports whether the entry records a move between states.
func (e TimelineEvent) IsStatusChange() bool {
	return e.Kind == TimelineStatusChange || e.Kind == TimelineEscalation
}
