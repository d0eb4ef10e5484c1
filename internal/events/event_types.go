package events

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountCreated      EventType = "account_created"
	EventAccountConverted    EventType = "account_converted"
	EventAccountQualified    EventType = "account_qualified"
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketEscalated     EventType = "ticket_escalated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	Name    string             `json:"name"`
	StaffID string             `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountCreatedPayload payload.
type AccountCreatedPayload struct {
	Name string             `json:"name"`
	Kind domain.AccountKind `json:"kind"`
}

// AccountConvertedPayload payload.
type AccountConvertedPayload struct {
	Name string `json:"name"`
}

// AccountQualifiedPayload payload.
type AccountQualifiedPayload struct {
	AccountName string         `json:"account_name"`
	RuleID      string         `json:"rule_id"`
	RuleLabel   string         `json:"rule_label"`
	Status      string         `json:"status"`
	Channel     domain.Channel `json:"channel"`
	MarkedNC    bool           `json:"marked_nc"`
	TicketID    string         `json:"ticket_id,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Reference   string                `json:"reference"`
	AccountName string                `json:"account_name"`
	Subject     string                `json:"subject"`
	Priority    domain.TicketPriority `json:"priority"`
	Source      string                `json:"source"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Reference string              `json:"reference"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Reference   string              `json:"reference"`
	AccountName string              `json:"account_name"`
	OldStatus   domain.TicketStatus `json:"old_status"`
	Deadline    time.Time           `json:"deadline"`
}
