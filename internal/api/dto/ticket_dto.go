package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	AccountID   string                `json:"account_id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Type        string                `json:"type"`
	Channel     string                `json:"channel"`
	Department  string                `json:"department"`
	Assignee    string                `json:"assignee"`
}

// UpdateTicketRequest payload; omitted fields are left unchanged.
type UpdateTicketRequest struct {
	Subject     *string                `json:"subject"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Type        *string                `json:"type"`
	Channel     *string                `json:"channel"`
	Department  *string                `json:"department"`
	Assignee    *string                `json:"assignee"`
}

// TransitionRequest moves a ticket to another status.
type TransitionRequest struct {
	Status            domain.TicketStatus `json:"status"`
	Note              string              `json:"note"`
	Assignee          string              `json:"assignee"`
	ResolutionSummary string              `json:"resolution_summary"`
	CorrectiveAction  string              `json:"corrective_action"`
	Confirmed         bool                `json:"confirmed"`
	Satisfied         bool                `json:"satisfied"`
	FinalComment      string              `json:"final_comment"`
}

// NoteRequest payload.
type NoteRequest struct {
	Content string `json:"content"`
}

// TriggerTicketRequest simulates a business event raising a ticket.
type TriggerTicketRequest struct {
	EventType   domain.TicketEventType `json:"event_type"`
	AccountID   string                 `json:"account_id"`
	AccountName string                 `json:"account_name"`
	Details     string                 `json:"details"`
	Channel     string                 `json:"channel"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	Reference   string                `json:"reference"`
	AccountID   string                `json:"account_id"`
	AccountName string                `json:"account_name"`
	Subject     string                `json:"subject"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Type        string                `json:"type"`
	Department  string                `json:"department"`
	Assignee    string                `json:"assignee"`
	SLADeadline time.Time             `json:"sla_deadline"`
	Overdue     bool                  `json:"overdue"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description       string                  `json:"description"`
	Channel           string                  `json:"channel"`
	ResolutionSummary string                  `json:"resolution_summary,omitempty"`
	CorrectiveAction  string                  `json:"corrective_action,omitempty"`
	Satisfied         *bool                   `json:"satisfied,omitempty"`
	FinalComment      string                  `json:"final_comment,omitempty"`
	InternalNotes     []string                `json:"internal_notes"`
	Archived          bool                    `json:"archived"`
	ClosedAt          *time.Time              `json:"closed_at"`
	Timeline          []TimelineEventResponse `json:"timeline"`
}

// TimelineEventResponse represents one audit entry.
type TimelineEventResponse struct {
	ID         string               `json:"id"`
	Kind       domain.TimelineKind  `json:"kind"`
	Content    string               `json:"content"`
	Author     string               `json:"author"`
	CreatedAt  time.Time            `json:"created_at"`
	StatusFrom *domain.TicketStatus `json:"status_from,omitempty"`
	StatusTo   *domain.TicketStatus `json:"status_to,omitempty"`
}

// SweepResponse summarizes an escalation sweep.
type SweepResponse struct {
	Due       int      `json:"due"`
	Escalated []string `json:"escalated"`
	Failed    int      `json:"failed"`
}
