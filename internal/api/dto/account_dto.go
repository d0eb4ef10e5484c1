package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// CreateAccountRequest payload.
type CreateAccountRequest struct {
	Name        string             `json:"name"`
	Kind        domain.AccountKind `json:"kind"`
	ContactName string             `json:"contact_name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	City        string             `json:"city"`
}

// UpdateAccountRequest payload; omitted fields are left unchanged.
type UpdateAccountRequest struct {
	Name        *string `json:"name"`
	ContactName *string `json:"contact_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	City        *string `json:"city"`
}

// QualifyRequest records one contact outcome.
type QualifyRequest struct {
	Channel    domain.Channel `json:"channel"`
	RuleID     string         `json:"rule_id"`
	Comment    string         `json:"comment"`
	RecallDate *time.Time     `json:"recall_date"`
}

// InteractionResponse describes one contact event.
type InteractionResponse struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Channel   domain.Channel `json:"channel"`
	RuleID    string         `json:"rule_id"`
	Comment   string         `json:"comment"`
	Agent     string         `json:"agent"`
}

// AccountSummary is the list view of an account.
type AccountSummary struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Kind            domain.AccountKind `json:"kind"`
	Status          string             `json:"status"`
	IsNC            bool               `json:"is_nc"`
	NextRecall      *time.Time         `json:"next_recall"`
	City            string             `json:"city"`
	LastInteraction *time.Time         `json:"last_interaction"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// AccountDetailResponse includes contact details and history.
type AccountDetailResponse struct {
	AccountSummary
	ContactName  string                `json:"contact_name"`
	Email        string                `json:"email"`
	Phone        string                `json:"phone"`
	CreatedAt    time.Time             `json:"created_at"`
	Interactions []InteractionResponse `json:"interactions"`
}

// QualificationResponse reports the effects of a qualification.
type QualificationResponse struct {
	Account     AccountDetailResponse `json:"account"`
	Interaction InteractionResponse   `json:"interaction"`
	Ticket      *TicketSummary        `json:"ticket,omitempty"`
}
