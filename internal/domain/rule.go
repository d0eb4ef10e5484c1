package domain

import (
	"errors"
	"strings"
)

// QualificationRule maps a contact outcome to account and ticket effects.
type QualificationRule struct {
	ID             string
	Label          string
	DefaultStatus  string
	RecallRequired bool
	TicketRequired bool
	MarkNC         bool
}

// TicketEvent returns the automated ticket event type the rule raises.
func (r QualificationRule) TicketEvent() TicketEventType {
	if r.MarkNC {
		return TicketEventNC
	}
	return TicketEventTechnical
}

// Validate checks the fields every catalog entry must carry.
func (r QualificationRule) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return errors.New("rule id is required")
	case r.ID == ConversionRuleID:
		return errors.New("rule id " + ConversionRuleID + " is reserved")
	case strings.TrimSpace(r.Label) == "":
		return errors.New("rule label is required")
	case strings.TrimSpace(r.DefaultStatus) == "":
		return errors.New("rule default status is required")
	}
	return nil
}
