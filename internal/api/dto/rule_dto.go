package dto

// RuleRequest payload for creating or replacing a rule; the id comes from the path.
type RuleRequest struct {
	Label          string `json:"label"`
	DefaultStatus  string `json:"default_status"`
	RecallRequired bool   `json:"recall_required"`
	TicketRequired bool   `json:"ticket_required"`
	MarkNC         bool   `json:"mark_nc"`
}

// RuleResponse describes a catalog entry.
type RuleResponse struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	DefaultStatus  string `json:"default_status"`
	RecallRequired bool   `json:"recall_required"`
	TicketRequired bool   `json:"ticket_required"`
	MarkNC         bool   `json:"mark_nc"`
}
