package domain

import "time"

// AccountKind distinguishes prospects from signed clients.
type AccountKind string

const (
	AccountKindProspect AccountKind = "Prospect"
	AccountKindClient   AccountKind = "Client"
)

// Account statuses set outside the rule catalog.
const (
	AccountStatusPending = "En attente"
	AccountStatusSigned  = "Signed"
)

// Account is a prospect or client organization with its contact history.
type Account struct {
	ID              string
	Name            string
	Kind            AccountKind
	Status          string
	IsNC            bool
	NextRecall      *time.Time
	ContactName     string
	Email           string
	Phone           string
	City            string
	Interactions    []Interaction
	LastInteraction *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	cp.NextRecall = cloneTime(a.NextRecall)
	cp.LastInteraction = cloneTime(a.LastInteraction)
	if a.Interactions != nil {
		cp.Interactions = make([]Interaction, len(a.Interactions))
		copy(cp.Interactions, a.Interactions)
	}
	return &cp
}

// PrependInteraction records in as the newest contact event.
func (a *Account) PrependInteraction(in Interaction) {
	a.Interactions = append([]Interaction{in}, a.Interactions...)
	ts := in.Timestamp
	a.LastInteraction = &ts
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
