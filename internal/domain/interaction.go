package domain

import "time"

// Channel is the medium of a contact event.
type Channel string

const (
	ChannelCall       Channel = "call"
	ChannelEmail      Channel = "email"
	ChannelFieldVisit Channel = "field_visit"
)

// Valid reports whether c is a known contact channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelCall, ChannelEmail, ChannelFieldVisit:
		return true
	}
	return false
}

// Synthetic interaction values written by client conversion.
const (
	ConversionRuleID  = "CONVERSION"
	ConversionComment = "Contract signed. Welcome aboard!"
	SystemAgent       = "System"
)

// Interaction is an immutable record of one contact event.
type Interaction struct {
	ID        string
	AccountID string
	Timestamp time.Time
	Channel   Channel
	RuleID    string
	Comment   string
	Agent     string
}
