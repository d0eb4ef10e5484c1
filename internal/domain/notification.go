package domain

import (
	"fmt"
	"time"
)

// NotificationCategory groups feed entries.
type NotificationCategory string

const (
	NotificationAccount       NotificationCategory = "account"
	NotificationQualification NotificationCategory = "qualification"
	NotificationTicket        NotificationCategory = "ticket"
	NotificationEscalation    NotificationCategory = "escalation"
)

// Notification is one entry of the human readable activity feed.
type Notification struct {
	ID          string
	Title       string
	Description string
	Category    NotificationCategory
	Read        bool
	CreatedAt   time.Time
}

// RelativeTime renders the age of the notification at now.
func (n Notification) RelativeTime(now time.Time) string {
	age := now.Sub(n.CreatedAt)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%d min ago", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(age/time.Hour))
	default:
		return fmt.Sprintf("%d d ago", int(age/(24*time.Hour)))
	}
}
