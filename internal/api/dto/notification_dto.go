package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// NotificationResponse is one activity feed entry.
type NotificationResponse struct {
	ID           string                      `json:"id"`
	Title        string                      `json:"title"`
	Description  string                      `json:"description"`
	Category     domain.NotificationCategory `json:"category"`
	Read         bool                        `json:"read"`
	CreatedAt    time.Time                   `json:"created_at"`
	RelativeTime string                      `json:"relative_time"`
}
