package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// NotificationStore keeps the activity feed in memory, newest first.
type NotificationStore struct {
	mu    sync.RWMutex
	items []domain.Notification
}

// NewNotificationStore initializes an empty feed.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

var _ repository.NotificationRepository = (*NotificationStore)(nil)

func (s *NotificationStore) Prepend(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]domain.Notification{*n}, s.items...)
	return nil
}

func (s *NotificationStore) List(_ context.Context, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.items)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.Notification, n)
	copy(result, s.items[:n])
	return result, nil
}

func (s *NotificationStore) MarkAllRead(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Read = true
	}
	return nil
}

func (s *NotificationStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}
