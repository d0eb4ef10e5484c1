package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// TicketStore holds tickets and their timelines in memory.
type TicketStore struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewTicketStore initializes an empty store.
func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]*domain.Ticket)}
}

var _ repository.TicketRepository = (*TicketStore)(nil)

// Create stores a copy of ticket, including its initial timeline.
func (s *TicketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

// Save replaces the ticket fields and appends events to the stored timeline.
func (s *TicketStore) Save(_ context.Context, ticket *domain.Ticket, appended ...domain.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := ticket.Clone()
	timeline := make([]domain.TimelineEvent, 0, len(current.Timeline)+len(appended))
	timeline = append(timeline, current.Timeline...)
	timeline = append(timeline, appended...)
	next.Timeline = timeline
	s.tickets[ticket.ID] = next
	return nil
}

func (s *TicketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ticket.Clone(), nil
}

func (s *TicketStore) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	statuses := toSet(filter.Statuses)
	priorities := toSet(filter.Priorities)

	s.mu.RLock()
	result := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if filter.AccountID != nil && ticket.AccountID != *filter.AccountID {
			continue
		}
		if len(statuses) > 0 && !statuses[ticket.Status] {
			continue
		}
		if len(priorities) > 0 && !priorities[ticket.Priority] {
			continue
		}
		if filter.OverdueAt != nil && !ticket.Overdue(*filter.OverdueAt) {
			continue
		}
		cp := ticket.Clone()
		cp.Timeline = nil
		result = append(result, *cp)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (s *TicketStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.tickets, id)
	return nil
}

func toSet[T comparable](items []T) map[T]bool {
	set := make(map[T]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
