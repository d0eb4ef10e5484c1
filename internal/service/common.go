package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// Actor identifies who performs an operation. The zero value is the system.
type Actor struct {
	StaffID string
	Name    string
	Role    domain.StaffRole
}

// StaffActor builds an Actor from an authenticated staff member.
func StaffActor(staff *domain.StaffMember) Actor {
	if staff == nil {
		return Actor{}
	}
	return Actor{StaffID: staff.ID, Name: staff.Name, Role: staff.Role}
}

func (a Actor) displayName() string {
	if strings.TrimSpace(a.Name) == "" {
		return domain.SystemAgent
	}
	return a.Name
}

func (a Actor) event() events.Actor {
	if a.StaffID == "" {
		return events.Actor{Type: domain.SubjectTypeSystem, Name: a.displayName()}
	}
	return events.Actor{Type: domain.SubjectTypeStaff, Name: a.displayName(), StaffID: a.StaffID}
}

var sweepActor = events.Actor{Type: domain.SubjectTypeSystem, Name: domain.SystemAuthor}

// entityLocks serializes mutations per entity id while letting different ids proceed
// concurrently. Entries are dropped once no goroutine holds or waits on them.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[string]*entityLock)}
}

// lock blocks until id is free and returns the matching unlock function.
func (l *entityLocks) lock(id string) func() {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &entityLock{}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()
	return func() {
		el.mu.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func newID() string {
	return uuid.NewString()
}

// newSortableID is used where insertion order must survive storage round trips.
func newSortableID() string {
	return ulid.Make().String()
}

// storeError maps a repository error onto the API error taxonomy.
func storeError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.NewInternalError(err)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, clk clock.Clock, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = newSortableID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clk.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func orDefault(clk clock.Clock) clock.Clock {
	if clk == nil {
		return clock.Real()
	}
	return clk
}
