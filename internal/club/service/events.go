package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/auth"
	"github.com/greenroomhq/greenroom/internal/club/cache"
	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// EventService manages the event hierarchy.
type EventService struct {
	events       storage.EventStore
	participants storage.ParticipantStore
	cache        *cache.Cache
	guard        auth.Guard
	clock        func() time.Time
	idGenerator  func() (string, error)
}

// NewEventService creates an EventService with default clock and ID generator.
func NewEventService(events storage.EventStore, participants storage.ParticipantStore, cacheLayer *cache.Cache, guard auth.Guard) *EventService {
	return &EventService{
		events:       events,
		participants: participants,
		cache:        cacheLayer,
		guard:        guard,
		clock:        time.Now,
		idGenerator:  domain.NewID,
	}
}

// CreateEventInput describes a service-level event creation request.
type CreateEventInput struct {
	Title           string
	Description     string
	Type            domain.EventType
	StartAt         time.Time
	EndAt           time.Time
	ParentID        string
	MaxParticipants int
}

// CreateEvent creates an event, joining the parent's tree when ParentID is
// set. Admin only.
func (s *EventService) CreateEvent(ctx context.Context, actingID string, input CreateEventInput) (domain.Event, error) {
	if s == nil || s.events == nil {
		return domain.Event{}, fmt.Errorf("event service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.Event{}, err
	}

	var parent *domain.Event
	if parentID := strings.TrimSpace(input.ParentID); parentID != "" {
		found, err := s.events.GetEvent(ctx, parentID)
		if err != nil {
			return domain.Event{}, fmt.Errorf("resolve parent %s: %w", parentID, err)
		}
		parent = &found
	}

	event, err := domain.CreateEvent(domain.CreateEventInput{
		Title:           input.Title,
		Description:     input.Description,
		Type:            input.Type,
		StartAt:         input.StartAt,
		EndAt:           input.EndAt,
		MaxParticipants: input.MaxParticipants,
	}, parent, actingID, s.clock, s.idGenerator)
	if err != nil {
		return domain.Event{}, err
	}

	if err := s.events.PutEvent(ctx, event); err != nil {
		return domain.Event{}, fmt.Errorf("persist event: %w", err)
	}

	s.cache.ExpireEventScope(ctx)
	return event, nil
}

// GetEvent returns one event, cache-aside.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	if s == nil || s.events == nil {
		return domain.Event{}, fmt.Errorf("event service is not configured")
	}
	if event, ok := s.cache.CachedEvent(ctx, eventID); ok {
		return event, nil
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	s.cache.SetEvent(ctx, event)
	return event, nil
}

// ListEvents returns every event, cache-aside.
func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.cachedList(ctx, cache.ViewAll, func(ctx context.Context) ([]domain.Event, error) {
		return s.events.ListEvents(ctx)
	})
}

// ListActiveEvents returns active events, cache-aside.
func (s *EventService) ListActiveEvents(ctx context.Context) ([]domain.Event, error) {
	return s.cachedList(ctx, cache.ViewActive, func(ctx context.Context) ([]domain.Event, error) {
		return s.events.ListActiveEvents(ctx)
	})
}

// ListUpcomingEvents returns events starting after today's date, cache-aside.
func (s *EventService) ListUpcomingEvents(ctx context.Context) ([]domain.Event, error) {
	return s.cachedList(ctx, cache.ViewUpcoming, func(ctx context.Context) ([]domain.Event, error) {
		return s.events.ListUpcomingEvents(ctx, s.clock())
	})
}

// ListOngoingEvents returns events whose window covers today's date, cache-aside.
func (s *EventService) ListOngoingEvents(ctx context.Context) ([]domain.Event, error) {
	return s.cachedList(ctx, cache.ViewOngoing, func(ctx context.Context) ([]domain.Event, error) {
		return s.events.ListOngoingEvents(ctx, s.clock())
	})
}

// ListPastEvents returns events that ended before today's date, cache-aside.
func (s *EventService) ListPastEvents(ctx context.Context) ([]domain.Event, error) {
	return s.cachedList(ctx, cache.ViewPast, func(ctx context.Context) ([]domain.Event, error) {
		return s.events.ListPastEvents(ctx, s.clock())
	})
}

// ListEventsByType returns events of one type, cache-aside.
func (s *EventService) ListEventsByType(ctx context.Context, eventType domain.EventType) ([]domain.Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event service is not configured")
	}
	if eventType == domain.EventTypeUnspecified {
		return nil, domain.ErrInvalidEventType
	}
	if events, ok := s.cache.CachedEventsByType(ctx, eventType); ok {
		return events, nil
	}

	events, err := s.events.ListEventsByType(ctx, eventType)
	if err != nil {
		return nil, err
	}
	s.cache.SetEventsByType(ctx, eventType, events)
	return events, nil
}

func (s *EventService) cachedList(ctx context.Context, view string, load func(context.Context) ([]domain.Event, error)) ([]domain.Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event service is not configured")
	}
	if events, ok := s.cache.CachedEventList(ctx, view); ok {
		return events, nil
	}

	events, err := load(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetEventList(ctx, view, events)
	return events, nil
}

// UpdateEvent applies a partial update to an event. Nil patch fields are left
// untouched; ancestry never changes. Admin only.
func (s *EventService) UpdateEvent(ctx context.Context, actingID, eventID string, patch domain.EventPatch) (domain.Event, error) {
	if s == nil || s.events == nil {
		return domain.Event{}, fmt.Errorf("event service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.Event{}, err
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}

	updated, err := patch.Apply(event, s.clock)
	if err != nil {
		return domain.Event{}, err
	}

	if err := s.events.UpdateEvent(ctx, updated); err != nil {
		return domain.Event{}, fmt.Errorf("persist event update: %w", err)
	}
	updated.Version = event.Version + 1

	s.cache.ExpireEventScope(ctx)
	return updated, nil
}

// ActivateEvent marks an event active. Admin only.
func (s *EventService) ActivateEvent(ctx context.Context, actingID, eventID string) (domain.Event, error) {
	return s.setActive(ctx, actingID, eventID, true)
}

// DeactivateEvent marks an event inactive. Events are deactivated rather than
// removed; only a subtree delete destroys records. Admin only.
func (s *EventService) DeactivateEvent(ctx context.Context, actingID, eventID string) (domain.Event, error) {
	return s.setActive(ctx, actingID, eventID, false)
}

func (s *EventService) setActive(ctx context.Context, actingID, eventID string, active bool) (domain.Event, error) {
	if s == nil || s.events == nil {
		return domain.Event{}, fmt.Errorf("event service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.Event{}, err
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if event.Active == active {
		return event, nil
	}

	event.Active = active
	event.UpdatedAt = s.clock().UTC()
	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return domain.Event{}, fmt.Errorf("persist event update: %w", err)
	}
	event.Version++

	s.cache.ExpireEventScope(ctx)
	return event, nil
}

// DeleteEventSubtree deletes an event and every descendant, children before
// parents, along with participant rows anchored at each removed node. Admin
// only.
//
// Traversal uses an explicit stack; trees are shallow but unbounded depth must
// not recurse.
func (s *EventService) DeleteEventSubtree(ctx context.Context, actingID, eventID string) error {
	if s == nil || s.events == nil || s.participants == nil {
		return fmt.Errorf("event service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return err
	}

	root, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}

	// Collect the subtree breadth-first, then delete in reverse so children
	// always go before their parent.
	ordered := []domain.Event{root}
	stack := []string{root.ID}
	for len(stack) > 0 {
		parentID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.events.ListChildEvents(ctx, parentID)
		if err != nil {
			return fmt.Errorf("list children of %s: %w", parentID, err)
		}
		for _, child := range children {
			ordered = append(ordered, child)
			stack = append(stack, child.ID)
		}
	}

	for i := len(ordered) - 1; i >= 0; i-- {
		node := ordered[i]
		if err := s.participants.DeleteParticipantsByEvent(ctx, node.ID); err != nil {
			return fmt.Errorf("delete participants of %s: %w", node.ID, err)
		}
		if err := s.events.DeleteEvent(ctx, node.ID); err != nil {
			return fmt.Errorf("delete event %s: %w", node.ID, err)
		}
	}

	s.cache.ExpireEventScope(ctx)
	s.cache.ExpireEventParticipants(ctx, root.RootID)
	return nil
}

func (s *EventService) requireAdmin(ctx context.Context, actingID string) error {
	if s.guard == nil {
		return fmt.Errorf("authorization guard is not configured")
	}
	ok, err := s.guard.IsAdmin(ctx, actingID)
	if err != nil {
		return fmt.Errorf("authorize %s: %w", actingID, err)
	}
	if !ok {
		return domain.ErrNotAuthorized
	}
	return nil
}
