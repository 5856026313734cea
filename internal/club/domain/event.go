package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType classifies a club event.
type EventType int

const (
	// EventTypeUnspecified represents an invalid event type value.
	EventTypeUnspecified EventType = iota
	// EventTypeEnsembleStudy is a full-ensemble study session.
	EventTypeEnsembleStudy
	// EventTypeSessionStudy is a per-instrument study session.
	EventTypeSessionStudy
	// EventTypeEventApplication is a general sign-up event.
	EventTypeEventApplication
	// EventTypeEnsembleApplication is an ensemble slot sign-up.
	EventTypeEnsembleApplication
	// EventTypeSessionApplication is a session slot sign-up.
	EventTypeSessionApplication
	// EventTypeTimeslotApplication is a practice-room timeslot sign-up.
	EventTypeTimeslotApplication
	// EventTypeRegularConcert is a scheduled club performance.
	EventTypeRegularConcert
	// EventTypeExtra covers one-off events such as festivals or busking.
	EventTypeExtra
)

var eventTypeNames = map[EventType]string{
	EventTypeEnsembleStudy:       "ensemble_study",
	EventTypeSessionStudy:        "session_study",
	EventTypeEventApplication:    "event_application",
	EventTypeEnsembleApplication: "ensemble_application",
	EventTypeSessionApplication:  "session_application",
	EventTypeTimeslotApplication: "timeslot_application",
	EventTypeRegularConcert:      "regular_concert",
	EventTypeExtra:               "extra_event",
}

// String returns the wire name for an event type.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unspecified"
}

// EventTypeFromString parses a wire name into an EventType.
func EventTypeFromString(value string) (EventType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for t, name := range eventTypeNames {
		if name == value {
			return t, nil
		}
	}
	return EventTypeUnspecified, fmt.Errorf("%w: %q", ErrInvalidEventType, value)
}

var (
	// ErrEmptyTitle indicates a missing event title.
	ErrEmptyTitle = errors.New("event title is required")
	// ErrInvalidEventType indicates a missing or unknown event type.
	ErrInvalidEventType = errors.New("event type is invalid")
	// ErrInvalidEventWindow indicates an event window that ends before it starts.
	ErrInvalidEventWindow = errors.New("event end must not precede start")
	// ErrNegativeCapacity indicates a negative participant ceiling.
	ErrNegativeCapacity = errors.New("max participants must not be negative")
	// ErrParentInactiveTree indicates a parent whose ancestry fields are inconsistent.
	ErrParentInactiveTree = errors.New("parent event ancestry is inconsistent")
)

// Event represents one node in a club event tree.
//
// RootID equals ID exactly when ParentID is empty. Depth is the distance from
// the root. MaxParticipants and CurrentParticipants are meaningful only on the
// root of a tree; a zero MaxParticipants means no ceiling. Version is a
// monotonic token used for optimistic concurrency on counter updates.
type Event struct {
	ID                  string
	Title               string
	Description         string
	Type                EventType
	StartAt             time.Time
	EndAt               time.Time
	ParentID            string
	RootID              string
	Depth               int
	MaxParticipants     int
	CurrentParticipants int
	Active              bool
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Version             int64
}

// IsRoot reports whether the event is the root of its tree.
func (e Event) IsRoot() bool {
	return e.ParentID == ""
}

// HasCeiling reports whether a participant ceiling is enforced on this event.
func (e Event) HasCeiling() bool {
	return e.MaxParticipants > 0
}

// IsFull reports whether the event has no remaining shared capacity.
// Only meaningful on root events.
func (e Event) IsFull() bool {
	return e.HasCeiling() && e.CurrentParticipants >= e.MaxParticipants
}

// dateOf strips time-of-day before comparison. Event windows are classified
// at calendar-date granularity.
func dateOf(value time.Time) time.Time {
	y, m, d := value.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsUpcoming reports whether the event starts on a later calendar date than now.
func (e Event) IsUpcoming(now time.Time) bool {
	return dateOf(e.StartAt).After(dateOf(now))
}

// IsOngoing reports whether now's calendar date falls inside the event window.
func (e Event) IsOngoing(now time.Time) bool {
	today := dateOf(now)
	return !dateOf(e.StartAt).After(today) && !dateOf(e.EndAt).Before(today)
}

// IsPast reports whether the event ended on an earlier calendar date than now.
func (e Event) IsPast(now time.Time) bool {
	return dateOf(e.EndAt).Before(dateOf(now))
}

// CreateEventInput describes the attributes needed to create an event.
type CreateEventInput struct {
	Title           string
	Description     string
	Type            EventType
	StartAt         time.Time
	EndAt           time.Time
	MaxParticipants int
}

// CreateEvent creates a new event with a generated ID and timestamps.
//
// When parent is non-nil the new event joins the parent's tree: its root is the
// parent's root and its depth is the parent's depth plus one. Ancestry is fixed
// here and never re-derived; partial updates cannot move an event to another
// tree, which keeps parent links acyclic by construction.
func CreateEvent(input CreateEventInput, parent *Event, createdBy string, now func() time.Time, idGenerator func() (string, error)) (Event, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}

	normalized, err := NormalizeCreateEventInput(input)
	if err != nil {
		return Event{}, err
	}

	eventID, err := idGenerator()
	if err != nil {
		return Event{}, fmt.Errorf("generate event id: %w", err)
	}

	event := Event{
		ID:              eventID,
		Title:           normalized.Title,
		Description:     normalized.Description,
		Type:            normalized.Type,
		StartAt:         normalized.StartAt.UTC(),
		EndAt:           normalized.EndAt.UTC(),
		RootID:          eventID,
		Depth:           0,
		MaxParticipants: normalized.MaxParticipants,
		Active:          true,
		CreatedBy:       strings.TrimSpace(createdBy),
		Version:         1,
	}

	if parent != nil {
		if parent.ID == "" || parent.RootID == "" || parent.Depth < 0 {
			return Event{}, ErrParentInactiveTree
		}
		if parent.IsRoot() && parent.RootID != parent.ID {
			return Event{}, ErrParentInactiveTree
		}
		event.ParentID = parent.ID
		event.RootID = parent.RootID
		event.Depth = parent.Depth + 1
	}

	createdAt := now().UTC()
	event.CreatedAt = createdAt
	event.UpdatedAt = createdAt
	return event, nil
}

// NormalizeCreateEventInput trims and validates event input attributes.
func NormalizeCreateEventInput(input CreateEventInput) (CreateEventInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return CreateEventInput{}, ErrEmptyTitle
	}
	if input.Type == EventTypeUnspecified {
		return CreateEventInput{}, ErrInvalidEventType
	}
	if input.StartAt.IsZero() || input.EndAt.IsZero() || input.EndAt.Before(input.StartAt) {
		return CreateEventInput{}, ErrInvalidEventWindow
	}
	if input.MaxParticipants < 0 {
		return CreateEventInput{}, ErrNegativeCapacity
	}
	input.Description = strings.TrimSpace(input.Description)
	return input, nil
}

// EventPatch carries optional event fields for a partial update. Nil fields are
// left untouched. Ancestry fields are deliberately absent.
type EventPatch struct {
	Title           *string
	Description     *string
	Type            *EventType
	StartAt         *time.Time
	EndAt           *time.Time
	MaxParticipants *int
}

// Apply merges non-nil patch fields into the event and validates the result.
func (p EventPatch) Apply(event Event, now func() time.Time) (Event, error) {
	if now == nil {
		now = time.Now
	}
	if p.Title != nil {
		event.Title = strings.TrimSpace(*p.Title)
		if event.Title == "" {
			return Event{}, ErrEmptyTitle
		}
	}
	if p.Description != nil {
		event.Description = strings.TrimSpace(*p.Description)
	}
	if p.Type != nil {
		if *p.Type == EventTypeUnspecified {
			return Event{}, ErrInvalidEventType
		}
		event.Type = *p.Type
	}
	if p.StartAt != nil {
		event.StartAt = p.StartAt.UTC()
	}
	if p.EndAt != nil {
		event.EndAt = p.EndAt.UTC()
	}
	if event.EndAt.Before(event.StartAt) {
		return Event{}, ErrInvalidEventWindow
	}
	if p.MaxParticipants != nil {
		if *p.MaxParticipants < 0 {
			return Event{}, ErrNegativeCapacity
		}
		event.MaxParticipants = *p.MaxParticipants
	}
	event.UpdatedAt = now().UTC()
	return event, nil
}
