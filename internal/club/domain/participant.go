package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyEventID indicates a participant without an anchoring event.
	ErrEmptyEventID = errors.New("event id is required")
	// ErrEmptyUserID indicates a participant without a user.
	ErrEmptyUserID = errors.New("user id is required")
)

// Participant records one user's registration in one event tree.
//
// EventID always references the tree root, never the descendant the caller
// registered through. At most one participant row exists per (root, user).
type Participant struct {
	ID        string
	EventID   string
	UserID    string
	AppliedAt time.Time
	CreatedAt time.Time
}

// CreateParticipant creates a participant row anchored at rootEventID.
func CreateParticipant(rootEventID, userID string, now func() time.Time, idGenerator func() (string, error)) (Participant, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}
	if rootEventID == "" {
		return Participant{}, ErrEmptyEventID
	}
	if userID == "" {
		return Participant{}, ErrEmptyUserID
	}

	participantID, err := idGenerator()
	if err != nil {
		return Participant{}, fmt.Errorf("generate participant id: %w", err)
	}

	createdAt := now().UTC()
	return Participant{
		ID:        participantID,
		EventID:   rootEventID,
		UserID:    userID,
		AppliedAt: createdAt,
		CreatedAt: createdAt,
	}, nil
}
