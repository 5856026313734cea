package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserStatus is a user's position in the membership lifecycle.
type UserStatus int

const (
	// UserStatusUnspecified represents an invalid status value.
	UserStatusUnspecified UserStatus = iota
	// UserStatusPending marks a signup awaiting approval.
	UserStatusPending
	// UserStatusActive marks a member in good standing.
	UserStatusActive
	// UserStatusInactive marks a member on leave (graduation, military service).
	UserStatusInactive
	// UserStatusRejected marks a signup that was declined.
	UserStatusRejected
	// UserStatusSuspended marks a member suspended by an administrator.
	UserStatusSuspended
	// UserStatusDeleted marks a withdrawn member whose record is retained.
	UserStatusDeleted
)

var userStatusNames = map[UserStatus]string{
	UserStatusPending:   "pending",
	UserStatusActive:    "active",
	UserStatusInactive:  "inactive",
	UserStatusRejected:  "rejected",
	UserStatusSuspended: "suspended",
	UserStatusDeleted:   "deleted",
}

// String returns the wire name for a user status.
func (s UserStatus) String() string {
	if name, ok := userStatusNames[s]; ok {
		return name
	}
	return "unspecified"
}

// UserStatusFromString parses a wire name into a UserStatus.
func UserStatusFromString(value string) (UserStatus, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for s, name := range userStatusNames {
		if name == value {
			return s, nil
		}
	}
	return UserStatusUnspecified, fmt.Errorf("unknown user status %q", value)
}

// SessionType is the instrument section a member belongs to.
type SessionType int

const (
	// SessionUnspecified represents an invalid session value.
	SessionUnspecified SessionType = iota
	// SessionVocal is the vocal section.
	SessionVocal
	// SessionGuitar is the guitar section.
	SessionGuitar
	// SessionBass is the bass section.
	SessionBass
	// SessionKeyboard is the keyboard section.
	SessionKeyboard
	// SessionDrums is the drum section.
	SessionDrums
)

var sessionTypeNames = map[SessionType]string{
	SessionVocal:    "vocal",
	SessionGuitar:   "guitar",
	SessionBass:     "bass",
	SessionKeyboard: "keyboard",
	SessionDrums:    "drums",
}

// String returns the wire name for a session type.
func (s SessionType) String() string {
	if name, ok := sessionTypeNames[s]; ok {
		return name
	}
	return "unspecified"
}

// SessionTypeFromString parses a wire name into a SessionType.
func SessionTypeFromString(value string) (SessionType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for s, name := range sessionTypeNames {
		if name == value {
			return s, nil
		}
	}
	return SessionUnspecified, fmt.Errorf("unknown session type %q", value)
}

// StatusAction is a request to move a user through the status lifecycle.
type StatusAction int

const (
	// StatusActionUnspecified represents an invalid action value.
	StatusActionUnspecified StatusAction = iota
	// StatusActionApprove accepts a pending signup.
	StatusActionApprove
	// StatusActionReject declines a pending signup.
	StatusActionReject
	// StatusActionActivate restores an inactive or suspended member.
	StatusActionActivate
	// StatusActionDeactivate places an active member on leave.
	StatusActionDeactivate
	// StatusActionSuspend suspends an active or inactive member.
	StatusActionSuspend
)

var statusActionNames = map[StatusAction]string{
	StatusActionApprove:    "approve",
	StatusActionReject:     "reject",
	StatusActionActivate:   "activate",
	StatusActionDeactivate: "deactivate",
	StatusActionSuspend:    "suspend",
}

// String returns the wire name for a status action.
func (a StatusAction) String() string {
	if name, ok := statusActionNames[a]; ok {
		return name
	}
	return "unspecified"
}

// StatusActionFromString parses a wire name into a StatusAction.
func StatusActionFromString(value string) (StatusAction, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for a, name := range statusActionNames {
		if name == value {
			return a, nil
		}
	}
	return StatusActionUnspecified, fmt.Errorf("unknown status action %q", value)
}

// statusTransition is one row of the lifecycle transition table.
type statusTransition struct {
	from []UserStatus
	to   UserStatus
}

// statusTransitions is the full transition table. An action requested from a
// status not listed for it is rejected with InvalidTransitionError.
var statusTransitions = map[StatusAction]statusTransition{
	StatusActionApprove:    {from: []UserStatus{UserStatusPending}, to: UserStatusActive},
	StatusActionReject:     {from: []UserStatus{UserStatusPending}, to: UserStatusRejected},
	StatusActionActivate:   {from: []UserStatus{UserStatusInactive, UserStatusSuspended}, to: UserStatusActive},
	StatusActionDeactivate: {from: []UserStatus{UserStatusActive}, to: UserStatusInactive},
	StatusActionSuspend:    {from: []UserStatus{UserStatusActive, UserStatusInactive}, to: UserStatusSuspended},
}

// InvalidTransitionError reports a status action requested from a state the
// transition table does not allow it in.
type InvalidTransitionError struct {
	StudentID string
	Action    StatusAction
	Status    UserStatus
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s user %s in status %s", e.Action, e.StudentID, e.Status)
}

var (
	// ErrEmptyStudentID indicates a missing student identity.
	ErrEmptyStudentID = errors.New("student id is required")
	// ErrEmptyUsername indicates a missing user name.
	ErrEmptyUsername = errors.New("username is required")
	// ErrInvalidSession indicates a missing or unknown session type.
	ErrInvalidSession = errors.New("session type is invalid")
	// ErrUserNotDeleted indicates a revive attempt on a user that is not soft-deleted.
	ErrUserNotDeleted = errors.New("only deleted users can be revived")
)

// User represents a club member.
type User struct {
	ID              string
	StudentID       string
	Username        string
	Email           string
	Phone           string
	Batch           int
	Session         SessionType
	Status          UserStatus
	StatusChangedAt time.Time
	LastLoginAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive reports whether the user is eligible to register for events.
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}

// ApplyStatusAction moves the user through the transition table.
//
// The returned user carries the resulting status; the receiver is unchanged.
// Actions requested from a status outside the table fail with
// *InvalidTransitionError carrying the offending identity and current status.
func (u User) ApplyStatusAction(action StatusAction, now func() time.Time) (User, error) {
	if now == nil {
		now = time.Now
	}
	transition, ok := statusTransitions[action]
	if !ok {
		return User{}, &InvalidTransitionError{StudentID: u.StudentID, Action: action, Status: u.Status}
	}
	for _, from := range transition.from {
		if u.Status == from {
			u.Status = transition.to
			timestamp := now().UTC()
			u.StatusChangedAt = timestamp
			u.UpdatedAt = timestamp
			return u, nil
		}
	}
	return User{}, &InvalidTransitionError{StudentID: u.StudentID, Action: action, Status: u.Status}
}

// HardDeleteRetention is how long a soft-deleted user record is kept before the
// cleanup sweep may remove it permanently.
const HardDeleteRetention = 6 * 30 * 24 * time.Hour

// CanBeHardDeleted reports whether the retention window for a soft-deleted
// user has elapsed.
func (u User) CanBeHardDeleted(now time.Time) bool {
	return u.Status == UserStatusDeleted && u.StatusChangedAt.Add(HardDeleteRetention).Before(now)
}

// CreateUserInput describes the attributes needed to create a user.
type CreateUserInput struct {
	StudentID string
	Username  string
	Email     string
	Phone     string
	Batch     int
	Session   SessionType
}

// CreateUser creates a new pending user with a generated ID and timestamps.
func CreateUser(input CreateUserInput, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}

	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:              userID,
		StudentID:       normalized.StudentID,
		Username:        normalized.Username,
		Email:           normalized.Email,
		Phone:           normalized.Phone,
		Batch:           normalized.Batch,
		Session:         normalized.Session,
		Status:          UserStatusPending,
		StatusChangedAt: createdAt,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// NormalizeCreateUserInput trims and validates user input attributes.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	input.StudentID = strings.TrimSpace(input.StudentID)
	if input.StudentID == "" {
		return CreateUserInput{}, ErrEmptyStudentID
	}
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return CreateUserInput{}, ErrEmptyUsername
	}
	if input.Session == SessionUnspecified {
		return CreateUserInput{}, ErrInvalidSession
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	return input, nil
}
