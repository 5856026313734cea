package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SystemAppointer is the appointer identity recorded when an administrator is
// created by the system itself rather than another member.
const SystemAppointer = "SYSTEM"

var (
	// ErrEmptyRole indicates a missing administrator role label.
	ErrEmptyRole = errors.New("admin role is required")
	// ErrUserNotActive indicates an appointment target outside active status.
	ErrUserNotActive = errors.New("only active users can be appointed as admins")
)

// Admin marks a user as an administrator and carries appointment audit fields.
// There is at most one Admin record per user.
type Admin struct {
	ID                string
	UserID            string
	StudentID         string
	Role              string
	AppointedBy       string
	AppointmentReason string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateAdminInput describes the attributes needed to appoint an administrator.
type CreateAdminInput struct {
	Role              string
	AppointedBy       string
	AppointmentReason string
}

// CreateAdmin appoints the given user as an administrator.
func CreateAdmin(user User, input CreateAdminInput, now func() time.Time, idGenerator func() (string, error)) (Admin, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}

	input.Role = strings.TrimSpace(input.Role)
	if input.Role == "" {
		return Admin{}, ErrEmptyRole
	}
	if !user.IsActive() {
		return Admin{}, ErrUserNotActive
	}

	appointedBy := strings.TrimSpace(input.AppointedBy)
	if appointedBy == "" {
		appointedBy = SystemAppointer
	}

	adminID, err := idGenerator()
	if err != nil {
		return Admin{}, fmt.Errorf("generate admin id: %w", err)
	}

	createdAt := now().UTC()
	return Admin{
		ID:                adminID,
		UserID:            user.ID,
		StudentID:         user.StudentID,
		Role:              input.Role,
		AppointedBy:       appointedBy,
		AppointmentReason: strings.TrimSpace(input.AppointmentReason),
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}, nil
}
