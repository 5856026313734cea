package domain

import "errors"

// Registration and authorization errors shared across services. Lookup misses
// are reported with storage.ErrNotFound; everything here is a conflict or an
// authorization failure on state that does exist.
var (
	// ErrAlreadyRegistered indicates a duplicate (root event, user) registration.
	ErrAlreadyRegistered = errors.New("user is already registered for this event")
	// ErrCapacityExceeded indicates a registration attempt against a full tree.
	ErrCapacityExceeded = errors.New("event capacity exceeded")
	// ErrContentionExceeded indicates the bounded optimistic retry loop was exhausted.
	ErrContentionExceeded = errors.New("registration contention exceeded")
	// ErrNotRegistered indicates an unregister attempt without a matching registration.
	ErrNotRegistered = errors.New("user is not registered for this event")
	// ErrNotAuthorized indicates the acting identity may not perform the operation.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrUserNotEligible indicates a registration target outside active status.
	ErrUserNotEligible = errors.New("user is not eligible to register")
	// ErrAlreadyAdmin indicates an appointment target that is already an administrator.
	ErrAlreadyAdmin = errors.New("user is already an admin")
	// ErrDuplicateUser indicates a signup reusing a student id, email, or phone.
	ErrDuplicateUser = errors.New("user already exists")
)
