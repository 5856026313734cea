package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/auth"
	"github.com/greenroomhq/greenroom/internal/club/cache"
	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// UserService manages club members and their status lifecycle.
type UserService struct {
	users        storage.UserStore
	participants storage.ParticipantStore
	events       storage.EventStore
	cache        *cache.Cache
	guard        auth.Guard
	clock        func() time.Time
	idGenerator  func() (string, error)
}

// NewUserService creates a UserService with default clock and ID generator.
func NewUserService(users storage.UserStore, participants storage.ParticipantStore, events storage.EventStore, cacheLayer *cache.Cache, guard auth.Guard) *UserService {
	return &UserService{
		users:        users,
		participants: participants,
		events:       events,
		cache:        cacheLayer,
		guard:        guard,
		clock:        time.Now,
		idGenerator:  domain.NewID,
	}
}

// CreateUser registers a new member in pending status. Student ID, email, and
// phone must all be unused.
func (s *UserService) CreateUser(ctx context.Context, input domain.CreateUserInput) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, fmt.Errorf("user service is not configured")
	}

	user, err := domain.CreateUser(input, s.clock, s.idGenerator)
	if err != nil {
		return domain.User{}, err
	}

	exists, err := s.users.UserExists(ctx, user.StudentID, user.Email, user.Phone)
	if err != nil {
		return domain.User{}, fmt.Errorf("check user exists: %w", err)
	}
	if exists {
		return domain.User{}, domain.ErrDuplicateUser
	}

	if err := s.users.PutUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return domain.User{}, domain.ErrDuplicateUser
		}
		return domain.User{}, fmt.Errorf("persist user: %w", err)
	}

	s.cache.ExpireUser(ctx, user.StudentID)
	return user, nil
}

// GetUser returns one member by student identity, cache-aside.
func (s *UserService) GetUser(ctx context.Context, studentID string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, fmt.Errorf("user service is not configured")
	}
	if user, ok := s.cache.CachedUser(ctx, studentID); ok {
		return user, nil
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return domain.User{}, err
	}
	s.cache.SetUser(ctx, user)
	return user, nil
}

// ListActiveUsers returns members in active status.
func (s *UserService) ListActiveUsers(ctx context.Context) ([]domain.User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user service is not configured")
	}
	return s.users.ListUsersByStatus(ctx, domain.UserStatusActive)
}

// ListPendingUsers returns members awaiting approval. Admin only.
func (s *UserService) ListPendingUsers(ctx context.Context, actingID string) ([]domain.User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return nil, err
	}
	return s.users.ListUsersByStatus(ctx, domain.UserStatusPending)
}

// UpdateUserInput carries optional member fields for a partial update. Nil
// fields are left untouched.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Phone    *string
	Batch    *int
	Session  *domain.SessionType
}

// UpdateUser applies a partial update to a member's profile fields. A changed
// email or phone must not already belong to another member.
func (s *UserService) UpdateUser(ctx context.Context, actingID, studentID string, input UpdateUserInput) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, fmt.Errorf("user service is not configured")
	}
	if err := s.authorizeSelfOrAdmin(ctx, actingID, studentID); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return domain.User{}, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return domain.User{}, domain.ErrEmptyUsername
		}
		user.Username = username
	}
	var newEmail, newPhone string
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			newEmail = email
		}
		user.Email = email
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != user.Phone {
			newPhone = phone
		}
		user.Phone = phone
	}
	if input.Batch != nil {
		user.Batch = *input.Batch
	}
	if input.Session != nil {
		if *input.Session == domain.SessionUnspecified {
			return domain.User{}, domain.ErrInvalidSession
		}
		user.Session = *input.Session
	}
	user.UpdatedAt = s.clock().UTC()

	if newEmail != "" || newPhone != "" {
		taken, err := s.users.UserExists(ctx, "", newEmail, newPhone)
		if err != nil {
			return domain.User{}, fmt.Errorf("check user exists: %w", err)
		}
		if taken {
			return domain.User{}, domain.ErrDuplicateUser
		}
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return domain.User{}, domain.ErrDuplicateUser
		}
		return domain.User{}, fmt.Errorf("persist user update: %w", err)
	}

	s.cache.ExpireUser(ctx, user.StudentID)
	return user, nil
}

// ApproveUser accepts a pending signup. Admin only.
func (s *UserService) ApproveUser(ctx context.Context, actingID, studentID string) (domain.User, error) {
	return s.applyStatusAction(ctx, actingID, studentID, domain.StatusActionApprove)
}

// RejectUser declines a pending signup. Admin only.
func (s *UserService) RejectUser(ctx context.Context, actingID, studentID string) (domain.User, error) {
	return s.applyStatusAction(ctx, actingID, studentID, domain.StatusActionReject)
}

func (s *UserService) applyStatusAction(ctx context.Context, actingID, studentID string, action domain.StatusAction) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, fmt.Errorf("user service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return domain.User{}, err
	}

	updated, err := user.ApplyStatusAction(action, s.clock)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.users.UpdateUser(ctx, updated); err != nil {
		return domain.User{}, fmt.Errorf("persist status change: %w", err)
	}

	s.cache.ExpireUser(ctx, studentID)
	return updated, nil
}

// StatusFailure records one identity a batch status update could not apply to.
type StatusFailure struct {
	StudentID string
	Reason    string
}

// StatusBatchResult summarizes a batch status update.
type StatusBatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Successes []string
	Failures  []StatusFailure
}

// UpdateUserStatuses applies a status action to a batch of members. Admin
// only. Each identity is evaluated independently: unknown identities and
// invalid transitions are recorded as failures and the batch continues. The
// member cache is evicted once, after the batch. An optional reason is
// recorded in the audit log.
func (s *UserService) UpdateUserStatuses(ctx context.Context, actingID string, studentIDs []string, action domain.StatusAction, reason string) (StatusBatchResult, error) {
	if s == nil || s.users == nil {
		return StatusBatchResult{}, fmt.Errorf("user service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return StatusBatchResult{}, err
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		log.Printf("batch status update actor=%s action=%s reason=%q targets=%d", actingID, action, reason, len(studentIDs))
	}

	result := StatusBatchResult{Total: len(studentIDs)}
	if len(studentIDs) == 0 {
		return result, nil
	}

	users, err := s.users.ListUsersByStudentIDs(ctx, studentIDs)
	if err != nil {
		return StatusBatchResult{}, fmt.Errorf("load batch users: %w", err)
	}
	byStudentID := make(map[string]domain.User, len(users))
	for _, user := range users {
		byStudentID[user.StudentID] = user
	}

	for _, studentID := range studentIDs {
		user, ok := byStudentID[strings.TrimSpace(studentID)]
		if !ok {
			result.Failed++
			result.Failures = append(result.Failures, StatusFailure{StudentID: studentID, Reason: "user not found"})
			continue
		}

		updated, err := user.ApplyStatusAction(action, s.clock)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, StatusFailure{StudentID: user.StudentID, Reason: err.Error()})
			continue
		}
		if err := s.users.UpdateUser(ctx, updated); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, StatusFailure{StudentID: user.StudentID, Reason: err.Error()})
			continue
		}

		result.Succeeded++
		result.Successes = append(result.Successes, user.StudentID)
	}

	s.cache.ExpireUserScope(ctx)
	return result, nil
}

// SoftDeleteUser marks a member as deleted. The record survives until the
// retention sweep removes it. Self or admin.
func (s *UserService) SoftDeleteUser(ctx context.Context, actingID, studentID string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, fmt.Errorf("user service is not configured")
	}
	if err := s.authorizeSelfOrAdmin(ctx, actingID, studentID); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Status == domain.UserStatusDeleted {
		return user, nil
	}

	timestamp := s.clock().UTC()
	user.Status = domain.UserStatusDeleted
	user.StatusChangedAt = timestamp
	user.UpdatedAt = timestamp
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("persist soft delete: %w", err)
	}

	s.cache.ExpireUser(ctx, studentID)
	return user, nil
}

// ReviveUser restores a soft-deleted member to pending status. Admin only.
func (s *UserService) ReviveUser(ctx context.Context, actingID, studentID string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, fmt.Errorf("user service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Status != domain.UserStatusDeleted {
		return domain.User{}, domain.ErrUserNotDeleted
	}

	timestamp := s.clock().UTC()
	user.Status = domain.UserStatusPending
	user.StatusChangedAt = timestamp
	user.UpdatedAt = timestamp
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("persist revive: %w", err)
	}

	s.cache.ExpireUser(ctx, studentID)
	return user, nil
}

// HardDeleteExpired permanently removes soft-deleted members whose retention
// window has elapsed, along with their registrations. Returns how many were
// removed.
func (s *UserService) HardDeleteExpired(ctx context.Context) (int, error) {
	if s == nil || s.users == nil {
		return 0, fmt.Errorf("user service is not configured")
	}

	deleted, err := s.users.ListUsersByStatus(ctx, domain.UserStatusDeleted)
	if err != nil {
		return 0, fmt.Errorf("list deleted users: %w", err)
	}

	now := s.clock().UTC()
	removed := 0
	for _, user := range deleted {
		if !user.CanBeHardDeleted(now) {
			continue
		}

		if s.participants != nil {
			registrations, err := s.participants.ListParticipantsByUser(ctx, user.ID)
			if err != nil {
				log.Printf("cleanup list registrations user_id=%s err=%v", user.ID, err)
				continue
			}
			for _, registration := range registrations {
				if err := s.releaseRegistration(ctx, registration); err != nil {
					log.Printf("cleanup release slot event_id=%s user_id=%s err=%v", registration.EventID, user.ID, err)
				}
				if err := s.participants.DeleteParticipant(ctx, registration.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
					log.Printf("cleanup delete registration id=%s err=%v", registration.ID, err)
				}
			}
		}

		if err := s.users.DeleteUser(ctx, user.ID); err != nil {
			log.Printf("cleanup delete user user_id=%s err=%v", user.ID, err)
			continue
		}
		s.cache.ExpireUser(ctx, user.StudentID)
		removed++
	}

	return removed, nil
}

// releaseRegistration returns a purged member's slot to the root's shared
// counter under the same version guard as registration. A missing root means
// the tree is already gone and there is nothing to release.
func (s *UserService) releaseRegistration(ctx context.Context, registration domain.Participant) error {
	if s.events == nil {
		return nil
	}

	root, err := s.events.GetEvent(ctx, registration.EventID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read root %s: %w", registration.EventID, err)
	}

	for attempt := 0; ; attempt++ {
		if attempt >= maxRegisterAttempts {
			return domain.ErrContentionExceeded
		}

		next := root.CurrentParticipants - 1
		if next < 0 {
			next = 0
		}

		err := s.events.UpdateParticipantCount(ctx, root.ID, next, root.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return fmt.Errorf("decrement participants: %w", err)
		}

		root, err = s.events.GetEvent(ctx, root.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("re-read root %s: %w", root.ID, err)
		}
	}
}

func (s *UserService) requireAdmin(ctx context.Context, actingID string) error {
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

func (s *UserService) authorizeSelfOrAdmin(ctx context.Context, actingID, studentID string) error {
	if auth.IdentityMatches(actingID, studentID) {
		return nil
	}
	return s.requireAdmin(ctx, actingID)
}
