package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/auth"
	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

func newUserService(store *memoryStore) *UserService {
	cacheLayer := testCache(store)
	service := NewUserService(store, store, store, cacheLayer, auth.NewStoreGuard(store, cacheLayer))
	service.clock = testClock()
	service.idGenerator = sequenceIDs("user")
	return service
}

func TestCreateUserStartsPending(t *testing.T) {
	store := newMemoryStore()
	service := newUserService(store)

	user, err := service.CreateUser(context.Background(), domain.CreateUserInput{
		StudentID: "20260001",
		Username:  "Dana",
		Email:     "Dana@Club.Example",
		Session:   domain.SessionDrums,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Status != domain.UserStatusPending {
		t.Fatalf("expected pending, got %s", user.Status)
	}
	if user.Email != "dana@club.example" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newMemoryStore()
	existing := seedActiveUser(store, "user-1", "20260001")
	existing.Email = "dana@club.example"
	existing.Phone = "010-1111-2222"
	store.users["user-1"] = existing
	service := newUserService(store)
	ctx := context.Background()

	tests := []struct {
		name  string
		input domain.CreateUserInput
	}{
		{name: "student id", input: domain.CreateUserInput{StudentID: "20260001", Username: "X", Session: domain.SessionBass}},
		{name: "email", input: domain.CreateUserInput{StudentID: "20269999", Username: "X", Email: "dana@club.example", Session: domain.SessionBass}},
		{name: "phone", input: domain.CreateUserInput{StudentID: "20269999", Username: "X", Phone: "010-1111-2222", Session: domain.SessionBass}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateUser(ctx, tc.input); !errors.Is(err, domain.ErrDuplicateUser) {
				t.Fatalf("expected ErrDuplicateUser, got %v", err)
			}
		})
	}
}

func TestApproveUser(t *testing.T) {
	store := newMemoryStore()
	actingID := adminIdentity(store)
	pending := seedActiveUser(store, "user-1", "20260001")
	pending.Status = domain.UserStatusPending
	store.users["user-1"] = pending
	service := newUserService(store)

	user, err := service.ApproveUser(context.Background(), actingID, "20260001")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if user.Status != domain.UserStatusActive {
		t.Fatalf("expected active, got %s", user.Status)
	}
}

func TestApproveUserRequiresAdmin(t *testing.T) {
	store := newMemoryStore()
	pending := seedActiveUser(store, "user-1", "20260001")
	pending.Status = domain.UserStatusPending
	store.users["user-1"] = pending
	service := newUserService(store)

	if _, err := service.ApproveUser(context.Background(), "20260001", "20260001"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestApproveUserInvalidTransition(t *testing.T) {
	store := newMemoryStore()
	actingID := adminIdentity(store)
	seedActiveUser(store, "user-1", "20260001")
	service := newUserService(store)

	_, err := service.ApproveUser(context.Background(), actingID, "20260001")
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.Status != domain.UserStatusActive {
		t.Fatalf("expected current status in error, got %s", transitionErr.Status)
	}
}

func TestUpdateUserPartial(t *testing.T) {
	store := newMemoryStore()
	seedActiveUser(store, "user-1", "20260001")
	service := newUserService(store)

	username := "New Name"
	session := domain.SessionKeyboard
	user, err := service.UpdateUser(context.Background(), "20260001", "20260001", UpdateUserInput{
		Username: &username,
		Session:  &session,
	})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if user.Username != username || user.Session != session {
		t.Fatalf("unexpected update: %+v", user)
	}
}

func TestUpdateUserForbiddenForOthers(t *testing.T) {
	store := newMemoryStore()
	seedActiveUser(store, "user-1", "20260001")
	seedActiveUser(store, "user-2", "20260002")
	service := newUserService(store)

	username := "Hijack"
	_, err := service.UpdateUser(context.Background(), "20260002", "20260001", UpdateUserInput{Username: &username})
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestUpdateUserStatusesBatch(t *testing.T) {
	store := newMemoryStore()
	actingID := adminIdentity(store)
	for _, studentID := range []string{"20260001", "20260002", "20260003"} {
		pending := seedActiveUser(store, "user-"+studentID, studentID)
		pending.Status = domain.UserStatusPending
		store.users["user-"+studentID] = pending
	}
	// Already active: approve is an invalid transition for this one.
	seedActiveUser(store, "user-20260004", "20260004")
	service := newUserService(store)

	result, err := service.UpdateUserStatuses(
		context.Background(),
		actingID,
		[]string{"20260001", "20260002", "20260003", "20260004", "20269999"},
		domain.StatusActionApprove,
		"spring intake",
	)
	if err != nil {
		t.Fatalf("batch update: %v", err)
	}

	if result.Total != 5 {
		t.Fatalf("expected total 5, got %d", result.Total)
	}
	if result.Succeeded != 3 || len(result.Successes) != 3 {
		t.Fatalf("expected 3 successes, got %d (%v)", result.Succeeded, result.Successes)
	}
	if result.Failed != 2 || len(result.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d (%v)", result.Failed, result.Failures)
	}

	for _, studentID := range []string{"20260001", "20260002", "20260003"} {
		user, err := store.GetUserByStudentID(context.Background(), studentID)
		if err != nil {
			t.Fatalf("get %s: %v", studentID, err)
		}
		if user.Status != domain.UserStatusActive {
			t.Fatalf("expected %s active, got %s", studentID, user.Status)
		}
	}
}

func TestUpdateUserStatusesRequiresAdmin(t *testing.T) {
	store := newMemoryStore()
	seedActiveUser(store, "user-1", "20260001")
	service := newUserService(store)

	_, err := service.UpdateUserStatuses(context.Background(), "20260001", []string{"20260001"}, domain.StatusActionSuspend, "")
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSoftDeleteAndRevive(t *testing.T) {
	store := newMemoryStore()
	actingID := adminIdentity(store)
	seedActiveUser(store, "user-1", "20260001")
	service := newUserService(store)
	ctx := context.Background()

	user, err := service.SoftDeleteUser(ctx, "20260001", "20260001")
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if user.Status != domain.UserStatusDeleted {
		t.Fatalf("expected deleted, got %s", user.Status)
	}

	user, err = service.ReviveUser(ctx, actingID, "20260001")
	if err != nil {
		t.Fatalf("revive: %v", err)
	}
	if user.Status != domain.UserStatusPending {
		t.Fatalf("expected pending after revive, got %s", user.Status)
	}

	// Reviving a non-deleted user fails.
	if _, err := service.ReviveUser(ctx, actingID, "20260001"); !errors.Is(err, domain.ErrUserNotDeleted) {
		t.Fatalf("expected ErrUserNotDeleted, got %v", err)
	}
}

func TestHardDeleteExpired(t *testing.T) {
	store := newMemoryStore()
	now := testClock()()

	expired := seedActiveUser(store, "user-1", "20260001")
	expired.Status = domain.UserStatusDeleted
	expired.StatusChangedAt = now.Add(-domain.HardDeleteRetention - time.Hour)
	store.users["user-1"] = expired
	store.participants["reg-1"] = domain.Participant{ID: "reg-1", EventID: "root-1", UserID: "user-1"}

	recent := seedActiveUser(store, "user-2", "20260002")
	recent.Status = domain.UserStatusDeleted
	recent.StatusChangedAt = now.Add(-time.Hour)
	store.users["user-2"] = recent

	seedActiveUser(store, "user-3", "20260003")

	service := newUserService(store)
	removed, err := service.HardDeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}

	if _, err := store.GetUserByStudentID(context.Background(), "20260001"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected expired user removed, got %v", err)
	}
	if _, ok := store.participants["reg-1"]; ok {
		t.Fatal("expected expired user's registrations removed")
	}
	if _, err := store.GetUserByStudentID(context.Background(), "20260002"); err != nil {
		t.Fatalf("expected recent deleted user kept: %v", err)
	}
	if _, err := store.GetUserByStudentID(context.Background(), "20260003"); err != nil {
		t.Fatalf("expected active user kept: %v", err)
	}
}

func TestHardDeleteExpiredReleasesSlots(t *testing.T) {
	store := newMemoryStore()
	now := testClock()()

	root := seedRootEvent(store, "root-1", 10)
	root.CurrentParticipants = 2
	root.Version = 3
	store.events["root-1"] = root

	expired := seedActiveUser(store, "user-1", "20260001")
	expired.Status = domain.UserStatusDeleted
	expired.StatusChangedAt = now.Add(-domain.HardDeleteRetention - time.Hour)
	store.users["user-1"] = expired
	store.participants["reg-1"] = domain.Participant{ID: "reg-1", EventID: "root-1", UserID: "user-1"}

	seedActiveUser(store, "user-2", "20260002")
	store.participants["reg-2"] = domain.Participant{ID: "reg-2", EventID: "root-1", UserID: "user-2"}

	service := newUserService(store)
	removed, err := service.HardDeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}

	updated, _ := store.GetEvent(context.Background(), "root-1")
	if updated.CurrentParticipants != 1 {
		t.Fatalf("expected counter released to 1, got %d", updated.CurrentParticipants)
	}
	if updated.Version != 4 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}
	if _, ok := store.participants["reg-1"]; ok {
		t.Fatal("expected expired user's registration removed")
	}
	if _, ok := store.participants["reg-2"]; !ok {
		t.Fatal("expected live registration kept")
	}
}

func TestUpdateUserDuplicateContact(t *testing.T) {
	store := newMemoryStore()
	other := seedActiveUser(store, "user-1", "20260001")
	other.Email = "dana@club.example"
	other.Phone = "010-1111-2222"
	store.users["user-1"] = other
	target := seedActiveUser(store, "user-2", "20260002")
	target.Email = "evan@club.example"
	target.Phone = "010-3333-4444"
	store.users["user-2"] = target
	service := newUserService(store)
	ctx := context.Background()

	takenEmail := "Dana@Club.Example"
	if _, err := service.UpdateUser(ctx, "20260002", "20260002", UpdateUserInput{Email: &takenEmail}); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser for taken email, got %v", err)
	}
	takenPhone := "010-1111-2222"
	if _, err := service.UpdateUser(ctx, "20260002", "20260002", UpdateUserInput{Phone: &takenPhone}); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser for taken phone, got %v", err)
	}

	// Resubmitting the member's own contact details is not a conflict.
	ownEmail := "evan@club.example"
	if _, err := service.UpdateUser(ctx, "20260002", "20260002", UpdateUserInput{Email: &ownEmail}); err != nil {
		t.Fatalf("update with own email: %v", err)
	}

	freeEmail := "new@club.example"
	updated, err := service.UpdateUser(ctx, "20260002", "20260002", UpdateUserInput{Email: &freeEmail})
	if err != nil {
		t.Fatalf("update with free email: %v", err)
	}
	if updated.Email != "new@club.example" {
		t.Fatalf("expected new email, got %q", updated.Email)
	}
}

func TestGetUserCacheEvictedOnStatusChange(t *testing.T) {
	store := newMemoryStore()
	actingID := adminIdentity(store)
	pending := seedActiveUser(store, "user-1", "20260001")
	pending.Status = domain.UserStatusPending
	store.users["user-1"] = pending
	service := newUserService(store)
	ctx := context.Background()

	first, err := service.GetUser(ctx, "20260001")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if first.Status != domain.UserStatusPending {
		t.Fatalf("expected pending, got %s", first.Status)
	}

	if _, err := service.ApproveUser(ctx, actingID, "20260001"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	second, err := service.GetUser(ctx, "20260001")
	if err != nil {
		t.Fatalf("get user after approve: %v", err)
	}
	if second.Status != domain.UserStatusActive {
		t.Fatalf("expected fresh active status after eviction, got %s", second.Status)
	}
}
