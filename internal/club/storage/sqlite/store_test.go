package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPutEventRequiresStore(t *testing.T) {
	var store *Store
	if err := store.PutEvent(context.Background(), domain.Event{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestPutGetEventRoundTrip(t *testing.T) {
	store := openTempStore(t)

	event := rootEvent("event-1", domain.EventTypeRegularConcert, 30)
	event.Description = "Spring showcase"
	if err := store.PutEvent(context.Background(), event); err != nil {
		t.Fatalf("put event: %v", err)
	}

	got, err := store.GetEvent(context.Background(), "event-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Title != event.Title {
		t.Fatalf("expected title %q, got %q", event.Title, got.Title)
	}
	if got.Type != domain.EventTypeRegularConcert {
		t.Fatalf("expected type %s, got %s", domain.EventTypeRegularConcert, got.Type)
	}
	if !got.StartAt.Equal(event.StartAt) {
		t.Fatalf("expected start %v, got %v", event.StartAt, got.StartAt)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
	if !got.Active {
		t.Fatal("expected event to be active")
	}
}

func TestGetEventNotFound(t *testing.T) {
	store := openTempStore(t)

	if _, err := store.GetEvent(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListChildEvents(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	root := rootEvent("root-1", domain.EventTypeEnsembleStudy, 50)
	if err := store.PutEvent(ctx, root); err != nil {
		t.Fatalf("put root: %v", err)
	}
	for _, id := range []string{"child-1", "child-2"} {
		child := rootEvent(id, domain.EventTypeEnsembleStudy, 0)
		child.ParentID = "root-1"
		child.RootID = "root-1"
		child.Depth = 1
		if err := store.PutEvent(ctx, child); err != nil {
			t.Fatalf("put child %s: %v", id, err)
		}
	}

	children, err := store.ListChildEvents(ctx, "root-1")
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	for _, child := range children {
		if child.RootID != "root-1" || child.Depth != 1 {
			t.Fatalf("unexpected ancestry for %s: root=%s depth=%d", child.ID, child.RootID, child.Depth)
		}
	}
}

func TestListEventWindows(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	past := rootEvent("past-1", domain.EventTypeRegularConcert, 0)
	past.StartAt = now.AddDate(0, 0, -10)
	past.EndAt = now.AddDate(0, 0, -9)

	ongoing := rootEvent("ongoing-1", domain.EventTypeSessionStudy, 0)
	ongoing.StartAt = now.AddDate(0, 0, -1)
	ongoing.EndAt = now.AddDate(0, 0, 1)

	upcoming := rootEvent("upcoming-1", domain.EventTypeEventApplication, 0)
	upcoming.StartAt = now.AddDate(0, 0, 5)
	upcoming.EndAt = now.AddDate(0, 0, 6)

	for _, event := range []domain.Event{past, ongoing, upcoming} {
		if err := store.PutEvent(ctx, event); err != nil {
			t.Fatalf("put event %s: %v", event.ID, err)
		}
	}

	upcomingList, err := store.ListUpcomingEvents(ctx, now)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(upcomingList) != 1 || upcomingList[0].ID != "upcoming-1" {
		t.Fatalf("unexpected upcoming list: %+v", upcomingList)
	}

	ongoingList, err := store.ListOngoingEvents(ctx, now)
	if err != nil {
		t.Fatalf("list ongoing: %v", err)
	}
	if len(ongoingList) != 1 || ongoingList[0].ID != "ongoing-1" {
		t.Fatalf("unexpected ongoing list: %+v", ongoingList)
	}

	pastList, err := store.ListPastEvents(ctx, now)
	if err != nil {
		t.Fatalf("list past: %v", err)
	}
	if len(pastList) != 1 || pastList[0].ID != "past-1" {
		t.Fatalf("unexpected past list: %+v", pastList)
	}
}

func TestListOngoingEventsIncludesBoundaryDates(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 23, 59, 0, 0, time.UTC)

	event := rootEvent("boundary-1", domain.EventTypeRegularConcert, 0)
	event.StartAt = time.Date(2026, 6, 15, 0, 1, 0, 0, time.UTC)
	event.EndAt = time.Date(2026, 6, 15, 2, 0, 0, 0, time.UTC)
	if err := store.PutEvent(ctx, event); err != nil {
		t.Fatalf("put event: %v", err)
	}

	ongoing, err := store.ListOngoingEvents(ctx, now)
	if err != nil {
		t.Fatalf("list ongoing: %v", err)
	}
	if len(ongoing) != 1 {
		t.Fatalf("expected same-date event to be ongoing, got %d results", len(ongoing))
	}
}

func TestUpdateParticipantCount(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	event := rootEvent("event-cas", domain.EventTypeRegularConcert, 10)
	if err := store.PutEvent(ctx, event); err != nil {
		t.Fatalf("put event: %v", err)
	}

	if err := store.UpdateParticipantCount(ctx, "event-cas", 1, 1); err != nil {
		t.Fatalf("update count: %v", err)
	}

	got, err := store.GetEvent(ctx, "event-cas")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.CurrentParticipants != 1 {
		t.Fatalf("expected count 1, got %d", got.CurrentParticipants)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
}

func TestUpdateParticipantCountStaleVersion(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	event := rootEvent("event-stale", domain.EventTypeRegularConcert, 10)
	if err := store.PutEvent(ctx, event); err != nil {
		t.Fatalf("put event: %v", err)
	}
	if err := store.UpdateParticipantCount(ctx, "event-stale", 1, 1); err != nil {
		t.Fatalf("first update: %v", err)
	}

	err := store.UpdateParticipantCount(ctx, "event-stale", 2, 1)
	if !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestDeleteEvent(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutEvent(ctx, rootEvent("event-del", domain.EventTypeRegularConcert, 0)); err != nil {
		t.Fatalf("put event: %v", err)
	}
	if err := store.DeleteEvent(ctx, "event-del"); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if _, err := store.GetEvent(ctx, "event-del"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteEvent(ctx, "event-del"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPutParticipantDuplicate(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	first := participant("reg-1", "root-1", "user-1")
	if err := store.PutParticipant(ctx, first); err != nil {
		t.Fatalf("put participant: %v", err)
	}

	second := participant("reg-2", "root-1", "user-1")
	if err := store.PutParticipant(ctx, second); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetParticipant(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutParticipant(ctx, participant("reg-1", "root-1", "user-1")); err != nil {
		t.Fatalf("put participant: %v", err)
	}

	got, err := store.GetParticipant(ctx, "root-1", "user-1")
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if got.ID != "reg-1" {
		t.Fatalf("expected reg-1, got %s", got.ID)
	}

	if _, err := store.GetParticipant(ctx, "root-1", "user-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteParticipantsByEvent(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutParticipant(ctx, participant("reg-1", "root-1", "user-1")); err != nil {
		t.Fatalf("put participant: %v", err)
	}
	if err := store.PutParticipant(ctx, participant("reg-2", "root-1", "user-2")); err != nil {
		t.Fatalf("put participant: %v", err)
	}
	if err := store.PutParticipant(ctx, participant("reg-3", "root-2", "user-1")); err != nil {
		t.Fatalf("put participant: %v", err)
	}

	if err := store.DeleteParticipantsByEvent(ctx, "root-1"); err != nil {
		t.Fatalf("delete participants: %v", err)
	}

	remaining, err := store.ListParticipantsByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(remaining) != 1 || remaining[0].EventID != "root-2" {
		t.Fatalf("unexpected remaining registrations: %+v", remaining)
	}

	if err := store.DeleteParticipantsByEvent(ctx, "root-1"); err != nil {
		t.Fatalf("expected no error deleting empty set, got %v", err)
	}
}

func TestPutUserRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	user := member("user-1", "20260001", domain.UserStatusPending)
	if err := store.PutUser(ctx, user); err != nil {
		t.Fatalf("put user: %v", err)
	}

	got, err := store.GetUserByStudentID(ctx, "20260001")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != user.Username {
		t.Fatalf("expected username %q, got %q", user.Username, got.Username)
	}
	if got.Session != domain.SessionGuitar {
		t.Fatalf("expected guitar session, got %s", got.Session)
	}
	if got.Status != domain.UserStatusPending {
		t.Fatalf("expected pending status, got %s", got.Status)
	}
	if !got.LastLoginAt.IsZero() {
		t.Fatalf("expected zero last login, got %v", got.LastLoginAt)
	}
}

func TestPutUserDuplicateStudentID(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutUser(ctx, member("user-1", "20260001", domain.UserStatusPending)); err != nil {
		t.Fatalf("put user: %v", err)
	}
	err := store.PutUser(ctx, member("user-2", "20260001", domain.UserStatusPending))
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserContactUniqueness(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	first := member("user-1", "20260001", domain.UserStatusActive)
	first.Email = "lead@club.example"
	first.Phone = "010-1111-2222"
	if err := store.PutUser(ctx, first); err != nil {
		t.Fatalf("put first user: %v", err)
	}
	second := member("user-2", "20260002", domain.UserStatusActive)
	if err := store.PutUser(ctx, second); err != nil {
		t.Fatalf("put second user: %v", err)
	}
	// Empty contact fields never collide with each other.
	third := member("user-3", "20260003", domain.UserStatusActive)
	if err := store.PutUser(ctx, third); err != nil {
		t.Fatalf("put third user: %v", err)
	}

	second.Email = "lead@club.example"
	if err := store.UpdateUser(ctx, second); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for taken email, got %v", err)
	}
	second.Email = ""
	second.Phone = "010-1111-2222"
	if err := store.UpdateUser(ctx, second); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for taken phone, got %v", err)
	}

	taken := member("user-4", "20260004", domain.UserStatusActive)
	taken.Email = "lead@club.example"
	if err := store.PutUser(ctx, taken); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on insert with taken email, got %v", err)
	}
}

func TestUserExists(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	user := member("user-1", "20260001", domain.UserStatusActive)
	user.Email = "lead@club.example"
	user.Phone = "010-1111-2222"
	if err := store.PutUser(ctx, user); err != nil {
		t.Fatalf("put user: %v", err)
	}

	tests := []struct {
		name      string
		studentID string
		email     string
		phone     string
		want      bool
	}{
		{name: "by student id", studentID: "20260001", want: true},
		{name: "by email", studentID: "20269999", email: "lead@club.example", want: true},
		{name: "by phone", studentID: "20269999", phone: "010-1111-2222", want: true},
		{name: "no match", studentID: "20269999", email: "new@club.example", phone: "010-9999-0000", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.UserExists(ctx, tc.studentID, tc.email, tc.phone)
			if err != nil {
				t.Fatalf("user exists: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestListUsersByStudentIDs(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for i, studentID := range []string{"20260001", "20260002", "20260003"} {
		user := member("user-"+studentID, studentID, domain.UserStatusActive)
		user.Batch = 26 + i
		if err := store.PutUser(ctx, user); err != nil {
			t.Fatalf("put user %s: %v", studentID, err)
		}
	}

	users, err := store.ListUsersByStudentIDs(ctx, []string{"20260001", "20260003", "20269999"})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	none, err := store.ListUsersByStudentIDs(ctx, nil)
	if err != nil {
		t.Fatalf("list users with no ids: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty result, got %d", len(none))
	}
}

func TestUpdateUserStatus(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	user := member("user-1", "20260001", domain.UserStatusPending)
	if err := store.PutUser(ctx, user); err != nil {
		t.Fatalf("put user: %v", err)
	}

	user.Status = domain.UserStatusActive
	user.StatusChangedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user.UpdatedAt = user.StatusChangedAt
	if err := store.UpdateUser(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}

	got, err := store.GetUserByStudentID(ctx, "20260001")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Status != domain.UserStatusActive {
		t.Fatalf("expected active status, got %s", got.Status)
	}
	if !got.StatusChangedAt.Equal(user.StatusChangedAt) {
		t.Fatalf("expected status change at %v, got %v", user.StatusChangedAt, got.StatusChangedAt)
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	store := openTempStore(t)

	err := store.UpdateUser(context.Background(), member("missing", "20269999", domain.UserStatusActive))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminLifecycle(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	admin := domain.Admin{
		ID:          "admin-1",
		UserID:      "user-1",
		StudentID:   "20260001",
		Role:        "president",
		AppointedBy: domain.SystemAppointer,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.PutAdmin(ctx, admin); err != nil {
		t.Fatalf("put admin: %v", err)
	}

	duplicate := admin
	duplicate.ID = "admin-2"
	if err := store.PutAdmin(ctx, duplicate); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := store.GetAdminByStudentID(ctx, "20260001")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if got.Role != "president" {
		t.Fatalf("expected role president, got %s", got.Role)
	}

	got.Role = "treasurer"
	got.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpdateAdmin(ctx, got); err != nil {
		t.Fatalf("update admin: %v", err)
	}

	admins, err := store.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 1 || admins[0].Role != "treasurer" {
		t.Fatalf("unexpected admins: %+v", admins)
	}

	if err := store.DeleteAdminByStudentID(ctx, "20260001"); err != nil {
		t.Fatalf("delete admin: %v", err)
	}
	if err := store.DeleteAdminByStudentID(ctx, "20260001"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCacheEntryUpsert(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	entry := storage.CacheEntry{
		CacheKey:     "events:active",
		Scope:        "events",
		PayloadBytes: []byte(`["a"]`),
		RefreshedAt:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:    time.Date(2026, 5, 1, 0, 5, 0, 0, time.UTC),
	}
	if err := store.PutCacheEntry(ctx, entry); err != nil {
		t.Fatalf("put cache entry: %v", err)
	}

	entry.PayloadBytes = []byte(`["a","b"]`)
	entry.RefreshedAt = entry.RefreshedAt.Add(time.Minute)
	if err := store.PutCacheEntry(ctx, entry); err != nil {
		t.Fatalf("upsert cache entry: %v", err)
	}

	got, found, err := store.GetCacheEntry(ctx, "events:active")
	if err != nil {
		t.Fatalf("get cache entry: %v", err)
	}
	if !found {
		t.Fatal("expected cache entry to be found")
	}
	if string(got.PayloadBytes) != `["a","b"]` {
		t.Fatalf("expected refreshed payload, got %s", got.PayloadBytes)
	}
}

func TestCacheEntryMiss(t *testing.T) {
	store := openTempStore(t)

	_, found, err := store.GetCacheEntry(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get cache entry: %v", err)
	}
	if found {
		t.Fatal("expected cache miss")
	}
}

func TestDeleteCacheScope(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	entries := []storage.CacheEntry{
		{CacheKey: "events:active", Scope: "events", PayloadBytes: []byte(`[]`)},
		{CacheKey: "events:upcoming", Scope: "events", PayloadBytes: []byte(`[]`)},
		{CacheKey: "admins:all", Scope: "admins", PayloadBytes: []byte(`[]`)},
	}
	for _, entry := range entries {
		if err := store.PutCacheEntry(ctx, entry); err != nil {
			t.Fatalf("put cache entry %s: %v", entry.CacheKey, err)
		}
	}

	if err := store.DeleteCacheScope(ctx, "events"); err != nil {
		t.Fatalf("delete cache scope: %v", err)
	}

	if _, found, _ := store.GetCacheEntry(ctx, "events:active"); found {
		t.Fatal("expected events:active to be evicted")
	}
	if _, found, _ := store.GetCacheEntry(ctx, "admins:all"); !found {
		t.Fatal("expected admins:all to survive")
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "club.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil && err != sql.ErrConnDone {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func rootEvent(id string, eventType domain.EventType, capacity int) domain.Event {
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Event{
		ID:              id,
		Title:           "Event " + id,
		Type:            eventType,
		StartAt:         time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
		EndAt:           time.Date(2026, 7, 1, 21, 0, 0, 0, time.UTC),
		RootID:          id,
		MaxParticipants: capacity,
		Active:          true,
		CreatedBy:       "20260001",
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		Version:         1,
	}
}

func participant(id, rootEventID, userID string) domain.Participant {
	appliedAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return domain.Participant{
		ID:        id,
		EventID:   rootEventID,
		UserID:    userID,
		AppliedAt: appliedAt,
		CreatedAt: appliedAt,
	}
}

func member(id, studentID string, status domain.UserStatus) domain.User {
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.User{
		ID:              id,
		StudentID:       studentID,
		Username:        "Member " + studentID,
		Session:         domain.SessionGuitar,
		Status:          status,
		StatusChangedAt: createdAt,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}
