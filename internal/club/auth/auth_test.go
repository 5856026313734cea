package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

type stubAdminStore struct {
	admins map[string]domain.Admin
	err    error
	gets   int
}

func (s *stubAdminStore) PutAdmin(context.Context, domain.Admin) error         { return nil }
func (s *stubAdminStore) ListAdmins(context.Context) ([]domain.Admin, error)   { return nil, nil }
func (s *stubAdminStore) UpdateAdmin(context.Context, domain.Admin) error      { return nil }
func (s *stubAdminStore) DeleteAdminByStudentID(context.Context, string) error { return nil }

func (s *stubAdminStore) GetAdminByStudentID(_ context.Context, studentID string) (domain.Admin, error) {
	s.gets++
	if s.err != nil {
		return domain.Admin{}, s.err
	}
	admin, ok := s.admins[studentID]
	if !ok {
		return domain.Admin{}, storage.ErrNotFound
	}
	return admin, nil
}

func TestIdentityMatches(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "equal", a: "20260001", b: "20260001", want: true},
		{name: "whitespace", a: " 20260001 ", b: "20260001", want: true},
		{name: "different", a: "20260001", b: "20260002", want: false},
		{name: "both empty", a: "", b: "", want: false},
		{name: "one empty", a: "20260001", b: "", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IdentityMatches(tc.a, tc.b); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	store := &stubAdminStore{admins: map[string]domain.Admin{
		"20260001": {ID: "admin-1", StudentID: "20260001", Role: "president"},
	}}
	guard := NewStoreGuard(store, nil)

	ok, err := guard.IsAdmin(context.Background(), "20260001")
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if !ok {
		t.Fatal("expected admin")
	}

	ok, err = guard.IsAdmin(context.Background(), "20260099")
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if ok {
		t.Fatal("expected non-admin")
	}
}

func TestIsAdminEmptyIdentity(t *testing.T) {
	guard := NewStoreGuard(&stubAdminStore{}, nil)

	ok, err := guard.IsAdmin(context.Background(), "  ")
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if ok {
		t.Fatal("expected empty identity to be denied")
	}
}

func TestIsAdminPropagatesStoreErrors(t *testing.T) {
	guard := NewStoreGuard(&stubAdminStore{err: errors.New("db down")}, nil)

	if _, err := guard.IsAdmin(context.Background(), "20260001"); err == nil {
		t.Fatal("expected error")
	}
}

func TestIsAdminRequiresGuard(t *testing.T) {
	var guard *StoreGuard
	if _, err := guard.IsAdmin(context.Background(), "20260001"); err == nil {
		t.Fatal("expected error for nil guard")
	}
}
