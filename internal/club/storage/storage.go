// Package storage defines persistence contracts for club state.
//
// Stores are injected into services as interfaces; the sqlite subpackage
// provides the production implementation. Cache persistence shares the same
// database but is always derived state that can be discarded and rebuilt from
// authoritative reads.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a version-guarded write lost a race
	// with a concurrent writer. Callers re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// EventStore persists event tree nodes.
type EventStore interface {
	PutEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListActiveEvents(ctx context.Context) ([]domain.Event, error)
	ListEventsByType(ctx context.Context, eventType domain.EventType) ([]domain.Event, error)
	ListUpcomingEvents(ctx context.Context, now time.Time) ([]domain.Event, error)
	ListOngoingEvents(ctx context.Context, now time.Time) ([]domain.Event, error)
	ListPastEvents(ctx context.Context, now time.Time) ([]domain.Event, error)
	ListChildEvents(ctx context.Context, parentID string) ([]domain.Event, error)
	// UpdateEvent rewrites mutable event fields and bumps the version token.
	UpdateEvent(ctx context.Context, event domain.Event) error
	// UpdateParticipantCount is the version-guarded counter write. It succeeds
	// only when the persisted version still equals expectVersion, bumping the
	// token as a side effect; otherwise it returns ErrVersionConflict.
	UpdateParticipantCount(ctx context.Context, id string, count int, expectVersion int64) error
	DeleteEvent(ctx context.Context, id string) error
}

// ParticipantStore persists registrations anchored at root events.
type ParticipantStore interface {
	PutParticipant(ctx context.Context, participant domain.Participant) error
	GetParticipant(ctx context.Context, rootEventID, userID string) (domain.Participant, error)
	ListParticipantsByEvent(ctx context.Context, rootEventID string) ([]domain.Participant, error)
	ListParticipantsByUser(ctx context.Context, userID string) ([]domain.Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
	DeleteParticipantsByEvent(ctx context.Context, rootEventID string) error
}

// EnsembleStore persists set-list pieces and their rosters.
type EnsembleStore interface {
	PutEnsemble(ctx context.Context, ensemble domain.Ensemble) error
	GetEnsemble(ctx context.Context, id string) (domain.Ensemble, error)
	ListActiveEnsembles(ctx context.Context) ([]domain.Ensemble, error)
	ListEnsemblesByEvent(ctx context.Context, eventID string) ([]domain.Ensemble, error)
	ListEnsemblesByUser(ctx context.Context, userID string) ([]domain.Ensemble, error)
	// SearchEnsembles matches the keyword against artist and title,
	// case-insensitively, newest first.
	SearchEnsembles(ctx context.Context, keyword string) ([]domain.Ensemble, error)
	// UpdateEnsemble rewrites mutable ensemble fields and bumps the version token.
	UpdateEnsemble(ctx context.Context, ensemble domain.Ensemble) error
	DeleteEnsemble(ctx context.Context, id string) error

	PutEnsembleMember(ctx context.Context, member domain.EnsembleMember) error
	GetEnsembleMember(ctx context.Context, ensembleID, userID string) (domain.EnsembleMember, error)
	ListEnsembleMembers(ctx context.Context, ensembleID string) ([]domain.EnsembleMember, error)
	DeleteEnsembleMember(ctx context.Context, id string) error
	DeleteEnsembleMembersByEnsemble(ctx context.Context, ensembleID string) error
}

// UserStore persists club members.
type UserStore interface {
	PutUser(ctx context.Context, user domain.User) error
	GetUserByStudentID(ctx context.Context, studentID string) (domain.User, error)
	ListUsersByStatus(ctx context.Context, status domain.UserStatus) ([]domain.User, error)
	ListUsersByStudentIDs(ctx context.Context, studentIDs []string) ([]domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id string) error
	UserExists(ctx context.Context, studentID, email, phone string) (bool, error)
}

// AdminStore persists administrator records.
type AdminStore interface {
	PutAdmin(ctx context.Context, admin domain.Admin) error
	GetAdminByStudentID(ctx context.Context, studentID string) (domain.Admin, error)
	ListAdmins(ctx context.Context) ([]domain.Admin, error)
	UpdateAdmin(ctx context.Context, admin domain.Admin) error
	DeleteAdminByStudentID(ctx context.Context, studentID string) error
}

// CacheEntry stores one cache payload and freshness metadata.
//
// Cache data is always derived and can be discarded or rebuilt from
// authoritative store reads.
type CacheEntry struct {
	CacheKey     string
	Scope        string
	PayloadBytes []byte
	RefreshedAt  time.Time
	ExpiresAt    time.Time
}

// CacheStore is the contract for cache persistence.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, cacheKey string) (CacheEntry, bool, error)
	PutCacheEntry(ctx context.Context, entry CacheEntry) error
	DeleteCacheEntry(ctx context.Context, cacheKey string) error
	DeleteCacheScope(ctx context.Context, scope string) error
}
