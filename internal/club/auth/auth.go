// Package auth decides whether a caller identity may perform privileged club
// operations.
//
// Identity is the caller's student ID, established by the transport layer.
// The guard never authenticates; it only answers authorization questions
// against the administrator records.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/greenroomhq/greenroom/internal/club/cache"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// Guard answers authorization questions for club operations.
type Guard interface {
	// IsAdmin reports whether the identity holds an administrator record.
	IsAdmin(ctx context.Context, studentID string) (bool, error)
}

// IdentityMatches reports whether two student identities refer to the same
// member. Comparison ignores surrounding whitespace; empty identities never
// match.
func IdentityMatches(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return a == b
}

// StoreGuard answers admin checks from the administrator store, consulting
// the cache first.
type StoreGuard struct {
	admins storage.AdminStore
	cache  *cache.Cache
}

// NewStoreGuard constructs a guard over the administrator store. The cache is
// optional.
func NewStoreGuard(admins storage.AdminStore, cacheLayer *cache.Cache) *StoreGuard {
	return &StoreGuard{admins: admins, cache: cacheLayer}
}

// IsAdmin implements Guard.
func (g *StoreGuard) IsAdmin(ctx context.Context, studentID string) (bool, error) {
	if g == nil || g.admins == nil {
		return false, fmt.Errorf("guard is not configured")
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return false, nil
	}

	if _, ok := g.cache.CachedAdmin(ctx, studentID); ok {
		return true, nil
	}

	admin, err := g.admins.GetAdminByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check admin %s: %w", studentID, err)
	}

	g.cache.SetAdmin(ctx, admin)
	return true, nil
}
