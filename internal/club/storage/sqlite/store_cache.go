package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// GetCacheEntry loads a cache payload by key. The second return value reports
// whether an entry was found; freshness is judged by the caller against the
// entry's expiry.
func (s *Store) GetCacheEntry(ctx context.Context, cacheKey string) (storage.CacheEntry, bool, error) {
	if s == nil || s.sqlDB == nil {
		return storage.CacheEntry{}, false, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT cache_key, scope, payload, refreshed_at, expires_at FROM cache_entries WHERE cache_key = ?`,
		cacheKey,
	)

	var entry storage.CacheEntry
	var refreshedAt, expiresAt int64
	if err := row.Scan(&entry.CacheKey, &entry.Scope, &entry.PayloadBytes, &refreshedAt, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return storage.CacheEntry{}, false, nil
		}
		return storage.CacheEntry{}, false, fmt.Errorf("get cache entry %s: %w", cacheKey, err)
	}
	entry.RefreshedAt = fromMillis(refreshedAt)
	entry.ExpiresAt = fromMillis(expiresAt)
	return entry, true, nil
}

// PutCacheEntry stores a cache payload, replacing any previous entry under the
// same key.
func (s *Store) PutCacheEntry(ctx context.Context, entry storage.CacheEntry) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cache_entries (cache_key, scope, payload, refreshed_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			scope = excluded.scope,
			payload = excluded.payload,
			refreshed_at = excluded.refreshed_at,
			expires_at = excluded.expires_at`,
		entry.CacheKey,
		entry.Scope,
		entry.PayloadBytes,
		toMillis(entry.RefreshedAt),
		toMillis(entry.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put cache entry %s: %w", entry.CacheKey, err)
	}
	return nil
}

// DeleteCacheEntry evicts a single cache key. Evicting an absent key is a
// no-op.
func (s *Store) DeleteCacheEntry(ctx context.Context, cacheKey string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, cacheKey); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", cacheKey, err)
	}
	return nil
}

// DeleteCacheScope evicts every cache key under a scope.
func (s *Store) DeleteCacheScope(ctx context.Context, scope string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cache_entries WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("delete cache scope %s: %w", scope, err)
	}
	return nil
}
