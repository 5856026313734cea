package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

const eventColumns = `id, title, description, event_type, start_at, end_at, parent_id, root_id, depth,
       max_participants, current_participants, active, created_by, created_at, updated_at, version`

// PutEvent inserts a new event row.
func (s *Store) PutEvent(ctx context.Context, event domain.Event) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Title,
		event.Description,
		event.Type.String(),
		toMillis(event.StartAt),
		toMillis(event.EndAt),
		event.ParentID,
		event.RootID,
		event.Depth,
		event.MaxParticipants,
		event.CurrentParticipants,
		boolToInt(event.Active),
		event.CreatedBy,
		toMillis(event.CreatedAt),
		toMillis(event.UpdatedAt),
		event.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put event %s: %w", event.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("put event %s: %w", event.ID, err)
	}
	return nil
}

// GetEvent loads one event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	if s == nil || s.sqlDB == nil {
		return domain.Event{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`,
		id,
	)
	event, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Event{}, storage.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return event, nil
}

// ListEvents returns every event ordered by start time.
func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_at ASC, id ASC`)
}

// ListActiveEvents returns active events ordered by start time.
func (s *Store) ListActiveEvents(ctx context.Context) ([]domain.Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE active = 1 ORDER BY start_at ASC, id ASC`)
}

// ListEventsByType returns events of one type ordered by start time.
func (s *Store) ListEventsByType(ctx context.Context, eventType domain.EventType) ([]domain.Event, error) {
	return s.queryEvents(
		ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_type = ? ORDER BY start_at ASC, id ASC`,
		eventType.String(),
	)
}

// Window queries compare calendar dates only: an event starting later today is
// already ongoing, not upcoming. Timestamps are stored as unix milliseconds,
// so the stored value is scaled to seconds for SQLite's date().

// ListUpcomingEvents returns events whose start date is strictly after now's date.
func (s *Store) ListUpcomingEvents(ctx context.Context, now time.Time) ([]domain.Event, error) {
	return s.queryEvents(
		ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE date(start_at / 1000, 'unixepoch') > date(? / 1000, 'unixepoch')
		 ORDER BY start_at ASC, id ASC`,
		toMillis(now),
	)
}

// ListOngoingEvents returns events whose date window contains now's date.
func (s *Store) ListOngoingEvents(ctx context.Context, now time.Time) ([]domain.Event, error) {
	return s.queryEvents(
		ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE date(start_at / 1000, 'unixepoch') <= date(? / 1000, 'unixepoch')
		   AND date(? / 1000, 'unixepoch') <= date(end_at / 1000, 'unixepoch')
		 ORDER BY start_at ASC, id ASC`,
		toMillis(now),
		toMillis(now),
	)
}

// ListPastEvents returns events whose end date is strictly before now's date.
func (s *Store) ListPastEvents(ctx context.Context, now time.Time) ([]domain.Event, error) {
	return s.queryEvents(
		ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE date(end_at / 1000, 'unixepoch') < date(? / 1000, 'unixepoch')
		 ORDER BY start_at ASC, id ASC`,
		toMillis(now),
	)
}

// ListChildEvents returns the direct children of an event.
func (s *Store) ListChildEvents(ctx context.Context, parentID string) ([]domain.Event, error) {
	return s.queryEvents(
		ctx,
		`SELECT `+eventColumns+` FROM events WHERE parent_id = ? ORDER BY start_at ASC, id ASC`,
		parentID,
	)
}

// UpdateEvent rewrites mutable fields and bumps the version token. Ancestry
// columns are deliberately not touched: an event never changes trees.
func (s *Store) UpdateEvent(ctx context.Context, event domain.Event) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE events SET
		    title = ?,
		    description = ?,
		    event_type = ?,
		    start_at = ?,
		    end_at = ?,
		    max_participants = ?,
		    active = ?,
		    updated_at = ?,
		    version = version + 1
		 WHERE id = ?`,
		event.Title,
		event.Description,
		event.Type.String(),
		toMillis(event.StartAt),
		toMillis(event.EndAt),
		event.MaxParticipants,
		boolToInt(event.Active),
		toMillis(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event %s: %w", event.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event %s: rows affected: %w", event.ID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateParticipantCount writes the shared counter guarded by the version
// token. The write succeeds only when the persisted version still equals
// expectVersion; a zero-row update means a concurrent writer won the round.
func (s *Store) UpdateParticipantCount(ctx context.Context, id string, count int, expectVersion int64) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE events
		 SET current_participants = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		count,
		toMillis(time.Now()),
		id,
		expectVersion,
	)
	if err != nil {
		return fmt.Errorf("update participant count %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update participant count %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

// DeleteEvent removes one event row.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var event domain.Event
	var eventType string
	var startAt, endAt, createdAt, updatedAt int64
	var active int
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&eventType,
		&startAt,
		&endAt,
		&event.ParentID,
		&event.RootID,
		&event.Depth,
		&event.MaxParticipants,
		&event.CurrentParticipants,
		&active,
		&event.CreatedBy,
		&createdAt,
		&updatedAt,
		&event.Version,
	); err != nil {
		return domain.Event{}, err
	}

	parsedType, err := domain.EventTypeFromString(eventType)
	if err != nil {
		return domain.Event{}, err
	}
	event.Type = parsedType
	event.StartAt = fromMillis(startAt)
	event.EndAt = fromMillis(endAt)
	event.Active = active != 0
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
