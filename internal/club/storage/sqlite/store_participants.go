package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

const participantColumns = `id, event_id, user_id, applied_at, created_at`

// PutParticipant inserts a registration row. The (event_id, user_id) unique
// constraint backs up the service-level duplicate check.
func (s *Store) PutParticipant(ctx context.Context, participant domain.Participant) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO participants (`+participantColumns+`) VALUES (?, ?, ?, ?, ?)`,
		participant.ID,
		participant.EventID,
		participant.UserID,
		toMillis(participant.AppliedAt),
		toMillis(participant.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put participant %s: %w", participant.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("put participant %s: %w", participant.ID, err)
	}
	return nil
}

// GetParticipant loads the registration for one (root event, user) pair.
func (s *Store) GetParticipant(ctx context.Context, rootEventID, userID string) (domain.Participant, error) {
	if s == nil || s.sqlDB == nil {
		return domain.Participant{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+participantColumns+` FROM participants WHERE event_id = ? AND user_id = ?`,
		rootEventID,
		userID,
	)
	participant, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Participant{}, storage.ErrNotFound
		}
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return participant, nil
}

// ListParticipantsByEvent returns registrations anchored at a root event.
func (s *Store) ListParticipantsByEvent(ctx context.Context, rootEventID string) ([]domain.Participant, error) {
	return s.queryParticipants(
		ctx,
		`SELECT `+participantColumns+` FROM participants WHERE event_id = ? ORDER BY applied_at ASC, id ASC`,
		rootEventID,
	)
}

// ListParticipantsByUser returns a user's registrations across all trees.
func (s *Store) ListParticipantsByUser(ctx context.Context, userID string) ([]domain.Participant, error) {
	return s.queryParticipants(
		ctx,
		`SELECT `+participantColumns+` FROM participants WHERE user_id = ? ORDER BY applied_at ASC, id ASC`,
		userID,
	)
}

// DeleteParticipant removes one registration row.
func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM participants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete participant %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete participant %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteParticipantsByEvent removes every registration anchored at a root
// event. Deleting zero rows is not an error: most removed tree nodes have no
// participants anchored at them.
func (s *Store) DeleteParticipantsByEvent(ctx context.Context, rootEventID string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM participants WHERE event_id = ?`, rootEventID); err != nil {
		return fmt.Errorf("delete participants for event %s: %w", rootEventID, err)
	}
	return nil
}

func (s *Store) queryParticipants(ctx context.Context, query string, args ...any) ([]domain.Participant, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var participants []domain.Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func scanParticipant(row rowScanner) (domain.Participant, error) {
	var participant domain.Participant
	var appliedAt, createdAt int64
	if err := row.Scan(
		&participant.ID,
		&participant.EventID,
		&participant.UserID,
		&appliedAt,
		&createdAt,
	); err != nil {
		return domain.Participant{}, err
	}
	participant.AppliedAt = fromMillis(appliedAt)
	participant.CreatedAt = fromMillis(createdAt)
	return participant, nil
}
