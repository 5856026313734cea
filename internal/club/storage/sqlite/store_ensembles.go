package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

const ensembleColumns = `id, event_id, artist, title, notes, active, created_at, updated_at, version`

const ensembleMemberColumns = `id, ensemble_id, user_id, part, created_at`

// PutEnsemble inserts a set-list piece.
func (s *Store) PutEnsemble(ctx context.Context, ensemble domain.Ensemble) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO ensembles (`+ensembleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ensemble.ID,
		ensemble.EventID,
		ensemble.Artist,
		ensemble.Title,
		ensemble.Notes,
		boolToInt(ensemble.Active),
		toMillis(ensemble.CreatedAt),
		toMillis(ensemble.UpdatedAt),
		ensemble.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put ensemble %s: %w", ensemble.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("put ensemble %s: %w", ensemble.ID, err)
	}
	return nil
}

// GetEnsemble loads one set-list piece.
func (s *Store) GetEnsemble(ctx context.Context, id string) (domain.Ensemble, error) {
	if s == nil || s.sqlDB == nil {
		return domain.Ensemble{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+ensembleColumns+` FROM ensembles WHERE id = ?`,
		id,
	)
	ensemble, err := scanEnsemble(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Ensemble{}, storage.ErrNotFound
		}
		return domain.Ensemble{}, fmt.Errorf("get ensemble %s: %w", id, err)
	}
	return ensemble, nil
}

// ListActiveEnsembles returns every active set-list piece.
func (s *Store) ListActiveEnsembles(ctx context.Context) ([]domain.Ensemble, error) {
	return s.queryEnsembles(
		ctx,
		`SELECT `+ensembleColumns+` FROM ensembles WHERE active = 1 ORDER BY created_at DESC, id ASC`,
	)
}

// ListEnsemblesByEvent returns an event's set list.
func (s *Store) ListEnsemblesByEvent(ctx context.Context, eventID string) ([]domain.Ensemble, error) {
	return s.queryEnsembles(
		ctx,
		`SELECT `+ensembleColumns+` FROM ensembles WHERE event_id = ? ORDER BY created_at ASC, id ASC`,
		eventID,
	)
}

// ListEnsemblesByUser returns the pieces a member plays in.
func (s *Store) ListEnsemblesByUser(ctx context.Context, userID string) ([]domain.Ensemble, error) {
	return s.queryEnsembles(
		ctx,
		`SELECT e.id, e.event_id, e.artist, e.title, e.notes, e.active, e.created_at, e.updated_at, e.version
		 FROM ensembles e
		 JOIN ensemble_members m ON m.ensemble_id = e.id
		 WHERE m.user_id = ?
		 ORDER BY e.created_at ASC, e.id ASC`,
		userID,
	)
}

// SearchEnsembles matches the keyword against artist and title, newest first.
func (s *Store) SearchEnsembles(ctx context.Context, keyword string) ([]domain.Ensemble, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(keyword)) + "%"
	return s.queryEnsembles(
		ctx,
		`SELECT `+ensembleColumns+` FROM ensembles
		 WHERE artist LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\'
		 ORDER BY created_at DESC, id ASC`,
		pattern,
		pattern,
	)
}

// escapeLike neutralizes LIKE wildcards in user-supplied search keywords.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// UpdateEnsemble rewrites mutable ensemble fields and bumps the version token.
func (s *Store) UpdateEnsemble(ctx context.Context, ensemble domain.Ensemble) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE ensembles SET
		    artist = ?,
		    title = ?,
		    notes = ?,
		    active = ?,
		    updated_at = ?,
		    version = version + 1
		 WHERE id = ?`,
		ensemble.Artist,
		ensemble.Title,
		ensemble.Notes,
		boolToInt(ensemble.Active),
		toMillis(ensemble.UpdatedAt),
		ensemble.ID,
	)
	if err != nil {
		return fmt.Errorf("update ensemble %s: %w", ensemble.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ensemble %s: rows affected: %w", ensemble.ID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteEnsemble removes one set-list piece.
func (s *Store) DeleteEnsemble(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM ensembles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ensemble %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ensemble %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutEnsembleMember inserts a roster entry. The (ensemble_id, user_id) unique
// constraint backs up the service-level duplicate check.
func (s *Store) PutEnsembleMember(ctx context.Context, member domain.EnsembleMember) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO ensemble_members (`+ensembleMemberColumns+`) VALUES (?, ?, ?, ?, ?)`,
		member.ID,
		member.EnsembleID,
		member.UserID,
		member.Part.String(),
		toMillis(member.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put ensemble member %s: %w", member.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("put ensemble member %s: %w", member.ID, err)
	}
	return nil
}

// GetEnsembleMember loads the roster entry for one (ensemble, user) pair.
func (s *Store) GetEnsembleMember(ctx context.Context, ensembleID, userID string) (domain.EnsembleMember, error) {
	if s == nil || s.sqlDB == nil {
		return domain.EnsembleMember{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+ensembleMemberColumns+` FROM ensemble_members WHERE ensemble_id = ? AND user_id = ?`,
		ensembleID,
		userID,
	)
	member, err := scanEnsembleMember(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.EnsembleMember{}, storage.ErrNotFound
		}
		return domain.EnsembleMember{}, fmt.Errorf("get ensemble member: %w", err)
	}
	return member, nil
}

// ListEnsembleMembers returns a piece's roster.
func (s *Store) ListEnsembleMembers(ctx context.Context, ensembleID string) ([]domain.EnsembleMember, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+ensembleMemberColumns+` FROM ensemble_members WHERE ensemble_id = ? ORDER BY created_at ASC, id ASC`,
		ensembleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ensemble members: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var members []domain.EnsembleMember
	for rows.Next() {
		member, err := scanEnsembleMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ensemble member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ensemble members: %w", err)
	}
	return members, nil
}

// DeleteEnsembleMember removes one roster entry.
func (s *Store) DeleteEnsembleMember(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM ensemble_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ensemble member %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ensemble member %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteEnsembleMembersByEnsemble removes a piece's whole roster. Deleting
// zero rows is not an error.
func (s *Store) DeleteEnsembleMembersByEnsemble(ctx context.Context, ensembleID string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM ensemble_members WHERE ensemble_id = ?`, ensembleID); err != nil {
		return fmt.Errorf("delete members for ensemble %s: %w", ensembleID, err)
	}
	return nil
}

func (s *Store) queryEnsembles(ctx context.Context, query string, args ...any) ([]domain.Ensemble, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ensembles: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ensembles []domain.Ensemble
	for rows.Next() {
		ensemble, err := scanEnsemble(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ensemble: %w", err)
		}
		ensembles = append(ensembles, ensemble)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ensembles: %w", err)
	}
	return ensembles, nil
}

func scanEnsemble(row rowScanner) (domain.Ensemble, error) {
	var ensemble domain.Ensemble
	var active int
	var createdAt, updatedAt int64
	if err := row.Scan(
		&ensemble.ID,
		&ensemble.EventID,
		&ensemble.Artist,
		&ensemble.Title,
		&ensemble.Notes,
		&active,
		&createdAt,
		&updatedAt,
		&ensemble.Version,
	); err != nil {
		return domain.Ensemble{}, err
	}
	ensemble.Active = active != 0
	ensemble.CreatedAt = fromMillis(createdAt)
	ensemble.UpdatedAt = fromMillis(updatedAt)
	return ensemble, nil
}

func scanEnsembleMember(row rowScanner) (domain.EnsembleMember, error) {
	var member domain.EnsembleMember
	var part string
	var createdAt int64
	if err := row.Scan(
		&member.ID,
		&member.EnsembleID,
		&member.UserID,
		&part,
		&createdAt,
	); err != nil {
		return domain.EnsembleMember{}, err
	}
	member.Part = domain.EnsemblePartFromString(part)
	member.CreatedAt = fromMillis(createdAt)
	return member, nil
}
