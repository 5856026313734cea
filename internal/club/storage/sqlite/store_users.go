package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

const userColumns = `id, student_id, username, email, phone, batch, session, status, status_changed_at, last_login_at, created_at, updated_at`

// PutUser inserts a new member record.
func (s *Store) PutUser(ctx context.Context, user domain.User) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.StudentID,
		user.Username,
		user.Email,
		user.Phone,
		user.Batch,
		user.Session.String(),
		user.Status.String(),
		toMillis(user.StatusChangedAt),
		loginMillis(user),
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put user %s: %w", user.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("put user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByStudentID loads a member by their student identity.
func (s *Store) GetUserByStudentID(ctx context.Context, studentID string) (domain.User, error) {
	if s == nil || s.sqlDB == nil {
		return domain.User{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE student_id = ?`,
		studentID,
	)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, storage.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user %s: %w", studentID, err)
	}
	return user, nil
}

// ListUsersByStatus returns every member in the given lifecycle status.
func (s *Store) ListUsersByStatus(ctx context.Context, status domain.UserStatus) ([]domain.User, error) {
	return s.queryUsers(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE status = ? ORDER BY student_id ASC`,
		status.String(),
	)
}

// ListUsersByStudentIDs returns the members matching the given identities.
// Unknown identities are simply absent from the result.
func (s *Store) ListUsersByStudentIDs(ctx context.Context, studentIDs []string) ([]domain.User, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(studentIDs)), ", ")
	args := make([]any, 0, len(studentIDs))
	for _, id := range studentIDs {
		args = append(args, id)
	}
	return s.queryUsers(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE student_id IN (`+placeholders+`) ORDER BY student_id ASC`,
		args...,
	)
}

// UpdateUser rewrites mutable member fields. The student identity is fixed at
// creation and never rewritten.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users
		SET username = ?, email = ?, phone = ?, batch = ?, session = ?,
			status = ?, status_changed_at = ?, last_login_at = ?, updated_at = ?
		WHERE id = ?`,
		user.Username,
		user.Email,
		user.Phone,
		user.Batch,
		user.Session.String(),
		user.Status.String(),
		toMillis(user.StatusChangedAt),
		loginMillis(user),
		toMillis(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user %s: %w", user.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("update user %s: %w", user.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %s: rows affected: %w", user.ID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser removes a member record permanently.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UserExists reports whether any member already claims the given student
// identity, email, or phone. Empty email and phone values are not compared.
func (s *Store) UserExists(ctx context.Context, studentID, email, phone string) (bool, error) {
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	query := `SELECT COUNT(*) FROM users WHERE student_id = ?`
	args := []any{studentID}
	if email != "" {
		query += ` OR email = ?`
		args = append(args, email)
	}
	if phone != "" {
		query += ` OR phone = ?`
		args = append(args, phone)
	}

	var count int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return count > 0, nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var user domain.User
	var session, status string
	var statusChangedAt, lastLoginAt, createdAt, updatedAt int64
	if err := row.Scan(
		&user.ID,
		&user.StudentID,
		&user.Username,
		&user.Email,
		&user.Phone,
		&user.Batch,
		&session,
		&status,
		&statusChangedAt,
		&lastLoginAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.User{}, err
	}

	parsedSession, err := domain.SessionTypeFromString(session)
	if err != nil {
		return domain.User{}, err
	}
	parsedStatus, err := domain.UserStatusFromString(status)
	if err != nil {
		return domain.User{}, err
	}

	user.Session = parsedSession
	user.Status = parsedStatus
	user.StatusChangedAt = fromMillis(statusChangedAt)
	if lastLoginAt != 0 {
		user.LastLoginAt = fromMillis(lastLoginAt)
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// loginMillis persists a zero last-login as 0 rather than a negative epoch.
func loginMillis(user domain.User) int64 {
	if user.LastLoginAt.IsZero() {
		return 0
	}
	return toMillis(user.LastLoginAt)
}
