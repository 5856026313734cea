package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

const adminColumns = `id, user_id, student_id, role, appointed_by, appointment_reason, created_at, updated_at`

// PutAdmin inserts an administrator record. The user_id and student_id unique
// constraints keep appointments to one record per member.
func (s *Store) PutAdmin(ctx context.Context, admin domain.Admin) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO admins (`+adminColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		admin.ID,
		admin.UserID,
		admin.StudentID,
		admin.Role,
		admin.AppointedBy,
		admin.AppointmentReason,
		toMillis(admin.CreatedAt),
		toMillis(admin.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put admin %s: %w", admin.ID, storage.ErrDuplicate)
		}
		return fmt.Errorf("put admin %s: %w", admin.ID, err)
	}
	return nil
}

// GetAdminByStudentID loads the administrator record for a student identity.
func (s *Store) GetAdminByStudentID(ctx context.Context, studentID string) (domain.Admin, error) {
	if s == nil || s.sqlDB == nil {
		return domain.Admin{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+adminColumns+` FROM admins WHERE student_id = ?`,
		studentID,
	)
	admin, err := scanAdmin(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Admin{}, storage.ErrNotFound
		}
		return domain.Admin{}, fmt.Errorf("get admin %s: %w", studentID, err)
	}
	return admin, nil
}

// ListAdmins returns every administrator record.
func (s *Store) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+adminColumns+` FROM admins ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var admins []domain.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admins: %w", err)
	}
	return admins, nil
}

// UpdateAdmin rewrites the mutable appointment fields.
func (s *Store) UpdateAdmin(ctx context.Context, admin domain.Admin) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE admins SET role = ?, appointment_reason = ?, updated_at = ? WHERE id = ?`,
		admin.Role,
		admin.AppointmentReason,
		toMillis(admin.UpdatedAt),
		admin.ID,
	)
	if err != nil {
		return fmt.Errorf("update admin %s: %w", admin.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin %s: rows affected: %w", admin.ID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteAdminByStudentID revokes the appointment for a student identity.
func (s *Store) DeleteAdminByStudentID(ctx context.Context, studentID string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM admins WHERE student_id = ?`, studentID)
	if err != nil {
		return fmt.Errorf("delete admin %s: %w", studentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete admin %s: rows affected: %w", studentID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAdmin(row rowScanner) (domain.Admin, error) {
	var admin domain.Admin
	var createdAt, updatedAt int64
	if err := row.Scan(
		&admin.ID,
		&admin.UserID,
		&admin.StudentID,
		&admin.Role,
		&admin.AppointedBy,
		&admin.AppointmentReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Admin{}, err
	}
	admin.CreatedAt = fromMillis(createdAt)
	admin.UpdatedAt = fromMillis(updatedAt)
	return admin, nil
}
