package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/auth"
	"github.com/greenroomhq/greenroom/internal/club/cache"
	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// AdminService manages administrator appointments.
type AdminService struct {
	admins      storage.AdminStore
	users       storage.UserStore
	cache       *cache.Cache
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewAdminService creates an AdminService with default clock and ID generator.
func NewAdminService(admins storage.AdminStore, users storage.UserStore, cacheLayer *cache.Cache) *AdminService {
	return &AdminService{
		admins:      admins,
		users:       users,
		cache:       cacheLayer,
		clock:       time.Now,
		idGenerator: domain.NewID,
	}
}

// CreateAdminInput describes a service-level appointment request.
type CreateAdminInput struct {
	StudentID         string
	Role              string
	AppointmentReason string
}

// CreateAdmin appoints a member as administrator. The target must be active
// and not already appointed. The acting identity must itself be an
// administrator unless it is the system appointer.
func (s *AdminService) CreateAdmin(ctx context.Context, actingID string, input CreateAdminInput) (domain.Admin, error) {
	if s == nil || s.admins == nil || s.users == nil {
		return domain.Admin{}, fmt.Errorf("admin service is not configured")
	}

	if actingID != domain.SystemAppointer {
		ok, err := s.IsAdmin(ctx, actingID)
		if err != nil {
			return domain.Admin{}, err
		}
		if !ok {
			return domain.Admin{}, domain.ErrNotAuthorized
		}
	}

	user, err := s.users.GetUserByStudentID(ctx, strings.TrimSpace(input.StudentID))
	if err != nil {
		return domain.Admin{}, err
	}

	if _, err := s.admins.GetAdminByStudentID(ctx, user.StudentID); err == nil {
		return domain.Admin{}, domain.ErrAlreadyAdmin
	} else if !errors.Is(err, storage.ErrNotFound) {
		return domain.Admin{}, fmt.Errorf("check existing admin: %w", err)
	}

	admin, err := domain.CreateAdmin(user, domain.CreateAdminInput{
		Role:              input.Role,
		AppointedBy:       actingID,
		AppointmentReason: input.AppointmentReason,
	}, s.clock, s.idGenerator)
	if err != nil {
		return domain.Admin{}, err
	}

	if err := s.admins.PutAdmin(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return domain.Admin{}, domain.ErrAlreadyAdmin
		}
		return domain.Admin{}, fmt.Errorf("persist admin: %w", err)
	}

	s.cache.ExpireAdminScope(ctx)
	return admin, nil
}

// GetAdmin returns the appointment record for a student identity, cache-aside.
func (s *AdminService) GetAdmin(ctx context.Context, studentID string) (domain.Admin, error) {
	if s == nil || s.admins == nil {
		return domain.Admin{}, fmt.Errorf("admin service is not configured")
	}
	if admin, ok := s.cache.CachedAdmin(ctx, studentID); ok {
		return admin, nil
	}

	admin, err := s.admins.GetAdminByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		return domain.Admin{}, err
	}
	s.cache.SetAdmin(ctx, admin)
	return admin, nil
}

// ListAdmins returns every appointment record, cache-aside.
func (s *AdminService) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	if s == nil || s.admins == nil {
		return nil, fmt.Errorf("admin service is not configured")
	}
	if admins, ok := s.cache.CachedAdmins(ctx); ok {
		return admins, nil
	}

	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetAdmins(ctx, admins)
	return admins, nil
}

// UpdateAdminRole changes an administrator's role label. Admin only.
func (s *AdminService) UpdateAdminRole(ctx context.Context, actingID, studentID, role string) (domain.Admin, error) {
	if s == nil || s.admins == nil {
		return domain.Admin{}, fmt.Errorf("admin service is not configured")
	}

	ok, err := s.IsAdmin(ctx, actingID)
	if err != nil {
		return domain.Admin{}, err
	}
	if !ok {
		return domain.Admin{}, domain.ErrNotAuthorized
	}

	role = strings.TrimSpace(role)
	if role == "" {
		return domain.Admin{}, domain.ErrEmptyRole
	}

	admin, err := s.admins.GetAdminByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		return domain.Admin{}, err
	}

	admin.Role = role
	admin.UpdatedAt = s.clock().UTC()
	if err := s.admins.UpdateAdmin(ctx, admin); err != nil {
		return domain.Admin{}, fmt.Errorf("persist admin update: %w", err)
	}

	s.cache.ExpireAdminScope(ctx)
	return admin, nil
}

// DeleteAdmin revokes an appointment. Admin only.
func (s *AdminService) DeleteAdmin(ctx context.Context, actingID, studentID string) error {
	if s == nil || s.admins == nil {
		return fmt.Errorf("admin service is not configured")
	}

	ok, err := s.IsAdmin(ctx, actingID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotAuthorized
	}

	if err := s.admins.DeleteAdminByStudentID(ctx, strings.TrimSpace(studentID)); err != nil {
		return err
	}

	s.cache.ExpireAdminScope(ctx)
	return nil
}

// IsAdmin reports whether a student identity holds an appointment.
func (s *AdminService) IsAdmin(ctx context.Context, studentID string) (bool, error) {
	if s == nil || s.admins == nil {
		return false, fmt.Errorf("admin service is not configured")
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return false, nil
	}

	if _, ok := s.cache.CachedAdmin(ctx, studentID); ok {
		return true, nil
	}

	admin, err := s.admins.GetAdminByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check admin %s: %w", studentID, err)
	}
	s.cache.SetAdmin(ctx, admin)
	return true, nil
}

var _ auth.Guard = (*AdminService)(nil)
