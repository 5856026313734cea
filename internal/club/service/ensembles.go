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

// EnsembleService manages event set lists: which pieces are played at an
// event and who plays which part.
type EnsembleService struct {
	ensembles   storage.EnsembleStore
	events      storage.EventStore
	users       storage.UserStore
	cache       *cache.Cache
	guard       auth.Guard
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewEnsembleService creates an EnsembleService with default clock and ID
// generator.
func NewEnsembleService(ensembles storage.EnsembleStore, events storage.EventStore, users storage.UserStore, cacheLayer *cache.Cache, guard auth.Guard) *EnsembleService {
	return &EnsembleService{
		ensembles:   ensembles,
		events:      events,
		users:       users,
		cache:       cacheLayer,
		guard:       guard,
		clock:       time.Now,
		idGenerator: domain.NewID,
	}
}

// CreateEnsembleInput describes a service-level set-list creation request.
// Members maps student identities to the part they play.
type CreateEnsembleInput struct {
	EventID string
	Artist  string
	Title   string
	Notes   string
	Members map[string]domain.EnsemblePart
}

// CreateEnsemble adds a piece to an event's set list, with an optional
// initial roster. Admin only.
func (s *EnsembleService) CreateEnsemble(ctx context.Context, actingID string, input CreateEnsembleInput) (domain.Ensemble, error) {
	if s == nil || s.ensembles == nil || s.events == nil {
		return domain.Ensemble{}, fmt.Errorf("ensemble service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.Ensemble{}, err
	}

	if _, err := s.events.GetEvent(ctx, strings.TrimSpace(input.EventID)); err != nil {
		return domain.Ensemble{}, fmt.Errorf("resolve event %s: %w", input.EventID, err)
	}

	ensemble, err := domain.CreateEnsemble(domain.CreateEnsembleInput{
		EventID: input.EventID,
		Artist:  input.Artist,
		Title:   input.Title,
		Notes:   input.Notes,
	}, s.clock, s.idGenerator)
	if err != nil {
		return domain.Ensemble{}, err
	}

	if err := s.ensembles.PutEnsemble(ctx, ensemble); err != nil {
		return domain.Ensemble{}, fmt.Errorf("persist ensemble: %w", err)
	}

	for studentID, part := range input.Members {
		if _, err := s.addMember(ctx, ensemble.ID, studentID, part); err != nil {
			return domain.Ensemble{}, fmt.Errorf("add member %s: %w", studentID, err)
		}
	}

	s.cache.ExpireEnsembleScope(ctx)
	return ensemble, nil
}

// GetEnsemble returns one set-list piece, cache-aside.
func (s *EnsembleService) GetEnsemble(ctx context.Context, ensembleID string) (domain.Ensemble, error) {
	if s == nil || s.ensembles == nil {
		return domain.Ensemble{}, fmt.Errorf("ensemble service is not configured")
	}
	if ensemble, ok := s.cache.CachedEnsemble(ctx, ensembleID); ok {
		return ensemble, nil
	}

	ensemble, err := s.ensembles.GetEnsemble(ctx, ensembleID)
	if err != nil {
		return domain.Ensemble{}, err
	}
	s.cache.SetEnsemble(ctx, ensemble)
	return ensemble, nil
}

// ListEnsemblesByEvent returns an event's set list, cache-aside.
func (s *EnsembleService) ListEnsemblesByEvent(ctx context.Context, eventID string) ([]domain.Ensemble, error) {
	if s == nil || s.ensembles == nil || s.events == nil {
		return nil, fmt.Errorf("ensemble service is not configured")
	}
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	if ensembles, ok := s.cache.CachedEventEnsembles(ctx, eventID); ok {
		return ensembles, nil
	}
	ensembles, err := s.ensembles.ListEnsemblesByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.cache.SetEventEnsembles(ctx, eventID, ensembles)
	return ensembles, nil
}

// ListActiveEnsembles returns every active set-list piece.
func (s *EnsembleService) ListActiveEnsembles(ctx context.Context) ([]domain.Ensemble, error) {
	if s == nil || s.ensembles == nil {
		return nil, fmt.Errorf("ensemble service is not configured")
	}
	return s.ensembles.ListActiveEnsembles(ctx)
}

// ListEnsemblesByUser returns the pieces a member plays in.
func (s *EnsembleService) ListEnsemblesByUser(ctx context.Context, studentID string) ([]domain.Ensemble, error) {
	if s == nil || s.ensembles == nil || s.users == nil {
		return nil, fmt.Errorf("ensemble service is not configured")
	}
	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.ensembles.ListEnsemblesByUser(ctx, user.ID)
}

// SearchEnsembles matches a keyword against artist and title, newest first.
// An empty keyword returns nothing rather than the whole catalog.
func (s *EnsembleService) SearchEnsembles(ctx context.Context, keyword string) ([]domain.Ensemble, error) {
	if s == nil || s.ensembles == nil {
		return nil, fmt.Errorf("ensemble service is not configured")
	}
	if strings.TrimSpace(keyword) == "" {
		return nil, nil
	}
	return s.ensembles.SearchEnsembles(ctx, keyword)
}

// UpdateEnsemble applies a partial update to a set-list piece. Admin only.
func (s *EnsembleService) UpdateEnsemble(ctx context.Context, actingID, ensembleID string, patch domain.EnsemblePatch) (domain.Ensemble, error) {
	if s == nil || s.ensembles == nil {
		return domain.Ensemble{}, fmt.Errorf("ensemble service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.Ensemble{}, err
	}

	ensemble, err := s.ensembles.GetEnsemble(ctx, ensembleID)
	if err != nil {
		return domain.Ensemble{}, err
	}

	updated, err := patch.Apply(ensemble, s.clock)
	if err != nil {
		return domain.Ensemble{}, err
	}
	if err := s.ensembles.UpdateEnsemble(ctx, updated); err != nil {
		return domain.Ensemble{}, fmt.Errorf("persist ensemble update: %w", err)
	}
	updated.Version++

	s.cache.ExpireEnsembleScope(ctx)
	return updated, nil
}

// DeleteEnsemble removes a piece and its roster. Admin only.
func (s *EnsembleService) DeleteEnsemble(ctx context.Context, actingID, ensembleID string) error {
	if s == nil || s.ensembles == nil {
		return fmt.Errorf("ensemble service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return err
	}

	if _, err := s.ensembles.GetEnsemble(ctx, ensembleID); err != nil {
		return err
	}
	if err := s.ensembles.DeleteEnsembleMembersByEnsemble(ctx, ensembleID); err != nil {
		return fmt.Errorf("delete ensemble roster: %w", err)
	}
	if err := s.ensembles.DeleteEnsemble(ctx, ensembleID); err != nil {
		return fmt.Errorf("delete ensemble: %w", err)
	}

	s.cache.ExpireEnsembleScope(ctx)
	return nil
}

// ListEnsembleMembers returns a piece's roster.
func (s *EnsembleService) ListEnsembleMembers(ctx context.Context, ensembleID string) ([]domain.EnsembleMember, error) {
	if s == nil || s.ensembles == nil {
		return nil, fmt.Errorf("ensemble service is not configured")
	}
	if _, err := s.ensembles.GetEnsemble(ctx, ensembleID); err != nil {
		return nil, err
	}
	return s.ensembles.ListEnsembleMembers(ctx, ensembleID)
}

// AddEnsembleMember assigns a member to a part in a piece. Admin only. The
// member must be in active status and not already on the piece's roster.
func (s *EnsembleService) AddEnsembleMember(ctx context.Context, actingID, ensembleID, studentID string, part domain.EnsemblePart) (domain.EnsembleMember, error) {
	if s == nil || s.ensembles == nil || s.users == nil {
		return domain.EnsembleMember{}, fmt.Errorf("ensemble service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return domain.EnsembleMember{}, err
	}

	if _, err := s.ensembles.GetEnsemble(ctx, ensembleID); err != nil {
		return domain.EnsembleMember{}, err
	}

	member, err := s.addMember(ctx, ensembleID, studentID, part)
	if err != nil {
		return domain.EnsembleMember{}, err
	}

	s.cache.ExpireEnsembleScope(ctx)
	return member, nil
}

// RemoveEnsembleMember takes a member off a piece's roster. Admin only.
func (s *EnsembleService) RemoveEnsembleMember(ctx context.Context, actingID, ensembleID, studentID string) error {
	if s == nil || s.ensembles == nil || s.users == nil {
		return fmt.Errorf("ensemble service is not configured")
	}
	if err := s.requireAdmin(ctx, actingID); err != nil {
		return err
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return err
	}

	member, err := s.ensembles.GetEnsembleMember(ctx, ensembleID, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrNotEnsembleMember
		}
		return fmt.Errorf("check roster: %w", err)
	}
	if err := s.ensembles.DeleteEnsembleMember(ctx, member.ID); err != nil {
		return fmt.Errorf("delete roster entry: %w", err)
	}

	s.cache.ExpireEnsembleScope(ctx)
	return nil
}

func (s *EnsembleService) addMember(ctx context.Context, ensembleID, studentID string, part domain.EnsemblePart) (domain.EnsembleMember, error) {
	user, err := s.users.GetUserByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		return domain.EnsembleMember{}, err
	}
	if !user.IsActive() {
		return domain.EnsembleMember{}, domain.ErrUserNotEligible
	}

	if _, err := s.ensembles.GetEnsembleMember(ctx, ensembleID, user.ID); err == nil {
		return domain.EnsembleMember{}, domain.ErrAlreadyEnsembleMember
	} else if !errors.Is(err, storage.ErrNotFound) {
		return domain.EnsembleMember{}, fmt.Errorf("check roster: %w", err)
	}

	member, err := domain.CreateEnsembleMember(ensembleID, user.ID, part, s.clock, s.idGenerator)
	if err != nil {
		return domain.EnsembleMember{}, err
	}
	if err := s.ensembles.PutEnsembleMember(ctx, member); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return domain.EnsembleMember{}, domain.ErrAlreadyEnsembleMember
		}
		return domain.EnsembleMember{}, fmt.Errorf("persist roster entry: %w", err)
	}
	return member, nil
}

func (s *EnsembleService) requireAdmin(ctx context.Context, actingID string) error {
	if s.guard == nil {
		return fmt.Errorf("authorization guard is not configured")
	}
	ok, err := s.guard.IsAdmin(ctx, actingID)
	if err != nil {
		return fmt.Errorf("authorize %s: %w", actingID, err)
	}
	if !ok {
		return domain.ErrNotAuthorized
	}
	return nil
}
