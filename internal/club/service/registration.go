package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/greenroomhq/greenroom/internal/club/auth"
	"github.com/greenroomhq/greenroom/internal/club/cache"
	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// maxRegisterAttempts bounds the optimistic retry loop on the shared counter.
const maxRegisterAttempts = 5

// RegistrationService registers and unregisters users for events.
//
// Capacity and uniqueness anchor at the root of an event tree: registering for
// any node in the tree claims one slot of the root's shared headcount, and a
// user holds at most one registration per tree.
type RegistrationService struct {
	events       storage.EventStore
	participants storage.ParticipantStore
	users        storage.UserStore
	cache        *cache.Cache
	guard        auth.Guard
	clock        func() time.Time
	idGenerator  func() (string, error)
	tracer       trace.Tracer
}

// NewRegistrationService creates a RegistrationService with default clock and
// ID generator.
func NewRegistrationService(events storage.EventStore, participants storage.ParticipantStore, users storage.UserStore, cacheLayer *cache.Cache, guard auth.Guard) *RegistrationService {
	return &RegistrationService{
		events:       events,
		participants: participants,
		users:        users,
		cache:        cacheLayer,
		guard:        guard,
		clock:        time.Now,
		idGenerator:  domain.NewID,
		tracer:       otel.Tracer("greenroom/registration"),
	}
}

// Register registers a user for an event tree.
//
// The acting identity must be the user themselves or an administrator. The
// target user must be active. The counter increment is guarded by the root
// event's version token; a lost race re-reads the root and retries from the
// capacity check, at most maxRegisterAttempts times.
func (s *RegistrationService) Register(ctx context.Context, actingID, eventID, studentID string) (domain.Participant, error) {
	if s == nil || s.events == nil || s.participants == nil || s.users == nil {
		return domain.Participant{}, fmt.Errorf("registration service is not configured")
	}

	ctx, span := s.span(ctx, "Register", eventID, studentID)
	defer span.End()

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Participant{}, err
	}
	root := event
	if !event.IsRoot() {
		root, err = s.events.GetEvent(ctx, event.RootID)
		if err != nil {
			return domain.Participant{}, fmt.Errorf("resolve root %s: %w", event.RootID, err)
		}
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return domain.Participant{}, err
	}

	if err := s.authorizeActor(ctx, actingID, studentID); err != nil {
		return domain.Participant{}, err
	}
	if !user.IsActive() {
		return domain.Participant{}, domain.ErrUserNotEligible
	}

	if _, err := s.participants.GetParticipant(ctx, root.ID, user.ID); err == nil {
		return domain.Participant{}, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, storage.ErrNotFound) {
		return domain.Participant{}, fmt.Errorf("check registration: %w", err)
	}

	for attempt := 0; ; attempt++ {
		if attempt >= maxRegisterAttempts {
			return domain.Participant{}, domain.ErrContentionExceeded
		}
		if root.IsFull() {
			return domain.Participant{}, domain.ErrCapacityExceeded
		}

		err := s.events.UpdateParticipantCount(ctx, root.ID, root.CurrentParticipants+1, root.Version)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return domain.Participant{}, fmt.Errorf("increment participants: %w", err)
		}

		root, err = s.events.GetEvent(ctx, root.ID)
		if err != nil {
			return domain.Participant{}, fmt.Errorf("re-read root %s: %w", root.ID, err)
		}
	}

	participant, err := domain.CreateParticipant(root.ID, user.ID, s.clock, s.idGenerator)
	if err != nil {
		if relErr := s.releaseSlot(ctx, root.ID); relErr != nil {
			log.Printf("release slot event_id=%s user_id=%s error=%v", root.ID, user.ID, relErr)
		}
		return domain.Participant{}, err
	}
	if err := s.participants.PutParticipant(ctx, participant); err != nil {
		// The increment committed but the row did not. Return the slot so the
		// shared counter stays in step with the roster.
		if relErr := s.releaseSlot(ctx, root.ID); relErr != nil {
			log.Printf("release slot event_id=%s user_id=%s error=%v", root.ID, user.ID, relErr)
		}
		if errors.Is(err, storage.ErrDuplicate) {
			return domain.Participant{}, domain.ErrAlreadyRegistered
		}
		return domain.Participant{}, fmt.Errorf("persist registration: %w", err)
	}

	s.cache.ExpireRegistration(ctx, root.ID, user.ID)
	return participant, nil
}

// Unregister removes a user's registration from an event tree and releases
// the slot.
func (s *RegistrationService) Unregister(ctx context.Context, actingID, eventID, studentID string) error {
	if s == nil || s.events == nil || s.participants == nil || s.users == nil {
		return fmt.Errorf("registration service is not configured")
	}

	ctx, span := s.span(ctx, "Unregister", eventID, studentID)
	defer span.End()

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	root := event
	if !event.IsRoot() {
		root, err = s.events.GetEvent(ctx, event.RootID)
		if err != nil {
			return fmt.Errorf("resolve root %s: %w", event.RootID, err)
		}
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return err
	}

	if err := s.authorizeActor(ctx, actingID, studentID); err != nil {
		return err
	}

	participant, err := s.participants.GetParticipant(ctx, root.ID, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrNotRegistered
		}
		return fmt.Errorf("check registration: %w", err)
	}

	if err := s.releaseSlot(ctx, root.ID); err != nil {
		return err
	}

	if err := s.participants.DeleteParticipant(ctx, participant.ID); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}

	s.cache.ExpireRegistration(ctx, root.ID, user.ID)
	return nil
}

// ListParticipantsByEvent returns the roster anchored at an event's root,
// cache-aside.
func (s *RegistrationService) ListParticipantsByEvent(ctx context.Context, eventID string) ([]domain.Participant, error) {
	if s == nil || s.events == nil || s.participants == nil {
		return nil, fmt.Errorf("registration service is not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if participants, ok := s.cache.CachedEventParticipants(ctx, event.RootID); ok {
		return participants, nil
	}
	participants, err := s.participants.ListParticipantsByEvent(ctx, event.RootID)
	if err != nil {
		return nil, err
	}
	s.cache.SetEventParticipants(ctx, event.RootID, participants)
	return participants, nil
}

// ListParticipantsByUser returns a user's registrations, cache-aside.
func (s *RegistrationService) ListParticipantsByUser(ctx context.Context, studentID string) ([]domain.Participant, error) {
	if s == nil || s.participants == nil || s.users == nil {
		return nil, fmt.Errorf("registration service is not configured")
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if participants, ok := s.cache.CachedUserParticipants(ctx, user.ID); ok {
		return participants, nil
	}
	participants, err := s.participants.ListParticipantsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.cache.SetUserParticipants(ctx, user.ID, participants)
	return participants, nil
}

// releaseSlot returns one slot to the root's shared counter under the same
// version guard as the increment, clamping at zero.
func (s *RegistrationService) releaseSlot(ctx context.Context, rootID string) error {
	root, err := s.events.GetEvent(ctx, rootID)
	if err != nil {
		return fmt.Errorf("read root %s: %w", rootID, err)
	}

	for attempt := 0; ; attempt++ {
		if attempt >= maxRegisterAttempts {
			return domain.ErrContentionExceeded
		}

		next := root.CurrentParticipants - 1
		if next < 0 {
			// Counter already at zero with a registration row present. Clamp
			// and continue so the row can still be removed.
			log.Printf("registration counter below zero event_id=%s count=%d", root.ID, root.CurrentParticipants)
			next = 0
		}

		err := s.events.UpdateParticipantCount(ctx, root.ID, next, root.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return fmt.Errorf("decrement participants: %w", err)
		}

		root, err = s.events.GetEvent(ctx, root.ID)
		if err != nil {
			return fmt.Errorf("re-read root %s: %w", root.ID, err)
		}
	}
}

// authorizeActor allows the user themselves or an administrator.
func (s *RegistrationService) authorizeActor(ctx context.Context, actingID, studentID string) error {
	if auth.IdentityMatches(actingID, studentID) {
		return nil
	}
	if s.guard == nil {
		return domain.ErrNotAuthorized
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

func (s *RegistrationService) span(ctx context.Context, name, eventID, studentID string) (context.Context, trace.Span) {
	if s.tracer == nil {
		s.tracer = otel.Tracer("greenroom/registration")
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("student.id", studentID),
	))
}
