// Package cache provides cache-aside read and eviction helpers over the club
// cache store.
//
// Cached payloads are JSON-encoded domain values and are always derived state:
// a miss, a decode failure, or a store error falls back to an authoritative
// read. Mutators evict synchronously before returning so the next read cannot
// observe a stale payload.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// Cache scopes group keys for bulk eviction.
const (
	ScopeEvents       = "events"
	ScopeParticipants = "participants"
	ScopeUsers        = "users"
	ScopeAdmins       = "admins"
	ScopeEnsembles    = "ensembles"
)

// Event list views cached under the events scope.
const (
	ViewAll      = "all"
	ViewActive   = "active"
	ViewUpcoming = "upcoming"
	ViewOngoing  = "ongoing"
	ViewPast     = "past"
)

const (
	eventDetailTTL  = 5 * time.Minute
	eventListTTL    = 30 * time.Second
	participantsTTL = 30 * time.Second
	userDetailTTL   = 5 * time.Minute
	adminListTTL    = 5 * time.Minute
	ensembleTTL     = 5 * time.Minute
)

// Cache owns cache read/write operations for club read paths.
type Cache struct {
	store storage.CacheStore
	clock func() time.Time
}

// New constructs cache helpers over the given cache store. A nil clock
// defaults to time.Now.
func New(store storage.CacheStore, clock func() time.Time) *Cache {
	if clock == nil {
		clock = time.Now
	}
	return &Cache{store: store, clock: clock}
}

func eventDetailKey(eventID string) string {
	return "event:id:" + strings.TrimSpace(eventID)
}

func eventListKey(view string) string {
	return "events:" + strings.TrimSpace(view)
}

func eventTypeKey(eventType domain.EventType) string {
	return "events:type:" + eventType.String()
}

func eventParticipantsKey(rootEventID string) string {
	return "participants:event:" + strings.TrimSpace(rootEventID)
}

func userParticipantsKey(userID string) string {
	return "participants:user:" + strings.TrimSpace(userID)
}

func userDetailKey(studentID string) string {
	return "user:student:" + strings.TrimSpace(studentID)
}

func adminListKey() string {
	return "admins:all"
}

func adminDetailKey(studentID string) string {
	return "admin:student:" + strings.TrimSpace(studentID)
}

func ensembleDetailKey(ensembleID string) string {
	return "ensemble:id:" + strings.TrimSpace(ensembleID)
}

func eventEnsemblesKey(eventID string) string {
	return "ensembles:event:" + strings.TrimSpace(eventID)
}

func normalizeContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (c *Cache) cachedPayload(ctx context.Context, cacheKey string) ([]byte, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	ctx = normalizeContext(ctx)

	entry, ok, err := c.store.GetCacheEntry(ctx, cacheKey)
	if err != nil || !ok {
		return nil, false
	}
	if !entry.ExpiresAt.IsZero() && c.clock().After(entry.ExpiresAt) {
		_ = c.store.DeleteCacheEntry(ctx, cacheKey)
		return nil, false
	}
	if len(entry.PayloadBytes) == 0 {
		return nil, false
	}
	return entry.PayloadBytes, true
}

func (c *Cache) putPayload(ctx context.Context, cacheKey, scope string, ttl time.Duration, payload []byte) {
	if c == nil || c.store == nil || len(payload) == 0 {
		return
	}
	now := c.clock().UTC()
	_ = c.store.PutCacheEntry(normalizeContext(ctx), storage.CacheEntry{
		CacheKey:     cacheKey,
		Scope:        scope,
		PayloadBytes: payload,
		RefreshedAt:  now,
		ExpiresAt:    now.Add(ttl),
	})
}

func (c *Cache) deleteKey(ctx context.Context, cacheKey string) {
	if c == nil || c.store == nil {
		return
	}
	_ = c.store.DeleteCacheEntry(normalizeContext(ctx), cacheKey)
}

func (c *Cache) deleteScope(ctx context.Context, scope string) {
	if c == nil || c.store == nil {
		return
	}
	_ = c.store.DeleteCacheScope(normalizeContext(ctx), scope)
}

// CachedEvent returns the cached detail for a single event.
func (c *Cache) CachedEvent(ctx context.Context, eventID string) (domain.Event, bool) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return domain.Event{}, false
	}
	key := eventDetailKey(eventID)
	payload, ok := c.cachedPayload(ctx, key)
	if !ok {
		return domain.Event{}, false
	}

	var event domain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		c.deleteKey(ctx, key)
		return domain.Event{}, false
	}
	return event, true
}

// SetEvent stores the detail payload for a single event.
func (c *Cache) SetEvent(ctx context.Context, event domain.Event) {
	if strings.TrimSpace(event.ID) == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.putPayload(ctx, eventDetailKey(event.ID), ScopeEvents, eventDetailTTL, payload)
}

// CachedEventList returns a cached event list view.
func (c *Cache) CachedEventList(ctx context.Context, view string) ([]domain.Event, bool) {
	return c.cachedEvents(ctx, eventListKey(view))
}

// SetEventList stores an event list view.
func (c *Cache) SetEventList(ctx context.Context, view string, events []domain.Event) {
	payload, err := json.Marshal(events)
	if err != nil {
		return
	}
	c.putPayload(ctx, eventListKey(view), ScopeEvents, eventListTTL, payload)
}

// CachedEventsByType returns the cached list of events of one type.
func (c *Cache) CachedEventsByType(ctx context.Context, eventType domain.EventType) ([]domain.Event, bool) {
	return c.cachedEvents(ctx, eventTypeKey(eventType))
}

// SetEventsByType stores the list of events of one type.
func (c *Cache) SetEventsByType(ctx context.Context, eventType domain.EventType, events []domain.Event) {
	payload, err := json.Marshal(events)
	if err != nil {
		return
	}
	c.putPayload(ctx, eventTypeKey(eventType), ScopeEvents, eventListTTL, payload)
}

func (c *Cache) cachedEvents(ctx context.Context, key string) ([]domain.Event, bool) {
	payload, ok := c.cachedPayload(ctx, key)
	if !ok {
		return nil, false
	}
	var events []domain.Event
	if err := json.Unmarshal(payload, &events); err != nil {
		c.deleteKey(ctx, key)
		return nil, false
	}
	return events, true
}

// ExpireEvent evicts the detail payload for a single event.
func (c *Cache) ExpireEvent(ctx context.Context, eventID string) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return
	}
	c.deleteKey(ctx, eventDetailKey(eventID))
}

// ExpireEventScope evicts every event detail and list payload. Mutations of
// the event tree call this before returning.
func (c *Cache) ExpireEventScope(ctx context.Context) {
	c.deleteScope(ctx, ScopeEvents)
}

// CachedEventParticipants returns the cached roster for a root event.
func (c *Cache) CachedEventParticipants(ctx context.Context, rootEventID string) ([]domain.Participant, bool) {
	rootEventID = strings.TrimSpace(rootEventID)
	if rootEventID == "" {
		return nil, false
	}
	return c.cachedParticipants(ctx, eventParticipantsKey(rootEventID))
}

// SetEventParticipants stores the roster for a root event.
func (c *Cache) SetEventParticipants(ctx context.Context, rootEventID string, participants []domain.Participant) {
	rootEventID = strings.TrimSpace(rootEventID)
	if rootEventID == "" {
		return
	}
	payload, err := json.Marshal(participants)
	if err != nil {
		return
	}
	c.putPayload(ctx, eventParticipantsKey(rootEventID), ScopeParticipants, participantsTTL, payload)
}

// CachedUserParticipants returns a user's cached registrations.
func (c *Cache) CachedUserParticipants(ctx context.Context, userID string) ([]domain.Participant, bool) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, false
	}
	return c.cachedParticipants(ctx, userParticipantsKey(userID))
}

// SetUserParticipants stores a user's registrations.
func (c *Cache) SetUserParticipants(ctx context.Context, userID string, participants []domain.Participant) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	payload, err := json.Marshal(participants)
	if err != nil {
		return
	}
	c.putPayload(ctx, userParticipantsKey(userID), ScopeParticipants, participantsTTL, payload)
}

func (c *Cache) cachedParticipants(ctx context.Context, key string) ([]domain.Participant, bool) {
	payload, ok := c.cachedPayload(ctx, key)
	if !ok {
		return nil, false
	}
	var participants []domain.Participant
	if err := json.Unmarshal(payload, &participants); err != nil {
		c.deleteKey(ctx, key)
		return nil, false
	}
	return participants, true
}

// ExpireRegistration evicts the payloads a registration change invalidates:
// the root event detail, every event list, the event roster, and the user's
// registrations.
func (c *Cache) ExpireRegistration(ctx context.Context, rootEventID, userID string) {
	c.deleteScope(ctx, ScopeEvents)
	c.deleteKey(ctx, eventParticipantsKey(strings.TrimSpace(rootEventID)))
	c.deleteKey(ctx, userParticipantsKey(strings.TrimSpace(userID)))
}

// ExpireEventParticipants evicts the roster payload for a root event.
func (c *Cache) ExpireEventParticipants(ctx context.Context, rootEventID string) {
	rootEventID = strings.TrimSpace(rootEventID)
	if rootEventID == "" {
		return
	}
	c.deleteKey(ctx, eventParticipantsKey(rootEventID))
}

// ExpireUserParticipants evicts a user's registrations payload.
func (c *Cache) ExpireUserParticipants(ctx context.Context, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	c.deleteKey(ctx, userParticipantsKey(userID))
}

// CachedUser returns the cached member for a student identity.
func (c *Cache) CachedUser(ctx context.Context, studentID string) (domain.User, bool) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return domain.User{}, false
	}
	key := userDetailKey(studentID)
	payload, ok := c.cachedPayload(ctx, key)
	if !ok {
		return domain.User{}, false
	}

	var user domain.User
	if err := json.Unmarshal(payload, &user); err != nil {
		c.deleteKey(ctx, key)
		return domain.User{}, false
	}
	return user, true
}

// SetUser stores the member payload for a student identity.
func (c *Cache) SetUser(ctx context.Context, user domain.User) {
	if strings.TrimSpace(user.StudentID) == "" {
		return
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	c.putPayload(ctx, userDetailKey(user.StudentID), ScopeUsers, userDetailTTL, payload)
}

// ExpireUser evicts the member payload for a student identity.
func (c *Cache) ExpireUser(ctx context.Context, studentID string) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return
	}
	c.deleteKey(ctx, userDetailKey(studentID))
}

// ExpireUserScope evicts every member payload.
func (c *Cache) ExpireUserScope(ctx context.Context) {
	c.deleteScope(ctx, ScopeUsers)
}

// CachedEnsemble returns the cached detail for a single set-list piece.
func (c *Cache) CachedEnsemble(ctx context.Context, ensembleID string) (domain.Ensemble, bool) {
	ensembleID = strings.TrimSpace(ensembleID)
	if ensembleID == "" {
		return domain.Ensemble{}, false
	}
	key := ensembleDetailKey(ensembleID)
	payload, ok := c.cachedPayload(ctx, key)
	if !ok {
		return domain.Ensemble{}, false
	}

	var ensemble domain.Ensemble
	if err := json.Unmarshal(payload, &ensemble); err != nil {
		c.deleteKey(ctx, key)
		return domain.Ensemble{}, false
	}
	return ensemble, true
}

// SetEnsemble stores the detail payload for a single set-list piece.
func (c *Cache) SetEnsemble(ctx context.Context, ensemble domain.Ensemble) {
	if strings.TrimSpace(ensemble.ID) == "" {
		return
	}
	payload, err := json.Marshal(ensemble)
	if err != nil {
		return
	}
	c.putPayload(ctx, ensembleDetailKey(ensemble.ID), ScopeEnsembles, ensembleTTL, payload)
}

// CachedEventEnsembles returns an event's cached set list.
func (c *Cache) CachedEventEnsembles(ctx context.Context, eventID string) ([]domain.Ensemble, bool) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, false
	}
	key := eventEnsemblesKey(eventID)
	payload, ok := c.cachedPayload(ctx, key)
	if !ok {
		return nil, false
	}
	var ensembles []domain.Ensemble
	if err := json.Unmarshal(payload, &ensembles); err != nil {
		c.deleteKey(ctx, key)
		return nil, false
	}
	return ensembles, true
}

// SetEventEnsembles stores an event's set list.
func (c *Cache) SetEventEnsembles(ctx context.Context, eventID string, ensembles []domain.Ensemble) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return
	}
	payload, err := json.Marshal(ensembles)
	if err != nil {
		return
	}
	c.putPayload(ctx, eventEnsemblesKey(eventID), ScopeEnsembles, ensembleTTL, payload)
}

// ExpireEnsembleScope evicts every set-list payload. Set-list and roster
// mutations call this before returning.
func (c *Cache) ExpireEnsembleScope(ctx context.Context) {
	c.deleteScope(ctx, ScopeEnsembles)
}

// CachedAdmins returns the cached administrator list.
func (c *Cache) CachedAdmins(ctx context.Context) ([]domain.Admin, bool) {
	payload, ok := c.cachedPayload(ctx, adminListKey())
	if !ok {
		return nil, false
	}
	var admins []domain.Admin
	if err := json.Unmarshal(payload, &admins); err != nil {
		c.deleteKey(ctx, adminListKey())
		return nil, false
	}
	return admins, true
}

// SetAdmins stores the administrator list.
func (c *Cache) SetAdmins(ctx context.Context, admins []domain.Admin) {
	payload, err := json.Marshal(admins)
	if err != nil {
		return
	}
	c.putPayload(ctx, adminListKey(), ScopeAdmins, adminListTTL, payload)
}

// CachedAdmin returns the cached administrator record for a student identity.
func (c *Cache) CachedAdmin(ctx context.Context, studentID string) (domain.Admin, bool) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return domain.Admin{}, false
	}
	key := adminDetailKey(studentID)
	payload, ok := c.cachedPayload(ctx, key)
	if !ok {
		return domain.Admin{}, false
	}

	var admin domain.Admin
	if err := json.Unmarshal(payload, &admin); err != nil {
		c.deleteKey(ctx, key)
		return domain.Admin{}, false
	}
	return admin, true
}

// SetAdmin stores the administrator record for a student identity.
func (c *Cache) SetAdmin(ctx context.Context, admin domain.Admin) {
	if strings.TrimSpace(admin.StudentID) == "" {
		return
	}
	payload, err := json.Marshal(admin)
	if err != nil {
		return
	}
	c.putPayload(ctx, adminDetailKey(admin.StudentID), ScopeAdmins, adminListTTL, payload)
}

// ExpireAdminScope evicts every administrator payload. Appointment changes
// call this before returning.
func (c *Cache) ExpireAdminScope(ctx context.Context) {
	c.deleteScope(ctx, ScopeAdmins)
}
