package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/greenroomhq/greenroom/internal/club/cache"
	"github.com/greenroomhq/greenroom/internal/club/domain"
	"github.com/greenroomhq/greenroom/internal/club/storage"
)

// In-memory stores backing service tests. The event store honors the same
// version-guard semantics as the SQLite implementation so concurrency tests
// exercise the real retry loop.

type memoryStore struct {
	mu              sync.Mutex
	events          map[string]domain.Event
	participants    map[string]domain.Participant
	users           map[string]domain.User
	admins          map[string]domain.Admin
	ensembles       map[string]domain.Ensemble
	ensembleMembers map[string]domain.EnsembleMember
	cacheEntries    map[string]storage.CacheEntry
	countWrites     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		events:          make(map[string]domain.Event),
		participants:    make(map[string]domain.Participant),
		users:           make(map[string]domain.User),
		admins:          make(map[string]domain.Admin),
		ensembles:       make(map[string]domain.Ensemble),
		ensembleMembers: make(map[string]domain.EnsembleMember),
		cacheEntries:    make(map[string]storage.CacheEntry),
	}
}

func (m *memoryStore) PutEvent(_ context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return nil
}

func (m *memoryStore) GetEvent(_ context.Context, id string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return domain.Event{}, storage.ErrNotFound
	}
	return event, nil
}

func (m *memoryStore) ListEvents(context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, event := range m.events {
		events = append(events, event)
	}
	return events, nil
}

func (m *memoryStore) ListActiveEvents(context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, event := range m.events {
		if event.Active {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *memoryStore) ListEventsByType(_ context.Context, eventType domain.EventType) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, event := range m.events {
		if event.Type == eventType {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *memoryStore) ListUpcomingEvents(_ context.Context, now time.Time) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, event := range m.events {
		if event.IsUpcoming(now) {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *memoryStore) ListOngoingEvents(_ context.Context, now time.Time) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, event := range m.events {
		if event.IsOngoing(now) {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *memoryStore) ListPastEvents(_ context.Context, now time.Time) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, event := range m.events {
		if event.IsPast(now) {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *memoryStore) ListChildEvents(_ context.Context, parentID string) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, event := range m.events {
		if event.ParentID == parentID {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *memoryStore) UpdateEvent(_ context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.events[event.ID]
	if !ok {
		return storage.ErrNotFound
	}
	event.Version = current.Version + 1
	event.CurrentParticipants = current.CurrentParticipants
	m.events[event.ID] = event
	return nil
}

func (m *memoryStore) UpdateParticipantCount(_ context.Context, id string, count int, expectVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countWrites++
	event, ok := m.events[id]
	if !ok || event.Version != expectVersion {
		return storage.ErrVersionConflict
	}
	event.CurrentParticipants = count
	event.Version++
	m.events[id] = event
	return nil
}

func (m *memoryStore) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memoryStore) PutParticipant(_ context.Context, participant domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.EventID == participant.EventID && existing.UserID == participant.UserID {
			return storage.ErrDuplicate
		}
	}
	m.participants[participant.ID] = participant
	return nil
}

func (m *memoryStore) GetParticipant(_ context.Context, rootEventID, userID string) (domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, participant := range m.participants {
		if participant.EventID == rootEventID && participant.UserID == userID {
			return participant, nil
		}
	}
	return domain.Participant{}, storage.ErrNotFound
}

func (m *memoryStore) ListParticipantsByEvent(_ context.Context, rootEventID string) ([]domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var participants []domain.Participant
	for _, participant := range m.participants {
		if participant.EventID == rootEventID {
			participants = append(participants, participant)
		}
	}
	return participants, nil
}

func (m *memoryStore) ListParticipantsByUser(_ context.Context, userID string) ([]domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var participants []domain.Participant
	for _, participant := range m.participants {
		if participant.UserID == userID {
			participants = append(participants, participant)
		}
	}
	return participants, nil
}

func (m *memoryStore) DeleteParticipant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.participants, id)
	return nil
}

func (m *memoryStore) DeleteParticipantsByEvent(_ context.Context, rootEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, participant := range m.participants {
		if participant.EventID == rootEventID {
			delete(m.participants, id)
		}
	}
	return nil
}

func (m *memoryStore) PutUser(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.StudentID == user.StudentID {
			return storage.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) GetUserByStudentID(_ context.Context, studentID string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.StudentID == studentID {
			return user, nil
		}
	}
	return domain.User{}, storage.ErrNotFound
}

func (m *memoryStore) ListUsersByStatus(_ context.Context, status domain.UserStatus) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []domain.User
	for _, user := range m.users {
		if user.Status == status {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *memoryStore) ListUsersByStudentIDs(_ context.Context, studentIDs []string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	var users []domain.User
	for _, user := range m.users {
		if wanted[user.StudentID] {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *memoryStore) UpdateUser(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryStore) UserExists(_ context.Context, studentID, email, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.StudentID == studentID {
			return true, nil
		}
		if email != "" && user.Email == email {
			return true, nil
		}
		if phone != "" && user.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) PutAdmin(_ context.Context, admin domain.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admins {
		if existing.StudentID == admin.StudentID || existing.UserID == admin.UserID {
			return storage.ErrDuplicate
		}
	}
	m.admins[admin.ID] = admin
	return nil
}

func (m *memoryStore) GetAdminByStudentID(_ context.Context, studentID string) (domain.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, admin := range m.admins {
		if admin.StudentID == studentID {
			return admin, nil
		}
	}
	return domain.Admin{}, storage.ErrNotFound
}

func (m *memoryStore) ListAdmins(context.Context) ([]domain.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var admins []domain.Admin
	for _, admin := range m.admins {
		admins = append(admins, admin)
	}
	return admins, nil
}

func (m *memoryStore) UpdateAdmin(_ context.Context, admin domain.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[admin.ID]; !ok {
		return storage.ErrNotFound
	}
	m.admins[admin.ID] = admin
	return nil
}

func (m *memoryStore) DeleteAdminByStudentID(_ context.Context, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, admin := range m.admins {
		if admin.StudentID == studentID {
			delete(m.admins, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memoryStore) GetCacheEntry(_ context.Context, cacheKey string) (storage.CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cacheEntries[cacheKey]
	return entry, ok, nil
}

func (m *memoryStore) PutCacheEntry(_ context.Context, entry storage.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheEntries[entry.CacheKey] = entry
	return nil
}

func (m *memoryStore) DeleteCacheEntry(_ context.Context, cacheKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cacheEntries, cacheKey)
	return nil
}

func (m *memoryStore) DeleteCacheScope(_ context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.cacheEntries {
		if entry.Scope == scope {
			delete(m.cacheEntries, key)
		}
	}
	return nil
}

func (m *memoryStore) PutEnsemble(_ context.Context, ensemble domain.Ensemble) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ensembles[ensemble.ID]; ok {
		return storage.ErrDuplicate
	}
	m.ensembles[ensemble.ID] = ensemble
	return nil
}

func (m *memoryStore) GetEnsemble(_ context.Context, id string) (domain.Ensemble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensemble, ok := m.ensembles[id]
	if !ok {
		return domain.Ensemble{}, storage.ErrNotFound
	}
	return ensemble, nil
}

func (m *memoryStore) ListActiveEnsembles(_ context.Context) ([]domain.Ensemble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ensembles []domain.Ensemble
	for _, ensemble := range m.ensembles {
		if ensemble.Active {
			ensembles = append(ensembles, ensemble)
		}
	}
	return ensembles, nil
}

func (m *memoryStore) ListEnsemblesByEvent(_ context.Context, eventID string) ([]domain.Ensemble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ensembles []domain.Ensemble
	for _, ensemble := range m.ensembles {
		if ensemble.EventID == eventID {
			ensembles = append(ensembles, ensemble)
		}
	}
	return ensembles, nil
}

func (m *memoryStore) ListEnsemblesByUser(_ context.Context, userID string) ([]domain.Ensemble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ensembles []domain.Ensemble
	for _, member := range m.ensembleMembers {
		if member.UserID != userID {
			continue
		}
		if ensemble, ok := m.ensembles[member.EnsembleID]; ok {
			ensembles = append(ensembles, ensemble)
		}
	}
	return ensembles, nil
}

func (m *memoryStore) SearchEnsembles(_ context.Context, keyword string) ([]domain.Ensemble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keyword = strings.ToLower(keyword)
	var ensembles []domain.Ensemble
	for _, ensemble := range m.ensembles {
		if strings.Contains(strings.ToLower(ensemble.Artist), keyword) ||
			strings.Contains(strings.ToLower(ensemble.Title), keyword) {
			ensembles = append(ensembles, ensemble)
		}
	}
	return ensembles, nil
}

func (m *memoryStore) UpdateEnsemble(_ context.Context, ensemble domain.Ensemble) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.ensembles[ensemble.ID]
	if !ok {
		return storage.ErrNotFound
	}
	ensemble.Version = current.Version + 1
	m.ensembles[ensemble.ID] = ensemble
	return nil
}

func (m *memoryStore) DeleteEnsemble(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ensembles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.ensembles, id)
	return nil
}

func (m *memoryStore) PutEnsembleMember(_ context.Context, member domain.EnsembleMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.ensembleMembers {
		if existing.EnsembleID == member.EnsembleID && existing.UserID == member.UserID {
			return storage.ErrDuplicate
		}
	}
	m.ensembleMembers[member.ID] = member
	return nil
}

func (m *memoryStore) GetEnsembleMember(_ context.Context, ensembleID, userID string) (domain.EnsembleMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.ensembleMembers {
		if member.EnsembleID == ensembleID && member.UserID == userID {
			return member, nil
		}
	}
	return domain.EnsembleMember{}, storage.ErrNotFound
}

func (m *memoryStore) ListEnsembleMembers(_ context.Context, ensembleID string) ([]domain.EnsembleMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var members []domain.EnsembleMember
	for _, member := range m.ensembleMembers {
		if member.EnsembleID == ensembleID {
			members = append(members, member)
		}
	}
	return members, nil
}

func (m *memoryStore) DeleteEnsembleMember(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ensembleMembers[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.ensembleMembers, id)
	return nil
}

func (m *memoryStore) DeleteEnsembleMembersByEnsemble(_ context.Context, ensembleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, member := range m.ensembleMembers {
		if member.EnsembleID == ensembleID {
			delete(m.ensembleMembers, id)
		}
	}
	return nil
}

// rejectingParticipantStore fails every insert with a fixed error.
type rejectingParticipantStore struct {
	*memoryStore
	insertErr error
}

func (p *rejectingParticipantStore) PutParticipant(context.Context, domain.Participant) error {
	return p.insertErr
}

// conflictingEventStore always loses the version race.
type conflictingEventStore struct {
	*memoryStore
	attempts int
}

func (c *conflictingEventStore) UpdateParticipantCount(context.Context, string, int, int64) error {
	c.attempts++
	return storage.ErrVersionConflict
}

func testClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
}

func sequenceIDs(prefix string) func() (string, error) {
	var n atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1)), nil
	}
}

func testCache(store *memoryStore) *cache.Cache {
	return cache.New(store, testClock())
}

func seedActiveUser(store *memoryStore, id, studentID string) domain.User {
	user := domain.User{
		ID:              id,
		StudentID:       studentID,
		Username:        "Member " + studentID,
		Session:         domain.SessionGuitar,
		Status:          domain.UserStatusActive,
		StatusChangedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	store.users[id] = user
	return user
}

func seedAdmin(store *memoryStore, id, userID, studentID string) domain.Admin {
	admin := domain.Admin{
		ID:          id,
		UserID:      userID,
		StudentID:   studentID,
		Role:        "president",
		AppointedBy: domain.SystemAppointer,
	}
	store.admins[id] = admin
	return admin
}

func seedRootEvent(store *memoryStore, id string, capacity int) domain.Event {
	event := domain.Event{
		ID:              id,
		Title:           "Event " + id,
		Type:            domain.EventTypeRegularConcert,
		StartAt:         time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
		EndAt:           time.Date(2026, 7, 1, 21, 0, 0, 0, time.UTC),
		RootID:          id,
		MaxParticipants: capacity,
		Active:          true,
		Version:         1,
	}
	store.events[id] = event
	return event
}

func seedChildEvent(store *memoryStore, id string, parent domain.Event) domain.Event {
	event := domain.Event{
		ID:       id,
		Title:    "Event " + id,
		Type:     parent.Type,
		StartAt:  parent.StartAt,
		EndAt:    parent.EndAt,
		ParentID: parent.ID,
		RootID:   parent.RootID,
		Depth:    parent.Depth + 1,
		Active:   true,
		Version:  1,
	}
	store.events[id] = event
	return event
}
