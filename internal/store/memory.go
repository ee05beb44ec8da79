package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/skycast/internal/weather"
)

var (
	// ErrNotFound is returned when no dashboard exists for a session ID.
	ErrNotFound = errors.New("no dashboard for session")
)

// SessionStore is a concurrency-safe in-memory registry of per-session dashboards.
// Nothing survives a restart.
type SessionStore struct {
	mu sync.RWMutex

	// key: session ID
	data map[string]*weather.Dashboard

	// retention configuration
	maxSessions int           // max number of live sessions (0 = unlimited)
	maxAge      time.Duration // idle time after which a session is evicted (0 = never)

	// defaultUser supplies the starting user coordinates for new sessions.
	defaultUser func() *weather.Coordinates
	now         func() time.Time
}

// NewSessionStore creates a new SessionStore with optional limits.
// defaultUser may be nil.
func NewSessionStore(maxSessions int, maxAge time.Duration, defaultUser func() *weather.Coordinates) *SessionStore {
	if defaultUser == nil {
		defaultUser = func() *weather.Coordinates { return nil }
	}
	return &SessionStore{
		data:        make(map[string]*weather.Dashboard),
		maxSessions: maxSessions,
		maxAge:      maxAge,
		defaultUser: defaultUser,
		now:         time.Now,
	}
}

// Get returns the dashboard for id.
func (s *SessionStore) Get(id string) (*weather.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// GetOrCreate returns the dashboard for id, creating one when id is unknown or
// empty. The returned ID is the one the dashboard is stored under.
func (s *SessionStore) GetOrCreate(id string) (string, *weather.Dashboard) {
	if id != "" {
		if d, err := s.Get(id); err == nil {
			return id, d
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.data[id]; ok {
		return id, d
	}
	d := weather.NewDashboard(s.defaultUser())
	s.data[id] = d
	s.enforceLimitLocked()
	return id, d
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Each calls fn for a snapshot of all live sessions.
func (s *SessionStore) Each(fn func(id string, d *weather.Dashboard)) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.data))
	dashboards := make([]*weather.Dashboard, 0, len(s.data))
	for id, d := range s.data {
		ids = append(ids, id)
		dashboards = append(dashboards, d)
	}
	s.mu.RUnlock()

	for i := range ids {
		fn(ids[i], dashboards[i])
	}
}

// AdoptUserCoordinates gives c to every live session that has no user
// position yet and returns how many sessions took it.
func (s *SessionStore) AdoptUserCoordinates(c weather.Coordinates) int {
	adopted := 0
	s.Each(func(_ string, d *weather.Dashboard) {
		if d.SetUserCoordinatesIfUnset(c) {
			adopted++
		}
	})
	return adopted
}

// Sweep evicts sessions idle longer than maxAge and returns how many were removed.
func (s *SessionStore) Sweep() int {
	if s.maxAge <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, d := range s.data {
		if d.LastActive().Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// enforceLimitLocked drops the least recently active sessions beyond maxSessions.
func (s *SessionStore) enforceLimitLocked() {
	if s.maxSessions <= 0 || len(s.data) <= s.maxSessions {
		return
	}

	type entry struct {
		id     string
		active time.Time
	}
	entries := make([]entry, 0, len(s.data))
	for id, d := range s.data {
		entries = append(entries, entry{id: id, active: d.LastActive()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].active.Before(entries[j].active) })

	over := len(entries) - s.maxSessions
	for _, e := range entries[:over] {
		delete(s.data, e.id)
	}
}
