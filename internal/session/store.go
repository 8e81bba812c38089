package session

import (
	"sync"
	"time"
)

// Status constants for the per-user state machine.
const (
	StatusIdle      = "idle"
	StatusSearching = "searching"
	StatusChatting  = "chatting"
)

// View is a copy of one user's session state at a point in time.
type View struct {
	UserID          int64
	Status          string
	PartnerID       int64     // non-zero iff Status == chatting
	LastActivity    time.Time // meaningful while chatting
	SearchStartedAt time.Time // meaningful while searching
}

// Pair is one chatting pair as seen by a snapshot. A is always the smaller
// user ID so that each pair has a single canonical identity.
type Pair struct {
	A, B         int64
	LastActivity time.Time // most recent activity of either side
}

type entry struct {
	status          string
	partnerID       int64
	lastActivity    time.Time
	searchStartedAt time.Time
}

// Store is the in-memory session store. All methods are safe for concurrent
// use; each method is atomic with respect to the others. Cross-user
// transactions (pop two from the pool, then pair) are serialized one level
// up by the pairing service.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*entry
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*entry)}
}

// Get returns a copy of the user's session state. Users the store has never
// seen are reported as idle.
func (s *Store) Get(userID int64) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[userID]
	if !ok {
		return View{UserID: userID, Status: StatusIdle}
	}
	return View{
		UserID:          userID,
		Status:          e.status,
		PartnerID:       e.partnerID,
		LastActivity:    e.lastActivity,
		SearchStartedAt: e.searchStartedAt,
	}
}

// SetSearching marks the user as searching and stamps searchStartedAt.
func (s *Store) SetSearching(userID int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(userID)
	e.status = StatusSearching
	e.partnerID = 0
	e.searchStartedAt = now
}

// SetChatting links both users as chatting partners and stamps lastActivity.
// Both sides are always written together so the symmetry invariant
// (partner(a)=b implies partner(b)=a) holds after every call.
func (s *Store) SetChatting(a, b int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ea := s.get(a)
	ea.status = StatusChatting
	ea.partnerID = b
	ea.lastActivity = now
	ea.searchStartedAt = time.Time{}

	eb := s.get(b)
	eb.status = StatusChatting
	eb.partnerID = a
	eb.lastActivity = now
	eb.searchStartedAt = time.Time{}
}

// ClearToIdle resets the user to idle and drops any partner link.
func (s *Store) ClearToIdle(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Touch updates lastActivity for both members of a chatting pair. It is a
// no-op for users that are not chatting.
func (s *Store) Touch(userID int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[userID]
	if !ok || e.status != StatusChatting {
		return
	}
	e.lastActivity = now
	if p, ok := s.sessions[e.partnerID]; ok && p.status == StatusChatting {
		p.lastActivity = now
	}
}

// ChattingPairs returns each chatting pair exactly once, keyed by the smaller
// user ID. One-sided entries (a partner missing from the store) are skipped;
// reconciliation handles those when the user next shows up.
func (s *Store) ChattingPairs() []Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := make([]Pair, 0, len(s.sessions)/2)
	for id, e := range s.sessions {
		if e.status != StatusChatting || id > e.partnerID {
			continue
		}
		p, ok := s.sessions[e.partnerID]
		if !ok || p.status != StatusChatting || p.partnerID != id {
			continue
		}
		last := e.lastActivity
		if p.lastActivity.After(last) {
			last = p.lastActivity
		}
		pairs = append(pairs, Pair{A: id, B: e.partnerID, LastActivity: last})
	}
	return pairs
}

// Searching returns a copy of every searching user's view.
func (s *Store) Searching() []View {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]View, 0)
	for id, e := range s.sessions {
		if e.status != StatusSearching {
			continue
		}
		views = append(views, View{
			UserID:          id,
			Status:          e.status,
			SearchStartedAt: e.searchStartedAt,
		})
	}
	return views
}

// get returns the entry for userID, creating an idle one if needed.
// Caller must hold s.mu.
func (s *Store) get(userID int64) *entry {
	e, ok := s.sessions[userID]
	if !ok {
		e = &entry{status: StatusIdle}
		s.sessions[userID] = e
	}
	return e
}
