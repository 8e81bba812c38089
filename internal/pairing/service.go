// Package pairing implements the anonymous-pairing session manager: it
// tracks which users are idle, searching, or chatting, matches waiting users
// into pairs, relays messages between partners, and reclaims abandoned
// sessions through search and idle timeouts. The in-memory session store is
// authoritative during normal operation; the durable partner record is
// written alongside every pairing change and consulted only by
// reconciliation.
package pairing

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/anonpair/chat-bot/internal/metrics"
	"github.com/anonpair/chat-bot/internal/record"
	"github.com/anonpair/chat-bot/internal/session"
)

// Records is the durable partner record capability the service depends on.
// *record.Store satisfies it; tests use an in-memory fake.
type Records interface {
	Get(ctx context.Context, userID int64) (record.Record, error)
	SetStatus(ctx context.Context, userID int64, status string) error
	SetPair(ctx context.Context, a, b int64) error
	ClearPair(ctx context.Context, a, b int64) error
}

// Messenger delivers relayed content to a user. Implementations wrap
// ErrPartnerUnreachable when the platform reports the recipient as blocked,
// deactivated, or otherwise gone for good.
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string) error
}

// Notifier sends service notifications (partner found, search timed out,
// chat closed) to a user. Delivery is best effort; failures are the
// implementation's problem and never change session state.
type Notifier interface {
	Notify(ctx context.Context, userID int64, notice Notice)
}

// EventPublisher receives lifecycle events for operational consumers.
// *messaging.NATSClient satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// AuditLog records that a message was relayed between two users. Content is
// never passed in; the audit trail stores participants and timing only.
type AuditLog interface {
	MessageRelayed(ctx context.Context, pairID string, sender, partner int64) error
}

// Config holds the tunable windows and the persist retry budget.
type Config struct {
	SearchWindow       time.Duration // max wait in the pool before timing out
	IdleWindow         time.Duration // max chat silence before auto-unpairing
	SearchScanInterval time.Duration
	IdleScanInterval   time.Duration
	PersistAttempts    int           // durable-write attempts during (un)pairing
	PersistBackoff     time.Duration // sleep between attempts
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SearchWindow:       120 * time.Second,
		IdleWindow:         20 * time.Minute,
		SearchScanInterval: 5 * time.Second,
		IdleScanInterval:   60 * time.Second,
		PersistAttempts:    3,
		PersistBackoff:     100 * time.Millisecond,
	}
}

// Service is the pairing core. A single mutex serializes pool membership and
// all session transitions: matching reasons about cross-user state (pop two
// from the pool, commit the pair), so per-user locking is not enough.
type Service struct {
	mu      sync.Mutex
	pool    *waitingPool
	pairIDs map[int64]string // userID -> live pair ID, both sides share one

	cfg       Config
	store     *session.Store
	records   Records
	messenger Messenger
	notifier  Notifier
	events    EventPublisher
	audit     AuditLog // optional

	ctx    context.Context
	cancel context.CancelFunc
}

// NewService wires the pairing core. audit may be nil when no audit sink is
// configured.
func NewService(store *session.Store, records Records, messenger Messenger,
	notifier Notifier, events EventPublisher, audit AuditLog, cfg Config) *Service {

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		pool:      newWaitingPool(),
		pairIDs:   make(map[int64]string),
		cfg:       cfg,
		store:     store,
		records:   records,
		messenger: messenger,
		notifier:  notifier,
		events:    events,
		audit:     audit,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the two timeout watchers.
func (s *Service) Start() {
	go s.searchTimeoutLoop()
	go s.idleChatLoop()
	log.Println("[pairing] service started")
}

// Stop shuts the watchers down.
func (s *Service) Stop() {
	s.cancel()
	log.Println("[pairing] service stopped")
}

// RequestSearch puts the user into the waiting pool and, if at least two
// users are now waiting, pairs two of them. The returned bool reports
// whether the REQUESTER ended up in a pair; false with a nil error means the
// search is in progress. Any two waiters may be picked, so a pairing formed
// by this call does not have to include the requester.
func (s *Service) RequestSearch(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()

	if s.store.Get(userID).Status == session.StatusChatting {
		s.mu.Unlock()
		return false, ErrAlreadyChatting
	}
	if s.pool.contains(userID) {
		s.mu.Unlock()
		return false, ErrAlreadySearching
	}

	now := time.Now()
	s.pool.add(userID, now)
	s.store.SetSearching(userID, now)
	metrics.WaitingUsers.Set(float64(s.pool.size()))

	if s.pool.size() < 2 {
		s.mu.Unlock()
		// Persist the searching status outside the lock; the in-memory pool
		// stays authoritative if this write fails.
		if err := s.records.SetStatus(ctx, userID, record.StatusSearching); err != nil {
			log.Printf("[pairing] persist searching for %d: %v", userID, err)
		}
		return false, nil
	}

	a, b := s.pool.popTwo()
	metrics.WaitingUsers.Set(float64(s.pool.size()))
	err := s.commitPair(ctx, a, b)
	s.mu.Unlock()

	s.finishPairing(ctx, a, b, err)

	requesterInvolved := a.userID == userID || b.userID == userID
	if err != nil {
		if requesterInvolved {
			return false, err
		}
		return false, nil
	}
	if !requesterInvolved {
		// The requester stayed queued; persist their searching status.
		if perr := s.records.SetStatus(ctx, userID, record.StatusSearching); perr != nil {
			log.Printf("[pairing] persist searching for %d: %v", userID, perr)
		}
	}
	return requesterInvolved, nil
}

// CancelSearch removes the user from the waiting pool. It reports whether a
// search was actually cancelled; cancelling a user who is not searching is a
// no-op, never an error.
func (s *Service) CancelSearch(ctx context.Context, userID int64) bool {
	s.mu.Lock()
	removed := s.pool.remove(userID)
	if removed {
		s.store.ClearToIdle(userID)
		metrics.WaitingUsers.Set(float64(s.pool.size()))
	}
	s.mu.Unlock()

	if removed {
		if err := s.records.SetStatus(ctx, userID, record.StatusIdle); err != nil {
			log.Printf("[pairing] persist idle for %d: %v", userID, err)
		}
	}
	return removed
}

// EndChat closes the user's current chat, clearing both sides and notifying
// the partner. Ending twice, or after the partner already ended, is a no-op.
// The returned bool reports whether a chat was actually closed.
func (s *Service) EndChat(ctx context.Context, userID int64) bool {
	partnerID, ok := s.Resolve(ctx, userID)
	if !ok {
		return false
	}
	return s.unpair(ctx, userID, partnerID, reasonEnded)
}

// Status returns the user's current session view, reconciling a lost
// in-memory link from the durable record first.
func (s *Service) Status(ctx context.Context, userID int64) session.View {
	s.Resolve(ctx, userID)
	return s.store.Get(userID)
}
