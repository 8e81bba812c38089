package pairing

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/anonpair/chat-bot/internal/metrics"
	"github.com/anonpair/chat-bot/internal/session"
)

// unpair reasons, stamped on lifecycle events.
const (
	reasonEnded       = "ended"
	reasonIdleTimeout = "idle_timeout"
	reasonUnreachable = "partner_unreachable"
)

// commitPair transitions a and b into mutually-linked chatting state and
// persists the pair. Caller holds s.mu, so the whole pop-two-plus-commit
// sequence is one critical section and no waiter can be paired twice.
//
// On persist failure both users are rolled back to idle (not back into the
// pool) and ErrPersistFailed is returned; the system never keeps a pairing
// the durable record does not know about.
func (s *Service) commitPair(ctx context.Context, a, b poolEntry) error {
	now := time.Now()
	s.store.SetChatting(a.userID, b.userID, now)

	err := s.withPersistRetry(ctx, func() error {
		return s.records.SetPair(ctx, a.userID, b.userID)
	})
	if err != nil {
		log.Printf("[pairing] persist pair %d<->%d failed, rolling back: %v",
			a.userID, b.userID, err)
		s.store.ClearToIdle(a.userID)
		s.store.ClearToIdle(b.userID)
		metrics.PairingRollbacksTotal.Inc()
		return ErrPersistFailed
	}

	pairID := uuid.NewString()
	s.pairIDs[a.userID] = pairID
	s.pairIDs[b.userID] = pairID
	return nil
}

// finishPairing performs the post-commit work that must not run under the
// service lock: user notifications, lifecycle events, metrics.
func (s *Service) finishPairing(ctx context.Context, a, b poolEntry, commitErr error) {
	if commitErr != nil {
		s.notifier.Notify(ctx, a.userID, NoticePairingFailed)
		s.notifier.Notify(ctx, b.userID, NoticePairingFailed)
		return
	}

	s.mu.Lock()
	pairID := s.pairIDs[a.userID]
	s.mu.Unlock()

	now := time.Now()
	metrics.PairingsTotal.Inc()
	metrics.ActivePairs.Inc()
	metrics.SearchWaitSeconds.Observe(now.Sub(a.startedAt).Seconds())
	metrics.SearchWaitSeconds.Observe(now.Sub(b.startedAt).Seconds())

	s.notifier.Notify(ctx, a.userID, NoticePaired)
	s.notifier.Notify(ctx, b.userID, NoticePaired)

	s.publishPaired(PairedEvent{
		PairID: pairID,
		UserA:  a.userID,
		UserB:  b.userID,
		At:     now.Unix(),
	})

	log.Printf("[pairing] paired %d <-> %d (pair=%s)", a.userID, b.userID, pairID)
}

// unpair clears both sides of a chatting pair, updates the durable record,
// and notifies according to the reason. It re-checks the pair under the lock
// before acting, so concurrent unpair attempts (both sides ending at once,
// or the idle watcher racing an explicit end) resolve to exactly one
// winner. Returns whether this call performed the unpairing.
func (s *Service) unpair(ctx context.Context, userID, partnerID int64, reason string) bool {
	s.mu.Lock()
	v := s.store.Get(userID)
	if v.Status != session.StatusChatting || v.PartnerID != partnerID {
		s.mu.Unlock()
		return false
	}
	s.store.ClearToIdle(userID)
	s.store.ClearToIdle(partnerID)
	pairID := s.pairIDs[userID]
	delete(s.pairIDs, userID)
	delete(s.pairIDs, partnerID)
	s.mu.Unlock()

	// Durable write happens outside the lock; a failure here leaves a stale
	// mutual record that reconciliation will repair on next contact, so it
	// is logged rather than retried forever.
	err := s.withPersistRetry(ctx, func() error {
		return s.records.ClearPair(ctx, userID, partnerID)
	})
	if err != nil {
		log.Printf("[pairing] persist unpair %d<->%d: %v", userID, partnerID, err)
	}

	metrics.ActivePairs.Dec()

	switch reason {
	case reasonEnded:
		s.notifier.Notify(ctx, partnerID, NoticePartnerLeft)
	case reasonIdleTimeout:
		s.notifier.Notify(ctx, userID, NoticeIdleDisconnect)
		s.notifier.Notify(ctx, partnerID, NoticeIdleDisconnect)
		metrics.IdleDisconnectsTotal.Inc()
	case reasonUnreachable:
		// The sender learns via the relay error; the partner cannot be
		// reached at all.
	}

	s.publishUnpaired(UnpairedEvent{
		PairID: pairID,
		UserA:  userID,
		UserB:  partnerID,
		Reason: reason,
		At:     time.Now().Unix(),
	})

	log.Printf("[pairing] unpaired %d <-> %d (%s)", userID, partnerID, reason)
	return true
}

// withPersistRetry runs fn with the configured bounded retry and backoff.
func (s *Service) withPersistRetry(ctx context.Context, fn func() error) error {
	attempts := s.cfg.PersistAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			metrics.PersistRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.PersistBackoff):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
