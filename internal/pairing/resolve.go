package pairing

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/anonpair/chat-bot/internal/metrics"
	"github.com/anonpair/chat-bot/internal/record"
	"github.com/anonpair/chat-bot/internal/session"
)

// Resolve returns the user's current partner. If the session store has no
// live entry (typically after a restart), the durable record is consulted:
// the in-memory link is re-established only when both durable records point
// at each other. A one-sided pointer is stale half-written state and is
// cleared, so phantom pairings cannot survive a crash.
func (s *Service) Resolve(ctx context.Context, userID int64) (int64, bool) {
	s.mu.Lock()
	v := s.store.Get(userID)
	if v.Status == session.StatusChatting && v.PartnerID != 0 {
		s.mu.Unlock()
		return v.PartnerID, true
	}
	inMemoryIdle := v.Status == session.StatusIdle
	s.mu.Unlock()

	// A user who is live in memory as searching is not a candidate for
	// recovery; the in-memory state wins during normal operation.
	if !inMemoryIdle {
		return 0, false
	}

	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		log.Printf("[pairing] resolve %d: read record: %v", userID, err)
		return 0, false
	}
	if rec.Status != record.StatusChatting || rec.PartnerID == 0 {
		return 0, false
	}

	partner, err := s.records.Get(ctx, rec.PartnerID)
	if err != nil {
		log.Printf("[pairing] resolve %d: read partner record: %v", userID, err)
		return 0, false
	}
	if partner.Status != record.StatusChatting || partner.PartnerID != userID {
		// Asymmetric assignment: clear the stale side silently.
		if err := s.records.SetStatus(ctx, userID, record.StatusIdle); err != nil {
			log.Printf("[pairing] resolve %d: clear stale record: %v", userID, err)
		}
		log.Printf("[pairing] cleared stale assignment %d -> %d", userID, rec.PartnerID)
		return 0, false
	}

	// Mutual assignment: re-establish both sides in memory, unless either
	// side's live state changed while we were reading.
	s.mu.Lock()
	defer s.mu.Unlock()

	v = s.store.Get(userID)
	if v.Status == session.StatusChatting && v.PartnerID != 0 {
		return v.PartnerID, true // raced with another resolver
	}
	// Both sides must still be idle in memory: a partner who is live and
	// searching (or chatting with someone else) must not be clobbered.
	pv := s.store.Get(rec.PartnerID)
	if v.Status != session.StatusIdle || pv.Status != session.StatusIdle {
		return 0, false
	}

	s.store.SetChatting(userID, rec.PartnerID, time.Now())
	if _, ok := s.pairIDs[userID]; !ok {
		pairID := uuid.NewString()
		s.pairIDs[userID] = pairID
		s.pairIDs[rec.PartnerID] = pairID
	}
	metrics.ActivePairs.Inc()

	log.Printf("[pairing] restored pair %d <-> %d from durable record", userID, rec.PartnerID)
	return rec.PartnerID, true
}
