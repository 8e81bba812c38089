package pairing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anonpair/chat-bot/internal/metrics"
)

// RelayMessage forwards one user's message to their current partner.
//
// The partner is resolved from the session store with a reconciliation
// fallback, so a relay straight after a process restart still works as long
// as the durable record holds the mutual assignment. On successful delivery
// both sides' activity timestamps are refreshed and an audit event is
// recorded (participants only, never content). A delivery failure caused by
// the partner being unreachable unpairs both sides and returns
// ErrPartnerUnreachable.
func (s *Service) RelayMessage(ctx context.Context, senderID int64, text string) error {
	partnerID, ok := s.Resolve(ctx, senderID)
	if !ok {
		return ErrNotConnected
	}

	if err := s.messenger.SendText(ctx, partnerID, text); err != nil {
		if errors.Is(err, ErrPartnerUnreachable) {
			log.Printf("[pairing] partner %d unreachable, unpairing %d", partnerID, senderID)
			s.unpair(ctx, senderID, partnerID, reasonUnreachable)
			metrics.RelayedMessagesTotal.WithLabelValues("unreachable").Inc()
			return ErrPartnerUnreachable
		}
		metrics.RelayedMessagesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("pairing: relay to %d: %w", partnerID, err)
	}

	now := time.Now()
	s.store.Touch(senderID, now)
	metrics.RelayedMessagesTotal.WithLabelValues("delivered").Inc()

	s.mu.Lock()
	pairID := s.pairIDs[senderID]
	s.mu.Unlock()

	if s.audit != nil {
		if err := s.audit.MessageRelayed(ctx, pairID, senderID, partnerID); err != nil {
			log.Printf("[pairing] audit relay %d->%d: %v", senderID, partnerID, err)
		}
	}
	s.publishRelayed(RelayedEvent{
		PairID: pairID,
		Sender: senderID,
		At:     now.Unix(),
	})

	return nil
}
