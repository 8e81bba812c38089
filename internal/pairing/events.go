package pairing

import (
	"encoding/json"
	"log"

	"github.com/anonpair/chat-bot/internal/messaging"
)

// PairedEvent is published on pair.found when two users are linked.
type PairedEvent struct {
	PairID string `json:"pair_id"`
	UserA  int64  `json:"user_a"`
	UserB  int64  `json:"user_b"`
	At     int64  `json:"at"`
}

// UnpairedEvent is published on pair.ended when a pair is torn down, with
// the reason: "ended", "idle_timeout", or "partner_unreachable".
type UnpairedEvent struct {
	PairID string `json:"pair_id"`
	UserA  int64  `json:"user_a"`
	UserB  int64  `json:"user_b"`
	Reason string `json:"reason"`
	At     int64  `json:"at"`
}

// SearchTimeoutEvent is published on search.timeout when a waiting user is
// reclaimed without having been matched.
type SearchTimeoutEvent struct {
	UserID int64 `json:"user_id"`
	At     int64 `json:"at"`
}

// RelayedEvent is published on relay.audit for every delivered message.
// It carries participants and timing only, never content.
type RelayedEvent struct {
	PairID string `json:"pair_id"`
	Sender int64  `json:"sender"`
	At     int64  `json:"at"`
}

// Event publication is best effort: a broken event bus degrades
// observability, never pairing.

func (s *Service) publishPaired(ev PairedEvent) {
	s.publish(messaging.SubjectPairFound, ev)
}

func (s *Service) publishUnpaired(ev UnpairedEvent) {
	s.publish(messaging.SubjectPairEnded, ev)
}

func (s *Service) publishSearchTimeout(ev SearchTimeoutEvent) {
	s.publish(messaging.SubjectSearchTimeout, ev)
}

func (s *Service) publishRelayed(ev RelayedEvent) {
	s.publish(messaging.SubjectRelayAudit, ev)
}

func (s *Service) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[pairing] marshal event for %s: %v", subject, err)
		return
	}
	if err := s.events.Publish(subject, data); err != nil {
		log.Printf("[pairing] publish %s: %v", subject, err)
	}
}
