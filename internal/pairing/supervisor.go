package pairing

import (
	"context"
	"log"
	"time"

	"github.com/anonpair/chat-bot/internal/metrics"
	"github.com/anonpair/chat-bot/internal/record"
)

// searchTimeoutLoop periodically removes users who have waited in the pool
// longer than the search window.
func (s *Service) searchTimeoutLoop() {
	ticker := time.NewTicker(s.cfg.SearchScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("[pairing] search-timeout watcher stopped")
			return
		case <-ticker.C:
			s.reapSearchTimeouts(s.ctx, time.Now())
		}
	}
}

// reapSearchTimeouts expires waiting-pool entries older than the search
// window. The expired set is computed under the lock, but each user is then
// handled individually with the pool membership re-checked at fire time: a
// user matched or cancelled between the snapshot and the removal is left
// alone.
func (s *Service) reapSearchTimeouts(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var expired []int64
	for _, e := range s.pool.snapshot() {
		if now.Sub(e.startedAt) >= s.cfg.SearchWindow {
			expired = append(expired, e.userID)
		}
	}
	s.mu.Unlock()

	for _, userID := range expired {
		s.mu.Lock()
		if !s.pool.remove(userID) {
			s.mu.Unlock()
			continue
		}
		s.store.ClearToIdle(userID)
		metrics.WaitingUsers.Set(float64(s.pool.size()))
		s.mu.Unlock()

		if err := s.records.SetStatus(ctx, userID, record.StatusIdle); err != nil {
			log.Printf("[pairing] persist idle for %d: %v", userID, err)
		}
		s.notifier.Notify(ctx, userID, NoticeSearchTimeout)
		s.publishSearchTimeout(SearchTimeoutEvent{UserID: userID, At: now.Unix()})
		metrics.SearchTimeoutsTotal.Inc()

		log.Printf("[pairing] search timed out for %d", userID)
	}
}

// idleChatLoop periodically unpairs chatting pairs that have been silent
// longer than the idle window.
func (s *Service) idleChatLoop() {
	ticker := time.NewTicker(s.cfg.IdleScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("[pairing] idle-chat watcher stopped")
			return
		case <-ticker.C:
			s.reapIdleChats(s.ctx, time.Now())
		}
	}
}

// reapIdleChats scans all chatting pairs and unpairs those whose most recent
// activity is older than the idle window. ChattingPairs yields each pair
// once, and unpair re-verifies the link under the lock, so a pair is never
// processed (or notified) twice in one scan.
func (s *Service) reapIdleChats(ctx context.Context, now time.Time) {
	for _, p := range s.store.ChattingPairs() {
		if now.Sub(p.LastActivity) < s.cfg.IdleWindow {
			continue
		}
		s.unpair(ctx, p.A, p.B, reasonIdleTimeout)
	}
}
