package pairing

import (
	"context"
	"testing"

	"github.com/anonpair/chat-bot/internal/record"
	"github.com/anonpair/chat-bot/internal/session"
)

func TestResolve_LiveEntryWins(t *testing.T) {
	svc, _, _, _, _ := testService()
	ctx := context.Background()

	svc.RequestSearch(ctx, 1)
	svc.RequestSearch(ctx, 2)

	partner, ok := svc.Resolve(ctx, 1)
	if !ok || partner != 2 {
		t.Errorf("expected partner 2, got %d (%v)", partner, ok)
	}
}

func TestResolve_RestoresMutualRecordAfterRestart(t *testing.T) {
	svc, records, _, _, _ := testService()
	ctx := context.Background()

	// Simulated restart: durable records are mutual, session store is empty.
	records.set(record.Record{UserID: 1, Status: record.StatusChatting, PartnerID: 2})
	records.set(record.Record{UserID: 2, Status: record.StatusChatting, PartnerID: 1})

	partner, ok := svc.Resolve(ctx, 1)
	if !ok || partner != 2 {
		t.Fatalf("expected restored partner 2, got %d (%v)", partner, ok)
	}

	// Both sides live again, mutually linked.
	assertSymmetric(t, svc.store, 1, 2)
	if v := svc.store.Get(2); v.Status != session.StatusChatting || v.PartnerID != 1 {
		t.Errorf("partner side not restored: %+v", v)
	}
}

func TestResolve_RestartThenRelayWorks(t *testing.T) {
	svc, records, messenger, _, _ := testService()
	ctx := context.Background()

	records.set(record.Record{UserID: 1, Status: record.StatusChatting, PartnerID: 2})
	records.set(record.Record{UserID: 2, Status: record.StatusChatting, PartnerID: 1})

	if err := svc.RelayMessage(ctx, 2, "still there?"); err != nil {
		t.Fatalf("relay after restart: %v", err)
	}
	if got := messenger.received(1); len(got) != 1 || got[0] != "still there?" {
		t.Errorf("partner received %v", got)
	}
}

func TestResolve_AsymmetricRecordCleared(t *testing.T) {
	svc, records, _, _, _ := testService()
	ctx := context.Background()

	// Half-written state: 1 points at 2, but 2 is idle.
	records.set(record.Record{UserID: 1, Status: record.StatusChatting, PartnerID: 2})
	records.set(record.Record{UserID: 2, Status: record.StatusIdle})

	if _, ok := svc.Resolve(ctx, 1); ok {
		t.Fatal("asymmetric record must not resolve")
	}

	// The stale side was cleared; nothing was restored in memory.
	rec, _ := records.Get(ctx, 1)
	if rec.Status != record.StatusIdle || rec.PartnerID != 0 {
		t.Errorf("stale record not cleared: %+v", rec)
	}
	if v := svc.store.Get(1); v.Status != session.StatusIdle {
		t.Errorf("no in-memory state expected, got %s", v.Status)
	}
}

func TestResolve_PartnerPointingElsewhereIsStale(t *testing.T) {
	svc, records, _, _, _ := testService()
	ctx := context.Background()

	records.set(record.Record{UserID: 1, Status: record.StatusChatting, PartnerID: 2})
	records.set(record.Record{UserID: 2, Status: record.StatusChatting, PartnerID: 3})

	if _, ok := svc.Resolve(ctx, 1); ok {
		t.Fatal("record pointing elsewhere must not resolve")
	}
	rec, _ := records.Get(ctx, 1)
	if rec.PartnerID != 0 {
		t.Errorf("stale pointer not cleared: %+v", rec)
	}
}

func TestResolve_DoesNotClobberLiveSearcher(t *testing.T) {
	svc, records, _, _, _ := testService()
	ctx := context.Background()

	// The durable record claims a pair, but the partner is live and
	// searching; restoring would yank them out of the pool.
	records.set(record.Record{UserID: 1, Status: record.StatusChatting, PartnerID: 2})
	records.set(record.Record{UserID: 2, Status: record.StatusChatting, PartnerID: 1})
	svc.RequestSearch(ctx, 2)

	if _, ok := svc.Resolve(ctx, 1); ok {
		t.Fatal("must not restore over a live searching partner")
	}
	if v := svc.store.Get(2); v.Status != session.StatusSearching {
		t.Errorf("searcher state clobbered: %s", v.Status)
	}
}

func TestResolve_IdleUserStaysIdle(t *testing.T) {
	svc, records, _, _, _ := testService()
	ctx := context.Background()

	records.set(record.Record{UserID: 1, Status: record.StatusIdle})

	if _, ok := svc.Resolve(ctx, 1); ok {
		t.Error("idle record must not resolve to a partner")
	}
}
