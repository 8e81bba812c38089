package pairing

import (
	"testing"
	"time"
)

func TestPool_AddRemoveContains(t *testing.T) {
	p := newWaitingPool()
	now := time.Now()

	p.add(1, now)
	if !p.contains(1) || p.size() != 1 {
		t.Fatalf("expected pool of one containing 1")
	}
	if !p.remove(1) {
		t.Error("remove should report true for a member")
	}
	if p.remove(1) {
		t.Error("remove should report false for a non-member")
	}
}

func TestPool_PopTwoDistinct(t *testing.T) {
	now := time.Now()
	for i := 0; i < 200; i++ {
		p := newWaitingPool()
		p.add(1, now)
		p.add(2, now)
		p.add(3, now)

		a, b := p.popTwo()
		if a.userID == b.userID {
			t.Fatalf("popTwo returned the same user twice: %d", a.userID)
		}
		if p.size() != 1 {
			t.Fatalf("expected one member left, got %d", p.size())
		}
		if p.contains(a.userID) || p.contains(b.userID) {
			t.Fatal("popped members still in pool")
		}
	}
}

func TestPool_PopTwoKeepsStartTimes(t *testing.T) {
	p := newWaitingPool()
	t1 := time.Now().Add(-time.Minute)
	t2 := time.Now()
	p.add(1, t1)
	p.add(2, t2)

	a, b := p.popTwo()
	got := map[int64]time.Time{a.userID: a.startedAt, b.userID: b.startedAt}
	if !got[1].Equal(t1) || !got[2].Equal(t2) {
		t.Errorf("start times lost: %v", got)
	}
}

func TestPool_PopTwoEventuallyPicksEveryone(t *testing.T) {
	// The pick is uniform over current members; over many rounds every
	// member of a three-user pool must show up.
	seen := make(map[int64]bool)
	now := time.Now()
	for i := 0; i < 500 && len(seen) < 3; i++ {
		p := newWaitingPool()
		p.add(1, now)
		p.add(2, now)
		p.add(3, now)
		a, b := p.popTwo()
		seen[a.userID] = true
		seen[b.userID] = true
	}
	if len(seen) != 3 {
		t.Errorf("random pick never chose some member: %v", seen)
	}
}

func TestPool_Snapshot(t *testing.T) {
	p := newWaitingPool()
	now := time.Now()
	p.add(1, now)
	p.add(2, now)

	snap := p.snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}

	// Mutating the snapshot must not affect the pool.
	p.remove(snap[0].userID)
	if p.size() != 1 {
		t.Errorf("expected 1 member after remove, got %d", p.size())
	}
}
