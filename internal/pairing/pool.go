package pairing

import (
	"math/rand"
	"time"
)

// poolEntry is one waiting user together with the time they started
// searching, used by the search-timeout watcher.
type poolEntry struct {
	userID    int64
	startedAt time.Time
}

// waitingPool is the set of users currently searching for a partner.
// Membership order carries no meaning: pairing picks members uniformly at
// random, so a newly arrived user may pair before a long-waiting one. The
// pool is not safe for concurrent use on its own; the service mutex guards
// every access.
type waitingPool struct {
	members map[int64]time.Time
	rng     *rand.Rand
}

func newWaitingPool() *waitingPool {
	return &waitingPool{
		members: make(map[int64]time.Time),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *waitingPool) add(userID int64, startedAt time.Time) {
	p.members[userID] = startedAt
}

// remove deletes the user from the pool, reporting whether they were present.
func (p *waitingPool) remove(userID int64) bool {
	if _, ok := p.members[userID]; !ok {
		return false
	}
	delete(p.members, userID)
	return true
}

func (p *waitingPool) contains(userID int64) bool {
	_, ok := p.members[userID]
	return ok
}

func (p *waitingPool) size() int {
	return len(p.members)
}

// snapshot returns a copy of all entries for lock-free inspection.
func (p *waitingPool) snapshot() []poolEntry {
	entries := make([]poolEntry, 0, len(p.members))
	for id, at := range p.members {
		entries = append(entries, poolEntry{userID: id, startedAt: at})
	}
	return entries
}

// popTwo removes and returns two distinct members chosen uniformly at
// random. The caller must ensure the pool holds at least two members.
func (p *waitingPool) popTwo() (poolEntry, poolEntry) {
	ids := make([]int64, 0, len(p.members))
	for id := range p.members {
		ids = append(ids, id)
	}

	i := p.rng.Intn(len(ids))
	j := p.rng.Intn(len(ids) - 1)
	if j >= i {
		j++
	}

	a := poolEntry{userID: ids[i], startedAt: p.members[ids[i]]}
	b := poolEntry{userID: ids[j], startedAt: p.members[ids[j]]}
	delete(p.members, a.userID)
	delete(p.members, b.userID)
	return a, b
}
