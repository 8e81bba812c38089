// Package record persists the per-user partner assignment that mirrors the
// in-memory session store. Records live in Redis as small hashes:
//
//	Key:    user:<id>
//	Fields: status (idle|searching|chatting), partner_id
//
// The two-document writes used by pairing and unpairing run as Lua scripts so
// that both sides change in one atomic step; a crash can never leave one side
// written and the other not. Records are read back only by reconciliation and
// after a restart.
package record

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// UserPrefix is the Redis key prefix for partner records.
	UserPrefix = "user:"

	// Status values mirrored from the session state machine.
	StatusIdle      = "idle"
	StatusSearching = "searching"
	StatusChatting  = "chatting"
)

// Record is one user's persisted partner state. The zero value means the
// user has no record yet.
type Record struct {
	UserID    int64
	Status    string
	PartnerID int64
}

// Exists reports whether the record has been persisted at least once.
func (r Record) Exists() bool {
	return r.Status != ""
}

// Store manages partner records in Redis.
type Store struct {
	rdb         *redis.Client
	pairScript  *redis.Script
	clearScript *redis.Script
}

// NewStore creates a partner record store backed by the given Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{
		rdb:         rdb,
		pairScript:  redis.NewScript(pairLua),
		clearScript: redis.NewScript(clearPairLua),
	}
}

// Ensure creates an idle record for the user if none exists yet. Called on
// first contact so every known user has a durable record.
func (s *Store) Ensure(ctx context.Context, userID int64) error {
	key := UserPrefix + strconv.FormatInt(userID, 10)
	ok, err := s.rdb.HSetNX(ctx, key, "status", StatusIdle).Result()
	if err != nil {
		return fmt.Errorf("record: ensure %d: %w", userID, err)
	}
	if ok {
		if err := s.rdb.HSetNX(ctx, key, "partner_id", 0).Err(); err != nil {
			return fmt.Errorf("record: ensure %d: %w", userID, err)
		}
	}
	return nil
}

// Get reads a user's record. Returns the zero Record if none exists.
func (s *Store) Get(ctx context.Context, userID int64) (Record, error) {
	key := UserPrefix + strconv.FormatInt(userID, 10)
	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Record{}, fmt.Errorf("record: get %d: %w", userID, err)
	}
	if len(result) == 0 {
		return Record{}, nil
	}

	partnerID, _ := strconv.ParseInt(result["partner_id"], 10, 64)
	return Record{
		UserID:    userID,
		Status:    result["status"],
		PartnerID: partnerID,
	}, nil
}

// SetStatus writes a single-user status (idle or searching) and drops any
// partner pointer. Used for search start, search timeout, cancellation, and
// for clearing a stale one-sided assignment during reconciliation.
func (s *Store) SetStatus(ctx context.Context, userID int64, status string) error {
	key := UserPrefix + strconv.FormatInt(userID, 10)
	err := s.rdb.HSet(ctx, key, "status", status, "partner_id", 0).Err()
	if err != nil {
		return fmt.Errorf("record: set status %d=%s: %w", userID, status, err)
	}
	return nil
}

// SetPair atomically writes both users as chatting with mutual partner
// pointers. Either both documents change or neither does.
func (s *Store) SetPair(ctx context.Context, a, b int64) error {
	keys := []string{
		UserPrefix + strconv.FormatInt(a, 10),
		UserPrefix + strconv.FormatInt(b, 10),
	}
	err := s.pairScript.Run(ctx, s.rdb, keys, a, b).Err()
	if err != nil {
		return fmt.Errorf("record: set pair %d<->%d: %w", a, b, err)
	}
	return nil
}

// ClearPair atomically resets both users to idle with no partner. Safe to
// call when the pair is already cleared.
func (s *Store) ClearPair(ctx context.Context, a, b int64) error {
	keys := []string{
		UserPrefix + strconv.FormatInt(a, 10),
		UserPrefix + strconv.FormatInt(b, 10),
	}
	err := s.clearScript.Run(ctx, s.rdb, keys).Err()
	if err != nil {
		return fmt.Errorf("record: clear pair %d<->%d: %w", a, b, err)
	}
	return nil
}

// pairLua writes both partner documents in one atomic step.
// KEYS[1] = user A key, KEYS[2] = user B key, ARGV[1] = A id, ARGV[2] = B id.
const pairLua = `
redis.call('HSET', KEYS[1], 'status', 'chatting', 'partner_id', ARGV[2])
redis.call('HSET', KEYS[2], 'status', 'chatting', 'partner_id', ARGV[1])
return 1
`

// clearPairLua resets both partner documents to idle in one atomic step.
const clearPairLua = `
redis.call('HSET', KEYS[1], 'status', 'idle', 'partner_id', 0)
redis.call('HSET', KEYS[2], 'status', 'idle', 'partner_id', 0)
return 1
`
