package audit

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule defines the suppression policy: the Redis key prefix, the maximum
// number of audit rows per sender in the window, and the window duration.
type Rule struct {
	Key    string
	Limit  int
	Window time.Duration
}

// DefaultRule allows 10 audit rows per sender per minute. Everything beyond
// that is the same conversation continuing and adds no audit value.
var DefaultRule = Rule{Key: "audit:rl:", Limit: 10, Window: 1 * time.Minute}

// Suppressor performs sliding-window checks against Redis using the
// INCR + EXPIRE pattern.
type Suppressor struct {
	client *redis.Client
	rule   Rule
}

// NewSuppressor creates a Suppressor with the default rule.
func NewSuppressor(client *redis.Client) *Suppressor {
	return &Suppressor{client: client, rule: DefaultRule}
}

// Allow reports whether an audit row for the sender should be written. On
// Redis errors it fails open (returns true) so a Redis outage never mutes
// the audit trail.
func (s *Suppressor) Allow(ctx context.Context, sender int64) (bool, error) {
	key := s.rule.Key + strconv.FormatInt(sender, 10)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[audit] redis INCR error key=%s: %v (failing open)", key, err)
		return true, err
	}

	// On the first increment, set the expiry to define the window boundary.
	if count == 1 {
		if err := s.client.Expire(ctx, key, s.rule.Window).Err(); err != nil {
			log.Printf("[audit] redis EXPIRE error key=%s: %v (failing open)", key, err)
			s.client.Del(ctx, key)
			return true, err
		}
	}

	return int(count) <= s.rule.Limit, nil
}
