package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastSeenKey = "presence:last_seen"

// RedisPresenceStore keeps one sorted set of user id -> last seen time in
// unix milliseconds. It is a mirror; the in-process registry decides who is
// online.
type RedisPresenceStore struct {
	rdb redis.Cmdable
	key string
}

func NewRedisPresenceStore(rdb redis.Cmdable) *RedisPresenceStore {
	return &RedisPresenceStore{
		rdb: rdb,
		key: lastSeenKey,
	}
}

// Touch adds or updates every user with the given time.
func (p *RedisPresenceStore) Touch(ctx context.Context, userIDs []string, at time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	score := float64(at.UnixMilli())
	members := make([]redis.Z, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, redis.Z{Score: score, Member: id})
	}
	// GT keeps a newer time written by a concurrent Touch.
	return p.rdb.ZAddGT(ctx, p.key, members...).Err()
}

// LastSeen returns the recorded time of each known user.
func (p *RedisPresenceStore) LastSeen(ctx context.Context, userIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	scores, err := p.rdb.ZMScore(ctx, p.key, userIDs...).Result()
	if err != nil {
		return nil, err
	}
	for i, score := range scores {
		// Missing members come back as 0.
		if i < len(userIDs) && score > 0 {
			out[userIDs[i]] = time.UnixMilli(int64(score)).UTC()
		}
	}
	return out, nil
}
