package ranking

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:standings"

// Cache keeps the standings in a Redis sorted set so the leaderboard and
// per-user rank lookups can be served without touching Postgres. It is
// best-effort: every method returns the Redis error and the caller decides
// whether to fall back.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Rebuild replaces the sorted set with the given standings atomically via a
// pipelined rename. Standings arrive best first; the score is the position,
// so the set preserves the referral-count tiebreak that a raw balance score
// would lose.
func (c *Cache) Rebuild(ctx context.Context, standings []Standing) error {
	if len(standings) == 0 {
		return c.rdb.Del(ctx, leaderboardKey).Err()
	}

	members := make([]redis.Z, len(standings))
	for i, s := range standings {
		members[i] = redis.Z{
			Score:  float64(len(standings) - i),
			Member: strconv.FormatInt(s.UserID, 10),
		}
	}

	staging := leaderboardKey + ":staging"
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, staging)
	pipe.ZAdd(ctx, staging, members...)
	pipe.Rename(ctx, staging, leaderboardKey)
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns the ids of the highest-scored members, best first. A nil slice
// with no error means the set has not been built yet.
func (c *Cache) Top(ctx context.Context, n int) ([]int64, error) {
	raw, err := c.rdb.ZRevRange(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(raw))
	for _, member := range raw {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
