package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// reserveScript charges ARGV[2] when the stored usage is below ARGV[1].
// Returns the new usage, or -1 when the budget is spent.
const reserveScript = `
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used >= tonumber(ARGV[1]) then
  return -1
end
local n = redis.call('INCRBY', KEYS[1], ARGV[2])
redis.call('EXPIREAT', KEYS[1], ARGV[3])
return n
`

// Evaler is the subset of *redis.Client the counter needs.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisCounter keeps one usage key per owner per month. Keys expire a
// week after the month ends.
type RedisCounter struct {
	rdb    Evaler
	prefix string
}

var _ Counter = (*RedisCounter)(nil)

func NewRedisCounter(rdb Evaler) *RedisCounter {
	return &RedisCounter{rdb: rdb, prefix: "bidwell:ai_budget"}
}

// Connect parses url and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func (c *RedisCounter) Reserve(ctx context.Context, ownerID uuid.UUID, budgetCents, costCents int64, now time.Time) (bool, error) {
	if budgetCents <= 0 {
		return false, nil
	}

	key, expireAt := c.key(ownerID, now)
	n, err := c.rdb.Eval(ctx, reserveScript, []string{key}, budgetCents, costCents, expireAt.Unix()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to reserve ai budget: %w", err)
	}
	return n >= 0, nil
}

func (c *RedisCounter) key(ownerID uuid.UUID, now time.Time) (string, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	expireAt := start.AddDate(0, 1, 7)
	return fmt.Sprintf("%s:%s:%s", c.prefix, ownerID, start.Format("2006-01")), expireAt
}
