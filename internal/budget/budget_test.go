package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvaler emulates the reserve script against an in-memory map.
type fakeEvaler struct {
	usage map[string]int64
	keys  []string
	err   error
}

func (f *fakeEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.keys = append(f.keys, keys[0])

	limit := args[0].(int64)
	cost := args[1].(int64)
	if f.usage[keys[0]] >= limit {
		return redis.NewCmdResult(int64(-1), nil)
	}
	f.usage[keys[0]] += cost
	return redis.NewCmdResult(f.usage[keys[0]], nil)
}

func TestRedisCounter_Reserve_StopsAtBudget(t *testing.T) {
	fake := &fakeEvaler{usage: map[string]int64{}}
	counter := NewRedisCounter(fake)
	owner := uuid.New()
	now := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

	var granted int
	for i := 0; i < 5; i++ {
		ok, err := counter.Reserve(context.Background(), owner, 6, 2, now)
		require.NoError(t, err)
		if ok {
			granted++
		}
	}

	assert.Equal(t, 3, granted, "2 cents per message against a 6 cent budget")
}

func TestRedisCounter_Reserve_KeyedByMonth(t *testing.T) {
	fake := &fakeEvaler{usage: map[string]int64{}}
	counter := NewRedisCounter(fake)
	owner := uuid.New()

	april := time.Date(2026, 4, 30, 23, 0, 0, 0, time.UTC)
	may := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)

	ok, err := counter.Reserve(context.Background(), owner, 1, 1, april)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = counter.Reserve(context.Background(), owner, 1, 1, april)
	require.NoError(t, err)
	assert.False(t, ok, "april budget spent")

	ok, err = counter.Reserve(context.Background(), owner, 1, 1, may)
	require.NoError(t, err)
	assert.True(t, ok, "new month starts fresh")

	require.Len(t, fake.keys, 3)
	assert.Contains(t, fake.keys[0], "2026-04")
	assert.Contains(t, fake.keys[2], "2026-05")
}

func TestRedisCounter_Reserve_ZeroBudget(t *testing.T) {
	fake := &fakeEvaler{usage: map[string]int64{}}
	counter := NewRedisCounter(fake)

	ok, err := counter.Reserve(context.Background(), uuid.New(), 0, 1, time.Now())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, fake.keys, "no round trip when there is no budget")
}

func TestRedisCounter_Reserve_PropagatesErrors(t *testing.T) {
	counter := NewRedisCounter(&fakeEvaler{err: errors.New("connection refused")})

	ok, err := counter.Reserve(context.Background(), uuid.New(), 100, 1, time.Now())

	assert.Error(t, err)
	assert.False(t, ok)
}
