package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bidwell/internal/jobs"
	"github.com/dukerupert/bidwell/internal/repository/repotest"
)

func TestScheduler_Tick(t *testing.T) {
	tests := []struct {
		name      string
		at        time.Time
		wantDaily int
	}{
		{name: "before run hour", at: time.Date(2026, 3, 2, 5, 59, 0, 0, time.UTC), wantDaily: 0},
		{name: "at run hour", at: time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), wantDaily: 1},
		{name: "late in the day", at: time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC), wantDaily: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.New()
			s := NewScheduler(store, 6, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
			s.now = func() time.Time { return tt.at }

			s.Tick(context.Background())

			assert.Len(t, store.Jobs(jobs.JobTypeDaily), tt.wantDaily)
			assert.Len(t, store.Jobs(jobs.JobTypeCleanupFinishedJobs), tt.wantDaily)
		})
	}
}

func TestScheduler_Tick_OncePerDay(t *testing.T) {
	store := repotest.New()
	s := NewScheduler(store, 6, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	at := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	for i := 0; i < 5; i++ {
		s.Tick(context.Background())
		at = at.Add(time.Hour)
	}

	daily := store.Jobs(jobs.JobTypeDaily)
	require.Len(t, daily, 1)
	assert.Equal(t, jobs.DailyKey(at), daily[0].IdempotencyKey.String)

	at = time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	s.Tick(context.Background())

	assert.Len(t, store.Jobs(jobs.JobTypeDaily), 2)
}

func TestScheduler_Tick_LocalOffsetUsesUTC(t *testing.T) {
	store := repotest.New()
	s := NewScheduler(store, 6, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	denver := time.FixedZone("MST", -7*60*60)
	// 23:30 local on March 1 is 06:30 UTC on March 2.
	s.now = func() time.Time { return time.Date(2026, 3, 1, 23, 30, 0, 0, denver) }

	s.Tick(context.Background())

	daily := store.Jobs(jobs.JobTypeDaily)
	require.Len(t, daily, 1)
	assert.Equal(t, "daily:2026-03-02", daily[0].IdempotencyKey.String)
}
