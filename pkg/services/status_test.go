package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpnda/cardless-sync/db"
	"github.com/vpnda/cardless-sync/pkg/clock"
	"github.com/vpnda/cardless-sync/pkg/models"
)

var testNow = time.Date(2024, 11, 26, 10, 30, 0, 0, time.UTC)

func TestNextIntervalBoundary(t *testing.T) {
	day := func(d, h, m int) time.Time { return time.Date(2024, 11, d, h, m, 0, 0, time.UTC) }

	testCases := []struct {
		name     string
		now      time.Time
		interval time.Duration
		expected time.Time
	}{
		{"Mid interval", day(26, 10, 30), 3 * time.Hour, day(26, 12, 0)},
		{"On a boundary", day(26, 12, 0), 3 * time.Hour, day(26, 15, 0)},
		{"Midnight", day(26, 0, 0), 3 * time.Hour, day(26, 3, 0)},
		{"Late evening rolls over", day(26, 23, 0), 3 * time.Hour, day(27, 0, 0)},
		{"Hourly", day(26, 10, 30), time.Hour, day(26, 11, 0)},
		{"Default interval", day(26, 1, 0), 0, day(26, 3, 0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NextIntervalBoundary(tc.now, tc.interval))
		})
	}
}

func TestStatusTrackerLifecycle(t *testing.T) {
	store := db.NewMockDB()
	clk := clock.NewFakeClock(testNow)
	tracker := NewStatusTracker(store, clk, 3*time.Hour)

	status, err := tracker.Get("acc")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusNone, status.LastSyncStatus)
	assert.True(t, status.RateLimit.IsUnknown())
	assert.Equal(t, time.Date(2024, 11, 26, 12, 0, 0, 0, time.UTC), status.NextSync)

	require.NoError(t, tracker.Begin("acc"))
	status, err = tracker.Get("acc")
	require.NoError(t, err)
	assert.True(t, status.IsSyncing)
	assert.Equal(t, models.SyncStatusPending, status.LastSyncStatus)

	reset := testNow.Add(time.Hour)
	require.NoError(t, tracker.Complete("acc", SyncOutcome{
		Transactions: 5,
		RateLimit:    &models.RateLimit{Limit: 4, Remaining: 3, Reset: &reset},
	}))
	status, err = tracker.Get("acc")
	require.NoError(t, err)
	assert.False(t, status.IsSyncing)
	assert.Equal(t, models.SyncStatusSuccess, status.LastSyncStatus)
	assert.Equal(t, 5, status.LastSyncTransactions)
	require.NotNil(t, status.LastSync)
	assert.Equal(t, testNow, *status.LastSync)
	assert.Equal(t, 3, status.RateLimit.Remaining)

	// A failed sync keeps the last count and the previous rate limit
	clk.Advance(10 * time.Minute)
	require.NoError(t, tracker.Begin("acc"))
	require.NoError(t, tracker.Complete("acc", SyncOutcome{Err: errors.New("boom")}))
	status, err = tracker.Get("acc")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, status.LastSyncStatus)
	assert.Equal(t, 5, status.LastSyncTransactions)
	assert.Equal(t, testNow.Add(10*time.Minute), *status.LastSync)
	assert.Equal(t, 4, status.RateLimit.Limit)

	// Past the reset the snapshot reads as unknown
	clk.Advance(time.Hour)
	status, err = tracker.Get("acc")
	require.NoError(t, err)
	assert.True(t, status.RateLimit.IsUnknown())
	assert.Nil(t, status.RateLimit.Reset)
}

func TestStatusTrackerResetStaleIsIdempotent(t *testing.T) {
	store := db.NewMockDB()
	tracker := NewStatusTracker(store, clock.NewFakeClock(testNow), 0)

	require.NoError(t, tracker.Begin("a"))
	require.NoError(t, tracker.Begin("b"))
	require.NoError(t, tracker.Complete("b", SyncOutcome{}))

	n, err := tracker.ResetStale()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	first, err := tracker.Get("a")
	require.NoError(t, err)

	n, err = tracker.ResetStale()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	second, err := tracker.Get("a")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, models.SyncStatusError, second.LastSyncStatus)
	assert.False(t, second.IsSyncing)

	other, err := tracker.Get("b")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, other.LastSyncStatus)
}

func TestStatusTrackerStoreError(t *testing.T) {
	store := db.NewMockDB()
	store.UpdateSyncStatusErr = errors.New("disk full")
	tracker := NewStatusTracker(store, clock.NewFakeClock(testNow), 0)

	assert.ErrorContains(t, tracker.Begin("a"), "disk full")
	assert.ErrorContains(t, tracker.Complete("a", SyncOutcome{}), "disk full")
}

func TestStatusTrackerNextSyncTime(t *testing.T) {
	clk := clock.NewFakeClock(testNow)
	tracker := NewStatusTracker(db.NewMockDB(), clk, 3*time.Hour)

	assert.Equal(t, time.Date(2024, 11, 26, 12, 0, 0, 0, time.UTC), tracker.NextSyncTime())

	clk.Advance(2 * time.Hour)
	assert.Equal(t, time.Date(2024, 11, 26, 15, 0, 0, 0, time.UTC), tracker.NextSyncTime())

	status, err := tracker.Get("acc")
	require.NoError(t, err)
	assert.Equal(t, tracker.NextSyncTime(), status.NextSync)
}
