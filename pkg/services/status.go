package services

import (
	"fmt"
	"time"

	"github.com/vpnda/cardless-sync/db"
	"github.com/vpnda/cardless-sync/pkg/clock"
	"github.com/vpnda/cardless-sync/pkg/models"
)

// DefaultSyncInterval is the spacing of scheduled passes within a day.
const DefaultSyncInterval = 3 * time.Hour

// SyncOutcome is what an account sync ended with.
type SyncOutcome struct {
	Err          error
	Transactions int
	RateLimit    *models.RateLimit
}

// StatusTracker drives the per-account status state machine on top of the
// status store.
type StatusTracker struct {
	store    db.DBInterface
	clock    clock.Clock
	interval time.Duration
}

func NewStatusTracker(store db.DBInterface, clk clock.Clock, interval time.Duration) *StatusTracker {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &StatusTracker{
		store:    store,
		clock:    clk,
		interval: interval,
	}
}

// Begin marks the account as syncing.
func (t *StatusTracker) Begin(accountId string) error {
	_, err := t.store.UpdateSyncStatus(accountId, func(s *models.AccountStatus) error {
		s.IsSyncing = true
		s.LastSyncStatus = models.SyncStatusPending
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s as syncing: %w", accountId, err)
	}
	return nil
}

// Complete records the end of an account sync. The transaction count only
// moves on success, and a missing rate limit keeps the previous snapshot.
func (t *StatusTracker) Complete(accountId string, outcome SyncOutcome) error {
	now := t.clock.Now()
	_, err := t.store.UpdateSyncStatus(accountId, func(s *models.AccountStatus) error {
		s.IsSyncing = false
		s.LastSync = &now
		if outcome.Err != nil {
			s.LastSyncStatus = models.SyncStatusError
		} else {
			s.LastSyncStatus = models.SyncStatusSuccess
			s.LastSyncTransactions = outcome.Transactions
		}
		if outcome.RateLimit != nil {
			rl := *outcome.RateLimit
			s.RateLimit = &rl
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record sync result for %s: %w", accountId, err)
	}
	return nil
}

// Get returns the status as it reads now: rate limits past their reset are
// unknown and the next sync estimate is filled in.
func (t *StatusTracker) Get(accountId string) (*models.AccountStatus, error) {
	status, err := t.store.GetSyncStatus(accountId)
	if err != nil {
		return nil, err
	}
	status.RateLimit = status.RateLimit.At(t.clock.Now())
	status.NextSync = t.NextSyncTime()
	return status, nil
}

// ResetStale fails every status left in progress.
func (t *StatusTracker) ResetStale() (int, error) {
	return t.store.ResetStaleSyncStatuses()
}

// NextSyncTime estimates when the next scheduled pass starts.
func (t *StatusTracker) NextSyncTime() time.Time {
	return NextIntervalBoundary(t.clock.Now(), t.interval)
}

// NextIntervalBoundary returns the first multiple of interval after local
// midnight of now's day that is strictly after now.
func NextIntervalBoundary(now time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	y, m, d := now.Date()
	next := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}
