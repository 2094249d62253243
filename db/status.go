package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vpnda/cardless-sync/pkg/models"
)

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

// GetSyncStatus returns the persisted status of an account, or the never
// synced default when nothing is stored yet.
func (db *DB) GetSyncStatus(accountId string) (*models.AccountStatus, error) {
	return getSyncStatus(db, accountId)
}

func getSyncStatus(q queryRower, accountId string) (*models.AccountStatus, error) {
	query := `
	SELECT last_sync, last_sync_status, last_sync_transactions, is_syncing,
		rate_limit_limit, rate_limit_remaining, rate_limit_reset
	FROM sync_status
	WHERE account_id = ?
	`

	var (
		status    models.AccountStatus
		lastSync  sql.NullTime
		reset     sql.NullTime
		limit     int
		remaining int
	)
	err := q.QueryRow(query, accountId).Scan(&lastSync, &status.LastSyncStatus, &status.LastSyncTransactions,
		&status.IsSyncing, &limit, &remaining, &reset)
	if errors.Is(err, sql.ErrNoRows) {
		fresh := models.NewAccountStatus()
		return &fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	if lastSync.Valid {
		t := lastSync.Time
		status.LastSync = &t
	}
	status.RateLimit = &models.RateLimit{Limit: limit, Remaining: remaining}
	if reset.Valid {
		t := reset.Time
		status.RateLimit.Reset = &t
	}
	return &status, nil
}

// UpdateSyncStatus runs fn against the current status of an account and
// persists the result in one transaction. Returning an error from fn leaves
// the stored status untouched.
func (db *DB) UpdateSyncStatus(accountId string, fn func(*models.AccountStatus) error) (*models.AccountStatus, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := getSyncStatus(tx, accountId)
	if err != nil {
		return nil, err
	}
	if err := fn(status); err != nil {
		return nil, err
	}

	limit, remaining := -1, -1
	var reset sql.NullTime
	if status.RateLimit != nil {
		limit, remaining = status.RateLimit.Limit, status.RateLimit.Remaining
		if status.RateLimit.Reset != nil {
			reset = sql.NullTime{Time: *status.RateLimit.Reset, Valid: true}
		}
	}
	var lastSync sql.NullTime
	if status.LastSync != nil {
		lastSync = sql.NullTime{Time: *status.LastSync, Valid: true}
	}

	query := `
	INSERT INTO sync_status (account_id, last_sync, last_sync_status, last_sync_transactions,
		is_syncing, rate_limit_limit, rate_limit_remaining, rate_limit_reset)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(account_id)
	DO UPDATE SET
		last_sync = excluded.last_sync,
		last_sync_status = excluded.last_sync_status,
		last_sync_transactions = excluded.last_sync_transactions,
		is_syncing = excluded.is_syncing,
		rate_limit_limit = excluded.rate_limit_limit,
		rate_limit_remaining = excluded.rate_limit_remaining,
		rate_limit_reset = excluded.rate_limit_reset
	`
	_, err = tx.Exec(query, accountId, lastSync, status.LastSyncStatus, status.LastSyncTransactions,
		status.IsSyncing, limit, remaining, reset)
	if err != nil {
		return nil, fmt.Errorf("failed to save sync status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync status: %w", err)
	}
	return status, nil
}

// ResetStaleSyncStatuses marks every status left in progress as failed and
// returns how many rows changed.
func (db *DB) ResetStaleSyncStatuses() (int, error) {
	res, err := db.Exec(`
	UPDATE sync_status
	SET is_syncing = false, last_sync_status = ?
	WHERE is_syncing = true OR last_sync_status = ?
	`, models.SyncStatusError, models.SyncStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale sync statuses: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset sync statuses: %w", err)
	}
	if n > 0 {
		log.Warn().Int64("count", n).Msg("reset stale sync statuses to error")
	}
	return int(n), nil
}
