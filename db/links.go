package db

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vpnda/cardless-sync/pkg/models"
)

// LoadLinks returns every account link, or only the links of one provider
// account when accountId is set.
func (db *DB) LoadLinks(accountId string) ([]models.AccountLink, error) {
	query := `
	SELECT l.lunchmoney_id, l.gocardless_id, l.created_at, s.last_sync
	FROM account_links l
	LEFT JOIN sync_status s ON s.account_id = l.gocardless_id
	`
	args := []interface{}{}
	if accountId != "" {
		query += ` WHERE l.gocardless_id = ?`
		args = append(args, accountId)
	}
	query += ` ORDER BY l.created_at, l.lunchmoney_id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account links: %w", err)
	}
	defer rows.Close()

	links := []models.AccountLink{}
	for rows.Next() {
		var link models.AccountLink
		var lastSync sql.NullTime
		if err := rows.Scan(&link.LunchMoneyId, &link.GocardlessId, &link.CreatedAt, &lastSync); err != nil {
			return nil, fmt.Errorf("failed to scan account link: %w", err)
		}
		if lastSync.Valid {
			t := lastSync.Time
			link.LastSync = &t
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account links: %w", err)
	}
	return links, nil
}

// SaveLink stores a link, dropping any existing link that touches either side.
func (db *DB) SaveLink(link models.AccountLink) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM account_links WHERE lunchmoney_id = ? OR gocardless_id = ?`,
		link.LunchMoneyId, link.GocardlessId)
	if err != nil {
		return fmt.Errorf("failed to remove previous links: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info().Int64("lunchmoney_id", link.LunchMoneyId).Str("gocardless_id", link.GocardlessId).
			Int64("removed", n).Msg("replaced existing account links")
	}

	createdAt := link.CreatedAt
	if createdAt.IsZero() {
		_, err = tx.Exec(`INSERT INTO account_links (lunchmoney_id, gocardless_id) VALUES (?, ?)`,
			link.LunchMoneyId, link.GocardlessId)
	} else {
		_, err = tx.Exec(`INSERT INTO account_links (lunchmoney_id, gocardless_id, created_at) VALUES (?, ?, ?)`,
			link.LunchMoneyId, link.GocardlessId, createdAt)
	}
	if err != nil {
		return fmt.Errorf("failed to insert account link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit account link: %w", err)
	}
	return nil
}

// RemoveLink deletes the link between the two accounts. Removing a link that
// does not exist is not an error.
func (db *DB) RemoveLink(lunchMoneyId int64, gocardlessId string) error {
	_, err := db.Exec(`DELETE FROM account_links WHERE lunchmoney_id = ? AND gocardless_id = ?`,
		lunchMoneyId, gocardlessId)
	if err != nil {
		return fmt.Errorf("failed to remove account link: %w", err)
	}
	return nil
}
