package services

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/vpnda/cardless-sync/pkg/models"
)

// LedgerQuery lists the ledger transactions of an asset within a date window.
type LedgerQuery func(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error)

// FilterNew drops the transactions whose external id already exists in the
// ledger between the earliest and latest date of the batch. All transactions
// are expected to target the asset of the first one.
func FilterNew(ctx context.Context, transactions []models.Transaction, query LedgerQuery) ([]models.Transaction, error) {
	if len(transactions) == 0 {
		return []models.Transaction{}, nil
	}

	dates := lo.Map(transactions, func(t models.Transaction, _ int) string { return t.Date })
	start, err := time.Parse(time.DateOnly, lo.Min(dates))
	if err != nil {
		return nil, fmt.Errorf("failed to parse window start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, lo.Max(dates))
	if err != nil {
		return nil, fmt.Errorf("failed to parse window end: %w", err)
	}

	existing, err := query(ctx, transactions[0].AssetId, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing ledger transactions: %w", err)
	}

	known := lo.SliceToMap(
		lo.Filter(existing, func(t models.LedgerTransaction, _ int) bool { return t.ExternalId != "" }),
		func(t models.LedgerTransaction) (string, struct{}) { return t.ExternalId, struct{}{} },
	)

	return lo.Filter(transactions, func(t models.Transaction, _ int) bool {
		_, ok := known[t.ExternalId]
		return !ok
	}), nil
}
