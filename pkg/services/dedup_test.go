package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpnda/cardless-sync/pkg/models"
)

func ledgerTx(id, date string) models.Transaction {
	return models.Transaction{Date: date, Amount: "1.00", Currency: "eur", AssetId: 7, ExternalId: id}
}

func TestFilterNewEmptyDoesNotQuery(t *testing.T) {
	query := func(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error) {
		t.Fatal("ledger should not be queried for an empty batch")
		return nil, nil
	}

	got, err := FilterNew(context.Background(), nil, query)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterNew(t *testing.T) {
	input := []models.Transaction{
		ledgerTx("a", "2024-11-22"),
		ledgerTx("b", "2024-11-20"),
		ledgerTx("c", "2024-11-26"),
		ledgerTx("d", "2024-11-21"),
	}

	var gotAsset int64
	var gotStart, gotEnd time.Time
	query := func(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error) {
		gotAsset, gotStart, gotEnd = assetId, start, end
		return []models.LedgerTransaction{
			{LunchMoneyId: 1, ExternalId: "b"},
			{LunchMoneyId: 2, ExternalId: "c"},
			{LunchMoneyId: 3, ExternalId: ""},
			{LunchMoneyId: 4, ExternalId: "zzz"},
		}, nil
	}

	got, err := FilterNew(context.Background(), input, query)
	require.NoError(t, err)
	assert.Equal(t, []models.Transaction{input[0], input[3]}, got)

	assert.Equal(t, int64(7), gotAsset)
	assert.Equal(t, time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC), gotStart)
	assert.Equal(t, time.Date(2024, 11, 26, 0, 0, 0, 0, time.UTC), gotEnd)
}

func TestFilterNewAllPresent(t *testing.T) {
	input := []models.Transaction{ledgerTx("a", "2024-11-26")}
	query := func(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error) {
		assert.Equal(t, start, end)
		return []models.LedgerTransaction{{ExternalId: "a"}}, nil
	}

	got, err := FilterNew(context.Background(), input, query)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterNewQueryError(t *testing.T) {
	query := func(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error) {
		return nil, errors.New("ledger down")
	}

	_, err := FilterNew(context.Background(), []models.Transaction{ledgerTx("a", "2024-11-26")}, query)
	assert.ErrorContains(t, err, "ledger down")
}
