package lm

import (
	"context"
	"time"

	"github.com/vpnda/cardless-sync/pkg/models"
)

// LunchMoneyClientInterface defines the ledger operations the sync engine needs
type LunchMoneyClientInterface interface {
	ListAccounts(ctx context.Context) ([]models.LunchMoneyAccount, error)
	ListTransactions(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error)
	InsertTransactions(ctx context.Context, transactions []models.Transaction) (*models.BatchResult, error)
}

// Ensure LunchMoneyClient implements LunchMoneyClientInterface
var _ LunchMoneyClientInterface = (*LunchMoneyClient)(nil)

// Ensure MockLunchMoneyClient implements LunchMoneyClientInterface
var _ LunchMoneyClientInterface = (*MockLunchMoneyClient)(nil)
