package lm

import (
	"context"
	"sync"
	"time"

	"github.com/vpnda/cardless-sync/pkg/models"
)

// ListCall records the arguments of one ListTransactions call
type ListCall struct {
	AssetId    int64
	Start, End time.Time
}

// MockLunchMoneyClient is a mock implementation of the LunchMoneyClient for testing
type MockLunchMoneyClient struct {
	mu sync.Mutex

	// Mock data to return
	Accounts     []models.LunchMoneyAccount
	Transactions map[int64][]models.LedgerTransaction

	// Error values to return
	ListAccountsErr       error
	ListTransactionsErr   error
	InsertTransactionsErr error
	// InsertErrOnCall fails only the n-th insert call (1-based) when set
	InsertErrOnCall int

	// Recorded calls
	ListCalls []ListCall
	Inserted  [][]models.Transaction

	nextId int64
}

// NewMockLunchMoneyClient creates a new mock LunchMoney client
func NewMockLunchMoneyClient() *MockLunchMoneyClient {
	return &MockLunchMoneyClient{
		Accounts:     []models.LunchMoneyAccount{},
		Transactions: map[int64][]models.LedgerTransaction{},
		nextId:       1000,
	}
}

// ListAccounts returns the mock accounts
func (m *MockLunchMoneyClient) ListAccounts(ctx context.Context) ([]models.LunchMoneyAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListAccountsErr != nil {
		return nil, m.ListAccountsErr
	}
	return m.Accounts, nil
}

// ListTransactions returns the mock transactions for the asset
func (m *MockLunchMoneyClient) ListTransactions(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls = append(m.ListCalls, ListCall{AssetId: assetId, Start: start, End: end})
	if m.ListTransactionsErr != nil {
		return nil, m.ListTransactionsErr
	}
	return m.Transactions[assetId], nil
}

// InsertTransactions records the batch and hands out sequential ids
func (m *MockLunchMoneyClient) InsertTransactions(ctx context.Context, transactions []models.Transaction) (*models.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := len(m.Inserted) + 1
	batch := append([]models.Transaction(nil), transactions...)
	m.Inserted = append(m.Inserted, batch)

	if m.InsertTransactionsErr != nil && (m.InsertErrOnCall == 0 || m.InsertErrOnCall == call) {
		return nil, m.InsertTransactionsErr
	}

	ids := make([]int64, 0, len(transactions))
	for _, t := range transactions {
		m.nextId++
		ids = append(ids, m.nextId)
		m.Transactions[t.AssetId] = append(m.Transactions[t.AssetId], models.LedgerTransaction{
			LunchMoneyId: m.nextId,
			ExternalId:   t.ExternalId,
			Date:         t.Date,
			Amount:       models.Amount{Value: t.Amount, Currency: t.Currency},
			Payee:        t.Payee,
		})
	}
	return &models.BatchResult{Ids: ids, Submitted: len(transactions)}, nil
}

// InsertedCount returns the number of transactions across all recorded batches
func (m *MockLunchMoneyClient) InsertedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.Inserted {
		n += len(b)
	}
	return n
}
