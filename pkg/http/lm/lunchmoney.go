package lm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/icco/lunchmoney"
	"github.com/samber/lo"
	"github.com/vpnda/cardless-sync/pkg/models"
)

const defaultRequestTimeout = 30 * time.Second

type LunchMoneyClient struct {
	client *lunchmoney.Client
}

type Option func(*lunchmoney.Client) error

// WithTimeout bounds every ledger request. The library does not pass the
// request context through on reads, so this is the only bound they get.
func WithTimeout(timeout time.Duration) Option {
	return func(c *lunchmoney.Client) error {
		if timeout > 0 {
			c.HTTP.Timeout = timeout
		}
		return nil
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *lunchmoney.Client) error {
		if baseURL == "" {
			return nil
		}
		base, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid LunchMoney base URL %q: %w", baseURL, err)
		}
		c.Base = base
		return nil
	}
}

// WithTransport wraps the authenticating transport, e.g. with a debug dumper.
func WithTransport(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(c *lunchmoney.Client) error {
		c.HTTP.Transport = wrap(c.HTTP.Transport)
		return nil
	}
}

func NewLunchMoneyClient(apiKey string, opts ...Option) (*LunchMoneyClient, error) {
	client, err := lunchmoney.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LunchMoney client: %w", err)
	}
	client.HTTP.Timeout = defaultRequestTimeout
	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, err
		}
	}

	return &LunchMoneyClient{
		client: client,
	}, nil
}

func (c *LunchMoneyClient) ListAccounts(ctx context.Context) ([]models.LunchMoneyAccount, error) {
	assets, err := c.client.GetAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assets from LunchMoney: %w", err)
	}

	accounts := make([]models.LunchMoneyAccount, 0, len(assets))
	for _, asset := range assets {
		accounts = append(accounts, models.LunchMoneyAccount{
			LunchMoneyId: asset.ID,
			Name:         asset.Name,
			DisplayName:  asset.DisplayName,
		})
	}
	return accounts, nil
}

func (c *LunchMoneyClient) ListTransactions(ctx context.Context, assetId int64, start, end time.Time) ([]models.LedgerTransaction, error) {
	lmTrns, err := c.client.GetTransactions(ctx, &lunchmoney.TransactionFilters{
		AssetID:   lo.ToPtr(assetId),
		StartDate: lo.ToPtr(start.Format(time.DateOnly)),
		EndDate:   lo.ToPtr(end.Format(time.DateOnly)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions from LunchMoney: %w", err)
	}

	translated := make([]models.LedgerTransaction, 0, len(lmTrns))
	for _, t := range lmTrns {
		translated = append(translated, models.LedgerTransaction{
			LunchMoneyId: t.ID,
			ExternalId:   t.ExternalID,
			Date:         t.Date,
			Amount: models.Amount{
				Value:    t.Amount,
				Currency: t.Currency,
			},
			Payee: t.Payee,
		})
	}
	return translated, nil
}

func (c *LunchMoneyClient) InsertTransactions(ctx context.Context, transactions []models.Transaction) (*models.BatchResult, error) {
	lmTrns := make([]lunchmoney.InsertTransaction, 0, len(transactions))
	for _, t := range transactions {
		lmTrns = append(lmTrns, lunchmoney.InsertTransaction{
			Date:       t.Date,
			Amount:     t.Amount,
			Currency:   t.Currency,
			Payee:      t.Payee,
			Notes:      t.Notes,
			AssetID:    lo.ToPtr(t.AssetId),
			ExternalID: t.ExternalId,
			Status:     t.Status,
		})
	}

	response, err := c.client.InsertTransactions(ctx, lunchmoney.InsertTransactionsRequest{
		CheckForRecurring: true,
		DebitAsNegative:   true,
		Transactions:      lmTrns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert transactions into LunchMoney: %w", err)
	}

	return &models.BatchResult{
		Ids:       response.IDs,
		Submitted: len(transactions),
	}, nil
}
