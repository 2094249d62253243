package gocardless

import (
	"context"
	"time"

	"github.com/vpnda/cardless-sync/pkg/models"
)

// TokenSource issues provider tokens from long-lived credentials.
type TokenSource interface {
	CreateToken(ctx context.Context) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refresh string) (*TokenResponse, error)
}

// TransactionSource fetches provider transactions for one account.
type TransactionSource interface {
	FetchTransactions(ctx context.Context, accountId, accessToken string,
		from time.Time, to *time.Time) (*Transactions, *models.RateLimit, error)
}

// AccountSource browses banks and the accounts connected through requisitions.
type AccountSource interface {
	ListInstitutions(ctx context.Context, accessToken, country string) ([]Institution, error)
	ListRequisitions(ctx context.Context, accessToken string) ([]Requisition, error)
	GetAccountDetails(ctx context.Context, accessToken, accountId string) (*AccountDetails, *models.RateLimit, error)
}

var (
	_ TokenSource       = (*GoCardlessClient)(nil)
	_ TransactionSource = (*GoCardlessClient)(nil)
	_ AccountSource     = (*GoCardlessClient)(nil)
	_ TokenSource       = (*MockGoCardlessClient)(nil)
	_ TransactionSource = (*MockGoCardlessClient)(nil)
	_ AccountSource     = (*MockGoCardlessClient)(nil)
)
