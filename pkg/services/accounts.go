package services

import (
	"context"

	"github.com/samber/lo"
	"github.com/vpnda/cardless-sync/pkg/http/lm"
	"github.com/vpnda/cardless-sync/pkg/models"
)

const (
	UnknownAccountName = "Unknown Account"
)

// LinkStatus joins a link with its account names and current status.
type LinkStatus struct {
	Link        models.AccountLink
	AccountName string
	// ProviderName is the IBAN of the provider account
	ProviderName string
	Status       *models.AccountStatus
}

// AccountDirectory resolves ledger asset ids to display names.
type AccountDirectory struct {
	client lm.LunchMoneyClientInterface
	names  map[int64]string
}

func NewAccountDirectory(client lm.LunchMoneyClientInterface) *AccountDirectory {
	return &AccountDirectory{client: client}
}

// Load fetches the ledger accounts once.
func (d *AccountDirectory) Load(ctx context.Context) error {
	accounts, err := d.client.ListAccounts(ctx)
	if err != nil {
		return err
	}
	d.names = lo.SliceToMap(accounts, func(a models.LunchMoneyAccount) (int64, string) {
		name, _ := lo.Coalesce(a.DisplayName, a.Name)
		return a.LunchMoneyId, name
	})
	return nil
}

// Name returns the account name, or UnknownAccountName when the asset is not
// known or Load failed.
func (d *AccountDirectory) Name(id int64) string {
	if name, ok := d.names[id]; ok && name != "" {
		return name
	}
	return UnknownAccountName
}

// Accounts lists the ledger accounts.
func (d *AccountDirectory) Accounts(ctx context.Context) ([]models.LunchMoneyAccount, error) {
	return d.client.ListAccounts(ctx)
}
