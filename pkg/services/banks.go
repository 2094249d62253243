package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/vpnda/cardless-sync/pkg/http/gocardless"
)

// LinkedAccount is a provider account granted by a linked requisition.
type LinkedAccount struct {
	RequisitionId string
	InstitutionId string
	AccountId     string
	// Iban is UnknownAccountName when the provider did not return one
	Iban string
}

// BankDirectory looks up the banks and accounts the provider can sync from.
type BankDirectory struct {
	tokens *TokenManager
	source gocardless.AccountSource
}

func NewBankDirectory(tokens *TokenManager, source gocardless.AccountSource) *BankDirectory {
	return &BankDirectory{
		tokens: tokens,
		source: source,
	}
}

// Institutions lists the banks available in a country.
func (d *BankDirectory) Institutions(ctx context.Context, country string) ([]gocardless.Institution, error) {
	token, err := d.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	return d.source.ListInstitutions(ctx, token, country)
}

// LinkedAccounts lists every account of every linked requisition with its IBAN.
func (d *BankDirectory) LinkedAccounts(ctx context.Context) ([]LinkedAccount, error) {
	token, err := d.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	requisitions, err := d.source.ListRequisitions(ctx, token)
	if err != nil {
		return nil, err
	}

	var accounts []LinkedAccount
	for _, req := range requisitions {
		for _, accountId := range req.Accounts {
			accounts = append(accounts, LinkedAccount{
				RequisitionId: req.Id,
				InstitutionId: req.InstitutionId,
				AccountId:     accountId,
				Iban:          d.iban(ctx, token, accountId),
			})
		}
	}
	return accounts, nil
}

// iban returns the account's IBAN, or UnknownAccountName when the details
// cannot be fetched.
func (d *BankDirectory) iban(ctx context.Context, token, accountId string) string {
	details, _, err := d.source.GetAccountDetails(ctx, token, accountId)
	if err != nil {
		log.Warn().Err(err).Str("account", accountId).Msg("failed to get provider account details")
		return UnknownAccountName
	}
	if details == nil || details.Iban == "" {
		return UnknownAccountName
	}
	return details.Iban
}
