package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vpnda/cardless-sync/pkg/http/gocardless"
	"github.com/vpnda/cardless-sync/pkg/models"
	"golang.org/x/text/currency"
)

const (
	remittanceMarker = "remittanceinformation:"
	unknownPayee     = "Unknown"
)

// TransformTransaction maps one provider record onto a ledger transaction
// for the given asset.
func TransformTransaction(tx gocardless.Transaction, assetId int64) (models.Transaction, error) {
	if tx.InternalTransactionId == "" {
		return models.Transaction{}, errors.New("transaction has no internal id")
	}

	date, err := bookingDate(tx)
	if err != nil {
		return models.Transaction{}, err
	}

	amount := models.Amount{
		Value:    tx.TransactionAmount.Amount,
		Currency: tx.TransactionAmount.Currency,
	}
	formatted, err := amount.Formatted()
	if err != nil {
		return models.Transaction{}, err
	}

	return models.Transaction{
		Date:       date,
		Amount:     formatted,
		Currency:   normalizeCurrency(tx.TransactionAmount.Currency),
		Payee:      payee(tx),
		Notes:      notes(tx.RemittanceInformationUnstructured),
		AssetId:    assetId,
		ExternalId: tx.InternalTransactionId,
		Status:     models.TransactionStatusUncleared,
	}, nil
}

// bookingDate returns the calendar day of the booking, falling back to the
// booking timestamp and the value date.
func bookingDate(tx gocardless.Transaction) (string, error) {
	raw, ok := lo.Coalesce(
		strings.TrimSpace(tx.BookingDate),
		strings.TrimSpace(tx.BookingDateTime),
		strings.TrimSpace(tx.ValueDate),
	)
	if !ok {
		return "", errors.New("transaction has no booking date")
	}
	if len(raw) >= len(time.DateOnly) {
		if d, err := time.Parse(time.DateOnly, raw[:len(time.DateOnly)]); err == nil {
			return d.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("failed to parse booking date %q", raw)
}

func normalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if unit, err := currency.ParseISO(code); err == nil {
		return strings.ToLower(unit.String())
	}
	return strings.ToLower(code)
}

func payee(tx gocardless.Transaction) string {
	name, ok := lo.Coalesce(
		strings.TrimSpace(tx.MerchantName),
		strings.TrimSpace(tx.CreditorName),
		strings.TrimSpace(tx.DebtorName),
	)
	if !ok {
		return unknownPayee
	}
	return name
}

// notes unwraps the structured remittance text some banks send, keeping
// only what follows the remittance marker.
func notes(raw string) string {
	if _, after, found := strings.Cut(raw, remittanceMarker); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(raw)
}
