package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
)

const (
	// TransactionStatusUncleared is the only status this engine submits with.
	TransactionStatusUncleared = "uncleared"

	amountFraction = 2
)

var amountFormatter = money.NewFormatter(amountFraction, ".", "", "", "1")

// Transaction is a ledger-bound transaction built from one provider record.
type Transaction struct {
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Payee      string `json:"payee"`
	Notes      string `json:"notes"`
	AssetId    int64  `json:"asset_id"`
	ExternalId string `json:"external_id"`
	Status     string `json:"status"`
}

// LedgerTransaction is a transaction that already exists in the ledger.
type LedgerTransaction struct {
	LunchMoneyId int64  `json:"id"`
	ExternalId   string `json:"external_id"`
	Date         string `json:"date"`
	Amount       Amount `json:"amount"`
	Payee        string `json:"payee"`
}

// BatchResult is the ledger's answer to one submitted chunk.
type BatchResult struct {
	Ids []int64 `json:"ids"`
	// Submitted is the number of transactions sent in the chunk.
	Submitted int `json:"submitted"`
}

// Amount represents a monetary amount
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// ToMoney parses the decimal string into cents of the amount's currency.
// The ledger always takes two fractional digits, whatever the currency.
func (a *Amount) ToMoney() (*money.Money, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", a.Value, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("failed to parse amount %q: not a finite number", a.Value)
	}
	// Round the float to cents the way %.2f does, then read the digits back.
	fixed := strconv.FormatFloat(f, 'f', amountFraction, 64)
	minor, err := strconv.ParseInt(strings.Replace(fixed, ".", "", 1), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", a.Value, err)
	}
	return money.New(minor, strings.ToUpper(a.Currency)), nil
}

// Formatted renders the amount with exactly two fractional digits, keeping
// the sign: "-700.0" becomes "-700.00".
func (a *Amount) Formatted() (string, error) {
	m, err := a.ToMoney()
	if err != nil {
		return "", err
	}
	return amountFormatter.Format(m.Amount()), nil
}
