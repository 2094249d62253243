package gocardless

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	DefaultBaseURL = "https://bankaccountdata.gocardless.com/api/v2"

	headerRateLimitLimit     = "HTTP_X_RATELIMIT_ACCOUNT_SUCCESS_LIMIT"
	headerRateLimitRemaining = "HTTP_X_RATELIMIT_ACCOUNT_SUCCESS_REMAINING"
	headerRateLimitReset     = "HTTP_X_RATELIMIT_ACCOUNT_SUCCESS_RESET"

	// RequisitionStatusLinked marks a requisition whose bank consent completed.
	RequisitionStatusLinked = "LN"
)

var (
	// ErrRateLimited is returned when the provider answers 429 on a fetch.
	ErrRateLimited = errors.New("provider rate limit exhausted")
)

// APIError is a non-success answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// TokenResponse is the body of the token/new and token/refresh endpoints.
// Refresh answers carry no refresh token, so those fields stay empty.
type TokenResponse struct {
	Access         string `json:"access"`
	AccessExpires  int    `json:"access_expires"`
	Refresh        string `json:"refresh"`
	RefreshExpires int    `json:"refresh_expires"`
}

type tokenNewRequest struct {
	SecretId  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
}

type tokenRefreshRequest struct {
	Refresh string `json:"refresh"`
}

type transactionsResponse struct {
	Transactions Transactions `json:"transactions"`
}

// Transactions is the provider answer split by settlement state.
type Transactions struct {
	Booked  []Transaction `json:"booked"`
	Pending []Transaction `json:"pending"`
}

// Transaction is one provider record as returned by the transactions endpoint.
type Transaction struct {
	TransactionId                     string            `json:"transactionId,omitempty"`
	InternalTransactionId             string            `json:"internalTransactionId"`
	BookingDate                       string            `json:"bookingDate,omitempty"`
	BookingDateTime                   string            `json:"bookingDateTime,omitempty"`
	ValueDate                         string            `json:"valueDate,omitempty"`
	TransactionAmount                 TransactionAmount `json:"transactionAmount"`
	MerchantName                      string            `json:"merchantName,omitempty"`
	CreditorName                      string            `json:"creditorName,omitempty"`
	DebtorName                        string            `json:"debtorName,omitempty"`
	RemittanceInformationUnstructured string            `json:"remittanceInformationUnstructured,omitempty"`
}

type TransactionAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Institution is a bank the provider can connect to.
type Institution struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Bic  string `json:"bic"`
	// TransactionTotalDays is sent as a string by some regions
	TransactionTotalDays json.Number `json:"transaction_total_days"`
	Countries            []string    `json:"countries"`
	Logo                 string      `json:"logo"`
}

// Requisition is one bank connection and the accounts it grants access to.
type Requisition struct {
	Id            string   `json:"id"`
	Created       string   `json:"created"`
	Status        string   `json:"status"`
	InstitutionId string   `json:"institution_id"`
	Agreement     string   `json:"agreement"`
	Reference     string   `json:"reference"`
	Accounts      []string `json:"accounts"`
	UserLanguage  string   `json:"user_language"`
	Link          string   `json:"link"`
}

type requisitionsResponse struct {
	Results []Requisition `json:"results"`
}

// AccountDetails is the metadata of one provider account.
type AccountDetails struct {
	Id            string `json:"id"`
	Created       string `json:"created"`
	LastAccessed  string `json:"last_accessed"`
	Iban          string `json:"iban"`
	InstitutionId string `json:"institution_id"`
	Status        string `json:"status"`
	OwnerName     string `json:"owner_name"`
}
