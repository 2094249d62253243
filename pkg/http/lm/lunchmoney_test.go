package lm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpnda/cardless-sync/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *LunchMoneyClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewLunchMoneyClient("test-key", append([]Option{WithBaseURL(server.URL)}, opts...)...)
	require.NoError(t, err)
	return client
}

func TestNewLunchMoneyClientDefaultTimeout(t *testing.T) {
	client, err := NewLunchMoneyClient("test-key")
	require.NoError(t, err)
	assert.Equal(t, defaultRequestTimeout, client.client.HTTP.Timeout)

	client, err = NewLunchMoneyClient("test-key", WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.client.HTTP.Timeout)
}

func TestListTransactionsTimesOut(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, WithTimeout(100*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := client.ListTransactions(context.Background(), 12345,
			time.Date(2024, 11, 12, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 11, 26, 0, 0, 0, 0, time.UTC))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "failed to fetch transactions from LunchMoney")
	case <-time.After(5 * time.Second):
		t.Fatal("ledger query did not time out")
	}
}

func TestListTransactions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "12345", r.URL.Query().Get("asset_id"))
		assert.Equal(t, "2024-11-12", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-11-26", r.URL.Query().Get("end_date"))

		_, _ = w.Write([]byte(`{"transactions":[{"id":77,"date":"2024-11-26","payee":"ISA RUESCHEL",` +
			`"amount":"-700.0000","currency":"eur","external_id":"ext-1"}]}`))
	})

	txs, err := client.ListTransactions(context.Background(), 12345,
		time.Date(2024, 11, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 11, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []models.LedgerTransaction{{
		LunchMoneyId: 77,
		ExternalId:   "ext-1",
		Date:         "2024-11-26",
		Amount:       models.Amount{Value: "-700.0000", Currency: "eur"},
		Payee:        "ISA RUESCHEL",
	}}, txs)
}

func TestInsertTransactionsRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transactions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["check_for_recurring"])
		assert.Equal(t, true, body["debit_as_negative"])
		assert.NotContains(t, body, "apply_rules")

		txs, ok := body["transactions"].([]any)
		require.True(t, ok)
		require.Len(t, txs, 1)
		tx := txs[0].(map[string]any)
		assert.Equal(t, "-700.00", tx["amount"])
		assert.Equal(t, float64(12345), tx["asset_id"])
		assert.Equal(t, "ext-1", tx["external_id"])
		assert.Equal(t, models.TransactionStatusUncleared, tx["status"])

		_, _ = w.Write([]byte(`{"ids":[501]}`))
	})

	result, err := client.InsertTransactions(context.Background(), []models.Transaction{{
		Date:       "2024-11-26",
		Amount:     "-700.00",
		Currency:   "eur",
		Payee:      "ISA RUESCHEL",
		Notes:      "Lebensgeld fuer Isa",
		AssetId:    12345,
		ExternalId: "ext-1",
		Status:     models.TransactionStatusUncleared,
	}})
	require.NoError(t, err)
	assert.Equal(t, []int64{501}, result.Ids)
	assert.Equal(t, 1, result.Submitted)
}

func TestListAccountsPrefersDisplayName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/assets", r.URL.Path)
		_, _ = w.Write([]byte(`{"assets":[{"id":1,"name":"Giro","display_name":"Main Giro"}]}`))
	})

	accounts, err := client.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.LunchMoneyAccount{{LunchMoneyId: 1, Name: "Giro", DisplayName: "Main Giro"}}, accounts)
}

func TestWithBaseURLInvalid(t *testing.T) {
	_, err := NewLunchMoneyClient("test-key", WithBaseURL("://bad"))
	assert.Error(t, err)
}
