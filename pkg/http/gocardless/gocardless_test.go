package gocardless

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpnda/cardless-sync/pkg/clock"
)

var testNow = time.Date(2024, 11, 26, 10, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GoCardlessClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGoCardlessClient("secret-id", "secret-key",
		WithBaseURL(server.URL),
		WithClock(clock.NewFakeClock(testNow)))
}

func TestCreateToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/token/new/", r.URL.Path)

		var req tokenNewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "secret-id", req.SecretId)
		assert.Equal(t, "secret-key", req.SecretKey)

		_ = json.NewEncoder(w).Encode(TokenResponse{
			Access:         "access",
			AccessExpires:  86400,
			Refresh:        "refresh",
			RefreshExpires: 2592000,
		})
	})

	token, err := client.CreateToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access", token.Access)
	assert.Equal(t, "refresh", token.Refresh)
	assert.Equal(t, 86400, token.AccessExpires)
	assert.Equal(t, 2592000, token.RefreshExpires)
}

func TestCreateTokenError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"summary":"Authentication failed"}`))
	})

	_, err := client.CreateToken(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Authentication failed")
}

func TestCreateTokenMissingCredentials(t *testing.T) {
	client := NewGoCardlessClient("", "")
	_, err := client.CreateToken(context.Background())
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/refresh/", r.URL.Path)

		var req tokenRefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh", req.Refresh)

		_, _ = w.Write([]byte(`{"access":"new-access","access_expires":86400}`))
	})

	token, err := client.RefreshToken(context.Background(), "refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.Access)
	assert.Empty(t, token.Refresh)
}

func TestFetchTransactions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acc-1/transactions/", r.URL.Path)
		assert.Equal(t, "2024-11-12", r.URL.Query().Get("date_from"))
		assert.Equal(t, "2024-11-26", r.URL.Query().Get("date_to"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set(headerRateLimitLimit, "4")
		w.Header().Set(headerRateLimitRemaining, "3")
		w.Header().Set(headerRateLimitReset, "3600")
		_, _ = w.Write([]byte(`{"transactions":{
			"booked":[{"internalTransactionId":"tx-1","bookingDate":"2024-11-26",
				"transactionAmount":{"amount":"-700.0","currency":"EUR"},
				"creditorName":"ISA RUESCHEL",
				"remittanceInformationUnstructured":"Lebensgeld fuer Isa"}],
			"pending":[{"internalTransactionId":"tx-2","transactionAmount":{"amount":"1.00","currency":"EUR"}}]
		}}`))
	})

	to := testNow
	txs, rl, err := client.FetchTransactions(context.Background(), "acc-1", "test-token",
		testNow.AddDate(0, 0, -14), &to)
	require.NoError(t, err)
	require.Len(t, txs.Booked, 1)
	require.Len(t, txs.Pending, 1)

	booked := txs.Booked[0]
	assert.Equal(t, "tx-1", booked.InternalTransactionId)
	assert.Equal(t, "-700.0", booked.TransactionAmount.Amount)
	assert.Equal(t, "EUR", booked.TransactionAmount.Currency)
	assert.Equal(t, "ISA RUESCHEL", booked.CreditorName)

	require.NotNil(t, rl)
	assert.Equal(t, 4, rl.Limit)
	assert.Equal(t, 3, rl.Remaining)
	assert.Equal(t, testNow.Add(time.Hour), *rl.Reset)
}

func TestFetchTransactionsRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerRateLimitLimit, "4")
		w.Header().Set(headerRateLimitRemaining, "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	txs, rl, err := client.FetchTransactions(context.Background(), "acc-1", "t", testNow, nil)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Nil(t, txs)
	require.NotNil(t, rl)
	assert.Equal(t, 0, rl.Remaining)
	assert.True(t, rl.Exhausted())
}

func TestFetchTransactionsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("date_to"))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, _, err := client.FetchTransactions(context.Background(), "acc-1", "t", testNow, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestFetchTransactionsInvalidBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, _, err := client.FetchTransactions(context.Background(), "acc-1", "t", testNow, nil)
	assert.Error(t, err)
}

func TestExtractRateLimit(t *testing.T) {
	testCases := []struct {
		name              string
		headers           map[string]string
		expectedLimit     int
		expectedRemaining int
		expectedReset     time.Time
	}{
		{
			name: "All headers present",
			headers: map[string]string{
				headerRateLimitLimit:     "10",
				headerRateLimitRemaining: "7",
				headerRateLimitReset:     "120",
			},
			expectedLimit:     10,
			expectedRemaining: 7,
			expectedReset:     testNow.Add(2 * time.Minute),
		},
		{
			name:              "No headers",
			headers:           map[string]string{},
			expectedLimit:     0,
			expectedRemaining: 0,
			expectedReset:     testNow.Add(24 * time.Hour),
		},
		{
			name: "Zero reset uses default window",
			headers: map[string]string{
				headerRateLimitLimit:     "4",
				headerRateLimitRemaining: "1",
				headerRateLimitReset:     "0",
			},
			expectedLimit:     4,
			expectedRemaining: 1,
			expectedReset:     testNow.Add(24 * time.Hour),
		},
		{
			name: "Malformed values",
			headers: map[string]string{
				headerRateLimitLimit:     "many",
				headerRateLimitRemaining: "-3",
				headerRateLimitReset:     "soon",
			},
			expectedLimit:     0,
			expectedRemaining: 0,
			expectedReset:     testNow.Add(24 * time.Hour),
		},
		{
			name: "Remaining capped at limit",
			headers: map[string]string{
				headerRateLimitLimit:     "4",
				headerRateLimitRemaining: "9",
			},
			expectedLimit:     4,
			expectedRemaining: 4,
			expectedReset:     testNow.Add(24 * time.Hour),
		},
		{
			name: "Remaining without limit is kept",
			headers: map[string]string{
				headerRateLimitRemaining: "3",
			},
			expectedLimit:     0,
			expectedRemaining: 3,
			expectedReset:     testNow.Add(24 * time.Hour),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			rl := ExtractRateLimit(h, testNow)
			assert.Equal(t, tc.expectedLimit, rl.Limit)
			assert.Equal(t, tc.expectedRemaining, rl.Remaining)
			require.NotNil(t, rl.Reset)
			assert.Equal(t, tc.expectedReset, *rl.Reset)
		})
	}
}

func TestListInstitutions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/institutions/", r.URL.Path)
		assert.Equal(t, "DE", r.URL.Query().Get("country"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"id":"N26_NTSBDEB1","name":"N26 Bank","bic":"NTSBDEB1","transaction_total_days":"730","countries":["DE"],"logo":"https://cdn/n26.png"},
			{"id":"DKB_BYLADEM1","name":"DKB","bic":"BYLADEM1","transaction_total_days":540,"countries":["DE"],"logo":""}
		]`))
	})

	institutions, err := client.ListInstitutions(context.Background(), "test-token", "de")
	require.NoError(t, err)
	require.Len(t, institutions, 2)
	assert.Equal(t, "N26_NTSBDEB1", institutions[0].Id)
	assert.Equal(t, "N26 Bank", institutions[0].Name)
	assert.Equal(t, "730", institutions[0].TransactionTotalDays.String())
	assert.Equal(t, "540", institutions[1].TransactionTotalDays.String())
	assert.Equal(t, []string{"DE"}, institutions[1].Countries)
}

func TestListInstitutionsInvalidCountry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.ListInstitutions(context.Background(), "test-token", "germany")
	assert.ErrorContains(t, err, "invalid country code")
}

func TestListRequisitions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/requisitions/", r.URL.Path)
		_, _ = w.Write([]byte(`{"count":3,"results":[
			{"id":"req-new","created":"2024-11-20T08:00:00.000000Z","status":"LN","institution_id":"N26_NTSBDEB1","accounts":["acc-2"]},
			{"id":"req-expired","created":"2024-01-01T08:00:00Z","status":"EX","institution_id":"DKB_BYLADEM1","accounts":["acc-9"]},
			{"id":"req-old","created":"2024-10-01T08:00:00.123Z","status":"LN","institution_id":"DKB_BYLADEM1","accounts":["acc-1","acc-3"]}
		]}`))
	})

	requisitions, err := client.ListRequisitions(context.Background(), "test-token")
	require.NoError(t, err)
	require.Len(t, requisitions, 2)
	assert.Equal(t, "req-old", requisitions[0].Id)
	assert.Equal(t, []string{"acc-1", "acc-3"}, requisitions[0].Accounts)
	assert.Equal(t, "req-new", requisitions[1].Id)
}

func TestGetAccountDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acc-1/", r.URL.Path)
		w.Header().Set(headerRateLimitLimit, "10")
		w.Header().Set(headerRateLimitRemaining, "9")
		_, _ = w.Write([]byte(`{"id":"acc-1","iban":"DE89370400440532013000","institution_id":"N26_NTSBDEB1","status":"READY","owner_name":"Isa"}`))
	})

	details, rl, err := client.GetAccountDetails(context.Background(), "test-token", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", details.Iban)
	assert.Equal(t, "READY", details.Status)
	require.NotNil(t, rl)
	assert.Equal(t, 9, rl.Remaining)
}

func TestGetAccountDetailsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"summary":"Not found"}`))
	})

	_, _, err := client.GetAccountDetails(context.Background(), "test-token", "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
