package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/vpnda/cardless-sync/pkg/clock"
	"github.com/vpnda/cardless-sync/pkg/models"
)

const defaultRequestTimeout = 30 * time.Second

type GoCardlessClient struct {
	client    *http.Client
	baseURL   string
	secretId  string
	secretKey string
	clock     clock.Clock
}

type Option func(*GoCardlessClient)

func WithBaseURL(baseURL string) Option {
	return func(c *GoCardlessClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTransport replaces the underlying round tripper, e.g. with a debug dumper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *GoCardlessClient) {
		c.client.Transport = rt
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *GoCardlessClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

func WithClock(cl clock.Clock) Option {
	return func(c *GoCardlessClient) {
		c.clock = cl
	}
}

func NewGoCardlessClient(secretId, secretKey string, opts ...Option) *GoCardlessClient {
	c := &GoCardlessClient{
		client:    &http.Client{Timeout: defaultRequestTimeout},
		baseURL:   DefaultBaseURL,
		secretId:  secretId,
		secretKey: secretKey,
		clock:     clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateToken implements TokenSource.
func (c *GoCardlessClient) CreateToken(ctx context.Context) (*TokenResponse, error) {
	if c.secretId == "" || c.secretKey == "" {
		return nil, fmt.Errorf("gocardless secret id/key not configured")
	}
	var token TokenResponse
	err := c.postJSON(ctx, "/token/new/", tokenNewRequest{
		SecretId:  c.secretId,
		SecretKey: c.secretKey,
	}, &token)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	if token.Access == "" || token.Refresh == "" {
		return nil, fmt.Errorf("failed to create token: empty token in response")
	}
	return &token, nil
}

// RefreshToken implements TokenSource.
func (c *GoCardlessClient) RefreshToken(ctx context.Context, refresh string) (*TokenResponse, error) {
	var token TokenResponse
	if err := c.postJSON(ctx, "/token/refresh/", tokenRefreshRequest{Refresh: refresh}, &token); err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if token.Access == "" {
		return nil, fmt.Errorf("failed to refresh token: empty access token in response")
	}
	return &token, nil
}

// FetchTransactions implements TransactionSource. The rate limit snapshot is
// returned whenever the provider answered, including on ErrRateLimited.
func (c *GoCardlessClient) FetchTransactions(ctx context.Context, accountId, accessToken string,
	from time.Time, to *time.Time) (*Transactions, *models.RateLimit, error) {
	query := url.Values{}
	query.Set("date_from", from.Format(time.DateOnly))
	if to != nil {
		query.Set("date_to", to.Format(time.DateOnly))
	}

	var result transactionsResponse
	path := fmt.Sprintf("/accounts/%s/transactions/?%s", url.PathEscape(accountId), query.Encode())
	rateLimit, err := c.getJSON(ctx, path, accessToken, &result)
	if errors.Is(err, ErrRateLimited) {
		log.Warn().Str("account", accountId).
			Int("limit", rateLimit.Limit).
			Time("reset", *rateLimit.Reset).
			Msg("provider rate limit reached")
		return nil, rateLimit, err
	}
	if err != nil {
		return nil, rateLimit, err
	}
	return &result.Transactions, rateLimit, nil
}

// ListInstitutions implements AccountSource.
func (c *GoCardlessClient) ListInstitutions(ctx context.Context, accessToken, country string) ([]Institution, error) {
	if len(country) != 2 {
		return nil, fmt.Errorf("invalid country code %q, expected ISO 3166 alpha-2", country)
	}
	var institutions []Institution
	path := "/institutions/?country=" + url.QueryEscape(strings.ToUpper(country))
	if _, err := c.getJSON(ctx, path, accessToken, &institutions); err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	return institutions, nil
}

// ListRequisitions implements AccountSource. Only linked requisitions are
// returned, oldest first.
func (c *GoCardlessClient) ListRequisitions(ctx context.Context, accessToken string) ([]Requisition, error) {
	var result requisitionsResponse
	if _, err := c.getJSON(ctx, "/requisitions/", accessToken, &result); err != nil {
		return nil, fmt.Errorf("failed to list requisitions: %w", err)
	}

	linked := lo.Filter(result.Results, func(r Requisition, _ int) bool {
		return r.Status == RequisitionStatusLinked
	})
	slices.SortStableFunc(linked, func(a, b Requisition) int {
		return createdAt(a).Compare(createdAt(b))
	})
	return linked, nil
}

// GetAccountDetails implements AccountSource.
func (c *GoCardlessClient) GetAccountDetails(ctx context.Context, accessToken, accountId string) (*AccountDetails, *models.RateLimit, error) {
	var details AccountDetails
	rateLimit, err := c.getJSON(ctx, fmt.Sprintf("/accounts/%s/", url.PathEscape(accountId)), accessToken, &details)
	if err != nil {
		return nil, rateLimit, fmt.Errorf("failed to get account details: %w", err)
	}
	return &details, rateLimit, nil
}

// getJSON performs an authorized GET. The rate limit is nil only when the
// provider could not be reached.
func (c *GoCardlessClient) getJSON(ctx context.Context, path, accessToken string, out any) (*models.RateLimit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header = commonHeaders()
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	rateLimit := ExtractRateLimit(resp.Header, c.clock.Now())
	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimit, ErrRateLimited
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &rateLimit, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &rateLimit, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &rateLimit, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	return &rateLimit, nil
}

func (c *GoCardlessClient) postJSON(ctx context.Context, path string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header = commonHeaders()

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func commonHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	return headers
}

func createdAt(r Requisition) time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Created)
	if err != nil {
		return time.Time{}
	}
	return t
}
