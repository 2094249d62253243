package gocardless

import (
	"context"
	"sync"
	"time"

	"github.com/vpnda/cardless-sync/pkg/models"
)

// FetchCall records the arguments of one FetchTransactions call.
type FetchCall struct {
	AccountId   string
	AccessToken string
	From        time.Time
	To          *time.Time
}

// MockGoCardlessClient is a mock implementation of the provider for testing
type MockGoCardlessClient struct {
	mu sync.Mutex

	// Mock data to return
	CreatedToken   *TokenResponse
	RefreshedToken *TokenResponse
	// Transactions and RateLimits are keyed by provider account id
	Transactions map[string]*Transactions
	RateLimits   map[string]*models.RateLimit
	// Institutions is keyed by country code
	Institutions   map[string][]Institution
	Requisitions   []Requisition
	AccountDetails map[string]*AccountDetails

	// Error values to return
	CreateTokenErr  error
	RefreshTokenErr error
	// FetchErrs is keyed by provider account id
	FetchErrs           map[string]error
	ListInstitutionsErr error
	ListRequisitionsErr error
	AccountDetailsErr   error

	// Call tracking
	CreateTokenCalls  int
	RefreshTokenCalls int
	FetchCalls        []FetchCall
	DetailsCalls      []string
}

// NewMockGoCardlessClient creates a new mock provider client
func NewMockGoCardlessClient() *MockGoCardlessClient {
	return &MockGoCardlessClient{
		CreatedToken: &TokenResponse{
			Access:         "access-token",
			AccessExpires:  86400,
			Refresh:        "refresh-token",
			RefreshExpires: 2592000,
		},
		RefreshedToken: &TokenResponse{
			Access:        "refreshed-access-token",
			AccessExpires: 86400,
		},
		Transactions:   map[string]*Transactions{},
		RateLimits:     map[string]*models.RateLimit{},
		FetchErrs:      map[string]error{},
		Institutions:   map[string][]Institution{},
		AccountDetails: map[string]*AccountDetails{},
	}
}

func (m *MockGoCardlessClient) CreateToken(ctx context.Context) (*TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateTokenCalls++
	if m.CreateTokenErr != nil {
		return nil, m.CreateTokenErr
	}
	return m.CreatedToken, nil
}

func (m *MockGoCardlessClient) RefreshToken(ctx context.Context, refresh string) (*TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshTokenCalls++
	if m.RefreshTokenErr != nil {
		return nil, m.RefreshTokenErr
	}
	return m.RefreshedToken, nil
}

func (m *MockGoCardlessClient) FetchTransactions(ctx context.Context, accountId, accessToken string,
	from time.Time, to *time.Time) (*Transactions, *models.RateLimit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = append(m.FetchCalls, FetchCall{
		AccountId:   accountId,
		AccessToken: accessToken,
		From:        from,
		To:          to,
	})
	rl := m.RateLimits[accountId]
	if err := m.FetchErrs[accountId]; err != nil {
		return nil, rl, err
	}
	txs, ok := m.Transactions[accountId]
	if !ok {
		txs = &Transactions{}
	}
	return txs, rl, nil
}

func (m *MockGoCardlessClient) ListInstitutions(ctx context.Context, accessToken, country string) ([]Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListInstitutionsErr != nil {
		return nil, m.ListInstitutionsErr
	}
	return m.Institutions[country], nil
}

func (m *MockGoCardlessClient) ListRequisitions(ctx context.Context, accessToken string) ([]Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListRequisitionsErr != nil {
		return nil, m.ListRequisitionsErr
	}
	return m.Requisitions, nil
}

func (m *MockGoCardlessClient) GetAccountDetails(ctx context.Context, accessToken, accountId string) (*AccountDetails, *models.RateLimit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DetailsCalls = append(m.DetailsCalls, accountId)
	if m.AccountDetailsErr != nil {
		return nil, nil, m.AccountDetailsErr
	}
	details, ok := m.AccountDetails[accountId]
	if !ok {
		return &AccountDetails{Id: accountId}, nil, nil
	}
	return details, nil, nil
}
