package db

import (
	"sync"
	"time"

	"github.com/vpnda/cardless-sync/pkg/models"
)

// MockDB is a mock implementation of the DB for testing
type MockDB struct {
	mu sync.Mutex

	// Mock data storage
	Links    []models.AccountLink
	Statuses map[string]*models.AccountStatus

	// Error values to return
	LoadLinksErr        error
	SaveLinkErr         error
	RemoveLinkErr       error
	GetSyncStatusErr    error
	UpdateSyncStatusErr error
	ResetStaleErr       error

	// Recorded status writes per account, in order
	History map[string][]models.AccountStatus
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		Links:    []models.AccountLink{},
		Statuses: make(map[string]*models.AccountStatus),
		History:  make(map[string][]models.AccountStatus),
	}
}

// Initialize is a no-op for the mock
func (m *MockDB) Initialize() error {
	return nil
}

// Close is a no-op for the mock
func (m *MockDB) Close() error {
	return nil
}

// LoadLinks returns the stored links, optionally filtered by provider account
func (m *MockDB) LoadLinks(accountId string) ([]models.AccountLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadLinksErr != nil {
		return nil, m.LoadLinksErr
	}

	links := []models.AccountLink{}
	for _, l := range m.Links {
		if accountId == "" || l.GocardlessId == accountId {
			links = append(links, l)
		}
	}
	return links, nil
}

// SaveLink replaces any link touching either id
func (m *MockDB) SaveLink(link models.AccountLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveLinkErr != nil {
		return m.SaveLinkErr
	}

	kept := []models.AccountLink{}
	for _, l := range m.Links {
		if l.LunchMoneyId != link.LunchMoneyId && l.GocardlessId != link.GocardlessId {
			kept = append(kept, l)
		}
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	m.Links = append(kept, link)
	return nil
}

// RemoveLink deletes a link from the mock database
func (m *MockDB) RemoveLink(lunchMoneyId int64, gocardlessId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveLinkErr != nil {
		return m.RemoveLinkErr
	}

	kept := []models.AccountLink{}
	for _, l := range m.Links {
		if l.LunchMoneyId != lunchMoneyId || l.GocardlessId != gocardlessId {
			kept = append(kept, l)
		}
	}
	m.Links = kept
	return nil
}

// GetSyncStatus returns a copy of the stored status or the default
func (m *MockDB) GetSyncStatus(accountId string) (*models.AccountStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetSyncStatusErr != nil {
		return nil, m.GetSyncStatusErr
	}
	return m.statusCopy(accountId), nil
}

// UpdateSyncStatus applies fn under the mock lock
func (m *MockDB) UpdateSyncStatus(accountId string, fn func(*models.AccountStatus) error) (*models.AccountStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateSyncStatusErr != nil {
		return nil, m.UpdateSyncStatusErr
	}

	status := m.statusCopy(accountId)
	if err := fn(status); err != nil {
		return nil, err
	}
	m.Statuses[accountId] = status
	m.History[accountId] = append(m.History[accountId], *status)

	out := *status
	return &out, nil
}

// ResetStaleSyncStatuses marks in-progress statuses as failed
func (m *MockDB) ResetStaleSyncStatuses() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResetStaleErr != nil {
		return 0, m.ResetStaleErr
	}

	n := 0
	for _, s := range m.Statuses {
		if s.IsStale() {
			s.IsSyncing = false
			s.LastSyncStatus = models.SyncStatusError
			n++
		}
	}
	return n, nil
}

func (m *MockDB) statusCopy(accountId string) *models.AccountStatus {
	s, ok := m.Statuses[accountId]
	if !ok {
		fresh := models.NewAccountStatus()
		return &fresh
	}
	out := *s
	if s.RateLimit != nil {
		rl := *s.RateLimit
		out.RateLimit = &rl
	}
	return &out
}
