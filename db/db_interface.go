package db

import (
	"github.com/vpnda/cardless-sync/pkg/models"
)

// DBInterface defines the interface for database operations
type DBInterface interface {
	Initialize() error
	Close() error

	LoadLinks(accountId string) ([]models.AccountLink, error)
	SaveLink(link models.AccountLink) error
	RemoveLink(lunchMoneyId int64, gocardlessId string) error

	GetSyncStatus(accountId string) (*models.AccountStatus, error)
	UpdateSyncStatus(accountId string, fn func(*models.AccountStatus) error) (*models.AccountStatus, error)
	ResetStaleSyncStatuses() (int, error)
}

// Ensure DB implements DBInterface
var _ DBInterface = (*DB)(nil)

// Ensure MockDB implements DBInterface
var _ DBInterface = (*MockDB)(nil)
