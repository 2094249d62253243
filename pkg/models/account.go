package models

import "time"

// AccountLink maps one provider account to one ledger asset.
type AccountLink struct {
	// LunchMoneyId is the ID of the asset in LunchMoney
	LunchMoneyId int64 `json:"lunchmoneyId"`
	// GocardlessId is the provider account id, also the sync status key
	GocardlessId string     `json:"gocardlessId"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastSync     *time.Time `json:"lastSync,omitempty"`
}

type LunchMoneyAccount struct {
	// LunchMoneyId is the ID of the asset in LunchMoney
	LunchMoneyId int64
	Name         string
	DisplayName  string
}

type SyncStatus string

const (
	SyncStatusNone    SyncStatus = "none"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// AccountStatus is the persisted synchronization state of one account.
type AccountStatus struct {
	LastSync             *time.Time `json:"lastSync"`
	LastSyncStatus       SyncStatus `json:"lastSyncStatus"`
	LastSyncTransactions int        `json:"lastSyncTransactions"`
	IsSyncing            bool       `json:"isSyncing"`
	RateLimit            *RateLimit `json:"rateLimit"`
	// NextSync is derived on read and never persisted
	NextSync time.Time `json:"nextSync"`
}

// NewAccountStatus is the state of an account that was never synced.
func NewAccountStatus() AccountStatus {
	return AccountStatus{
		LastSyncStatus: SyncStatusNone,
		RateLimit:      UnknownRateLimit(),
	}
}

// IsStale reports whether the status was left mid-sync.
func (s *AccountStatus) IsStale() bool {
	return s.IsSyncing || s.LastSyncStatus == SyncStatusPending
}
