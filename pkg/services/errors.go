package services

import (
	"errors"

	"github.com/vpnda/cardless-sync/pkg/http/gocardless"
)

var (
	// ErrAuthFailure means no usable provider token could be obtained.
	ErrAuthFailure = errors.New("provider authentication failed")
	// ErrRateLimited is the provider's 429 on a transaction fetch.
	ErrRateLimited = gocardless.ErrRateLimited
	// ErrFetchFailure wraps any other provider error on a transaction fetch.
	ErrFetchFailure = errors.New("provider transaction fetch failed")
	// ErrSubmissionFailure means the ledger rejected a batch.
	ErrSubmissionFailure = errors.New("ledger submission failed")
)
