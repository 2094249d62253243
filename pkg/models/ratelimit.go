package models

import "time"

// RateLimit is the provider's quota snapshot taken from response headers.
type RateLimit struct {
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	Reset     *time.Time `json:"reset"`
}

// UnknownRateLimit is reported when no usable snapshot exists.
func UnknownRateLimit() *RateLimit {
	return &RateLimit{Limit: -1, Remaining: -1}
}

func (r *RateLimit) IsUnknown() bool {
	return r == nil || (r.Limit < 0 && r.Remaining < 0)
}

func (r *RateLimit) Exhausted() bool {
	return r != nil && r.Remaining == 0
}

// At returns the snapshot as it should be read at now. A snapshot whose reset
// time has passed says nothing about the current quota.
func (r *RateLimit) At(now time.Time) *RateLimit {
	if r == nil {
		return UnknownRateLimit()
	}
	if r.Reset != nil && !now.Before(*r.Reset) {
		return UnknownRateLimit()
	}
	c := *r
	return &c
}
