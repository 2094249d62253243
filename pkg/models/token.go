package models

import "time"

// TokenInfo is the provider access/refresh token pair.
type TokenInfo struct {
	AccessToken    string
	RefreshToken   string
	AccessExpires  time.Time
	RefreshExpires time.Time
}

func (t *TokenInfo) AccessValid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.AccessExpires)
}

func (t *TokenInfo) RefreshValid(now time.Time) bool {
	return t != nil && t.RefreshToken != "" && now.Before(t.RefreshExpires)
}
