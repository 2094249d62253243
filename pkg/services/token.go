package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vpnda/cardless-sync/pkg/clock"
	"github.com/vpnda/cardless-sync/pkg/http/gocardless"
	"github.com/vpnda/cardless-sync/pkg/models"
)

// TokenManager caches the provider token pair and hands out a valid access
// token, refreshing or recreating it when needed.
type TokenManager struct {
	source gocardless.TokenSource
	clock  clock.Clock

	mu    sync.Mutex
	token *models.TokenInfo
}

func NewTokenManager(source gocardless.TokenSource, clk clock.Clock) *TokenManager {
	if clk == nil {
		clk = clock.New()
	}
	return &TokenManager{
		source: source,
		clock:  clk,
	}
}

// GetToken returns a cached access token while it is valid. Otherwise it
// refreshes, and falls back to creating a new pair when the refresh token is
// expired or the refresh fails.
func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if m.token.AccessValid(now) {
		return m.token.AccessToken, nil
	}

	if m.token.RefreshValid(now) {
		resp, err := m.source.RefreshToken(ctx, m.token.RefreshToken)
		if err == nil && resp != nil && resp.Access != "" {
			m.token = m.refreshed(now, resp)
			log.Debug().Time("expires", m.token.AccessExpires).Msg("refreshed provider access token")
			return m.token.AccessToken, nil
		}
		log.Warn().Err(err).Msg("failed to refresh provider token, creating a new one")
	}

	resp, err := m.source.CreateToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}
	if resp == nil || resp.Access == "" || resp.Refresh == "" {
		return "", fmt.Errorf("%w: provider returned an empty token", ErrAuthFailure)
	}

	m.token = &models.TokenInfo{
		AccessToken:    resp.Access,
		RefreshToken:   resp.Refresh,
		AccessExpires:  now.Add(seconds(resp.AccessExpires)),
		RefreshExpires: now.Add(seconds(resp.RefreshExpires)),
	}
	log.Debug().Time("expires", m.token.AccessExpires).Msg("created provider token")
	return m.token.AccessToken, nil
}

// Token returns a copy of the cached pair, nil before the first call.
func (m *TokenManager) Token() *models.TokenInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return nil
	}
	t := *m.token
	return &t
}

// refreshed builds the new pair from a refresh answer. The provider only
// rotates the refresh token sometimes; when it doesn't, the old one and its
// expiry are kept.
func (m *TokenManager) refreshed(now time.Time, resp *gocardless.TokenResponse) *models.TokenInfo {
	t := &models.TokenInfo{
		AccessToken:    resp.Access,
		AccessExpires:  now.Add(seconds(resp.AccessExpires)),
		RefreshToken:   m.token.RefreshToken,
		RefreshExpires: m.token.RefreshExpires,
	}
	if resp.Refresh != "" {
		t.RefreshToken = resp.Refresh
		t.RefreshExpires = now.Add(seconds(resp.RefreshExpires))
	}
	return t
}

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}
