package gocardless

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vpnda/cardless-sync/pkg/models"
)

// defaultResetWindow is assumed when the provider does not say when the quota resets.
const defaultResetWindow = 24 * time.Hour

// ExtractRateLimit reads the account-success quota headers. Missing or
// malformed values read as 0. Remaining is capped only by a known limit.
func ExtractRateLimit(h http.Header, now time.Time) models.RateLimit {
	limit := headerInt(h, headerRateLimitLimit)
	remaining := headerInt(h, headerRateLimitRemaining)
	if limit > 0 && remaining > limit {
		remaining = limit
	}

	window := defaultResetWindow
	if seconds := headerInt(h, headerRateLimitReset); seconds > 0 {
		window = time.Duration(seconds) * time.Second
	}
	reset := now.Add(window)

	return models.RateLimit{
		Limit:     limit,
		Remaining: remaining,
		Reset:     &reset,
	}
}

func headerInt(h http.Header, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(h.Get(key)))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
