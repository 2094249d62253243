package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vpnda/cardless-sync/pkg/models"
)

type syncMetrics struct {
	accountSyncs          *prometheus.CounterVec
	transactionsSubmitted prometheus.Counter
	passesSkipped         prometheus.Counter
	passDuration          prometheus.Histogram
	rateLimitLimit        *prometheus.GaugeVec
	rateLimitRemaining    *prometheus.GaugeVec
}

// initSyncMetrics registers the sync metrics with reg. A nil registerer
// yields working but unregistered collectors.
func initSyncMetrics(reg prometheus.Registerer) *syncMetrics {
	factory := promauto.With(reg)
	return &syncMetrics{
		accountSyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardless_sync_account_syncs_total",
				Help: "account syncs by final status",
			},
			[]string{"status"},
		),
		transactionsSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cardless_sync_transactions_submitted_total",
				Help: "transactions sent to the ledger",
			},
		),
		passesSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cardless_sync_scheduled_passes_skipped_total",
				Help: "scheduled passes skipped because another pass was running or pending",
			},
		),
		passDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cardless_sync_pass_duration_seconds",
				Help:    "wall time of one sync pass",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		rateLimitLimit: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cardless_sync_rate_limit_limit",
				Help: "provider quota per account from the last fetch",
			},
			[]string{"account"},
		),
		rateLimitRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cardless_sync_rate_limit_remaining",
				Help: "provider quota left per account from the last fetch",
			},
			[]string{"account"},
		),
	}
}

func (m *syncMetrics) observeRateLimit(accountId string, rl *models.RateLimit) {
	if rl == nil {
		return
	}
	m.rateLimitLimit.WithLabelValues(accountId).Set(float64(rl.Limit))
	m.rateLimitRemaining.WithLabelValues(accountId).Set(float64(rl.Remaining))
}
