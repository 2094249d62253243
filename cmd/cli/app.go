package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vpnda/cardless-sync/db"
	"github.com/vpnda/cardless-sync/pkg/config"
	"github.com/vpnda/cardless-sync/pkg/http/gocardless"
	"github.com/vpnda/cardless-sync/pkg/http/lm"
	"github.com/vpnda/cardless-sync/pkg/services"
	"github.com/vpnda/cardless-sync/pkg/utils"
)

// appState holds what every command needs once the configuration is loaded
type appState struct {
	cfg    *config.Config
	db     *db.DB
	ledger *lm.LunchMoneyClient
	syncer *services.Syncer
}

// newAppState opens the database and builds the clients. With requireProvider
// the GoCardless secrets must be configured too.
func newAppState(requireProvider bool, reg prometheus.Registerer) (*appState, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	apiKey, err := config.GetLunchMoneyAPIKey()
	if err != nil {
		return nil, err
	}
	secretId, secretKey, err := config.GetGoCardlessCredentials()
	if requireProvider {
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	database, err := openDB()
	if err != nil {
		return nil, err
	}

	ledgerOpts := []lm.Option{lm.WithTimeout(cfg.SyncOptions.RequestTimeout)}
	providerOpts := []gocardless.Option{
		gocardless.WithBaseURL(cfg.GoCardlessOptions.BaseURL),
		gocardless.WithTimeout(cfg.SyncOptions.RequestTimeout),
	}
	if cfg.DebugHttp {
		ledgerOpts = append(ledgerOpts, lm.WithTransport(utils.DebugRoundTripperWithUnderlying))
		providerOpts = append(providerOpts, gocardless.WithTransport(utils.DebugRoundTripper()))
	}

	ledger, err := lm.NewLunchMoneyClient(apiKey, ledgerOpts...)
	if err != nil {
		database.Close()
		return nil, err
	}
	provider := gocardless.NewGoCardlessClient(secretId, secretKey, providerOpts...)

	syncer := services.NewSyncer(provider, provider, ledger, database,
		services.WithLookbackDays(cfg.SyncOptions.LookbackDays),
		services.WithInterval(cfg.SyncOptions.Interval),
		services.WithAccountSource(provider),
		services.WithRegisterer(reg))

	return &appState{
		cfg:    cfg,
		db:     database,
		ledger: ledger,
		syncer: syncer,
	}, nil
}

func openDB() (*db.DB, error) {
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := database.Initialize(); err != nil {
		database.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	return database, nil
}

func (a *appState) Close() {
	a.db.Close()
}
