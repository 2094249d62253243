package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vpnda/cardless-sync/pkg/config"
)

var (
	dbPath     string
	configPath string
	logJSON    bool
	rootCmd    *cobra.Command
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error().Err(err).Msg("Error getting home directory")
		os.Exit(1)
	}

	defaultDBPath := filepath.Join(homeDir, ".cardless-sync", "sync.db")

	rootCmd = &cobra.Command{
		Use:   "cardless-sync",
		Short: "Sync GoCardless bank transactions into Lunch Money",
		Long: `Fetches booked transactions from linked GoCardless bank accounts and
inserts the ones Lunch Money does not have yet into the linked Lunch Money accounts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitGlobalConfig(configPath); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "Path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON lines instead of console output")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the current configuration",
		Long:  `Show the current configuration loaded from the config file and environment.`,
		Run: func(cmd *cobra.Command, args []string) {
			showConfig()
		},
	}

	rootCmd.AddCommand(configCmd, newSyncCmd(), newStatusCmd(), newLinkCmd(), newDaemonCmd())

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func setupLogging(level string) {
	if logJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		if level != "" {
			log.Warn().Str("level", level).Msg("unknown log level, using info")
		}
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// showConfig displays the current configuration
func showConfig() {
	cfg, err := config.GetConfig()
	if err != nil {
		log.Error().Err(err).Msg("Error loading configuration")
		return
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Lunch Money API Key:   %s\n", maskSecret(cfg.LunchMoneyAPIKey))
	fmt.Printf("GoCardless Secret ID:  %s\n", maskSecret(cfg.GoCardlessOptions.SecretId))
	fmt.Printf("GoCardless Secret Key: %s\n", maskSecret(cfg.GoCardlessOptions.SecretKey))
	fmt.Printf("GoCardless Base URL:   %s\n", cfg.GoCardlessOptions.BaseURL)
	fmt.Printf("Lookback:              %d days\n", cfg.SyncOptions.LookbackDays)
	fmt.Printf("Sync Interval:         %s\n", cfg.SyncOptions.Interval)
	fmt.Printf("Request Timeout:       %s\n", cfg.SyncOptions.RequestTimeout)
	fmt.Printf("Sync On Startup:       %v\n", cfg.SyncOptions.SyncOnStartup)
	fmt.Printf("Metrics Address:       %s\n", valueOr(cfg.MetricsOptions.ListenAddress, "disabled"))
	fmt.Printf("Log Level:             %s\n", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\nConfiguration is incomplete:\n%v\n", err)
		fmt.Println("You can get your Lunch Money API key from https://my.lunchmoney.app/developers")
		fmt.Println("and your GoCardless secrets from https://bankaccountdata.gocardless.com/user-secrets/")
	}
}

// maskSecret shows only the first 4 and last 4 characters
func maskSecret(secret string) string {
	if secret == "" {
		return "Not set"
	}
	if len(secret) > 8 {
		return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
	}
	return strings.Repeat("*", len(secret))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
