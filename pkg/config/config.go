package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config.yaml"

type GoCardlessOptions struct {
	SecretId  string `yaml:"secretId"`
	SecretKey string `yaml:"secretKey"`
	BaseURL   string `yaml:"baseUrl"`
}

type SyncOptions struct {
	LookbackDays   int           `yaml:"lookbackDays"`
	Interval       time.Duration `yaml:"interval"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	SyncOnStartup  bool          `yaml:"syncOnStartup"`
}

type MetricsOptions struct {
	// ListenAddress serves /metrics from the daemon; empty disables it
	ListenAddress string `yaml:"listenAddress"`
}

// Config holds the application configuration
type Config struct {
	LunchMoneyAPIKey  string            `yaml:"lunchMoneyApiKey"`
	GoCardlessOptions GoCardlessOptions `yaml:"gocardless"`
	SyncOptions       SyncOptions       `yaml:"sync"`
	MetricsOptions    MetricsOptions    `yaml:"metrics"`
	LogLevel          string            `yaml:"logLevel"`
	DebugHttp         bool              `yaml:"debugHttp"`
}

// envOverrides are applied over the file values when set
type envOverrides struct {
	LunchMoneyAPIKey    string        `envconfig:"LUNCHMONEY_ACCESS_TOKEN"`
	GoCardlessSecretId  string        `envconfig:"GOCARDLESS_SECRET_ID"`
	GoCardlessSecretKey string        `envconfig:"GOCARDLESS_SECRET_KEY"`
	GoCardlessBaseURL   string        `envconfig:"GOCARDLESS_BASE_URL"`
	LookbackDays        int           `envconfig:"SYNC_LOOKBACK_DAYS"`
	Interval            time.Duration `envconfig:"SYNC_INTERVAL"`
	LogLevel            string        `envconfig:"LOG_LEVEL"`
}

var (
	// Global configuration instance
	globalConfig *Config
	// Mutex to ensure thread-safe access to the global configuration
	configMutex sync.RWMutex
	// Flag to track if the configuration has been loaded
	configLoaded bool
)

// DefaultConfig returns the configuration used for keys missing from the file
func DefaultConfig() *Config {
	return &Config{
		GoCardlessOptions: GoCardlessOptions{
			BaseURL: "https://bankaccountdata.gocardless.com/api/v2",
		},
		SyncOptions: SyncOptions{
			LookbackDays:   14,
			Interval:       3 * time.Hour,
			RequestTimeout: 30 * time.Second,
			SyncOnStartup:  true,
		},
		LogLevel: "info",
	}
}

// LoadConfig loads the configuration from the specified YAML file, then
// applies .env and environment overrides
func LoadConfig(configPath string) (*Config, error) {
	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse the YAML data
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.ApplyEnvironment(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnvironment loads ./.env when present and overrides the configuration
// with any non-empty environment variable
func (c *Config) ApplyEnvironment() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("error reading environment: %w", err)
	}

	if env.LunchMoneyAPIKey != "" {
		c.LunchMoneyAPIKey = env.LunchMoneyAPIKey
	}
	if env.GoCardlessSecretId != "" {
		c.GoCardlessOptions.SecretId = env.GoCardlessSecretId
	}
	if env.GoCardlessSecretKey != "" {
		c.GoCardlessOptions.SecretKey = env.GoCardlessSecretKey
	}
	if env.GoCardlessBaseURL != "" {
		c.GoCardlessOptions.BaseURL = env.GoCardlessBaseURL
	}
	if env.LookbackDays > 0 {
		c.SyncOptions.LookbackDays = env.LookbackDays
	}
	if env.Interval > 0 {
		c.SyncOptions.Interval = env.Interval
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	return nil
}

// Validate checks that the credentials needed for a sync are present and the
// sync options are usable
func (c *Config) Validate() error {
	var errs []error
	if c.LunchMoneyAPIKey == "" {
		errs = append(errs, errors.New("lunch money API key not set in configuration"))
	}
	if c.GoCardlessOptions.SecretId == "" || c.GoCardlessOptions.SecretKey == "" {
		errs = append(errs, errors.New("gocardless secret id/key not set in configuration"))
	}
	if c.SyncOptions.LookbackDays <= 0 {
		errs = append(errs, fmt.Errorf("sync lookback must be positive, got %d days", c.SyncOptions.LookbackDays))
	}
	if c.SyncOptions.Interval <= 0 || c.SyncOptions.Interval > 24*time.Hour {
		errs = append(errs, fmt.Errorf("sync interval must be within (0, 24h], got %s", c.SyncOptions.Interval))
	}
	return errors.Join(errs...)
}

// SaveConfig writes the configuration as YAML
func SaveConfig(configPath string, config *Config) error {
	dir := filepath.Dir(configPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshalling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// InitGlobalConfig initializes the global configuration from the specified
// file. A missing file is created with the defaults.
func InitGlobalConfig(configPath string) error {
	config, err := LoadConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", configPath).Msg("config file not found, writing defaults")
		config = DefaultConfig()
		if err := SaveConfig(configPath, config); err != nil {
			return err
		}
		if err := config.ApplyEnvironment(); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = config
	configLoaded = true
	return nil
}

// GetConfig returns the global configuration instance
// If the configuration hasn't been loaded yet, it attempts to load it from
// the default location (./config.yaml)
func GetConfig() (*Config, error) {
	configMutex.RLock()
	if configLoaded {
		defer configMutex.RUnlock()
		return globalConfig, nil
	}
	configMutex.RUnlock()

	if err := InitGlobalConfig(DefaultConfigPath); err != nil {
		return nil, err
	}

	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig, nil
}

// GetLunchMoneyAPIKey returns the Lunch Money API key from the configuration
func GetLunchMoneyAPIKey() (string, error) {
	config, err := GetConfig()
	if err != nil {
		return "", err
	}

	if config.LunchMoneyAPIKey == "" {
		return "", fmt.Errorf("lunch money API key not set in configuration")
	}

	return config.LunchMoneyAPIKey, nil
}

// GetGoCardlessCredentials returns the GoCardless secret id and key from the configuration
func GetGoCardlessCredentials() (string, string, error) {
	config, err := GetConfig()
	if err != nil {
		return "", "", err
	}

	if config.GoCardlessOptions.SecretId == "" || config.GoCardlessOptions.SecretKey == "" {
		return "", "", fmt.Errorf("error: GoCardless credentials not set in configuration")
	}

	return config.GoCardlessOptions.SecretId, config.GoCardlessOptions.SecretKey, nil
}
