// Package config provides configuration management for the ledger importers.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Ledger LedgerConfig
	Stripe StripeConfig
	SumUp  SumUpConfig
	Debug  bool
}

// LedgerConfig represents ledger-store configuration.
type LedgerConfig struct {
	Root         string
	DBPath       string
	AccountsFile string
	MappingFile  string
	Currency     string
}

// StripeConfig represents card-gateway API configuration.
type StripeConfig struct {
	APIKey string
	APIURL string
}

// SumUpConfig represents POS API configuration. The access/refresh token
// pair lives in a separate JSON file at TokenPath.
type SumUpConfig struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	TokenPath    string
}

// ConfigError reports required configuration keys that are missing.
// Produced at startup, before any fetch or ledger access.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s\nPlease check your .env file or environment variables",
		strings.Join(e.Missing, ", "))
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config := &Config{
		Ledger: LedgerConfig{
			Root:         os.Getenv("LEDGER_ROOT"),
			DBPath:       os.Getenv("LEDGER_DB_PATH"),
			AccountsFile: os.Getenv("LEDGER_ACCOUNTS_FILE"),
			MappingFile:  getEnvOrDefault("LEDGER_MAPPING_FILE", "config/mapping.yaml"),
			Currency:     getEnvOrDefault("LEDGER_CURRENCY", "GBP"),
		},
		Stripe: StripeConfig{
			APIKey: os.Getenv("STRIPE_API_KEY"),
			APIURL: getEnvOrDefault("STRIPE_API_URL", "https://api.stripe.com"),
		},
		SumUp: SumUpConfig{
			ClientID:     os.Getenv("SUMUP_CLIENT_ID"),
			ClientSecret: os.Getenv("SUMUP_CLIENT_SECRET"),
			APIURL:       getEnvOrDefault("SUMUP_API_URL", "https://api.sumup.com"),
			TokenPath:    os.Getenv("SUMUP_TOKEN_PATH"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set and returns a ConfigError naming
// every missing key.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "ledger":
			switch path[1] {
			case "root":
				value = c.Ledger.Root
			case "dbPath":
				value = c.Ledger.DBPath
			case "accountsFile":
				value = c.Ledger.AccountsFile
			case "mappingFile":
				value = c.Ledger.MappingFile
			case "currency":
				value = c.Ledger.Currency
			}
		case "stripe":
			switch path[1] {
			case "apiKey":
				value = c.Stripe.APIKey
			case "apiUrl":
				value = c.Stripe.APIURL
			}
		case "sumup":
			switch path[1] {
			case "clientId":
				value = c.SumUp.ClientID
			case "clientSecret":
				value = c.SumUp.ClientSecret
			case "apiUrl":
				value = c.SumUp.APIURL
			case "tokenPath":
				value = c.SumUp.TokenPath
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
