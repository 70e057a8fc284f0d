package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/stableyield/autopilot/internal/state"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LogLevel controls the global zerolog level.
	LogLevel string
	// WebPort is the port the strategy API listens on.
	WebPort int

	// YieldFeedURL is the base URL of the upstream yield aggregator.
	YieldFeedURL string

	// ZeroXAPIURL is the base URL of the 0x swap API.
	ZeroXAPIURL string
	// ZeroXAPIKey authenticates against the 0x swap API.
	ZeroXAPIKey string

	// EthRPCURL is the Ethereum JSON-RPC endpoint.
	EthRPCURL string

	// AaveResolutionMode selects static or provider pool resolution.
	AaveResolutionMode string

	// Database holds the PostgreSQL connection parameters.
	Database state.DBConfig
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Feed, aggregator, RPC and database settings are required; the rest default sensibly.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	WebPort, err = getEnvAsIntOrDefault("WEB_PORT", 8080)
	if err != nil {
		return err
	}

	YieldFeedURL, err = getEnv("YIELD_FEED_URL")
	if err != nil {
		return err
	}

	ZeroXAPIURL, err = getEnv("ZEROX_API_URL")
	if err != nil {
		return err
	}

	ZeroXAPIKey, err = getEnv("ZEROX_API_KEY")
	if err != nil {
		return err
	}

	EthRPCURL, err = getEnv("ETH_RPC_URL")
	if err != nil {
		return err
	}

	AaveResolutionMode = getEnvOrDefault("AAVE_RESOLUTION_MODE", "static")

	if err := loadDatabaseConfig(); err != nil {
		return err
	}

	log.Debug().
		Int("WebPort", WebPort).
		Str("YieldFeedURL", YieldFeedURL).
		Str("EthRPCURL", EthRPCURL).
		Str("AaveResolutionMode", AaveResolutionMode).
		Msg("Configuration loaded successfully.")

	return nil
}

func loadDatabaseConfig() error {
	var err error

	Database.Host, err = getEnv("DB_HOST")
	if err != nil {
		return err
	}
	Database.Port, err = getEnvAsIntOrDefault("DB_PORT", 5432)
	if err != nil {
		return err
	}
	Database.User, err = getEnv("DB_USER")
	if err != nil {
		return err
	}
	Database.Password, err = getEnv("DB_PASSWORD")
	if err != nil {
		return err
	}
	Database.DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}
	Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back when unset.
func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsIntOrDefault retrieves an environment variable as an int. Returns error if set but invalid.
func getEnvAsIntOrDefault(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
