package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/state"
)

// Drops and recreates the autopilot tables. Destructive; intended for local
// development only.
func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Initialize(logLevel)
	log.Info().Msg("Starting database reset script...")

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found or error loading .env file. Relying on OS environment variables.")
	}

	port := 5432
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		parsed, err := strconv.Atoi(portStr)
		if err != nil {
			log.Fatal().Str("DB_PORT", portStr).Msg("DB_PORT must be a valid integer")
		}
		port = parsed
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	cfg := state.DBConfig{
		Host:     envOrDefault("DB_HOST", "localhost"),
		Port:     port,
		User:     envOrDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   envOrDefault("DB_NAME", "autopilot"),
		SSLMode:  sslMode,
	}

	if err := state.InitDB(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer state.CloseDB()

	dropSQL := `
		DROP TABLE IF EXISTS rank_snapshots CASCADE;
		DROP TABLE IF EXISTS preference_profiles CASCADE;
	`
	if _, err := state.DB.Exec(dropSQL); err != nil {
		log.Fatal().Err(err).Msg("Failed to drop tables")
	}
	log.Info().Msg("Dropped existing tables")

	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to recreate schema")
	}

	fmt.Println("Database reset complete.")
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
