package main

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/stableyield/autopilot/internal/config"
	"github.com/stableyield/autopilot/internal/datafetcher"
	"github.com/stableyield/autopilot/internal/engine"
	"github.com/stableyield/autopilot/internal/logger"
	"github.com/stableyield/autopilot/internal/planner"
	"github.com/stableyield/autopilot/internal/state"
	"github.com/stableyield/autopilot/internal/web"
)

// main is the entry point for the autopilot service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel)
	log.Info().Msg("Stablecoin Yield Autopilot starting...")

	// Initialize Database Connection (preference profiles and rank snapshots)
	if err := state.InitDB(config.Database); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Market Dependencies ---
	ethClient, err := ethclient.Dial(config.EthRPCURL)
	if err != nil {
		log.Fatal().Err(err).Str("endpoint", config.EthRPCURL).Msg("Ethereum RPC connection error")
	}
	defer ethClient.Close()
	log.Info().Str("endpoint", config.EthRPCURL).Msg("Ethereum RPC connected")

	mode, err := datafetcher.ParseResolutionMode(config.AaveResolutionMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid AAVE_RESOLUTION_MODE")
	}
	poolResolver, err := datafetcher.NewAavePoolResolver(mode, ethClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pool resolver")
	}

	feedClient := datafetcher.NewFeedClient(config.YieldFeedURL, datafetcher.DefaultRetryPolicy)
	quoteOracle := datafetcher.NewZeroXClient(config.ZeroXAPIURL, config.ZeroXAPIKey)
	decimalsReader := datafetcher.NewErc20Reader(ethClient)

	// --- 3. Engine and Web Server ---
	compiler := planner.NewCompiler(quoteOracle, poolResolver, decimalsReader)
	core := engine.New(feedClient, compiler)

	// Rank snapshots accumulate per profile; keep 30 days locally.
	go pruneSnapshotsLoop(30 * 24 * time.Hour)

	webPort := strconv.Itoa(config.WebPort)
	webServer := web.NewWebServer(webPort, core)

	log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting strategy API")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

// pruneSnapshotsLoop trims old rank snapshots once a day.
func pruneSnapshotsLoop(retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		deleted, err := state.PruneRankSnapshots(retention)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to prune rank snapshots")
			continue
		}
		if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("Pruned old rank snapshots")
		}
	}
}
