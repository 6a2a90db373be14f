package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/omnipool-labs/xnav/internal/apps"
	"github.com/omnipool-labs/xnav/internal/bridge"
	"github.com/omnipool-labs/xnav/internal/config"
	"github.com/omnipool-labs/xnav/internal/evmclient"
	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/nav"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/types"
	"github.com/omnipool-labs/xnav/internal/web"
)

const (
	REFRESH_INTERVAL = 5 * time.Minute
	RELAY_POLL       = 15 * time.Second
)

// main is the entry point for the xnav service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("xnav NAV engine starting...")

	// Initialize database connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	db, err := state.Connect(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	if err := state.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	store := state.NewPostgres(db)

	// Seed the pool record on first run. Supply and unitary value start at
	// zero and are reconciled by the first refresh.
	if _, err := store.Pool(); err != nil {
		log.Info().Msg("No pool record found, initializing from configuration")
		if err := store.InitPool(types.PoolState{
			Address:   config.PoolAddress,
			BaseToken: config.BaseToken,
			Decimals:  config.PoolDecimals,
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize pool record")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 2. EVM Connectivity ---
	client, err := evmclient.Dial(ctx, config.NodeRPC)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to dial EVM node")
	}
	defer client.Close()
	log.Info().Str("endpoint", config.NodeRPC).Msg("EVM node connected")

	oracleClient, err := evmclient.NewContractOracle(client, config.OracleContract)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind oracle adapter")
	}

	// --- 3. Application Readers ---
	aggregator := apps.NewAggregator(types.AppBitmap(config.AppBitmap))

	stakingReader, err := evmclient.NewStakingReader(client, config.StakingContract)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind staking adapter")
	}
	aggregator.Register(types.AppStaking, apps.NewStakingApp(stakingReader, config.StakingPoolID, config.RewardToken))

	liquidityReader, err := evmclient.NewLiquidityReader(client, config.LiquidityContract)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind liquidity adapter")
	}
	aggregator.Register(types.AppLiquidity, apps.NewLiquidityApp(liquidityReader, oracleClient))

	derivativeReader, err := evmclient.NewDerivativeReader(client, config.DerivativeContract)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind derivative adapter")
	}
	aggregator.Register(types.AppDerivative, apps.NewDerivativeApp(derivativeReader, config.WrappedNative))

	// --- 4. Core Engine ---
	engine := nav.New(store, oracleClient, aggregator, client)
	handler := bridge.NewHandler(bridge.Config{
		ChainID:         types.ChainID(config.ChainID),
		RelayEndpoint:   config.RelayEndpoint,
		NavToleranceBps: config.NavToleranceBps,
	}, store, oracleClient, bridge.NewHTTPRelay(config.RelayAPI))

	watcher, err := evmclient.NewRelayWatcher(client, config.RelayEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind relay watcher")
	}
	go watcher.Run(ctx, RELAY_POLL, handler)

	// --- 5. Web Server ---
	webServer := web.NewServer(config.WebPort, engine, aggregator, config.PoolAddress, db)
	go func() {
		log.Info().Str("port", config.WebPort).Msg("Starting query surface")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed")
		}
	}()

	// --- 6. Refresh Loop ---
	log.Info().Str("interval", REFRESH_INTERVAL.String()).Msg("Starting NAV refresh loop")
	ticker := time.NewTicker(REFRESH_INTERVAL)
	defer ticker.Stop()

	refresh := func() {
		if _, err := engine.RefreshNav(ctx); err != nil {
			log.Warn().Err(err).Msg("NAV refresh skipped")
		}
	}
	refresh()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := webServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Web server shutdown failed")
			}
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
