package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dealvault/config"
	"dealvault/native/arbiter"
	"dealvault/native/custody"
	"dealvault/native/directory"
	"dealvault/observability/logging"
	"dealvault/rpc"
	"dealvault/state"
	"dealvault/storage"
)

const (
	rpcTokenEnv     = "DEALVAULT_RPC_TOKEN"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("DEALVAULT_ENV"))
	logger := logging.Setup("dealvaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)

	directoryAddr, _ := config.ParseAddress(cfg.DirectoryAddress)
	directoryOwner, _ := config.ParseAddress(cfg.DirectoryOwner)
	custodyVault, _ := config.ParseAddress(cfg.CustodyVault)
	registryVault, _ := config.ParseAddress(cfg.RegistryVault)

	engine := custody.NewEngine()
	engine.SetState(manager)
	engine.SetVault(custodyVault)
	engine.SetFeeCollector(directoryAddr)
	engine.SetAdmin(directoryAddr)

	registry := arbiter.NewRegistry()
	registry.SetState(manager)
	registry.SetVault(registryVault)
	registry.SetAdmin(directoryAddr)
	if minimum := cfg.MinimumStakeAmount(); minimum != nil {
		registry.SetMinimumStake(minimum)
	}

	dir := directory.NewDirectory()
	dir.SetEngine(engine)
	dir.SetRegistry(registry)
	dir.SetState(manager)
	dir.SetAddress(directoryAddr)
	dir.SetOwner(directoryOwner)

	token := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if token == "" {
		logger.Warn("RPC token not configured; mutating methods are disabled", slog.String("env", rpcTokenEnv))
	}
	server := rpc.NewServer(engine, registry, dir, manager, token, logger)

	srv := &http.Server{
		Addr:    cfg.RPCAddress,
		Handler: server.Handler(),
	}

	go func() {
		logger.Info("JSON-RPC server listening",
			slog.String("address", cfg.RPCAddress),
			slog.String("network", cfg.NetworkName))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
