package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stagcourt/stag-server/internal/config"
	"github.com/stagcourt/stag-server/internal/game"
	"github.com/stagcourt/stag-server/internal/game/rules"
	"github.com/stagcourt/stag-server/internal/replay"
	"github.com/stagcourt/stag-server/internal/repository"
	"github.com/stagcourt/stag-server/internal/server"
	"github.com/stagcourt/stag-server/internal/table"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting Stag server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Load rules
	ruleset, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		logger.Fatal("failed to load rules", zap.String("path", cfg.Rules.Path), zap.Error(err))
	}
	logger.Info("rules loaded",
		zap.String("path", cfg.Rules.Path),
		zap.Int("deck_size", ruleset.DeckSize()),
	)
	engine := game.NewEngine(ruleset, logger)

	// Initialize game store
	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open game store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("game store initialized", zap.String("driver", cfg.Database.Driver))

	var opts []table.Option
	if cfg.Replay.Enabled {
		journal, err := replay.NewJournal(cfg.Replay.Dir, logger)
		if err != nil {
			logger.Fatal("failed to open replay journal", zap.String("dir", cfg.Replay.Dir), zap.Error(err))
		}
		defer journal.Close()
		opts = append(opts, table.WithJournal(journal))
		logger.Info("replay journal enabled", zap.String("dir", cfg.Replay.Dir))
	}

	tables := table.NewService(store, engine, logger, opts...)

	validator, err := server.NewPayloadValidator()
	if err != nil {
		logger.Fatal("failed to compile request schemas", zap.Error(err))
	}

	hub := server.NewHub(tables, cfg.Server.WebSocket, logger)
	tables.SetNotifier(hub)

	api := server.NewAPI(tables, validator, hub, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTP.Address,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
	}

	grpcServer, healthServer := server.NewGRPCServer(cfg.Server.GRPC, tables, validator, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start HTTP server
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	logger.Info("Stag server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	hub.Close()

	grpcServer.GracefulStop()

	logger.Info("Stag server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
