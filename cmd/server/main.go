package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/pixelarena/arena-server-go/internal/agent"
	"github.com/pixelarena/arena-server-go/internal/config"
	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/narration"
	"github.com/pixelarena/arena-server-go/internal/repository"
	"github.com/pixelarena/arena-server-go/internal/server"
	"github.com/pixelarena/arena-server-go/internal/telemetry"
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

	logger.Info("starting arena server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("arena server failed", zap.Error(err))
	}
	logger.Info("arena server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Create context that is cancelled on termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("character store: %w", err)
	}
	defer store.Close()

	narrator, err := newNarrator(cfg.Narration, logger)
	if err != nil {
		return fmt.Errorf("narration: %w", err)
	}

	matchMgr := game.NewManager(logger)
	logger.Info("match manager initialized")

	arena := server.New(matchMgr, store, server.Options{
		Match:          cfg.Match,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxMatches:     cfg.Server.MaxMatches,
		Narrator:       narrator,
		Planner:        agent.NewPlanner(logger),
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           arena.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")

		// Close all active clients; their matches end with them
		arena.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newNarrator(cfg config.NarrationConfig, logger *zap.Logger) (narration.Narrator, error) {
	if !cfg.Enabled {
		logger.Info("narration disabled; battle log uses plain event text")
		return narration.Identity{}, nil
	}
	n, err := narration.NewOpenAI(narration.OpenAIConfig{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("narration enabled",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
	)
	return n, nil
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
