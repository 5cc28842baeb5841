package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opengrc/attest/internal/auth"
	"github.com/opengrc/attest/internal/config"
	"github.com/opengrc/attest/internal/extract"
	"github.com/opengrc/attest/internal/metrics"
	"github.com/opengrc/attest/internal/notify"
	"github.com/opengrc/attest/internal/server"
	"github.com/opengrc/attest/internal/snapshot"
	"github.com/opengrc/attest/internal/store/postgres"
	redisstore "github.com/opengrc/attest/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("ATTEST_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("ATTEST_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Connect to Redis for extraction job progress.
	progress, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.OpenAI.ProgressTTL)
	if err != nil {
		return err
	}
	defer progress.Close()

	// Create auth service.
	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Create the version engine with Prometheus instrumentation.
	m := metrics.New()
	engine := snapshot.NewService(store.Audits(), store.Findings(), store.Compliances(), store.Versions(), m)

	// Document extraction is optional: mounted only when an OpenAI key is set.
	var extractor *extract.Service
	if cfg.OpenAI.APIKey != "" {
		extractor = extract.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.Model, progress)
		log.Info().Str("model", cfg.OpenAI.Model).Msg("document extraction enabled")
	}

	// Slack notifications are optional as well.
	var notifier *notify.Notifier
	if cfg.Slack.BotToken != "" {
		messenger := notify.NewSlackMessengerFromToken(cfg.Slack.BotToken)
		notifier = notify.New(messenger, store.Users(), cfg.Slack.Channel)
		log.Info().Msg("Slack notifications enabled")
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, authSvc, engine, extractor, notifier)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
