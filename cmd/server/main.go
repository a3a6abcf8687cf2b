// Command server runs the realtime delivery backend: the websocket attach
// endpoint and ingestion API over HTTP, and the in-memory job sweep loop in
// the background. Shutdown is graceful: SIGINT/SIGTERM stops the sweep loop
// and drains the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avennor/go-collab-backend/internal/config"
	httpapi "github.com/avennor/go-collab-backend/internal/http"
	"github.com/avennor/go-collab-backend/internal/jobs"
	"github.com/avennor/go-collab-backend/internal/observability"
	"github.com/avennor/go-collab-backend/internal/realtime"
	"github.com/avennor/go-collab-backend/internal/repo"
	"github.com/avennor/go-collab-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	// Realtime core: registry and broadcaster reference each other and are
	// bound after construction.
	registry := realtime.NewRegistry(log.With().Str("component", "registry").Logger())
	broadcaster := realtime.NewBroadcaster(registry, log.With().Str("component", "broadcaster").Logger())
	registry.BindAnnouncer(broadcaster)

	// Job scheduler with the built-in notification dispatcher. The store is
	// shared with the service layer, which schedules into it.
	store := jobs.NewStore()
	deps := httpapi.BuildServices(db, registry, broadcaster, store, cfg)

	scheduler := jobs.NewScheduler(store, cfg.SweepInterval, log.With().Str("component", "scheduler").Logger())
	scheduler.Register(jobs.TypeSendNotification, jobs.NewNotificationHandler(
		func() jobs.Notifier { return deps.Notifier },
		log.With().Str("component", "notification_handler").Logger(),
	))

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		scheduler.Run(ctx)
	}()

	engine := gin.New()
	httpapi.RegisterRoutes(engine, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	<-sweepDone
	log.Info().Msg("server stopped")
}
