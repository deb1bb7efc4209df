// Command campaignd serves the event campaign API and fires due schedules.
//
// @title       Event Campaigns API
// @version     1.0
// @description Schedules, dispatches and audits guest notification campaigns.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/event-campaigns/internal/config"
	httpapi "github.com/tbourn/event-campaigns/internal/http"
	"github.com/tbourn/event-campaigns/internal/observability"
	"github.com/tbourn/event-campaigns/internal/repo"
	"github.com/tbourn/event-campaigns/internal/sysutil"
	"github.com/tbourn/event-campaigns/internal/transport"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("campaignd stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	if sysutil.IsTruthy(os.Getenv("MIGRATE_ONLY")) {
		log.Info().Str("db", cfg.DBPath).Msg("migrations applied, exiting")
		return nil
	}

	sender, closeSender, err := newSender(ctx, cfg.Transport)
	if err != nil {
		return err
	}
	defer closeSender()

	svc := httpapi.NewServices(db, sender, cfg)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, svc, cfg)

	if iv := cfg.Campaign.SchedulerInterval; iv > 0 {
		go svc.Scheduler.Run(ctx, iv)
		log.Info().Dur("interval", iv).Msg("scheduler started")
	} else {
		log.Info().Msg("in-process scheduler disabled; use POST /scheduler/run")
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("transport", cfg.Transport.Kind).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// openDB opens the database, migrates it and returns reservations left
// open by a previous crash to their balances.
func openDB(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	var opts []repo.Option
	if cfg.OTEL.Enabled {
		opts = append(opts, repo.WithTracing())
	}
	db, err := repo.OpenSQLite(cfg.DBPath, opts...)
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	n, err := repo.ReleaseReservations(ctx, db)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		log.Warn().Int64("accounts", n).Msg("released credit reservations from an interrupted run")
	}
	return db, nil
}

// newSender builds the configured transport, throttled to the gateway rate.
func newSender(ctx context.Context, cfg config.TransportConfig) (transport.Sender, func(), error) {
	switch cfg.Kind {
	case "whatsapp":
		wa, err := transport.NewWhatsApp(ctx, transport.WhatsAppConfig{
			DataDir:     cfg.DataDir,
			CountryCode: cfg.CountryCode,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := wa.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return transport.NewThrottled(wa, cfg.RPS, cfg.Burst), wa.Disconnect, nil
	default:
		return transport.NewThrottled(transport.LogSender{}, cfg.RPS, cfg.Burst), func() {}, nil
	}
}
