// Command server runs the care-coordination backend: the HTTP API, the push
// and SMS providers, and the scheduled quota jobs. Configuration comes from
// the environment (optionally a .env file); storage is SQLite via GORM.
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
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/config"
	httpapi "github.com/hajeen-app/go-care-backend/internal/http"
	"github.com/hajeen-app/go-care-backend/internal/observability"
	"github.com/hajeen-app/go-care-backend/internal/push"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/scheduler"
	"github.com/hajeen-app/go-care-backend/internal/sms"
	"github.com/hajeen-app/go-care-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless enabled).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(c)
	}()

	// Storage.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	if err := seed(ctx, db, cfg); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	// Outbound providers.
	gateway := sms.NewClient(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.Timeout)
	pusher := push.NewClient(cfg.Push.Endpoint, cfg.Push.ServerKey, cfg.Push.Timeout)

	// HTTP transport.
	r := gin.New()
	quotaSvc := httpapi.RegisterRoutes(r, db, gateway, pusher, cfg)

	// Scheduled quota jobs.
	sched := &scheduler.Scheduler{
		Quota:          quotaSvc,
		ExpiryScanSpec: cfg.Scheduler.ExpiryScanSpec,
		CycleResetSpec: cfg.Scheduler.CycleResetSpec,
		JobTimeout:     cfg.Scheduler.JobTimeout,
	}
	stopJobs, err := sched.Start()
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler start failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stopJobs(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// seed provisions the initial quota configuration and the built-in phrase
// catalog on an empty database. Both steps are idempotent.
func seed(ctx context.Context, db *gorm.DB, cfg config.Config) error {
	if _, err := repo.GetActiveQuotaConfig(ctx, db); errors.Is(err, repo.ErrNotFound) {
		if _, err := repo.CreateQuotaConfig(ctx, db, cfg.DefaultQuotaMax); err != nil {
			return err
		}
		log.Info().Int("max", cfg.DefaultQuotaMax).Msg("seeded quota config")
	} else if err != nil {
		return err
	}

	if !cfg.SeedDefaultPhrases {
		return nil
	}
	existing, err := repo.ListPhrases(ctx, db, false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	defaults := []struct{ ar, en string }{
		{"أنا جائع", "I am hungry"},
		{"أنا عطشان", "I am thirsty"},
		{"أحتاج المساعدة", "I need help"},
		{"أشعر بالألم", "I am in pain"},
		{"أريد النوم", "I want to sleep"},
		{"أريد الخروج", "I want to go out"},
	}
	for _, p := range defaults {
		if _, err := repo.CreatePhrase(ctx, db, p.ar, p.en); err != nil {
			return err
		}
	}
	log.Info().Int("count", len(defaults)).Msg("seeded phrase catalog")
	return nil
}
