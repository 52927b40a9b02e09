package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/ride-hailing/internal/config"
	"github.com/example/ride-hailing/internal/events"
	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/httpapi"
	"github.com/example/ride-hailing/internal/logging"
	"github.com/example/ride-hailing/internal/payments"
	"github.com/example/ride-hailing/internal/rides"
	"github.com/example/ride-hailing/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger("ride-api", cfg.LogLevel)

	store, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		logger.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	svc := rides.NewService(store, logger)
	svc.Estimates = rides.Estimator{SpeedKmh: cfg.SpeedKmh, FareBase: cfg.FareBase, FarePerKm: cfg.FarePerKm}

	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		svc.Events = producer
		logger.Info("kafka events enabled", "topic", cfg.KafkaTopic)
	}
	if cfg.RedisAddr != "" {
		locations := geo.NewDriverLocations(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		defer locations.Close()
		svc.Locations = locations
		logger.Info("redis location index enabled", "key", cfg.RedisGeoKey)
	}
	if cfg.StripeAPIKey != "" {
		svc.Payments = payments.NewStripeClient(cfg.StripeAPIKey, cfg.StripeCurrency)
		logger.Info("stripe fare flow enabled", "currency", cfg.StripeCurrency)
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.New(svc, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("ride-hailing api listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}

// buildStore picks the ride store backend: Postgres, then SQLite, then
// in-memory for local runs.
func buildStore(cfg config.ServerConfig, logger *slog.Logger) (storage.RideStore, func(), error) {
	switch {
	case cfg.PGDSN != "":
		if cfg.RunMigrations {
			if err := applyMigrations(cfg.PGDSN, logger); err != nil {
				return nil, nil, err
			}
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres ride store")
		return ps, func() { ps.Close() }, nil
	case cfg.SQLitePath != "":
		ss, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite ride store", "path", cfg.SQLitePath)
		return ss, func() { ss.Close() }, nil
	default:
		logger.Info("using in-memory ride store")
		return storage.NewMemoryStore(), func() {}, nil
	}
}

func applyMigrations(dsn string, logger *slog.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_rides.sql"))
	if err != nil {
		return err
	}
	if _, err := db.Exec(string(b)); err != nil {
		return err
	}
	logger.Info("migration applied", "file", "001_create_rides.sql")
	return nil
}
