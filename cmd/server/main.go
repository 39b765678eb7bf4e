package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops/ledgersync/internal/api"
	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/config"
	"fieldops/ledgersync/internal/db"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/metrics"
	"fieldops/ledgersync/internal/routes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	if err := logging.Init(cfg.App.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Ledgersync starting up",
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	dsn := cfg.Database.PostgresDSN()

	// Local business documents and api keys are read with sqlx
	sqlDB, err := db.InitPostgres(dsn)
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (sqlx)", "error", err)
	}
	defer sqlDB.Close()

	// Sync tables are owned through GORM
	ormDB, err := db.InitPostgresORM(dsn)
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (GORM)", "error", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ormDB); err != nil {
			logging.Fatal("Failed to migrate sync tables", "error", err)
		}
	}

	rdb := common.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	deps, err := api.InitDependencies(cfg, sqlDB, ormDB, rdb, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err)
	}

	upSince := time.Now()
	router := routes.RegisterRoutes(deps, metricsReg, map[string]api.Pinger{
		"postgres": sqlDB,
		"redis":    common.RedisPinger{Client: rdb},
	}, upSince)

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logging.Info("Server starting", "addr", srv.Addr, "environment", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logging.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err)
	}
}
