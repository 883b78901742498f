package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/barflowhq/barflow-backend/api/routes"
	"github.com/barflowhq/barflow-backend/internal/adjustments"
	"github.com/barflowhq/barflow-backend/internal/fulfillment"
	"github.com/barflowhq/barflow-backend/internal/ledger"
	"github.com/barflowhq/barflow-backend/internal/recipes"
	"github.com/barflowhq/barflow-backend/internal/reservations"
	"github.com/barflowhq/barflow-backend/internal/snapshots"
	"github.com/barflowhq/barflow-backend/internal/transactions"
	"github.com/barflowhq/barflow-backend/pkg/config"
	"github.com/barflowhq/barflow-backend/pkg/db"
	"github.com/barflowhq/barflow-backend/pkg/logger"
	"github.com/barflowhq/barflow-backend/pkg/metrics"
	"github.com/barflowhq/barflow-backend/pkg/migrate"
	"github.com/barflowhq/barflow-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		closeQuietly(logg, dbClient, nil)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		closeQuietly(logg, dbClient, nil)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	engineMetrics := metrics.NewEngineMetrics(registry)

	svcs, err := buildServices(dbClient, engineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		closeQuietly(logg, dbClient, redisClient)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, svcs),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			closeQuietly(logg, dbClient, redisClient)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining requests")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "server drain failed", err)
		}
	}

	closeQuietly(logg, dbClient, redisClient)
	logg.Info(ctx, "api server stopped")
}

// buildServices wires the inventory engine bottom-up: ledger first, then the
// flows that compose it. The db client doubles as the transaction runner.
func buildServices(dbClient *db.Client, engineMetrics *metrics.EngineMetrics, logg *logger.Logger) (routes.Services, error) {
	conn := dbClient.DB()

	ledgerRepo := ledger.NewRepository(conn)
	recipesRepo := recipes.NewRepository(conn)
	snapshotsRepo := snapshots.NewRepository(conn)
	reservationsRepo := reservations.NewRepository(conn)
	adjustmentsRepo := adjustments.NewRepository(conn)
	txnsRepo := transactions.NewRepository(conn)

	ledgerSvc, err := ledger.NewService(ledgerRepo, txnsRepo, dbClient, ledger.NewLockManager(), engineMetrics, logg)
	if err != nil {
		return routes.Services{}, err
	}
	recipesSvc, err := recipes.NewService(recipesRepo)
	if err != nil {
		return routes.Services{}, err
	}
	reservationsSvc, err := reservations.NewService(reservationsRepo, recipesSvc, snapshotsRepo, txnsRepo, ledgerSvc, dbClient, engineMetrics)
	if err != nil {
		return routes.Services{}, err
	}
	fulfillmentSvc, err := fulfillment.NewService(reservationsRepo, snapshotsRepo, txnsRepo, ledgerSvc, dbClient, engineMetrics)
	if err != nil {
		return routes.Services{}, err
	}
	adjustmentsSvc, err := adjustments.NewService(adjustmentsRepo, txnsRepo, ledgerSvc, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	transactionsSvc, err := transactions.NewService(txnsRepo)
	if err != nil {
		return routes.Services{}, err
	}
	snapshotsSvc, err := snapshots.NewService(snapshotsRepo, reservationsRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Reservations: reservationsSvc,
		Fulfillment:  fulfillmentSvc,
		Adjustments:  adjustmentsSvc,
		Ledger:       ledgerSvc,
		Transactions: transactionsSvc,
		Snapshots:    snapshotsSvc,
	}, nil
}

func closeQuietly(logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) {
	var errs []error
	if dbClient != nil {
		errs = append(errs, dbClient.Close())
	}
	if redisClient != nil {
		errs = append(errs, redisClient.Close())
	}
	if err := multierr.Combine(errs...); err != nil {
		logg.Error(context.Background(), "error closing resources", err)
	}
}
