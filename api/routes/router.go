package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barflowhq/barflow-backend/api/controllers"
	"github.com/barflowhq/barflow-backend/api/middleware"
	"github.com/barflowhq/barflow-backend/internal/adjustments"
	"github.com/barflowhq/barflow-backend/internal/fulfillment"
	"github.com/barflowhq/barflow-backend/internal/ledger"
	"github.com/barflowhq/barflow-backend/internal/reservations"
	"github.com/barflowhq/barflow-backend/internal/snapshots"
	"github.com/barflowhq/barflow-backend/internal/transactions"
	"github.com/barflowhq/barflow-backend/pkg/config"
	"github.com/barflowhq/barflow-backend/pkg/db"
	"github.com/barflowhq/barflow-backend/pkg/logger"
	"github.com/barflowhq/barflow-backend/pkg/redis"
)

// Services groups the engine services the router exposes.
type Services struct {
	Reservations reservations.Service
	Fulfillment  fulfillment.Service
	Adjustments  adjustments.Service
	Ledger       ledger.Service
	Transactions transactions.Service
	Snapshots    snapshots.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	promGatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// a typed-nil client must not reach the interface parameters below
	var redisP redis.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if promGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/reserve", controllers.Reserve(svcs.Reservations, logg))
			r.Post("/fulfill", controllers.Fulfill(svcs.Fulfillment, logg))
			r.Post("/cancel", controllers.CancelOrder(svcs.Fulfillment, logg))
			r.Get("/reservation", controllers.ReservationDetail(svcs.Reservations, logg))
			r.Get("/snapshot", controllers.SnapshotDetail(svcs.Snapshots, logg))
		})

		r.Post("/adjustments", controllers.AdjustmentSubmit(svcs.Adjustments, logg))
		r.Get("/adjustments/{adjustmentId}", controllers.AdjustmentDetail(svcs.Adjustments, logg))
		r.Post("/adjustments/{adjustmentId}/approve", controllers.AdjustmentApprove(svcs.Adjustments, logg))
		r.Post("/adjustments/{adjustmentId}/reject", controllers.AdjustmentReject(svcs.Adjustments, logg))
		r.Post("/adjustments/{adjustmentId}/execute", controllers.AdjustmentExecute(svcs.Adjustments, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/receipts", controllers.ReceiveStock(svcs.Ledger, logg))
			r.Get("/{storeId}/{skuId}", controllers.LedgerRow(svcs.Ledger, logg))
			r.Put("/{storeId}/{skuId}/safety-stock", controllers.SetSafetyStock(svcs.Ledger, logg))
		})

		r.Get("/transactions", controllers.TransactionList(svcs.Transactions, logg))
	})

	return r
}
