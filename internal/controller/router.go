package controller

import (
	"errors"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sejinpark/commercepay/internal/application/payment"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/gateway"
	"github.com/sejinpark/commercepay/internal/infrastructure/config"
	"github.com/sejinpark/commercepay/internal/infrastructure/observability"
	customMW "github.com/sejinpark/commercepay/internal/middleware"
)

var errLockContended = errors.New("order lock contended")

type RouterDeps struct {
	Pool         *pgxpool.Pool
	RedisClient  *redis.Client
	Orchestrator *payment.Orchestrator
	Allocator    *payment.Allocator
	LedgerRepo   ledger.Repository
	Inicis       *gateway.InicisClient
	Metrics      *observability.Metrics
	CORSConfig   config.CORSConfig
	LockTTL      time.Duration
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	paymentH := NewPaymentController(deps.Orchestrator, deps.Allocator, deps.LedgerRepo, deps.Inicis, deps.RedisClient, deps.LockTTL)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/payments/inicis/auth-params", paymentH.AuthParams)

		r.Route("/orders/{orderNo}", func(r chi.Router) {
			r.Post("/payments", paymentH.ProcessPayments)
			r.Post("/cancel", paymentH.Cancel)
			r.Get("/payments", paymentH.ListPayments)
		})
	})

	return r
}
