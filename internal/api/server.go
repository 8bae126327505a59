package api

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cflp/internal/auth"
	"cflp/internal/config"
	"cflp/internal/store"
	"cflp/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Pub     *webhooks.Publisher
	Auth    *auth.Verifier
	Broker  EventBroker
	Config  config.Config
	Log     *zap.Logger
	limiter *tenantLimiter
}

// NewServer creates a Server. If no database URL is configured, uses in-memory store.
func NewServer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var s store.Store
	if strings.TrimSpace(cfg.Database.URL) == "" {
		log.Info("using in-memory store")
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := sp.Migrate(ctx); err != nil {
				_ = sp.Close()
				return nil, err
			}
		}
		log.Info("using postgres store", zap.Bool("migrated", cfg.Database.Migrate))
		s = sp
	}
	// Broker selection
	var broker EventBroker = NewBroker()
	if cfg.Redis.URL != "" {
		rb, err := NewRedisBroker(cfg.Redis.URL, log.Named("broker"))
		if err != nil {
			log.Warn("redis unavailable, using in-process broker", zap.Error(err))
		} else {
			broker = rb
		}
	}
	return New(s, broker, cfg, log), nil
}

// New wires a Server from explicit dependencies.
func New(s store.Store, broker EventBroker, cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if broker == nil {
		broker = NewBroker()
	}
	return &Server{
		Store:   s,
		Pub:     webhooks.NewPublisher(s, log),
		Auth:    auth.NewVerifier(cfg.Auth.Mode, cfg.Auth.HMACSecret),
		Broker:  broker,
		Config:  cfg,
		Log:     log,
		limiter: newTenantLimiter(cfg.Server.RateRPS, cfg.Server.RateBurst),
	}
}

// Routes returns the full handler with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Solves
	mux.HandleFunc("/v1/solve", s.SolveHandler)
	mux.HandleFunc("/v1/solves", s.SolvesIndexHandler)
	mux.HandleFunc("/v1/solves/", s.SolveByIDHandler) // includes /report
	mux.HandleFunc("/v1/compare", s.CompareHandler)

	// Catalog
	mux.HandleFunc("/v1/catalog", s.CatalogHandler)
	mux.HandleFunc("/v1/admin/catalog", s.AdminCatalogHandler)

	// Subscriptions
	mux.HandleFunc("/v1/subscriptions", s.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", s.SubscriptionByIDHandler)

	// Admin
	mux.HandleFunc("/v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)
	mux.HandleFunc("/v1/admin/webhook-deliveries/", s.WebhookDeliveryRetryHandler)
	mux.HandleFunc("/v1/admin/solve-metrics", s.SolveMetricsHandler)

	// Streams
	mux.HandleFunc("/v1/events/stream", s.EventStreamHandler)
	mux.HandleFunc("/ws", s.WSHandler)

	// Health, metrics, debug
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/debug/info", s.DebugJSON)

	return s.recoverMiddleware(s.logMiddleware(s.metricsMiddleware(s.rateLimitMiddleware(mux))))
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Config.Webhooks.MaxAttempts, s.Log)
}
