package store

import (
	"context"
	"errors"
	"time"

	"cflp/internal/model"
	"cflp/internal/opt"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Solves
	SaveSolve(ctx context.Context, rec model.SolveRecord) (model.SolveRecord, error)
	GetSolve(ctx context.Context, tenantID, id string) (model.SolveRecord, error)
	ListSolves(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.SolveSummary, string, error)

	// Solve metrics
	SaveSolveMetrics(ctx context.Context, tenantID, solveID, solver string, m opt.Metrics) error
	ListSolveMetrics(ctx context.Context, tenantID, solveID string) ([]map[string]any, error)

	// Catalog per tenant; nil when the tenant has no override
	GetCatalogConfig(ctx context.Context, tenantID string) (*model.CatalogConfig, error)
	SaveCatalogConfig(ctx context.Context, tenantID string, cfg model.CatalogConfig) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
	RetryWebhookDelivery(ctx context.Context, tenantID, id string) error

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
