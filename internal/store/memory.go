package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cflp/internal/model"
	"cflp/internal/opt"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	solves   map[string]model.SolveRecord // id -> record
	solveTen map[string][]string          // tenant -> solve ids, insertion order
	metrics  map[string][]map[string]any  // tenant|solve -> per-solver metrics
	catalogs map[string]model.CatalogConfig
	subs     map[string][]model.Subscription // tenant -> subscriptions
	// Webhooks queue state
	deliveries         map[string]*memDelivery // id -> delivery state
	deliveryOrder      []string
	deliveriesByTenant map[string][]string // tenant -> delivery ids
}

func NewMemory() *Memory {
	return &Memory{
		solves:             map[string]model.SolveRecord{},
		solveTen:           map[string][]string{},
		metrics:            map[string][]map[string]any{},
		catalogs:           map[string]model.CatalogConfig{},
		subs:               map[string][]model.Subscription{},
		deliveries:         map[string]*memDelivery{},
		deliveriesByTenant: map[string][]string{},
	}
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) SaveSolve(ctx context.Context, rec model.SolveRecord) (model.SolveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.solves[rec.ID]; !exists {
		m.solveTen[rec.TenantID] = append(m.solveTen[rec.TenantID], rec.ID)
	}
	m.solves[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetSolve(ctx context.Context, tenantID, id string) (model.SolveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.solves[id]
	if !ok || rec.TenantID != tenantID {
		return model.SolveRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListSolves(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.SolveSummary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.solveTen[tenantID]
	start := 0
	if cursor != "" {
		for i := range ids {
			if ids[i] == cursor {
				start = i + 1
				break
			}
		}
	}
	limit = clampLimit(limit)
	out := []model.SolveSummary{}
	next := ""
	for _, id := range ids[start:] {
		rec := m.solves[id]
		if status != "" && rec.Status != status {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, rec.Summary())
	}
	return out, next, nil
}

func (m *Memory) SaveSolveMetrics(ctx context.Context, tenantID, solveID, solver string, mx opt.Metrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tenantID + "|" + solveID
	row := metricsRow(solver, mx)
	items := m.metrics[key]
	for i := range items {
		if items[i]["solver"] == solver {
			items[i] = row
			return nil
		}
	}
	m.metrics[key] = append(items, row)
	return nil
}

func (m *Memory) ListSolveMetrics(ctx context.Context, tenantID, solveID string) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any{}, m.metrics[tenantID+"|"+solveID]...), nil
}

func metricsRow(solver string, mx opt.Metrics) map[string]any {
	stages := make([]string, len(mx.Stages))
	for i, s := range mx.Stages {
		stages[i] = string(s)
	}
	return map[string]any{
		"solver":          solver,
		"stages":          stages,
		"options":         mx.Options,
		"opened":          mx.Opened,
		"closedOpened":    mx.ClosedOpened,
		"upgraded":        mx.Upgraded,
		"removed":         mx.Removed,
		"fixedCostBefore": mx.FixedCostBefore,
		"fixedCostAfter":  mx.FixedCostAfter,
		"durationMs":      mx.DurationMs,
	}
}

func (m *Memory) GetCatalogConfig(ctx context.Context, tenantID string) (*model.CatalogConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.catalogs[tenantID]; ok {
		cfg.Tiers = append(opt.Catalog(nil), cfg.Tiers...)
		return &cfg, nil
	}
	return nil, nil
}

func (m *Memory) SaveCatalogConfig(ctx context.Context, tenantID string, cfg model.CatalogConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.Tiers = append(opt.Catalog(nil), cfg.Tiers...)
	m.catalogs[tenantID] = cfg
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	limit = clampLimit(limit)
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	items := append([]model.Subscription{}, list[start:end]...)
	next := ""
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr := m.subs[tenantID]
	out := make([]model.Subscription, 0, len(arr))
	for _, s := range arr {
		if s.ID != id {
			out = append(out, s)
		}
	}
	if len(out) == len(arr) {
		return ErrNotFound
	}
	m.subs[tenantID] = out
	return nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: DeliveryPending},
		NextAttemptAt:   time.Now(),
	}
	m.deliveryOrder = append(m.deliveryOrder, id)
	m.deliveriesByTenant[tenantID] = append(m.deliveriesByTenant[tenantID], id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryOrder {
		d := m.deliveries[id]
		if (d.Status == DeliveryPending || d.Status == DeliveryRetry) && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = DeliveryDelivered
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	d.Status = DeliveryRetry
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = DeliveryFailed
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.deliveriesByTenant[tenantID]
	start := 0
	if cursor != "" {
		for i := range ids {
			if ids[i] == cursor {
				start = i + 1
				break
			}
		}
	}
	limit = clampLimit(limit)
	out := []map[string]any{}
	next := ""
	for _, id := range ids[start:] {
		d := m.deliveries[id]
		if status != "" && d.Status != status {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1]["id"].(string)
			break
		}
		item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
		if !d.NextAttemptAt.IsZero() && d.Status != DeliveryDelivered && d.Status != DeliveryFailed {
			item["nextAttemptAt"] = d.NextAttemptAt
		}
		if d.LastError != "" {
			item["lastError"] = d.LastError
		}
		if d.ResponseCode != 0 {
			item["responseCode"] = d.ResponseCode
		}
		out = append(out, item)
	}
	return out, next, nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil || d.TenantID != tenantID {
		return ErrNotFound
	}
	d.Status = DeliveryPending
	d.NextAttemptAt = time.Now()
	return nil
}
