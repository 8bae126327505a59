package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cflp/internal/model"
	"cflp/internal/opt"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) SaveSolve(ctx context.Context, rec model.SolveRecord) (model.SolveRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	req, err := json.Marshal(rec.Request)
	if err != nil {
		return model.SolveRecord{}, err
	}
	sol, err := json.Marshal(rec.Solution)
	if err != nil {
		return model.SolveRecord{}, err
	}
	mx, err := json.Marshal(rec.Metrics)
	if err != nil {
		return model.SolveRecord{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO solves (id, tenant_id, name, status, objective, facilities, points, request, solution, metrics, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (id) DO UPDATE SET status=$4, objective=$5, facilities=$6, solution=$9, metrics=$10`,
		rec.ID, rec.TenantID, nullIfEmpty(rec.Name), rec.Status, rec.Objective,
		len(rec.Solution.FacilitiesOpened), len(rec.Request.DemandPoints), req, sol, mx, rec.CreatedAt)
	if err != nil {
		return model.SolveRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) GetSolve(ctx context.Context, tenantID, id string) (model.SolveRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.SolveRecord{}, ErrNotFound
	}
	var rec model.SolveRecord
	var name sql.NullString
	var req, sol, mx []byte
	err := p.db.QueryRowContext(ctx, `SELECT id::text, tenant_id, name, status, objective, request, solution, metrics, created_at
        FROM solves WHERE tenant_id=$1 AND id=$2`, tenantID, id).
		Scan(&rec.ID, &rec.TenantID, &name, &rec.Status, &rec.Objective, &req, &sol, &mx, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SolveRecord{}, ErrNotFound
	}
	if err != nil {
		return model.SolveRecord{}, err
	}
	rec.Name = name.String
	if err := json.Unmarshal(req, &rec.Request); err != nil {
		return model.SolveRecord{}, fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal(sol, &rec.Solution); err != nil {
		return model.SolveRecord{}, fmt.Errorf("decode solution: %w", err)
	}
	if err := json.Unmarshal(mx, &rec.Metrics); err != nil {
		return model.SolveRecord{}, fmt.Errorf("decode metrics: %w", err)
	}
	return rec, nil
}

func (p *Postgres) ListSolves(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.SolveSummary, string, error) {
	limit = clampLimit(limit)
	q := `SELECT id::text, COALESCE(name,''), status, objective, facilities, points, created_at FROM solves WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if cursor != "" {
		args = append(args, cursor)
		q += fmt.Sprintf(` AND id::text > $%d`, len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.SolveSummary{}
	for rows.Next() {
		var s model.SolveSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Status, &s.Objective, &s.Facilities, &s.Points, &s.CreatedAt); err != nil {
			return nil, "", err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) SaveSolveMetrics(ctx context.Context, tenantID, solveID, solver string, m opt.Metrics) error {
	stages, _ := json.Marshal(m.Stages)
	_, err := p.db.ExecContext(ctx, `INSERT INTO solve_metrics (id, tenant_id, solve_id, solver, stages, options, opened, closed_opened, upgraded, removed, fixed_cost_before, fixed_cost_after, duration_ms)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (tenant_id, solve_id, solver) DO UPDATE SET
          stages=$5, options=$6, opened=$7, closed_opened=$8, upgraded=$9, removed=$10, fixed_cost_before=$11, fixed_cost_after=$12, duration_ms=$13, created_at=now()`,
		uuid.New().String(), tenantID, solveID, solver, stages, m.Options, m.Opened, m.ClosedOpened, m.Upgraded, m.Removed,
		m.FixedCostBefore, m.FixedCostAfter, m.DurationMs)
	return err
}

func (p *Postgres) ListSolveMetrics(ctx context.Context, tenantID, solveID string) ([]map[string]any, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT solver, stages, options, opened, closed_opened, upgraded, removed, fixed_cost_before, fixed_cost_after, duration_ms
        FROM solve_metrics WHERE tenant_id=$1 AND solve_id=$2 ORDER BY solver`, tenantID, solveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []map[string]any{}
	for rows.Next() {
		var solver string
		var stagesJS []byte
		var options, opened, closedOpened, upgraded, removed int
		var before, after, dur float64
		if err := rows.Scan(&solver, &stagesJS, &options, &opened, &closedOpened, &upgraded, &removed, &before, &after, &dur); err != nil {
			return nil, err
		}
		var stages []string
		_ = json.Unmarshal(stagesJS, &stages)
		out = append(out, map[string]any{
			"solver":          solver,
			"stages":          stages,
			"options":         options,
			"opened":          opened,
			"closedOpened":    closedOpened,
			"upgraded":        upgraded,
			"removed":         removed,
			"fixedCostBefore": before,
			"fixedCostAfter":  after,
			"durationMs":      dur,
		})
	}
	return out, rows.Err()
}

func (p *Postgres) GetCatalogConfig(ctx context.Context, tenantID string) (*model.CatalogConfig, error) {
	var js []byte
	err := p.db.QueryRowContext(ctx, `SELECT config FROM catalog_config WHERE tenant_id=$1`, tenantID).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg model.CatalogConfig
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Postgres) SaveCatalogConfig(ctx context.Context, tenantID string, cfg model.CatalogConfig) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO catalog_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, js)
	return err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New().String()
	ev, _ := json.Marshal(req.Events)
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, req.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	match, _ := json.Marshal([]string{eventType})
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions
        WHERE tenant_id=$1 AND (events @> $2::jsonb OR events @> '["*"]'::jsonb)`, tenantID, string(match))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil {
			return nil, err
		}
		s.TenantID = tenantID
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	limit = clampLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	var last string
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil {
			return nil, "", err
		}
		s.TenantID = tenantID
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
		last = s.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Webhook deliveries
func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now(),$8)
        ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`, id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
		return err
	}
	if nextAttemptAt == nil {
		t := time.Now().Add(time.Minute)
		nextAttemptAt = &t
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
		id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	limit = clampLimit(limit)
	q := `SELECT id::text, event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url, COALESCE(response_code,0) FROM webhook_deliveries WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if cursor != "" {
		args = append(args, cursor)
		q += fmt.Sprintf(` AND id::text > $%d`, len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []map[string]any{}
	var last string
	for rows.Next() {
		var id, typ, st, lastErr, url string
		var attempts, code int
		var nextAt sql.NullTime
		if err := rows.Scan(&id, &typ, &st, &attempts, &nextAt, &lastErr, &url, &code); err != nil {
			return nil, "", err
		}
		m := map[string]any{"id": id, "eventType": typ, "status": st, "attempts": attempts, "url": url}
		if nextAt.Valid && st != DeliveryDelivered && st != DeliveryFailed {
			m["nextAttemptAt"] = nextAt.Time
		}
		if lastErr != "" {
			m["lastError"] = lastErr
		}
		if code != 0 {
			m["responseCode"] = code
		}
		out = append(out, m)
		last = id
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now(), updated_at=now() WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// computeDedupKey uses the payload's "id" when present, else a short hash.
func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
