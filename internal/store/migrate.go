package store

import (
	"context"
	"fmt"
	"strings"
)

// schema is applied statement by statement; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS solves (
  id uuid PRIMARY KEY,
  tenant_id text NOT NULL,
  name text,
  status text NOT NULL,
  objective double precision NOT NULL DEFAULT 0,
  facilities integer NOT NULL DEFAULT 0,
  points integer NOT NULL DEFAULT 0,
  request jsonb NOT NULL,
  solution jsonb NOT NULL,
  metrics jsonb NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS solves_tenant_status_idx ON solves (tenant_id, status);
CREATE TABLE IF NOT EXISTS solve_metrics (
  id uuid PRIMARY KEY,
  tenant_id text NOT NULL,
  solve_id text NOT NULL,
  solver text NOT NULL,
  stages jsonb NOT NULL DEFAULT '[]'::jsonb,
  options integer NOT NULL DEFAULT 0,
  opened integer NOT NULL DEFAULT 0,
  closed_opened integer NOT NULL DEFAULT 0,
  upgraded integer NOT NULL DEFAULT 0,
  removed integer NOT NULL DEFAULT 0,
  fixed_cost_before double precision NOT NULL DEFAULT 0,
  fixed_cost_after double precision NOT NULL DEFAULT 0,
  duration_ms double precision NOT NULL DEFAULT 0,
  created_at timestamptz NOT NULL DEFAULT now(),
  UNIQUE (tenant_id, solve_id, solver)
);
CREATE TABLE IF NOT EXISTS catalog_config (
  tenant_id text PRIMARY KEY,
  config jsonb NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS subscriptions (
  id uuid PRIMARY KEY,
  tenant_id text NOT NULL,
  url text NOT NULL,
  events jsonb NOT NULL DEFAULT '[]'::jsonb,
  secret text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS webhook_deliveries (
  id uuid PRIMARY KEY,
  tenant_id text NOT NULL,
  subscription_id uuid,
  event_type text NOT NULL,
  url text NOT NULL,
  secret text,
  payload bytea NOT NULL,
  status text NOT NULL,
  attempts integer NOT NULL DEFAULT 0,
  next_attempt_at timestamptz,
  last_error text,
  response_code integer,
  latency_ms integer,
  delivered_at timestamptz,
  dedup_key text NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now(),
  UNIQUE (tenant_id, event_type, url, dedup_key)
);
CREATE INDEX IF NOT EXISTS webhook_deliveries_due_idx ON webhook_deliveries (status, next_attempt_at);
`

// Migrate creates the tables the store needs.
func (p *Postgres) Migrate(ctx context.Context) error {
	for i, stmt := range splitStatements(schema) {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

func splitStatements(sql string) []string {
	var out []string
	for _, s := range strings.Split(sql, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
