package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cflp/internal/auth"
	"cflp/internal/model"
	"cflp/internal/opt"
	"cflp/internal/report"
	"cflp/internal/store"
)

// SolveHandler handles POST /v1/solve
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RolePlanner)
	if !ok {
		return
	}
	var req model.SolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	if req.TenantID != "" && req.TenantID != p.Tenant && !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "tenantId does not match caller", r.URL.Path)
		return
	}
	tenant := p.Tenant
	if req.TenantID != "" {
		tenant = req.TenantID
	}
	rec, err := s.runSolve(r.Context(), tenant, req)
	switch {
	case errors.Is(err, opt.ErrInvalidProblem):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid problem", err.Error(), r.URL.Path)
		return
	case err != nil:
		s.Log.Error("solve failed", zap.String("tenant", tenant), zap.Error(err))
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, model.SolveResponse{SolveID: rec.ID, Solution: rec.Solution, Metrics: rec.Metrics})
}

// SolvesIndexHandler handles GET /v1/solves
func (s *Server) SolvesIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleViewer)
	if !ok {
		return
	}
	q := r.URL.Query()
	items, next, err := s.Store.ListSolves(r.Context(), p.Tenant, q.Get("status"), q.Get("cursor"), queryLimit(r))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List solves failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// SolveByIDHandler handles GET /v1/solves/{id} and GET /v1/solves/{id}/report
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "report") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleViewer)
	if !ok {
		return
	}
	rec, err := s.Store.GetSolve(r.Context(), p.Tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Solve not found", id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get solve failed", err.Error(), r.URL.Path)
		return
	}
	if len(parts) == 2 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		report.WriteSolution(w, rec.Solution)
		return
	}
	if r.URL.Query().Get("manifests") == "true" && rec.Solution.Manifests == nil {
		rec.Solution.Manifests = opt.BuildManifests(rec.Solution)
	}
	writeJSON(w, http.StatusOK, rec)
}

// CompareHandler handles GET /v1/compare?ids=a,b[&format=text]
func (s *Server) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleViewer)
	if !ok {
		return
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeProblem(w, http.StatusBadRequest, "Missing ids", "ids query parameter is required", r.URL.Path)
		return
	}
	sols := make(map[string]opt.Solution, len(ids))
	for _, id := range ids {
		rec, err := s.Store.GetSolve(r.Context(), p.Tenant, id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Solve not found", id, r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get solve failed", err.Error(), r.URL.Path)
			return
		}
		sols[compareKey(rec, sols)] = rec.Solution
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		report.WriteComparison(w, sols)
		return
	}
	writeJSON(w, http.StatusOK, report.Compare(sols))
}

// compareKey labels rec by its name, falling back to the id on collisions.
func compareKey(rec model.SolveRecord, taken map[string]opt.Solution) string {
	key := rec.Name
	if key == "" {
		key = rec.Solution.SolverName
	}
	if _, dup := taken[key]; dup || key == "" {
		key = rec.ID
	}
	return key
}

// CatalogHandler handles GET /v1/catalog
func (s *Server) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleViewer)
	if !ok {
		return
	}
	eff, err := s.effectiveCatalog(r.Context(), p.Tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Catalog lookup failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"catalog": eff, "metric": s.Config.Solver.Metric})
}

// AdminCatalogHandler handles GET/PUT /v1/admin/catalog
func (s *Server) AdminCatalogHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetCatalogConfig(r.Context(), p.Tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Catalog lookup failed", err.Error(), r.URL.Path)
			return
		}
		if cfg == nil {
			cfg = &model.CatalogConfig{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config *model.CatalogConfig `json:"config"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if err := validateCatalogConfig(body.Config); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid catalog", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveCatalogConfig(r.Context(), p.Tenant, *body.Config); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSubscription(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		req.TenantID = p.Tenant
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, r.URL.Query().Get("cursor"), queryLimit(r))
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		for i := range items {
			items[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Subscription not found", id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler handles GET /v1/admin/webhook-deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	q := r.URL.Query()
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, q.Get("status"), q.Get("cursor"), queryLimit(r))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// WebhookDeliveryRetryHandler handles POST /v1/admin/webhook-deliveries/{id}/retry
func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || action != "retry" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Delivery not found", id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Retry failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": store.DeliveryPending})
}

// SolveMetricsHandler handles GET /v1/admin/solve-metrics?solveId=
func (s *Server) SolveMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	id := r.URL.Query().Get("solveId")
	if id == "" {
		writeProblem(w, http.StatusBadRequest, "Missing solveId", "", r.URL.Path)
		return
	}
	items, err := s.Store.ListSolveMetrics(r.Context(), p.Tenant, id)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List metrics failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"solveId": id, "items": items})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
