package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cflp/internal/metrics"
	"cflp/internal/model"
	"cflp/internal/opt"
)

// effectiveCatalog layers the tenant override over the service defaults.
func (s *Server) effectiveCatalog(ctx context.Context, tenant string) (model.CatalogConfig, error) {
	def := s.Config.Solver
	eff := model.CatalogConfig{
		Tiers:                def.Tiers,
		DistanceCostFactor:   def.DistanceCostFactor,
		UtilizationThreshold: def.UtilizationThreshold,
		ImprovePasses:        def.ImprovePasses,
	}
	over, err := s.Store.GetCatalogConfig(ctx, tenant)
	if err != nil {
		return model.CatalogConfig{}, err
	}
	if over != nil {
		eff = mergeCatalog(eff, *over)
	}
	return eff, nil
}

// mergeCatalog returns base with every set field of over applied.
func mergeCatalog(base, over model.CatalogConfig) model.CatalogConfig {
	if len(over.Tiers) > 0 {
		base.Tiers = over.Tiers
	}
	if over.DistanceCostFactor > 0 {
		base.DistanceCostFactor = over.DistanceCostFactor
	}
	if over.UtilizationThreshold > 0 {
		base.UtilizationThreshold = over.UtilizationThreshold
	}
	if over.ImprovePasses > 0 {
		base.ImprovePasses = over.ImprovePasses
	}
	return base
}

// buildProblem resolves req against the tenant catalog into a solver input.
func (s *Server) buildProblem(ctx context.Context, tenant string, req model.SolveRequest) (opt.Problem, opt.Options, error) {
	eff, err := s.effectiveCatalog(ctx, tenant)
	if err != nil {
		return opt.Problem{}, opt.Options{}, err
	}
	eff = mergeCatalog(eff, model.CatalogConfig{
		Tiers:                req.Tiers,
		DistanceCostFactor:   req.DistanceCostFactor,
		UtilizationThreshold: req.UtilizationThreshold,
		ImprovePasses:        req.ImprovePasses,
	})
	p := opt.Problem{
		Demand:             req.DemandPoints,
		Locations:          req.FacilityLocations,
		Tiers:              eff.Tiers,
		DistanceCostFactor: eff.DistanceCostFactor,
	}
	if len(req.DistanceMatrix) > 0 {
		p.Distances = opt.Matrix(req.DistanceMatrix)
	} else {
		metric := req.Metric
		if metric == "" {
			metric = s.Config.Solver.Metric
		}
		m, err := opt.MatrixFor(metric, req.DemandPoints, req.FacilityLocations)
		if err != nil {
			return opt.Problem{}, opt.Options{}, err
		}
		p.Distances = m
	}
	opts := opt.Options{
		UtilizationThreshold: eff.UtilizationThreshold,
		ImprovePasses:        eff.ImprovePasses,
		SolverName:           s.Config.Solver.SolverName,
		Logger:               s.Log.Named("opt"),
	}
	return p, opts, nil
}

// runSolve solves req, persists the result and publishes the outcome.
func (s *Server) runSolve(ctx context.Context, tenant string, req model.SolveRequest) (model.SolveRecord, error) {
	req.TenantID = tenant
	p, opts, err := s.buildProblem(ctx, tenant, req)
	if err != nil {
		return model.SolveRecord{}, err
	}
	sol, mx, err := opt.Solve(p, opts)
	if err != nil {
		return model.SolveRecord{}, err
	}
	rec, err := s.Store.SaveSolve(ctx, model.SolveRecord{
		TenantID:  tenant,
		Name:      req.Name,
		Status:    sol.Status,
		Objective: sol.ObjectiveValue,
		Request:   req,
		Solution:  sol,
		Metrics:   mx,
	})
	if err != nil {
		return model.SolveRecord{}, err
	}
	if err := s.Store.SaveSolveMetrics(ctx, tenant, rec.ID, sol.SolverName, mx); err != nil {
		s.Log.Warn("save solve metrics", zap.String("solve", rec.ID), zap.Error(err))
	}

	metrics.Solves.WithLabelValues(sol.SolverName, sol.Status).Inc()
	metrics.SolveDuration.WithLabelValues(sol.SolverName).Observe(sol.ProcessingTime)
	if sol.Status != opt.StatusInfeasible {
		metrics.FacilitiesOpened.Observe(float64(len(sol.FacilitiesOpened)))
		metrics.FacilitiesRemoved.Add(float64(mx.Removed))
	}

	ev := model.SolveEvent{
		Type:      model.EventSolveCompleted,
		SolveID:   rec.ID,
		TenantID:  tenant,
		Status:    sol.Status,
		Objective: sol.ObjectiveValue,
		TS:        time.Now().UTC(),
	}
	if sol.Status == opt.StatusInfeasible {
		ev.Type = model.EventSolveInfeasible
	}
	s.Broker.Publish(tenant, SSEEvent{Type: ev.Type, Data: map[string]any{
		"solveId":    ev.SolveID,
		"status":     ev.Status,
		"objective":  ev.Objective,
		"facilities": len(sol.FacilitiesOpened),
		"ts":         ev.TS.Format(time.RFC3339),
	}})
	s.Pub.Emit(ctx, ev)
	return rec, nil
}
