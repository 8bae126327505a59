package opt

import (
	"time"

	"go.uber.org/zap"
)

// Stage names the solver state machine.
type Stage string

const (
	StageRanking      Stage = "ranking"
	StageConstructing Stage = "constructing"
	StageClosing      Stage = "closing"
	StageImproving    Stage = "improving"
	StageAssembled    Stage = "assembled"
	StageInfeasible   Stage = "infeasible"
)

// DefaultUtilizationThreshold is the load fraction below which an open
// facility becomes a removal candidate.
const DefaultUtilizationThreshold = 0.30

// Options tunes a solve. The zero value runs the reference behavior.
type Options struct {
	UtilizationThreshold float64 // 0 means DefaultUtilizationThreshold
	ImprovePasses        int     // 0 means a single pass
	SolverName           string  // "" means "heuristic"
	Logger               *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.UtilizationThreshold <= 0 {
		o.UtilizationThreshold = DefaultUtilizationThreshold
	}
	if o.ImprovePasses <= 0 {
		o.ImprovePasses = 1
	}
	if o.SolverName == "" {
		o.SolverName = "heuristic"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Metrics describes how a solve went.
type Metrics struct {
	Stages             []Stage `json:"stages"`
	Options            int     `json:"options"`
	Opened             int     `json:"opened"`
	ClosedOpened       int     `json:"closedOpened"`
	Upgraded           int     `json:"upgraded"`
	Removed            int     `json:"removed"`
	FixedCostBefore    float64 `json:"fixedCostBefore"`
	FixedCostAfter     float64 `json:"fixedCostAfter"`
	TotalDemand        float64 `json:"totalDemand"`
	CatalogCapacity    float64 `json:"catalogCapacity"`
	DurationMs         float64 `json:"durationMs"`
	UtilizationCutoff  float64 `json:"utilizationCutoff"`
	ImprovePassesLimit int     `json:"improvePassesLimit"`
}

// Solve runs rank, construct, close, improve and assemble on p. Invalid input
// is the only error; a catalog too small for the demand yields a Solution
// with StatusInfeasible.
func Solve(p Problem, opts Options) (Solution, Metrics, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("solver", opts.SolverName))
	if err := p.Validate(); err != nil {
		return Solution{}, Metrics{}, err
	}
	start := time.Now()
	m := Metrics{
		TotalDemand:        p.TotalDemand(),
		CatalogCapacity:    p.CatalogCapacity(),
		UtilizationCutoff:  opts.UtilizationThreshold,
		ImprovePassesLimit: opts.ImprovePasses,
	}
	finish := func(sol Solution, final Stage) (Solution, Metrics, error) {
		m.Stages = append(m.Stages, final)
		elapsed := time.Since(start)
		m.DurationMs = float64(elapsed.Microseconds()) / 1000
		sol.ProcessingTime = elapsed.Seconds()
		log.Info("solve finished",
			zap.String("status", sol.Status),
			zap.Float64("objective", sol.ObjectiveValue),
			zap.Int("facilities", len(sol.FacilitiesOpened)),
			zap.Int("removed", m.Removed),
			zap.Duration("elapsed", elapsed))
		return sol, m, nil
	}

	if m.CatalogCapacity+eps < m.TotalDemand {
		log.Debug("catalog capacity below demand",
			zap.Float64("capacity", m.CatalogCapacity), zap.Float64("demand", m.TotalDemand))
		return finish(infeasibleSolution(opts.SolverName), StageInfeasible)
	}

	m.Stages = append(m.Stages, StageRanking)
	ranked := RankOptions(p)
	m.Options = len(ranked)
	log.Debug("ranked options", zap.Int("options", len(ranked)))

	s := newState(p)
	m.Stages = append(m.Stages, StageConstructing)
	m.Opened = s.construct(ranked)
	log.Debug("constructed", zap.Int("opened", m.Opened), zap.Float64("unmet", s.demand.total()))

	if !s.demand.done() {
		m.Stages = append(m.Stages, StageClosing)
		m.ClosedOpened, m.Upgraded = s.closeGap(ranked)
		log.Debug("closed gap", zap.Int("opened", m.ClosedOpened), zap.Int("upgraded", m.Upgraded))
		if !s.demand.done() {
			panic("opt: demand left after closing despite sufficient catalog capacity")
		}
	}

	m.Stages = append(m.Stages, StageImproving)
	m.FixedCostBefore = s.fixedCost()
	m.Removed = s.improve(opts.UtilizationThreshold, opts.ImprovePasses)
	m.FixedCostAfter = s.fixedCost()
	log.Debug("improved", zap.Int("removed", m.Removed),
		zap.Float64("fixedBefore", m.FixedCostBefore), zap.Float64("fixedAfter", m.FixedCostAfter))

	return finish(s.assemble(opts.SolverName), StageAssembled)
}
