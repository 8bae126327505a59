package model

import (
	"time"

	"cflp/internal/opt"
)

// SolveRequest is the body of POST /v1/solve. Unset optional fields fall
// back to the tenant catalog and then to the service config.
type SolveRequest struct {
	TenantID             string            `json:"tenantId"`
	Name                 string            `json:"name,omitempty"`
	DemandPoints         []opt.DemandPoint `json:"demandPoints"`
	FacilityLocations    []opt.Location    `json:"facilityLocations"`
	DistanceMatrix       [][]float64       `json:"distanceMatrix,omitempty"`
	Metric               string            `json:"metric,omitempty"` // euclidean, haversine
	Tiers                opt.Catalog       `json:"tiers,omitempty"`
	DistanceCostFactor   float64           `json:"distanceCostFactor,omitempty"`
	UtilizationThreshold float64           `json:"utilizationThreshold,omitempty"`
	ImprovePasses        int               `json:"improvePasses,omitempty"`
}

// SolveRecord is a persisted solve with its input and result.
type SolveRecord struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenantId"`
	Name      string       `json:"name,omitempty"`
	Status    string       `json:"status"`
	Objective float64      `json:"objective"`
	Request   SolveRequest `json:"request"`
	Solution  opt.Solution `json:"solution"`
	Metrics   opt.Metrics  `json:"metrics"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SolveSummary is the list view of a SolveRecord.
type SolveSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Status     string    `json:"status"`
	Objective  float64   `json:"objective"`
	Facilities int       `json:"facilities"`
	Points     int       `json:"points"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (r SolveRecord) Summary() SolveSummary {
	return SolveSummary{
		ID:         r.ID,
		Name:       r.Name,
		Status:     r.Status,
		Objective:  r.Objective,
		Facilities: len(r.Solution.FacilitiesOpened),
		Points:     len(r.Request.DemandPoints),
		CreatedAt:  r.CreatedAt,
	}
}

type SolveResponse struct {
	SolveID  string       `json:"solveId"`
	Solution opt.Solution `json:"solution"`
	Metrics  opt.Metrics  `json:"metrics"`
}

// CatalogConfig is a tenant override of the tier catalog and solver defaults.
type CatalogConfig struct {
	Tiers                opt.Catalog `json:"tiers"`
	DistanceCostFactor   float64     `json:"distanceCostFactor,omitempty"`
	UtilizationThreshold float64     `json:"utilizationThreshold,omitempty"`
	ImprovePasses        int         `json:"improvePasses,omitempty"`
}

// SolveEvent is published to the broker and to webhook subscribers.
type SolveEvent struct {
	Type      string    `json:"type"` // solve.completed, solve.infeasible
	SolveID   string    `json:"solveId"`
	TenantID  string    `json:"tenantId"`
	Status    string    `json:"status"`
	Objective float64   `json:"objective"`
	TS        time.Time `json:"ts"`
}

const (
	EventSolveCompleted  = "solve.completed"
	EventSolveInfeasible = "solve.infeasible"
)

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
