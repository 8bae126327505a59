package api

import (
	"fmt"
	"math"
	"net/url"

	"cflp/internal/model"
)

const maxSolveSize = 5_000_000 // points x locations

func validateSolveRequest(req *model.SolveRequest) error {
	if req.Metric != "" && req.Metric != "euclidean" && req.Metric != "haversine" {
		return fmt.Errorf("invalid metric: %s", req.Metric)
	}
	if req.DistanceCostFactor < 0 || math.IsNaN(req.DistanceCostFactor) {
		return fmt.Errorf("distanceCostFactor must be > 0")
	}
	if t := req.UtilizationThreshold; t < 0 || t >= 1 || math.IsNaN(t) {
		return fmt.Errorf("utilizationThreshold must be in [0,1)")
	}
	if req.ImprovePasses < 0 {
		return fmt.Errorf("improvePasses must be >= 0")
	}
	if n := len(req.DemandPoints) * len(req.FacilityLocations); n > maxSolveSize {
		return fmt.Errorf("instance too large: %d point-location pairs (max %d)", n, maxSolveSize)
	}
	if len(req.DistanceMatrix) > 0 {
		if req.Metric != "" {
			return fmt.Errorf("distanceMatrix and metric are mutually exclusive")
		}
		if len(req.DistanceMatrix) != len(req.DemandPoints) {
			return fmt.Errorf("distanceMatrix must have one row per demand point")
		}
		for i, row := range req.DistanceMatrix {
			if len(row) != len(req.FacilityLocations) {
				return fmt.Errorf("distanceMatrix row %d must have one entry per location", i)
			}
		}
	}
	return nil
}

func validateSubscription(req *model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	for _, e := range req.Events {
		switch e {
		case model.EventSolveCompleted, model.EventSolveInfeasible, "*":
		default:
			return fmt.Errorf("unknown event type: %s", e)
		}
	}
	return nil
}

func validateCatalogConfig(cfg *model.CatalogConfig) error {
	if err := cfg.Tiers.Validate(); err != nil {
		return err
	}
	if cfg.DistanceCostFactor < 0 {
		return fmt.Errorf("distanceCostFactor must be > 0")
	}
	if t := cfg.UtilizationThreshold; t < 0 || t >= 1 {
		return fmt.Errorf("utilizationThreshold must be in [0,1)")
	}
	if cfg.ImprovePasses < 0 {
		return fmt.Errorf("improvePasses must be >= 0")
	}
	return nil
}
