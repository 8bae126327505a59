package api

import (
	"net/http"
	"time"

	"cflp/internal/auth"
	"cflp/internal/buildinfo"
)

// DebugJSON handles GET /debug/info. Secrets are reported only as present or not.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, auth.RoleAdmin); !ok {
		return
	}
	c := s.Config
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"port":                 c.Server.Port,
			"authMode":             c.Auth.Mode,
			"rateRps":              c.Server.RateRPS,
			"rateBurst":            c.Server.RateBurst,
			"webhookMaxAttempts":   c.Webhooks.MaxAttempts,
			"hasDatabaseUrl":       c.Database.URL != "",
			"hasRedisUrl":          c.Redis.URL != "",
			"metric":               c.Solver.Metric,
			"tiers":                c.Solver.Tiers,
			"utilizationThreshold": c.Solver.UtilizationThreshold,
			"improvePasses":        c.Solver.ImprovePasses,
			"logLevel":             c.Log.Level,
		},
	}
	writeJSON(w, http.StatusOK, info)
}
