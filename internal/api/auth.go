// Package api implements the HTTP surface of the CFLP planning service.
package api

import (
	"net/http"
	"strings"

	"cflp/internal/auth"
)

type Principal struct {
	Tenant string
	Role   string // admin, planner, viewer
}

// getPrincipal extracts tenant and role from a bearer token or headers.
// - A bearer token is checked by the configured verifier (dev/hmac).
// - Without one, dev and none modes fall back to X-Tenant-Id / X-Role.
// ok is false when the request carries no acceptable identity.
func (s *Server) getPrincipal(r *http.Request) (Principal, bool) {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil && s.Auth.Mode != "none" {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		pr, err := s.Auth.Verify(tok)
		if err != nil {
			return Principal{}, false
		}
		return Principal{Tenant: pr.Tenant, Role: pr.Role}, true
	}
	if s.Auth != nil && s.Auth.Mode == "hmac" {
		return Principal{}, false
	}
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = auth.RoleAdmin
	}
	return Principal{Tenant: tenant, Role: auth.NormalizeRole(role)}, true
}

// authorize writes 401/403 and returns false unless the caller holds min.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, min string) (Principal, bool) {
	p, ok := s.getPrincipal(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "valid bearer token required", r.URL.Path)
		return Principal{}, false
	}
	if !auth.Allows(p.Role, min) {
		writeProblem(w, http.StatusForbidden, "Forbidden", min+" role required", r.URL.Path)
		return Principal{}, false
	}
	return p, true
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == auth.RoleAdmin }
