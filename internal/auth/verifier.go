// Package auth provides bearer token verification helpers.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Roles, from most to least privileged.
const (
	RoleAdmin   = "admin"
	RolePlanner = "planner"
	RoleViewer  = "viewer"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrBadSignature = errors.New("bad signature")
	ErrExpired      = errors.New("token expired")
)

// Verifier validates bearer tokens and extracts tenant/role claims.
// Supports modes: dev (token is "tenant:role"), hmac (HS256 JWT) and none
// (bearer tokens are ignored).
type Verifier struct {
	Mode        string
	HMACSecret  []byte
	TenantClaim string
	RoleClaim   string
	now         func() time.Time
}

type Principal struct {
	Tenant  string
	Role    string
	Subject string
}

func NewVerifier(mode, secret string) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{
		Mode:        mode,
		HMACSecret:  []byte(secret),
		TenantClaim: "tenant",
		RoleClaim:   "role",
		now:         time.Now,
	}
}

func (v *Verifier) Verify(token string) (Principal, error) {
	switch v.Mode {
	case "dev":
		// token format: tenant:role
		tenant, role, ok := strings.Cut(token, ":")
		if !ok || tenant == "" || role == "" {
			return Principal{}, errors.New("invalid dev token; expected tenant:role")
		}
		return Principal{Tenant: tenant, Role: NormalizeRole(role)}, nil
	case "hmac":
		return v.verifyHS256(token)
	default:
		return Principal{}, errors.New("unsupported auth mode")
	}
}

func (v *Verifier) verifyHS256(token string) (Principal, error) {
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, ErrInvalidToken
	}
	var hdr struct {
		Alg string `json:"alg"`
	}
	if err := decodeSegment(segs[0], &hdr); err != nil {
		return Principal{}, err
	}
	if hdr.Alg != "HS256" {
		return Principal{}, errors.New("unsupported alg for hmac")
	}
	sig, err := base64.RawURLEncoding.DecodeString(segs[2])
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if !hmac.Equal(v.mac(segs[0]+"."+segs[1]), sig) {
		return Principal{}, ErrBadSignature
	}
	var claims map[string]any
	if err := decodeSegment(segs[1], &claims); err != nil {
		return Principal{}, err
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() >= int64(exp) {
		return Principal{}, ErrExpired
	}
	tenant, _ := claims[v.TenantClaim].(string)
	role, _ := claims[v.RoleClaim].(string)
	sub, _ := claims["sub"].(string)
	if tenant == "" {
		return Principal{}, errors.New("missing tenant claim")
	}
	return Principal{Tenant: tenant, Role: NormalizeRole(role), Subject: sub}, nil
}

// SignHS256 issues a token the hmac mode accepts. A zero ttl omits exp.
func (v *Verifier) SignHS256(tenant, role, subject string, ttl time.Duration) (string, error) {
	claims := map[string]any{v.TenantClaim: tenant, v.RoleClaim: role}
	if subject != "" {
		claims["sub"] = subject
	}
	if ttl > 0 {
		claims["exp"] = v.now().Add(ttl).Unix()
	}
	hdr, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	input := base64.RawURLEncoding.EncodeToString(hdr) + "." + base64.RawURLEncoding.EncodeToString(body)
	return input + "." + base64.RawURLEncoding.EncodeToString(v.mac(input)), nil
}

func (v *Verifier) mac(input string) []byte {
	m := hmac.New(sha256.New, v.HMACSecret)
	m.Write([]byte(input))
	return m.Sum(nil)
}

func decodeSegment(seg string, dst any) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return ErrInvalidToken
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// NormalizeRole lowercases role and maps unknown roles to viewer.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleAdmin, RolePlanner, RoleViewer:
		return r
	default:
		return RoleViewer
	}
}

// Allows reports whether role meets the minimum role.
func Allows(role, min string) bool {
	return rank(role) >= rank(min)
}

func rank(role string) int {
	switch role {
	case RoleAdmin:
		return 3
	case RolePlanner:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}
