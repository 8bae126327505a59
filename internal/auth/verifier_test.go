package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerify_DevToken(t *testing.T) {
	v := NewVerifier("", "")
	p, err := v.Verify("t1:Planner")
	require.NoError(t, err)
	require.Equal(t, Principal{Tenant: "t1", Role: RolePlanner}, p)

	_, err = v.Verify("t1")
	require.Error(t, err)
	p, err = v.Verify("t1:driver")
	require.NoError(t, err)
	require.Equal(t, RoleViewer, p.Role)
}

func TestVerify_HS256RoundTrip(t *testing.T) {
	v := NewVerifier("hmac", "s3cret")
	tok, err := v.SignHS256("t9", "admin", "alice", time.Hour)
	require.NoError(t, err)
	p, err := v.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, Principal{Tenant: "t9", Role: RoleAdmin, Subject: "alice"}, p)

	other := NewVerifier("hmac", "different")
	_, err = other.Verify(tok)
	require.ErrorIs(t, err, ErrBadSignature)

	_, err = v.Verify("a.b")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_HS256Expired(t *testing.T) {
	v := NewVerifier("hmac", "s3cret")
	tok, err := v.SignHS256("t9", "viewer", "", time.Minute)
	require.NoError(t, err)
	v.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = v.Verify(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_NoneModeRejectsTokens(t *testing.T) {
	_, err := NewVerifier("none", "").Verify("t1:admin")
	require.Error(t, err)
}

func TestAllows(t *testing.T) {
	require.True(t, Allows(RoleAdmin, RolePlanner))
	require.True(t, Allows(RolePlanner, RolePlanner))
	require.False(t, Allows(RoleViewer, RolePlanner))
	require.False(t, Allows("", RoleViewer))
}
