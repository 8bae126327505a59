package store

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeDedupKeyFromID(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"x"}`)
	require.Equal(t, "evt_123", computeDedupKey(body))
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	body := []byte(`{"solveId":"x","type":"solve.completed"}`)
	got := computeDedupKey(body)
	// hex-encoded first 8 bytes -> 16 hex chars
	b, err := hex.DecodeString(got)
	require.NoError(t, err)
	require.Len(t, b, 8)
	require.Equal(t, got, computeDedupKey(body))
	require.NotEqual(t, got, computeDedupKey([]byte(`{"solveId":"y"}`)))
}

func TestNullIfEmpty(t *testing.T) {
	require.Nil(t, nullIfEmpty(""))
	require.Equal(t, "x", nullIfEmpty("x"))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(schema)
	require.NotEmpty(t, stmts)
	for _, s := range stmts {
		require.NotEmpty(t, s)
		require.True(t, strings.HasPrefix(s, "CREATE"), s)
	}
	require.Equal(t, []string{"SELECT 1", "SELECT 2"}, splitStatements(" SELECT 1; ;\nSELECT 2;\n"))
}
