package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cflp/internal/opt"
)

const pointsDoc = `{
  "numeric_points": [
    {"id": 1, "x": 0, "y": 0, "demand": 100},
    {"id": 2, "x": 3, "y": 4, "demand": "100"},
    {"id": 3, "x": 9, "y": 9}
  ],
  "alpha_points": [{"id": "A", "x": 0, "y": 0}]
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, Execute())
	return out.String()
}

func TestDemandCommand(t *testing.T) {
	out := run(t, "demand", writeFile(t, "points.json", pointsDoc))
	require.Contains(t, out, "Total demand: 200.00")
	require.Contains(t, out, "Points with demand: 2")
	require.Contains(t, out, "Points without demand: 1")
	require.Contains(t, out, "Candidate locations: 1")
}

func TestSolveCommandWritesSolution(t *testing.T) {
	points := writeFile(t, "points.json", pointsDoc)
	dst := filepath.Join(t.TempDir(), "out", "heuristic.json")
	out := run(t, "solve", "--format", "text", "--output", dst, points)
	require.Contains(t, out, "CFLP SOLUTION - HEURISTIC")
	require.Contains(t, out, "Objective value: 110500.00")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	var sol opt.Solution
	require.NoError(t, json.Unmarshal(data, &sol))
	require.Equal(t, opt.StatusHeuristic, sol.Status)
	require.Len(t, sol.Assignments, 3)
	require.Empty(t, sol.Assignments["3"])
	solveOutput = ""
}

func TestCompareCommand(t *testing.T) {
	exact := writeFile(t, "gurobi.json", `{"status":"optimal","objective_value":100000,"facilities_opened":[],
	  "assignments":{},"total_fixed_cost":90000,"total_variable_cost":10000,"processing_time":2.5,"gap":Infinity}`)
	heur := writeFile(t, "heuristic.json", `{"status":"heuristic","objective_value":110000,"facilities_opened":[],
	  "assignments":{},"processing_time":0.5,"gap":null,"solver_name":"heuristic"}`)
	out := run(t, "compare", exact, heur)
	require.Contains(t, out, "SOLVER COMPARISON")
	require.Contains(t, out, "Best solution: gurobi")

	out = run(t, "compare", "--format", "json", exact, heur)
	var c struct {
		Best string `json:"best"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	require.Equal(t, "gurobi", c.Best)
	compareFormat = "text"
}

func TestVersionCommand(t *testing.T) {
	require.Contains(t, run(t, "version"), "cflp version dev")
}
