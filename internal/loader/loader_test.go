package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cflp/internal/opt"
)

func TestParsePoints(t *testing.T) {
	doc := []byte(`{
		"numeric_points": [
			{"id": "1", "x": 10, "y": 20, "demand": 30},
			{"id": 2, "x": 1, "y": 2, "demand": "12.5"},
			{"id": "3", "x": 0, "y": 0},
			{"id": "4", "x": 0, "y": 0, "demand": "lots"}
		],
		"alpha_points": [{"id": "C1", "x": 5, "y": 5}]
	}`)
	pts, err := ParsePoints(doc, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []opt.DemandPoint{
		{ID: "1", X: 10, Y: 20, Demand: 30},
		{ID: "2", X: 1, Y: 2, Demand: 12.5},
		{ID: "3"},
		{ID: "4"},
	}, pts.Demand)
	require.Equal(t, []opt.Location{{ID: "C1", X: 5, Y: 5}}, pts.Locations)
	require.Equal(t, DemandSummary{TotalDemand: 42.5, PointsWithDemand: 2, PointsWithoutDemand: 2}, pts.Summary)
}

func TestParsePoints_Errors(t *testing.T) {
	_, err := ParsePoints([]byte(`{"numeric_points": [`), nil)
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = ParsePoints([]byte(`{"alpha_points": [{"x": 1}]}`), nil)
	require.ErrorIs(t, err, ErrInvalidDocument)

	pts, err := ParsePoints([]byte(`{}`), nil)
	require.NoError(t, err)
	require.Empty(t, pts.Demand)
	require.Empty(t, pts.Locations)
}

func TestLoadPoints_MissingFile(t *testing.T) {
	_, err := LoadPoints(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSolution(t *testing.T) {
	dir := t.TempDir()
	gurobi := filepath.Join(dir, "gurobi.json")
	require.NoError(t, os.WriteFile(gurobi, []byte(`{
		"status": "optimal",
		"objective_value": 1234.5,
		"facilities_opened": [{"location": "C1", "type": "small", "coordinates": [1, 2], "fixed_cost": 1000}],
		"assignments": {"1": [{"facility": "C1", "fraction": 1, "assigned_demand": 30, "variable_cost": 234.5}]},
		"total_fixed_cost": 1000,
		"total_variable_cost": 234.5,
		"processing_time": 1.5,
		"gap": 0.0,
		"solver_name": "Gurobi"
	}`), 0o600))
	scip := filepath.Join(dir, "scip.json")
	require.NoError(t, os.WriteFile(scip, []byte(`{"status": "time_limit", "objective_value": 1300, "gap": Infinity}`), 0o600))

	sols, err := LoadSolutions([]string{gurobi, scip})
	require.NoError(t, err)
	require.Len(t, sols, 2)

	g := sols["Gurobi"]
	require.Equal(t, [2]float64{1, 2}, g.FacilitiesOpened[0].Coordinates)
	require.NotNil(t, g.Gap)
	require.Zero(t, *g.Gap)
	require.Equal(t, 30.0, g.Assignments["1"][0].AssignedDemand)

	s := sols["scip"]
	require.Equal(t, "time_limit", s.Status)
	require.Nil(t, s.Gap)
	require.NotNil(t, s.Assignments)
}
