package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cflp/internal/opt"
)

// nonFinite matches the Infinity/NaN literals some solver dumps emit for an
// unbounded gap.
var nonFinite = regexp.MustCompile(`(:\s*)-?(Infinity|NaN)(\s*[,}\]])`)

// LoadSolution reads a solver result in the shared solution shape. Non-finite
// numbers load as null.
func LoadSolution(path string) (opt.Solution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return opt.Solution{}, err
	}
	data = nonFinite.ReplaceAll(data, []byte("${1}null${3}"))
	var sol opt.Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return opt.Solution{}, fmt.Errorf("%s: %w", path, err)
	}
	if sol.SolverName == "" {
		sol.SolverName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if sol.Assignments == nil {
		sol.Assignments = map[string][]opt.AssignmentEntry{}
	}
	return sol, nil
}

// LoadSolutions loads every path keyed by solver name. A later file with the
// same solver name replaces an earlier one.
func LoadSolutions(paths []string) (map[string]opt.Solution, error) {
	out := make(map[string]opt.Solution, len(paths))
	for _, p := range paths {
		sol, err := LoadSolution(p)
		if err != nil {
			return nil, err
		}
		out[sol.SolverName] = sol
	}
	return out, nil
}
