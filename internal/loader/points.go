// Package loader reads map point documents and stored solver results.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"

	"cflp/internal/opt"
)

var ErrInvalidDocument = errors.New("invalid points document")

// Document is the map points file: numeric points carry demand, alpha points
// are candidate facility sites.
type Document struct {
	NumericPoints []rawPoint `json:"numeric_points"`
	AlphaPoints   []rawPoint `json:"alpha_points"`
}

type rawPoint struct {
	ID     json.RawMessage `json:"id"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Demand json.RawMessage `json:"demand,omitempty"`
}

// DemandSummary counts points by whether they carry a usable demand value.
type DemandSummary struct {
	TotalDemand         float64 `json:"totalDemand"`
	PointsWithDemand    int     `json:"pointsWithDemand"`
	PointsWithoutDemand int     `json:"pointsWithoutDemand"`
}

// Points is a parsed document.
type Points struct {
	Demand    []opt.DemandPoint
	Locations []opt.Location
	Summary   DemandSummary
}

// LoadPoints reads a points document from path. Numeric points without a
// usable demand are kept with demand 0 and counted in the summary.
func LoadPoints(path string, log *zap.Logger) (Points, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Points{}, fmt.Errorf("points file not found: %s: %w", path, err)
		}
		return Points{}, err
	}
	pts, err := ParsePoints(data, log)
	if err != nil {
		return Points{}, fmt.Errorf("%s: %w", path, err)
	}
	if log != nil {
		log.Info("loaded points",
			zap.String("path", path),
			zap.Int("demandPoints", len(pts.Demand)),
			zap.Int("locations", len(pts.Locations)))
	}
	return pts, nil
}

func ParsePoints(data []byte, log *zap.Logger) (Points, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Points{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	out := Points{
		Demand:    make([]opt.DemandPoint, 0, len(doc.NumericPoints)),
		Locations: make([]opt.Location, 0, len(doc.AlphaPoints)),
	}
	for i, rp := range doc.NumericPoints {
		id, err := pointID(rp.ID)
		if err != nil {
			return Points{}, fmt.Errorf("%w: numeric point %d: %v", ErrInvalidDocument, i, err)
		}
		d, ok := demandValue(rp.Demand)
		switch {
		case ok:
			out.Summary.TotalDemand += d
			out.Summary.PointsWithDemand++
		case len(rp.Demand) == 0:
			out.Summary.PointsWithoutDemand++
			log.Debug("point has no demand field", zap.String("id", id))
		default:
			out.Summary.PointsWithoutDemand++
			log.Warn("invalid demand value", zap.String("id", id), zap.ByteString("demand", rp.Demand))
		}
		out.Demand = append(out.Demand, opt.DemandPoint{ID: id, X: rp.X, Y: rp.Y, Demand: d})
	}
	for i, rp := range doc.AlphaPoints {
		id, err := pointID(rp.ID)
		if err != nil {
			return Points{}, fmt.Errorf("%w: alpha point %d: %v", ErrInvalidDocument, i, err)
		}
		out.Locations = append(out.Locations, opt.Location{ID: id, X: rp.X, Y: rp.Y})
	}
	return out, nil
}

// pointID accepts string or numeric ids.
func pointID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("missing id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id %s: %v", raw, err)
	}
	return n.String(), nil
}

// demandValue parses a JSON number or numeric string. Negative values are
// rejected.
func demandValue(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, false
		}
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
