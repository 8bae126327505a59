package opt

import (
	"fmt"
	"math"
)

// DistanceOracle answers distance(demand point i, location j). It must be
// total, non-negative and stable for the duration of a solve.
type DistanceOracle interface {
	Distance(demand, location int) float64
}

// Matrix is a precomputed oracle: rows are demand points, columns locations.
type Matrix [][]float64

// Distance implements DistanceOracle.
func (m Matrix) Distance(demand, location int) float64 { return m[demand][location] }

func (m Matrix) checkShape(rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%w: distance matrix has %d rows, want %d", ErrInvalidProblem, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%w: distance matrix row %d has %d columns, want %d", ErrInvalidProblem, i, len(row), cols)
		}
		for j, d := range row {
			if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
				return fmt.Errorf("%w: distance[%d][%d] = %v", ErrInvalidProblem, i, j, d)
			}
		}
	}
	return nil
}

// EuclideanMatrix computes planar distances between point and location coordinates.
func EuclideanMatrix(points []DemandPoint, locs []Location) Matrix {
	m := make(Matrix, len(points))
	for i, p := range points {
		m[i] = make([]float64, len(locs))
		for j, l := range locs {
			m[i][j] = math.Hypot(p.X-l.X, p.Y-l.Y)
		}
	}
	return m
}

// HaversineMatrix treats X as longitude and Y as latitude (degrees) and
// returns great-circle distances in meters.
func HaversineMatrix(points []DemandPoint, locs []Location) Matrix {
	m := make(Matrix, len(points))
	for i, p := range points {
		m[i] = make([]float64, len(locs))
		for j, l := range locs {
			m[i][j] = haversineMeters(p.Y, p.X, l.Y, l.X)
		}
	}
	return m
}

// MatrixFor builds a matrix with the named metric ("euclidean" or "haversine").
func MatrixFor(metric string, points []DemandPoint, locs []Location) (Matrix, error) {
	switch metric {
	case "", "euclidean":
		return EuclideanMatrix(points, locs), nil
	case "haversine":
		return HaversineMatrix(points, locs), nil
	default:
		return nil, fmt.Errorf("%w: unknown distance metric %q", ErrInvalidProblem, metric)
	}
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
