package geo

import (
	"context"
	"time"

	"github.com/loopline/thriftscout/internal/model"
)

// MatrixCellStatus reports the outcome of a single origin-destination cell.
// Cell-level failures never fail the whole matrix call.
type MatrixCellStatus string

const (
	MatrixCellOK     MatrixCellStatus = "ok"
	MatrixCellFailed MatrixCellStatus = "failed"
)

// MatrixCell is one origin-destination entry of a distance matrix.
type MatrixCell struct {
	DistanceMeters float64          `json:"distance_m"`
	Duration       time.Duration    `json:"duration"`
	Status         MatrixCellStatus `json:"status"`
	Error          string           `json:"error,omitempty"`
}

// MatrixProvider computes a pairwise distance/duration grid. Implementations
// backed by an external directions API should mark individual failed cells
// rather than returning an error for partial failures.
type MatrixProvider interface {
	DistanceMatrix(ctx context.Context, origins, destinations []model.LatLng) ([][]MatrixCell, error)
}

// HaversineMatrix is a MatrixProvider that derives every cell from
// great-circle distance and an assumed travel speed. It never fails a cell.
type HaversineMatrix struct {
	Mode TravelMode
}

// DistanceMatrix implements MatrixProvider.
func (m *HaversineMatrix) DistanceMatrix(ctx context.Context, origins, destinations []model.LatLng) ([][]MatrixCell, error) {
	speed := m.Mode.Speed()

	grid := make([][]MatrixCell, len(origins))
	for i, o := range origins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]MatrixCell, len(destinations))
		for j, d := range destinations {
			dist := Distance(o, d)
			row[j] = MatrixCell{
				DistanceMeters: dist,
				Duration:       time.Duration(dist / speed * float64(time.Second)),
				Status:         MatrixCellOK,
			}
		}
		grid[i] = row
	}

	return grid, nil
}
