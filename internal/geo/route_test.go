package geo

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopline/thriftscout/internal/model"
)

func TestOptimizeRoute_NoWaypoints(t *testing.T) {
	_, err := OptimizeRoute(saoPaulo, nil, nil, TravelModeDriving)
	assert.Error(t, err)
}

func TestOptimizeRoute_SingleWaypoint(t *testing.T) {
	wp := []model.LatLng{{Lat: -23.56, Lng: -46.64}}

	route, err := OptimizeRoute(saoPaulo, wp, nil, TravelModeDriving)
	require.NoError(t, err)

	assert.Equal(t, []int{0}, route.Order)
	assert.True(t, route.Optimal)
	require.Len(t, route.Legs, 1)
	assert.InDelta(t, Distance(saoPaulo, wp[0]), route.DistanceMeters, 1e-9)
}

func TestOptimizeRoute_ExhaustiveMatchesBruteForceOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(21))

	for trial := 0; trial < 25; trial++ {
		n := 2 + rng.Intn(5) // 2..6 waypoints
		start := jitter(rng, saoPaulo)
		waypoints := make([]model.LatLng, n)
		for i := range waypoints {
			waypoints[i] = jitter(rng, saoPaulo)
		}

		route, err := OptimizeRoute(start, waypoints, nil, TravelModeDriving)
		require.NoError(t, err)
		assert.True(t, route.Optimal)

		// Oracle: evaluate every permutation independently.
		best := bruteForceMin(start, waypoints)
		assert.InDelta(t, best, route.DistanceMeters, 1e-6)
	}
}

func TestOptimizeRoute_WithEndpoint(t *testing.T) {
	end := model.LatLng{Lat: -23.60, Lng: -46.70}
	waypoints := []model.LatLng{
		{Lat: -23.56, Lng: -46.64},
		{Lat: -23.52, Lng: -46.60},
	}

	route, err := OptimizeRoute(saoPaulo, waypoints, &end, TravelModeDriving)
	require.NoError(t, err)
	require.Len(t, route.Legs, 3)
	assert.Equal(t, end, route.Legs[2].To)
}

func TestOptimizeRoute_HeuristicReturnsCompletePermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	waypoints := make([]model.LatLng, ExhaustiveWaypointLimit+4)
	for i := range waypoints {
		waypoints[i] = jitter(rng, saoPaulo)
	}

	route, err := OptimizeRoute(saoPaulo, waypoints, nil, TravelModeDriving)
	require.NoError(t, err)

	assert.False(t, route.Optimal)
	require.Len(t, route.Order, len(waypoints))

	seen := make(map[int]bool)
	for _, i := range route.Order {
		assert.False(t, seen[i], "waypoint %d visited twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(waypoints))
}

func TestOptimizeRoute_DurationFromSpeed(t *testing.T) {
	wp := []model.LatLng{{Lat: -23.56, Lng: -46.64}}

	driving, err := OptimizeRoute(saoPaulo, wp, nil, TravelModeDriving)
	require.NoError(t, err)
	walking, err := OptimizeRoute(saoPaulo, wp, nil, TravelModeWalking)
	require.NoError(t, err)

	// Same distance; walking is about ten times slower at 1.4 vs 13.89 m/s.
	assert.InDelta(t, driving.DistanceMeters, walking.DistanceMeters, 1e-9)
	assert.Greater(t, walking.Duration, driving.Duration)

	wantSecs := driving.DistanceMeters / 13.89
	assert.InDelta(t, wantSecs, driving.Duration.Seconds(), 1)
}

func TestHaversineMatrix(t *testing.T) {
	m := &HaversineMatrix{Mode: TravelModeDriving}

	origins := []model.LatLng{saoPaulo, rio}
	dests := []model.LatLng{saoPaulo}

	grid, err := m.DistanceMatrix(context.Background(), origins, dests)
	require.NoError(t, err)
	require.Len(t, grid, 2)
	require.Len(t, grid[0], 1)

	assert.Equal(t, MatrixCellOK, grid[0][0].Status)
	assert.Zero(t, grid[0][0].DistanceMeters)
	assert.Equal(t, MatrixCellOK, grid[1][0].Status)
	assert.InDelta(t, Distance(rio, saoPaulo), grid[1][0].DistanceMeters, 1e-9)
	assert.Greater(t, grid[1][0].Duration, time.Duration(0))
}

func TestSequentialRoutePreservesOrder(t *testing.T) {
	start := model.LatLng{Lat: -22.90, Lng: -43.20}
	waypoints := []model.LatLng{
		{Lat: -22.95, Lng: -43.20},
		{Lat: -22.91, Lng: -43.20},
		{Lat: -22.99, Lng: -43.20},
	}

	route, err := SequentialRoute(start, waypoints, nil, TravelModeDriving)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, route.Order)
	assert.False(t, route.Optimal)
	assert.Len(t, route.Legs, 3)

	_, err = SequentialRoute(start, nil, nil, TravelModeDriving)
	assert.Error(t, err)
}

func bruteForceMin(start model.LatLng, waypoints []model.LatLng) float64 {
	idx := make([]int, len(waypoints))
	for i := range idx {
		idx[i] = i
	}
	best := orderDistance(start, waypoints, nil, idx)
	permute(idx, 0, func(perm []int) {
		if d := orderDistance(start, waypoints, nil, perm); d < best {
			best = d
		}
	})
	return best
}

func jitter(rng *rand.Rand, base model.LatLng) model.LatLng {
	return model.LatLng{
		Lat: base.Lat + rng.Float64()*0.2 - 0.1,
		Lng: base.Lng + rng.Float64()*0.2 - 0.1,
	}
}
