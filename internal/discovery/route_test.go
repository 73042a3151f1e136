package discovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

func seedForRoute(st *mockStore, n int) []string {
	var ids []string
	for i := 0; i < n; i++ {
		b := storedBiz(fmt.Sprintf("places/r%d", i),
			-23.55-float64(i)*0.01, -46.63, time.Hour)
		st.seed(b)
		ids = append(ids, st.businesses[b.ExternalID].ID)
	}
	return ids
}

func TestPlanRouteOptimized(t *testing.T) {
	st := newMockStore()
	ids := seedForRoute(st, 4)
	svc := testService(st, &mockProvider{})

	plan, err := svc.PlanRoute(context.Background(), ids, saoPauloCenter, true, geo.TravelModeDriving)
	require.NoError(t, err)

	require.Len(t, plan.Stops, 4)
	assert.True(t, plan.Route.Optimal)
	assert.Len(t, plan.Route.Legs, 4)
	assert.Greater(t, plan.Route.DistanceMeters, 0.0)

	// businesses were laid out on a line heading south, so the optimal
	// order from the center visits them nearest first
	for i := 0; i < len(plan.Stops); i++ {
		assert.Equal(t, fmt.Sprintf("places/r%d", i), plan.Stops[i].ExternalID)
	}
}

func TestPlanRouteUnoptimizedKeepsRequestOrder(t *testing.T) {
	st := newMockStore()
	ids := seedForRoute(st, 3)
	svc := testService(st, &mockProvider{})

	reversed := []string{ids[2], ids[1], ids[0]}
	plan, err := svc.PlanRoute(context.Background(), reversed, saoPauloCenter, false, geo.TravelModeWalking)
	require.NoError(t, err)

	require.Len(t, plan.Stops, 3)
	assert.False(t, plan.Route.Optimal)
	assert.Equal(t, "places/r2", plan.Stops[0].ExternalID)
	assert.Equal(t, "places/r0", plan.Stops[2].ExternalID)
}

func TestPlanRouteCapsOptimizedWaypoints(t *testing.T) {
	st := newMockStore()
	ids := seedForRoute(st, 9)
	svc := testService(st, &mockProvider{})

	_, err := svc.PlanRoute(context.Background(), ids, saoPauloCenter, true, geo.TravelModeDriving)
	assert.ErrorIs(t, err, model.ErrValidation)

	// the heuristic path accepts the same set
	plan, err := svc.PlanRoute(context.Background(), ids, saoPauloCenter, false, geo.TravelModeDriving)
	require.NoError(t, err)
	assert.Len(t, plan.Stops, 9)
}

func TestPlanRouteValidation(t *testing.T) {
	svc := testService(newMockStore(), &mockProvider{})
	ctx := context.Background()

	_, err := svc.PlanRoute(ctx, nil, saoPauloCenter, true, geo.TravelModeDriving)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.PlanRoute(ctx, []string{"x"}, model.LatLng{Lat: 91}, true, geo.TravelModeDriving)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPlanRouteUnknownBusinesses(t *testing.T) {
	svc := testService(newMockStore(), &mockProvider{})

	_, err := svc.PlanRoute(context.Background(), []string{"missing"}, saoPauloCenter, true, geo.TravelModeDriving)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
