package discovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopline/thriftscout/internal/analytics"
	"github.com/loopline/thriftscout/internal/model"
)

var saoPauloCenter = model.LatLng{Lat: -23.55, Lng: -46.63}

func analyticsArea(center model.LatLng, radius float64) analytics.Area {
	return analytics.Area{Center: center, RadiusMeters: radius}
}

func testService(st *mockStore, p Provider) *Service {
	return NewService(st, p, Config{})
}

func storedBiz(externalID string, lat, lng float64, age time.Duration) model.Business {
	return model.Business{
		ExternalID: externalID,
		Name:       "Brechó " + externalID,
		Address: model.Address{
			Location: model.LatLng{Lat: lat, Lng: lng},
			City:     "São Paulo",
		},
		Rating:       4.0,
		ReviewCount:  25,
		IsActive:     true,
		DiscoveredAt: time.Now().Add(-age).UTC(),
		LastUpdated:  time.Now().Add(-age).UTC(),
	}
}

func defaultCriteria() model.SearchCriteria {
	return model.SearchCriteria{
		Location:     saoPauloCenter,
		RadiusMeters: 5000,
		Page:         1,
		Limit:        20,
	}
}

func TestSearchServesFreshCacheWithoutProvider(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/fresh", -23.551, -46.631, 23*time.Hour))
	p := &mockProvider{}
	svc := testService(st, p)

	resp, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0, p.invoked(), "23h-old record is still fresh")
	assert.True(t, resp.Metadata.CacheHit)
	assert.Zero(t, resp.Metadata.ProviderCalls)
	require.Len(t, resp.Businesses, 1)
	assert.Equal(t, "places/fresh", resp.Businesses[0].ExternalID)
}

func TestSearchRefetchesStaleCache(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/stale", -23.551, -46.631, 25*time.Hour))
	p := &mockProvider{results: []model.Business{
		storedBiz("places/stale", -23.551, -46.631, 0),
	}}
	svc := testService(st, p)

	resp, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, p.invoked(), "25h-old record is stale, provider consulted")
	assert.False(t, resp.Metadata.CacheHit)
	assert.Equal(t, 1, resp.Metadata.ProviderCalls)
	require.Len(t, resp.Businesses, 1)
}

func TestSearchSortsByDistanceAndPaginates(t *testing.T) {
	var results []model.Business
	for i := 0; i < 25; i++ {
		// spread south of center; later indices are farther away
		results = append(results, storedBiz(
			fmt.Sprintf("places/%02d", i),
			saoPauloCenter.Lat-float64(24-i)*0.001,
			saoPauloCenter.Lng,
			0))
	}
	st := newMockStore()
	p := &mockProvider{results: results, apiCalls: 2}
	svc := testService(st, p)

	resp, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	require.NoError(t, err)

	assert.Len(t, resp.Businesses, 20)
	assert.Equal(t, 25, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.Equal(t, 2, resp.Metadata.ProviderCalls)
	for i := 1; i < len(resp.Businesses); i++ {
		assert.GreaterOrEqual(t,
			resp.Businesses[i].DistanceMeters,
			resp.Businesses[i-1].DistanceMeters,
			"distances non-decreasing")
	}

	// second page holds the remainder
	criteria := defaultCriteria()
	criteria.Page = 2
	resp2, err := svc.Search(context.Background(), criteria, "user-1")
	require.NoError(t, err)
	assert.Len(t, resp2.Businesses, 5)
	assert.GreaterOrEqual(t,
		resp2.Businesses[0].DistanceMeters,
		resp.Businesses[len(resp.Businesses)-1].DistanceMeters)
}

func TestSearchPageBeyondResultsIsEmpty(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/only", -23.551, -46.631, time.Hour))
	svc := testService(st, &mockProvider{})

	criteria := defaultCriteria()
	criteria.Page = 5
	resp, err := svc.Search(context.Background(), criteria, "user-1")
	require.NoError(t, err)
	assert.Empty(t, resp.Businesses)
	assert.Equal(t, 1, resp.Pagination.Total)
}

func TestSearchSkipsRecordsThatFailToPersist(t *testing.T) {
	st := newMockStore()
	st.failUpsertFor["places/bad"] = true
	p := &mockProvider{results: []model.Business{
		storedBiz("places/good", -23.551, -46.631, 0),
		storedBiz("places/bad", -23.552, -46.632, 0),
		storedBiz("places/also-good", -23.553, -46.633, 0),
	}}
	svc := testService(st, p)

	resp, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	require.NoError(t, err, "one bad record never aborts the batch")
	assert.Len(t, resp.Businesses, 2)
	for _, b := range resp.Businesses {
		assert.NotEqual(t, "places/bad", b.ExternalID)
	}
}

func TestSearchRejectsInvalidCriteria(t *testing.T) {
	svc := testService(newMockStore(), &mockProvider{})

	criteria := defaultCriteria()
	criteria.RadiusMeters = 50
	_, err := svc.Search(context.Background(), criteria, "user-1")
	assert.ErrorIs(t, err, model.ErrValidation)

	criteria = defaultCriteria()
	criteria.Location = model.LatLng{}
	_, err = svc.Search(context.Background(), criteria, "user-1")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSearchDefaultsPagination(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/a", -23.551, -46.631, time.Hour))
	svc := testService(st, &mockProvider{})

	criteria := model.SearchCriteria{Location: saoPauloCenter, RadiusMeters: 5000}
	resp, err := svc.Search(context.Background(), criteria, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, model.DefaultPageLimit, resp.Pagination.Limit)
}

func TestSearchProviderFailureWithNoResults(t *testing.T) {
	p := &mockProvider{err: model.ErrUpstreamProvider}
	svc := testService(newMockStore(), p)

	_, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	assert.ErrorIs(t, err, model.ErrUpstreamProvider)
}

func TestSearchKeepsPartialProviderPages(t *testing.T) {
	p := &mockProvider{
		results: []model.Business{storedBiz("places/partial", -23.551, -46.631, 0)},
		err:     model.ErrUpstreamProvider,
	}
	svc := testService(newMockStore(), p)

	resp, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	require.NoError(t, err, "pages collected before the failure are kept")
	assert.Len(t, resp.Businesses, 1)
}

func TestSearchLogsResultsBestEffort(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/a", -23.551, -46.631, time.Hour))
	svc := testService(st, &mockProvider{})

	resp, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	require.NoError(t, err)
	require.Len(t, resp.Businesses, 1)

	require.Eventually(t, func() bool { return st.loggedCount() == 1 },
		time.Second, 10*time.Millisecond)

	st.mu.Lock()
	row := st.logged[0]
	st.mu.Unlock()
	assert.Equal(t, resp.SearchID, row.SearchID)
	assert.Equal(t, "user-1", row.OwnerID)
	assert.Equal(t, saoPauloCenter, row.Center)
}

func TestSearchLoggingFailureDoesNotSurface(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/a", -23.551, -46.631, time.Hour))
	st.logErr = fmt.Errorf("log store down")
	svc := testService(st, &mockProvider{})

	_, err := svc.Search(context.Background(), defaultCriteria(), "user-1")
	assert.NoError(t, err)
}

func TestGetMarketAnalytics(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/old-1", -23.551, -46.631, 400*24*time.Hour))
	st.seed(storedBiz("places/old-2", -23.552, -46.632, 200*24*time.Hour))
	st.seed(storedBiz("places/new", -23.553, -46.633, 5*24*time.Hour))
	svc := testService(st, &mockProvider{})

	region := model.MapBounds{
		SouthWest: model.LatLng{Lat: -23.60, Lng: -46.70},
		NorthEast: model.LatLng{Lat: -23.50, Lng: -46.60},
	}
	report, err := svc.GetMarketAnalytics(context.Background(), region, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Analytics.Overview.TotalBusinesses)
	assert.Equal(t, 1, report.Trends.NewBusinesses)
	assert.InDelta(t, 50.0, report.Trends.GrowthRatePercent, 1e-9,
		"2 historical businesses grew to 3")
}

func TestGetMarketAnalyticsRejectsBadTimeframe(t *testing.T) {
	svc := testService(newMockStore(), &mockProvider{})
	_, err := svc.GetMarketAnalytics(context.Background(), model.MapBounds{}, 0)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAnalyzeAreaValidation(t *testing.T) {
	svc := testService(newMockStore(), &mockProvider{})

	_, err := svc.AnalyzeArea(context.Background(),
		analyticsArea(model.LatLng{}, 5000), false, false)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.AnalyzeArea(context.Background(),
		analyticsArea(saoPauloCenter, 50), false, false)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAnalyzeAreaLoadsStoredBusinesses(t *testing.T) {
	st := newMockStore()
	st.seed(storedBiz("places/a", -23.551, -46.631, time.Hour))
	st.seed(storedBiz("places/b", -23.5512, -46.6312, time.Hour))
	svc := testService(st, &mockProvider{})

	got, err := svc.AnalyzeArea(context.Background(),
		analyticsArea(saoPauloCenter, 5000), true, true)
	require.NoError(t, err)
	assert.Equal(t, 2, got.BusinessCount)
	require.NotNil(t, got.Demographics)
	assert.True(t, got.Demographics.Estimated)
}
