package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopline/thriftscout/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleBusiness(externalID string, lat, lng float64) *model.Business {
	open := true
	return &model.Business{
		ExternalID: externalID,
		Name:       "Brechó da Lapa",
		Address: model.Address{
			Formatted:    "Rua do Lavradio 20, Lapa, Rio de Janeiro",
			Street:       "Rua do Lavradio 20",
			Neighborhood: "Lapa",
			City:         "Rio de Janeiro",
			State:        "RJ",
			Location:     model.LatLng{Lat: lat, Lng: lng},
		},
		Contact: model.Contact{
			Phone:   "+55 21 99999-0000",
			Website: "https://brecholapa.example",
			Social:  map[string]string{"instagram": "@brecholapa"},
		},
		Rating:      4.6,
		ReviewCount: 182,
		PriceLevel:  2,
		Categories:  []string{"clothing_store", "second_hand_store"},
		OpenNow:     &open,
		Hours:       []string{"Monday: 10:00 AM - 7:00 PM"},
		PhotoURLs:   []string{"https://photos.example/1.jpg"},
		IsActive:    true,
	}
}

func TestSQLiteUpsertInsertsNewBusiness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.UpsertBusiness(ctx, sampleBusiness("places/abc123", -22.913, -43.180))
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "places/abc123", got.ExternalID)
	assert.Equal(t, "Brechó da Lapa", got.Name)
	assert.Equal(t, "Lapa", got.Address.Neighborhood)
	assert.Equal(t, map[string]string{"instagram": "@brecholapa"}, got.Contact.Social)
	assert.Equal(t, []string{"clothing_store", "second_hand_store"}, got.Categories)
	require.NotNil(t, got.OpenNow)
	assert.True(t, *got.OpenNow)
	assert.True(t, got.IsActive)
	assert.False(t, got.DiscoveredAt.IsZero())
	assert.False(t, got.LastUpdated.IsZero())
}

func TestSQLiteUpsertPreservesIdentityOnUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertBusiness(ctx, sampleBusiness("places/abc123", -22.913, -43.180))
	require.NoError(t, err)

	updated := sampleBusiness("places/abc123", -22.913, -43.180)
	updated.Name = "Brechó da Lapa (novo nome)"
	updated.Rating = 4.8
	updated.ReviewCount = 205

	second, err := s.UpsertBusiness(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "internal id survives re-discovery")
	assert.Equal(t, first.DiscoveredAt.Unix(), second.DiscoveredAt.Unix())
	assert.Equal(t, "Brechó da Lapa (novo nome)", second.Name)
	assert.Equal(t, 4.8, second.Rating)
	assert.Equal(t, 205, second.ReviewCount)
}

func TestSQLiteUpsertRequiresExternalID(t *testing.T) {
	s := newTestStore(t)
	b := sampleBusiness("", -22.9, -43.1)
	_, err := s.UpsertBusiness(context.Background(), b)
	assert.Error(t, err)
}

func TestSQLiteFindInBox(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inside1, err := s.UpsertBusiness(ctx, sampleBusiness("places/in-1", -22.913, -43.180))
	require.NoError(t, err)
	_, err = s.UpsertBusiness(ctx, sampleBusiness("places/in-2", -22.920, -43.175))
	require.NoError(t, err)
	_, err = s.UpsertBusiness(ctx, sampleBusiness("places/out", -23.550, -46.633))
	require.NoError(t, err)

	box := model.MapBounds{
		SouthWest: model.LatLng{Lat: -22.95, Lng: -43.25},
		NorthEast: model.LatLng{Lat: -22.85, Lng: -43.10},
	}
	got, err := s.FindInBox(ctx, box, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, b := range got {
		assert.True(t, box.Contains(b.Address.Location))
	}

	// a fresh cutoff excludes everything
	future := time.Now().Add(time.Hour)
	got, err = s.FindInBox(ctx, box, &future)
	require.NoError(t, err)
	assert.Empty(t, got)

	// a past cutoff keeps the rows
	past := inside1.LastUpdated.Add(-time.Minute)
	got, err = s.FindInBox(ctx, box, &past)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteFindInBoxNormalizesSwappedCorners(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBusiness(ctx, sampleBusiness("places/in-1", -22.913, -43.180))
	require.NoError(t, err)

	// corners handed in reversed
	box := model.MapBounds{
		SouthWest: model.LatLng{Lat: -22.85, Lng: -43.10},
		NorthEast: model.LatLng{Lat: -22.95, Lng: -43.25},
	}
	got, err := s.FindInBox(ctx, box, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteFindInBoxExcludesInactive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBusiness("places/closed", -22.913, -43.180)
	b.IsActive = false
	_, err := s.UpsertBusiness(ctx, b)
	require.NoError(t, err)

	box := model.MapBounds{
		SouthWest: model.LatLng{Lat: -23, Lng: -44},
		NorthEast: model.LatLng{Lat: -22, Lng: -43},
	}
	got, err := s.FindInBox(ctx, box, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteFindInBoxSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBusiness(ctx, sampleBusiness("places/in-1", -22.913, -43.180))
	require.NoError(t, err)

	box := model.MapBounds{
		SouthWest: model.LatLng{Lat: -23, Lng: -44},
		NorthEast: model.LatLng{Lat: -22, Lng: -43},
	}

	got, err := s.FindInBoxSince(ctx, box, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.FindInBoxSince(ctx, box, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteFindByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.UpsertBusiness(ctx, sampleBusiness("places/a", -22.91, -43.18))
	require.NoError(t, err)
	b, err := s.UpsertBusiness(ctx, sampleBusiness("places/b", -22.92, -43.17))
	require.NoError(t, err)

	got, err := s.FindByIDs(ctx, []string{b.ID, "missing", a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2, "unknown ids are skipped")
	assert.Equal(t, b.ID, got[0].ID, "caller order preserved")
	assert.Equal(t, a.ID, got[1].ID)

	got, err = s.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mine := &model.SavedMapView{
		ID:        uuid.New().String(),
		OwnerID:   "user-1",
		Name:      "Lapa hunting ground",
		Center:    model.LatLng{Lat: -22.913, Lng: -43.180},
		Zoom:      14,
		MapType:   "roadmap",
		Layers:    []string{"markers", "heatmap"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateView(ctx, mine))

	shared := &model.SavedMapView{
		ID:         uuid.New().String(),
		OwnerID:    "user-2",
		Name:       "Centro overview",
		Center:     model.LatLng{Lat: -22.906, Lng: -43.177},
		Zoom:       12,
		IsPublic:   true,
		ShareToken: uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.CreateView(ctx, shared))

	private := &model.SavedMapView{
		ID:        uuid.New().String(),
		OwnerID:   "user-2",
		Name:      "Private stash",
		Center:    model.LatLng{Lat: -22.9, Lng: -43.2},
		Zoom:      15,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateView(ctx, private))

	own, err := s.ListViews(ctx, "user-1", false)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Lapa hunting ground", own[0].Name)
	assert.Equal(t, []string{"markers", "heatmap"}, own[0].Layers)

	visible, err := s.ListViews(ctx, "user-1", true)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	names := []string{visible[0].Name, visible[1].Name}
	assert.Contains(t, names, "Lapa hunting ground")
	assert.Contains(t, names, "Centro overview")
	assert.NotContains(t, names, "Private stash")
}

func TestSQLiteExportLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := &model.ExportRequest{
		ID:      uuid.New().String(),
		OwnerID: "user-1",
		Format:  model.ExportFormatCSV,
		Criteria: model.SearchCriteria{
			Location:     model.LatLng{Lat: -22.913, Lng: -43.180},
			RadiusMeters: 2000,
		},
		Fields:    []string{"name", "rating"},
		Status:    model.ExportStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateExport(ctx, req))

	got, err := s.GetExport(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusProcessing, got.Status)
	assert.Equal(t, model.ExportFormatCSV, got.Format)
	assert.Equal(t, []string{"name", "rating"}, got.Fields)
	assert.Equal(t, 2000.0, got.Criteria.RadiusMeters)
	assert.Nil(t, got.ExpiresAt)

	expires := time.Now().Add(24 * time.Hour).UTC()
	patch := model.ExportPatch{
		Status:      model.ExportStatusCompleted,
		DownloadRef: "exports/result.csv",
		RecordCount: 42,
		FileSize:    9281,
		ExpiresAt:   &expires,
	}
	require.NoError(t, s.UpdateExport(ctx, req.ID, patch))

	got, err = s.GetExport(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusCompleted, got.Status)
	assert.Equal(t, "exports/result.csv", got.DownloadRef)
	assert.Equal(t, 42, got.RecordCount)
	assert.Equal(t, int64(9281), got.FileSize)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, expires, *got.ExpiresAt, time.Second)
}

func TestSQLiteExportNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetExport(ctx, uuid.New().String())
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = s.UpdateExport(ctx, uuid.New().String(), model.ExportPatch{Status: model.ExportStatusFailed})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSQLiteLogSearchResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogSearchResults(ctx, nil))

	rows := []model.SearchResult{
		{
			SearchID:       uuid.New().String(),
			BusinessID:     uuid.New().String(),
			OwnerID:        "user-1",
			Center:         model.LatLng{Lat: -22.913, Lng: -43.180},
			RadiusMeters:   2000,
			DistanceMeters: 340.5,
			CreatedAt:      time.Now().UTC(),
		},
		{
			SearchID:       uuid.New().String(),
			BusinessID:     uuid.New().String(),
			OwnerID:        "user-1",
			Center:         model.LatLng{Lat: -22.913, Lng: -43.180},
			RadiusMeters:   2000,
			DistanceMeters: 1210.0,
			CreatedAt:      time.Now().UTC(),
		},
	}
	require.NoError(t, s.LogSearchResults(ctx, rows))

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM search_results`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
