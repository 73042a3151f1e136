package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/loopline/thriftscout/internal/model"
)

// mockStore is an in-memory Store with failure injection.
type mockStore struct {
	mu sync.Mutex

	businesses map[string]model.Business // keyed by external id
	views      []model.SavedMapView
	exports    map[string]*model.ExportRequest
	logged     []model.SearchResult

	failUpsertFor map[string]bool
	findInBoxErr  error
	logErr        error
}

func newMockStore() *mockStore {
	return &mockStore{
		businesses:    make(map[string]model.Business),
		exports:       make(map[string]*model.ExportRequest),
		failUpsertFor: make(map[string]bool),
	}
}

func (m *mockStore) seed(b model.Business) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	m.businesses[b.ExternalID] = b
}

func (m *mockStore) UpsertBusiness(_ context.Context, b *model.Business) (*model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsertFor[b.ExternalID] {
		return nil, eris.New("mock: upsert rejected")
	}
	stored, ok := m.businesses[b.ExternalID]
	out := *b
	if ok {
		out.ID = stored.ID
		out.DiscoveredAt = stored.DiscoveredAt
	} else {
		out.ID = uuid.New().String()
		out.DiscoveredAt = time.Now().UTC()
	}
	out.LastUpdated = time.Now().UTC()
	m.businesses[b.ExternalID] = out
	return &out, nil
}

func (m *mockStore) FindInBox(_ context.Context, box model.MapBounds, updatedAfter *time.Time) ([]model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findInBoxErr != nil {
		return nil, m.findInBoxErr
	}
	var out []model.Business
	for _, b := range m.businesses {
		if !box.Contains(b.Address.Location) {
			continue
		}
		if updatedAfter != nil && b.LastUpdated.Before(*updatedAfter) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *mockStore) FindInBoxSince(_ context.Context, box model.MapBounds, since time.Time) ([]model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Business
	for _, b := range m.businesses {
		if box.Contains(b.Address.Location) && !b.DiscoveredAt.Before(since) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockStore) FindByIDs(_ context.Context, ids []string) ([]model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := make(map[string]model.Business, len(m.businesses))
	for _, b := range m.businesses {
		byID[b.ID] = b
	}
	var out []model.Business
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockStore) CreateView(_ context.Context, v *model.SavedMapView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, *v)
	return nil
}

func (m *mockStore) ListViews(_ context.Context, ownerID string, includePublic bool) ([]model.SavedMapView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SavedMapView
	for _, v := range m.views {
		if v.OwnerID == ownerID || (includePublic && v.IsPublic) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockStore) CreateExport(_ context.Context, req *model.ExportRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.exports[req.ID] = &cp
	return nil
}

func (m *mockStore) UpdateExport(_ context.Context, id string, patch model.ExportPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.exports[id]
	if !ok {
		return eris.Wrap(model.ErrNotFound, "mock: export")
	}
	req.Status = patch.Status
	req.DownloadRef = patch.DownloadRef
	req.RecordCount = patch.RecordCount
	req.FileSize = patch.FileSize
	req.Error = patch.Error
	req.ExpiresAt = patch.ExpiresAt
	return nil
}

func (m *mockStore) GetExport(_ context.Context, id string) (*model.ExportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.exports[id]
	if !ok {
		return nil, eris.Wrap(model.ErrNotFound, "mock: export")
	}
	cp := *req
	return &cp, nil
}

func (m *mockStore) LogSearchResults(_ context.Context, rows []model.SearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logErr != nil {
		return m.logErr
	}
	m.logged = append(m.logged, rows...)
	return nil
}

func (m *mockStore) loggedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logged)
}

func (m *mockStore) loggedOwnerIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.logged))
	for i, r := range m.logged {
		out[i] = r.OwnerID
	}
	return out
}

func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

// mockProvider returns a canned result set.
type mockProvider struct {
	mu          sync.Mutex
	results     []model.Business
	apiCalls    int
	err         error
	invocations int
}

func (m *mockProvider) SearchWithPagination(_ context.Context, _ model.SearchCriteria, maxResults int) ([]model.Business, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocations++
	out := m.results
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	calls := m.apiCalls
	if calls == 0 {
		calls = 1
	}
	return out, calls, m.err
}

func (m *mockProvider) invoked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invocations
}
