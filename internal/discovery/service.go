package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loopline/thriftscout/internal/analytics"
	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
	"github.com/loopline/thriftscout/internal/store"
)

const (
	// DefaultCacheTTL bounds how stale a cached business may be before the
	// provider is consulted again.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultMaxProviderResults caps one cache-fill fetch.
	DefaultMaxProviderResults = 60
)

// Config tunes the discovery service.
type Config struct {
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	MaxProviderResults int           `mapstructure:"max_provider_results"`
	ExportDir          string        `mapstructure:"export_dir"`
}

func (c *Config) withDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.MaxProviderResults <= 0 {
		c.MaxProviderResults = DefaultMaxProviderResults
	}
}

// Service orchestrates search, map data, analytics, saved views, exports,
// and route planning over the store and the place provider.
type Service struct {
	store    store.Store
	provider Provider
	cfg      Config
	pop      analytics.PopulationSource // nil means fallback estimator
	log      *zap.Logger
}

// NewService builds a discovery service.
func NewService(st store.Store, provider Provider, cfg Config) *Service {
	cfg.withDefaults()
	return &Service{
		store:    st,
		provider: provider,
		cfg:      cfg,
		log:      zap.L().With(zap.String("component", "discovery")),
	}
}

// WithPopulationSource injects a real demographic signal for gap analysis.
func (s *Service) WithPopulationSource(pop analytics.PopulationSource) *Service {
	s.pop = pop
	return s
}

// Search runs the read-through discovery pipeline: cache lookup, provider
// fallback with per-record upsert, conjunctive filters, distance sort,
// pagination, and fire-and-forget result logging.
func (s *Service) Search(ctx context.Context, criteria model.SearchCriteria, ownerID string) (*model.SearchResponse, error) {
	applyCriteriaDefaults(&criteria)
	if err := criteria.Validate(); err != nil {
		return nil, eris.Wrap(err, "discovery: search")
	}

	start := time.Now()
	candidates, meta, err := s.loadCandidates(ctx, criteria)
	if err != nil {
		return nil, err
	}

	filtered := ApplyFilters(candidates, criteria.Filters)
	for i := range filtered {
		filtered[i].DistanceMeters = geo.Distance(criteria.Location, filtered[i].Address.Location)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].DistanceMeters < filtered[j].DistanceMeters
	})

	page := paginate(filtered, criteria.Page, criteria.Limit)

	resp := &model.SearchResponse{
		SearchID:   uuid.New().String(),
		Businesses: page,
		Pagination: model.Pagination{
			Page:       criteria.Page,
			Limit:      criteria.Limit,
			Total:      len(filtered),
			TotalPages: totalPages(len(filtered), criteria.Limit),
		},
		Metadata: model.SearchMetadata{
			Center:         criteria.Location,
			RadiusMeters:   criteria.RadiusMeters,
			Filters:        criteria.Filters,
			CacheHit:       meta.cacheHit,
			ProviderCalls:  meta.providerCalls,
			DurationMillis: time.Since(start).Milliseconds(),
		},
	}

	go s.logSearch(resp, criteria, ownerID)

	return resp, nil
}

type loadMeta struct {
	cacheHit      bool
	providerCalls int
}

// loadCandidates serves the search from cached businesses fresh within the
// TTL, falling back to a provider fetch that fills the cache. An individual
// upsert failure drops only that record.
func (s *Service) loadCandidates(ctx context.Context, criteria model.SearchCriteria) ([]model.Business, loadMeta, error) {
	box := geo.BoundingBox(criteria.Location, criteria.RadiusMeters)
	cutoff := time.Now().Add(-s.cfg.CacheTTL)

	cached, err := s.store.FindInBox(ctx, box, &cutoff)
	if err != nil {
		return nil, loadMeta{}, eris.Wrap(err, "discovery: cache lookup")
	}
	if len(cached) > 0 {
		return cached, loadMeta{cacheHit: true}, nil
	}

	fetched, calls, err := s.provider.SearchWithPagination(ctx, criteria, s.cfg.MaxProviderResults)
	if err != nil && len(fetched) == 0 {
		return nil, loadMeta{}, eris.Wrap(err, "discovery: provider search")
	}
	if err != nil {
		s.log.Warn("provider pagination ended early, keeping collected pages",
			zap.Int("collected", len(fetched)), zap.Error(err))
	}

	stored := make([]model.Business, 0, len(fetched))
	for i := range fetched {
		b, err := s.store.UpsertBusiness(ctx, &fetched[i])
		if err != nil {
			s.log.Warn("skipping business that failed to persist",
				zap.String("external_id", fetched[i].ExternalID), zap.Error(err))
			continue
		}
		stored = append(stored, *b)
	}
	return stored, loadMeta{providerCalls: calls}, nil
}

func applyCriteriaDefaults(c *model.SearchCriteria) {
	if c.Page == 0 {
		c.Page = 1
	}
	if c.Limit == 0 {
		c.Limit = model.DefaultPageLimit
	}
}

func paginate(businesses []model.Business, page, limit int) []model.Business {
	from := (page - 1) * limit
	if from >= len(businesses) {
		return []model.Business{}
	}
	to := from + limit
	if to > len(businesses) {
		to = len(businesses)
	}
	return businesses[from:to]
}

func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// logSearch appends one analytics row per returned business. Failures are
// logged and swallowed; this never blocks or fails the response path.
func (s *Service) logSearch(resp *model.SearchResponse, criteria model.SearchCriteria, ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	rows := make([]model.SearchResult, 0, len(resp.Businesses))
	for _, b := range resp.Businesses {
		rows = append(rows, model.SearchResult{
			SearchID:       resp.SearchID,
			BusinessID:     b.ID,
			OwnerID:        ownerID,
			Center:         criteria.Location,
			RadiusMeters:   criteria.RadiusMeters,
			Filters:        criteria.Filters,
			DistanceMeters: b.DistanceMeters,
			CreatedAt:      now,
		})
	}
	if err := s.store.LogSearchResults(ctx, rows); err != nil {
		s.log.Warn("search result logging failed", zap.String("search_id", resp.SearchID), zap.Error(err))
	}
}

// MarketReport bundles the analytics sections for a region.
type MarketReport struct {
	Analytics *analytics.MarketAnalytics `json:"analytics"`
	Trends    *analytics.TrendAnalysis   `json:"trends"`
}

// GetMarketAnalytics computes the market report for a region. The trend
// section compares against the businesses already known before the timeframe
// window opened.
func (s *Service) GetMarketAnalytics(ctx context.Context, region model.MapBounds, timeframe time.Duration) (*MarketReport, error) {
	if timeframe <= 0 {
		return nil, eris.Wrap(model.NewValidationError("timeframe", "timeframe must be positive"), "discovery: market analytics")
	}
	box := region.Normalized()

	current, err := s.store.FindInBox(ctx, box, nil)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load region businesses")
	}
	recent, err := s.store.FindInBoxSince(ctx, box, time.Now().Add(-timeframe))
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load recent businesses")
	}

	recentIDs := make(map[string]bool, len(recent))
	for i := range recent {
		recentIDs[recent[i].ID] = true
	}
	historical := make([]model.Business, 0, len(current))
	for i := range current {
		if !recentIDs[current[i].ID] {
			historical = append(historical, current[i])
		}
	}

	return &MarketReport{
		Analytics: analytics.GenerateMarketAnalytics(current, region),
		Trends:    analytics.GenerateTrendAnalysis(current, historical, timeframe),
	}, nil
}

// AnalyzeArea loads the businesses around the area and runs the combined
// analysis passes.
func (s *Service) AnalyzeArea(ctx context.Context, area analytics.Area, includeCompetitors, includeDemographics bool) (*analytics.AreaAnalysis, error) {
	if !area.Center.Valid() || area.Center == (model.LatLng{}) {
		return nil, eris.Wrap(model.NewValidationError("center", "a valid area center is required"), "discovery: analyze area")
	}
	if area.RadiusMeters < model.MinRadiusMeters || area.RadiusMeters > model.MaxRadiusMeters {
		return nil, eris.Wrap(model.NewValidationError("radius_m", "radius must be between 100 and 50000 meters"), "discovery: analyze area")
	}

	box := geo.BoundingBox(area.Center, area.RadiusMeters)
	businesses, err := s.store.FindInBox(ctx, box, nil)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load area businesses")
	}
	out, err := analytics.AnalyzeArea(ctx, businesses, area, includeCompetitors, includeDemographics, s.pop)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: area analysis")
	}
	return out, nil
}
