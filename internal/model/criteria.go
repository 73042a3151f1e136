package model

const (
	// MinRadiusMeters and MaxRadiusMeters bound the search radius accepted
	// at the boundary.
	MinRadiusMeters = 100
	MaxRadiusMeters = 50000

	// MaxPageLimit caps page size.
	MaxPageLimit = 100

	// DefaultPageLimit is used when the caller does not specify one.
	DefaultPageLimit = 20
)

// SearchFilters is the closed set of declarative result filters. All active
// filters are conjunctive: a business must pass every one that is set.
type SearchFilters struct {
	MinRating      *float64 `json:"min_rating,omitempty"`
	MaxRating      *float64 `json:"max_rating,omitempty"`
	MinReviewCount *int     `json:"min_review_count,omitempty"`
	PriceLevels    []int    `json:"price_levels,omitempty"`
	OpenNow        *bool    `json:"open_now,omitempty"`
	HasWebsite     *bool    `json:"has_website,omitempty"`
	HasPhotos      *bool    `json:"has_photos,omitempty"`
	Categories     []string `json:"categories,omitempty"`
}

// Active reports whether any filter field is set.
func (f SearchFilters) Active() bool {
	return f.MinRating != nil || f.MaxRating != nil || f.MinReviewCount != nil ||
		len(f.PriceLevels) > 0 || f.OpenNow != nil || f.HasWebsite != nil ||
		f.HasPhotos != nil || len(f.Categories) > 0
}

// Validate checks filter bounds.
func (f *SearchFilters) Validate() error {
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > 5) {
		return NewValidationError("min_rating", "rating bounds must be in [0,5]")
	}
	if f.MaxRating != nil && (*f.MaxRating < 0 || *f.MaxRating > 5) {
		return NewValidationError("max_rating", "rating bounds must be in [0,5]")
	}
	if f.MinRating != nil && f.MaxRating != nil && *f.MinRating > *f.MaxRating {
		return NewValidationError("min_rating", "min_rating must not exceed max_rating")
	}
	if f.MinReviewCount != nil && *f.MinReviewCount < 0 {
		return NewValidationError("min_review_count", "min_review_count must be >= 0")
	}
	for _, pl := range f.PriceLevels {
		if pl < 1 || pl > 4 {
			return NewValidationError("price_levels", "price levels must be in 1..4")
		}
	}
	return nil
}

// SearchCriteria describes a discovery search: a center with radius,
// optional filters, and pagination.
type SearchCriteria struct {
	Location     LatLng        `json:"location"`
	RadiusMeters float64       `json:"radius_m"`
	Filters      SearchFilters `json:"filters"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}

// Validate checks criteria bounds before any I/O. It returns a
// ValidationError naming the first offending field.
func (c *SearchCriteria) Validate() error {
	if c.Location == (LatLng{}) {
		return NewValidationError("location", "search location is required")
	}
	if !c.Location.Valid() {
		return NewValidationError("location", "latitude must be in [-90,90] and longitude in [-180,180]")
	}
	if c.RadiusMeters < MinRadiusMeters || c.RadiusMeters > MaxRadiusMeters {
		return NewValidationError("radius_m", "radius must be between 100 and 50000 meters")
	}
	if c.Page < 1 {
		return NewValidationError("page", "page must be >= 1")
	}
	if c.Limit < 1 || c.Limit > MaxPageLimit {
		return NewValidationError("limit", "limit must be between 1 and 100")
	}
	return c.Filters.Validate()
}

// Pagination describes the slice of the filtered result set that was returned.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"` // filtered count before pagination
	TotalPages int `json:"total_pages"`
}

// SearchMetadata describes how a search was executed.
type SearchMetadata struct {
	Center         LatLng        `json:"center"`
	RadiusMeters   float64       `json:"radius_m"`
	Filters        SearchFilters `json:"filters"`
	CacheHit       bool          `json:"cache_hit"`
	ProviderCalls  int           `json:"provider_calls,omitempty"`
	DurationMillis int64         `json:"duration_ms"`
}

// SearchResponse is the result of a discovery search.
type SearchResponse struct {
	SearchID   string         `json:"search_id"`
	Businesses []Business     `json:"businesses"`
	Pagination Pagination     `json:"pagination"`
	Metadata   SearchMetadata `json:"metadata"`
}
