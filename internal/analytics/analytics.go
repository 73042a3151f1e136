// Package analytics derives market intelligence from business collections:
// overview statistics, geographic distribution, density heat maps, market
// gaps, competitor clusters, and trend comparisons. Every function here is a
// pure pass over an in-memory slice; callers load the slice from the store.
package analytics

import (
	"sort"
	"time"

	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

// CompetitionLevel labels how contested a region or cluster is.
type CompetitionLevel string

const (
	CompetitionLow       CompetitionLevel = "low"
	CompetitionMedium    CompetitionLevel = "medium"
	CompetitionHigh      CompetitionLevel = "high"
	CompetitionSaturated CompetitionLevel = "saturated"
)

const (
	// Density thresholds in businesses per 100 km² for the overview label.
	densityMediumThreshold = 5.0
	densityHighThreshold   = 15.0

	// Regions with fewer businesses than this are flagged underserved.
	underservedCountThreshold = 3

	// Emerging competitors: discovered recently with a strong rating.
	emergingWindow    = 90 * 24 * time.Hour
	emergingMinRating = 4.0

	topRatedLimit      = 10
	marketLeadersLimit = 5
)

// Overview summarizes a business collection.
type Overview struct {
	TotalBusinesses  int              `json:"total_businesses"`
	AverageRating    float64          `json:"average_rating"` // rated businesses only
	RatingHistogram  map[int]int      `json:"rating_histogram"`
	TotalReviews     int              `json:"total_reviews"`
	DensityPer100KM2 float64          `json:"density_per_100km2"`
	CompetitionLevel CompetitionLevel `json:"competition_level"`
}

// GroupStats aggregates businesses sharing a neighborhood or city.
type GroupStats struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// Geographic breaks the collection down by locality.
type Geographic struct {
	ByNeighborhood   []GroupStats `json:"by_neighborhood"`
	ByCity           []GroupStats `json:"by_city"`
	UnderservedAreas []string     `json:"underserved_areas,omitempty"`
}

// Competitive ranks the strongest businesses in the collection.
type Competitive struct {
	TopRated            []model.Business `json:"top_rated"`
	MarketLeaders       []model.Business `json:"market_leaders"`
	EmergingCompetitors []model.Business `json:"emerging_competitors"`
}

// MarketAnalytics is the full report for a region.
type MarketAnalytics struct {
	Region      model.MapBounds `json:"region"`
	Overview    Overview        `json:"overview"`
	Geographic  Geographic      `json:"geographic"`
	Competitive Competitive     `json:"competitive"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// GenerateMarketAnalytics computes the overview, geographic, and competitive
// sections for the businesses inside region.
func GenerateMarketAnalytics(businesses []model.Business, region model.MapBounds) *MarketAnalytics {
	return &MarketAnalytics{
		Region:      region.Normalized(),
		Overview:    buildOverview(businesses, region),
		Geographic:  buildGeographic(businesses),
		Competitive: buildCompetitive(businesses, time.Now()),
		GeneratedAt: time.Now().UTC(),
	}
}

func buildOverview(businesses []model.Business, region model.MapBounds) Overview {
	o := Overview{
		TotalBusinesses: len(businesses),
		RatingHistogram: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var ratingSum float64
	var rated int
	for i := range businesses {
		b := &businesses[i]
		o.TotalReviews += b.ReviewCount
		if !b.Rated() {
			continue
		}
		rated++
		ratingSum += b.Rating
		bucket := int(b.Rating)
		if bucket < 1 {
			bucket = 1
		}
		if bucket > 5 {
			bucket = 5
		}
		o.RatingHistogram[bucket]++
	}
	if rated > 0 {
		o.AverageRating = ratingSum / float64(rated)
	}

	o.DensityPer100KM2 = densityPer100KM2(len(businesses), region)
	switch {
	case o.DensityPer100KM2 >= densityHighThreshold:
		o.CompetitionLevel = CompetitionHigh
	case o.DensityPer100KM2 >= densityMediumThreshold:
		o.CompetitionLevel = CompetitionMedium
	default:
		o.CompetitionLevel = CompetitionLow
	}
	return o
}

// densityPer100KM2 approximates the region as a planar rectangle using the
// haversine length of its edges.
func densityPer100KM2(count int, region model.MapBounds) float64 {
	n := region.Normalized()
	heightM := geo.Distance(n.SouthWest, model.LatLng{Lat: n.NorthEast.Lat, Lng: n.SouthWest.Lng})
	widthM := geo.Distance(n.SouthWest, model.LatLng{Lat: n.SouthWest.Lat, Lng: n.NorthEast.Lng})
	areaKM2 := heightM * widthM / 1e6
	if areaKM2 <= 0 {
		return 0
	}
	return float64(count) / areaKM2 * 100
}

func buildGeographic(businesses []model.Business) Geographic {
	g := Geographic{
		ByNeighborhood: groupBy(businesses, func(b *model.Business) string { return b.Address.Neighborhood }),
		ByCity:         groupBy(businesses, func(b *model.Business) string { return b.Address.City }),
	}
	for _, grp := range g.ByNeighborhood {
		if grp.Count < underservedCountThreshold {
			g.UnderservedAreas = append(g.UnderservedAreas, grp.Name)
		}
	}
	sort.Strings(g.UnderservedAreas)
	return g
}

func groupBy(businesses []model.Business, key func(*model.Business) string) []GroupStats {
	type acc struct {
		count     int
		ratingSum float64
		rated     int
	}
	groups := make(map[string]*acc)
	for i := range businesses {
		k := key(&businesses[i])
		if k == "" {
			continue
		}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		a.count++
		if businesses[i].Rated() {
			a.rated++
			a.ratingSum += businesses[i].Rating
		}
	}

	out := make([]GroupStats, 0, len(groups))
	for name, a := range groups {
		gs := GroupStats{Name: name, Count: a.count}
		if a.rated > 0 {
			gs.AverageRating = a.ratingSum / float64(a.rated)
		}
		out = append(out, gs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func buildCompetitive(businesses []model.Business, now time.Time) Competitive {
	byRating := make([]model.Business, len(businesses))
	copy(byRating, businesses)
	sort.SliceStable(byRating, func(i, j int) bool { return byRating[i].Rating > byRating[j].Rating })

	byReviews := make([]model.Business, len(businesses))
	copy(byReviews, businesses)
	sort.SliceStable(byReviews, func(i, j int) bool { return byReviews[i].ReviewCount > byReviews[j].ReviewCount })

	cutoff := now.Add(-emergingWindow)
	var emerging []model.Business
	for _, b := range businesses {
		if b.DiscoveredAt.After(cutoff) && b.Rating >= emergingMinRating {
			emerging = append(emerging, b)
		}
	}

	return Competitive{
		TopRated:            head(byRating, topRatedLimit),
		MarketLeaders:       head(byReviews, marketLeadersLimit),
		EmergingCompetitors: emerging,
	}
}

func head(bs []model.Business, n int) []model.Business {
	if len(bs) > n {
		return bs[:n]
	}
	return bs
}
