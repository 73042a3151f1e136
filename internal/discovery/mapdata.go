package discovery

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/loopline/thriftscout/internal/analytics"
	"github.com/loopline/thriftscout/internal/cluster"
	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

const (
	minZoom = 1
	maxZoom = 20

	// mapHeatMapGridDegrees is roughly a 1 km sampling grid.
	mapHeatMapGridDegrees = 0.01
)

// MapData is the viewport payload: markers at high zoom, clusters plus
// region analytics at low zoom.
type MapData struct {
	Zoom      int                        `json:"zoom"`
	Markers   []cluster.Marker           `json:"markers,omitempty"`
	Clusters  []cluster.Cluster          `json:"clusters,omitempty"`
	Analytics *analytics.MarketAnalytics `json:"analytics,omitempty"`
	HeatMap   []analytics.DensityPoint   `json:"heat_map,omitempty"`
	Gaps      []analytics.MarketGap      `json:"gaps,omitempty"`
}

// GetMapData loads the businesses inside bounds, applies filters, and
// branches by zoom: below the cluster threshold it returns grid clusters
// with density and gap analytics, at or above it one marker per business.
func (s *Service) GetMapData(ctx context.Context, bounds model.MapBounds, zoom int, filters model.SearchFilters) (*MapData, error) {
	if zoom < minZoom || zoom > maxZoom {
		return nil, eris.Wrap(model.NewValidationError("zoom", "zoom must be between 1 and 20"), "discovery: map data")
	}
	if !bounds.NorthEast.Valid() || !bounds.SouthWest.Valid() {
		return nil, eris.Wrap(model.NewValidationError("bounds", "bounds corners must be valid coordinates"), "discovery: map data")
	}
	if err := filters.Validate(); err != nil {
		return nil, eris.Wrap(err, "discovery: map data")
	}

	box := bounds.Normalized()
	businesses, err := s.store.FindInBox(ctx, box, nil)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load viewport businesses")
	}
	businesses = ApplyFilters(businesses, filters)

	out := &MapData{Zoom: zoom}
	if zoom >= cluster.ClusterZoomThreshold {
		out.Markers = cluster.Markers(businesses)
		return out, nil
	}

	out.Clusters = cluster.GridCluster(businesses, zoom)
	out.Analytics = analytics.GenerateMarketAnalytics(businesses, box)
	out.HeatMap = analytics.GenerateDensityHeatMap(businesses, mapHeatMapGridDegrees)
	out.Gaps = analytics.IdentifyMarketGaps(businesses, viewportArea(box), s.pop)
	return out, nil
}

// viewportArea approximates the viewport as a circle centered on the box,
// with the half-diagonal as radius, for gap scanning. The radius is capped
// at the maximum search radius so a continent-sized viewport cannot turn
// the 2 km cell scan into millions of cells.
func viewportArea(box model.MapBounds) analytics.Area {
	center := model.LatLng{
		Lat: (box.SouthWest.Lat + box.NorthEast.Lat) / 2,
		Lng: (box.SouthWest.Lng + box.NorthEast.Lng) / 2,
	}
	return analytics.Area{
		Center:       center,
		RadiusMeters: math.Min(geo.Distance(center, box.NorthEast), model.MaxRadiusMeters),
	}
}
