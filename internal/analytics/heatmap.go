package analytics

import (
	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

// heatMapSampleRadius is how far around each grid point businesses count
// toward that point's weight.
const heatMapSampleRadiusMeters = 1000.0

// DensityPoint is one heat-map sample: a grid coordinate, the number of
// businesses nearby, and their average rating.
type DensityPoint struct {
	Location      model.LatLng `json:"location"`
	Weight        int          `json:"weight"`
	AverageRating float64      `json:"average_rating"`
}

// GenerateDensityHeatMap overlays a uniform grid of gridSizeDegrees over the
// bounding extent of the businesses and samples business density at each grid
// point. Grid points with no nearby businesses are omitted. Empty input
// yields an empty map.
func GenerateDensityHeatMap(businesses []model.Business, gridSizeDegrees float64) []DensityPoint {
	if len(businesses) == 0 || gridSizeDegrees <= 0 {
		return nil
	}

	minLat, maxLat := businesses[0].Address.Location.Lat, businesses[0].Address.Location.Lat
	minLng, maxLng := businesses[0].Address.Location.Lng, businesses[0].Address.Location.Lng
	for i := range businesses[1:] {
		loc := businesses[i+1].Address.Location
		if loc.Lat < minLat {
			minLat = loc.Lat
		}
		if loc.Lat > maxLat {
			maxLat = loc.Lat
		}
		if loc.Lng < minLng {
			minLng = loc.Lng
		}
		if loc.Lng > maxLng {
			maxLng = loc.Lng
		}
	}

	var out []DensityPoint
	for lat := minLat; lat <= maxLat+gridSizeDegrees/2; lat += gridSizeDegrees {
		for lng := minLng; lng <= maxLng+gridSizeDegrees/2; lng += gridSizeDegrees {
			p := model.LatLng{Lat: lat, Lng: lng}

			var count, rated int
			var ratingSum float64
			for i := range businesses {
				if !geo.WithinRadius(p, businesses[i].Address.Location, heatMapSampleRadiusMeters) {
					continue
				}
				count++
				if businesses[i].Rated() {
					rated++
					ratingSum += businesses[i].Rating
				}
			}
			if count == 0 {
				continue
			}

			dp := DensityPoint{Location: p, Weight: count}
			if rated > 0 {
				dp.AverageRating = ratingSum / float64(rated)
			}
			out = append(out, dp)
		}
	}
	return out
}
