// Package geo provides great-circle geodesy primitives and route
// optimization over WGS84 coordinates. All distances are meters.
package geo

import (
	"math"

	"github.com/loopline/thriftscout/internal/model"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// MetersPerDegreeLat is the north-south span of one degree of latitude on
// the same sphere Distance measures against. Derived from EarthRadiusMeters
// so degree conversions and distances can never disagree.
const MetersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

// Distance returns the haversine great-circle distance between two points
// in meters. It is symmetric and zero for identical points.
func Distance(a, b model.LatLng) float64 {
	if a == b {
		return 0
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bearing returns the initial compass bearing from a to b in degrees,
// normalized to [0, 360).
func Bearing(a, b model.LatLng) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// BoundingBox returns a box guaranteed to contain every point within
// radiusMeters of center. The latitude offset is the angular radius; the
// longitude offset is the spherical-cap extent, which widens toward the
// poles and degrades to the full range when the cap crosses a pole. The
// box is slightly conservative (it is rectangular over a circular cap);
// it never under-covers.
func BoundingBox(center model.LatLng, radiusMeters float64) model.MapBounds {
	angular := radiusMeters / EarthRadiusMeters
	latOffset := degrees(angular)

	// The widest longitude reach of the cap is asin(sin(r)/cos(lat)), not
	// r/cos(lat); the ratio reaches 1 exactly when the cap touches a pole,
	// at which point the box must span all longitudes.
	lngOffset := 180.0
	if ratio := math.Sin(angular) / math.Cos(radians(center.Lat)); ratio < 1 {
		lngOffset = degrees(math.Asin(ratio))
	}

	return model.MapBounds{
		NorthEast: model.LatLng{
			Lat: math.Min(90, center.Lat+latOffset),
			Lng: center.Lng + lngOffset,
		},
		SouthWest: model.LatLng{
			Lat: math.Max(-90, center.Lat-latOffset),
			Lng: center.Lng - lngOffset,
		},
	}
}

// WithinRadius reports whether point lies within radiusMeters of center.
func WithinRadius(center, point model.LatLng, radiusMeters float64) bool {
	return Distance(center, point) <= radiusMeters
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
