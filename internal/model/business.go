// Package model defines the core domain entities for business discovery
// and market intelligence.
package model

import (
	"time"
)

// LatLng is a WGS84 coordinate pair in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies within lat/lng bounds.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Address holds the structured components of a business address alongside
// the provider-formatted string.
type Address struct {
	Formatted    string `json:"formatted"`
	Street       string `json:"street,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Location     LatLng `json:"location"`
}

// Contact holds phone, website, and social handles for a business.
type Contact struct {
	Phone   string            `json:"phone,omitempty"`
	Website string            `json:"website,omitempty"`
	Social  map[string]string `json:"social,omitempty"`
}

// Business is the canonical second-hand clothing business record. Uniqueness
// is keyed by ExternalID (the place provider's id); Address.Location is always
// present and within valid bounds.
type Business struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id"`
	Name         string    `json:"name"`
	Address      Address   `json:"address"`
	Contact      Contact   `json:"contact"`
	Rating       float64   `json:"rating"`                // 0 when unrated
	ReviewCount  int       `json:"review_count"`
	PriceLevel   int       `json:"price_level,omitempty"` // 1–4, 0 when unknown
	Categories   []string  `json:"categories,omitempty"`
	OpenNow      *bool     `json:"open_now,omitempty"`
	Hours        []string  `json:"hours,omitempty"` // weekday descriptions
	PhotoURLs    []string  `json:"photo_urls,omitempty"`
	IsActive     bool      `json:"is_active"`
	DiscoveredAt time.Time `json:"discovered_at"`
	LastUpdated  time.Time `json:"last_updated"`

	// DistanceMeters is populated per search relative to the search center.
	// It is not persisted.
	DistanceMeters float64 `json:"distance_m,omitempty"`
}

// Rated reports whether a rating has been recorded for the business.
func (b *Business) Rated() bool {
	return b.Rating > 0
}

// MapBounds is a rectangular lat/lng region. Normalize before box queries.
type MapBounds struct {
	NorthEast LatLng `json:"northeast"`
	SouthWest LatLng `json:"southwest"`
}

// Normalized returns bounds with corners swapped as needed so that
// NE.Lat >= SW.Lat and NE.Lng >= SW.Lng.
func (b MapBounds) Normalized() MapBounds {
	out := b
	if out.NorthEast.Lat < out.SouthWest.Lat {
		out.NorthEast.Lat, out.SouthWest.Lat = out.SouthWest.Lat, out.NorthEast.Lat
	}
	if out.NorthEast.Lng < out.SouthWest.Lng {
		out.NorthEast.Lng, out.SouthWest.Lng = out.SouthWest.Lng, out.NorthEast.Lng
	}
	return out
}

// Contains reports whether the point lies inside the bounds.
func (b MapBounds) Contains(p LatLng) bool {
	n := b.Normalized()
	return p.Lat >= n.SouthWest.Lat && p.Lat <= n.NorthEast.Lat &&
		p.Lng >= n.SouthWest.Lng && p.Lng <= n.NorthEast.Lng
}
