// Package cluster groups businesses into map markers or zoom-dependent
// grid clusters for visualization. Clustering is a pure function of input
// positions and zoom: identical input always produces identical clusters.
package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/loopline/thriftscout/internal/model"
)

// ClusterZoomThreshold is the zoom level at or above which individual
// markers are rendered instead of grid clusters.
const ClusterZoomThreshold = 12

// CellSizeForZoom returns the grid cell size in degrees for a zoom level.
// Coarser grids at lower zoom.
func CellSizeForZoom(zoom int) float64 {
	switch {
	case zoom <= 5:
		return 2.0
	case zoom <= 7:
		return 0.5
	case zoom <= 9:
		return 0.1
	case zoom <= 11:
		return 0.02
	default:
		return 0.005
	}
}

// Cluster is one grid cell's worth of businesses.
type Cluster struct {
	Key       string           `json:"key"`    // "cellX:cellY" grid coordinate
	Center    model.LatLng     `json:"center"` // centroid of members
	Count     int              `json:"count"`
	AvgRating float64          `json:"avg_rating"` // over rated members only
	Members   []model.Business `json:"members"`
}

// Marker is a single-business map point used at high zoom.
type Marker struct {
	BusinessID string       `json:"business_id"`
	Name       string       `json:"name"`
	Location   model.LatLng `json:"location"`
	Rating     float64      `json:"rating"`
}

// GridCluster assigns each business to the cell obtained by flooring its
// coordinates to the zoom-dependent cell size. Clusters are returned in
// descending member count, key ascending on ties, so output order is
// deterministic.
func GridCluster(businesses []model.Business, zoom int) []Cluster {
	cellSize := CellSizeForZoom(zoom)

	byCell := make(map[string]*Cluster)
	for _, b := range businesses {
		loc := b.Address.Location
		cellX := math.Floor(loc.Lng / cellSize)
		cellY := math.Floor(loc.Lat / cellSize)
		key := fmt.Sprintf("%.0f:%.0f", cellX, cellY)

		c, ok := byCell[key]
		if !ok {
			c = &Cluster{Key: key}
			byCell[key] = c
		}
		c.Members = append(c.Members, b)
		c.Count++
	}

	clusters := make([]Cluster, 0, len(byCell))
	for _, c := range byCell {
		finalize(c)
		clusters = append(clusters, *c)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Key < clusters[j].Key
	})

	return clusters
}

// Markers returns one marker per business, for zoom levels at or above
// ClusterZoomThreshold.
func Markers(businesses []model.Business) []Marker {
	markers := make([]Marker, 0, len(businesses))
	for _, b := range businesses {
		markers = append(markers, Marker{
			BusinessID: b.ID,
			Name:       b.Name,
			Location:   b.Address.Location,
			Rating:     b.Rating,
		})
	}
	return markers
}

// finalize computes the centroid and rated-member average rating.
func finalize(c *Cluster) {
	var sumLat, sumLng, ratingSum float64
	rated := 0
	for _, m := range c.Members {
		sumLat += m.Address.Location.Lat
		sumLng += m.Address.Location.Lng
		if m.Rated() {
			ratingSum += m.Rating
			rated++
		}
	}
	c.Center = model.LatLng{
		Lat: sumLat / float64(c.Count),
		Lng: sumLng / float64(c.Count),
	}
	if rated > 0 {
		c.AvgRating = ratingSum / float64(rated)
	}
}
