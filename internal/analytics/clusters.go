package analytics

import (
	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

// CompetitorCluster is a radius-based group of nearby competing businesses.
type CompetitorCluster struct {
	Center           model.LatLng       `json:"center"` // centroid of members
	Members          []model.Business   `json:"members"`
	AverageRating    float64            `json:"average_rating"`
	TotalReviews     int                `json:"total_reviews"`
	CompetitionLevel CompetitionLevel   `json:"competition_level"`
	MarketShares     map[string]float64 `json:"market_shares"` // business id -> estimated share
}

// AnalyzeCompetitorClusters greedily groups businesses that have at least one
// other business within clusterRadius meters. Each business belongs to at
// most one cluster; once assigned it is never reassigned, so the output is a
// deterministic function of input order.
func AnalyzeCompetitorClusters(businesses []model.Business, clusterRadius float64) []CompetitorCluster {
	assigned := make([]bool, len(businesses))
	var clusters []CompetitorCluster

	for i := range businesses {
		if assigned[i] {
			continue
		}
		members := []int{i}
		for j := i + 1; j < len(businesses); j++ {
			if assigned[j] {
				continue
			}
			if geo.WithinRadius(businesses[i].Address.Location, businesses[j].Address.Location, clusterRadius) {
				members = append(members, j)
			}
		}
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			assigned[m] = true
		}
		clusters = append(clusters, buildCluster(businesses, members))
	}
	return clusters
}

func buildCluster(businesses []model.Business, members []int) CompetitorCluster {
	c := CompetitorCluster{
		Members:      make([]model.Business, 0, len(members)),
		MarketShares: make(map[string]float64, len(members)),
	}

	var latSum, lngSum, ratingSum float64
	var rated int
	for _, m := range members {
		b := businesses[m]
		c.Members = append(c.Members, b)
		latSum += b.Address.Location.Lat
		lngSum += b.Address.Location.Lng
		c.TotalReviews += b.ReviewCount
		if b.Rated() {
			rated++
			ratingSum += b.Rating
		}
	}
	n := float64(len(members))
	c.Center = model.LatLng{Lat: latSum / n, Lng: lngSum / n}
	if rated > 0 {
		c.AverageRating = ratingSum / float64(rated)
	}

	switch {
	case len(members) <= 2:
		c.CompetitionLevel = CompetitionLow
	case len(members) <= 5:
		c.CompetitionLevel = CompetitionMedium
	case len(members) <= 10:
		c.CompetitionLevel = CompetitionHigh
	default:
		c.CompetitionLevel = CompetitionSaturated
	}

	// Share is apportioned by review volume weighted by rating. A cluster
	// with no signal at all splits evenly.
	var totalWeight float64
	weights := make([]float64, len(c.Members))
	for i, b := range c.Members {
		weights[i] = float64(b.ReviewCount) * b.Rating
		totalWeight += weights[i]
	}
	for i, b := range c.Members {
		if totalWeight > 0 {
			c.MarketShares[b.ID] = weights[i] / totalWeight
		} else {
			c.MarketShares[b.ID] = 1 / n
		}
	}
	return c
}
