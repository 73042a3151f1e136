package analytics

import (
	"fmt"
	"time"

	"github.com/loopline/thriftscout/internal/model"
)

// TrendAnalysis compares the current business population against a historical
// snapshot of the same region.
type TrendAnalysis struct {
	Timeframe         time.Duration `json:"-"`
	NewBusinesses     int           `json:"new_businesses"`
	GrowthRatePercent float64       `json:"growth_rate_percent"`
	RatingChange      float64       `json:"rating_change"`
	Insights          []string      `json:"insights"`
}

const (
	rapidGrowthPercent   = 20.0
	declinePercent       = -10.0
	newBusinessSurge     = 5
	ratingShiftThreshold = 0.2
)

// GenerateTrendAnalysis derives growth and quality trends over the timeframe.
// historical may be nil when no snapshot exists; growth rate is then zero.
func GenerateTrendAnalysis(current, historical []model.Business, timeframe time.Duration) *TrendAnalysis {
	t := &TrendAnalysis{Timeframe: timeframe}

	cutoff := time.Now().Add(-timeframe)
	for i := range current {
		if current[i].DiscoveredAt.After(cutoff) {
			t.NewBusinesses++
		}
	}

	if len(historical) > 0 {
		t.GrowthRatePercent = float64(len(current)-len(historical)) / float64(len(historical)) * 100
		t.RatingChange = meanRating(current) - meanRating(historical)
	}

	t.Insights = trendInsights(t)
	return t
}

func meanRating(businesses []model.Business) float64 {
	var sum float64
	var rated int
	for i := range businesses {
		if businesses[i].Rated() {
			rated++
			sum += businesses[i].Rating
		}
	}
	if rated == 0 {
		return 0
	}
	return sum / float64(rated)
}

func trendInsights(t *TrendAnalysis) []string {
	var out []string

	switch {
	case t.GrowthRatePercent >= rapidGrowthPercent:
		out = append(out, fmt.Sprintf("market growing rapidly (%.0f%% more businesses than the historical snapshot)", t.GrowthRatePercent))
	case t.GrowthRatePercent <= declinePercent:
		out = append(out, fmt.Sprintf("market shrinking (%.0f%% fewer businesses than the historical snapshot)", -t.GrowthRatePercent))
	}

	if t.NewBusinesses >= newBusinessSurge {
		out = append(out, fmt.Sprintf("%d new businesses opened in the analyzed window", t.NewBusinesses))
	}

	switch {
	case t.RatingChange >= ratingShiftThreshold:
		out = append(out, "overall service quality is improving")
	case t.RatingChange <= -ratingShiftThreshold:
		out = append(out, "overall service quality is declining")
	}

	if len(out) == 0 {
		out = append(out, "market conditions stable over the analyzed window")
	}
	return out
}
