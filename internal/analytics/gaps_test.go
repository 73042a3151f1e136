package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopline/thriftscout/internal/model"
)

// allHigh reports every location as high density.
type allHigh struct{}

func (allHigh) Tier(model.LatLng) DensityTier { return DensityTierHigh }

func TestIdentifyMarketGapsEmptyAreaHighDensity(t *testing.T) {
	area := Area{
		Center:       model.LatLng{Lat: -22.91, Lng: -43.18},
		RadiusMeters: 5000,
		Name:         "Lapa",
	}

	gaps := IdentifyMarketGaps(nil, area, allHigh{})
	require.NotEmpty(t, gaps)

	assert.GreaterOrEqual(t, gaps[0].OpportunityScore, 80.0,
		"zero competitors in a high-density area is a strong gap")
	for _, g := range gaps {
		assert.Equal(t, 0, g.CompetitorCount)
		assert.Equal(t, DensityTierHigh, g.PopulationTier)
		assert.NotEmpty(t, g.Reasons)
	}
}

func TestIdentifyMarketGapsScoreBounds(t *testing.T) {
	area := Area{Center: model.LatLng{Lat: -22.91, Lng: -43.18}, RadiusMeters: 10000}

	var businesses []model.Business
	for i := 0; i < 6; i++ {
		businesses = append(businesses, biz(string(rune('a'+i)),
			-22.91+float64(i)*0.003, -43.18, 4.0, 10))
	}

	for _, pop := range []PopulationSource{nil, allHigh{}} {
		for _, g := range IdentifyMarketGaps(businesses, area, pop) {
			assert.GreaterOrEqual(t, g.OpportunityScore, 0.0)
			assert.LessOrEqual(t, g.OpportunityScore, 100.0)
		}
	}
}

func TestIdentifyMarketGapsSortedAndCapped(t *testing.T) {
	area := Area{Center: model.LatLng{Lat: -22.91, Lng: -43.18}, RadiusMeters: 20000}

	gaps := IdentifyMarketGaps(nil, area, allHigh{})
	require.NotEmpty(t, gaps)
	assert.LessOrEqual(t, len(gaps), 10)
	for i := 1; i < len(gaps); i++ {
		assert.GreaterOrEqual(t, gaps[i-1].OpportunityScore, gaps[i].OpportunityScore)
	}
}

func TestIdentifyMarketGapsSaturatedCellsExcluded(t *testing.T) {
	center := model.LatLng{Lat: -22.91, Lng: -43.18}
	area := Area{Center: center, RadiusMeters: 2000}

	// pile enough competitors onto the area that every cell sees more than 5
	var businesses []model.Business
	for i := 0; i < 20; i++ {
		businesses = append(businesses, biz(string(rune('a'+i)),
			center.Lat+float64(i%5)*0.002, center.Lng+float64(i/5)*0.002, 4.0, 10))
	}

	// low density + >5 competitors caps the score at 10 + 0 + 20 < 60
	lows := &SampledPopulationSource{Points: []PopulationPoint{{Location: center, Tier: DensityTierLow}}}
	assert.Empty(t, IdentifyMarketGaps(businesses, area, lows))
}

func TestEstimatedPopulationSourceDeterministicTiers(t *testing.T) {
	center := model.LatLng{Lat: -22.91, Lng: -43.18}
	src := &EstimatedPopulationSource{Center: center, RadiusMeters: 9000}

	assert.Equal(t, DensityTierHigh, src.Tier(center))

	near := model.LatLng{Lat: center.Lat + 0.02, Lng: center.Lng} // ~2.2 km
	assert.Equal(t, DensityTierHigh, src.Tier(near))

	mid := model.LatLng{Lat: center.Lat + 0.04, Lng: center.Lng} // ~4.5 km
	assert.Equal(t, DensityTierMedium, src.Tier(mid))

	far := model.LatLng{Lat: center.Lat + 0.08, Lng: center.Lng} // ~8.9 km
	assert.Equal(t, DensityTierLow, src.Tier(far))

	// same input, same answer
	assert.Equal(t, src.Tier(mid), src.Tier(mid))
}

func TestSampledPopulationSourceNearestNeighbor(t *testing.T) {
	src := &SampledPopulationSource{Points: []PopulationPoint{
		{Location: model.LatLng{Lat: -22.90, Lng: -43.18}, Tier: DensityTierHigh},
		{Location: model.LatLng{Lat: -22.99, Lng: -43.18}, Tier: DensityTierLow},
	}}

	assert.Equal(t, DensityTierHigh, src.Tier(model.LatLng{Lat: -22.91, Lng: -43.18}))
	assert.Equal(t, DensityTierLow, src.Tier(model.LatLng{Lat: -22.98, Lng: -43.18}))
	assert.Equal(t, DensityTierLow, (&SampledPopulationSource{}).Tier(model.LatLng{}))
}
