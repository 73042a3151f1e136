// Package discovery orchestrates business discovery: provider-backed search
// with a staleness-bounded cache, declarative filtering, map data, saved
// views, exports, and route planning.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/loopline/thriftscout/internal/model"
	"github.com/loopline/thriftscout/pkg/places"
)

// DomainKeywords are the OR-grouped search terms for second-hand clothing
// businesses. Matching against them is accent-insensitive, so "brechó" also
// covers "brecho".
var DomainKeywords = []string{
	"brechó",
	"thrift store",
	"second hand clothing",
	"roupas usadas",
	"vintage clothing",
	"garimpo de roupas",
}

// allowedCategories are the provider place types a candidate must carry at
// least one of, in addition to a keyword match.
var allowedCategories = map[string]bool{
	"clothing_store":    true,
	"second_hand_store": true,
	"thrift_store":      true,
	"vintage_store":     true,
	"store":             true,
}

const (
	// pageDelay is the provider-mandated wait before a next-page token
	// becomes valid.
	pageDelay = 2 * time.Second

	maxPhotoURLs  = 5
	photoMaxWidth = 800

	detailFields = "id,websiteUri,nationalPhoneNumber,currentOpeningHours"
)

// Provider finds candidate businesses around a location. The returned count
// is the number of provider API calls made.
type Provider interface {
	SearchWithPagination(ctx context.Context, criteria model.SearchCriteria, maxResults int) ([]model.Business, int, error)
}

// PlacesProvider adapts the Google Places (New) client to the Provider
// contract: it builds the keyword query, follows pagination tokens with the
// mandated delay, post-filters candidates, and normalizes records.
type PlacesProvider struct {
	client  places.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewPlacesProvider wraps a places client.
func NewPlacesProvider(client places.Client) *PlacesProvider {
	return &PlacesProvider{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(pageDelay), 1),
		log:     zap.L().With(zap.String("component", "places_provider")),
	}
}

// buildQuery joins the domain keywords into one OR query.
func buildQuery() string {
	quoted := make([]string, len(DomainKeywords))
	for i, k := range DomainKeywords {
		quoted[i] = `"` + k + `"`
	}
	return strings.Join(quoted, " OR ")
}

// SearchWithPagination follows next-page tokens until maxResults candidates
// pass the post-filter or the provider runs out of pages. A failure after the
// first page returns the pages already collected along with the error.
func (p *PlacesProvider) SearchWithPagination(ctx context.Context, criteria model.SearchCriteria, maxResults int) ([]model.Business, int, error) {
	req := places.TextSearchRequest{
		TextQuery: buildQuery(),
		LocationBias: &places.LocationBias{
			Circle: places.Circle{
				Center: places.LatLng{
					Latitude:  criteria.Location.Lat,
					Longitude: criteria.Location.Lng,
				},
				Radius: criteria.RadiusMeters,
			},
		},
	}

	var out []model.Business
	calls := 0
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return out, calls, eris.Wrap(err, "discovery: wait for page token")
		}

		resp, err := p.client.TextSearch(ctx, req)
		calls++
		if err != nil {
			return out, calls, eris.Wrapf(model.ErrUpstreamProvider, "discovery: text search page %d: %v", calls, err)
		}

		for i := range resp.Places {
			place := &resp.Places[i]
			if !passesDomainFilter(place) {
				continue
			}
			b, err := p.convertToBusiness(ctx, place)
			if err != nil {
				p.log.Warn("skipping unconvertible place",
					zap.String("place_id", place.ID), zap.Error(err))
				continue
			}
			out = append(out, *b)
			if len(out) >= maxResults {
				return out, calls, nil
			}
		}

		if resp.NextPageToken == "" {
			return out, calls, nil
		}
		req.PageToken = resp.NextPageToken
	}
}

// passesDomainFilter keeps a place only when its name or address matches a
// domain keyword (accent-folded) and at least one of its types is allowed.
// Both conditions must hold.
func passesDomainFilter(place *places.Place) bool {
	text := foldAccents(strings.ToLower(place.DisplayName.Text + " " + place.FormattedAddress))
	keywordHit := false
	for _, k := range DomainKeywords {
		if strings.Contains(text, foldAccents(strings.ToLower(k))) {
			keywordHit = true
			break
		}
	}
	if !keywordHit {
		return false
	}

	for _, t := range place.Types {
		if allowedCategories[t] {
			return true
		}
	}
	return false
}

// convertToBusiness maps a provider record to the canonical shape. Records
// missing detail fields get one follow-up details call; up to 5 photo names
// are resolved into media URLs.
func (p *PlacesProvider) convertToBusiness(ctx context.Context, place *places.Place) (*model.Business, error) {
	if place.Location == nil {
		return nil, eris.Errorf("discovery: place %s has no location", place.ID)
	}

	if place.WebsiteURI == "" && place.NationalPhoneNumber == "" && place.CurrentOpeningHours == nil {
		detail, err := p.client.PlaceDetails(ctx, place.ID, strings.Split(detailFields, ","))
		if err != nil {
			p.log.Debug("place details unavailable", zap.String("place_id", place.ID), zap.Error(err))
		} else {
			place.WebsiteURI = detail.WebsiteURI
			place.NationalPhoneNumber = detail.NationalPhoneNumber
			place.CurrentOpeningHours = detail.CurrentOpeningHours
		}
	}

	b := &model.Business{
		ExternalID: place.ID,
		Name:       place.DisplayName.Text,
		Address: model.Address{
			Formatted: place.FormattedAddress,
			Location: model.LatLng{
				Lat: place.Location.Latitude,
				Lng: place.Location.Longitude,
			},
		},
		Contact: model.Contact{
			Phone:   place.NationalPhoneNumber,
			Website: place.WebsiteURI,
		},
		Rating:      place.Rating,
		ReviewCount: place.UserRatingCount,
		PriceLevel:  place.PriceLevelValue(),
		Categories:  place.Types,
		IsActive:    true,
	}
	if !b.Address.Location.Valid() {
		return nil, eris.Errorf("discovery: place %s has out-of-bounds coordinates", place.ID)
	}

	parseAddressComponents(place.AddressComponents, &b.Address)

	if place.CurrentOpeningHours != nil {
		b.OpenNow = place.CurrentOpeningHours.OpenNow
		b.Hours = place.CurrentOpeningHours.WeekdayDescriptions
	}

	for i, photo := range place.Photos {
		if i >= maxPhotoURLs {
			break
		}
		b.PhotoURLs = append(b.PhotoURLs, p.client.PhotoURL(photo.Name, photoMaxWidth))
	}
	return b, nil
}

// parseAddressComponents fills the structured address fields from the
// provider's component types.
func parseAddressComponents(components []places.AddressComponent, addr *model.Address) {
	var route, streetNumber string
	for _, c := range components {
		for _, t := range c.Types {
			switch t {
			case "route":
				route = c.LongText
			case "street_number":
				streetNumber = c.LongText
			case "sublocality", "sublocality_level_1", "neighborhood":
				if addr.Neighborhood == "" {
					addr.Neighborhood = c.LongText
				}
			case "locality", "administrative_area_level_2":
				if addr.City == "" {
					addr.City = c.LongText
				}
			case "administrative_area_level_1":
				addr.State = c.ShortText
			case "postal_code":
				addr.PostalCode = c.LongText
			}
		}
	}
	if route != "" {
		addr.Street = strings.TrimSpace(route + " " + streetNumber)
	}
}
