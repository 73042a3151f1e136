// Package places is a client for the Google Places (New) API, covering the
// operations the discovery engine needs: text search with pagination
// tokens, place details, and photo media URLs.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// searchFieldMask lists the place fields requested on text search.
const searchFieldMask = "places.id,places.displayName,places.formattedAddress," +
	"places.addressComponents,places.location,places.rating,places.userRatingCount," +
	"places.priceLevel,places.types,places.websiteUri,places.nationalPhoneNumber," +
	"places.currentOpeningHours,places.photos,nextPageToken"

// Client performs Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error)
	PlaceDetails(ctx context.Context, placeID string, fields []string) (*Place, error)
	PhotoURL(photoName string, maxWidthPx int) string
}

// LatLng is a coordinate pair in the provider's wire format.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Circle is a center-plus-radius location bias.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// LocationBias biases results toward a circular area.
type LocationBias struct {
	Circle Circle `json:"circle"`
}

// TextSearchRequest is the request body for places:searchText.
type TextSearchRequest struct {
	TextQuery    string        `json:"textQuery"`
	LocationBias *LocationBias `json:"locationBias,omitempty"`
	PageToken    string        `json:"pageToken,omitempty"`
	PageSize     int           `json:"pageSize,omitempty"`
}

// TextSearchResponse is one page of text search results.
type TextSearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken"`
}

// DisplayName holds a place's localized display name.
type DisplayName struct {
	Text string `json:"text"`
}

// AddressComponent is one structured element of a place address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// OpeningHours carries the open-now flag and weekday descriptions.
type OpeningHours struct {
	OpenNow             *bool    `json:"openNow,omitempty"`
	WeekdayDescriptions []string `json:"weekdayDescriptions,omitempty"`
}

// Photo is a photo resource reference; Name feeds PhotoURL.
type Photo struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx"`
	HeightPx int    `json:"heightPx"`
}

// Place is a raw provider place record.
type Place struct {
	ID                  string             `json:"id"`
	DisplayName         DisplayName        `json:"displayName"`
	FormattedAddress    string             `json:"formattedAddress"`
	AddressComponents   []AddressComponent `json:"addressComponents,omitempty"`
	Location            *LatLng            `json:"location,omitempty"`
	Rating              float64            `json:"rating,omitempty"`
	UserRatingCount     int                `json:"userRatingCount,omitempty"`
	PriceLevel          string             `json:"priceLevel,omitempty"`
	Types               []string           `json:"types,omitempty"`
	WebsiteURI          string             `json:"websiteUri,omitempty"`
	NationalPhoneNumber string             `json:"nationalPhoneNumber,omitempty"`
	CurrentOpeningHours *OpeningHours      `json:"currentOpeningHours,omitempty"`
	Photos              []Photo            `json:"photos,omitempty"`
}

// PriceLevelValue maps the provider's price level enum to 1..4; 0 when
// unknown or unspecified.
func (p *Place) PriceLevelValue() int {
	switch p.PriceLevel {
	case "PRICE_LEVEL_INEXPENSIVE":
		return 1
	case "PRICE_LEVEL_MODERATE":
		return 2
	case "PRICE_LEVEL_EXPENSIVE":
		return 3
	case "PRICE_LEVEL_VERY_EXPENSIVE":
		return 4
	}
	return 0
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TextSearch runs one page of places:searchText.
func (c *httpClient) TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", searchFieldMask)

	respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var result TextSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}
	return &result, nil
}

// PlaceDetails fetches a single place with the given field mask.
func (c *httpClient) PlaceDetails(ctx context.Context, placeID string, fields []string) (*Place, error) {
	if placeID == "" {
		return nil, eris.New("places: place id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(placeID), nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create details request")
	}
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	if len(fields) == 0 {
		fields = []string{"id", "displayName", "websiteUri", "nationalPhoneNumber", "currentOpeningHours"}
	}
	httpReq.Header.Set("X-Goog-FieldMask", strings.Join(fields, ","))

	respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var place Place
	if err := json.Unmarshal(respBody, &place); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal details")
	}
	return &place, nil
}

// PhotoURL returns the fetchable media URL for a photo resource name.
func (c *httpClient) PhotoURL(photoName string, maxWidthPx int) string {
	if photoName == "" {
		return ""
	}
	if maxWidthPx <= 0 {
		maxWidthPx = 400
	}
	return fmt.Sprintf("%s/%s/media?maxWidthPx=%d&key=%s", c.baseURL, photoName, maxWidthPx, url.QueryEscape(c.apiKey))
}

func (c *httpClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
