package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
)

const (
	DefaultGeocodingURL = "https://maps.googleapis.com"
	geocodePath         = "/maps/api/geocode/json"
)

// Geocoder resolves free text to a destination
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Destination, error)
}

// Options configures the geocoders built by ForPlatform
type Options struct {
	APIKey       string
	GeocodingURL string
	HTTPClient   *http.Client
	Hosted       HostedGeocoder
	Store        Store
	Logger       *zap.Logger
}

// ForPlatform builds the geocoder for a platform. Web tries the browser-hosted
// geocoder first and falls back to REST; every other platform uses REST.
func ForPlatform(platform model.Platform, opts Options) Geocoder {
	if opts.GeocodingURL == "" {
		opts.GeocodingURL = DefaultGeocodingURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var geocoder Geocoder = NewRESTGeocoder(opts.APIKey, opts.GeocodingURL, opts.HTTPClient)
	if platform == model.PlatformWeb && opts.Hosted != nil {
		geocoder = NewFallback(NewHosted(opts.Hosted), geocoder, opts.Logger)
	}
	if opts.Store != nil {
		geocoder = NewCached(geocoder, opts.Store, opts.Logger)
	}
	return geocoder
}

// StatusError maps a Geocoding API status to an error kind
func StatusError(status, apiMessage string) *apperr.Error {
	switch status {
	case "ZERO_RESULTS", "OK":
		return apperr.New(apperr.KindGeocodingNoResults, "")
	case "OVER_QUERY_LIMIT", "REQUEST_DENIED":
		return apperr.New(apperr.KindNetwork, apiMessage)
	default:
		return apperr.New(apperr.KindGeocodingFailed, "")
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

// RESTGeocoder calls the Geocoding API json endpoint
type RESTGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewRESTGeocoder creates a REST geocoder rooted at baseURL
func NewRESTGeocoder(apiKey, baseURL string, client *http.Client) *RESTGeocoder {
	return &RESTGeocoder{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *RESTGeocoder) Geocode(ctx context.Context, address string) (model.Destination, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return model.Destination{}, apperr.New(apperr.KindConfigMissing, apperr.MissingAPIKeyWarning)
	}
	if strings.TrimSpace(address) == "" {
		return model.Destination{}, apperr.New(apperr.KindGeocodingFailed, "")
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+geocodePath+"?"+params.Encode(), nil)
	if err != nil {
		return model.Destination{}, apperr.Wrap(apperr.KindGeocodingFailed, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return model.Destination{}, apperr.Wrap(apperr.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Destination{}, apperr.Wrap(apperr.KindNetwork, fmt.Errorf("geocode: status %d", resp.StatusCode))
	}

	var data geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return model.Destination{}, apperr.Wrap(apperr.KindGeocodingFailed, err)
	}

	if data.Status != "OK" || len(data.Results) == 0 {
		return model.Destination{}, StatusError(data.Status, data.ErrorMessage)
	}

	top := data.Results[0]
	return model.Destination{
		Coordinate: model.Coordinate{
			Latitude:  top.Geometry.Location.Lat,
			Longitude: top.Geometry.Location.Lng,
		},
		Name: top.FormattedAddress,
	}, nil
}
