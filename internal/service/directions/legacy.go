package directions

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
)

const legacyDirectionsPath = "/maps/api/directions/json"

type legacyDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int64 `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// LegacyBackend talks to the Directions API json endpoint
type LegacyBackend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewLegacyBackend creates a Directions API backend rooted at baseURL
func NewLegacyBackend(apiKey, baseURL string, client *http.Client) *LegacyBackend {
	return &LegacyBackend{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (b *LegacyBackend) Name() string {
	return "directions-legacy"
}

func formatLatLng(c model.Coordinate) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

func (b *LegacyBackend) WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error) {
	if err := requireAPIKey(b.apiKey); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("origin", formatLatLng(origin))
	params.Set("destination", formatLatLng(destination))
	params.Set("mode", "walking")
	params.Set("alternatives", "true")
	params.Set("key", b.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+legacyDirectionsPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, err)
	}

	var data legacyDirectionsResponse
	if err := doJSON(b.client, req, &data); err != nil {
		return nil, err
	}

	if data.Status != "OK" || len(data.Routes) == 0 {
		return nil, legacyStatusError(data.Status, data.ErrorMessage)
	}

	options := make([]model.RouteOption, len(data.Routes))
	for i, route := range data.Routes {
		legs := make([]leg, len(route.Legs))
		for j, l := range route.Legs {
			legs[j] = leg{DistanceMeters: l.Distance.Value, DurationSeconds: l.Duration.Value}
		}
		options[i] = buildRouteOption(i, legs, route.OverviewPolyline.Points)
	}
	return options, nil
}

func legacyStatusError(status, message string) *apperr.Error {
	switch status {
	case "OK", "ZERO_RESULTS", "NOT_FOUND":
		return apperr.New(apperr.KindRouteNotFound, message)
	case "OVER_QUERY_LIMIT", "REQUEST_DENIED":
		return apperr.New(apperr.KindNetwork, message)
	default:
		return apperr.New(apperr.KindUnknown, message)
	}
}
