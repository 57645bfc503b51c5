package geocoding

import (
	"context"

	"saferoute/internal/model"
)

// HostedResult mirrors a browser Geocoder callback: a status and the top result
type HostedResult struct {
	Status           string  `json:"status"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

// HostedGeocoder geocodes in a browser-hosted maps SDK
type HostedGeocoder interface {
	HostedGeocode(ctx context.Context, address string) (HostedResult, error)
}

// Hosted adapts a HostedGeocoder to Geocoder with the REST status mapping
type Hosted struct {
	geocoder HostedGeocoder
}

func NewHosted(geocoder HostedGeocoder) *Hosted {
	return &Hosted{geocoder: geocoder}
}

func (h *Hosted) Geocode(ctx context.Context, address string) (model.Destination, error) {
	result, err := h.geocoder.HostedGeocode(ctx, address)
	if err != nil {
		return model.Destination{}, err
	}
	if result.Status != "OK" {
		return model.Destination{}, StatusError(result.Status, "")
	}
	return model.Destination{
		Coordinate: model.Coordinate{Latitude: result.Latitude, Longitude: result.Longitude},
		Name:       result.FormattedAddress,
	}, nil
}
