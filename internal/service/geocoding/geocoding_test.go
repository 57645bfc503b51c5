package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
)

var bigBen = model.Destination{
	Coordinate: model.Coordinate{Latitude: 51.5007, Longitude: -0.1246},
	Name:       "Big Ben, London SW1A 0AA, UK",
}

func geocodeServer(t *testing.T, status string, withResult bool, httpStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, geocodePath, r.URL.Path)
		assert.Equal(t, "Big Ben", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		body := map[string]any{"status": status, "results": []any{}, "error_message": "You have exceeded your daily request quota"}
		if withResult {
			body["results"] = []map[string]any{{
				"formatted_address": bigBen.Name,
				"geometry":          map[string]any{"location": map[string]any{"lat": 51.5007, "lng": -0.1246}},
			}}
		}
		w.WriteHeader(httpStatus)
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func TestRESTGeocoder(t *testing.T) {
	srv := geocodeServer(t, "OK", true, http.StatusOK)
	defer srv.Close()

	dest, err := NewRESTGeocoder("test-key", srv.URL, srv.Client()).Geocode(context.Background(), "Big Ben")
	require.NoError(t, err)
	assert.Equal(t, bigBen, dest)
}

func TestRESTGeocoderStatusMapping(t *testing.T) {
	tests := []struct {
		status     string
		withResult bool
		httpStatus int
		kind       apperr.Kind
	}{
		{"ZERO_RESULTS", false, http.StatusOK, apperr.KindGeocodingNoResults},
		{"OK", false, http.StatusOK, apperr.KindGeocodingNoResults},
		{"OVER_QUERY_LIMIT", false, http.StatusOK, apperr.KindNetwork},
		{"REQUEST_DENIED", false, http.StatusOK, apperr.KindNetwork},
		{"INVALID_REQUEST", false, http.StatusOK, apperr.KindGeocodingFailed},
		{"UNKNOWN_ERROR", false, http.StatusOK, apperr.KindGeocodingFailed},
		{"OK", true, http.StatusInternalServerError, apperr.KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			srv := geocodeServer(t, tt.status, tt.withResult, tt.httpStatus)
			defer srv.Close()

			_, err := NewRESTGeocoder("test-key", srv.URL, srv.Client()).Geocode(context.Background(), "Big Ben")
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestRESTGeocoderKeepsQuotaMessage(t *testing.T) {
	srv := geocodeServer(t, "OVER_QUERY_LIMIT", false, http.StatusOK)
	defer srv.Close()

	_, err := NewRESTGeocoder("test-key", srv.URL, srv.Client()).Geocode(context.Background(), "Big Ben")
	assert.Equal(t, "You have exceeded your daily request quota", apperr.As(err).Message)
}

func TestRESTGeocoderRequiresKey(t *testing.T) {
	_, err := NewRESTGeocoder("", "http://127.0.0.1:1", http.DefaultClient).Geocode(context.Background(), "Big Ben")
	assert.Equal(t, apperr.KindConfigMissing, apperr.KindOf(err))
}

func TestRESTGeocoderEmptyAddress(t *testing.T) {
	_, err := NewRESTGeocoder("k", "http://127.0.0.1:1", http.DefaultClient).Geocode(context.Background(), "   ")
	assert.Equal(t, apperr.KindGeocodingFailed, apperr.KindOf(err))
}

func TestWebFallsBackToREST(t *testing.T) {
	srv := geocodeServer(t, "OK", true, http.StatusOK)
	defer srv.Close()

	hosted := &fakeHosted{err: errors.New("google is not defined")}
	geocoder := ForPlatform(model.PlatformWeb, Options{
		APIKey:       "test-key",
		GeocodingURL: srv.URL,
		HTTPClient:   srv.Client(),
		Hosted:       hosted,
	})

	dest, err := geocoder.Geocode(context.Background(), "Big Ben")
	require.NoError(t, err)
	assert.Equal(t, bigBen, dest)
	assert.Equal(t, 1, hosted.calls)
}

func TestWebPrefersHosted(t *testing.T) {
	hosted := &fakeHosted{result: HostedResult{Status: "OK", Latitude: 51.5007, Longitude: -0.1246, FormattedAddress: bigBen.Name}}
	geocoder := ForPlatform(model.PlatformWeb, Options{APIKey: "k", GeocodingURL: "http://127.0.0.1:1", Hosted: hosted})

	dest, err := geocoder.Geocode(context.Background(), "Big Ben")
	require.NoError(t, err)
	assert.Equal(t, bigBen, dest)
}

func TestHostedStatusMapping(t *testing.T) {
	_, err := NewHosted(&fakeHosted{result: HostedResult{Status: "ZERO_RESULTS"}}).Geocode(context.Background(), "x")
	assert.Equal(t, apperr.KindGeocodingNoResults, apperr.KindOf(err))

	_, err = NewHosted(&fakeHosted{result: HostedResult{Status: "ERROR"}}).Geocode(context.Background(), "x")
	assert.Equal(t, apperr.KindGeocodingFailed, apperr.KindOf(err))
}

func TestNativeIgnoresHosted(t *testing.T) {
	srv := geocodeServer(t, "OK", true, http.StatusOK)
	defer srv.Close()

	hosted := &fakeHosted{}
	geocoder := ForPlatform(model.PlatformNative, Options{APIKey: "test-key", GeocodingURL: srv.URL, HTTPClient: srv.Client(), Hosted: hosted})

	_, err := geocoder.Geocode(context.Background(), "Big Ben")
	require.NoError(t, err)
	assert.Equal(t, 0, hosted.calls)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "big ben, london", NormalizeAddress("  Big   Ben,\tLondon "))
	assert.Equal(t, "", NormalizeAddress("   "))
}

func TestCachedGeocoder(t *testing.T) {
	inner := &fakeGeocoder{dest: bigBen}
	store := newFakeStore()
	geocoder := NewCached(inner, store, nil)

	_, err := geocoder.Geocode(context.Background(), "Big Ben")
	require.NoError(t, err)
	dest, err := geocoder.Geocode(context.Background(), "  big   BEN ")
	require.NoError(t, err)

	assert.Equal(t, bigBen, dest)
	assert.Equal(t, 1, inner.calls)
	assert.Contains(t, store.data, "big ben")
}

func TestCachedGeocoderSkipsFailures(t *testing.T) {
	inner := &fakeGeocoder{err: apperr.New(apperr.KindGeocodingNoResults, "")}
	store := newFakeStore()

	_, err := NewCached(inner, store, nil).Geocode(context.Background(), "nowhere")
	assert.Equal(t, apperr.KindGeocodingNoResults, apperr.KindOf(err))
	assert.Empty(t, store.data)
}

func TestCachedGeocoderStoreDown(t *testing.T) {
	inner := &fakeGeocoder{dest: bigBen}
	store := newFakeStore()
	store.err = errors.New("connection refused")

	dest, err := NewCached(inner, store, nil).Geocode(context.Background(), "Big Ben")
	require.NoError(t, err)
	assert.Equal(t, bigBen, dest)
}

type fakeHosted struct {
	result HostedResult
	err    error
	calls  int
}

func (f *fakeHosted) HostedGeocode(ctx context.Context, address string) (HostedResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeGeocoder struct {
	dest  model.Destination
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (model.Destination, error) {
	f.calls++
	return f.dest, f.err
}

type fakeStore struct {
	data map[string]model.Destination
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]model.Destination)}
}

func (s *fakeStore) LookupGeocode(ctx context.Context, address string) (model.Destination, bool, error) {
	if s.err != nil {
		return model.Destination{}, false, s.err
	}
	d, ok := s.data[address]
	return d, ok, nil
}

func (s *fakeStore) SaveGeocode(ctx context.Context, address string, destination model.Destination) error {
	if s.err != nil {
		return s.err
	}
	s.data[address] = destination
	return nil
}
