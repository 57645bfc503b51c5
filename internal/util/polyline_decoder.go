package util

import "saferoute/internal/model"

// DefaultPolylineFactor is the Google Maps standard of five decimal places
const DefaultPolylineFactor = 1e5

// DecodePolyline converts an encoded polyline string to a slice of coordinates
// Implementation based on Google's Encoded Polyline Algorithm Format
func DecodePolyline(encoded string) []model.Coordinate {
	return DecodePolylineWithFactor(encoded, DefaultPolylineFactor)
}

// DecodePolylineWithFactor decodes a polyline whose values were scaled by factor,
// e.g. 1e6 for six decimal places. Each coordinate is accumulated / factor.
// Truncated input yields the coordinates decoded before the string ran out.
func DecodePolylineWithFactor(encoded string, factor float64) []model.Coordinate {
	var points []model.Coordinate
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, ok := decodeDelta(encoded, index)
		if !ok {
			return points
		}
		index = next

		lngDelta, next, ok := decodeDelta(encoded, index)
		if !ok {
			return points
		}
		index = next

		lat += latDelta
		lng += lngDelta

		points = append(points, model.Coordinate{
			Latitude:  float64(lat) / factor,
			Longitude: float64(lng) / factor,
		})
	}

	return points
}

// decodeDelta reads one zig-zag encoded value starting at index.
// ok is false when the string ends before the value's last chunk.
func decodeDelta(encoded string, index int) (delta, next int, ok bool) {
	shift, result := 0, 0
	for {
		if index >= len(encoded) {
			return 0, index, false
		}
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Lowest bit carries the sign
	if result&1 != 0 {
		return ^(result >> 1), index, true
	}
	return result >> 1, index, true
}
