package util

import (
	"math"

	"saferoute/internal/model"
)

// EncodePolyline encodes coordinates with the standard 1e-5 precision
func EncodePolyline(coords []model.Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*8)
	prevLat, prevLng := 0, 0

	for _, c := range coords {
		lat := int(math.Round(c.Latitude * DefaultPolylineFactor))
		lng := int(math.Round(c.Longitude * DefaultPolylineFactor))

		buf = encodeDelta(buf, lat-prevLat)
		buf = encodeDelta(buf, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

func encodeDelta(buf []byte, value int) []byte {
	v := value << 1
	if value < 0 {
		v = ^v
	}

	for v >= 0x20 {
		buf = append(buf, byte((v&0x1f)|0x20)+63)
		v >>= 5
	}
	return append(buf, byte(v)+63)
}
