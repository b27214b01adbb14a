package geo

import (
	"math"

	"bakery/models"

	"github.com/mmcloughlin/geohash"
)

const earthRadiusKm = 6371.0

// NearbyKm is the radius under which a shop counts as nearby.
const NearbyKm = 5.0

// CellPrecision is the geohash length used in snapshot object keys. Six
// characters is a cell of roughly 1.2km x 0.6km.
const CellPrecision = 6

// DistanceKm returns the great-circle distance between a and b.
func DistanceKm(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RoundKm rounds a distance to one decimal, the way listings display it.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

// IsNearby reports whether b is within NearbyKm of a.
func IsNearby(a, b models.Coordinates) bool {
	return DistanceKm(a, b) <= NearbyKm
}

// Cell returns the geohash cell of c, or "" when c is nil.
func Cell(c *models.Coordinates) string {
	if c == nil {
		return ""
	}
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, CellPrecision)
}

// CellCenter decodes a cell back to its center point.
func CellCenter(cell string) models.Coordinates {
	lat, lng := geohash.DecodeCenter(cell)
	return models.Coordinates{Latitude: lat, Longitude: lng}
}
