// Package fare computes the distance and price estimate shown before a
// booking is created. Pure and deterministic: same coordinates, same quote.
package fare

import (
	"math"

	"github.com/example/tricy-client/internal/models"
)

// Default tariff in currency units. Overridable through the Estimator.
const (
	DefaultBaseFare = 30.0
	DefaultPerKm    = 12.0
)

const earthRadiusKm = 6371.0

type Estimator struct {
	BaseFare float64
	PerKm    float64
}

// NewEstimator applies defaults for non-positive tariff values.
func NewEstimator(baseFare, perKm float64) Estimator {
	if baseFare <= 0 {
		baseFare = DefaultBaseFare
	}
	if perKm <= 0 {
		perKm = DefaultPerKm
	}
	return Estimator{BaseFare: baseFare, PerKm: perKm}
}

type Estimate struct {
	DistanceKm float64
	Fare       float64
}

// Estimate quotes a trip between two coordinates. Zero distance quotes the
// base fare; the result is defined for any pair of points, antipodes
// included.
func (e Estimator) Estimate(origin, dest models.Coord) Estimate {
	km := HaversineKm(origin, dest)
	fare := math.Round((e.BaseFare+e.PerKm*km)*100) / 100
	if fare < e.BaseFare {
		fare = e.BaseFare
	}
	return Estimate{DistanceKm: km, Fare: fare}
}

// HaversineKm is the great-circle distance between two points in km.
func HaversineKm(a, b models.Coord) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
