// Package geo provides great-circle distance and coordinate validation.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKM is the mean Earth radius used by HaversineKM.
const EarthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance in kilometers between two
// points given in degrees. NaN inputs yield NaN.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a marginally above 1 for antipodal points.
	a = math.Min(a, 1)
	return 2 * math.Asin(math.Sqrt(a)) * EarthRadiusKM
}

// DegenerateInputError reports coordinates that cannot produce a meaningful
// distance.
type DegenerateInputError struct {
	Field string
	Value float64
}

func (e *DegenerateInputError) Error() string {
	switch e.Field {
	case "lat":
		return fmt.Sprintf("geo: latitude %v outside [-90, 90]", e.Value)
	case "lon":
		return fmt.Sprintf("geo: longitude %v outside [-180, 180]", e.Value)
	default:
		return fmt.Sprintf("geo: invalid %s %v", e.Field, e.Value)
	}
}

// ValidateCoordinates rejects non-finite or out-of-range coordinates.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return &DegenerateInputError{Field: "lat", Value: lat}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return &DegenerateInputError{Field: "lon", Value: lon}
	}
	return nil
}
