package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineKM_KnownDistance(t *testing.T) {
	// Chennai Central (13.0827, 80.2707) to Chennai Airport (12.9941, 80.1709) ≈ 14.6km.
	d := HaversineKM(13.0827, 80.2707, 12.9941, 80.1709)
	assert.InDelta(t, 14.6, d, 0.5)
}

func TestHaversineKM_SamePoint(t *testing.T) {
	points := [][2]float64{{0, 0}, {13.0827, 80.2707}, {-33.8688, 151.2093}, {90, 0}}
	for _, p := range points {
		assert.Equal(t, 0.0, HaversineKM(p[0], p[1], p[0], p[1]))
	}
}

func TestHaversineKM_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{13.0827, 80.2707, 13.0604, 80.2496},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{-33.8688, 151.2093, 35.6762, 139.6503},
	}
	for _, p := range pairs {
		ab := HaversineKM(p[0], p[1], p[2], p[3])
		ba := HaversineKM(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestHaversineKM_MatchesS2(t *testing.T) {
	pairs := [][4]float64{
		{13.0827, 80.2707, 13.0604, 80.2496},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{0, 0, 0, 180},
		{-45, -170, 45, 170},
	}
	for _, p := range pairs {
		a := s2.LatLngFromDegrees(p[0], p[1])
		b := s2.LatLngFromDegrees(p[2], p[3])
		want := a.Distance(b).Radians() * EarthRadiusKM
		got := HaversineKM(p[0], p[1], p[2], p[3])
		assert.InDelta(t, want, got, 1e-6*math.Max(1, want))
	}
}

func TestHaversineKM_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(HaversineKM(math.NaN(), 0, 0, 0)))
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr string
	}{
		{"valid", 13.08, 80.27, ""},
		{"poles and antimeridian", -90, 180, ""},
		{"lat too high", 90.01, 0, "lat"},
		{"lat too low", -91, 0, "lat"},
		{"lon too high", 0, 180.5, "lon"},
		{"lat NaN", math.NaN(), 0, "lat"},
		{"lon inf", 0, math.Inf(1), "lon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var de *DegenerateInputError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantErr, de.Field)
		})
	}
}
