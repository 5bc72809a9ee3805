package forest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestFitEncoder_SortedVocabulary(t *testing.T) {
	enc := FitEncoder([]model.HistoricalRecord{
		{TimeOfDay: "Night", AreaType: "Residential"},
		{TimeOfDay: "Evening", AreaType: "Commercial"},
		{TimeOfDay: "Night", AreaType: "Industrial"},
		{TimeOfDay: "Afternoon", AreaType: "Commercial"},
	})

	assert.Equal(t, []string{"Afternoon", "Evening", "Night"}, enc.TimesOfDay)
	assert.Equal(t, []string{"Commercial", "Industrial", "Residential"}, enc.AreaTypes)
	assert.Equal(t, 3+3+5, enc.Width())
	assert.Equal(t, []string{
		"time_of_day=Afternoon", "time_of_day=Evening", "time_of_day=Night",
		"area_type=Commercial", "area_type=Industrial", "area_type=Residential",
		"latitude", "longitude", "street_lighting", "cctv_nearby", "police_distance_km",
	}, enc.FeatureNames())
}

func TestEncoder_Transform(t *testing.T) {
	enc := &Encoder{TimesOfDay: []string{"Evening", "Night"}, AreaTypes: []string{"Commercial", "Residential"}}

	row, err := enc.Transform(model.QueryPoint{
		Latitude:         13.08,
		Longitude:        80.27,
		TimeOfDay:        ptr("Night"),
		AreaType:         ptr("Commercial"),
		StreetLighting:   ptr(1),
		CCTVNearby:       ptr(0),
		PoliceDistanceKM: ptr(0.86),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 0, 13.08, 80.27, 1, 0, 0.86}, row)
}

func TestEncoder_UnseenCategoryIsAllZero(t *testing.T) {
	enc := &Encoder{TimesOfDay: []string{"Evening", "Night"}, AreaTypes: []string{"Commercial", "Residential"}}

	row, err := enc.Transform(model.QueryPoint{
		TimeOfDay:        ptr("Dawn"),
		AreaType:         ptr("Harbor"),
		StreetLighting:   ptr(0),
		CCTVNearby:       ptr(1),
		PoliceDistanceKM: ptr(2.5),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 1, 2.5}, row)
}

func TestEncoder_MissingFeature(t *testing.T) {
	enc := &Encoder{TimesOfDay: []string{"Evening"}, AreaTypes: []string{"Commercial"}}
	full := model.QueryPoint{
		TimeOfDay:        ptr("Evening"),
		AreaType:         ptr("Commercial"),
		StreetLighting:   ptr(1),
		CCTVNearby:       ptr(0),
		PoliceDistanceKM: ptr(0.5),
	}

	tests := []struct {
		feature string
		clear   func(q *model.QueryPoint)
	}{
		{"time_of_day", func(q *model.QueryPoint) { q.TimeOfDay = nil }},
		{"area_type", func(q *model.QueryPoint) { q.AreaType = nil }},
		{"street_lighting", func(q *model.QueryPoint) { q.StreetLighting = nil }},
		{"cctv_nearby", func(q *model.QueryPoint) { q.CCTVNearby = nil }},
		{"police_distance_km", func(q *model.QueryPoint) { q.PoliceDistanceKM = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.feature, func(t *testing.T) {
			q := full
			tt.clear(&q)
			_, err := enc.Transform(q)
			var mf *MissingFeatureError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, tt.feature, mf.Feature)
			assert.Contains(t, err.Error(), tt.feature)
		})
	}
}
