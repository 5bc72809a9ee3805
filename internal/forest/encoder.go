package forest

import (
	"slices"

	"github.com/sells-group/saferoute/internal/model"
)

// NumericFeatures lists the passthrough columns in the order they follow the
// one-hot blocks of an encoded row.
var NumericFeatures = []string{
	"latitude",
	"longitude",
	"street_lighting",
	"cctv_nearby",
	"police_distance_km",
}

// Encoder one-hot encodes time_of_day and area_type against the categories
// seen during fitting and appends the numeric features unchanged.
type Encoder struct {
	TimesOfDay []string
	AreaTypes  []string
}

// FitEncoder collects the sorted category vocabularies from records.
func FitEncoder(records []model.HistoricalRecord) *Encoder {
	tod := make(map[string]struct{})
	area := make(map[string]struct{})
	for _, r := range records {
		tod[r.TimeOfDay] = struct{}{}
		area[r.AreaType] = struct{}{}
	}
	return &Encoder{
		TimesOfDay: sortedKeys(tod),
		AreaTypes:  sortedKeys(area),
	}
}

// Width is the length of an encoded row.
func (e *Encoder) Width() int {
	return len(e.TimesOfDay) + len(e.AreaTypes) + len(NumericFeatures)
}

// FeatureNames returns a label per encoded column, e.g. "time_of_day=Night".
func (e *Encoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for _, c := range e.TimesOfDay {
		names = append(names, "time_of_day="+c)
	}
	for _, c := range e.AreaTypes {
		names = append(names, "area_type="+c)
	}
	return append(names, NumericFeatures...)
}

// Transform encodes a fully populated query. Categories not seen during
// fitting leave their block all zero.
func (e *Encoder) Transform(q model.QueryPoint) ([]float64, error) {
	if err := requireFeatures(q); err != nil {
		return nil, err
	}

	row := make([]float64, e.Width())
	if i, ok := slices.BinarySearch(e.TimesOfDay, *q.TimeOfDay); ok {
		row[i] = 1
	}
	off := len(e.TimesOfDay)
	if i, ok := slices.BinarySearch(e.AreaTypes, *q.AreaType); ok {
		row[off+i] = 1
	}
	off += len(e.AreaTypes)

	row[off] = q.Latitude
	row[off+1] = q.Longitude
	row[off+2] = float64(*q.StreetLighting)
	row[off+3] = float64(*q.CCTVNearby)
	row[off+4] = *q.PoliceDistanceKM
	return row, nil
}

func requireFeatures(q model.QueryPoint) error {
	switch {
	case q.TimeOfDay == nil:
		return &MissingFeatureError{Feature: "time_of_day"}
	case q.AreaType == nil:
		return &MissingFeatureError{Feature: "area_type"}
	case q.StreetLighting == nil:
		return &MissingFeatureError{Feature: "street_lighting"}
	case q.CCTVNearby == nil:
		return &MissingFeatureError{Feature: "cctv_nearby"}
	case q.PoliceDistanceKM == nil:
		return &MissingFeatureError{Feature: "police_distance_km"}
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
