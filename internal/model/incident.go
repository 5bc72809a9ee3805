package model

// HistoricalRecord is one row of the historical incident dataset. Records are
// loaded once at startup and never mutated.
type HistoricalRecord struct {
	Latitude         float64 `json:"latitude" csv:"latitude"`
	Longitude        float64 `json:"longitude" csv:"longitude"`
	TimeOfDay        string  `json:"time_of_day" csv:"time_of_day"`
	AreaType         string  `json:"area_type" csv:"area_type"`
	StreetLighting   int     `json:"street_lighting" csv:"street_lighting"`
	CCTVNearby       int     `json:"cctv_nearby" csv:"cctv_nearby"`
	PoliceDistanceKM float64 `json:"police_distance_km" csv:"police_distance_km"`
	SafetyLevel      string  `json:"safety_level" csv:"safety_level"`
}

// Query returns the contextual attributes of the record as a fully populated
// QueryPoint.
func (r HistoricalRecord) Query() QueryPoint {
	tod, area := r.TimeOfDay, r.AreaType
	lighting, cctv, police := r.StreetLighting, r.CCTVNearby, r.PoliceDistanceKM
	return QueryPoint{
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		TimeOfDay:        &tod,
		AreaType:         &area,
		StreetLighting:   &lighting,
		CCTVNearby:       &cctv,
		PoliceDistanceKM: &police,
	}
}

// QueryPoint is the input of a single prediction. Contextual attributes are
// optional; nil means the caller did not supply the value.
type QueryPoint struct {
	Latitude         float64  `json:"lat"`
	Longitude        float64  `json:"lon"`
	TimeOfDay        *string  `json:"time_of_day,omitempty"`
	AreaType         *string  `json:"area_type,omitempty"`
	StreetLighting   *int     `json:"street_lighting,omitempty"`
	CCTVNearby       *int     `json:"cctv_nearby,omitempty"`
	PoliceDistanceKM *float64 `json:"police_distance_km,omitempty"`
}

// Context holds a complete set of contextual attributes. It is used for
// configured request defaults.
type Context struct {
	TimeOfDay        string  `yaml:"time_of_day" mapstructure:"time_of_day"`
	AreaType         string  `yaml:"area_type" mapstructure:"area_type"`
	StreetLighting   int     `yaml:"street_lighting" mapstructure:"street_lighting"`
	CCTVNearby       int     `yaml:"cctv_nearby" mapstructure:"cctv_nearby"`
	PoliceDistanceKM float64 `yaml:"police_distance_km" mapstructure:"police_distance_km"`
}

// WithDefaults returns a copy of q where every absent contextual attribute is
// taken from c. Attributes the caller supplied are left untouched.
func (q QueryPoint) WithDefaults(c Context) QueryPoint {
	if q.TimeOfDay == nil {
		v := c.TimeOfDay
		q.TimeOfDay = &v
	}
	if q.AreaType == nil {
		v := c.AreaType
		q.AreaType = &v
	}
	if q.StreetLighting == nil {
		v := c.StreetLighting
		q.StreetLighting = &v
	}
	if q.CCTVNearby == nil {
		v := c.CCTVNearby
		q.CCTVNearby = &v
	}
	if q.PoliceDistanceKM == nil {
		v := c.PoliceDistanceKM
		q.PoliceDistanceKM = &v
	}
	return q
}

// Neighbor pairs a historical record with its distance from a query point.
type Neighbor struct {
	Record     HistoricalRecord
	DistanceKM float64
}
