package model

// Method identifies which estimation strategy produced a prediction.
type Method string

const (
	MethodVote     Method = "vote"     // distance-weighted neighbor vote
	MethodFallback Method = "fallback" // random forest classifier
)

// Prediction is the outcome of one query.
type Prediction struct {
	Label         string             `json:"label"`
	Method        Method             `json:"method"`
	NeighborCount int                `json:"neighbor_count"`
	Scores        map[string]float64 `json:"scores,omitempty"` // vote path only
}
