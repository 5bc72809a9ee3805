// Package predict chooses, per query, between the neighborhood vote and the
// fallback classifier.
package predict

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/forest"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/vote"
)

// Default thresholds of the vote/fallback boundary.
const (
	DefaultRadiusKM     = 2.0
	DefaultMinNeighbors = 3
)

// Classifier is the fallback model consulted for sparse neighborhoods.
type Classifier interface {
	Predict(q model.QueryPoint) (string, error)
	Classes() []string
}

// Settings controls the vote/fallback boundary.
type Settings struct {
	RadiusKM     float64
	MinNeighbors int
	Epsilon      float64
}

// DefaultSettings returns radius 2 km, 3 neighbors, epsilon 0.001.
func DefaultSettings() Settings {
	return Settings{
		RadiusKM:     DefaultRadiusKM,
		MinNeighbors: DefaultMinNeighbors,
		Epsilon:      vote.Epsilon,
	}
}

// Snapshot is the immutable state every request reads: the historical records
// in dataset order, the trained fallback, and the thresholds.
type Snapshot struct {
	records    []model.HistoricalRecord
	classifier Classifier
	settings   Settings
}

// NewSnapshot validates its inputs and captures them. The records slice must
// not be modified afterwards.
func NewSnapshot(records []model.HistoricalRecord, classifier Classifier, settings Settings) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, eris.New("predict: no historical records")
	}
	if classifier == nil {
		return nil, eris.New("predict: nil classifier")
	}
	if !(settings.RadiusKM > 0) {
		return nil, eris.Errorf("predict: radius must be positive, got %v", settings.RadiusKM)
	}
	if settings.MinNeighbors < 1 {
		return nil, eris.Errorf("predict: min neighbors must be at least 1, got %d", settings.MinNeighbors)
	}
	if !(settings.Epsilon > 0) {
		return nil, eris.Errorf("predict: epsilon must be positive, got %v", settings.Epsilon)
	}
	return &Snapshot{records: records, classifier: classifier, settings: settings}, nil
}

// Build trains the fallback forest on records and returns the snapshot.
func Build(ctx context.Context, records []model.HistoricalRecord, opts forest.Options, settings Settings) (*Snapshot, error) {
	m, err := forest.Train(ctx, records, opts)
	if err != nil {
		return nil, eris.Wrap(err, "predict: train fallback")
	}
	return NewSnapshot(records, m, settings)
}

// Len returns the number of historical records.
func (s *Snapshot) Len() int { return len(s.records) }

// Classes returns the labels the fallback can produce.
func (s *Snapshot) Classes() []string { return slices.Clone(s.classifier.Classes()) }

// Settings returns the thresholds in effect.
func (s *Snapshot) Settings() Settings { return s.settings }
