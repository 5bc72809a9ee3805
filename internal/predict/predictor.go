package predict

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/forest"
	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/vote"
)

// Error kinds passed to Recorder.Rejected.
const (
	KindDegenerateInput = "degenerate_input"
	KindMissingFeature  = "missing_feature"
	KindInternal        = "internal"
)

// Recorder observes prediction outcomes. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Predicted(method model.Method, neighbors int, elapsed time.Duration)
	Rejected(kind string)
}

// Predictor serves queries against a Snapshot. It holds no mutable state and
// is safe for concurrent use.
type Predictor struct {
	snap *Snapshot
	rec  Recorder
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithRecorder attaches an outcome observer.
func WithRecorder(r Recorder) Option {
	return func(p *Predictor) { p.rec = r }
}

// New returns a Predictor over snap.
func New(snap *Snapshot, opts ...Option) *Predictor {
	p := &Predictor{snap: snap}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Snapshot returns the state the predictor reads.
func (p *Predictor) Snapshot() *Snapshot { return p.snap }

// Predict returns exactly one label for q. With at least MinNeighbors records
// within RadiusKM the label comes from the weighted vote, otherwise from the
// fallback classifier.
func (p *Predictor) Predict(ctx context.Context, q model.QueryPoint) (*model.Prediction, error) {
	start := time.Now()
	pred, err := p.predict(ctx, q)
	if err != nil {
		p.reject(err)
		return nil, err
	}
	if p.rec != nil {
		p.rec.Predicted(pred.Method, pred.NeighborCount, time.Since(start))
	}
	return pred, nil
}

func (p *Predictor) predict(ctx context.Context, q model.QueryPoint) (*model.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "predict: query cancelled")
	}
	if err := geo.ValidateCoordinates(q.Latitude, q.Longitude); err != nil {
		return nil, err
	}

	s := p.snap.settings
	neighbors := vote.Search(q.Latitude, q.Longitude, p.snap.records, s.RadiusKM)

	if len(neighbors) >= s.MinNeighbors {
		label, scores, err := vote.Weighted(neighbors, s.Epsilon)
		if err != nil {
			return nil, eris.Wrap(err, "predict: weighted vote")
		}
		return &model.Prediction{
			Label:         label,
			Method:        model.MethodVote,
			NeighborCount: len(neighbors),
			Scores:        scores,
		}, nil
	}

	label, err := p.snap.classifier.Predict(q)
	if err != nil {
		return nil, err
	}
	return &model.Prediction{
		Label:         label,
		Method:        model.MethodFallback,
		NeighborCount: len(neighbors),
	}, nil
}

func (p *Predictor) reject(err error) {
	if p.rec != nil {
		p.rec.Rejected(ErrorKind(err))
	}
}

// ErrorKind classifies err as one of the Kind constants.
func ErrorKind(err error) string {
	var degenerate *geo.DegenerateInputError
	var missing *forest.MissingFeatureError
	switch {
	case errors.As(err, &degenerate):
		return KindDegenerateInput
	case errors.As(err, &missing):
		return KindMissingFeature
	default:
		return KindInternal
	}
}

// IsInputError reports whether err was caused by the query itself rather than
// by the service.
func IsInputError(err error) bool {
	return err != nil && ErrorKind(err) != KindInternal
}
