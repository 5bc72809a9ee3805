package predict

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/forest"
	"github.com/sells-group/saferoute/internal/model"
)

// Report summarises a holdout evaluation.
type Report struct {
	Train            int                  `json:"train" yaml:"train"`
	Test             int                  `json:"test" yaml:"test"`
	FallbackAccuracy float64              `json:"fallback_accuracy" yaml:"fallback_accuracy"`
	HybridAccuracy   float64              `json:"hybrid_accuracy" yaml:"hybrid_accuracy"`
	Methods          map[model.Method]int `json:"methods" yaml:"methods"`
}

// Split holds out round(fraction*len(records)) records chosen by a seeded
// shuffle. Both halves keep the original record order.
func Split(records []model.HistoricalRecord, fraction float64, seed uint64) (train, test []model.HistoricalRecord, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, eris.Errorf("predict: test fraction must be in (0, 1), got %v", fraction)
	}
	n := len(records)
	nTest := int(math.Round(fraction * float64(n)))
	if nTest < 1 || nTest >= n {
		return nil, nil, eris.Errorf("predict: cannot hold out %v of %d records", fraction, n)
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	perm := rng.Perm(n)
	testIdx := perm[:nTest]
	trainIdx := perm[nTest:]
	slices.Sort(testIdx)
	slices.Sort(trainIdx)

	train = make([]model.HistoricalRecord, 0, len(trainIdx))
	for _, i := range trainIdx {
		train = append(train, records[i])
	}
	test = make([]model.HistoricalRecord, 0, len(testIdx))
	for _, i := range testIdx {
		test = append(test, records[i])
	}
	return train, test, nil
}

// Evaluate trains on a seeded split of records and scores the held-out part
// with the fallback alone and with the full vote/fallback predictor.
func Evaluate(ctx context.Context, records []model.HistoricalRecord, opts forest.Options, settings Settings, fraction float64) (*Report, error) {
	train, test, err := Split(records, fraction, opts.Seed)
	if err != nil {
		return nil, err
	}

	snap, err := Build(ctx, train, opts, settings)
	if err != nil {
		return nil, err
	}
	p := New(snap)

	rep := &Report{Train: len(train), Test: len(test), Methods: make(map[model.Method]int)}
	var fallbackHits, hybridHits int
	for _, r := range test {
		q := r.Query()

		label, err := snap.classifier.Predict(q)
		if err != nil {
			return nil, eris.Wrap(err, "predict: evaluate fallback")
		}
		if label == r.SafetyLevel {
			fallbackHits++
		}

		pred, err := p.Predict(ctx, q)
		if err != nil {
			return nil, eris.Wrap(err, "predict: evaluate hybrid")
		}
		rep.Methods[pred.Method]++
		if pred.Label == r.SafetyLevel {
			hybridHits++
		}
	}

	rep.FallbackAccuracy = float64(fallbackHits) / float64(len(test))
	rep.HybridAccuracy = float64(hybridHits) / float64(len(test))
	return rep, nil
}
