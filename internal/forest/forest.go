// Package forest implements the fallback classifier: a one-hot feature encoder
// and a seeded random forest of CART trees.
package forest

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Options configures forest training.
type Options struct {
	Trees           int    // number of trees, default 300
	Seed            uint64 // base seed, each tree derives its own stream
	MaxDepth        int    // 0 = grow until pure
	MinSamplesSplit int    // default 2
	MinSamplesLeaf  int    // default 1
	MaxFeatures     int    // 0 = sqrt(n_features)
	Workers         int    // 0 = GOMAXPROCS
}

// DefaultOptions mirrors the reference model: 300 trees, seed 42.
func DefaultOptions() Options {
	return Options{
		Trees:           300,
		Seed:            42,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

func (o Options) withDefaults() Options {
	if o.Trees <= 0 {
		o.Trees = 300
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MinSamplesLeaf < 1 {
		o.MinSamplesLeaf = 1
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Forest is a fitted ensemble. It is safe for concurrent use.
type Forest struct {
	trees    []tree
	nClasses int
	width    int
}

// Fit trains a forest on rows x with class indices y in [0, nClasses).
// Trees are grown in parallel; the result depends only on the inputs and
// opts.Seed.
func Fit(ctx context.Context, x [][]float64, y []int, nClasses int, opts Options) (*Forest, error) {
	if len(x) == 0 {
		return nil, eris.New("forest: no training rows")
	}
	if len(x) != len(y) {
		return nil, eris.Errorf("forest: %d rows but %d labels", len(x), len(y))
	}
	if nClasses < 1 {
		return nil, eris.New("forest: no classes")
	}
	width := len(x[0])
	if width == 0 {
		return nil, eris.New("forest: rows have no features")
	}
	for i, row := range x {
		if len(row) != width {
			return nil, eris.Errorf("forest: row %d has %d features, want %d", i, len(row), width)
		}
		if y[i] < 0 || y[i] >= nClasses {
			return nil, eris.Errorf("forest: row %d has class %d outside [0, %d)", i, y[i], nClasses)
		}
	}

	opts = opts.withDefaults()
	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(width)))
	}
	maxFeatures = min(max(maxFeatures, 1), width)

	f := &Forest{trees: make([]tree, opts.Trees), nClasses: nClasses, width: width}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range opts.Trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "forest: training cancelled")
			}
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(i)))

			sample := make([]int, len(x))
			for j := range sample {
				sample[j] = rng.IntN(len(x))
			}

			gr := &grower{
				x:           x,
				y:           y,
				nClasses:    nClasses,
				maxFeatures: maxFeatures,
				opts:        opts,
				rng:         rng,
			}
			gr.grow(sample, 0)
			f.trees[i] = tree{nodes: gr.nodes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// Votes returns the number of trees voting for each class.
func (f *Forest) Votes(x []float64) []int {
	votes := make([]int, f.nClasses)
	for i := range f.trees {
		votes[f.trees[i].predict(x)]++
	}
	return votes
}

// Predict returns the majority class; ties go to the lowest class index.
func (f *Forest) Predict(x []float64) int {
	return argmax(f.Votes(x))
}

// Size returns the number of trees.
func (f *Forest) Size() int {
	return len(f.trees)
}
