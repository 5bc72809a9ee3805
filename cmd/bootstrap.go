package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/config"
	"github.com/sells-group/saferoute/internal/dataset"
	"github.com/sells-group/saferoute/internal/forest"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/predict"
)

func forestOptions(mc config.ModelConfig) forest.Options {
	return forest.Options{
		Trees:           mc.Trees,
		Seed:            mc.Seed,
		MaxDepth:        mc.MaxDepth,
		MinSamplesSplit: mc.MinSamplesSplit,
		MinSamplesLeaf:  mc.MinSamplesLeaf,
		MaxFeatures:     mc.MaxFeatures,
		Workers:         mc.Workers,
	}
}

func predictSettings(pc config.PredictConfig) predict.Settings {
	return predict.Settings{
		RadiusKM:     pc.RadiusKM,
		MinNeighbors: pc.MinNeighbors,
		Epsilon:      pc.Epsilon,
	}
}

// loadSnapshot loads the dataset and trains the fallback. It returns the
// time spent training.
func loadSnapshot(ctx context.Context, c *config.Config) (*predict.Snapshot, time.Duration, error) {
	records, err := dataset.Load(ctx, c.Dataset)
	if err != nil {
		return nil, 0, err
	}
	return buildSnapshot(ctx, c, records)
}

func buildSnapshot(ctx context.Context, c *config.Config, records []model.HistoricalRecord) (*predict.Snapshot, time.Duration, error) {
	start := time.Now()
	snap, err := predict.Build(ctx, records, forestOptions(c.Model), predictSettings(c.Predict))
	if err != nil {
		return nil, 0, eris.Wrap(err, "build predictor")
	}
	elapsed := time.Since(start)

	zap.L().Info("predictor ready",
		zap.Int("records", snap.Len()),
		zap.Strings("classes", snap.Classes()),
		zap.Float64("radius_km", c.Predict.RadiusKM),
		zap.Int("min_neighbors", c.Predict.MinNeighbors),
		zap.Duration("training", elapsed),
	)
	return snap, elapsed, nil
}
