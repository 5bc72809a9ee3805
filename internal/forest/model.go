package forest

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/model"
)

// TrainedModel pairs the fitted encoder with the fitted forest. It is built
// once and only read afterwards.
type TrainedModel struct {
	encoder *Encoder
	forest  *Forest
	classes []string
}

// Train fits the encoder and the forest on the full record set.
func Train(ctx context.Context, records []model.HistoricalRecord, opts Options) (*TrainedModel, error) {
	if len(records) == 0 {
		return nil, eris.New("forest: no records to train on")
	}
	start := time.Now()

	enc := FitEncoder(records)

	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.SafetyLevel] = struct{}{}
	}
	classes := sortedKeys(seen)

	x := make([][]float64, len(records))
	y := make([]int, len(records))
	for i, r := range records {
		row, err := enc.Transform(r.Query())
		if err != nil {
			return nil, eris.Wrapf(err, "forest: encode record %d", i)
		}
		x[i] = row
		y[i], _ = slices.BinarySearch(classes, r.SafetyLevel)
	}

	f, err := Fit(ctx, x, y, len(classes), opts)
	if err != nil {
		return nil, err
	}

	zap.L().Info("forest: model trained",
		zap.Int("records", len(records)),
		zap.Int("trees", f.Size()),
		zap.Int("features", enc.Width()),
		zap.Strings("classes", classes),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &TrainedModel{encoder: enc, forest: f, classes: classes}, nil
}

// Predict returns the majority label for q. It fails only when q lacks a
// contextual attribute.
func (m *TrainedModel) Predict(q model.QueryPoint) (string, error) {
	row, err := m.encoder.Transform(q)
	if err != nil {
		return "", err
	}
	return m.classes[m.forest.Predict(row)], nil
}

// Classes returns the known labels in sorted order.
func (m *TrainedModel) Classes() []string {
	return slices.Clone(m.classes)
}

// Encoder exposes the fitted encoder.
func (m *TrainedModel) Encoder() *Encoder {
	return m.encoder
}
