// Package vote implements the neighborhood side of the predictor: a radius
// search over historical records and an inverse-distance weighted label vote.
package vote

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// Epsilon keeps the weight of a coincident neighbor finite.
const Epsilon = 0.001

// ErrNoNeighbors is returned by Weighted for an empty neighbor set.
var ErrNoNeighbors = eris.New("vote: no neighbors")

// Search returns every record within radiusKM of (lat, lon), inclusive, paired
// with its distance. It scans all records; order follows records.
func Search(lat, lon float64, records []model.HistoricalRecord, radiusKM float64) []model.Neighbor {
	var out []model.Neighbor
	for _, r := range records {
		d := geo.HaversineKM(lat, lon, r.Latitude, r.Longitude)
		if d <= radiusKM {
			out = append(out, model.Neighbor{Record: r, DistanceKM: d})
		}
	}
	return out
}

// Weighted scores each label by the sum of 1/(distance+epsilon) over the
// neighbors carrying it and returns the best label along with all scores.
// An exact tie goes to the label that appears first in neighbors.
func Weighted(neighbors []model.Neighbor, epsilon float64) (string, map[string]float64, error) {
	if len(neighbors) == 0 {
		return "", nil, ErrNoNeighbors
	}

	scores := make(map[string]float64)
	var order []string
	for _, n := range neighbors {
		label := n.Record.SafetyLevel
		if _, seen := scores[label]; !seen {
			order = append(order, label)
		}
		scores[label] += 1 / (n.DistanceKM + epsilon)
	}

	best := order[0]
	for _, label := range order[1:] {
		if scores[label] > scores[best] {
			best = label
		}
	}
	return best, scores, nil
}
