package forest

import (
	"cmp"
	"math/rand/v2"
	"slices"
)

// node is a decision tree node. Leaves have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	class     int
}

// tree is a CART classifier stored as a flat node slice; nodes[0] is the root.
type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) int {
	i := 0
	for {
		n := &t.nodes[i]
		if n.feature < 0 {
			return n.class
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// grower builds one tree from a bootstrap sample.
type grower struct {
	x           [][]float64
	y           []int
	nClasses    int
	maxFeatures int
	opts        Options
	rng         *rand.Rand
	nodes       []node
	buf         []int
}

func (g *grower) grow(idx []int, depth int) int {
	counts := make([]int, g.nClasses)
	for _, i := range idx {
		counts[g.y[i]]++
	}
	majority := argmax(counts)

	self := len(g.nodes)
	g.nodes = append(g.nodes, node{feature: -1, class: majority})

	if counts[majority] == len(idx) ||
		len(idx) < g.opts.MinSamplesSplit ||
		len(idx) < 2*g.opts.MinSamplesLeaf ||
		(g.opts.MaxDepth > 0 && depth >= g.opts.MaxDepth) {
		return self
	}

	feature, threshold, ok := g.bestSplit(idx, counts)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[self] = node{feature: feature, threshold: threshold, left: l, right: r, class: majority}
	return self
}

// bestSplit evaluates a random subset of features, skipping constant ones
// without counting them, and returns the threshold that minimizes the
// weighted Gini impurity of the children.
func (g *grower) bestSplit(idx []int, counts []int) (int, float64, bool) {
	n := len(idx)
	bestScore := -1.0
	bestFeature := -1
	bestThreshold := 0.0

	leftCounts := make([]int, g.nClasses)
	rightCounts := make([]int, g.nClasses)

	visited := 0
	for _, f := range g.rng.Perm(len(g.x[0])) {
		if visited >= g.maxFeatures {
			break
		}

		g.buf = append(g.buf[:0], idx...)
		sorted := g.buf
		slices.SortFunc(sorted, func(a, b int) int {
			return cmp.Compare(g.x[a][f], g.x[b][f])
		})
		if g.x[sorted[0]][f] == g.x[sorted[n-1]][f] {
			continue
		}
		visited++

		clear(leftCounts)
		copy(rightCounts, counts)
		var sqLeft float64
		var sqRight float64
		for _, c := range counts {
			sqRight += float64(c * c)
		}

		for pos := 0; pos < n-1; pos++ {
			c := g.y[sorted[pos]]
			sqLeft += float64(2*leftCounts[c] + 1)
			leftCounts[c]++
			sqRight -= float64(2*rightCounts[c] - 1)
			rightCounts[c]--

			lo, hi := g.x[sorted[pos]][f], g.x[sorted[pos+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := pos+1, n-pos-1
			if nl < g.opts.MinSamplesLeaf || nr < g.opts.MinSamplesLeaf {
				continue
			}

			// Maximizing this minimizes the weighted child Gini impurity.
			score := sqLeft/float64(nl) + sqRight/float64(nr)
			if score > bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold == hi {
					bestThreshold = lo
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// argmax returns the index of the largest count; ties go to the lowest index.
func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
