// Package boosting implements gradient boosted decision trees for
// binary classification with logistic loss.
//
// Training uses second-order boosting with exact greedy splits. There
// is no row or column subsampling and candidate splits are scanned in a
// fixed order, so a fit is fully deterministic for a given dataset and
// configuration. A fitted Booster is immutable and safe for concurrent
// prediction.
package boosting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNotFitted is returned by prediction methods before Fit has run.
var ErrNotFitted = errors.New("booster has not been fitted")

// Config controls ensemble training.
type Config struct {
	Rounds         int     // number of trees, default 100
	MaxDepth       int     // maximum tree depth, default 5
	LearningRate   float64 // shrinkage applied to each leaf, default 0.1
	Lambda         float64 // L2 regularization on leaf weights, default 1.0
	Gamma          float64 // minimum gain required to split, default 0
	MinChildWeight float64 // minimum hessian sum per child, default 1.0

	// Progress, when set, is called after each completed round with the
	// number of rounds finished so far.
	Progress func(round int)
}

func (c Config) withDefaults() Config {
	if c.Rounds <= 0 {
		c.Rounds = 100
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 5
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.Lambda <= 0 {
		c.Lambda = 1.0
	}
	if c.MinChildWeight <= 0 {
		c.MinChildWeight = 1.0
	}
	return c
}

// Booster is a gradient boosted tree ensemble. The exported fields are
// the complete trained model; they serialize to JSON as part of the
// persisted model state.
type Booster struct {
	cfg Config

	BaseScore   float64 `json:"base_score"` // initial margin
	NumFeatures int     `json:"num_features"`
	Trees       []Tree  `json:"trees"`
}

// New creates an unfitted booster. Zero config fields take defaults.
func New(cfg Config) *Booster {
	return &Booster{cfg: cfg.withDefaults()}
}

func (b *Booster) fitted() bool { return len(b.Trees) > 0 }

// Fit trains the ensemble on row-major features and 0/1 labels. The
// context is checked between rounds; a canceled fit leaves the booster
// unfitted.
func (b *Booster) Fit(ctx context.Context, features [][]float64, labels []int) error {
	n := len(features)
	if n == 0 {
		return errors.New("no training rows")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("no feature columns")
	}
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), width)
		}
	}
	if len(labels) != n {
		return fmt.Errorf("got %d labels for %d rows", len(labels), n)
	}
	for i, y := range labels {
		if y != 0 && y != 1 {
			return fmt.Errorf("label at row %d is %d, want 0 or 1", i, y)
		}
	}

	b.NumFeatures = width
	b.BaseScore = 0
	b.Trees = make([]Tree, 0, b.cfg.Rounds)

	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	margins := make([]float64, n)
	grad := make([]float64, n)
	hess := make([]float64, n)

	for round := 0; round < b.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			b.Trees = nil
			return err
		}

		for i := 0; i < n; i++ {
			p := sigmoid(b.BaseScore + margins[i])
			grad[i] = p - float64(labels[i])
			hess[i] = p * (1 - p)
		}

		tree := b.buildTree(rows, grad, hess, features)
		b.Trees = append(b.Trees, tree)
		for i := 0; i < n; i++ {
			margins[i] += tree.Output(features[i])
		}

		if b.cfg.Progress != nil {
			b.cfg.Progress(round + 1)
		}
	}
	return nil
}

// PredictProbability returns P(label=1) for a feature vector.
func (b *Booster) PredictProbability(x []float64) (float64, error) {
	if !b.fitted() {
		return 0, ErrNotFitted
	}
	if len(x) != b.NumFeatures {
		return 0, fmt.Errorf("feature vector has %d values, want %d", len(x), b.NumFeatures)
	}
	margin := b.BaseScore
	for i := range b.Trees {
		margin += b.Trees[i].Output(x)
	}
	return sigmoid(margin), nil
}

// Importances returns per-feature importance as the total split gain
// collected by each feature, normalized to sum to 1. When the ensemble
// never split (degenerate training data) all importances are zero.
func (b *Booster) Importances() ([]float64, error) {
	if !b.fitted() {
		return nil, ErrNotFitted
	}
	gains := make([]float64, b.NumFeatures)
	total := 0.0
	for _, t := range b.Trees {
		for _, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			gains[n.Feature] += n.Gain
			total += n.Gain
		}
	}
	if total > 0 {
		for i := range gains {
			gains[i] /= total
		}
	}
	return gains, nil
}

// Validate checks a deserialized ensemble for structural integrity.
func (b *Booster) Validate() error {
	if !b.fitted() {
		return ErrNotFitted
	}
	if b.NumFeatures <= 0 {
		return fmt.Errorf("ensemble reports %d features", b.NumFeatures)
	}
	for i := range b.Trees {
		if err := b.Trees[i].validate(b.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *Booster) buildTree(rows []int, grad, hess []float64, features [][]float64) Tree {
	t := Tree{}
	b.buildNode(&t, rows, grad, hess, features, 0)
	return t
}

// buildNode appends the subtree covering rows and returns its index.
// The parent slot is reserved before the children are built, so child
// indexes are always greater than the parent's.
func (b *Booster) buildNode(t *Tree, rows []int, grad, hess []float64, features [][]float64, depth int) int {
	var g, h float64
	for _, i := range rows {
		g += grad[i]
		h += hess[i]
	}

	if depth >= b.cfg.MaxDepth || len(rows) < 2 {
		return t.appendLeaf(b.leafWeight(g, h))
	}

	best, ok := b.bestSplit(rows, g, h, grad, hess, features)
	if !ok {
		return t.appendLeaf(b.leafWeight(g, h))
	}

	var left, right []int
	for _, i := range rows {
		if features[i][best.feature] < best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{})
	leftIdx := b.buildNode(t, left, grad, hess, features, depth+1)
	rightIdx := b.buildNode(t, right, grad, hess, features, depth+1)
	t.Nodes[idx] = Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      leftIdx,
		Right:     rightIdx,
		Gain:      best.gain,
	}
	return idx
}

func (b *Booster) leafWeight(g, h float64) float64 {
	return -b.cfg.LearningRate * g / (h + b.cfg.Lambda)
}

// bestSplit scans every feature in index order and every threshold in
// ascending value order, keeping the first candidate with the strictly
// highest gain. Ties therefore resolve to the lowest feature index and
// lowest threshold, which keeps training deterministic.
func (b *Booster) bestSplit(rows []int, gTotal, hTotal float64, grad, hess []float64, features [][]float64) (split, bool) {
	lambda := b.cfg.Lambda
	parentScore := gTotal * gTotal / (hTotal + lambda)

	var best split
	found := false

	order := make([]int, len(rows))
	for f := 0; f < len(features[rows[0]]); f++ {
		copy(order, rows)
		sort.SliceStable(order, func(i, j int) bool {
			return features[order[i]][f] < features[order[j]][f]
		})

		var gl, hl float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			gl += grad[i]
			hl += hess[i]

			v, next := features[i][f], features[order[k+1]][f]
			if v == next {
				continue
			}
			gr, hr := gTotal-gl, hTotal-hl
			if hl < b.cfg.MinChildWeight || hr < b.cfg.MinChildWeight {
				continue
			}
			gain := 0.5*(gl*gl/(hl+lambda)+gr*gr/(hr+lambda)-parentScore) - b.cfg.Gamma
			if gain <= 0 {
				continue
			}
			if !found || gain > best.gain {
				best = split{feature: f, threshold: (v + next) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}
