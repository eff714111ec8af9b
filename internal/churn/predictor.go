package churn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/boosting"
)

// Config controls training behavior. Zero fields take the defaults the
// service ships with.
type Config struct {
	LabelColumn   string  // label column name, default "Churn"
	PositiveLabel string  // label value that means "churned", default "Yes"
	TestFraction  float64 // held-out share for accuracy, default 0.2
	Seed          int64   // shuffle seed for the stratified split, default 42
	Boosting      boosting.Config
}

func (c Config) withDefaults() Config {
	if c.LabelColumn == "" {
		c.LabelColumn = "Churn"
	}
	if c.PositiveLabel == "" {
		c.PositiveLabel = "Yes"
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	return c
}

// modelState is the immutable product of one successful training run.
// Predictions operate on a snapshot and never lock.
type modelState struct {
	modelID      string
	trainedAt    time.Time
	featureNames []string
	encoders     map[string]*Encoder
	labelClasses []string
	positiveCode int
	booster      *boosting.Booster
	metrics      Metrics
}

// Predictor owns the full pipeline: encoder registry, classifier and
// training metrics. It starts untrained; Train and LoadState install a
// complete new state with a single atomic swap, and a failed train or
// load leaves the previous state in place.
type Predictor struct {
	cfg     Config
	trainMu sync.Mutex // serializes Train and LoadState
	state   atomic.Pointer[modelState]
}

// New creates an untrained predictor.
func New(cfg Config) *Predictor {
	return &Predictor{cfg: cfg.withDefaults()}
}

// Train fits encoders and classifier on the labeled dataset, evaluates
// accuracy on a held-out stratified split, and installs the new model.
// The previous model keeps serving until the very last step.
func (p *Predictor) Train(ctx context.Context, ds *Dataset) (*Metrics, error) {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()

	st, err := p.fit(ctx, ds)
	if err != nil {
		return nil, err
	}
	p.state.Store(st)

	log.Printf("[churn] model %s trained: accuracy %.2f%% (train=%d test=%d total=%d)",
		st.modelID, st.metrics.Accuracy, st.metrics.TrainSamples, st.metrics.TestSamples, st.metrics.TotalSamples)

	m := st.metrics
	return &m, nil
}

func (p *Predictor) fit(ctx context.Context, ds *Dataset) (*modelState, error) {
	if ds == nil || len(ds.Rows) == 0 {
		return nil, ErrEmptyDataset
	}

	labelIdx := -1
	for i, c := range ds.Columns {
		if c == p.cfg.LabelColumn {
			labelIdx = i
			break
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("dataset has no %q column", p.cfg.LabelColumn)
	}

	featureNames := make([]string, 0, len(ds.Columns)-1)
	featureIdx := make([]int, 0, len(ds.Columns)-1)
	for i, c := range ds.Columns {
		if i == labelIdx {
			continue
		}
		featureNames = append(featureNames, c)
		featureIdx = append(featureIdx, i)
	}
	if len(featureNames) == 0 {
		return nil, errors.New("dataset has no feature columns")
	}
	for i, row := range ds.Rows {
		if len(row) != len(ds.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(ds.Columns))
		}
	}

	// Encode the label, keeping track of which code means "churned" so
	// probability orientation never depends on which value sorts first.
	labelValues := column(ds.Rows, labelIdx)
	labelEnc := NewEncoder(p.cfg.LabelColumn)
	labelEnc.Fit(labelValues)
	if got := len(labelEnc.Classes()); got != 2 {
		return nil, fmt.Errorf("label column %q has %d distinct values, want 2", p.cfg.LabelColumn, got)
	}
	positiveCode, err := labelEnc.Encode(p.cfg.PositiveLabel)
	if err != nil {
		return nil, fmt.Errorf("label column %q never takes the positive value %q", p.cfg.LabelColumn, p.cfg.PositiveLabel)
	}
	labels := make([]int, len(ds.Rows))
	for i, v := range labelValues {
		code, _ := labelEnc.Encode(v)
		if code == positiveCode {
			labels[i] = 1
		}
	}

	// Fit an encoder for every non-numeric feature column; numeric
	// columns pass through as-is.
	encoders := make(map[string]*Encoder)
	features := make([][]float64, len(ds.Rows))
	for i := range features {
		features[i] = make([]float64, len(featureNames))
	}
	for j, name := range featureNames {
		col := column(ds.Rows, featureIdx[j])
		if nums, ok := numericColumn(col); ok {
			for i := range col {
				features[i][j] = nums[i]
			}
			continue
		}
		enc := NewEncoder(name)
		enc.Fit(col)
		encoders[name] = enc
		for i, cell := range col {
			code, err := enc.Encode(cell)
			if err != nil {
				return nil, err
			}
			features[i][j] = float64(code)
		}
	}

	trainIdx, testIdx := stratifiedSplit(labels, p.cfg.TestFraction, p.cfg.Seed)
	trainX := make([][]float64, len(trainIdx))
	trainY := make([]int, len(trainIdx))
	for k, i := range trainIdx {
		trainX[k] = features[i]
		trainY[k] = labels[i]
	}

	booster := boosting.New(p.cfg.Boosting)
	if err := booster.Fit(ctx, trainX, trainY); err != nil {
		return nil, fmt.Errorf("fitting classifier: %w", err)
	}

	correct := 0
	for _, i := range testIdx {
		prob, err := booster.PredictProbability(features[i])
		if err != nil {
			return nil, fmt.Errorf("evaluating classifier: %w", err)
		}
		predicted := 0
		if prob >= 0.5 {
			predicted = 1
		}
		if predicted == labels[i] {
			correct++
		}
	}
	accuracy := 0.0
	if len(testIdx) > 0 {
		accuracy = float64(correct) / float64(len(testIdx))
	}

	return &modelState{
		modelID:      uuid.New().String(),
		trainedAt:    time.Now().UTC(),
		featureNames: featureNames,
		encoders:     encoders,
		labelClasses: labelEnc.Classes(),
		positiveCode: positiveCode,
		booster:      booster,
		metrics: Metrics{
			Accuracy:     round2(accuracy * 100),
			TrainSamples: len(trainIdx),
			TestSamples:  len(testIdx),
			TotalSamples: len(ds.Rows),
		},
	}, nil
}

// Predict scores a single customer record against the current model.
func (p *Predictor) Predict(r Record) (*Prediction, error) {
	st := p.state.Load()
	if st == nil {
		return nil, ErrNotTrained
	}
	x, err := st.vector(r)
	if err != nil {
		return nil, err
	}
	prob, err := st.booster.PredictProbability(x)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		ChurnProbability: round2(prob * 100),
		RiskLevel:        RiskLevelFor(prob),
		WillChurn:        prob >= 0.5,
	}, nil
}

// FeatureImportance returns feature name -> importance percentage for
// the current model. Percentages are two-decimal and sum to roughly 100
// whenever the ensemble made at least one split.
func (p *Predictor) FeatureImportance() (map[string]float64, error) {
	st := p.state.Load()
	if st == nil {
		return nil, ErrNotTrained
	}
	imp, err := st.booster.Importances()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(st.featureNames))
	for j, name := range st.featureNames {
		out[name] = round2(imp[j] * 100)
	}
	return out, nil
}

// Metrics returns the training metrics of the current model.
func (p *Predictor) Metrics() (*Metrics, error) {
	st := p.state.Load()
	if st == nil {
		return nil, ErrNotTrained
	}
	m := st.metrics
	return &m, nil
}

// Trained reports whether a model is installed.
func (p *Predictor) Trained() bool { return p.state.Load() != nil }

// ModelID returns the ID of the current model, or "" when untrained.
func (p *Predictor) ModelID() string {
	st := p.state.Load()
	if st == nil {
		return ""
	}
	return st.modelID
}

// TrainedAt returns when the current model was trained or loaded.
func (p *Predictor) TrainedAt() time.Time {
	st := p.state.Load()
	if st == nil {
		return time.Time{}
	}
	return st.trainedAt
}

// FeatureNames returns the training feature order of the current model.
func (p *Predictor) FeatureNames() []string {
	st := p.state.Load()
	if st == nil {
		return nil
	}
	out := make([]string, len(st.featureNames))
	copy(out, st.featureNames)
	return out
}

// vector validates the record's schema against the training features
// and encodes it in training feature order.
func (st *modelState) vector(r Record) ([]float64, error) {
	var missing []string
	for _, name := range st.featureNames {
		if _, ok := r[name]; !ok {
			missing = append(missing, name)
		}
	}
	var extra []string
	if len(r) > len(st.featureNames)-len(missing) {
		known := make(map[string]struct{}, len(st.featureNames))
		for _, name := range st.featureNames {
			known[name] = struct{}{}
		}
		for name := range r {
			if _, ok := known[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
	}
	if len(missing) > 0 || len(extra) > 0 {
		return nil, &SchemaMismatchError{Missing: missing, Extra: extra}
	}

	x := make([]float64, len(st.featureNames))
	for j, name := range st.featureNames {
		v := r[name]
		enc, ok := st.encoders[name]
		if !ok {
			if v.IsNumeric() {
				x[j] = v.Num()
				continue
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
			if err != nil {
				return nil, fmt.Errorf("feature %q wants a numeric value, got %q", name, v.Str())
			}
			x[j] = parsed
			continue
		}
		code, err := enc.Encode(v.text())
		if err != nil {
			return nil, err
		}
		x[j] = float64(code)
	}
	return x, nil
}

// column extracts one cell per row at the given index.
func column(rows [][]string, idx int) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[idx]
	}
	return out
}

// numericColumn parses the column as floats. It succeeds only when
// every cell parses, which mirrors how a typed table would infer the
// column's type.
func numericColumn(col []string) ([]float64, bool) {
	nums := make([]float64, len(col))
	for i, cell := range col {
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, false
		}
		nums[i] = f
	}
	return nums, true
}
