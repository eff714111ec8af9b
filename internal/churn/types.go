package churn

import (
	"math"
	"strconv"
)

// Value is a single feature value in a prediction record, either
// categorical (string) or numeric.
type Value struct {
	numeric bool
	str     string
	num     float64
}

// Categorical wraps a string feature value.
func Categorical(s string) Value { return Value{str: s} }

// Numeric wraps a numeric feature value.
func Numeric(f float64) Value { return Value{numeric: true, num: f} }

// IsNumeric reports whether the value carries a number.
func (v Value) IsNumeric() bool { return v.numeric }

// Num returns the numeric value (zero for categorical values).
func (v Value) Num() float64 { return v.num }

// Str returns the categorical value (empty for numeric values).
func (v Value) Str() string { return v.str }

// text renders the value for encoder lookup. Numeric values use the
// shortest decimal representation, so Numeric(0) encodes as "0".
func (v Value) text() string {
	if v.numeric {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

// Record maps feature names to values for a single customer.
type Record map[string]Value

// RiskLevel buckets a churn probability into an operator-facing tier.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// AllRiskLevels returns the tiers from least to most severe.
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}
}

// RiskLevelFor returns the tier for a probability in [0, 1].
// Boundaries are 0.25, 0.50 and 0.75, each owned by the higher tier.
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p < 0.25:
		return RiskLow
	case p < 0.50:
		return RiskMedium
	case p < 0.75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Prediction is the outcome for a single customer record.
type Prediction struct {
	ChurnProbability float64   `json:"churn_probability"` // percentage, two decimals
	RiskLevel        RiskLevel `json:"risk_level"`
	WillChurn        bool      `json:"will_churn"`
}

// Metrics describes the quality of the most recent training run.
type Metrics struct {
	Accuracy     float64 `json:"accuracy"` // percentage, two decimals
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
	TotalSamples int     `json:"total_samples"`
}

// Dataset is a labeled training table. Cells are kept as strings the way
// they arrive from CSV; numeric columns are detected during training by
// checking that every cell parses as a float.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// round2 rounds to two decimal places, the reporting precision for
// probabilities, accuracy and importances.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
