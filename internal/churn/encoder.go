package churn

import "sort"

// Encoder maps the categorical values of one feature to consecutive
// integer codes. Codes are assigned in lexicographic order of the
// distinct values seen during Fit, so the mapping depends only on the
// value set, never on row order. A fitted Encoder is immutable.
type Encoder struct {
	feature string
	classes []string       // code -> value, lexicographic
	codes   map[string]int // value -> code
}

// NewEncoder creates an unfitted encoder for the named feature.
func NewEncoder(feature string) *Encoder {
	return &Encoder{feature: feature}
}

// Fit assigns codes to the distinct values of the given column.
func (e *Encoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	distinct := make([]string, 0, 16)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	e.classes = distinct
	e.codes = make(map[string]int, len(distinct))
	for code, v := range distinct {
		e.codes[v] = code
	}
}

// Encode returns the code for a value. Values outside the fitted
// vocabulary return UnknownCategoryError.
func (e *Encoder) Encode(value string) (int, error) {
	code, ok := e.codes[value]
	if !ok {
		return 0, &UnknownCategoryError{Feature: e.feature, Value: value}
	}
	return code, nil
}

// Feature returns the feature name this encoder belongs to.
func (e *Encoder) Feature() string { return e.feature }

// Classes returns the fitted vocabulary in code order.
func (e *Encoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// restoreEncoder rebuilds a fitted encoder from a persisted vocabulary.
// The class order is trusted as-is so restored models encode exactly
// like the model that was saved.
func restoreEncoder(feature string, classes []string) *Encoder {
	e := &Encoder{
		feature: feature,
		classes: append([]string(nil), classes...),
		codes:   make(map[string]int, len(classes)),
	}
	for code, v := range e.classes {
		e.codes[v] = code
	}
	return e
}
