package churn

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the prediction pipeline.
var (
	ErrNotTrained   = errors.New("model has not been trained")
	ErrEmptyDataset = errors.New("dataset contains no rows")
)

// UnknownCategoryError reports a categorical value that was never seen
// during training. Encoder vocabularies are frozen after fit, so unseen
// values are rejected instead of being mapped to a default code.
type UnknownCategoryError struct {
	Feature string
	Value   string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for feature %q", e.Value, e.Feature)
}

// SchemaMismatchError reports the difference between the features a
// record carries and the features the model was trained on.
type SchemaMismatchError struct {
	Missing []string
	Extra   []string
}

func (e *SchemaMismatchError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing features: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected features: "+strings.Join(e.Extra, ", "))
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// CorruptModelStateError reports persisted model state that could not be
// decoded or failed structural validation. A load that fails with this
// error leaves the in-memory model untouched.
type CorruptModelStateError struct {
	Reason string
	Err    error
}

func (e *CorruptModelStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt model state: %s: %v", e.Reason, e.Err)
	}
	return "corrupt model state: " + e.Reason
}

func (e *CorruptModelStateError) Unwrap() error { return e.Err }
