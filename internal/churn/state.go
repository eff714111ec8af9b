package churn

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/boosting"
)

// stateSchemaVersion identifies the persisted model state layout.
// Loads reject any other version.
const stateSchemaVersion = 1

// StateStore persists the serialized model state as a single blob.
// Implementations live in internal/storage.
type StateStore interface {
	SaveModelState(ctx context.Context, data []byte) error
	LoadModelState(ctx context.Context) ([]byte, error)
}

// modelStateDoc is the on-disk layout of a trained model. Classifier,
// encoders, metrics and feature names travel as one unit so a load can
// never mix parts from different training runs.
type modelStateDoc struct {
	SchemaVersion int                 `json:"schema_version"`
	ModelID       string              `json:"model_id"`
	TrainedAt     time.Time           `json:"trained_at"`
	FeatureNames  []string            `json:"feature_names"`
	Encoders      map[string][]string `json:"encoders"` // feature -> classes in code order
	LabelColumn   string              `json:"label_column"`
	LabelClasses  []string            `json:"label_classes"`
	PositiveCode  int                 `json:"positive_code"`
	Booster       *boosting.Booster   `json:"booster"`
	Metrics       Metrics             `json:"metrics"`
}

// SaveState serializes the current model and writes it through the
// store. An untrained predictor cannot be saved.
func (p *Predictor) SaveState(ctx context.Context, store StateStore) error {
	st := p.state.Load()
	if st == nil {
		return ErrNotTrained
	}

	doc := modelStateDoc{
		SchemaVersion: stateSchemaVersion,
		ModelID:       st.modelID,
		TrainedAt:     st.trainedAt,
		FeatureNames:  st.featureNames,
		Encoders:      make(map[string][]string, len(st.encoders)),
		LabelColumn:   p.cfg.LabelColumn,
		LabelClasses:  st.labelClasses,
		PositiveCode:  st.positiveCode,
		Booster:       st.booster,
		Metrics:       st.metrics,
	}
	for name, enc := range st.encoders {
		doc.Encoders[name] = enc.Classes()
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model state: %w", err)
	}
	if err := store.SaveModelState(ctx, data); err != nil {
		return fmt.Errorf("saving model state: %w", err)
	}
	return nil
}

// LoadState reads persisted state from the store, validates it, and
// installs it atomically. Decode and validation failures return
// CorruptModelStateError and keep the current model.
func (p *Predictor) LoadState(ctx context.Context, store StateStore) error {
	data, err := store.LoadModelState(ctx)
	if err != nil {
		return err
	}
	st, err := decodeState(data)
	if err != nil {
		return err
	}

	p.trainMu.Lock()
	p.state.Store(st)
	p.trainMu.Unlock()

	log.Printf("[churn] model %s loaded: accuracy %.2f%%, trained %s",
		st.modelID, st.metrics.Accuracy, st.trainedAt.Format(time.RFC3339))
	return nil
}

func decodeState(data []byte) (*modelState, error) {
	var doc modelStateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptModelStateError{Reason: "undecodable JSON", Err: err}
	}
	if doc.SchemaVersion != stateSchemaVersion {
		return nil, &CorruptModelStateError{
			Reason: fmt.Sprintf("schema version %d, want %d", doc.SchemaVersion, stateSchemaVersion),
		}
	}
	if len(doc.FeatureNames) == 0 {
		return nil, &CorruptModelStateError{Reason: "no feature names"}
	}
	if len(doc.LabelClasses) != 2 {
		return nil, &CorruptModelStateError{
			Reason: fmt.Sprintf("%d label classes, want 2", len(doc.LabelClasses)),
		}
	}
	if doc.PositiveCode != 0 && doc.PositiveCode != 1 {
		return nil, &CorruptModelStateError{
			Reason: fmt.Sprintf("positive label code %d out of range", doc.PositiveCode),
		}
	}
	if doc.Booster == nil {
		return nil, &CorruptModelStateError{Reason: "no classifier ensemble"}
	}
	if doc.Booster.NumFeatures != len(doc.FeatureNames) {
		return nil, &CorruptModelStateError{
			Reason: fmt.Sprintf("ensemble has %d features, state names %d",
				doc.Booster.NumFeatures, len(doc.FeatureNames)),
		}
	}
	if err := doc.Booster.Validate(); err != nil {
		return nil, &CorruptModelStateError{Reason: "invalid classifier ensemble", Err: err}
	}

	names := make(map[string]struct{}, len(doc.FeatureNames))
	for _, n := range doc.FeatureNames {
		names[n] = struct{}{}
	}
	encoders := make(map[string]*Encoder, len(doc.Encoders))
	for feature, classes := range doc.Encoders {
		if _, ok := names[feature]; !ok {
			return nil, &CorruptModelStateError{
				Reason: fmt.Sprintf("encoder for unknown feature %q", feature),
			}
		}
		if len(classes) == 0 {
			return nil, &CorruptModelStateError{
				Reason: fmt.Sprintf("encoder for %q has no classes", feature),
			}
		}
		encoders[feature] = restoreEncoder(feature, classes)
	}

	return &modelState{
		modelID:      doc.ModelID,
		trainedAt:    doc.TrainedAt,
		featureNames: doc.FeatureNames,
		encoders:     encoders,
		labelClasses: doc.LabelClasses,
		positiveCode: doc.PositiveCode,
		booster:      doc.Booster,
		metrics:      doc.Metrics,
	}, nil
}
