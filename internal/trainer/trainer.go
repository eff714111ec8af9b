// Package trainer restores the churn model from the state store at
// startup, training a fresh one from the configured dataset when no
// usable state exists.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/churn"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/config"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/dataset"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/storage"
)

// Trainer owns the startup model bootstrap. Run is meant to be called
// once, in the background, while the API starts serving.
type Trainer struct {
	predictor *churn.Predictor
	store     churn.StateStore
	cfg       config.DatasetConfig
	loading   atomic.Bool
}

func New(predictor *churn.Predictor, store churn.StateStore, cfg config.DatasetConfig) *Trainer {
	return &Trainer{predictor: predictor, store: store, cfg: cfg}
}

// Loading reports whether the startup bootstrap is still in progress.
func (t *Trainer) Loading() bool { return t.loading.Load() }

// Run restores saved model state, or trains a new model from the
// configured dataset when the store is empty or holds corrupt state.
// A save failure after training is logged but not fatal; the in-memory
// model still serves.
func (t *Trainer) Run(ctx context.Context) error {
	t.loading.Store(true)
	defer t.loading.Store(false)

	err := t.predictor.LoadState(ctx, t.store)
	if err == nil {
		return nil
	}

	var corrupt *churn.CorruptModelStateError
	switch {
	case errors.Is(err, storage.ErrStateNotFound):
		log.Println("[trainer] no saved model found, training a new one")
	case errors.As(err, &corrupt):
		log.Printf("[trainer] discarding saved model: %v", err)
	default:
		return fmt.Errorf("loading model state: %w", err)
	}

	return t.train(ctx)
}

func (t *Trainer) train(ctx context.Context) error {
	source := t.cfg.Source
	if source == "" {
		source = dataset.DefaultSourceURL
	}
	features := t.cfg.Features
	if len(features) == 0 {
		features = dataset.DefaultFeatures()
	}
	label := t.cfg.LabelColumn
	if label == "" {
		label = dataset.DefaultLabelColumn
	}

	log.Printf("[trainer] loading dataset from %s", source)
	raw, err := dataset.Load(ctx, source)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	ds, err := dataset.Prepare(raw, features, label)
	if err != nil {
		return fmt.Errorf("preparing dataset: %w", err)
	}

	log.Printf("[trainer] training on %d rows, %d features", len(ds.Rows), len(features))
	metrics, err := t.predictor.Train(ctx, ds)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}
	log.Printf("[trainer] model trained: accuracy %.2f%% on %d held-out rows",
		metrics.Accuracy, metrics.TestSamples)

	if err := t.predictor.SaveState(ctx, t.store); err != nil {
		log.Printf("[trainer] warning: trained model not persisted: %v", err)
	}
	return nil
}
