package history

import (
	"context"
	"fmt"
)

// Paging bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Service implements history business logic on top of a repository.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a history service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record validates and persists one prediction.
func (s *Service) Record(ctx context.Context, p *Prediction) error {
	if p.PredictionType == "" {
		p.PredictionType = TypeSingle
	}
	if p.PredictionType != TypeSingle && p.PredictionType != TypeBatch {
		return fmt.Errorf("unknown prediction type %q", p.PredictionType)
	}
	return s.repo.Save(ctx, p)
}

// List returns recent predictions, newest first. Non-positive limits
// fall back to DefaultLimit, oversized ones are capped at MaxLimit, and
// negative offsets read from the start.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Prediction, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Stats aggregates the full prediction log.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// Delete removes one prediction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Clear wipes the log and reports how many rows were removed.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	return s.repo.Clear(ctx)
}
