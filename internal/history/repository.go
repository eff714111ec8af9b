package history

import "context"

// Repository defines the data access contract for the prediction log.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Save inserts a prediction and fills in its ID and CreatedAt.
	Save(ctx context.Context, p *Prediction) error

	// List returns recorded predictions, newest first.
	List(ctx context.Context, limit, offset int) ([]Prediction, error)

	// Stats aggregates the full log.
	Stats(ctx context.Context) (*Stats, error)

	// Delete removes a single prediction. Returns ErrNotFound if it
	// doesn't exist.
	Delete(ctx context.Context, id int64) error

	// Clear removes every prediction and reports how many were deleted.
	Clear(ctx context.Context) (int64, error)
}
