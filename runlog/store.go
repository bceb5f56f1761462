package runlog

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for run history persistence.
type Store interface {
	// Create records a run as started.
	Create(ctx context.Context, run *Run) error

	// GetByID retrieves a run by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// Finish stores the outcome of a running run and stamps its end time.
	Finish(ctx context.Context, id uuid.UUID, outcome Outcome) error

	// List returns runs newest first, optionally filtered by command.
	List(ctx context.Context, command string, limit, offset int) ([]*Run, error)

	// Count returns the number of runs, optionally filtered by command.
	Count(ctx context.Context, command string) (int, error)
}
