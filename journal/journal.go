package journal

import (
	"context"

	"github.com/xmrt-ecosystem/learning/experience"
)

// Journal records processed experiences outside the engine's in-memory state.
type Journal interface {
	// Append records one processed experience.
	Append(ctx context.Context, exp experience.Experience) error

	// Recent returns up to n of the most recently appended experiences,
	// newest first.
	Recent(ctx context.Context, n int) ([]experience.Experience, error)

	// Close releases the journal's resources.
	Close() error
}
