package runs

import (
	"context"

	"github.com/google/uuid"

	"krx-market-lab/internal/storage"
)

// ResolveExisting returns runID only if the run row is actually persisted,
// nil otherwise. Child rows stamp run references through this so a dangling
// id degrades to NULL instead of breaking referential integrity. Every
// component writing run-stamped rows shares this one resolution path.
func ResolveExisting(ctx context.Context, store storage.RunStore, runID *uuid.UUID) *uuid.UUID {
	if runID == nil || *runID == uuid.Nil {
		return nil
	}
	exists, err := store.Exists(ctx, *runID)
	if err != nil || !exists {
		return nil
	}
	return runID
}
