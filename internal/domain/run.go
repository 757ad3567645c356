package domain

import (
	"time"

	"github.com/google/uuid"
)

// CollectionRun is one bounded execution of the ingestion pipeline over a
// date window. Corresponds to the collection_runs table in PostgreSQL.
// A run is created RUNNING and finalized exactly once into a terminal state.
type CollectionRun struct {
	RunID        uuid.UUID
	PipelineName string
	SourceName   string
	WindowStart  time.Time
	WindowEnd    time.Time
	Status       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	SuccessCount int
	FailureCount int
	WarningCount int
}

// Run statuses. RUNNING is the only non-terminal state.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusPartial = "PARTIAL"
	RunStatusFailed  = "FAILED"
)
