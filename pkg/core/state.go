package core

import (
	"context"
	"time"
)

// Store defines the interface for persisting pipeline runs and their output.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(ctx context.Context, dataset string) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	GetLatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, counts RunCounts, errMsg string) error

	// Result operations
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	ListPhonemes(ctx context.Context, runID string) ([]PhonemeEntry, error)
	GetPhoneme(ctx context.Context, runID, phoneme string) (*PhonemeEntry, error)
	ListInventories(ctx context.Context, runID string) ([]*Inventory, error)
	GetInventory(ctx context.Context, runID, inventoryID string) (*Inventory, error)
	FindInventoriesByGlottocode(ctx context.Context, runID, glottocode string) ([]*Inventory, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunCounts summarizes what a run produced.
type RunCounts struct {
	Rows        int
	Attested    int
	Derived     int
	Inventories int
	Enriched    int
}

// Run represents one execution of the build pipeline.
type Run struct {
	ID          string
	Dataset     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Counts      RunCounts
	Error       string
}

// Snapshot is the complete output of a run, ready to persist or export.
type Snapshot struct {
	RunID       string
	Phonemes    []PhonemeEntry
	Inventories []*Inventory
}
