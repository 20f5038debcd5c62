// Package engine orchestrates the phonological pipeline: it loads the
// inventory table and classification inputs, derives the feature table,
// aggregates inventories, enriches them with genealogy and persists the
// result.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/internal/features"
	"github.com/leapstack-labs/leapphon/internal/state"
	"github.com/leapstack-labs/leapphon/pkg/adapter"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Engine runs the pipeline and owns the state store.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	// Export adapter (lazy initialized)
	db          adapter.Adapter
	dbConnected bool
	dbMu        sync.Mutex

	store state.Store
}

// Config holds engine configuration.
type Config struct {
	// Dataset is a path or http(s) URL of the inventory table.
	// Empty means dataset.DefaultPhoibleURL.
	Dataset string
	// Languoids is a path or URL of the languoid table. Empty skips genealogy.
	Languoids string
	// Geo is a path or URL of the languages-and-dialects geo table (optional).
	Geo string

	MetadataColumns int
	NoSegmentMarker string
	Normalization   dataset.Normalization
	ConflictPolicy  features.ConflictPolicy
	// ExtraRules run after the built-in rewrite rules.
	ExtraRules []features.Rule

	// InventoryLimit stops aggregation after that many inventories (0 = all).
	InventoryLimit int
	NotApplicable  string

	// StatePath is the SQLite state database. Empty disables persistence.
	StatePath string
	// Export, when set, receives every completed run.
	Export *core.AdapterConfig

	HTTPClient *http.Client
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. When StatePath is set the state store is opened
// and migrated; the export adapter is only connected by Run.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Dataset == "" {
		cfg.Dataset = dataset.DefaultPhoibleURL
	}

	logger.Debug("initializing engine", "dataset", cfg.Dataset, "state_path", cfg.StatePath)

	e := &Engine{cfg: cfg, logger: logger}
	if cfg.StatePath == "" {
		return e, nil
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	e.store = store
	return e, nil
}

// ensureDBConnected lazily connects the export adapter.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to export database", "adapter_type", e.cfg.Export.Type)

	db, err := adapter.NewAdapter(*e.cfg.Export, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create export adapter: %w", err)
	}
	if err := db.Connect(ctx, *e.cfg.Export); err != nil {
		return fmt.Errorf("failed to connect to export database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("export database connected", "dialect", db.DialectName())
	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// GetStateStore returns the state store, or nil when persistence is disabled.
func (e *Engine) GetStateStore() state.Store {
	return e.store
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
