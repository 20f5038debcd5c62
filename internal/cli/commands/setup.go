// Package commands implements the leapphon subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapphon/internal/cli/config"
	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/internal/engine"
	"github.com/leapstack-labs/leapphon/internal/features"
	"github.com/leapstack-labs/leapphon/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger, true)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: newRenderer(cmd, cfg),
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need state access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: newRenderer(cmd, cfg),
	}
}

func newRenderer(cmd *cobra.Command, cfg *config.Config) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
}

// Helper functions shared across commands

// getConfig returns the current configuration, or defaults when no config
// has been loaded (commands executed outside the root command).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Dataset:         getEnvOrDefault("LEAPPHON_DATASET", dataset.DefaultPhoibleURL),
		MetadataColumns: dataset.DefaultMetadataColumns,
		NoSegmentMarker: config.DefaultNoSegmentMarker,
		Normalization:   config.DefaultNormalization,
		ConflictPolicy:  config.DefaultConflictPolicy,
		NotApplicable:   core.NotApplicable,
		StatePath:       getEnvOrDefault("LEAPPHON_STATE_PATH", config.DefaultStateFile),
		FetchTimeout:    config.DefaultFetchTimeout,
		OutputFormat:    os.Getenv("LEAPPHON_OUTPUT"),
		LogFormat:       config.DefaultLogFormat,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// engineConfig translates CLI configuration into engine configuration.
// persist=false leaves the state store and export target unset.
func engineConfig(cfg *config.Config, logger *slog.Logger, persist bool) (engine.Config, error) {
	norm, err := dataset.ParseNormalization(cfg.Normalization)
	if err != nil {
		return engine.Config{}, err
	}
	policy, err := features.ParseConflictPolicy(cfg.ConflictPolicy)
	if err != nil {
		return engine.Config{}, err
	}

	ec := engine.Config{
		Dataset:         cfg.Dataset,
		Languoids:       cfg.Languoids,
		Geo:             cfg.Geo,
		MetadataColumns: cfg.MetadataColumns,
		NoSegmentMarker: cfg.NoSegmentMarker,
		Normalization:   norm,
		ConflictPolicy:  policy,
		ExtraRules:      cfg.ExtraRules(),
		InventoryLimit:  cfg.InventoryLimit,
		NotApplicable:   cfg.NotApplicable,
		HTTPClient:      &http.Client{Timeout: cfg.FetchTimeout},
		Logger:          logger,
	}
	if persist {
		ec.StatePath = cfg.StatePath
		ec.Export = cfg.Export.AdapterConfig()
	}
	return ec, nil
}

func createEngine(cfg *config.Config, logger *slog.Logger, persist bool) (*engine.Engine, error) {
	if persist && cfg.StatePath != ":memory:" {
		// Ensure state directory exists
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	ec, err := engineConfig(cfg, logger, persist)
	if err != nil {
		return nil, err
	}
	return engine.New(ec)
}

// snapshotFor loads the requested run, or the latest completed one when
// runID is empty.
func snapshotFor(ctx context.Context, eng *engine.Engine, runID string) (*core.Snapshot, error) {
	if runID == "" {
		_, snap, err := eng.LatestSnapshot(ctx)
		return snap, err
	}
	return eng.Snapshot(ctx, runID)
}

// addRunFlag registers the --run selector shared by the read commands.
func addRunFlag(cmd *cobra.Command, runID *string) {
	cmd.Flags().StringVar(runID, "run", "", "Run id to read (default: latest completed run)")
}
