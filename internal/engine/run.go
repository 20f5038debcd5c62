package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapphon/internal/state"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// ErrNoStateStore is returned by operations that need persistence when the
// engine was created without a state path.
var ErrNoStateStore = errors.New("state store is not configured")

// ErrNoRuns is returned when the state store holds no completed run.
var ErrNoRuns = errors.New("no completed run found, run 'leapphon build' first")

// Run executes the pipeline, records it in the state store, saves the
// snapshot and exports it when an export target is configured.
// A failed run is still recorded, with its error message.
func (e *Engine) Run(ctx context.Context) (*core.Run, *Result, error) {
	if e.store == nil {
		return nil, nil, ErrNoStateStore
	}

	e.logger.Info("starting run", "dataset", e.cfg.Dataset)

	run, err := e.store.CreateRun(ctx, e.cfg.Dataset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Debug("created run", "run_id", run.ID)

	res, runErr := e.execute(ctx, run.ID)

	status := core.RunStatusCompleted
	var counts core.RunCounts
	errMsg := ""
	if res != nil {
		counts = res.Counts
	}
	if runErr != nil {
		status = core.RunStatusFailed
		errMsg = runErr.Error()
		e.logger.Info("run failed", "run_id", run.ID, "error", errMsg)
	} else {
		e.logger.Info("run completed", "run_id", run.ID)
	}

	// The run ledger is written even when ctx was canceled.
	if err := e.store.CompleteRun(context.WithoutCancel(ctx), run.ID, status, counts, errMsg); err != nil {
		return run, res, errors.Join(runErr, fmt.Errorf("failed to complete run: %w", err))
	}

	if final, err := e.store.GetRun(context.WithoutCancel(ctx), run.ID); err == nil {
		run = final
	}
	return run, res, runErr
}

func (e *Engine) execute(ctx context.Context, runID string) (*Result, error) {
	res, err := e.Build(ctx)
	if err != nil {
		return nil, err
	}

	snap := res.Snapshot(runID)
	if err := e.store.SaveSnapshot(ctx, snap); err != nil {
		return res, fmt.Errorf("failed to save snapshot: %w", err)
	}
	e.logger.Debug("saved snapshot", "run_id", runID, "phonemes", len(snap.Phonemes), "inventories", len(snap.Inventories))

	if e.cfg.Export == nil || e.cfg.Export.Type == "" {
		return res, nil
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return res, err
	}
	if err := e.db.Export(ctx, snap); err != nil {
		return res, fmt.Errorf("failed to export run: %w", err)
	}
	e.logger.Info("exported run", "run_id", runID, "adapter", e.cfg.Export.Type,
		"phonemes", len(snap.Phonemes), "inventories", len(snap.Inventories))
	return res, nil
}

// LatestRun returns the most recent completed run, or ErrNoRuns.
func (e *Engine) LatestRun(ctx context.Context) (*core.Run, error) {
	if e.store == nil {
		return nil, ErrNoStateStore
	}
	run, err := e.store.GetLatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoRuns
	}
	return run, nil
}

// LatestSnapshot loads the output of the most recent completed run.
func (e *Engine) LatestSnapshot(ctx context.Context) (*core.Run, *core.Snapshot, error) {
	run, err := e.LatestRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	snap, err := e.Snapshot(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, snap, nil
}

// Snapshot loads the persisted output of one run.
func (e *Engine) Snapshot(ctx context.Context, runID string) (*core.Snapshot, error) {
	if e.store == nil {
		return nil, ErrNoStateStore
	}
	if _, err := e.store.GetRun(ctx, runID); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		return nil, err
	}

	phonemes, err := e.store.ListPhonemes(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load phonemes: %w", err)
	}
	invs, err := e.store.ListInventories(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventories: %w", err)
	}
	return &core.Snapshot{RunID: runID, Phonemes: phonemes, Inventories: invs}, nil
}
