package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapphon/internal/bagindex"
	"github.com/leapstack-labs/leapphon/internal/features"
	"github.com/leapstack-labs/leapphon/internal/genealogy"
	"github.com/leapstack-labs/leapphon/internal/inventory"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Result is the read-only output of one pipeline pass.
type Result struct {
	Features    *features.Table
	Index       *bagindex.Index
	Inventories map[string]*core.Inventory
	Enricher    *genealogy.Enricher
	Counts      core.RunCounts
}

// Snapshot flattens the result for persistence. Inventories are ordered
// by inventory id.
func (r *Result) Snapshot(runID string) *core.Snapshot {
	snap := &core.Snapshot{
		RunID:       runID,
		Phonemes:    r.Features.Entries(),
		Inventories: make([]*core.Inventory, 0, len(r.Inventories)),
	}
	for _, id := range inventory.IDs(r.Inventories) {
		snap.Inventories = append(snap.Inventories, r.Inventories[id])
	}
	return snap
}

// Process derives features, aggregates inventories and enriches them.
func (e *Engine) Process(in *Inputs) (*Result, error) {
	ds := in.Dataset

	rules := append(features.DefaultRules(), e.cfg.ExtraRules...)
	table, err := features.Build(ds.Rows, ds.Columns, features.Options{
		MetadataColumns: e.cfg.MetadataColumns,
		NoSegmentMarker: e.cfg.NoSegmentMarker,
		Policy:          e.cfg.ConflictPolicy,
		Rules:           rules,
		Logger:          e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build feature table: %w", err)
	}

	invs, err := inventory.Aggregate(ds.Rows, ds.Columns, table, inventory.Options{
		Limit:           e.cfg.InventoryLimit,
		NoSegmentMarker: e.cfg.NoSegmentMarker,
		Logger:          e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate inventories: %w", err)
	}

	if in.Genealogy == nil {
		e.logger.Warn("no languoid table configured, genealogy fields are not applicable")
	}
	enricher, err := genealogy.NewEnricher(in.Genealogy, genealogy.Options{
		NotApplicable: e.cfg.NotApplicable,
		Logger:        e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid genealogy: %w", err)
	}
	found, err := enricher.Enrich(invs)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich inventories: %w", err)
	}

	attested := table.Attested()
	res := &Result{
		Features:    table,
		Index:       bagindex.New(table.Bags()),
		Inventories: invs,
		Enricher:    enricher,
		Counts: core.RunCounts{
			Rows:        len(ds.Rows),
			Attested:    attested,
			Derived:     table.Len() - attested,
			Inventories: len(invs),
			Enriched:    found,
		},
	}
	e.logger.Info("pipeline finished",
		"rows", res.Counts.Rows,
		"phonemes", table.Len(),
		"inventories", res.Counts.Inventories,
		"enriched", res.Counts.Enriched)
	return res, nil
}

// Build loads the inputs and processes them without persisting anything.
func (e *Engine) Build(ctx context.Context) (*Result, error) {
	in, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return e.Process(in)
}
