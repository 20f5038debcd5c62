package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/internal/genealogy"
	"golang.org/x/sync/errgroup"
)

// Inputs are the decoded sources of one pipeline run.
type Inputs struct {
	Dataset *dataset.Dataset
	// Genealogy is nil when no languoid table is configured.
	Genealogy *genealogy.Tables
}

// Load fetches the inventory table and the genealogy tables concurrently.
// The first failure cancels the other fetches.
func (e *Engine) Load(ctx context.Context) (*Inputs, error) {
	var (
		ds        *dataset.Dataset
		languoids *dataset.Dataset
		geo       *dataset.Dataset
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds, err = dataset.Load(gctx, e.cfg.Dataset, e.cfg.HTTPClient, dataset.ReadOptions{Normalization: e.cfg.Normalization})
		return err
	})
	if e.cfg.Languoids != "" {
		g.Go(func() error {
			var err error
			languoids, err = dataset.Load(gctx, e.cfg.Languoids, e.cfg.HTTPClient, dataset.ReadOptions{})
			return err
		})
		if e.cfg.Geo != "" {
			g.Go(func() error {
				var err error
				geo, err = dataset.Load(gctx, e.cfg.Geo, e.cfg.HTTPClient, dataset.ReadOptions{})
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("loaded dataset", "source", e.cfg.Dataset, "rows", len(ds.Rows), "columns", ds.Columns.Len())

	in := &Inputs{Dataset: ds}
	if languoids == nil {
		return in, nil
	}
	tables, err := genealogy.FromDatasets(languoids, geo)
	if err != nil {
		return nil, fmt.Errorf("invalid genealogy %s: %w", e.cfg.Languoids, err)
	}
	e.logger.Info("loaded genealogy", "source", e.cfg.Languoids, "languoids", len(tables.Languoids))
	in.Genealogy = tables
	return in, nil
}

// LoadGenealogy fetches only the classification tables.
func (e *Engine) LoadGenealogy(ctx context.Context) (*genealogy.Tables, error) {
	if e.cfg.Languoids == "" {
		return nil, fmt.Errorf("no languoid table configured")
	}

	var languoids, geo *dataset.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		languoids, err = dataset.Load(gctx, e.cfg.Languoids, e.cfg.HTTPClient, dataset.ReadOptions{})
		return err
	})
	if e.cfg.Geo != "" {
		g.Go(func() error {
			var err error
			geo, err = dataset.Load(gctx, e.cfg.Geo, e.cfg.HTTPClient, dataset.ReadOptions{})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return genealogy.FromDatasets(languoids, geo)
}
