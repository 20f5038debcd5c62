package genealogy

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapphon/internal/dag"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Options configures enrichment.
type Options struct {
	// NotApplicable fills fields with no value. Empty means core.NotApplicable.
	NotApplicable string
	Logger        *slog.Logger
}

// Step is one node of a lineage walk.
type Step struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Enricher annotates inventory records from a validated classification.
type Enricher struct {
	tables *Tables
	graph  *dag.Graph
	na     string
	logger *slog.Logger
}

// NewEnricher validates tables and prepares the classification graph.
func NewEnricher(tables *Tables, opts Options) (*Enricher, error) {
	if opts.NotApplicable == "" {
		opts.NotApplicable = core.NotApplicable
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if tables == nil {
		tables = &Tables{}
	}

	g, err := tables.Graph()
	if err != nil {
		return nil, err
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		return nil, &CycleError{Path: path}
	}

	opts.Logger.Debug("classification graph ready",
		"languoids", g.NodeCount(), "edges", g.EdgeCount(), "families", len(g.GetRoots()))
	return &Enricher{tables: tables, graph: g, na: opts.NotApplicable, logger: opts.Logger}, nil
}

// Enrich is a convenience wrapper around NewEnricher and Enricher.Enrich.
func Enrich(records map[string]*core.Inventory, tables *Tables, opts Options) (int, error) {
	e, err := NewEnricher(tables, opts)
	if err != nil {
		return 0, err
	}
	return e.Enrich(records)
}

// Enrich fills the genealogy fields of every record in place and returns
// the number of records whose glottocode was found.
//
// Derived fields are reset first, so enriching twice gives the same result.
// A glottocode absent from the classification leaves every derived field at
// the not-applicable sentinel with empty countries and ancestry.
func (e *Enricher) Enrich(records map[string]*core.Inventory) (int, error) {
	found := 0
	for id, inv := range records {
		ok, err := e.enrichOne(inv)
		if err != nil {
			return found, fmt.Errorf("inventory %s: %w", id, err)
		}
		if ok {
			found++
		} else {
			e.logger.Debug("glottocode not in classification", "inventory", id, "glottocode", inv.Glottocode)
		}
	}
	e.logger.Info("enriched inventories", "found", found, "missing", len(records)-found)
	return found, nil
}

func (e *Enricher) enrichOne(inv *core.Inventory) (bool, error) {
	inv.Name = e.na
	inv.FamilyID = e.na
	inv.FamilyName = e.na
	inv.Macroarea = e.na
	inv.Latitude = e.na
	inv.Longitude = e.na
	inv.Countries = []string{}
	inv.Ancestry = []string{}

	l, ok := e.tables.Languoids[inv.Glottocode]
	if !ok {
		return false, nil
	}

	inv.Name = e.orNA(l.Name)
	inv.Macroarea = e.orNA(l.Macroarea)
	inv.Latitude = e.orNA(l.Latitude)
	inv.Longitude = e.orNA(l.Longitude)
	inv.Countries = append(inv.Countries, l.Countries...)

	if l.FamilyID == "" || l.FamilyID == e.na {
		return true, nil
	}
	inv.FamilyID = l.FamilyID
	inv.FamilyName = e.familyName(l.FamilyID)

	steps, err := e.Lineage(inv.Glottocode)
	if err != nil {
		return true, err
	}
	for _, s := range steps {
		inv.Ancestry = append(inv.Ancestry, s.Name)
	}
	return true, nil
}

// Lineage returns the ancestors of code, nearest first.
func (e *Enricher) Lineage(code string) ([]Step, error) {
	if _, ok := e.tables.Tree[code]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguoid, code)
	}
	ids, err := e.graph.AncestorChain(code)
	if err != nil {
		if errors.Is(err, dag.ErrCycle) {
			_, path := e.graph.HasCycle()
			return nil, &CycleError{Path: path}
		}
		return nil, err
	}
	steps := make([]Step, 0, len(ids))
	for _, id := range ids {
		steps = append(steps, Step{ID: id, Name: e.tables.Tree[id].Name})
	}
	return steps, nil
}

// Children returns the direct children of code in sorted order.
func (e *Enricher) Children(code string) []Step {
	ids := e.graph.GetChildren(code)
	out := make([]Step, 0, len(ids))
	for _, id := range ids {
		out = append(out, Step{ID: id, Name: e.tables.Tree[id].Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Descendants counts every languoid below code.
func (e *Enricher) Descendants(code string) int {
	return len(e.graph.GetDescendants(code))
}

// OrNotApplicable returns v, or the configured sentinel when v is empty.
func (e *Enricher) OrNotApplicable(v string) string {
	if v == "" {
		return e.na
	}
	return v
}

// Languoid returns the record for code.
func (e *Enricher) Languoid(code string) (core.Languoid, bool) {
	l, ok := e.tables.Languoids[code]
	return l, ok
}

func (e *Enricher) familyName(familyID string) string {
	if n, ok := e.tables.Tree[familyID]; ok && n.Name != "" {
		return n.Name
	}
	if l, ok := e.tables.Languoids[familyID]; ok && l.Name != "" {
		return l.Name
	}
	return e.na
}

func (e *Enricher) orNA(v string) string {
	if v == "" {
		return e.na
	}
	return v
}
