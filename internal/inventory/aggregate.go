// Package inventory groups dataset rows into per-language inventory records
// and partitions each segment set into vowels and consonants.
package inventory

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

const (
	featureSyllabic = "syllabic"
	defaultMarker   = "N"
)

// FeatureLookup resolves single feature values. *features.Table implements it.
type FeatureLookup interface {
	Value(key, feature string) (core.FeatureValue, bool)
}

// Options configures aggregation.
type Options struct {
	// Limit stops aggregation before the row that would open inventory
	// Limit+1. Zero means unlimited.
	Limit int
	// NoSegmentMarker identifies rows that carry no segment. Empty means "N".
	NoSegmentMarker string
	Logger          *slog.Logger
}

// required columns; GlyphID and Source are copied when present.
var required = []string{
	dataset.ColInventoryID,
	dataset.ColGlottocode,
	dataset.ColISO6393,
	dataset.ColLanguageName,
	dataset.ColSpecificDialect,
	dataset.ColPhoneme,
	dataset.ColTone,
}

type group struct {
	inv   *core.Inventory
	first map[string]int
}

// Aggregate builds inventory records keyed by InventoryID.
//
// The first row of an inventory seeds its metadata. A segment joins the
// phoneme set unless its marker is the no-segment marker or its tone is
// exactly "+". Every phoneme must resolve in lookup; a vowel is a phoneme
// whose syllabic value contains "+".
func Aggregate(rows []dataset.Row, columns *dataset.ColumnIndex, lookup FeatureLookup, opts Options) (map[string]*core.Inventory, error) {
	if opts.NoSegmentMarker == "" {
		opts.NoSegmentMarker = defaultMarker
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if err := columns.Require(required...); err != nil {
		return nil, err
	}

	groups := make(map[string]*group)
	var order []string

	for i, row := range rows {
		if err := columns.CheckRow(row, i+1); err != nil {
			return nil, err
		}
		id := columns.Value(row, dataset.ColInventoryID)

		g, ok := groups[id]
		if !ok {
			if opts.Limit > 0 && len(groups) == opts.Limit {
				opts.Logger.Info("inventory limit reached", "limit", opts.Limit, "record", i+1)
				break
			}
			g = &group{inv: seed(row, columns), first: make(map[string]int)}
			groups[id] = g
			order = append(order, id)
		}

		if columns.Marker(row) == opts.NoSegmentMarker {
			continue
		}
		if columns.Value(row, dataset.ColTone) == string(core.Plus) {
			continue
		}
		p := columns.Value(row, dataset.ColPhoneme)
		if _, seen := g.first[p]; !seen {
			g.first[p] = i + 1
		}
	}

	out := make(map[string]*core.Inventory, len(groups))
	for _, id := range order {
		g := groups[id]
		if err := partition(g, lookup); err != nil {
			return nil, err
		}
		out[id] = g.inv
	}

	opts.Logger.Info("aggregated inventories", "inventories", len(out), "rows", len(rows))
	return out, nil
}

func seed(row dataset.Row, columns *dataset.ColumnIndex) *core.Inventory {
	inv := &core.Inventory{
		InventoryID:     columns.Value(row, dataset.ColInventoryID),
		Glottocode:      columns.Value(row, dataset.ColGlottocode),
		ISO6393:         columns.Value(row, dataset.ColISO6393),
		LanguageName:    columns.Value(row, dataset.ColLanguageName),
		SpecificDialect: columns.Value(row, dataset.ColSpecificDialect),
		Phonemes:        []string{},
		Vowels:          []string{},
		Consonants:      []string{},
		Countries:       []string{},
		Ancestry:        []string{},
	}
	if _, ok := columns.Lookup(dataset.ColGlyphID); ok {
		inv.GlyphID = columns.Value(row, dataset.ColGlyphID)
	}
	if _, ok := columns.Lookup(dataset.ColSource); ok {
		inv.Source = columns.Value(row, dataset.ColSource)
	}
	return inv
}

func partition(g *group, lookup FeatureLookup) error {
	phonemes := make([]string, 0, len(g.first))
	for p := range g.first {
		phonemes = append(phonemes, p)
	}
	sort.Strings(phonemes)

	inv := g.inv
	inv.Phonemes = phonemes
	for _, p := range phonemes {
		v, ok := lookup.Value(p, featureSyllabic)
		if !ok {
			return &UnknownPhonemeError{InventoryID: inv.InventoryID, Phoneme: p, Line: g.first[p]}
		}
		if v.Has(core.Plus) {
			inv.Vowels = append(inv.Vowels, p)
		} else {
			inv.Consonants = append(inv.Consonants, p)
		}
	}
	return nil
}

// IDs returns the keys of records sorted numerically when both ids are
// integers, lexically otherwise.
func IDs(records map[string]*core.Inventory) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}
