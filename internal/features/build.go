package features

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// DefaultNoSegmentMarker is the marker value of rows that carry no segment.
const DefaultNoSegmentMarker = "N"

// Options configures table construction.
type Options struct {
	// MetadataColumns is the number of leading non-feature columns.
	// Zero means dataset.DefaultMetadataColumns.
	MetadataColumns int
	// NoSegmentMarker identifies rows to skip. Empty means "N".
	NoSegmentMarker string
	// Policy resolves conflicting attestations. Empty means PolicyFirst.
	Policy ConflictPolicy
	// Rules are applied in order after the base table is built.
	// Nil means DefaultRules().
	Rules []Rule
	// Logger is optional; nil discards.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MetadataColumns == 0 {
		o.MetadataColumns = dataset.DefaultMetadataColumns
	}
	if o.NoSegmentMarker == "" {
		o.NoSegmentMarker = DefaultNoSegmentMarker
	}
	if o.Policy == "" {
		o.Policy = PolicyFirst
	}
	if o.Rules == nil {
		o.Rules = DefaultRules()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Build returns the full feature table: attested phonemes plus every key the
// rules derive. Use Table.Bags for the bag-of-features side table.
func Build(rows []dataset.Row, columns *dataset.ColumnIndex, opts Options) (*Table, error) {
	opts = opts.withDefaults()

	base, err := BuildBase(rows, columns, opts)
	if err != nil {
		return nil, err
	}

	t := base
	for _, r := range opts.Rules {
		before := t.Len()
		t = r.Apply(t)
		opts.Logger.Debug("applied rewrite rule", "rule", r.Name(), "derived", t.Len()-before, "total", t.Len())
	}

	opts.Logger.Info("built feature table",
		"attested", base.Len(),
		"derived", t.Len()-base.Len(),
		"features", len(t.names))
	return t, nil
}

// BuildBase builds the table of attested phonemes only.
// Rows whose marker equals the no-segment marker are skipped.
func BuildBase(rows []dataset.Row, columns *dataset.ColumnIndex, opts Options) (*Table, error) {
	opts = opts.withDefaults()

	if err := columns.Require(dataset.ColPhoneme); err != nil {
		return nil, err
	}
	names := columns.FeatureNames(opts.MetadataColumns)
	if len(names) == 0 {
		return nil, fmt.Errorf("no feature columns after %d metadata columns", opts.MetadataColumns)
	}
	phonemeCol, _ := columns.Lookup(dataset.ColPhoneme)
	first := columns.Len() - len(names)

	t := newTable(names)
	tallies := make(map[string]*tally)
	conflicts := 0

	for i, row := range rows {
		if err := columns.CheckRow(row, i+1); err != nil {
			return nil, err
		}
		if columns.Marker(row) == opts.NoSegmentMarker {
			continue
		}

		key := row[phonemeCol]
		vec := make(core.FeatureVector, len(names))
		for j, name := range names {
			vec[name] = core.FeatureValue(row[first+j])
		}

		existing, seen := t.vectors[key]
		if seen && !equalVectors(existing, vec) {
			conflicts++
			opts.Logger.Debug("conflicting attestation", "phoneme", key, "record", i+1, "policy", string(opts.Policy))
		}

		switch opts.Policy {
		case PolicyLast:
			t.put(key, vec)
		case PolicyMajority:
			tl, ok := tallies[key]
			if !ok {
				tl = newTally()
				tallies[key] = tl
				t.put(key, vec)
			}
			tl.add(vec)
		default:
			if !seen {
				t.put(key, vec)
			}
		}
	}

	for key, tl := range tallies {
		t.vectors[key] = tl.vote()
	}

	if conflicts > 0 {
		opts.Logger.Info("phonemes attested with differing features", "conflicts", conflicts, "policy", string(opts.Policy))
	}
	return t, nil
}

func equalVectors(a, b core.FeatureVector) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
