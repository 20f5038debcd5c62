package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapphon/internal/bagindex"
	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/leapstack-labs/leapphon/pkg/core"
	"github.com/spf13/cobra"
)

// FeaturesOptions holds options for the features command.
type FeaturesOptions struct {
	RunID    string
	Has      []string
	Attested bool
	Bag      bool
}

// PhonemeJSON is the JSON shape of one feature-table row.
type PhonemeJSON struct {
	Phoneme     string            `json:"phoneme"`
	DerivedBy   string            `json:"derived_by,omitempty"`
	DerivedFrom string            `json:"derived_from,omitempty"`
	Features    map[string]string `json:"features"`
	Bag         []string          `json:"bag,omitempty"`
}

// NewFeaturesCommand creates the features command.
func NewFeaturesCommand() *cobra.Command {
	opts := &FeaturesOptions{}

	cmd := &cobra.Command{
		Use:   "features [phoneme...]",
		Short: "Show the phoneme feature table of a run",
		Long: `Show feature vectors from the feature table saved by 'leapphon build'.

Without arguments every phoneme is listed. --has keeps phonemes whose bag of
features holds every given token, such as +syllabic or -long.`,
		Example: `  # Full table of the latest run
  leapphon features

  # Two phonemes with their bags of features
  leapphon features a s --bag

  # Long vowels
  leapphon features --has +syllabic,+long`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeatures(cmd, args, opts)
		},
	}

	addRunFlag(cmd, &opts.RunID)
	cmd.Flags().StringSliceVar(&opts.Has, "has", nil, "Keep phonemes holding all of these bag tokens")
	cmd.Flags().BoolVar(&opts.Attested, "attested", false, "Only phonemes attested in the dataset")
	cmd.Flags().BoolVar(&opts.Bag, "bag", false, "Include bag-of-features tokens")

	return cmd
}

func runFeatures(cmd *cobra.Command, args []string, opts *FeaturesOptions) error {
	cctx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	snap, err := snapshotFor(cmd.Context(), cctx.Engine, opts.RunID)
	if err != nil {
		return err
	}

	entries, err := selectPhonemes(snap, args, opts)
	if err != nil {
		return err
	}
	return renderFeatures(cctx.Renderer, entries, opts.Bag)
}

// selectPhonemes applies the positional and flag filters, keeping saved order.
func selectPhonemes(snap *core.Snapshot, args []string, opts *FeaturesOptions) ([]core.PhonemeEntry, error) {
	byKey := make(map[string]core.PhonemeEntry, len(snap.Phonemes))
	for _, p := range snap.Phonemes {
		byKey[p.Phoneme] = p
	}

	var entries []core.PhonemeEntry
	if len(args) > 0 {
		for _, a := range args {
			p, ok := byKey[a]
			if !ok {
				return nil, fmt.Errorf("phoneme %q not found in run %s", a, snap.RunID)
			}
			entries = append(entries, p)
		}
	} else {
		entries = snap.Phonemes
	}

	if len(opts.Has) > 0 {
		keep := make(map[string]bool)
		for _, k := range indexSnapshot(snap).WithTokens(opts.Has...) {
			keep[k] = true
		}
		entries = filterEntries(entries, func(p core.PhonemeEntry) bool { return keep[p.Phoneme] })
	}
	if opts.Attested {
		entries = filterEntries(entries, core.PhonemeEntry.Attested)
	}
	return entries, nil
}

func filterEntries(in []core.PhonemeEntry, keep func(core.PhonemeEntry) bool) []core.PhonemeEntry {
	out := make([]core.PhonemeEntry, 0, len(in))
	for _, p := range in {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// indexSnapshot builds the bag-of-features index of a saved run.
func indexSnapshot(snap *core.Snapshot) *bagindex.Index {
	bags := make(map[string][]string, len(snap.Phonemes))
	for _, p := range snap.Phonemes {
		bags[p.Phoneme] = p.Bag
	}
	return bagindex.New(bags)
}

func renderFeatures(r *output.Renderer, entries []core.PhonemeEntry, withBag bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]PhonemeJSON, 0, len(entries))
		for _, p := range entries {
			pj := PhonemeJSON{
				Phoneme:     p.Phoneme,
				DerivedBy:   p.DerivedBy,
				DerivedFrom: p.DerivedFrom,
				Features:    make(map[string]string, len(p.Features)),
			}
			for k, v := range p.Features {
				pj.Features[k] = string(v)
			}
			if withBag {
				pj.Bag = p.Bag
			}
			out = append(out, pj)
		}
		return r.JSON(out)
	}

	if len(entries) == 0 {
		r.Println("(0 phonemes)")
		return nil
	}

	names := featureNames(entries)
	header := append([]string{"Phoneme", "Origin"}, names...)
	if withBag {
		header = append(header, "Bag")
	}

	rows := make([][]string, 0, len(entries))
	for _, p := range entries {
		row := []string{p.Phoneme, origin(p)}
		for _, n := range names {
			row = append(row, string(p.Features[n]))
		}
		if withBag {
			row = append(row, strings.Join(p.Bag, " "))
		}
		rows = append(rows, row)
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Features"))
		r.Println("")
	} else {
		r.Header(1, "Features")
	}
	r.Table(header, rows)
	r.Printf("(%d phonemes)\n", len(entries))
	return nil
}

// featureNames returns the column order of the first entry, plus any names
// only later entries carry.
func featureNames(entries []core.PhonemeEntry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range entries {
		for _, n := range p.Names {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	var extra []string
	for _, p := range entries {
		for n := range p.Features {
			if !seen[n] {
				seen[n] = true
				extra = append(extra, n)
			}
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func origin(p core.PhonemeEntry) string {
	if p.Attested() {
		return "attested"
	}
	return fmt.Sprintf("%s(%s)", p.DerivedBy, p.DerivedFrom)
}
