package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapphon/internal/bagindex"
	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/spf13/cobra"
)

// SimilarOptions holds options for the similar command.
type SimilarOptions struct {
	RunID string
	Top   int
}

// MatchJSON is the JSON shape of one similarity result.
type MatchJSON struct {
	Phoneme string  `json:"phoneme"`
	Score   float64 `json:"score"`
	Shared  int     `json:"shared"`
}

// NewSimilarCommand creates the similar command.
func NewSimilarCommand() *cobra.Command {
	opts := &SimilarOptions{}

	cmd := &cobra.Command{
		Use:   "similar <phoneme>",
		Short: "Rank phonemes by bag-of-features overlap",
		Long: `Rank every other phoneme by the Jaccard similarity of its bag of features
with the given phoneme. Ties are broken by phoneme.`,
		Example: `  # Ten closest phonemes to s
  leapphon similar s

  # Full ranking as JSON
  leapphon similar a --top 0 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd, args[0], opts)
		},
	}

	addRunFlag(cmd, &opts.RunID)
	cmd.Flags().IntVarP(&opts.Top, "top", "k", 10, "Number of results (0 = all)")

	return cmd
}

func runSimilar(cmd *cobra.Command, phoneme string, opts *SimilarOptions) error {
	cctx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	snap, err := snapshotFor(cmd.Context(), cctx.Engine, opts.RunID)
	if err != nil {
		return err
	}

	matches, err := indexSnapshot(snap).Similar(phoneme, opts.Top)
	if err != nil {
		if errors.Is(err, bagindex.ErrUnknownPhoneme) {
			return fmt.Errorf("phoneme %q not found in run %s", phoneme, snap.RunID)
		}
		return err
	}

	r := cctx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := make([]MatchJSON, 0, len(matches))
		for _, m := range matches {
			out = append(out, MatchJSON(m))
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Similar to "+phoneme))
		r.Println("")
	default:
		r.Header(1, "Similar to "+phoneme)
	}

	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Phoneme,
			strconv.FormatFloat(m.Score, 'f', 3, 64),
			strconv.Itoa(m.Shared),
		})
	}
	r.Table([]string{"Rank", "Phoneme", "Jaccard", "Shared"}, rows)
	return nil
}
