package commands

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded build runs",
		Long:  `List build runs recorded in the state database, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cctx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cctx.Engine.GetStateStore().ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			r := cctx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				out := make([]BuildOutput, 0, len(runs))
				for _, run := range runs {
					started := run.StartedAt
					out = append(out, BuildOutput{
						RunID:       run.ID,
						Status:      string(run.Status),
						Dataset:     run.Dataset,
						StartedAt:   &started,
						CompletedAt: run.CompletedAt,
						Counts:      countsJSON(run.Counts),
						Error:       run.Error,
					})
				}
				return r.JSON(out)
			}

			if r.EffectiveMode() == output.ModeMarkdown {
				r.Println(output.FormatHeader(1, "Runs"))
				r.Println("")
			} else {
				r.Header(1, "Runs")
			}
			if len(runs) == 0 {
				r.Println("No runs recorded yet. Run 'leapphon build' first.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					string(run.Status),
					run.StartedAt.Local().Format(time.DateTime),
					strconv.Itoa(run.Counts.Attested + run.Counts.Derived),
					strconv.Itoa(run.Counts.Inventories),
					run.Dataset,
				})
			}
			r.Table([]string{"Run", "Status", "Started", "Phonemes", "Inventories", "Dataset"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 = all)")

	return cmd
}
