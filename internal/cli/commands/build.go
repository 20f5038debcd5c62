package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/leapstack-labs/leapphon/pkg/core"
	"github.com/spf13/cobra"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	DryRun bool
}

// BuildOutput is the JSON shape of a build result.
type BuildOutput struct {
	RunID       string     `json:"run_id,omitempty"`
	Status      string     `json:"status"`
	Dataset     string     `json:"dataset"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Counts      CountsJSON `json:"counts"`
	Exported    string     `json:"exported_to,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// CountsJSON mirrors core.RunCounts.
type CountsJSON struct {
	Rows        int `json:"rows"`
	Attested    int `json:"attested"`
	Derived     int `json:"derived"`
	Inventories int `json:"inventories"`
	Enriched    int `json:"enriched"`
}

func countsJSON(c core.RunCounts) CountsJSON {
	return CountsJSON(c)
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"run"},
		Short:   "Derive features, aggregate inventories and record the run",
		Long: `Fetch the inventory table and the optional genealogy tables, derive the
phoneme feature table, aggregate per-language inventories, enrich them with
family, area and ancestry, then save the result in the state database.

When an export target is configured the run is also written to DuckDB or
PostgreSQL.`,
		Example: `  # Build from the configured dataset
  leapphon build

  # Build a local copy with genealogy
  leapphon build --dataset phoible.csv --languoids languoid.csv

  # Only the first 100 inventories, without touching the state database
  leapphon build --limit 100 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Run the pipeline without saving or exporting")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cctx := NewCommandContextWithoutEngine(cmd)
	eng, err := createEngine(cctx.Cfg, cctx.Logger, !opts.DryRun)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	r := cctx.Renderer
	out := BuildOutput{Dataset: cctx.Cfg.Dataset}

	if opts.DryRun {
		res, err := eng.Build(cmd.Context())
		if err != nil {
			return err
		}
		out.Status = "dry-run"
		out.Counts = countsJSON(res.Counts)
		return renderBuild(r, out)
	}

	run, res, runErr := eng.Run(cmd.Context())
	if run != nil {
		out.RunID = run.ID
		out.Status = string(run.Status)
		out.StartedAt = &run.StartedAt
		out.CompletedAt = run.CompletedAt
		out.Counts = countsJSON(run.Counts)
		out.Error = run.Error
	} else if res != nil {
		out.Counts = countsJSON(res.Counts)
	}
	if runErr == nil && cctx.Cfg.Export != nil {
		out.Exported = cctx.Cfg.Export.Type
	}
	if run == nil {
		return runErr
	}
	if err := renderBuild(r, out); err != nil {
		return err
	}
	return runErr
}

func renderBuild(r *output.Renderer, out BuildOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Build"))
		r.Println("")
		if out.RunID != "" {
			r.Println(output.FormatKeyValue("Run", out.RunID))
		}
		r.Println(output.FormatKeyValue("Status", out.Status))
		r.Println(output.FormatKeyValue("Dataset", out.Dataset))
		if out.Exported != "" {
			r.Println(output.FormatKeyValue("Exported to", out.Exported))
		}
		r.Println("")
		r.Table([]string{"Rows", "Attested", "Derived", "Inventories", "Enriched"}, [][]string{countsRow(out.Counts)})
		if out.Error != "" {
			r.Println("")
			r.Println(output.FormatKeyValue("Error", out.Error))
		}
	default:
		r.Header(1, "Build")
		r.StatusLine(runLabel(out.RunID), out.Status, out.Dataset)
		r.Println("")
		r.KeyValue("Rows", strconv.Itoa(out.Counts.Rows))
		r.KeyValue("Phonemes", fmt.Sprintf("%d attested, %d derived", out.Counts.Attested, out.Counts.Derived))
		r.KeyValue("Inventories", fmt.Sprintf("%d (%d with genealogy)", out.Counts.Inventories, out.Counts.Enriched))
		if out.Exported != "" {
			r.KeyValue("Exported to", out.Exported)
		}
		if out.Error != "" {
			r.Error(out.Error)
		}
	}
	return nil
}

func countsRow(c CountsJSON) []string {
	return []string{
		strconv.Itoa(c.Rows),
		strconv.Itoa(c.Attested),
		strconv.Itoa(c.Derived),
		strconv.Itoa(c.Inventories),
		strconv.Itoa(c.Enriched),
	}
}

func runLabel(id string) string {
	if id == "" {
		return "(not saved)"
	}
	return id
}
