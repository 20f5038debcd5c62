package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/leapstack-labs/leapphon/internal/genealogy"
	"github.com/spf13/cobra"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Children bool
}

// LineageOutput is the JSON shape of a lineage lookup.
type LineageOutput struct {
	Glottocode  string           `json:"glottocode"`
	Name        string           `json:"name"`
	FamilyID    string           `json:"family_id,omitempty"`
	Macroarea   string           `json:"macroarea,omitempty"`
	Ancestors   []genealogy.Step `json:"ancestors"`
	Children    []genealogy.Step `json:"children,omitempty"`
	Descendants int              `json:"descendants"`
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <glottocode>",
		Short: "Show the classification ancestry of a languoid",
		Long: `Walk the classification tree from a glottocode up to its top-level family.

Ancestors are listed nearest first. The languoid table is read from the
configured 'languoids' source; no build is required.`,
		Example: `  # Ancestry of English
  leapphon lineage stan1293

  # Include direct children
  leapphon lineage germ1287 --children

  # Output as JSON
  leapphon lineage stan1293 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Children, "children", false, "Include direct children")

	return cmd
}

func runLineage(cmd *cobra.Command, code string, opts *LineageOptions) error {
	cctx := NewCommandContextWithoutEngine(cmd)
	eng, err := createEngine(cctx.Cfg, cctx.Logger, false)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	tables, err := eng.LoadGenealogy(cmd.Context())
	if err != nil {
		return err
	}
	enricher, err := genealogy.NewEnricher(tables, genealogy.Options{
		NotApplicable: cctx.Cfg.NotApplicable,
		Logger:        cctx.Logger,
	})
	if err != nil {
		return err
	}

	steps, err := enricher.Lineage(code)
	if err != nil {
		return err
	}
	languoid, _ := enricher.Languoid(code)
	out := LineageOutput{
		Glottocode:  code,
		Name:        languoid.Name,
		FamilyID:    enricher.OrNotApplicable(languoid.FamilyID),
		Macroarea:   enricher.OrNotApplicable(languoid.Macroarea),
		Ancestors:   steps,
		Descendants: enricher.Descendants(code),
	}
	if opts.Children {
		out.Children = enricher.Children(code)
	}

	return renderLineage(cctx.Renderer, out, opts.Children)
}

func renderLineage(r *output.Renderer, out LineageOutput, children bool) error {
	title := fmt.Sprintf("%s (%s)", out.Name, out.Glottocode)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Lineage of "+title))
		r.Println("")
		if len(out.Ancestors) == 0 {
			r.Println("Top-level languoid.")
		}
		for i, s := range out.Ancestors {
			r.Printf("%s- %s (`%s`)\n", strings.Repeat("  ", i), s.Name, s.ID)
		}
		r.Println("")
		r.Println(output.FormatKeyValue("Descendants", fmt.Sprint(out.Descendants)))
		if children {
			r.Println("")
			r.Println(output.FormatHeader(2, fmt.Sprintf("Children (%d)", len(out.Children))))
			r.Println("")
			for _, c := range out.Children {
				r.Printf("- %s (`%s`)\n", c.Name, c.ID)
			}
		}
	default:
		styles := r.Styles()
		r.Header(1, "Lineage of "+title)
		if len(out.Ancestors) == 0 {
			r.Muted("  top-level languoid")
		}
		for i, s := range out.Ancestors {
			r.Printf("  %s%s %s\n", strings.Repeat("  ", i), s.Name, styles.Muted.Render(s.ID))
		}
		r.KeyValue("Descendants", fmt.Sprint(out.Descendants))
		if children {
			r.Println("")
			r.Header(2, fmt.Sprintf("Children (%d)", len(out.Children)))
			for _, c := range out.Children {
				r.Printf("  %s %s\n", c.Name, styles.Muted.Render(c.ID))
			}
		}
	}
	return nil
}
