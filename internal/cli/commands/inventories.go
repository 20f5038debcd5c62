package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/leapstack-labs/leapphon/internal/engine"
	"github.com/leapstack-labs/leapphon/pkg/core"
	"github.com/spf13/cobra"
)

// InventoriesOptions holds options for the inventories command.
type InventoriesOptions struct {
	RunID      string
	Glottocode string
}

// InventoryJSON is the JSON shape of one inventory record.
type InventoryJSON struct {
	InventoryID     string   `json:"inventory_id"`
	Glottocode      string   `json:"glottocode"`
	ISO6393         string   `json:"iso6393"`
	LanguageName    string   `json:"language_name"`
	SpecificDialect string   `json:"specific_dialect,omitempty"`
	Source          string   `json:"source,omitempty"`
	Phonemes        []string `json:"phonemes"`
	Vowels          []string `json:"vowels"`
	Consonants      []string `json:"consonants"`
	Name            string   `json:"name"`
	FamilyID        string   `json:"family_id"`
	FamilyName      string   `json:"family_name"`
	Macroarea       string   `json:"macroarea"`
	Latitude        string   `json:"latitude"`
	Longitude       string   `json:"longitude"`
	Countries       []string `json:"countries"`
	Ancestry        []string `json:"ancestry"`
}

func inventoryJSON(inv *core.Inventory) InventoryJSON {
	return InventoryJSON{
		InventoryID:     inv.InventoryID,
		Glottocode:      inv.Glottocode,
		ISO6393:         inv.ISO6393,
		LanguageName:    inv.LanguageName,
		SpecificDialect: inv.SpecificDialect,
		Source:          inv.Source,
		Phonemes:        inv.Phonemes,
		Vowels:          inv.Vowels,
		Consonants:      inv.Consonants,
		Name:            inv.Name,
		FamilyID:        inv.FamilyID,
		FamilyName:      inv.FamilyName,
		Macroarea:       inv.Macroarea,
		Latitude:        inv.Latitude,
		Longitude:       inv.Longitude,
		Countries:       inv.Countries,
		Ancestry:        inv.Ancestry,
	}
}

// NewInventoriesCommand creates the inventories command.
func NewInventoriesCommand() *cobra.Command {
	opts := &InventoriesOptions{}

	cmd := &cobra.Command{
		Use:     "inventories [inventory-id...]",
		Aliases: []string{"inv"},
		Short:   "List aggregated inventories of a run",
		Long: `List the per-language inventories saved by 'leapphon build'.

With inventory ids, each record is shown in full: segments split into vowels
and consonants plus family, area and ancestry.`,
		Example: `  # Summary table
  leapphon inventories

  # One inventory in detail
  leapphon inventories 2175

  # Every inventory of a glottocode
  leapphon inventories --glottocode stan1293`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventories(cmd, args, opts)
		},
	}

	addRunFlag(cmd, &opts.RunID)
	cmd.Flags().StringVarP(&opts.Glottocode, "glottocode", "g", "", "Only inventories of this glottocode")

	return cmd
}

func runInventories(cmd *cobra.Command, args []string, opts *InventoriesOptions) error {
	cctx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	invs, err := loadInventories(cmd.Context(), cctx.Engine, args, opts)
	if err != nil {
		return err
	}

	r := cctx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]InventoryJSON, 0, len(invs))
		for _, inv := range invs {
			out = append(out, inventoryJSON(inv))
		}
		return r.JSON(out)
	}
	if len(args) > 0 {
		for _, inv := range invs {
			renderInventory(r, inv)
		}
		return nil
	}
	renderInventoryTable(r, invs)
	return nil
}

func loadInventories(ctx context.Context, eng *engine.Engine, ids []string, opts *InventoriesOptions) ([]*core.Inventory, error) {
	runID := opts.RunID
	if runID == "" {
		run, err := eng.LatestRun(ctx)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	store := eng.GetStateStore()
	if len(ids) > 0 {
		out := make([]*core.Inventory, 0, len(ids))
		for _, id := range ids {
			inv, err := store.GetInventory(ctx, runID, id)
			if err != nil {
				return nil, err
			}
			out = append(out, inv)
		}
		return out, nil
	}
	if opts.Glottocode != "" {
		return store.FindInventoriesByGlottocode(ctx, runID, opts.Glottocode)
	}
	return store.ListInventories(ctx, runID)
}

func renderInventoryTable(r *output.Renderer, invs []*core.Inventory) {
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Inventories"))
		r.Println("")
	} else {
		r.Header(1, "Inventories")
	}

	rows := make([][]string, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, []string{
			inv.InventoryID,
			inv.Glottocode,
			inv.LanguageName,
			inv.FamilyName,
			inv.Macroarea,
			strconv.Itoa(len(inv.Vowels)),
			strconv.Itoa(len(inv.Consonants)),
		})
	}
	r.Table([]string{"ID", "Glottocode", "Language", "Family", "Macroarea", "Vowels", "Consonants"}, rows)
	r.Printf("(%d inventories)\n", len(invs))
}

func renderInventory(r *output.Renderer, inv *core.Inventory) {
	title := inv.InventoryID + " " + inv.LanguageName
	if inv.SpecificDialect != "" {
		title += " (" + inv.SpecificDialect + ")"
	}
	fields := [][2]string{
		{"Glottocode", inv.Glottocode},
		{"ISO 639-3", inv.ISO6393},
		{"Source", inv.Source},
		{"Family", inv.FamilyName + " [" + inv.FamilyID + "]"},
		{"Macroarea", inv.Macroarea},
		{"Location", inv.Latitude + ", " + inv.Longitude},
		{"Countries", output.FormatList(inv.Countries)},
		{"Ancestry", strings.Join(inv.Ancestry, " < ")},
		{"Vowels", output.FormatList(inv.Vowels)},
		{"Consonants", output.FormatList(inv.Consonants)},
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(2, title))
		r.Println("")
		for _, f := range fields {
			r.Println(output.FormatKeyValue(f[0], f[1]) + "  ")
		}
		r.Println("")
		return
	}
	r.Header(2, title)
	for _, f := range fields {
		r.KeyValue(f[0], f[1])
	}
	r.Println("")
}
