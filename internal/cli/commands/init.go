package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapphon/internal/cli/config"
	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/pkg/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Force     bool
	Dataset   string
	Languoids string
	Geo       string
	Export    string
}

// starterConfig is the leapphon.yaml written by init.
type starterConfig struct {
	Dataset         string         `yaml:"dataset"`
	Languoids       string         `yaml:"languoids,omitempty"`
	Geo             string         `yaml:"geo,omitempty"`
	MetadataColumns int            `yaml:"metadata_columns"`
	NoSegmentMarker string         `yaml:"no_segment_marker"`
	Normalization   string         `yaml:"normalization"`
	ConflictPolicy  string         `yaml:"conflict_policy"`
	InventoryLimit  int            `yaml:"inventory_limit"`
	NotApplicable   string         `yaml:"not_applicable"`
	StatePath       string         `yaml:"state_path"`
	Rules           []starterRule  `yaml:"rules,omitempty"`
	Export          *starterExport `yaml:"export,omitempty"`
}

type starterRule struct {
	Name string            `yaml:"name"`
	Mark string            `yaml:"mark"`
	Set  map[string]string `yaml:"set"`
}

type starterExport struct {
	Type     string `yaml:"type"`
	Database string `yaml:"database"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Schema   string `yaml:"schema,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a starter leapphon.yaml",
		Long: `Create a leapphon.yaml with every setting at its default value.

The dataset defaults to the phoible table on GitHub. Use --export to add a
DuckDB or PostgreSQL export section.`,
		Example: `  # Initialize in current directory
  leapphon init

  # Local inputs and a DuckDB export
  leapphon init --dataset phoible.csv --languoids languoid.csv --export duckdb

  # Force overwrite existing config
  leapphon init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cctx := NewCommandContextWithoutEngine(cmd)
			return runInit(cctx.Renderer, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", dataset.DefaultPhoibleURL, "Inventory table path or URL")
	cmd.Flags().StringVar(&opts.Languoids, "languoids", "", "Languoid table path or URL")
	cmd.Flags().StringVar(&opts.Geo, "geo", "", "Languages-and-dialects geo table path or URL")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Add an export section (duckdb|postgres)")

	return cmd
}

func runInit(r *output.Renderer, dir string, opts *InitOptions) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, config.ConfigFileName)
	_, statErr := os.Stat(configPath)
	exists := statErr == nil
	if exists && !opts.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	starter, err := newStarterConfig(opts)
	if err != nil {
		return err
	}
	data, err := encodeStarter(starter)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	if exists {
		r.Warning("overwrote existing " + configPath)
	}
	r.StatusLine(config.ConfigFileName, "success", "")
	r.Println("")
	r.Success("leapphon project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point 'languoids' at a glottolog languoid table for genealogy")
	r.Println("  2. Run 'leapphon build' to derive features and inventories")
	r.Println("  3. Run 'leapphon features' or 'leapphon inventories' to inspect the result")

	return nil
}

func newStarterConfig(opts *InitOptions) (*starterConfig, error) {
	s := &starterConfig{
		Dataset:         opts.Dataset,
		Languoids:       opts.Languoids,
		Geo:             opts.Geo,
		MetadataColumns: dataset.DefaultMetadataColumns,
		NoSegmentMarker: config.DefaultNoSegmentMarker,
		Normalization:   config.DefaultNormalization,
		ConflictPolicy:  config.DefaultConflictPolicy,
		NotApplicable:   core.NotApplicable,
		StatePath:       config.DefaultStateFile,
	}

	switch opts.Export {
	case "":
	case "duckdb":
		s.Export = &starterExport{Type: "duckdb", Database: "leapphon.duckdb"}
	case "postgres":
		s.Export = &starterExport{
			Type:     "postgres",
			Database: "leapphon",
			Host:     "localhost",
			Port:     5432,
			User:     "leapphon",
			Password: "${PGPASSWORD}",
			Schema:   "public",
		}
	default:
		return nil, fmt.Errorf("unknown export type %q (want duckdb or postgres)", opts.Export)
	}
	return s, nil
}

func encodeStarter(s *starterConfig) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# leapphon configuration\n")
	buf.WriteString("# Every key can be overridden with LEAPPHON_<KEY> or a command-line flag.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
