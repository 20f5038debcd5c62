// Package cli provides the command-line interface for leapphon.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapphon/internal/cli/commands"
	"github.com/leapstack-labs/leapphon/internal/cli/config"
	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/spf13/cobra"

	// Export adapters register themselves with the adapter registry.
	_ "github.com/leapstack-labs/leapphon/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapphon/pkg/adapters/postgres"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapphon",
		Short: "leapphon - phonological feature and inventory pipeline",
		Long: `leapphon derives distinctive features for every phoneme of the phoible
inventory table, groups phonemes into per-language inventories, and enriches
them with glottolog genealogy and geography.

Build results are recorded in a local state database so read commands can
inspect them without fetching the inputs again.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg)
			cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", slog.String("path", configFile))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: nearest leapphon.yaml)")
	pf.String("dataset", "", "Inventory table path or URL (default: phoible on GitHub)")
	pf.String("languoids", "", "Glottolog languoid table path or URL")
	pf.String("geo", "", "Languages-and-dialects geo table path or URL")
	pf.String("state", "", "Path to state database")
	pf.Int("limit", 0, "Keep only the first N inventories (0 for all)")
	pf.String("policy", "", "Feature conflict policy (first|last|majority)")
	pf.String("normalization", "", "Unicode normalization for phonemes (none|nfc|nfd)")
	pf.String("marker", "", "Marker denoting an inventory without segments")
	pf.String("na", "", "Sentinel written for missing values")
	pf.Int("metadata-columns", dataset.DefaultMetadataColumns, "Leading non-feature columns in the inventory table")
	pf.Duration("fetch-timeout", config.DefaultFetchTimeout, "Timeout for remote input downloads")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	pf.String("log-format", "", "Log format (text|json)")

	completions := map[string][]string{
		"output":        {"auto", "text", "markdown", "json"},
		"policy":        {"first", "last", "majority"},
		"normalization": {"none", "nfc", "nfd"},
		"log-format":    {"text", "json"},
	}
	for name, values := range completions {
		_ = rootCmd.RegisterFlagCompletionFunc(name, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		})
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewFeaturesCommand())
	rootCmd.AddCommand(commands.NewSimilarCommand())
	rootCmd.AddCommand(commands.NewInventoriesCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewLineageCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger builds the process logger. Logs go to stderr so command output
// stays parseable.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapphon.

To load completions:

Bash:
  $ source <(leapphon completion bash)
  
  # To load completions for each session, execute once:
  # Linux:
  $ leapphon completion bash > /etc/bash_completion.d/leapphon
  # macOS:
  $ leapphon completion bash > $(brew --prefix)/etc/bash_completion.d/leapphon

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  
  # To load completions for each session, execute once:
  $ leapphon completion zsh > "${fpath[1]}/_leapphon"
  
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ leapphon completion fish | source
  
  # To load completions for each session, execute once:
  $ leapphon completion fish > ~/.config/fish/completions/leapphon.fish

PowerShell:
  PS> leapphon completion powershell | Out-String | Invoke-Expression
  
  # To load completions for every new session, run:
  PS> leapphon completion powershell > leapphon.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
