package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapphon/internal/cli/config"
	"github.com/leapstack-labs/leapphon/internal/cli/output"
	"github.com/leapstack-labs/leapphon/internal/cli/testutil"
	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/internal/genealogy"
	_ "github.com/leapstack-labs/leapphon/pkg/adapters/duckdb"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupProject writes a fixture project and loads its config.
func setupProject(t *testing.T, extra string) testutil.Project {
	t.Helper()
	p := testutil.SetupTestProject(t, extra)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig(p.Config, nil)
	require.NoError(t, err)
	return p
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func mustBuild(t *testing.T) BuildOutput {
	t.Helper()
	prev := config.GetCurrentConfig().OutputFormat
	config.GetCurrentConfig().OutputFormat = "json"
	defer func() { config.GetCurrentConfig().OutputFormat = prev }()

	stdout, _, err := execute(NewBuildCommand())
	require.NoError(t, err)

	var out BuildOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	return out
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewBuildCommand(), "build", []string{"dry-run"}},
		{NewFeaturesCommand(), "features [phoneme...]", []string{"run", "has", "attested", "bag"}},
		{NewSimilarCommand(), "similar <phoneme>", []string{"run", "top"}},
		{NewInventoriesCommand(), "inventories [inventory-id...]", []string{"run", "glottocode"}},
		{NewRunsCommand(), "runs", []string{"limit"}},
		{NewLineageCommand(), "lineage <glottocode>", []string{"children"}},
		{NewInitCommand(), "init [directory]", []string{"force", "dataset", "languoids", "geo", "export"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Long)
			for _, f := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(f), "flag --%s", f)
			}
		})
	}
}

func TestBuildCommand(t *testing.T) {
	p := setupProject(t, "")

	stdout, _, err := execute(NewBuildCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Build")
	assert.Contains(t, stdout, "completed")
	assert.FileExists(t, filepath.Join(p.Dir, ".leapphon", "state.db"))

	out := mustBuild(t)
	assert.Equal(t, "completed", out.Status)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, CountsJSON{Rows: 10, Attested: 6, Derived: 42, Inventories: 4, Enriched: 2}, out.Counts)
	assert.NotNil(t, out.CompletedAt)
}

func TestBuildCommand_DryRun(t *testing.T) {
	p := setupProject(t, "output: json\n")

	stdout, _, err := execute(NewBuildCommand(), "--dry-run")
	require.NoError(t, err)

	var out BuildOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "dry-run", out.Status)
	assert.Empty(t, out.RunID)
	assert.Equal(t, 4, out.Counts.Inventories)

	_, err = os.Stat(filepath.Join(p.Dir, ".leapphon", "state.db"))
	assert.True(t, os.IsNotExist(err), "dry run must not create the state database")
}

func TestBuildCommand_DuckDBExport(t *testing.T) {
	p := setupProject(t, "output: json\nexport:\n  type: duckdb\n  database: out.duckdb\n")

	stdout, _, err := execute(NewBuildCommand())
	require.NoError(t, err)

	var out BuildOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "duckdb", out.Exported)
	assert.FileExists(t, filepath.Join(p.Dir, "out.duckdb"))
}

func TestReadCommands_WithoutRun(t *testing.T) {
	setupProject(t, "")

	for _, cmd := range []*cobra.Command{NewFeaturesCommand(), NewInventoriesCommand()} {
		_, _, err := execute(cmd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "leapphon build")
	}

	stdout, _, err := execute(NewRunsCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded yet")
}

func TestFeaturesCommand(t *testing.T) {
	setupProject(t, "")
	mustBuild(t)

	t.Run("table", func(t *testing.T) {
		stdout, _, err := execute(NewFeaturesCommand())
		require.NoError(t, err)
		assert.Contains(t, stdout, "# Features")
		assert.Contains(t, stdout, "(48 phonemes)")
	})

	t.Run("attested", func(t *testing.T) {
		stdout, _, err := execute(NewFeaturesCommand(), "--attested")
		require.NoError(t, err)
		assert.Contains(t, stdout, "(6 phonemes)")
	})

	t.Run("unknown phoneme", func(t *testing.T) {
		_, _, err := execute(NewFeaturesCommand(), "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `phoneme "q" not found`)
	})

	t.Run("json", func(t *testing.T) {
		config.GetCurrentConfig().OutputFormat = "json"
		defer func() { config.GetCurrentConfig().OutputFormat = config.DefaultOutput }()

		stdout, _, err := execute(NewFeaturesCommand(), "a", "s", "--bag")
		require.NoError(t, err)

		var got []PhonemeJSON
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Phoneme)
		assert.Equal(t, "+", got[0].Features["syllabic"])
		assert.Contains(t, got[0].Bag, "+syllabic")
		assert.Empty(t, got[0].DerivedBy)
		assert.Equal(t, "+", got[1].Features["consonantal"])
	})

	t.Run("has", func(t *testing.T) {
		config.GetCurrentConfig().OutputFormat = "json"
		defer func() { config.GetCurrentConfig().OutputFormat = config.DefaultOutput }()

		stdout, _, err := execute(NewFeaturesCommand(), "--has", "+syllabic,+front", "--attested")
		require.NoError(t, err)

		var got []PhonemeJSON
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "i", got[0].Phoneme)
	})
}

func TestSimilarCommand(t *testing.T) {
	setupProject(t, "output: json\n")
	mustBuild(t)

	stdout, _, err := execute(NewSimilarCommand(), "s", "--top", "3")
	require.NoError(t, err)

	var got []MatchJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 3)
	for i, m := range got {
		assert.NotEqual(t, "s", m.Phoneme)
		if i > 0 {
			assert.LessOrEqual(t, m.Score, got[i-1].Score)
		}
	}

	_, _, err = execute(NewSimilarCommand(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInventoriesCommand(t *testing.T) {
	setupProject(t, "output: json\n")
	mustBuild(t)

	stdout, _, err := execute(NewInventoriesCommand())
	require.NoError(t, err)
	var all []InventoryJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &all))
	assert.Len(t, all, 4)

	stdout, _, err = execute(NewInventoriesCommand(), "--glottocode", "stan1293")
	require.NoError(t, err)
	var eng []InventoryJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &eng))
	require.Len(t, eng, 1)
	assert.Equal(t, "1", eng[0].InventoryID)
	assert.Equal(t, "Indo-European", eng[0].FamilyName)
	assert.Equal(t, "Eurasia", eng[0].Macroarea)
	assert.Equal(t, []string{"West Germanic", "Germanic", "Indo-European"}, eng[0].Ancestry)

	stdout, _, err = execute(NewInventoriesCommand(), "2")
	require.NoError(t, err)
	var mand []InventoryJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &mand))
	require.Len(t, mand, 1)
	assert.Equal(t, "Beijing", mand[0].SpecificDialect)
	assert.Contains(t, mand[0].Vowels, "i")

	_, _, err = execute(NewInventoriesCommand(), "999")
	assert.Error(t, err)
}

func TestInventoriesCommand_Markdown(t *testing.T) {
	setupProject(t, "")
	mustBuild(t)

	stdout, _, err := execute(NewInventoriesCommand())
	require.NoError(t, err)
	testutil.AssertValidMarkdown(t, stdout)
	testutil.AssertNoANSI(t, stdout)
	assert.Contains(t, stdout, "# Inventories")
	assert.Contains(t, stdout, "(4 inventories)")

	stdout, _, err = execute(NewInventoriesCommand(), "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "English")
}

func TestRunsCommand(t *testing.T) {
	setupProject(t, "")
	first := mustBuild(t)
	second := mustBuild(t)

	config.GetCurrentConfig().OutputFormat = "json"
	stdout, _, err := execute(NewRunsCommand())
	require.NoError(t, err)

	var runs []BuildOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 2)
	ids := []string{runs[0].RunID, runs[1].RunID}
	assert.ElementsMatch(t, []string{first.RunID, second.RunID}, ids)

	stdout, _, err = execute(NewRunsCommand(), "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	assert.Len(t, runs, 1)

	// Reading an older run by id.
	stdout, _, err = execute(NewFeaturesCommand(), "--run", first.RunID, "--attested")
	require.NoError(t, err)
	var got []PhonemeJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Len(t, got, 6)
}

func TestLineageCommand(t *testing.T) {
	setupProject(t, "output: json\n")

	stdout, _, err := execute(NewLineageCommand(), "stan1293")
	require.NoError(t, err)

	var out LineageOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "English", out.Name)
	assert.Equal(t, "indo1319", out.FamilyID)
	assert.Equal(t, "Eurasia", out.Macroarea)
	require.Len(t, out.Ancestors, 3)
	assert.Equal(t, "west2793", out.Ancestors[0].ID)
	assert.Equal(t, "Indo-European", out.Ancestors[2].Name)
	assert.Zero(t, out.Descendants)

	stdout, _, err = execute(NewLineageCommand(), "germ1287", "--children")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Children, 1)
	assert.Equal(t, "west2793", out.Children[0].ID)
	assert.Equal(t, 2, out.Descendants)

	_, _, err = execute(NewLineageCommand(), "zzzz0000")
	assert.Error(t, err)
}

func TestLineageCommand_NotApplicable(t *testing.T) {
	setupProject(t, "output: json\nnot_applicable: \"-\"\n")

	stdout, _, err := execute(NewLineageCommand(), "indo1319")
	require.NoError(t, err)

	var out LineageOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "Indo-European", out.Name)
	assert.Equal(t, "-", out.FamilyID)
	assert.Equal(t, "-", out.Macroarea)
	assert.Empty(t, out.Ancestors)
}

func TestLineageCommand_Text(t *testing.T) {
	setupProject(t, "output: text\n")

	stdout, _, err := execute(NewLineageCommand(), "mand1415")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Mandarin Chinese")
	assert.Contains(t, stdout, "Sino-Tibetan")
}

func TestInitCommand(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{
			name: "defaults",
			want: []string{dataset.DefaultPhoibleURL, "conflict_policy: first", "state_path: .leapphon/state.db"},
		},
		{
			name: "local inputs with duckdb export",
			args: []string{"--dataset", "phoible.csv", "--languoids", "languoid.csv", "--export", "duckdb"},
			want: []string{"dataset: phoible.csv", "languoids: languoid.csv", "type: duckdb"},
		},
		{
			name: "postgres export",
			args: []string{"--export", "postgres"},
			want: []string{"type: postgres", "port: 5432", "${PGPASSWORD}"},
		},
		{
			name:    "unknown export",
			args:    []string{"--export", "sqlite"},
			wantErr: "unknown export type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "proj")
			stdout, _, err := execute(NewInitCommand(), append([]string{dir}, tt.args...)...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout, "leapphon project initialized")

			data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, string(data), w)
			}

			// The written file loads and validates.
			_, err = config.LoadConfig(filepath.Join(dir, config.ConfigFileName), nil)
			require.NoError(t, err)
			config.ResetConfig()
		})
	}
}

func TestInitCommand_Force(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	dir := t.TempDir()

	_, _, err := execute(NewInitCommand(), dir)
	require.NoError(t, err)

	_, _, err = execute(NewInitCommand(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, stderr, err := execute(NewInitCommand(), dir, "--force")
	assert.NoError(t, err)
	assert.Contains(t, stderr, "overwrote existing")
}

func TestRenderBuild_Modes(t *testing.T) {
	out := BuildOutput{
		RunID:   "run-1",
		Status:  "completed",
		Dataset: "phoible.csv",
		Counts:  CountsJSON{Rows: 10, Attested: 6, Derived: 42, Inventories: 4, Enriched: 2},
	}

	tests := []struct {
		name string
		tr   *testutil.TestRenderer
		mode output.OutputMode
		want []string
	}{
		{"auto", testutil.NewTestRenderer(output.ModeAuto, false), output.ModeMarkdown, []string{"# Build", "**Status:** completed", "| 42 "}},
		{"markdown", testutil.RendererFor(output.ModeMarkdown), output.ModeMarkdown, []string{"**Run:** run-1"}},
		{"text", testutil.RendererFor(output.ModeText), output.ModeText, []string{"Build", "run-1", "6 attested, 42 derived", "4 (2 with genealogy)"}},
		{"json", testutil.RendererFor(output.ModeJSON), output.ModeJSON, []string{`"run_id": "run-1"`, `"derived": 42`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, renderBuild(tt.tr.Renderer, out))
			for _, w := range tt.want {
				assert.Contains(t, tt.tr.Output(), w)
			}
			testutil.AssertOutputMode(t, tt.tr, tt.mode)
			assert.Empty(t, tt.tr.ErrorOutput())
		})
	}
}

func TestRenderLineage_TopLevel(t *testing.T) {
	tr := testutil.RendererFor(output.ModeMarkdown)
	out := LineageOutput{Glottocode: "indo1319", Name: "Indo-European"}

	require.NoError(t, renderLineage(tr.Renderer, out, false))
	assert.Contains(t, tr.Output(), "Lineage of Indo-European (indo1319)")
	assert.Contains(t, tr.Output(), "Top-level languoid.")
	assert.NotContains(t, tr.Output(), "Children")
	testutil.AssertValidMarkdown(t, tr.Output())

	tr.Reset()
	out.Children = []genealogy.Step{{ID: "germ1287", Name: "Germanic"}}
	require.NoError(t, renderLineage(tr.Renderer, out, true))
	assert.Contains(t, tr.Output(), "Children (1)")
	assert.Contains(t, tr.Output(), "- Germanic (`germ1287`)")
}
