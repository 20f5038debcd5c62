// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapphon/internal/cli/config"
	"github.com/leapstack-labs/leapphon/internal/cli/output"
	roottestutil "github.com/leapstack-labs/leapphon/internal/testutil"
)

// Project is a temporary leapphon project on disk.
type Project struct {
	Dir      string
	Config   string
	Fixtures roottestutil.Fixtures
}

// SetupTestProject writes the fixture tables and a leapphon.yaml that points
// at them. extra is appended to the config verbatim.
func SetupTestProject(t *testing.T, extra string) Project {
	t.Helper()

	fx := roottestutil.WriteFixtures(t)
	content := fmt.Sprintf(`dataset: phoible.csv
languoids: languoid.csv
geo: languages_and_dialects_geo.csv
state_path: .leapphon/state.db
%s`, extra)

	return Project{
		Dir:      fx.Dir,
		Config:   roottestutil.WriteFile(t, fx.Dir, config.ConfigFileName, content),
		Fixtures: fx,
	}
}

// TestRenderer is an output.Renderer whose streams are captured in memory.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer builds a renderer for mode. isTTY simulates an interactive
// terminal, which is what auto mode consults to choose text over markdown.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	tr := &TestRenderer{Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}}
	tr.Renderer = output.NewRendererWithTTY(tr.Out, tr.ErrOut, isTTY, mode)
	return tr
}

// RendererFor returns a renderer the way a user would typically get mode:
// text on a terminal, everything else piped.
func RendererFor(mode output.OutputMode) *TestRenderer {
	return NewTestRenderer(mode, mode == output.ModeText)
}

// Output returns what was written to stdout.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput returns what was written to stderr.
func (tr *TestRenderer) ErrorOutput() string { return tr.ErrOut.String() }

// Reset empties both buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails if s contains terminal escape sequences.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if loc := ansiEscape.FindStringIndex(s); loc != nil {
		t.Errorf("unexpected ANSI escape at byte %d in %q", loc[0], s)
	}
}

// AssertValidMarkdown checks code fences are balanced, headings are not
// empty and table rows in a block share a column count.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences: %d", n)
	}
	cols := 0
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("line %d: empty heading", i+1)
		}
		if !strings.HasPrefix(trimmed, "|") {
			cols = 0
			continue
		}
		n := strings.Count(strings.ReplaceAll(trimmed, `\|`, ""), "|")
		if cols != 0 && n != cols {
			t.Errorf("line %d: table row has %d separators, want %d", i+1, n, cols)
		}
		cols = n
	}
}

// AssertOutputMode checks captured output has the shape mode promises.
func AssertOutputMode(t *testing.T, tr *TestRenderer, mode output.OutputMode) {
	t.Helper()

	switch mode {
	case output.ModeMarkdown:
		AssertNoANSI(t, tr.Output()+tr.ErrorOutput())
		AssertValidMarkdown(t, tr.Output())
	case output.ModeJSON:
		AssertNoANSI(t, tr.Output()+tr.ErrorOutput())
		if !json.Valid(tr.Out.Bytes()) {
			t.Errorf("output is not valid JSON: %s", tr.Output())
		}
	}
}
