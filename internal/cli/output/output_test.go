package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"TEXT", ModeText},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mode(tt.in), tt.in)
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"json on terminal", ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_PlainWhenNotTTY(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeText)

	r.Header(1, "Features")
	r.Success("built")
	r.StatusLine("run-1", "completed", "48 phonemes")
	r.KeyValue("Run", "abc")
	r.Error("boom")
	r.Warning("careful")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "Features\n")
	assert.Contains(t, out.String(), "✓ built")
	assert.Contains(t, out.String(), "run-1  completed  48 phonemes")
	assert.Contains(t, out.String(), "Run: abc")
	assert.Contains(t, errOut.String(), "✗ boom")
	assert.Contains(t, errOut.String(), "! careful")
}

func TestRenderer_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"phonemes": 48}))
	assert.Equal(t, "{\n  \"phonemes\": 48\n}\n", out.String())
}

func TestRenderer_Table(t *testing.T) {
	header := []string{"Phoneme", "syllabic"}
	rows := [][]string{{"a", "+"}, {"t", "-"}}

	out := &bytes.Buffer{}
	NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown).Table(header, rows)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "|"))
	assert.Contains(t, strings.ToLower(lines[0]), "phoneme")
	assert.Contains(t, lines[1], "---")
	assert.Contains(t, lines[2], "a")

	out.Reset()
	NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText).Table(header, rows)
	assert.Contains(t, out.String(), "┌")
	assert.Contains(t, out.String(), "PHONEME")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Lineage", FormatHeader(2, "Lineage"))
	assert.Equal(t, "# X", FormatHeader(0, "X"))
	assert.Equal(t, "**Run:** r1", FormatKeyValue("Run", "r1"))
	assert.Equal(t, "-", FormatList(nil))
	assert.Equal(t, "GB US", FormatList([]string{"GB", "US"}))
}
