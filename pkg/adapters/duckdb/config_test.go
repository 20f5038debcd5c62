package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions",
			input: map[string]any{
				"extensions": []any{"json", "spatial"},
			},
			want: &Params{Extensions: []string{"json", "spatial"}},
		},
		{
			name: "settings are stringified",
			input: map[string]any{
				"settings": map[string]any{
					"memory_limit": "1GB",
					"threads":      2,
				},
			},
			want: &Params{Settings: map[string]string{"memory_limit": "1GB", "threads": "2"}},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"secrets": []any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSetSQL(t *testing.T) {
	assert.Equal(t, "SET threads = '2'", buildSetSQL("threads", "2"))
	assert.Equal(t, "SET search_path = 'a''b'", buildSetSQL("search_path", "a'b"))
}
