package adapter_test

import (
	"testing"

	"github.com/leapstack-labs/leapphon/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leapphon/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapphon/pkg/adapters/postgres"
)

func TestBuiltinAdaptersRegistered(t *testing.T) {
	for _, name := range []string{"duckdb", "postgres"} {
		assert.True(t, adapter.IsRegistered(name), name)
	}
	assert.False(t, adapter.IsRegistered("unknown_db"))
}

func TestNewAdapter_Builtin(t *testing.T) {
	tests := []struct {
		typ     string
		dialect string
	}{
		{typ: "duckdb", dialect: "duckdb"},
		{typ: "postgres", dialect: "postgres"},
		{typ: "DuckDB", dialect: "duckdb"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			adp, err := adapter.NewAdapter(adapter.Config{Type: tt.typ}, nil)
			require.NoError(t, err)
			require.NotNil(t, adp)
			assert.Equal(t, tt.dialect, adp.DialectName())
		})
	}
}
