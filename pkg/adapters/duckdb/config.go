package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration decoded from Config.Params.
type Params struct {
	// Extensions to install and load (e.g., "json", "spatial").
	Extensions []string `mapstructure:"extensions"`

	// Settings applied with SET at session level (e.g., memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

// ParseParams decodes raw adapter params. Scalar settings are stringified.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}
