// Package config provides configuration management for the leapphon CLI.
//
// Configuration is layered with koanf: built-in defaults, then leapphon.yaml
// (searched upward from the working directory), then LEAPPHON_* environment
// variables, then explicitly set command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/internal/features"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	Dataset   string `koanf:"dataset" validate:"required"`
	Languoids string `koanf:"languoids"`
	Geo       string `koanf:"geo" validate:"excluded_without=Languoids"`

	MetadataColumns int    `koanf:"metadata_columns" validate:"min=1"`
	NoSegmentMarker string `koanf:"no_segment_marker" validate:"required"`
	Normalization   string `koanf:"normalization" validate:"oneof=none nfc nfd"`
	ConflictPolicy  string `koanf:"conflict_policy" validate:"oneof=first last majority"`
	InventoryLimit  int    `koanf:"inventory_limit" validate:"min=0"`
	NotApplicable   string `koanf:"not_applicable" validate:"required"`

	StatePath    string        `koanf:"state_path" validate:"required"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output" validate:"oneof=auto text markdown json"`
	LogFormat    string `koanf:"log_format" validate:"oneof=text json"`

	Rules  []RuleConfig  `koanf:"rules" validate:"dive"`
	Export *ExportConfig `koanf:"export"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// RuleConfig declares an extra diacritic rewrite rule. Every phoneme without
// Mark gains a copy with Mark appended and the Set features overridden.
type RuleConfig struct {
	Name string            `koanf:"name" validate:"required"`
	Mark string            `koanf:"mark" validate:"required"`
	Set  map[string]string `koanf:"set" validate:"required,min=1,dive,keys,required,endkeys,featurevalue"`
}

// Rule converts the declaration to a features.Rule.
func (r RuleConfig) Rule() features.Rule {
	set := make(core.FeatureVector, len(r.Set))
	for name, v := range r.Set {
		set[name] = core.FeatureValue(v)
	}
	return features.DiacriticRule{RuleName: r.Name, Mark: r.Mark, Set: set}
}

// ExportConfig selects the database that receives every completed run.
type ExportConfig struct {
	Type     string         `koanf:"type" validate:"required,oneof=duckdb postgres"`
	Database string         `koanf:"database" validate:"required_if=Type postgres"`
	Host     string         `koanf:"host" validate:"required_if=Type postgres"`
	Port     int            `koanf:"port" validate:"min=0,max=65535"`
	User     string         `koanf:"user"`
	Password string         `koanf:"password"`
	Schema   string         `koanf:"schema"`
	Params   map[string]any `koanf:"params"`
}

// AdapterConfig converts the export section for the adapter registry.
func (e *ExportConfig) AdapterConfig() *core.AdapterConfig {
	if e == nil {
		return nil
	}
	return &core.AdapterConfig{
		Type:     e.Type,
		Path:     e.Database,
		Host:     e.Host,
		Port:     e.Port,
		Database: e.Database,
		Username: e.User,
		Password: e.Password,
		Schema:   e.Schema,
		Params:   e.Params,
	}
}

// ExtraRules returns the configured rules in declaration order.
func (c *Config) ExtraRules() []features.Rule {
	rules := make([]features.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rules = append(rules, r.Rule())
	}
	return rules
}

// Default configuration values.
const (
	DefaultStateFile       = ".leapphon/state.db"
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat       = "text"
	DefaultNormalization   = string(dataset.NormalizeNone)
	DefaultConflictPolicy  = string(features.PolicyFirst)
	DefaultNoSegmentMarker = features.DefaultNoSegmentMarker
	DefaultFetchTimeout    = 5 * time.Minute
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "leapphon.yaml"
	ConfigFileNameAlt = "leapphon.yml"
)
