package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapphon/internal/cli/config"
)

// ConfigField is one documented configuration key.
type ConfigField struct {
	Key         string
	Type        string
	Required    bool
	Allowed     []string
	Default     string
	Description string
}

// descriptions documents each key; configFields fails on a key missing here.
var descriptions = map[string]string{
	"dataset":           "Phoible inventory table, a local path or http(s) URL",
	"languoids":         "Glottolog languoid table for genealogy enrichment",
	"geo":               "Glottolog languages_and_dialects_geo table, supplies macroareas",
	"metadata_columns":  "Leading non-feature columns of the inventory table",
	"no_segment_marker": "Marker column value that flags a row without a segment",
	"normalization":     "Unicode normalization applied to phoneme strings",
	"conflict_policy":   "How conflicting attestations of one phoneme are resolved",
	"inventory_limit":   "Keep only the first N inventories, 0 keeps all",
	"not_applicable":    "Sentinel written for missing genealogy values",
	"state_path":        "SQLite database recording runs and snapshots",
	"fetch_timeout":     "Timeout for each remote download",
	"verbose":           "Debug logging on stderr",
	"output":            "Output format of read commands",
	"log_format":        "Log record format",
	"rules":             "Extra diacritic rules applied after the built-in ones",
	"rules.name":        "Rule name recorded as the derivation of new phonemes",
	"rules.mark":        "Diacritic appended to each phoneme that lacks it",
	"rules.set":         "Feature overrides of derived phonemes, values + - or 0",
	"export":            "Database receiving every completed run",
	"export.type":       "Export adapter",
	"export.database":   "DuckDB file path or PostgreSQL database name",
	"export.host":       "PostgreSQL host",
	"export.port":       "PostgreSQL port",
	"export.user":       "PostgreSQL user",
	"export.password":   "PostgreSQL password, ${VAR} references are expanded",
	"export.schema":     "Target schema",
	"export.params":     "Adapter-specific settings",
}

func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fields, err := configFields()
	if err != nil {
		return err
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "leapphon configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("leapphon reads %s from the working directory or the nearest parent holding one. Relative paths resolve against that directory.", InlineCode(config.ConfigFileName)))

	headers := []string{"Key", "Type", "Required", "Default", "Description"}
	var rows [][]string
	for _, f := range fields {
		req := "No"
		if f.Required {
			req = "Yes"
		}
		def := f.Default
		if def == "" {
			def = "-"
		} else {
			def = InlineCode(def)
		}
		desc := f.Description
		if len(f.Allowed) > 0 {
			desc += " (" + strings.Join(f.Allowed, ", ") + ")"
		}
		rows = append(rows, []string{InlineCode(f.Key), f.Type, req, def, cleanDescription(desc)})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `dataset: ./phoible.csv
languoids: ./languoid.csv
geo: ./languages_and_dialects_geo.csv
conflict_policy: majority

rules:
  - name: nasalized
    mark: "\u0303"
    set:
      nasal: "+"

export:
  type: postgres
  host: localhost
  database: phonology
  user: leapphon
  password: ${PGPASSWORD}`)

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}

// configFields walks the koanf-tagged fields of config.Config.
func configFields() ([]ConfigField, error) {
	defaults := config.Defaults()
	var fields []ConfigField
	var missing []string

	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			key := sf.Tag.Get("koanf")
			if key == "" || key == "-" {
				continue
			}
			full := prefix + key

			desc, ok := descriptions[full]
			if !ok {
				missing = append(missing, full)
			}
			f := ConfigField{Key: full, Type: typeName(sf.Type), Description: desc}
			for _, rule := range strings.Split(sf.Tag.Get("validate"), ",") {
				switch {
				case rule == "required":
					f.Required = true
				case strings.HasPrefix(rule, "oneof="):
					f.Allowed = strings.Fields(strings.TrimPrefix(rule, "oneof="))
				}
			}
			if v, ok := defaults[full]; ok {
				f.Default = fmt.Sprint(v)
			}
			fields = append(fields, f)

			elem := sf.Type
			for elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Slice {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct && elem.PkgPath() == t.PkgPath() {
				walk(elem, full+".")
			}
		}
	}
	walk(reflect.TypeOf(config.Config{}), "")

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("undocumented config keys: %s", strings.Join(missing, ", "))
	}
	return fields, nil
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "object"
	case reflect.Slice:
		return "list"
	case reflect.Map:
		return "map"
	case reflect.Int64:
		if t.String() == "time.Duration" {
			return "duration"
		}
	}
	return t.Kind().String()
}
