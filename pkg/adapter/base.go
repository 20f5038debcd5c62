package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Placeholder renders the n-th (1-based) bind parameter of a dialect.
type Placeholder func(n int) string

// QuestionPlaceholder is used by DuckDB and SQLite.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is used by PostgreSQL.
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// Export table names.
const (
	TablePhonemes          = "phonemes"
	TableInventories       = "inventories"
	TableInventorySegments = "inventory_segments"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed it in concrete adapters to get Close, Exec and ExportCommon.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// QualifiedName prefixes table with schema when one is set.
func QualifiedName(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

// SchemaDDL returns the CREATE statements for the export tables.
// Complex values are stored as JSON text so every dialect can hold them.
func SchemaDDL(schema string) []string {
	var stmts []string
	if schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+schema)
	}
	stmts = append(stmts,
		`CREATE TABLE IF NOT EXISTS `+QualifiedName(schema, TablePhonemes)+` (
	run_id TEXT NOT NULL,
	phoneme TEXT NOT NULL,
	attested BOOLEAN NOT NULL,
	derived_by TEXT,
	derived_from TEXT,
	features TEXT NOT NULL,
	bag TEXT NOT NULL,
	PRIMARY KEY (run_id, phoneme)
)`,
		`CREATE TABLE IF NOT EXISTS `+QualifiedName(schema, TableInventories)+` (
	run_id TEXT NOT NULL,
	inventory_id TEXT NOT NULL,
	glottocode TEXT,
	iso6393 TEXT,
	language_name TEXT,
	specific_dialect TEXT,
	source TEXT,
	glyph_id TEXT,
	name TEXT,
	family_id TEXT,
	family_name TEXT,
	macroarea TEXT,
	latitude TEXT,
	longitude TEXT,
	countries TEXT NOT NULL,
	ancestry TEXT NOT NULL,
	PRIMARY KEY (run_id, inventory_id)
)`,
		`CREATE TABLE IF NOT EXISTS `+QualifiedName(schema, TableInventorySegments)+` (
	run_id TEXT NOT NULL,
	inventory_id TEXT NOT NULL,
	phoneme TEXT NOT NULL,
	class TEXT NOT NULL,
	PRIMARY KEY (run_id, inventory_id, phoneme)
)`,
	)
	return stmts
}

// ExportCommon writes snap into the export tables inside one transaction,
// first deleting rows left by an earlier export of the same run.
func (b *BaseSQLAdapter) ExportCommon(ctx context.Context, snap *core.Snapshot, ph Placeholder) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	schema := b.Cfg.Schema

	for _, stmt := range SchemaDDL(schema) {
		if _, err := b.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create export schema: %w", err)
		}
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{TableInventorySegments, TableInventories, TablePhonemes} {
		//nolint:gosec // table names are constants
		q := fmt.Sprintf("DELETE FROM %s WHERE run_id = %s", QualifiedName(schema, table), ph(1))
		if _, err := tx.ExecContext(ctx, q, snap.RunID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	phonemeSQL := insertSQL(QualifiedName(schema, TablePhonemes), ph,
		"run_id", "phoneme", "attested", "derived_by", "derived_from", "features", "bag")
	for _, p := range snap.Phonemes {
		features, err := EncodeFeatures(p)
		if err != nil {
			return err
		}
		bag, err := json.Marshal(p.Bag)
		if err != nil {
			return fmt.Errorf("failed to encode bag of %q: %w", p.Phoneme, err)
		}
		if _, err := tx.ExecContext(ctx, phonemeSQL,
			snap.RunID, p.Phoneme, p.Attested(), p.DerivedBy, p.DerivedFrom, features, string(bag)); err != nil {
			return fmt.Errorf("failed to insert phoneme %q: %w", p.Phoneme, err)
		}
	}

	inventorySQL := insertSQL(QualifiedName(schema, TableInventories), ph,
		"run_id", "inventory_id", "glottocode", "iso6393", "language_name", "specific_dialect",
		"source", "glyph_id", "name", "family_id", "family_name", "macroarea", "latitude",
		"longitude", "countries", "ancestry")
	segmentSQL := insertSQL(QualifiedName(schema, TableInventorySegments), ph,
		"run_id", "inventory_id", "phoneme", "class")

	for _, inv := range snap.Inventories {
		countries, err := json.Marshal(nonNil(inv.Countries))
		if err != nil {
			return fmt.Errorf("failed to encode countries of inventory %s: %w", inv.InventoryID, err)
		}
		ancestry, err := json.Marshal(nonNil(inv.Ancestry))
		if err != nil {
			return fmt.Errorf("failed to encode ancestry of inventory %s: %w", inv.InventoryID, err)
		}
		if _, err := tx.ExecContext(ctx, inventorySQL,
			snap.RunID, inv.InventoryID, inv.Glottocode, inv.ISO6393, inv.LanguageName,
			inv.SpecificDialect, inv.Source, inv.GlyphID, inv.Name, inv.FamilyID,
			inv.FamilyName, inv.Macroarea, inv.Latitude, inv.Longitude,
			string(countries), string(ancestry)); err != nil {
			return fmt.Errorf("failed to insert inventory %s: %w", inv.InventoryID, err)
		}

		for _, seg := range Segments(inv) {
			if _, err := tx.ExecContext(ctx, segmentSQL, snap.RunID, inv.InventoryID, seg.Phoneme, seg.Class); err != nil {
				return fmt.Errorf("failed to insert segment %q of inventory %s: %w", seg.Phoneme, inv.InventoryID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}

	if b.Logger != nil {
		b.Logger.Debug("exported snapshot",
			slog.String("run_id", snap.RunID),
			slog.Int("phonemes", len(snap.Phonemes)),
			slog.Int("inventories", len(snap.Inventories)))
	}
	return nil
}

// Segment classes.
const (
	ClassVowel     = "vowel"
	ClassConsonant = "consonant"
)

// Segment is one row of the inventory_segments table.
type Segment struct {
	Phoneme string
	Class   string
}

// Segments flattens the vowel/consonant partition of inv.
func Segments(inv *core.Inventory) []Segment {
	out := make([]Segment, 0, len(inv.Vowels)+len(inv.Consonants))
	for _, p := range inv.Vowels {
		out = append(out, Segment{Phoneme: p, Class: ClassVowel})
	}
	for _, p := range inv.Consonants {
		out = append(out, Segment{Phoneme: p, Class: ClassConsonant})
	}
	return out
}

// EncodeFeatures renders a feature vector as a JSON object whose keys keep
// the canonical feature order.
func EncodeFeatures(p core.PhonemeEntry) (string, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range p.Names {
		if i > 0 {
			sb.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return "", fmt.Errorf("failed to encode feature name %q: %w", name, err)
		}
		v, err := json.Marshal(string(p.Features[name]))
		if err != nil {
			return "", fmt.Errorf("failed to encode feature %q of %q: %w", name, p.Phoneme, err)
		}
		sb.Write(k)
		sb.WriteByte(':')
		sb.Write(v)
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

func insertSQL(table string, ph Placeholder, columns ...string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = ph(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(marks, ", "))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
