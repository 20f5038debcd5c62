package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Segment classes stored in inventory_segments.
const (
	classVowel     = "vowel"
	classConsonant = "consonant"
)

// SaveSnapshot stores the phonemes and inventories of a run, replacing any
// previously saved output of the same run.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *core.Snapshot) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM inventory_segments WHERE run_id = ?`,
		`DELETE FROM inventories WHERE run_id = ?`,
		`DELETE FROM phonemes WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, snap.RunID); err != nil {
			return fmt.Errorf("failed to clear previous snapshot: %w", err)
		}
	}

	phonemeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO phonemes (run_id, seq, phoneme, derived_by, derived_from, names, features, bag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare phoneme insert: %w", err)
	}
	defer func() { _ = phonemeStmt.Close() }()

	for i, p := range snap.Phonemes {
		names, err := json.Marshal(p.Names)
		if err != nil {
			return fmt.Errorf("encode names of %q: %w", p.Phoneme, err)
		}
		features, err := json.Marshal(p.Features)
		if err != nil {
			return fmt.Errorf("encode features of %q: %w", p.Phoneme, err)
		}
		bag, err := json.Marshal(p.Bag)
		if err != nil {
			return fmt.Errorf("encode bag of %q: %w", p.Phoneme, err)
		}
		if _, err := phonemeStmt.ExecContext(ctx, snap.RunID, i, p.Phoneme, p.DerivedBy, p.DerivedFrom,
			string(names), string(features), string(bag)); err != nil {
			return fmt.Errorf("insert phoneme %q: %w", p.Phoneme, err)
		}
	}

	invStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inventories (run_id, seq, inventory_id, glottocode, iso6393, language_name,
			specific_dialect, source, glyph_id, name, family_id, family_name, macroarea,
			latitude, longitude, countries, ancestry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare inventory insert: %w", err)
	}
	defer func() { _ = invStmt.Close() }()

	segStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inventory_segments (run_id, inventory_id, phoneme, class) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare segment insert: %w", err)
	}
	defer func() { _ = segStmt.Close() }()

	for i, inv := range snap.Inventories {
		countries, err := json.Marshal(orEmpty(inv.Countries))
		if err != nil {
			return fmt.Errorf("encode countries of inventory %s: %w", inv.InventoryID, err)
		}
		ancestry, err := json.Marshal(orEmpty(inv.Ancestry))
		if err != nil {
			return fmt.Errorf("encode ancestry of inventory %s: %w", inv.InventoryID, err)
		}
		if _, err := invStmt.ExecContext(ctx, snap.RunID, i, inv.InventoryID, inv.Glottocode, inv.ISO6393,
			inv.LanguageName, inv.SpecificDialect, inv.Source, inv.GlyphID, inv.Name, inv.FamilyID,
			inv.FamilyName, inv.Macroarea, inv.Latitude, inv.Longitude, string(countries), string(ancestry)); err != nil {
			return fmt.Errorf("insert inventory %s: %w", inv.InventoryID, err)
		}

		for class, phonemes := range map[string][]string{classVowel: inv.Vowels, classConsonant: inv.Consonants} {
			for _, p := range phonemes {
				if _, err := segStmt.ExecContext(ctx, snap.RunID, inv.InventoryID, p, class); err != nil {
					return fmt.Errorf("insert segment %q of inventory %s: %w", p, inv.InventoryID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.logger.Debug("saved snapshot",
		slog.String("run_id", snap.RunID),
		slog.Int("phonemes", len(snap.Phonemes)),
		slog.Int("inventories", len(snap.Inventories)))
	return nil
}

const phonemeColumns = `phoneme, derived_by, derived_from, names, features, bag`

// ListPhonemes returns the feature table of a run in key order.
func (s *SQLiteStore) ListPhonemes(ctx context.Context, runID string) ([]core.PhonemeEntry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+phonemeColumns+` FROM phonemes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phonemes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.PhonemeEntry
	for rows.Next() {
		p, err := scanPhoneme(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetPhoneme returns one feature-table entry of a run.
func (s *SQLiteStore) GetPhoneme(ctx context.Context, runID, phoneme string) (*core.PhonemeEntry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+phonemeColumns+` FROM phonemes WHERE run_id = ? AND phoneme = ?`, runID, phoneme)
	p, err := scanPhoneme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("phoneme %q: %w", phoneme, ErrNotFound)
	}
	return p, err
}

func scanPhoneme(sc scanner) (*core.PhonemeEntry, error) {
	var p core.PhonemeEntry
	var names, features, bag string
	if err := sc.Scan(&p.Phoneme, &p.DerivedBy, &p.DerivedFrom, &names, &features, &bag); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(names), &p.Names); err != nil {
		return nil, fmt.Errorf("decode names of %q: %w", p.Phoneme, err)
	}
	if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
		return nil, fmt.Errorf("decode features of %q: %w", p.Phoneme, err)
	}
	if err := json.Unmarshal([]byte(bag), &p.Bag); err != nil {
		return nil, fmt.Errorf("decode bag of %q: %w", p.Phoneme, err)
	}
	return &p, nil
}

const inventoryColumns = `inventory_id, glottocode, iso6393, language_name, specific_dialect,
	source, glyph_id, name, family_id, family_name, macroarea, latitude, longitude,
	countries, ancestry`

// ListInventories returns every inventory of a run in saved order.
func (s *SQLiteStore) ListInventories(ctx context.Context, runID string) ([]*core.Inventory, error) {
	return s.queryInventories(ctx, runID,
		`SELECT `+inventoryColumns+` FROM inventories WHERE run_id = ? ORDER BY seq`)
}

// GetInventory returns one inventory of a run.
func (s *SQLiteStore) GetInventory(ctx context.Context, runID, inventoryID string) (*core.Inventory, error) {
	invs, err := s.queryInventories(ctx, runID,
		`SELECT `+inventoryColumns+` FROM inventories WHERE run_id = ? AND inventory_id = ?`, inventoryID)
	if err != nil {
		return nil, err
	}
	if len(invs) == 0 {
		return nil, fmt.Errorf("inventory %s: %w", inventoryID, ErrNotFound)
	}
	return invs[0], nil
}

// FindInventoriesByGlottocode returns the inventories of one language.
func (s *SQLiteStore) FindInventoriesByGlottocode(ctx context.Context, runID, glottocode string) ([]*core.Inventory, error) {
	return s.queryInventories(ctx, runID,
		`SELECT `+inventoryColumns+` FROM inventories WHERE run_id = ? AND glottocode = ? ORDER BY seq`, glottocode)
}

// queryInventories runs query with runID bound first, then extra.
func (s *SQLiteStore) queryInventories(ctx context.Context, runID, query string, extra ...any) ([]*core.Inventory, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	args := append([]any{runID}, extra...)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventories: %w", err)
	}

	var out []*core.Inventory
	for rows.Next() {
		var inv core.Inventory
		var countries, ancestry string
		if err := rows.Scan(&inv.InventoryID, &inv.Glottocode, &inv.ISO6393, &inv.LanguageName,
			&inv.SpecificDialect, &inv.Source, &inv.GlyphID, &inv.Name, &inv.FamilyID,
			&inv.FamilyName, &inv.Macroarea, &inv.Latitude, &inv.Longitude,
			&countries, &ancestry); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		if err := json.Unmarshal([]byte(countries), &inv.Countries); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode countries of inventory %s: %w", inv.InventoryID, err)
		}
		if err := json.Unmarshal([]byte(ancestry), &inv.Ancestry); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode ancestry of inventory %s: %w", inv.InventoryID, err)
		}
		out = append(out, &inv)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Segments are read after the inventory cursor is closed; the store may
	// hold a single connection.
	for _, inv := range out {
		if err := s.loadSegments(ctx, runID, inv); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) loadSegments(ctx context.Context, runID string, inv *core.Inventory) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phoneme, class FROM inventory_segments WHERE run_id = ? AND inventory_id = ? ORDER BY phoneme`,
		runID, inv.InventoryID)
	if err != nil {
		return fmt.Errorf("failed to query segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	inv.Phonemes = []string{}
	inv.Vowels = []string{}
	inv.Consonants = []string{}
	for rows.Next() {
		var p, class string
		if err := rows.Scan(&p, &class); err != nil {
			return fmt.Errorf("failed to scan segment: %w", err)
		}
		inv.Phonemes = append(inv.Phonemes, p)
		if class == classVowel {
			inv.Vowels = append(inv.Vowels, p)
		} else {
			inv.Consonants = append(inv.Consonants, p)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	sort.Strings(inv.Phonemes)
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
