package dataset

import (
	"fmt"
)

// Column names of the phoible inventory table.
const (
	ColInventoryID     = "InventoryID"
	ColGlottocode      = "Glottocode"
	ColISO6393         = "ISO6393"
	ColLanguageName    = "LanguageName"
	ColSpecificDialect = "SpecificDialect"
	ColGlyphID         = "GlyphID"
	ColPhoneme         = "Phoneme"
	ColSource          = "Source"
	ColTone            = "tone"
)

// DefaultMetadataColumns is the number of leading non-feature columns.
const DefaultMetadataColumns = 11

// Row is one data record, one field per header column.
type Row []string

// ColumnIndex maps column names to positions in a row.
type ColumnIndex struct {
	names []string
	pos   map[string]int
}

// NewColumnIndex builds an index from a header row.
// Duplicate or empty column names are rejected.
func NewColumnIndex(header []string) (*ColumnIndex, error) {
	idx := &ColumnIndex{
		names: make([]string, len(header)),
		pos:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if prev, dup := idx.pos[name]; dup {
			return nil, fmt.Errorf("duplicate column %q at positions %d and %d", name, prev+1, i+1)
		}
		idx.names[i] = name
		idx.pos[name] = i
	}
	return idx, nil
}

// Len returns the number of columns.
func (c *ColumnIndex) Len() int {
	return len(c.names)
}

// Names returns the column names in header order.
func (c *ColumnIndex) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Lookup returns the position of a column.
func (c *ColumnIndex) Lookup(name string) (int, bool) {
	i, ok := c.pos[name]
	return i, ok
}

// Require returns a MissingColumnError for the first name not in the index.
func (c *ColumnIndex) Require(names ...string) error {
	for _, name := range names {
		if _, ok := c.pos[name]; !ok {
			return &MissingColumnError{Name: name}
		}
	}
	return nil
}

// FeatureNames returns the names of every column after the first
// metadataColumns, in header order. The trailing marker column is included.
func (c *ColumnIndex) FeatureNames(metadataColumns int) []string {
	if metadataColumns >= len(c.names) {
		return nil
	}
	if metadataColumns < 0 {
		metadataColumns = 0
	}
	out := make([]string, len(c.names)-metadataColumns)
	copy(out, c.names[metadataColumns:])
	return out
}

// Value returns the named field of row. The column must exist and the row
// must have been checked with CheckRow.
func (c *ColumnIndex) Value(row Row, name string) string {
	return row[c.pos[name]]
}

// Marker returns the trailing validity marker of row.
func (c *ColumnIndex) Marker(row Row) string {
	return row[len(c.names)-1]
}

// CheckRow verifies that row has exactly one field per column.
// n is the 1-based record number used in the error.
func (c *ColumnIndex) CheckRow(row Row, n int) error {
	if len(row) != len(c.names) {
		return &RowError{Record: n, Width: len(row), Want: len(c.names)}
	}
	return nil
}
