// Package dataset supplies the rows of a segment inventory table.
//
// A dataset is a header plus an ordered sequence of rows of strings. The first
// metadata columns identify the inventory and the segment; every later column
// is a feature value, the last one doubling as the row validity marker.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Dataset is a fully materialized table.
type Dataset struct {
	Columns *ColumnIndex
	Rows    []Row
}

// ReadOptions controls decoding.
type ReadOptions struct {
	// Comma is the field delimiter (default ',').
	Comma rune
	// Normalization is applied to the header and every field.
	Normalization Normalization
}

// Read decodes a delimited table whose first record is the header.
// Every record must have one field per header column.
func Read(r io.Reader, opts ReadOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty dataset: no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = opts.Normalization.Apply(strings.TrimSpace(header[i]))
	}

	columns, err := NewColumnIndex(header)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	ds := &Dataset{Columns: columns}
	for n := 1; ; n++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		if err := columns.CheckRow(record, n); err != nil {
			return nil, err
		}
		if opts.Normalization != NormalizeNone && opts.Normalization != "" {
			for i := range record {
				record[i] = opts.Normalization.Apply(record[i])
			}
		}
		ds.Rows = append(ds.Rows, Row(record))
	}

	return ds, nil
}
