package dataset

import "fmt"

// RowError reports a record whose field count does not match the header.
type RowError struct {
	Record int
	Width  int
	Want   int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("record %d: has %d fields, header has %d", e.Record, e.Width, e.Want)
}

// MissingColumnError is returned when a required column is absent from the header.
type MissingColumnError struct {
	Name string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found in header", e.Name)
}

// FetchError is returned when a remote source answers with a non-2xx status.
type FetchError struct {
	URL    string
	Status string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}
