package inventory

import "fmt"

// UnknownPhonemeError is returned when an inventory segment has no entry in
// the feature table.
type UnknownPhonemeError struct {
	InventoryID string
	Phoneme     string
	// Line is the 1-based data record that first attested the segment.
	Line int
}

func (e *UnknownPhonemeError) Error() string {
	return fmt.Sprintf("inventory %s: phoneme %q (record %d) has no feature vector", e.InventoryID, e.Phoneme, e.Line)
}
