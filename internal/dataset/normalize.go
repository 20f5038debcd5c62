package dataset

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalization selects the Unicode normal form applied to every field.
type Normalization string

// Supported normalizations.
const (
	NormalizeNone Normalization = "none"
	NormalizeNFC  Normalization = "nfc"
	NormalizeNFD  Normalization = "nfd"
)

// ParseNormalization converts a config string into a Normalization.
// The empty string means NormalizeNone.
func ParseNormalization(s string) (Normalization, error) {
	switch n := Normalization(strings.ToLower(strings.TrimSpace(s))); n {
	case "", NormalizeNone:
		return NormalizeNone, nil
	case NormalizeNFC, NormalizeNFD:
		return n, nil
	default:
		return "", fmt.Errorf("unknown normalization %q (want none, nfc or nfd)", s)
	}
}

// Apply returns s in the selected normal form.
func (n Normalization) Apply(s string) string {
	switch n {
	case NormalizeNFC:
		return norm.NFC.String(s)
	case NormalizeNFD:
		return norm.NFD.String(s)
	default:
		return s
	}
}
