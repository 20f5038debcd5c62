package core

import "strings"

// FeatureValue is the value of one distinctive feature for a segment.
// Dataset values are usually ternary but contour segments carry
// comma-joined sequences such as "-,+".
type FeatureValue string

// Ternary feature values.
const (
	Plus  FeatureValue = "+"
	Minus FeatureValue = "-"
	Zero  FeatureValue = "0"
)

// Has reports whether v contains the given value, treating contour values
// as sequences.
func (v FeatureValue) Has(want FeatureValue) bool {
	return strings.Contains(string(v), string(want))
}

// FeatureVector maps a feature name to its value for one phoneme.
type FeatureVector map[string]FeatureValue

// Clone returns an independent copy of the vector.
func (fv FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(fv))
	for k, v := range fv {
		out[k] = v
	}
	return out
}

// BagToken renders one feature as a bag-of-features token ("+syllabic").
func BagToken(name string, value FeatureValue) string {
	return string(value) + name
}

// PhonemeEntry is a flattened, ordered view of one feature-table row.
type PhonemeEntry struct {
	Phoneme string
	// Names holds feature names in canonical column order.
	Names    []string
	Features FeatureVector
	Bag      []string
	// DerivedBy names the rewrite rule that created the key; empty when attested.
	DerivedBy string
	// DerivedFrom is the key the derived entry was copied from.
	DerivedFrom string
}

// Attested reports whether the entry came from the dataset rather than a rule.
func (e PhonemeEntry) Attested() bool {
	return e.DerivedBy == ""
}

// Inventory is the per-language record produced by aggregation and
// annotated in place by genealogy enrichment.
type Inventory struct {
	InventoryID     string
	Glottocode      string
	ISO6393         string
	LanguageName    string
	SpecificDialect string
	Source          string
	GlyphID         string

	Phonemes   []string
	Vowels     []string
	Consonants []string

	// Genealogy-derived fields.
	Name       string
	FamilyID   string
	FamilyName string
	Macroarea  string
	Latitude   string
	Longitude  string
	Countries  []string
	Ancestry   []string
}
