// Package features derives the phoneme to feature-vector table.
//
// The table is built from the attested rows of a dataset and then extended by
// diacritic rewrite rules. Every rule is a pure function from one table to a
// new one; the input table is never modified.
package features

import (
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Origin records how a derived key came to exist.
type Origin struct {
	Rule string
	From string
}

// Table maps phoneme keys to feature vectors.
//
// Invariant: every vector holds a value for every name in Names().
type Table struct {
	names   []string
	keys    []string
	vectors map[string]core.FeatureVector
	origins map[string]Origin
}

func newTable(names []string) *Table {
	n := make([]string, len(names))
	copy(n, names)
	return &Table{
		names:   n,
		vectors: make(map[string]core.FeatureVector),
		origins: make(map[string]Origin),
	}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := newTable(t.names)
	out.keys = make([]string, len(t.keys))
	copy(out.keys, t.keys)
	for k, v := range t.vectors {
		out.vectors[k] = v.Clone()
	}
	for k, o := range t.origins {
		out.origins[k] = o
	}
	return out
}

// Names returns the canonical feature names in column order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Keys returns the phoneme keys in insertion order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of phoneme keys.
func (t *Table) Len() int {
	return len(t.keys)
}

// Has reports whether key is in the table.
func (t *Table) Has(key string) bool {
	_, ok := t.vectors[key]
	return ok
}

// Lookup returns a copy of the vector for key.
func (t *Table) Lookup(key string) (core.FeatureVector, bool) {
	v, ok := t.vectors[key]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// Value returns a single feature value.
func (t *Table) Value(key, feature string) (core.FeatureValue, bool) {
	v, ok := t.vectors[key]
	if !ok {
		return "", false
	}
	val, ok := v[feature]
	return val, ok
}

// Origin returns the derivation of key; ok is false for attested keys.
func (t *Table) Origin(key string) (Origin, bool) {
	o, ok := t.origins[key]
	return o, ok
}

// Bag returns the bag-of-features tokens of key in feature order.
func (t *Table) Bag(key string) []string {
	v, ok := t.vectors[key]
	if !ok {
		return nil
	}
	bag := make([]string, 0, len(t.names))
	for _, name := range t.names {
		bag = append(bag, core.BagToken(name, v[name]))
	}
	return bag
}

// Bags returns the bag-of-features side table.
func (t *Table) Bags() map[string][]string {
	out := make(map[string][]string, len(t.keys))
	for _, k := range t.keys {
		out[k] = t.Bag(k)
	}
	return out
}

// Entries flattens the table in key order.
func (t *Table) Entries() []core.PhonemeEntry {
	entries := make([]core.PhonemeEntry, 0, len(t.keys))
	for _, k := range t.keys {
		o := t.origins[k]
		entries = append(entries, core.PhonemeEntry{
			Phoneme:     k,
			Names:       t.Names(),
			Features:    t.vectors[k].Clone(),
			Bag:         t.Bag(k),
			DerivedBy:   o.Rule,
			DerivedFrom: o.From,
		})
	}
	return entries
}

// Attested returns the number of keys that came from the dataset.
func (t *Table) Attested() int {
	return len(t.keys) - len(t.origins)
}

func (t *Table) put(key string, v core.FeatureVector) {
	if _, ok := t.vectors[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vectors[key] = v
}

// ensureFeature adds a feature name, filling every existing vector with def.
func (t *Table) ensureFeature(name string, def core.FeatureValue) {
	for _, n := range t.names {
		if n == name {
			return
		}
	}
	t.names = append(t.names, name)
	for _, v := range t.vectors {
		v[name] = def
	}
}
