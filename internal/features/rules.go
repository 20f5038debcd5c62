package features

import (
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Diacritics used by the built-in rules.
const (
	MarkLaminal     = "\u033b" // combining square below
	MarkAdvanced    = "\u031f" // combining plus sign below
	MarkPalatalized = "\u02b2" // modifier letter small j
	MarkLong        = "\u02d0" // modifier letter triangular colon
)

// Feature names the built-in rules read or write.
const (
	FeatureLaminal  = "laminal"
	FeatureAnterior = "anterior"
	FeatureFront    = "front"
	FeatureBack     = "back"
	FeatureDorsal   = "dorsal"
	FeatureLong     = "long"
	FeatureSyllabic = "syllabic"
)

// Rule transforms a feature table into a new one without modifying its input.
type Rule interface {
	Name() string
	Apply(t *Table) *Table
}

// DefaultRules returns the built-in rules in their fixed order:
// laminality, anteriority, palatalization, length.
func DefaultRules() []Rule {
	return []Rule{
		LaminalityRule{Mark: MarkLaminal},
		DiacriticRule{
			RuleName: "anteriority",
			Mark:     MarkAdvanced,
			Set:      core.FeatureVector{FeatureAnterior: core.Plus, FeatureFront: core.Plus},
		},
		DiacriticRule{
			RuleName: "palatalization",
			Mark:     MarkPalatalized,
			Set:      core.FeatureVector{FeatureBack: core.Minus, FeatureDorsal: core.Plus, FeatureFront: core.Plus},
		},
		DiacriticRule{
			RuleName: "length",
			Mark:     MarkLong,
			Set:      core.FeatureVector{FeatureLong: core.Plus},
		},
	}
}

// Derive applies rules in order, each to the output of the previous one.
func Derive(t *Table, rules ...Rule) *Table {
	for _, r := range rules {
		t = r.Apply(t)
	}
	return t
}

// LaminalityRule sets the laminal feature on every key: "+" when the key
// contains Mark, "0" otherwise. It creates no keys.
type LaminalityRule struct {
	Mark string
}

// Name implements Rule.
func (LaminalityRule) Name() string { return "laminality" }

// Apply implements Rule.
func (r LaminalityRule) Apply(t *Table) *Table {
	out := t.Clone()
	out.ensureFeature(FeatureLaminal, core.Zero)
	for _, key := range out.keys {
		if strings.Contains(key, r.Mark) {
			out.vectors[key][FeatureLaminal] = core.Plus
		} else {
			out.vectors[key][FeatureLaminal] = core.Zero
		}
	}
	return out
}

// DiacriticRule derives key+Mark from every key lacking Mark, unless the
// table already holds that segment with the same diacritics in any order
// (s̟ʲ blocks sʲ̟). The new vector copies the base and overrides Set.
//
// Only keys present before the rule runs are considered, so a rule never
// feeds on its own output.
type DiacriticRule struct {
	RuleName string
	Mark     string
	Set      core.FeatureVector
}

// Name implements Rule.
func (r DiacriticRule) Name() string { return r.RuleName }

// Apply implements Rule.
func (r DiacriticRule) Apply(t *Table) *Table {
	out := t.Clone()

	overrides := make([]string, 0, len(r.Set))
	for name := range r.Set {
		overrides = append(overrides, name)
	}
	sort.Strings(overrides)
	for _, name := range overrides {
		out.ensureFeature(name, core.Zero)
	}

	seen := make(map[string]bool, len(t.keys))
	for _, key := range t.keys {
		seen[canonicalKey(key)] = true
	}

	for _, key := range t.keys {
		if strings.Contains(key, r.Mark) {
			continue
		}
		derived := key + r.Mark
		canon := canonicalKey(derived)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		vec := out.vectors[key].Clone()
		for _, name := range overrides {
			vec[name] = r.Set[name]
		}
		out.put(derived, vec)
		out.origins[derived] = Origin{Rule: r.RuleName, From: key}
	}
	return out
}

// canonicalKey sorts every run of consecutive diacritics in key, so keys
// that differ only in diacritic order compare equal. Combining marks and
// modifier letters count as diacritics.
func canonicalKey(key string) string {
	runes := []rune(key)
	for i := 0; i < len(runes); {
		if !isDiacritic(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isDiacritic(runes[j]) {
			j++
		}
		slices.Sort(runes[i:j])
		i = j
	}
	return string(runes)
}

func isDiacritic(r rune) bool {
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Lm, r)
}
