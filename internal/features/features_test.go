package features

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/internal/testutil"
	"github.com/leapstack-labs/leapphon/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Read(strings.NewReader(testutil.PhoibleCSV()), dataset.ReadOptions{})
	require.NoError(t, err)
	return ds
}

func TestBuildBase(t *testing.T) {
	ds := loadFixture(t)

	base, err := BuildBase(ds.Rows, ds.Columns, Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "s", "t", "˥", "i", "s" + MarkLaminal}, base.Keys())
	assert.Equal(t, 6, base.Attested())
	assert.False(t, base.Has(""), "no-segment marker rows must be skipped")

	v, ok := base.Value("s", FeatureAnterior)
	require.True(t, ok)
	assert.Equal(t, core.Minus, v, "first attestation wins")
}

func TestBuildBase_ConflictPolicies(t *testing.T) {
	ds := loadFixture(t)
	extra := make(dataset.Row, len(ds.Rows[6]))
	copy(extra, ds.Rows[6]) // third attestation of s with anterior +
	rows := append(append([]dataset.Row{}, ds.Rows...), extra)

	tests := []struct {
		name   string
		policy ConflictPolicy
		rows   []dataset.Row
		want   core.FeatureValue
	}{
		{name: "first wins", policy: PolicyFirst, rows: ds.Rows, want: core.Minus},
		{name: "last wins", policy: PolicyLast, rows: ds.Rows, want: core.Plus},
		{name: "majority tie goes to first", policy: PolicyMajority, rows: ds.Rows, want: core.Minus},
		{name: "majority", policy: PolicyMajority, rows: rows, want: core.Plus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := BuildBase(tt.rows, ds.Columns, Options{Policy: tt.policy})
			require.NoError(t, err)
			v, _ := base.Value("s", FeatureAnterior)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, []string{"a", "s", "t", "˥", "i", "s" + MarkLaminal}, base.Keys(), "key order follows first attestation")
		})
	}
}

func TestParseConflictPolicy(t *testing.T) {
	p, err := ParseConflictPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirst, p)

	p, err = ParseConflictPolicy("Majority")
	require.NoError(t, err)
	assert.Equal(t, PolicyMajority, p)

	_, err = ParseConflictPolicy("latest")
	assert.Error(t, err)
}

func TestBuildBase_MalformedRow(t *testing.T) {
	ds := loadFixture(t)
	rows := append([]dataset.Row{}, ds.Rows[:2]...)
	rows = append(rows, dataset.Row{"1", "stan1293"})

	_, err := BuildBase(rows, ds.Columns, Options{})
	var rowErr *dataset.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Record)
}

func TestBuildBase_MissingPhonemeColumn(t *testing.T) {
	cols, err := dataset.NewColumnIndex([]string{"InventoryID", "syllabic"})
	require.NoError(t, err)

	_, err = BuildBase(nil, cols, Options{MetadataColumns: 1})
	var missing *dataset.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, dataset.ColPhoneme, missing.Name)
}

func TestBuild_DerivedKeys(t *testing.T) {
	ds := loadFixture(t)

	table, err := Build(ds.Rows, ds.Columns, Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	// 6 attested keys, doubled by each of the three key-creating rules.
	assert.Equal(t, 48, table.Len())
	assert.Equal(t, 6, table.Attested())

	for _, key := range []string{"s" + MarkAdvanced, "s" + MarkPalatalized, "s" + MarkLong, "s" + MarkAdvanced + MarkPalatalized + MarkLong} {
		assert.True(t, table.Has(key), "missing %q", key)
	}
	assert.False(t, table.Has("s"+MarkPalatalized+MarkAdvanced), "rules do not revisit their own output")

	o, ok := table.Origin("s" + MarkAdvanced)
	require.True(t, ok)
	assert.Equal(t, Origin{Rule: "anteriority", From: "s"}, o)
	_, ok = table.Origin("s")
	assert.False(t, ok)
}

func TestBuild_AnteriorityExample(t *testing.T) {
	ds := loadFixture(t)
	table, err := Build(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	base, ok := table.Lookup("s")
	require.True(t, ok)
	require.Equal(t, core.Minus, base[FeatureSyllabic])
	require.Equal(t, core.Minus, base[FeatureAnterior])

	derived, ok := table.Lookup("s" + MarkAdvanced)
	require.True(t, ok)
	assert.Equal(t, core.Plus, derived[FeatureAnterior])
	assert.Equal(t, core.Plus, derived[FeatureFront])
	for name, v := range base {
		if name == FeatureAnterior || name == FeatureFront {
			continue
		}
		assert.Equal(t, v, derived[name], "feature %s should be copied unchanged", name)
	}
}

func TestBuild_PalatalizationAndLength(t *testing.T) {
	ds := loadFixture(t)
	table, err := Build(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	pal, ok := table.Lookup("t" + MarkPalatalized)
	require.True(t, ok)
	assert.Equal(t, core.Minus, pal[FeatureBack])
	assert.Equal(t, core.Plus, pal[FeatureDorsal])
	assert.Equal(t, core.Plus, pal[FeatureFront])

	long, ok := table.Lookup("a" + MarkLong)
	require.True(t, ok)
	assert.Equal(t, core.Plus, long[FeatureLong])
	assert.Equal(t, core.Plus, long[FeatureSyllabic])
}

func TestBuild_Laminality(t *testing.T) {
	ds := loadFixture(t)
	table, err := Build(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	v, _ := table.Value("s"+MarkLaminal, FeatureLaminal)
	assert.Equal(t, core.Plus, v)
	v, _ = table.Value("s", FeatureLaminal)
	assert.Equal(t, core.Zero, v)
	v, _ = table.Value("s"+MarkLaminal+MarkLong, FeatureLaminal)
	assert.Equal(t, core.Plus, v, "derived keys copy laminality from their base")
}

func TestBuild_EveryKeyHasEveryFeature(t *testing.T) {
	ds := loadFixture(t)
	table, err := Build(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	names := table.Names()
	assert.Equal(t, FeatureLaminal, names[len(names)-1])
	for _, key := range table.Keys() {
		vec, _ := table.Lookup(key)
		assert.Len(t, vec, len(names), key)
		for _, name := range names {
			_, ok := vec[name]
			assert.True(t, ok, "%s lacks %s", key, name)
		}
	}
}

func TestTable_Bag(t *testing.T) {
	ds := loadFixture(t)
	table, err := Build(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0tone", "-syllabic", "-long", "+consonantal", "-anterior",
		"0front", "0back", "0dorsal", "YMarker", "0laminal",
	}, table.Bag("s"))
	assert.Nil(t, table.Bag("missing"))

	bags := table.Bags()
	assert.Len(t, bags, table.Len())
	assert.Contains(t, bags["s"+MarkAdvanced], "+anterior")
}

func TestRules_ArePure(t *testing.T) {
	ds := loadFixture(t)
	base, err := BuildBase(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)
	keys := base.Keys()
	names := base.Names()

	_ = Derive(base, DefaultRules()...)

	assert.Equal(t, keys, base.Keys())
	assert.Equal(t, names, base.Names())
	_, ok := base.Value("s", FeatureLaminal)
	assert.False(t, ok)
}

func TestRules_IdempotentPerRule(t *testing.T) {
	ds := loadFixture(t)
	base, err := BuildBase(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	for _, r := range DefaultRules() {
		t.Run(r.Name(), func(t *testing.T) {
			once := r.Apply(base)
			twice := r.Apply(once)
			assert.Equal(t, once.Keys(), twice.Keys())
			assert.Equal(t, once.Bags(), twice.Bags())
		})
	}
}

func TestDerive_TwiceKeepsKeySet(t *testing.T) {
	ds := loadFixture(t)
	base, err := BuildBase(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	once := Derive(base, DefaultRules()...)
	twice := Derive(once, DefaultRules()...)

	assert.Equal(t, 48, once.Len())
	assert.Equal(t, once.Keys(), twice.Keys())
	assert.True(t, twice.Has("s"+MarkAdvanced+MarkPalatalized))
	assert.False(t, twice.Has("s"+MarkPalatalized+MarkAdvanced))
}

func TestDiacriticRule_ReorderedMarksExist(t *testing.T) {
	ds := loadFixture(t)
	base, err := BuildBase(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)
	rules := DefaultRules()
	anteriority, palatalization := rules[1], rules[2]

	table := palatalization.Apply(anteriority.Apply(base))
	require.True(t, table.Has("s"+MarkPalatalized))
	require.True(t, table.Has("s"+MarkAdvanced+MarkPalatalized))

	again := anteriority.Apply(table)
	assert.Equal(t, table.Keys(), again.Keys())
	assert.False(t, again.Has("s"+MarkPalatalized+MarkAdvanced))
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		a, b  string
		equal bool
	}{
		{a: "s" + MarkAdvanced + MarkPalatalized, b: "s" + MarkPalatalized + MarkAdvanced, equal: true},
		{a: "s" + MarkLaminal + MarkLong, b: "s" + MarkLong + MarkLaminal, equal: true},
		{a: "t\u0361s" + MarkPalatalized, b: "t\u0361s" + MarkPalatalized, equal: true},
		{a: "ts", b: "st", equal: false},
		{a: "s" + MarkAdvanced, b: "s" + MarkPalatalized, equal: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.equal, canonicalKey(tt.a) == canonicalKey(tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestDerive_Deterministic(t *testing.T) {
	ds := loadFixture(t)
	base, err := BuildBase(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	a := Derive(base, DefaultRules()...)
	b := Derive(base, DefaultRules()...)
	assert.Equal(t, a.Keys(), b.Keys())
	assert.Equal(t, a.Bags(), b.Bags())
}

func TestDerive_RoundTripKeepsBags(t *testing.T) {
	ds := loadFixture(t)
	derived, err := Build(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	again := Derive(derived, DefaultRules()...)
	for _, key := range derived.Keys() {
		assert.Equal(t, derived.Bag(key), again.Bag(key), key)
	}
}

func TestDiacriticRule_NewFeature(t *testing.T) {
	ds := loadFixture(t)
	base, err := BuildBase(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	nasal := DiacriticRule{RuleName: "nasalization", Mark: "\u0303", Set: core.FeatureVector{"nasal": core.Plus}}
	out := nasal.Apply(base)

	v, ok := out.Value("a\u0303", "nasal")
	require.True(t, ok)
	assert.Equal(t, core.Plus, v)
	v, ok = out.Value("a", "nasal")
	require.True(t, ok)
	assert.Equal(t, core.Zero, v)
}

func TestEntries(t *testing.T) {
	ds := loadFixture(t)
	table, err := Build(ds.Rows, ds.Columns, Options{})
	require.NoError(t, err)

	entries := table.Entries()
	require.Len(t, entries, table.Len())
	assert.Equal(t, "a", entries[0].Phoneme)
	assert.True(t, entries[0].Attested())

	var found bool
	for _, e := range entries {
		if e.Phoneme == "t"+MarkLong {
			found = true
			assert.Equal(t, "length", e.DerivedBy)
			assert.Equal(t, "t", e.DerivedFrom)
			assert.Equal(t, table.Bag(e.Phoneme), e.Bag)
		}
	}
	assert.True(t, found)
}
