package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/internal/features"
	"github.com/leapstack-labs/leapphon/internal/testutil"
	"github.com/leapstack-labs/leapphon/pkg/adapter"
	"github.com/leapstack-labs/leapphon/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureConfig(t *testing.T) Config {
	t.Helper()
	fx := testutil.WriteFixtures(t)
	return Config{
		Dataset:   fx.Phoible,
		Languoids: fx.Languoids,
		Geo:       fx.Geo,
		Logger:    testutil.NewTestLogger(t),
	}
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew_DefaultDataset(t *testing.T) {
	e := newEngine(t, Config{})
	assert.Equal(t, dataset.DefaultPhoibleURL, e.Config().Dataset)
	assert.Nil(t, e.GetStateStore())
}

func TestNew_InvalidStatePath(t *testing.T) {
	dir := t.TempDir()
	blocker := testutil.WriteFile(t, dir, "file", "x")

	_, err := New(Config{StatePath: filepath.Join(blocker, "state.db")})
	assert.Error(t, err)
}

func TestEngine_Build(t *testing.T) {
	e := newEngine(t, fixtureConfig(t))

	res, err := e.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.RunCounts{Rows: 10, Attested: 6, Derived: 42, Inventories: 4, Enriched: 2}, res.Counts)
	assert.Equal(t, 48, res.Index.Len())

	eng := res.Inventories["1"]
	require.NotNil(t, eng)
	assert.Equal(t, "Indo-European", eng.FamilyName)
	assert.Equal(t, "Eurasia", eng.Macroarea)
	assert.Equal(t, []string{"West Germanic", "Germanic", "Indo-European"}, eng.Ancestry)

	isolate := res.Inventories["3"]
	assert.Equal(t, core.NotApplicable, isolate.FamilyName)
	assert.Empty(t, isolate.Ancestry)

	snap := res.Snapshot("r1")
	assert.Equal(t, "r1", snap.RunID)
	assert.Len(t, snap.Phonemes, 48)
	require.Len(t, snap.Inventories, 4)
	assert.Equal(t, "1", snap.Inventories[0].InventoryID)
	assert.Equal(t, "4", snap.Inventories[3].InventoryID)
}

func TestEngine_Build_WithoutGenealogy(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Languoids = ""
	cfg.NotApplicable = "-"
	logger, rec := testutil.NewLogRecorder()
	cfg.Logger = logger
	e := newEngine(t, cfg)

	res, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counts.Enriched)
	assert.Equal(t, []string{"no languoid table configured, genealogy fields are not applicable"},
		rec.Messages(slog.LevelWarn))
	enriched, ok := rec.Attr("pipeline finished", "enriched")
	require.True(t, ok)
	assert.Equal(t, int64(0), enriched.Int64())
	for id, inv := range res.Inventories {
		assert.Equal(t, "-", inv.FamilyID, id)
		assert.Equal(t, "-", inv.Name, id)
	}
}

func TestEngine_Build_Options(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		inventories int
		keys        int
	}{
		{name: "defaults", mutate: func(*Config) {}, inventories: 4, keys: 48},
		{name: "limit", mutate: func(c *Config) { c.InventoryLimit = 2 }, inventories: 2, keys: 48},
		{
			name: "extra rule",
			mutate: func(c *Config) {
				c.ExtraRules = []features.Rule{features.DiacriticRule{
					RuleName: "nasalization",
					Mark:     "\u0303",
					Set:      core.FeatureVector{"nasal": core.Plus},
				}}
			},
			inventories: 4,
			keys:        96,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fixtureConfig(t)
			tt.mutate(&cfg)
			e := newEngine(t, cfg)

			res, err := e.Build(context.Background())
			require.NoError(t, err)
			assert.Len(t, res.Inventories, tt.inventories)
			assert.Equal(t, tt.keys, res.Features.Len())
		})
	}
}

func TestEngine_Build_MissingDataset(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Dataset = filepath.Join(t.TempDir(), "missing.csv")
	e := newEngine(t, cfg)

	_, err := e.Build(context.Background())
	assert.Error(t, err)
}

func TestEngine_Build_CyclicGenealogy(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Languoids = testutil.WriteFile(t, t.TempDir(), "cycle.csv",
		"id,family_id,parent_id,name\na,,b,A\nb,,a,B\n")
	e := newEngine(t, cfg)

	_, err := e.Build(context.Background())
	assert.Error(t, err)
}

func TestEngine_Load_Remote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/phoible.csv", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testutil.PhoibleCSV()))
	})
	mux.HandleFunc("/languoid.csv", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testutil.LanguoidCSV))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newEngine(t, Config{
		Dataset:    srv.URL + "/phoible.csv",
		Languoids:  srv.URL + "/languoid.csv",
		HTTPClient: srv.Client(),
		Logger:     testutil.NewTestLogger(t),
	})
	in, err := e.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, in.Dataset.Rows, 10)
	require.NotNil(t, in.Genealogy)
	assert.Len(t, in.Genealogy.Languoids, 6)

	e = newEngine(t, Config{
		Dataset:    srv.URL + "/phoible.csv",
		Languoids:  srv.URL + "/languoid.csv",
		Geo:        srv.URL + "/missing.csv",
		HTTPClient: srv.Client(),
	})
	_, err = e.Load(context.Background())
	var fetchErr *dataset.FetchError
	require.True(t, errors.As(err, &fetchErr), "got %v", err)
	assert.Equal(t, srv.URL+"/missing.csv", fetchErr.URL)
}

func TestEngine_LoadGenealogy(t *testing.T) {
	e := newEngine(t, fixtureConfig(t))
	tables, err := e.LoadGenealogy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Eurasia", tables.Languoids["stan1293"].Macroarea)

	cfg := fixtureConfig(t)
	cfg.Languoids = ""
	e = newEngine(t, cfg)
	_, err = e.LoadGenealogy(context.Background())
	assert.Error(t, err)
}

func TestEngine_Run(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.StatePath = ":memory:"
	e := newEngine(t, cfg)
	ctx := context.Background()

	run, res, err := e.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.Equal(t, res.Counts, run.Counts)
	assert.NotNil(t, run.CompletedAt)

	latest, snap, err := e.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Len(t, snap.Phonemes, 48)
	require.Len(t, snap.Inventories, 4)
	assert.Equal(t, res.Inventories["2"], snap.Inventories[1])

	_, err = e.Snapshot(ctx, "missing")
	assert.Error(t, err)
}

func TestEngine_Run_Failed(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.StatePath = ":memory:"
	cfg.Dataset = testutil.WriteFile(t, t.TempDir(), "bad.csv", testutil.PhoibleHeader+"\n1,2,3\n")
	e := newEngine(t, cfg)
	ctx := context.Background()

	run, _, err := e.Run(ctx)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	_, _, err = e.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestEngine_Run_UnknownExport(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.StatePath = ":memory:"
	cfg.Export = &core.AdapterConfig{Type: "nope"}
	e := newEngine(t, cfg)

	run, _, err := e.Run(context.Background())
	var unknown *adapter.UnknownAdapterError
	require.True(t, errors.As(err, &unknown), "got %v", err)
	assert.Equal(t, "nope", unknown.Type)
	assert.Equal(t, core.RunStatusFailed, run.Status)
}

func TestEngine_WithoutStore(t *testing.T) {
	e := newEngine(t, fixtureConfig(t))
	ctx := context.Background()

	_, _, err := e.Run(ctx)
	assert.ErrorIs(t, err, ErrNoStateStore)
	_, _, err = e.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoStateStore)
}
