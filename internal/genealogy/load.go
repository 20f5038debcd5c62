// Package genealogy loads a language classification tree and attaches
// family, area and ancestry metadata to inventory records.
package genealogy

import (
	"io"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapphon/internal/dag"
	"github.com/leapstack-labs/leapphon/internal/dataset"
	"github.com/leapstack-labs/leapphon/pkg/core"
)

// Languoid table columns (glottolog languoid.csv).
const (
	ColID         = "id"
	ColName       = "name"
	ColParentID   = "parent_id"
	ColFamilyID   = "family_id"
	ColLatitude   = "latitude"
	ColLongitude  = "longitude"
	ColCountryIDs = "country_ids"
	ColMacroarea  = "macroarea"
)

// ColGlottocode keys the geo table (languages_and_dialects_geo.csv).
const ColGlottocode = "glottocode"

// Tables is the genealogy collaborator: languoid records plus the
// parent-pointer tree, both keyed by glottocode.
type Tables struct {
	Languoids map[string]core.Languoid
	Tree      map[string]core.TreeNode
}

// Load decodes a languoid CSV and an optional geo CSV (nil skips it).
func Load(languoids, geo io.Reader) (*Tables, error) {
	lds, err := dataset.Read(languoids, dataset.ReadOptions{})
	if err != nil {
		return nil, err
	}
	var gds *dataset.Dataset
	if geo != nil {
		if gds, err = dataset.Read(geo, dataset.ReadOptions{}); err != nil {
			return nil, err
		}
	}
	return FromDatasets(lds, gds)
}

// FromDatasets builds Tables from decoded languoid and geo tables. geo may
// be nil. Geo values override empty languoid fields only. The result is
// validated.
func FromDatasets(languoids, geo *dataset.Dataset) (*Tables, error) {
	cols := languoids.Columns
	if err := cols.Require(ColID, ColName, ColParentID); err != nil {
		return nil, err
	}

	t := &Tables{
		Languoids: make(map[string]core.Languoid, len(languoids.Rows)),
		Tree:      make(map[string]core.TreeNode, len(languoids.Rows)),
	}
	for _, row := range languoids.Rows {
		l := core.Languoid{
			ID:        cols.Value(row, ColID),
			Name:      cols.Value(row, ColName),
			ParentID:  cols.Value(row, ColParentID),
			FamilyID:  optional(cols, row, ColFamilyID),
			Macroarea: optional(cols, row, ColMacroarea),
			Latitude:  optional(cols, row, ColLatitude),
			Longitude: optional(cols, row, ColLongitude),
			Countries: strings.Fields(optional(cols, row, ColCountryIDs)),
		}
		t.Languoids[l.ID] = l
		t.Tree[l.ID] = core.TreeNode{Name: l.Name, ParentID: l.ParentID}
	}

	if geo != nil {
		if err := geo.Columns.Require(ColGlottocode); err != nil {
			return nil, err
		}
		for _, row := range geo.Rows {
			code := geo.Columns.Value(row, ColGlottocode)
			l, ok := t.Languoids[code]
			if !ok {
				continue
			}
			l.Macroarea = fill(l.Macroarea, optional(geo.Columns, row, ColMacroarea))
			l.Latitude = fill(l.Latitude, optional(geo.Columns, row, ColLatitude))
			l.Longitude = fill(l.Longitude, optional(geo.Columns, row, ColLongitude))
			t.Languoids[code] = l
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Graph builds the classification graph. Edges point from parent to child.
func (t *Tables) Graph() (*dag.Graph, error) {
	g := dag.NewGraph()
	ids := t.ids()
	for _, id := range ids {
		g.AddNode(id, t.Tree[id])
	}
	for _, id := range ids {
		parent := t.Tree[id].ParentID
		if parent == "" {
			continue
		}
		if parent == id {
			return nil, &CycleError{Path: []string{id, id}}
		}
		if _, ok := t.Tree[parent]; !ok {
			return nil, &DanglingParentError{ID: id, ParentID: parent}
		}
		if err := g.AddEdge(parent, id); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Validate checks that every parent exists and the tree has no cycles.
func (t *Tables) Validate() error {
	g, err := t.Graph()
	if err != nil {
		return err
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		return &CycleError{Path: path}
	}
	return nil
}

func (t *Tables) ids() []string {
	ids := make([]string, 0, len(t.Tree))
	for id := range t.Tree {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func optional(cols *dataset.ColumnIndex, row dataset.Row, name string) string {
	if _, ok := cols.Lookup(name); !ok {
		return ""
	}
	return strings.TrimSpace(cols.Value(row, name))
}

func fill(current, v string) string {
	if current != "" {
		return current
	}
	return v
}
