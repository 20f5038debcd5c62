//go:build governance

package core_test

import (
	"go/types"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/leapstack-labs/leapphon"

// singleUseOK lists core types that may have one consumer.
var singleUseOK = map[string]string{
	"Store":     "interface implemented by internal/state only",
	"RunStatus": "only ever compared through Run.Status",
	"Languoid":  "returned from genealogy, named nowhere else",
	"TreeNode":  "returned from genealogy, named nowhere else",
}

func loadModule(t *testing.T, mode packages.LoadMode, pattern string) []*packages.Package {
	t.Helper()
	pkgs, err := packages.Load(&packages.Config{Mode: mode}, modulePath+pattern)
	require.NoError(t, err)
	require.NotEmpty(t, pkgs)
	return pkgs
}

func rel(path string) string { return strings.TrimPrefix(path, modulePath+"/") }

// TestGovernance_CoreCohesion fails when an exported core type is used by a
// single package; such a type belongs in that package.
func TestGovernance_CoreCohesion(t *testing.T) {
	pkgs := loadModule(t, packages.NeedName|packages.NeedImports|packages.NeedTypes|
		packages.NeedTypesInfo|packages.NeedDeps, "/...")

	corePath := modulePath + "/pkg/core"
	idx := slices.IndexFunc(pkgs, func(p *packages.Package) bool { return p.PkgPath == corePath })
	require.GreaterOrEqual(t, idx, 0, "pkg/core not loaded")

	users := make(map[types.Object]map[string]bool)
	scope := pkgs[idx].Types.Scope()
	for _, name := range scope.Names() {
		if obj, ok := scope.Lookup(name).(*types.TypeName); ok && obj.Exported() {
			users[obj] = make(map[string]bool)
		}
	}

	for _, p := range pkgs {
		if p.PkgPath == corePath || p.TypesInfo == nil {
			continue
		}
		for _, obj := range p.TypesInfo.Uses {
			if set, ok := users[obj]; ok {
				set[rel(p.PkgPath)] = true
			}
		}
	}

	for obj, set := range users {
		if _, ok := singleUseOK[obj.Name()]; ok {
			continue
		}
		switch len(set) {
		case 0:
			t.Logf("core.%s has no users", obj.Name())
		case 1:
			for only := range set {
				t.Errorf("core.%s is only used by %s; move it there", obj.Name(), only)
			}
		}
	}
}

// TestGovernance_PublicPackagesAvoidInternal keeps pkg/ importable from
// other modules.
func TestGovernance_PublicPackagesAvoidInternal(t *testing.T) {
	for _, p := range loadModule(t, packages.NeedName|packages.NeedImports, "/pkg/...") {
		for path := range p.Imports {
			assert.False(t, strings.HasPrefix(path, modulePath+"/internal/"),
				"%s imports %s", rel(p.PkgPath), rel(path))
		}
	}
}
