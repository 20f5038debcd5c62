package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Fixtures are paths of the fixture tables written to disk.
type Fixtures struct {
	Dir       string
	Phoible   string
	Languoids string
	Geo       string
}

// WriteFixtures writes the fixture tables into a fresh temp directory.
func WriteFixtures(t testing.TB) Fixtures {
	t.Helper()
	dir := t.TempDir()
	return Fixtures{
		Dir:       dir,
		Phoible:   WriteFile(t, dir, "phoible.csv", PhoibleCSV()),
		Languoids: WriteFile(t, dir, "languoid.csv", LanguoidCSV),
		Geo:       WriteFile(t, dir, "languages_and_dialects_geo.csv", GeoCSV),
	}
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
