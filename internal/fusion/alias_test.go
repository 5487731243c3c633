package fusion

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAliasMap_MissingFileIsEmpty(t *testing.T) {
	m, err := LoadAliasMap(filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestLoadAliasMap_EmptyPathIsEmpty(t *testing.T) {
	m, err := LoadAliasMap("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestLoadAliasMap_HeaderedCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.csv")
	content := "canonical_name,alias_name\n隅田川花火大会,すみだ花火\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadAliasMap(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := m[normalizeNameRaw("すみだ花火")]; !ok || got != normalizeNameRaw("隅田川花火大会") {
		t.Errorf("unexpected alias map: %v", m)
	}
}

func TestLoadAliasMap_HeaderlessCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.csv")
	content := "すみだ花火,隅田川花火大会\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadAliasMap(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := m[normalizeNameRaw("すみだ花火")]; !ok || got != normalizeNameRaw("隅田川花火大会") {
		t.Errorf("unexpected alias map: %v", m)
	}
}
