package runstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReadsAsEmpty(t *testing.T) {
	meta, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Meta{}, meta)
}

func TestLoad_MalformedFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest_run.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Meta{}, meta)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "latest_run.json")
	meta := Meta{}.WithFusedRun("run-1", "2026-07-29T00:00:00Z")
	require.NoError(t, Save(path, meta))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.FusedRunID)
	assert.Equal(t, "2026-07-29T00:00:00Z", loaded.FusedAt)
}

func TestSave_PreservesFieldsFromOtherStages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest_run.json")
	require.NoError(t, Save(path, Meta{}.WithFusedRun("run-1", "t1")))

	loaded, err := Load(path)
	require.NoError(t, err)
	updated := loaded.WithContentRun("content-1", "t2")
	require.NoError(t, Save(path, updated))

	final, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", final.FusedRunID)
	assert.Equal(t, "content-1", final.ContentRunID)
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest_run.json")
	require.NoError(t, Save(path, Meta{}.WithScoreRun("score-1", "t")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "latest_run.json", entries[0].Name())
}
