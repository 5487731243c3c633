// Package runstate reads and atomically updates latest_run.json, the
// small per-project pointer file each stage's CLI consults to resolve
// "the latest prior run" without repeating the run-handoff JSON shape.
package runstate

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Meta is the per-project latest_run.json document. Unknown/legacy keys
// a prior run wrote are preserved across updates via Extra, so one
// stage's write never clobbers another stage's fields.
type Meta struct {
	FusedRunID  string `json:"fused_run_id,omitempty"`
	FusedAt     string `json:"fused_generated_at,omitempty"`

	ContentRunID string `json:"content_run_id,omitempty"`
	ContentAt    string `json:"content_generated_at,omitempty"`

	ScoreRunID string `json:"score_run_id,omitempty"`
	ScoreAt    string `json:"score_generated_at,omitempty"`

	ExportRunID string `json:"export_run_id,omitempty"`
	ExportAt    string `json:"export_generated_at,omitempty"`

	Extra map[string]any `json:"-"`
}

// Load reads a project's latest_run.json. A missing file is not an
// error — it reads as an empty Meta, matching a project's first-ever run.
// A malformed file is also tolerated the same way, since a prior crashed
// write should never block a new run from starting clean.
func Load(path string) (Meta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, nil
		}
		return Meta{}, err
	}

	var extra map[string]any
	if err := json.Unmarshal(raw, &extra); err != nil {
		return Meta{}, nil
	}

	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Meta{}, nil
	}
	meta.Extra = extra
	return meta, nil
}

// Save writes a project's latest_run.json via write-temp-then-rename, so
// a reader never observes a partially written file: the rename is the
// only visible state transition.
func Save(path string, meta Meta) error {
	merged := map[string]any{}
	for k, v := range meta.Extra {
		merged[k] = v
	}
	setIfNonEmpty(merged, "fused_run_id", meta.FusedRunID)
	setIfNonEmpty(merged, "fused_generated_at", meta.FusedAt)
	setIfNonEmpty(merged, "content_run_id", meta.ContentRunID)
	setIfNonEmpty(merged, "content_generated_at", meta.ContentAt)
	setIfNonEmpty(merged, "score_run_id", meta.ScoreRunID)
	setIfNonEmpty(merged, "score_generated_at", meta.ScoreAt)
	setIfNonEmpty(merged, "export_run_id", meta.ExportRunID)
	setIfNonEmpty(merged, "export_generated_at", meta.ExportAt)

	raw, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".latest_run-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func setIfNonEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// WithFusedRun returns a copy of meta with the fused-run fields set,
// ready to be passed to Save after a fusion run completes.
func (m Meta) WithFusedRun(runID, generatedAt string) Meta {
	m.FusedRunID = runID
	m.FusedAt = generatedAt
	return m
}

// WithContentRun returns a copy of meta with the content-run fields set.
func (m Meta) WithContentRun(runID, generatedAt string) Meta {
	m.ContentRunID = runID
	m.ContentAt = generatedAt
	return m
}

// WithScoreRun returns a copy of meta with the score-run fields set.
func (m Meta) WithScoreRun(runID, generatedAt string) Meta {
	m.ScoreRunID = runID
	m.ScoreAt = generatedAt
	return m
}

// WithExportRun returns a copy of meta with the export-run fields set.
func (m Meta) WithExportRun(runID, generatedAt string) Meta {
	m.ExportRunID = runID
	m.ExportAt = generatedAt
	return m
}
