// Package manifest accumulates the per-entry fate of a consolidation run.
// The manifest is the run's persisted artifact: every input file appears in
// it exactly once, so nothing is ever lost silently.
package manifest

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"photocons/types"
)

// Status is the outcome of applying one entry.
type Status string

const (
	// StatusApplied means the file was placed at its destination.
	StatusApplied Status = "applied"
	// StatusSkipped means the entry was a no-op: an idempotent re-run,
	// a non-representative duplicate, or a dry run.
	StatusSkipped Status = "skipped"
	// StatusFailed means the entry could not be applied; the error
	// field says why. Other entries proceed regardless.
	StatusFailed Status = "failed"
)

// Entry records the fate of one source file.
type Entry struct {
	SourcePath string       `json:"source_path"`
	DestPath   string       `json:"dest_path,omitempty"`
	GroupID    int          `json:"group_id,omitempty"`
	Action     types.Action `json:"action"`
	Status     Status       `json:"status"`
	Error      string       `json:"error,omitempty"`
}

// RunManifest is the structured result of one consolidation run.
type RunManifest struct {
	RunID      string    `json:"run_id"`
	Sources    []string  `json:"sources"`
	DestRoot   string    `json:"dest_root"`
	DryRun     bool      `json:"dry_run,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Entries    []Entry   `json:"entries"`

	mu sync.Mutex
}

// New starts a manifest for a run.
func New(sources []string, destRoot string) *RunManifest {
	return &RunManifest{
		RunID:     uuid.NewString(),
		Sources:   sources,
		DestRoot:  destRoot,
		StartedAt: time.Now(),
	}
}

// Add appends entries. Safe for concurrent use by executor workers.
func (m *RunManifest) Add(entries ...Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entries...)
}

// Finish stamps the completion time.
func (m *RunManifest) Finish() {
	m.FinishedAt = time.Now()
}

// Counts returns the number of applied, skipped, and failed entries.
func (m *RunManifest) Counts() (applied, skipped, failed int) {
	for _, e := range m.Entries {
		switch e.Status {
		case StatusApplied:
			applied++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// ExitCode is 0 when every entry applied or was idempotent, non-zero when
// at least one entry failed.
func (m *RunManifest) ExitCode() int {
	if _, _, failed := m.Counts(); failed > 0 {
		return 1
	}
	return 0
}

// WriteJSON persists the manifest artifact.
func (m *RunManifest) WriteJSON(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Summary renders a human-readable table of the run outcome. Failed
// entries are always listed individually; successful ones are summarized.
func (m *RunManifest) Summary(w io.Writer) {
	applied, skipped, failed := m.Counts()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Status", "Count"})
	t.AppendRow(table.Row{"applied", applied})
	t.AppendRow(table.Row{"skipped", skipped})
	t.AppendRow(table.Row{"failed", failed})
	t.AppendFooter(table.Row{"total", len(m.Entries)})
	t.Render()

	if failed == 0 {
		return
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.AppendHeader(table.Row{"Source", "Action", "Error"})
	for _, e := range m.Entries {
		if e.Status == StatusFailed {
			ft.AppendRow(table.Row{e.SourcePath, e.Action, e.Error})
		}
	}
	ft.Render()
}
