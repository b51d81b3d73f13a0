package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocons/types"
)

func TestCountsAndExitCode(t *testing.T) {
	m := New([]string{"/src"}, "/archive")
	m.Add(
		Entry{SourcePath: "/src/a.jpg", Action: types.ActionCopy, Status: StatusApplied},
		Entry{SourcePath: "/src/b.jpg", Action: types.ActionSkipDuplicate, Status: StatusSkipped},
		Entry{SourcePath: "/src/c.jpg", Action: types.ActionCopy, Status: StatusFailed, Error: "boom"},
	)

	applied, skipped, failed := m.Counts()
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, m.ExitCode())
}

func TestExitCodeZeroWithoutFailures(t *testing.T) {
	m := New([]string{"/src"}, "/archive")
	m.Add(Entry{SourcePath: "/src/a.jpg", Action: types.ActionCopy, Status: StatusApplied})
	assert.Equal(t, 0, m.ExitCode())
}

func TestConcurrentAdd(t *testing.T) {
	m := New([]string{"/src"}, "/archive")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add(Entry{SourcePath: "/src/x.jpg", Action: types.ActionCopy, Status: StatusApplied})
		}()
	}
	wg.Wait()

	assert.Len(t, m.Entries, 20)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	m := New([]string{"/src"}, "/archive")
	m.Add(Entry{
		SourcePath: "/src/a.jpg",
		DestPath:   "/archive/2019/07-July/a.jpg",
		GroupID:    3,
		Action:     types.ActionCopy,
		Status:     StatusApplied,
	})
	m.Finish()

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, m.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded RunManifest
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, m.RunID, loaded.RunID)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, "/src/a.jpg", loaded.Entries[0].SourcePath)
	assert.Equal(t, StatusApplied, loaded.Entries[0].Status)
	assert.False(t, loaded.FinishedAt.IsZero())
}

func TestSummaryListsFailures(t *testing.T) {
	m := New([]string{"/src"}, "/archive")
	m.Add(
		Entry{SourcePath: "/src/a.jpg", Action: types.ActionCopy, Status: StatusApplied},
		Entry{SourcePath: "/src/bad.jpg", Action: types.ActionCopy, Status: StatusFailed, Error: "unreadable"},
	)

	var buf bytes.Buffer
	m.Summary(&buf)

	out := buf.String()
	assert.Contains(t, out, "applied")
	assert.Contains(t, out, "/src/bad.jpg")
	assert.Contains(t, out, "unreadable")
}
