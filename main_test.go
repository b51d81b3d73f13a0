package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocons/manifest"
	"photocons/types"
)

func TestRunOutcomeReportsFailedEntries(t *testing.T) {
	m := manifest.New([]string{"/src"}, "/archive")
	m.Add(
		manifest.Entry{SourcePath: "/src/a.jpg", Action: types.ActionCopy, Status: manifest.StatusApplied},
		manifest.Entry{SourcePath: "/src/b.jpg", Action: types.ActionCopy, Status: manifest.StatusFailed, Error: "boom"},
	)

	err := runOutcome(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 entries failed")
}

func TestRunOutcomeCleanRun(t *testing.T) {
	m := manifest.New([]string{"/src"}, "/archive")
	m.Add(manifest.Entry{SourcePath: "/src/a.jpg", Action: types.ActionCopy, Status: manifest.StatusApplied})
	assert.NoError(t, runOutcome(m))
}
