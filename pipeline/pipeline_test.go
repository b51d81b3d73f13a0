package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocons/config"
)

func TestDryRunWritesOnlyTheManifest(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("x"), 0644))

	destRoot := filepath.Join(t.TempDir(), "archive")

	p := &Pipeline{Cfg: config.Default()}
	m, err := p.Run(context.Background(), Options{
		Sources:  []string{srcDir},
		DestRoot: destRoot,
		DryRun:   true,
		Quiet:    true,
		Workers:  1,
	})
	require.NoError(t, err)
	assert.True(t, m.DryRun)

	// The destination holds the manifest artifact and nothing else.
	entries, err := os.ReadDir(destRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, manifestFileName, entries[0].Name())
}
