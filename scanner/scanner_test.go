package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocons/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCollectFilesFindsImagesRecursively(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.jpg"), "x")
	writeFile(t, filepath.Join(src, "nested", "b.png"), "x")
	writeFile(t, filepath.Join(src, "nested", "c.nef"), "x")
	writeFile(t, filepath.Join(src, "notes.txt"), "x")
	writeFile(t, filepath.Join(src, "empty.jpg"), "")

	paths, stats, err := CollectFiles([]string{src}, false)
	require.NoError(t, err)

	require.Len(t, paths, 3)
	assert.True(t, sort.StringsAreSorted(paths))
	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, 1, stats.RawFiles)
}

func TestCollectFilesDeduplicatesOverlappingSources(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.jpg"), "x")

	paths, _, err := CollectFiles([]string{src, src}, false)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestCollectFilesRejectsMissingSource(t *testing.T) {
	_, _, err := CollectFiles([]string{filepath.Join(t.TempDir(), "nope")}, false)
	assert.Error(t, err)
}

func TestCollectFilesRejectsFileSource(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "a.jpg")
	writeFile(t, file, "x")

	_, _, err := CollectFiles([]string{file}, false)
	assert.Error(t, err)
}

func TestExtractAllPreservesInputOrder(t *testing.T) {
	paths := []string{"/src/a.jpg", "/src/b.jpg", "/src/c.jpg"}

	records := ExtractAll(context.Background(), paths, ScanOptions{MaxWorkers: 3, Quiet: true},
		func(ctx context.Context, path string) types.PhotoRecord {
			return types.PhotoRecord{SourcePath: path, ContentHash: path}
		})

	require.Len(t, records, 3)
	for i, path := range paths {
		assert.Equal(t, path, records[i].SourcePath)
	}
}

func TestExtractAllMarksCancelledFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := ExtractAll(ctx, []string{"/src/a.jpg"}, ScanOptions{MaxWorkers: 1, Quiet: true},
		func(ctx context.Context, path string) types.PhotoRecord {
			t.Error("extract must not run after cancellation")
			return types.PhotoRecord{}
		})

	require.Len(t, records, 1)
	assert.True(t, records[0].Unreadable)
	assert.ErrorIs(t, records[0].Err, context.Canceled)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("/x/photo.JPG"))
	assert.True(t, IsImageFile("/x/photo.heic"))
	assert.True(t, IsImageFile("/x/photo.nef"))
	assert.True(t, IsImageFile("/x/scan.tiff"))
	assert.False(t, IsImageFile("/x/notes.txt"))
	assert.False(t, IsImageFile("/x/sidecar.json"))
}

func TestGetFileFormat(t *testing.T) {
	assert.Equal(t, "jpg", GetFileFormat("/x/photo.JPG"))
	assert.Equal(t, "nef", GetFileFormat("/x/photo.nef"))
	assert.Equal(t, "", GetFileFormat("/x/noext"))
}
