package timeindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocons/types"
)

type stubMeta struct {
	when time.Time
	ok   bool
}

func (s stubMeta) CaptureTime(path string) (time.Time, bool) { return s.when, s.ok }

func writePhoto(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("image bytes"), 0644))
	return path
}

func TestSidecarBeatsEverything(t *testing.T) {
	dir := t.TempDir()
	photo := writePhoto(t, dir, "IMG_0001.jpg")

	// 2019-07-14 10:30:00 UTC as Takeout-style stringified epoch seconds.
	sidecar := `{"photoTakenTime": {"timestamp": "1563100200"}}`
	require.NoError(t, os.WriteFile(photo+".json", []byte(sidecar), 0644))

	metaTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ix := &Indexer{Meta: stubMeta{when: metaTime, ok: true}}

	got, conf := ix.Resolve(photo)
	require.NotNil(t, got)
	assert.Equal(t, types.ConfidenceExact, conf)
	assert.Equal(t, int64(1563100200), got.Unix())
}

func TestSidecarNameWithoutPhotoExtension(t *testing.T) {
	dir := t.TempDir()
	photo := writePhoto(t, dir, "IMG_0002.jpg")

	sidecar := `{"creationTime": {"timestamp": "1563100200"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "IMG_0002.json"), []byte(sidecar), 0644))

	ix := &Indexer{}
	got, conf := ix.Resolve(photo)
	require.NotNil(t, got)
	assert.Equal(t, types.ConfidenceExact, conf)
	assert.Equal(t, int64(1563100200), got.Unix())
}

func TestEmbeddedMetadataIsExact(t *testing.T) {
	dir := t.TempDir()
	photo := writePhoto(t, dir, "IMG_0003.jpg")

	when := time.Date(2018, 3, 2, 9, 15, 0, 0, time.UTC)
	ix := &Indexer{Meta: stubMeta{when: when, ok: true}}

	got, conf := ix.Resolve(photo)
	require.NotNil(t, got)
	assert.Equal(t, types.ConfidenceExact, conf)
	assert.True(t, got.Equal(when))
}

func TestModTimeIsLowConfidenceFallback(t *testing.T) {
	dir := t.TempDir()
	photo := writePhoto(t, dir, "IMG_0004.jpg")

	stamp := time.Date(2017, 5, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(photo, stamp, stamp))

	ix := &Indexer{Meta: stubMeta{ok: false}}
	got, conf := ix.Resolve(photo)
	require.NotNil(t, got)
	assert.Equal(t, types.ConfidenceFileTime, conf)
	assert.True(t, got.Equal(stamp))
}

func TestMissingFileIsUnknown(t *testing.T) {
	ix := &Indexer{}
	got, conf := ix.Resolve(filepath.Join(t.TempDir(), "gone.jpg"))
	assert.Nil(t, got)
	assert.Equal(t, types.ConfidenceUnknown, conf)
}

func TestMalformedSidecarFallsThrough(t *testing.T) {
	dir := t.TempDir()
	photo := writePhoto(t, dir, "IMG_0005.jpg")
	require.NoError(t, os.WriteFile(photo+".json", []byte("{not json"), 0644))

	when := time.Date(2018, 3, 2, 9, 15, 0, 0, time.UTC)
	ix := &Indexer{Meta: stubMeta{when: when, ok: true}}

	got, conf := ix.Resolve(photo)
	require.NotNil(t, got)
	assert.Equal(t, types.ConfidenceExact, conf)
	assert.True(t, got.Equal(when))
}
