package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"photocons/config"
	"photocons/types"
)

func captured(day int, conf types.TimeConfidence) (*time.Time, types.TimeConfidence) {
	t := time.Date(2023, 6, day, 12, 0, 0, 0, time.UTC)
	return &t, conf
}

func TestHighestResolutionWins(t *testing.T) {
	records := []types.PhotoRecord{
		{SourcePath: "/a/small.jpg", Width: 800, Height: 600, Format: "jpg"},
		{SourcePath: "/b/large.jpg", Width: 4000, Height: 3000, Format: "jpg"},
		{SourcePath: "/c/medium.jpg", Width: 1600, Height: 1200, Format: "jpg"},
	}
	groups := []types.DuplicateGroup{{ID: 1, Members: []int{0, 1, 2}, Representative: -1}}

	Select(records, groups, config.Default())

	assert.Equal(t, 1, groups[0].Representative)
}

func TestTimestampConfidenceBreaksResolutionTie(t *testing.T) {
	exact, exactConf := captured(1, types.ConfidenceExact)
	guess, guessConf := captured(1, types.ConfidenceFileTime)

	records := []types.PhotoRecord{
		{SourcePath: "/a/x.jpg", Width: 1000, Height: 1000, Format: "jpg", CaptureTime: guess, TimeConfidence: guessConf},
		{SourcePath: "/b/y.jpg", Width: 1000, Height: 1000, Format: "jpg", CaptureTime: exact, TimeConfidence: exactConf},
	}
	groups := []types.DuplicateGroup{{ID: 1, Members: []int{0, 1}, Representative: -1}}

	Select(records, groups, config.Default())

	assert.Equal(t, 1, groups[0].Representative)
}

func TestFormatRankBreaksRemainingTie(t *testing.T) {
	// RAW outranks JPEG in the default priority list.
	records := []types.PhotoRecord{
		{SourcePath: "/a/shot.jpg", Width: 1000, Height: 1000, Format: "jpg"},
		{SourcePath: "/b/shot.dng", Width: 1000, Height: 1000, Format: "dng"},
	}
	groups := []types.DuplicateGroup{{ID: 1, Members: []int{0, 1}, Representative: -1}}

	Select(records, groups, config.Default())

	assert.Equal(t, 1, groups[0].Representative)
}

func TestPathIsTheFinalTieBreak(t *testing.T) {
	records := []types.PhotoRecord{
		{SourcePath: "/z/shot.jpg", Width: 1000, Height: 1000, Format: "jpg"},
		{SourcePath: "/a/shot.jpg", Width: 1000, Height: 1000, Format: "jpg"},
	}
	groups := []types.DuplicateGroup{{ID: 1, Members: []int{0, 1}, Representative: -1}}

	Select(records, groups, config.Default())

	assert.Equal(t, 1, groups[0].Representative)
}

func TestSelectionIsDeterministicAcrossRuns(t *testing.T) {
	// Three byte-identical files with different names and timestamps:
	// one group, one representative, chosen by the resolution tie-break.
	exact, exactConf := captured(1, types.ConfidenceExact)
	later, laterConf := captured(3, types.ConfidenceFileTime)

	records := []types.PhotoRecord{
		{SourcePath: "/usb/copy2.jpg", ContentHash: "same", Width: 2000, Height: 1500, Format: "jpg", CaptureTime: later, TimeConfidence: laterConf},
		{SourcePath: "/disk/copy1.jpg", ContentHash: "same", Width: 4000, Height: 3000, Format: "jpg", CaptureTime: exact, TimeConfidence: exactConf},
		{SourcePath: "/backup/copy3.jpg", ContentHash: "same", Width: 2000, Height: 1500, Format: "jpg"},
	}

	for i := 0; i < 5; i++ {
		groups := []types.DuplicateGroup{{ID: 1, Members: []int{0, 1, 2}, Representative: -1}}
		Select(records, groups, config.Default())
		assert.Equal(t, 1, groups[0].Representative)
	}
}

func TestEveryGroupGetsExactlyOneRepresentative(t *testing.T) {
	records := []types.PhotoRecord{
		{SourcePath: "/a.jpg", Width: 10, Height: 10, Format: "jpg"},
		{SourcePath: "/b.jpg", Width: 20, Height: 20, Format: "jpg"},
		{SourcePath: "/c.jpg", Width: 30, Height: 30, Format: "jpg"},
	}
	groups := []types.DuplicateGroup{
		{ID: 1, Members: []int{0, 1}, Representative: -1},
		{ID: 2, Members: []int{2}, Representative: -1},
	}

	Select(records, groups, config.Default())

	for _, g := range groups {
		assert.Contains(t, g.Members, g.Representative)
	}
	assert.Equal(t, 1, groups[0].Representative)
	assert.Equal(t, 2, groups[1].Representative)
}
