// Package timeindex derives capture timestamps with an explicit fallback
// chain: capture metadata (sidecar JSON or embedded EXIF), then file
// modification time, then nothing. A timestamp is never fabricated; absence
// is represented as nil, not "now" or the epoch.
package timeindex

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"photocons/types"
)

// CaptureTimer is the metadata collaborator surface the indexer needs.
type CaptureTimer interface {
	CaptureTime(path string) (time.Time, bool)
}

// Indexer resolves capture timestamps. Meta may be nil, in which case only
// sidecar files and modification times are consulted.
type Indexer struct {
	Meta CaptureTimer
}

// Resolve returns the capture timestamp for a file and the confidence tier
// that must accompany it. Precedence: Takeout sidecar JSON or embedded
// capture metadata (exact), file modification time (filetime), nil (unknown).
func (ix *Indexer) Resolve(path string) (*time.Time, types.TimeConfidence) {
	if t, ok := sidecarTime(path); ok {
		return &t, types.ConfidenceExact
	}

	if ix != nil && ix.Meta != nil {
		if t, ok := ix.Meta.CaptureTime(path); ok {
			return &t, types.ConfidenceExact
		}
	}

	if info, err := os.Stat(path); err == nil {
		t := info.ModTime()
		return &t, types.ConfidenceFileTime
	}

	return nil, types.ConfidenceUnknown
}

// sidecarTimestamp mirrors the Google Takeout JSON shape, where timestamps
// arrive as stringified epoch seconds.
type sidecarTimestamp struct {
	Timestamp string `json:"timestamp"`
}

type sidecarMeta struct {
	PhotoTakenTime *sidecarTimestamp `json:"photoTakenTime"`
	CreationTime   *sidecarTimestamp `json:"creationTime"`
}

// sidecarTime reads a Takeout-style JSON sidecar next to the photo.
// Both "IMG_0001.jpg.json" and "IMG_0001.json" naming variants occur in
// real exports.
func sidecarTime(path string) (time.Time, bool) {
	candidates := []string{
		path + ".json",
		trimExt(path) + ".json",
	}

	for _, sidecar := range candidates {
		data, err := os.ReadFile(sidecar)
		if err != nil {
			continue
		}

		var meta sidecarMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		for _, ts := range []*sidecarTimestamp{meta.PhotoTakenTime, meta.CreationTime} {
			if ts == nil {
				continue
			}
			secs, err := strconv.ParseInt(ts.Timestamp, 10, 64)
			if err != nil || secs <= 0 {
				continue
			}
			return time.Unix(secs, 0), true
		}
	}

	return time.Time{}, false
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/' && path[i] != '\\'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
