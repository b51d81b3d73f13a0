// Package metadata wraps the external metadata tooling behind a narrow
// interface: a key/value extraction call, a fast capture-time lookup, and a
// write-back used after RAW conversion. Unsupported files yield an empty
// mapping, never an error that stops the batch.
package metadata

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"

	"photocons/logging"
)

// Keys recognized by Extract. Everything else exiftool reports is dropped.
var recognizedKeys = []string{
	"DateTimeOriginal",
	"CreateDate",
	"ModifyDate",
	"Model",
	"Make",
	"Orientation",
	"GPSLatitude",
	"GPSLongitude",
}

// exifTimeLayout is the timestamp format used inside EXIF blocks.
const exifTimeLayout = "2006:01:02 15:04:05"

// Extractor reads and writes embedded metadata. A nil Extractor is safe to
// use: every method degrades to "no metadata available".
type Extractor struct {
	et        *exiftool.Exiftool
	DebugMode bool
}

// NewExtractor starts a long-lived exiftool process. Callers should treat a
// construction failure as "exiftool not installed" and may continue with a
// nil extractor.
func NewExtractor(debugMode bool) (*Extractor, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exiftool: %v", err)
	}
	return &Extractor{et: et, DebugMode: debugMode}, nil
}

// Close shuts down the exiftool process.
func (e *Extractor) Close() {
	if e != nil && e.et != nil {
		e.et.Close()
	}
}

// Extract returns the recognized metadata keys for a file. The mapping is
// empty when the file has no metadata or the format is unsupported.
func (e *Extractor) Extract(path string) (map[string]string, error) {
	out := make(map[string]string)
	if e == nil || e.et == nil {
		return out, nil
	}

	infos := e.et.ExtractMetadata(path)
	if len(infos) == 0 {
		return out, nil
	}

	info := infos[0]
	if info.Err != nil {
		if e.DebugMode {
			logging.DebugLog("Metadata extraction failed for %s: %v", path, info.Err)
		}
		return out, nil
	}

	for _, key := range recognizedKeys {
		if v, found := info.Fields[key]; found {
			out[key] = fmt.Sprintf("%v", v)
		}
	}

	return out, nil
}

// CaptureTime returns the embedded capture timestamp of a file. The fast
// path decodes the EXIF block in-process; the exiftool process is only
// consulted for formats goexif cannot parse (RAW containers, HEIC).
func (e *Extractor) CaptureTime(path string) (time.Time, bool) {
	if t, ok := captureTimeFromExif(path); ok {
		return t, true
	}

	if e == nil || e.et == nil {
		return time.Time{}, false
	}

	fields, err := e.Extract(path)
	if err != nil {
		return time.Time{}, false
	}

	for _, key := range []string{"DateTimeOriginal", "CreateDate"} {
		raw, found := fields[key]
		if !found {
			continue
		}
		if t, err := time.ParseInLocation(exifTimeLayout, raw, time.Local); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// captureTimeFromExif decodes the EXIF block directly.
func captureTimeFromExif(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}

	t, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// AttachCaptureTime writes the capture timestamp into a converted file so
// the destination keeps the metadata the conversion stripped.
func (e *Extractor) AttachCaptureTime(ctx context.Context, path string, t time.Time) error {
	stamp := t.Format(exifTimeLayout)
	cmd := exec.CommandContext(ctx, "exiftool", "-overwrite_original",
		"-DateTimeOriginal="+stamp, "-CreateDate="+stamp, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("exiftool write failed for %s: %v, output: %s", path, err, string(output))
	}
	return nil
}
