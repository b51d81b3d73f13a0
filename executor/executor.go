// Package executor applies a ConsolidationPlan entry by entry. It is the
// only pipeline stage with external side effects. Entries are independent:
// a failure on one never blocks or rolls back another, and re-running the
// same plan is a no-op wherever destinations already hold the planned
// content.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"photocons/logging"
	"photocons/manifest"
	"photocons/types"
)

// RawConverter is the external RAW conversion collaborator.
type RawConverter interface {
	Convert(ctx context.Context, path string) ([]byte, error)
}

// MetadataWriter re-attaches capture metadata after a conversion stripped it.
type MetadataWriter interface {
	AttachCaptureTime(ctx context.Context, path string, t time.Time) error
}

// Executor applies plans. Converter and Meta may be nil when RAW
// conversion is disabled.
type Executor struct {
	Converter RawConverter
	Meta      MetadataWriter
	Workers   int
	DebugMode bool
}

// Apply processes every plan entry and returns one manifest entry per plan
// entry. Entries touching distinct destinations run in parallel; a
// cancelled context stops scheduling new entries while already-applied
// ones remain valid.
func (ex *Executor) Apply(ctx context.Context, plan types.ConsolidationPlan) []manifest.Entry {
	workers := ex.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]manifest.Entry, len(plan.Entries))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range plan.Entries {
		if err := ctx.Err(); err != nil {
			// Unstarted entries still need a reported fate.
			results[i] = failedEntry(plan.Entries[i], fmt.Errorf("run cancelled: %w", err))
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			results[i] = ex.applyEntry(ctx, plan.Entries[i])
		}(i)
	}

	wg.Wait()
	return results
}

// applyEntry places one file. The destination is claimed with an exclusive
// create: the first writer wins, and a pre-existing file is either an
// idempotency hit (hashes match) or a conflict (they don't), never an
// overwrite.
func (ex *Executor) applyEntry(ctx context.Context, entry types.PlanEntry) manifest.Entry {
	if entry.Action == types.ActionSkipDuplicate {
		// Non-representative member, left untouched in its source.
		return manifest.Entry{
			SourcePath: entry.SourcePath,
			DestPath:   entry.DestPath,
			GroupID:    entry.GroupID,
			Action:     entry.Action,
			Status:     manifest.StatusSkipped,
		}
	}

	if err := os.MkdirAll(filepath.Dir(entry.DestPath), 0755); err != nil {
		return failedEntry(entry, fmt.Errorf("cannot create destination directory: %v", err))
	}

	dest, err := os.OpenFile(entry.DestPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return ex.checkExisting(ctx, entry)
	}
	if err != nil {
		return failedEntry(entry, fmt.Errorf("cannot claim destination: %v", err))
	}

	switch entry.Action {
	case types.ActionCopyConvert:
		err = ex.writeConverted(ctx, entry, dest)
	default:
		err = writeCopy(entry, dest)
	}

	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		// Remove the partial claim so a re-run starts clean. Only the
		// file this run created is ever removed.
		os.Remove(entry.DestPath)
		return failedEntry(entry, err)
	}

	preserveTimes(entry)
	logging.LogEntryApplied(entry.SourcePath, entry.DestPath, string(manifest.StatusApplied))

	return manifest.Entry{
		SourcePath: entry.SourcePath,
		DestPath:   entry.DestPath,
		GroupID:    entry.GroupID,
		Action:     entry.Action,
		Status:     manifest.StatusApplied,
	}
}

// checkExisting resolves a destination that already exists: identical
// content is an idempotent no-op, different content is a conflict and the
// existing file is left untouched.
func (ex *Executor) checkExisting(ctx context.Context, entry types.PlanEntry) manifest.Entry {
	existingHash, err := hashFile(entry.DestPath)
	if err != nil {
		return failedEntry(entry, fmt.Errorf("cannot hash existing destination: %v", err))
	}

	expected := entry.ContentHash
	if entry.Action == types.ActionCopyConvert {
		// Converted output never matches the source hash; compare
		// against a fresh conversion instead.
		data, convErr := ex.convert(ctx, entry.SourcePath)
		if convErr != nil {
			return failedEntry(entry, fmt.Errorf("cannot verify existing destination %s: %w: %v",
				entry.DestPath, types.ErrConversion, convErr))
		}
		sum := sha256.Sum256(data)
		expected = hex.EncodeToString(sum[:])
	}

	if existingHash == expected {
		logging.LogEntryApplied(entry.SourcePath, entry.DestPath, string(manifest.StatusSkipped))
		return manifest.Entry{
			SourcePath: entry.SourcePath,
			DestPath:   entry.DestPath,
			GroupID:    entry.GroupID,
			Action:     types.ActionSkipExisting,
			Status:     manifest.StatusSkipped,
		}
	}

	return failedEntry(entry, fmt.Errorf("%w: %s", types.ErrDestinationConflict, entry.DestPath))
}

// writeCopy streams the source bytes verbatim, preserving embedded
// metadata byte-for-byte.
func writeCopy(entry types.PlanEntry, dest *os.File) error {
	src, err := os.Open(entry.SourcePath)
	if err != nil {
		return fmt.Errorf("cannot open source %s: %v", entry.SourcePath, err)
	}
	defer src.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return fmt.Errorf("copy failed for %s: %v", entry.SourcePath, err)
	}
	return nil
}

// writeConverted routes a RAW source through the converter and re-attaches
// the extracted capture time the conversion stripped.
func (ex *Executor) writeConverted(ctx context.Context, entry types.PlanEntry, dest *os.File) error {
	data, err := ex.convert(ctx, entry.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrConversion, err)
	}

	if _, err := dest.Write(data); err != nil {
		return fmt.Errorf("write failed for %s: %v", entry.DestPath, err)
	}

	if ex.Meta != nil && entry.CaptureTime != nil && entry.Confidence == types.ConfidenceExact {
		if err := ex.Meta.AttachCaptureTime(ctx, entry.DestPath, *entry.CaptureTime); err != nil {
			logging.LogWarning("Could not re-attach metadata to %s: %v", entry.DestPath, err)
		}
	}
	return nil
}

func (ex *Executor) convert(ctx context.Context, path string) ([]byte, error) {
	if ex.Converter == nil {
		return nil, fmt.Errorf("no RAW converter available")
	}
	return ex.Converter.Convert(ctx, path)
}

// preserveTimes sets the destination times to the capture time when known,
// matching the source's modification time otherwise.
func preserveTimes(entry types.PlanEntry) {
	when := time.Time{}
	if entry.CaptureTime != nil {
		when = *entry.CaptureTime
	} else if info, err := os.Stat(entry.SourcePath); err == nil {
		when = info.ModTime()
	}
	if !when.IsZero() {
		os.Chtimes(entry.DestPath, when, when)
	}
}

func failedEntry(entry types.PlanEntry, err error) manifest.Entry {
	logging.LogEntryApplied(entry.SourcePath, entry.DestPath, string(manifest.StatusFailed))
	return manifest.Entry{
		SourcePath: entry.SourcePath,
		DestPath:   entry.DestPath,
		GroupID:    entry.GroupID,
		Action:     entry.Action,
		Status:     manifest.StatusFailed,
		Error:      err.Error(),
	}
}

// hashFile computes the SHA-256 digest of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
