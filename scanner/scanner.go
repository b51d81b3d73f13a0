// Package scanner discovers image files under the source trees and drives
// the parallel extraction pool. Extraction is embarrassingly parallel
// across files: a bounded worker pool computes fingerprints with no shared
// mutable state beyond append-only result collection.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"photocons/logging"
	"photocons/rawconv"
	"photocons/types"
)

// ScanOptions defines the options for the extraction stage
type ScanOptions struct {
	Sources    []string
	MaxWorkers int
	DebugMode  bool
	Quiet      bool
}

// ExtractFunc produces the PhotoRecord for one file. The scanner does not
// know how records are made; the pipeline supplies the extractor (and its
// cache) behind this function.
type ExtractFunc func(ctx context.Context, path string) types.PhotoRecord

// FileStats tracks information about files to be processed
type FileStats struct {
	TotalFiles int
	RawFiles   int
	TiffFiles  int
}

// CollectFiles walks the source trees and returns every image file path,
// sorted so downstream stages see a reproducible order. Inaccessible paths
// are skipped, not fatal.
func CollectFiles(sources []string, debugMode bool) ([]string, FileStats, error) {
	var paths []string
	stats := FileStats{}
	seen := make(map[string]bool)

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, stats, fmt.Errorf("cannot access source path %s: %v", source, err)
		}
		if !info.IsDir() {
			return nil, stats, fmt.Errorf("source path is not a directory: %s", source)
		}

		err = filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if debugMode {
					logging.LogError("Error accessing path %s: %v", path, err)
				}
				return nil
			}
			if info.IsDir() || info.Size() == 0 || seen[path] {
				return nil
			}

			if IsImageFile(path) {
				seen[path] = true
				paths = append(paths, path)
				stats.TotalFiles++
				if rawconv.IsRawFormat(path) {
					stats.RawFiles++
				} else if IsTiffFormat(path) {
					stats.TiffFiles++
				}
			}
			return nil
		})
		if err != nil {
			return nil, stats, err
		}
	}

	sort.Strings(paths)

	if debugMode {
		logging.DebugLog("Found %d image files to process (%d RAW files, %d TIF files)",
			stats.TotalFiles, stats.RawFiles, stats.TiffFiles)
	}

	return paths, stats, nil
}

// ExtractAll fingerprints every file through a bounded worker pool and
// returns the records in the same order as the input paths. Records for
// unreadable files come back marked, never dropped.
func ExtractAll(ctx context.Context, paths []string, options ScanOptions, extract ExtractFunc) []types.PhotoRecord {
	stats := FileStats{TotalFiles: len(paths)}
	for _, p := range paths {
		if rawconv.IsRawFormat(p) {
			stats.RawFiles++
		}
	}

	tracker := setupProgressTracker(stats, options.Quiet)
	defer tracker.stop()

	workers := options.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	records := make([]types.PhotoRecord, len(paths))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	startTime := time.Now()

	for i, path := range paths {
		if ctx.Err() != nil {
			// Stop scheduling; files not reached are reported as
			// unreadable with the cancellation cause.
			records[i] = types.PhotoRecord{
				SourcePath: path,
				Unreadable: true,
				Err:        fmt.Errorf("extraction cancelled: %w", ctx.Err()),
			}
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			records[i] = extract(ctx, path)
			tracker.record(records[i], rawconv.IsRawFormat(path))
		}(i, path)
	}

	wg.Wait()

	processed, errors := tracker.counts()
	elapsed := time.Since(startTime)

	if options.DebugMode {
		logging.DebugLog("Extraction completed in %v. Processed: %d, Errors: %d",
			elapsed, processed, errors)
	}

	if !options.Quiet {
		fmt.Printf("\nExtraction complete. Processed %d files in %v.\n",
			processed, elapsed.Round(time.Second))
		if errors > 0 {
			fmt.Printf("Encountered %d unreadable files; see the manifest for details.\n", errors)
		}
	}

	return records
}
