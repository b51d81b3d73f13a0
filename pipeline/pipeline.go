// Package pipeline wires the stages together: extract, group, select,
// plan, execute. Stages 1-4 are pure transformations over immutable
// batches; only the executor touches the destination. The context is
// checked at every stage boundary so a cancelled run stops cleanly without
// corrupting entries that already applied.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"photocons/config"
	"photocons/database"
	"photocons/executor"
	"photocons/fingerprint"
	"photocons/grouping"
	"photocons/logging"
	"photocons/manifest"
	"photocons/metadata"
	"photocons/pathplan"
	"photocons/scanner"
	"photocons/selector"
	"photocons/timeindex"
	"photocons/types"
)

// manifestFileName is the JSON artifact written next to the consolidated
// archive after every run.
const manifestFileName = "consolidation_manifest.json"

// Options are the per-run parameters.
type Options struct {
	Sources   []string
	DestRoot  string
	DryRun    bool
	DebugMode bool
	Quiet     bool
	Workers   int
}

// Pipeline holds the collaborators a run needs. DB, Meta, and Embedder may
// be nil; the run degrades gracefully without them.
type Pipeline struct {
	Cfg       config.Config
	DB        *sql.DB
	Converter fingerprint.RawConverter
	Meta      *metadata.Extractor
	Embedder  *fingerprint.Embedder
}

// Run executes a full consolidation and returns the manifest. The manifest
// is returned even on early abort so callers can report the fate of
// whatever was reached.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*manifest.RunManifest, error) {
	m := manifest.New(opts.Sources, opts.DestRoot)
	m.DryRun = opts.DryRun
	defer m.Finish()

	// Destination must be writable before any per-file work starts. A dry
	// run defers creation to the manifest write so planning leaves the
	// destination untouched.
	if !opts.DryRun {
		if err := os.MkdirAll(opts.DestRoot, 0755); err != nil {
			return m, fmt.Errorf("destination is not writable: %v", err)
		}
	}

	// Stage 1: discovery + extraction.
	paths, stats, err := scanner.CollectFiles(opts.Sources, opts.DebugMode)
	if err != nil {
		return m, err
	}
	if !opts.Quiet {
		fmt.Printf("Found %d image files to consolidate (%d RAW, %d TIFF)\n",
			stats.TotalFiles, stats.RawFiles, stats.TiffFiles)
	}

	records := scanner.ExtractAll(ctx, paths, scanner.ScanOptions{
		Sources:    opts.Sources,
		MaxWorkers: opts.Workers,
		DebugMode:  opts.DebugMode,
		Quiet:      opts.Quiet,
	}, p.extractFunc(opts.DebugMode))

	// Unreadable records are excluded from grouping but their fate is
	// reported up front.
	for _, rec := range records {
		if rec.Unreadable {
			errMsg := "unreadable file"
			if rec.Err != nil {
				errMsg = rec.Err.Error()
			}
			m.Add(manifest.Entry{
				SourcePath: rec.SourcePath,
				Status:     manifest.StatusFailed,
				Error:      errMsg,
			})
		}
	}

	// Grouping needs the complete fingerprint set: barrier.
	if err := ctx.Err(); err != nil {
		return m, fmt.Errorf("run aborted before grouping: %w", err)
	}

	// Stage 2: similarity grouping.
	groups, err := grouping.Group(ctx, records, grouping.Options{
		VisualThreshold:       p.Cfg.VisualThreshold,
		AmbiguityBand:         p.Cfg.AmbiguityBand,
		EmbeddingThreshold:    p.Cfg.EmbeddingThreshold,
		TemporalThresholdDays: p.Cfg.TemporalThreshold,
		Workers:               opts.Workers,
	})
	if err != nil {
		return m, fmt.Errorf("run aborted during grouping: %w", err)
	}
	if !opts.Quiet {
		fmt.Printf("Grouped %d readable files into %d photo groups\n",
			len(records)-unreadableCount(records), len(groups))
	}

	// Stage 3: representative selection.
	selector.Select(records, groups, p.Cfg)

	if err := ctx.Err(); err != nil {
		return m, fmt.Errorf("run aborted before planning: %w", err)
	}

	// Stage 4: path planning. Album detection reads the destination
	// tree; planning itself is pure.
	albums := pathplan.DetectAlbums(opts.DestRoot)
	plan, err := pathplan.BuildPlan(pathplan.Input{
		Records:  records,
		Groups:   groups,
		DestRoot: opts.DestRoot,
		Albums:   albums,
	}, p.Cfg)
	if err != nil {
		return m, err
	}

	if opts.DryRun {
		for _, entry := range plan.Entries {
			m.Add(manifest.Entry{
				SourcePath: entry.SourcePath,
				DestPath:   entry.DestPath,
				GroupID:    entry.GroupID,
				Action:     entry.Action,
				Status:     manifest.StatusSkipped,
			})
		}
		return m, p.persist(m)
	}

	if err := ctx.Err(); err != nil {
		return m, fmt.Errorf("run aborted before execution: %w", err)
	}

	// Stage 5: execution, the only stage with side effects.
	ex := &executor.Executor{
		Converter: p.Converter,
		Meta:      p.Meta,
		Workers:   opts.Workers,
		DebugMode: opts.DebugMode,
	}
	m.Add(ex.Apply(ctx, plan)...)

	return m, p.persist(m)
}

// extractFunc builds the extraction closure the scanner workers run:
// fingerprint plus capture-time resolution, with a cache short-circuit for
// files unchanged since a previous run.
func (p *Pipeline) extractFunc(debugMode bool) scanner.ExtractFunc {
	ext := &fingerprint.Extractor{
		Converter: p.Converter,
		Embedder:  p.Embedder,
		DebugMode: debugMode,
	}
	ix := &timeindex.Indexer{Meta: p.Meta}

	// The cache stores hashes but not embeddings, so it only serves
	// runs without an embedding model.
	useCache := p.DB != nil && p.Embedder == nil

	return func(ctx context.Context, path string) types.PhotoRecord {
		info, statErr := os.Stat(path)

		if useCache && statErr == nil {
			cached, found, err := database.LookupFingerprint(p.DB, path, info.ModTime())
			if err != nil && debugMode {
				logging.LogWarning("Fingerprint cache lookup failed for %s: %v", path, err)
			}
			if found {
				if debugMode {
					logging.DebugLog("Fingerprint cache hit: %s", path)
				}
				return cached
			}
		}

		record := ext.Extract(ctx, path)
		if !record.Unreadable {
			record.CaptureTime, record.TimeConfidence = ix.Resolve(path)
		}

		if useCache && statErr == nil {
			if err := database.StoreFingerprint(p.DB, record, info.ModTime()); err != nil && debugMode {
				logging.LogWarning("Fingerprint cache store failed for %s: %v", path, err)
			}
		}

		return record
	}
}

// persist writes the manifest artifact and, when a database is attached,
// the run history row.
func (p *Pipeline) persist(m *manifest.RunManifest) error {
	m.Finish()

	if err := os.MkdirAll(m.DestRoot, 0755); err != nil {
		return fmt.Errorf("destination is not writable: %v", err)
	}

	artifact := filepath.Join(m.DestRoot, manifestFileName)
	if err := m.WriteJSON(artifact); err != nil {
		return fmt.Errorf("cannot write manifest %s: %v", artifact, err)
	}

	if p.DB != nil {
		if err := database.SaveManifest(p.DB, m); err != nil {
			logging.LogWarning("Could not persist manifest to database: %v", err)
		}
	}

	return nil
}

func unreadableCount(records []types.PhotoRecord) int {
	n := 0
	for _, r := range records {
		if r.Unreadable {
			n++
		}
	}
	return n
}
