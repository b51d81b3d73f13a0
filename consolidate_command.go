package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"photocons/config"
	"photocons/database"
	"photocons/fingerprint"
	"photocons/logging"
	"photocons/manifest"
	"photocons/metadata"
	"photocons/pipeline"
	"photocons/rawconv"
	"photocons/signalhandler"
)

// cacheFileName is the per-destination fingerprint cache and run history.
const cacheFileName = ".photocons.db"

type consolidateFlags struct {
	dest              string
	configPath        string
	visualThreshold   float64
	temporalThreshold int
	hierarchy         string
	naming            string
	rawConversion     bool
	dryRun            bool
	verbose           bool
	debug             bool
	logFile           string
	workers           int
	noCache           bool
}

func newConsolidateCommand() *cobra.Command {
	flags := &consolidateFlags{}

	cmd := &cobra.Command{
		Use:   "consolidate [sources...]",
		Short: "Deduplicate and consolidate photos into the destination archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsolidate(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dest, "dest", "", "destination archive directory (required)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to YAML config file")
	cmd.Flags().Float64Var(&flags.visualThreshold, "visual-threshold", 0, "perceptual similarity required to group (0.0-1.0)")
	cmd.Flags().IntVar(&flags.temporalThreshold, "temporal-threshold", 0, "maximum capture-time difference in days")
	cmd.Flags().StringVar(&flags.hierarchy, "hierarchy", "", "date directory layout (Go time format)")
	cmd.Flags().StringVar(&flags.naming, "naming", "", "destination filename template")
	cmd.Flags().BoolVar(&flags.rawConversion, "raw-conversion", true, "convert RAW representatives to JPEG")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "plan only, do not place any files")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose progress output")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&flags.logFile, "logfile", "photocons.log", "debug log file path")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "worker pool size (0 = auto)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the fingerprint cache")
	cmd.MarkFlagRequired("dest")

	return cmd
}

func runConsolidate(cmd *cobra.Command, sources []string, flags *consolidateFlags) error {
	ctx, cancel := signalhandler.SetupContext()
	defer cancel()

	// Image decoding runs through CGo; leave some headroom.
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, flags, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if flags.debug {
		if err := logging.SetupLogger(flags.logFile); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", flags.logFile)
			defer logging.CloseLogger()
		}
	}

	workers := cfg.Workers
	if flags.workers > 0 {
		workers = flags.workers
	}
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}

	startTime := time.Now()

	fmt.Printf("Starting photo consolidation...\n")
	fmt.Printf("Sources: %v\n", sources)
	fmt.Printf("Destination: %s\n", flags.dest)
	fmt.Printf("Visual threshold: %.2f, temporal threshold: %d day(s)\n",
		cfg.VisualThreshold, cfg.TemporalThreshold)
	if flags.dryRun {
		fmt.Println("Dry run mode: no files will be placed")
	}

	p, cleanup, err := buildPipeline(cfg, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := p.Run(ctx, pipeline.Options{
		Sources:   sources,
		DestRoot:  flags.dest,
		DryRun:    flags.dryRun,
		DebugMode: flags.debug,
		Workers:   workers,
		Quiet:     !flags.verbose && !flags.debug,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nConsolidation finished in %v (run %s)\n",
		time.Since(startTime).Round(time.Second), m.RunID)
	m.Summary(os.Stdout)

	return runOutcome(m)
}

// runOutcome turns failed entries into the command error, so deferred
// cleanup still runs before the process exits non-zero.
func runOutcome(m *manifest.RunManifest) error {
	if _, _, failed := m.Counts(); failed > 0 {
		return fmt.Errorf("%d of %d entries failed; see the manifest for details",
			failed, len(m.Entries))
	}
	return nil
}

// buildPipeline constructs the collaborators. The metadata extractor and
// the cache database are optional: a missing exiftool or an unopenable
// cache degrades the run instead of stopping it.
func buildPipeline(cfg config.Config, flags *consolidateFlags) (*pipeline.Pipeline, func(), error) {
	converter := rawconv.NewConverter(flags.debug)

	meta, err := metadata.NewExtractor(flags.debug)
	if err != nil {
		fmt.Printf("Warning: exiftool unavailable, capture metadata limited: %v\n", err)
		meta = nil
	}

	embedder, err := fingerprint.NewEmbedder(cfg.EmbeddingModel)
	if err != nil {
		meta.Close()
		return nil, nil, fmt.Errorf("cannot load embedding model: %v", err)
	}

	// A dry run must not touch the destination, so no cache either.
	var db *sql.DB
	if !flags.noCache && !flags.dryRun {
		if err := os.MkdirAll(flags.dest, 0755); err == nil {
			db, err = database.InitDatabase(filepath.Join(flags.dest, cacheFileName))
			if err != nil {
				fmt.Printf("Warning: fingerprint cache unavailable: %v\n", err)
				db = nil
			}
		}
	}

	cleanup := func() {
		if db != nil {
			db.Close()
		}
		embedder.Close()
		meta.Close()
	}

	return &pipeline.Pipeline{
		Cfg:       cfg,
		DB:        db,
		Converter: converter,
		Meta:      meta,
		Embedder:  embedder,
	}, cleanup, nil
}

// applyFlagOverrides layers explicitly-set flags over the config document,
// so the precedence is flags > file > defaults.
func applyFlagOverrides(cmd *cobra.Command, flags *consolidateFlags, cfg *config.Config) {
	if cmd.Flags().Changed("visual-threshold") {
		cfg.VisualThreshold = flags.visualThreshold
	}
	if cmd.Flags().Changed("temporal-threshold") {
		cfg.TemporalThreshold = flags.temporalThreshold
	}
	if cmd.Flags().Changed("hierarchy") {
		cfg.Hierarchy = flags.hierarchy
	}
	if cmd.Flags().Changed("naming") {
		cfg.Naming = flags.naming
	}
	if cmd.Flags().Changed("raw-conversion") {
		cfg.RawConversion = flags.rawConversion
	}
}
