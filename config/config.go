package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"photocons/types"
)

// Config holds the run-wide settings. It is loaded once at startup,
// validated before any file I/O, and threaded through each component as an
// immutable value so concurrent runs never interfere.
type Config struct {
	// VisualThreshold is the normalized perceptual-hash similarity in
	// [0,1] required to join two records (0.90 means hashes must agree
	// on at least 90% of bits).
	VisualThreshold float64 `yaml:"visual_threshold"`

	// TemporalThreshold is the maximum capture-time difference, in whole
	// days, for two timestamped records to be joined.
	TemporalThreshold int `yaml:"temporal_threshold"`

	// AmbiguityBand is the width of the similarity band just below
	// VisualThreshold in which the embedding signal decides.
	AmbiguityBand float64 `yaml:"ambiguity_band"`

	// EmbeddingThreshold is the cosine similarity an embedding pair must
	// exceed to join records whose hash distance is ambiguous.
	EmbeddingThreshold float64 `yaml:"embedding_threshold"`

	// EmbeddingModel is the path to an ONNX model for visual embeddings.
	// Empty disables embedding extraction entirely.
	EmbeddingModel string `yaml:"embedding_model"`

	// Hierarchy is the Go time layout used to build date directories
	// under the destination root.
	Hierarchy string `yaml:"hierarchy"`

	// Naming is the destination filename template. Recognized tokens:
	// {name} (original base name), {hash} (short content hash), {ext}.
	Naming string `yaml:"naming"`

	// UnknownDir is the bucket for representatives with no timestamp.
	UnknownDir string `yaml:"unknown_dir"`

	// RawConversion enables converting RAW representatives to JPEG at
	// the destination. When off, RAW files are copied verbatim into a
	// per-year raw bucket.
	RawConversion bool `yaml:"raw_conversion"`

	// FormatPriority is the ordered format preference used as a
	// representative tie-break, best first.
	FormatPriority []string `yaml:"format_priority"`

	// Workers bounds the extraction and execution pools. Zero means
	// one worker per usable CPU.
	Workers int `yaml:"workers"`
}

// Default returns the documented defaults. Missing keys in a loaded
// document keep these values.
func Default() Config {
	return Config{
		VisualThreshold:    0.90,
		TemporalThreshold:  1,
		AmbiguityBand:      0.05,
		EmbeddingThreshold: 0.92,
		Hierarchy:          "2006/01-January",
		Naming:             "{name}_{hash}{ext}",
		UnknownDir:         "unknown-date",
		RawConversion:      true,
		FormatPriority: []string{
			"dng", "arw", "nef", "cr2", "cr3", "raf", "orf", "rw2",
			"tiff", "tif", "png", "heic", "webp", "jpeg", "jpg",
		},
	}
}

// Load reads a YAML config document and merges it over the defaults.
// An empty path means "defaults only"; a named file must exist and parse.
// Unrecognized keys are ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: cannot read %s: %v", types.ErrConfiguration, path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: cannot parse %s: %v", types.ErrConfiguration, path, err)
	}

	return cfg, nil
}

// Validate checks threshold and template values. It runs before any file
// I/O so a bad configuration never touches the filesystem.
func (c Config) Validate() error {
	if c.VisualThreshold < 0 || c.VisualThreshold > 1 {
		return fmt.Errorf("%w: visual_threshold %.2f outside [0,1]", types.ErrConfiguration, c.VisualThreshold)
	}
	if c.AmbiguityBand < 0 || c.AmbiguityBand > c.VisualThreshold {
		return fmt.Errorf("%w: ambiguity_band %.2f outside [0,visual_threshold]", types.ErrConfiguration, c.AmbiguityBand)
	}
	if c.EmbeddingThreshold < 0 || c.EmbeddingThreshold > 1 {
		return fmt.Errorf("%w: embedding_threshold %.2f outside [0,1]", types.ErrConfiguration, c.EmbeddingThreshold)
	}
	if c.TemporalThreshold < 0 {
		return fmt.Errorf("%w: temporal_threshold must not be negative", types.ErrConfiguration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", types.ErrConfiguration)
	}
	if c.Hierarchy == "" {
		return fmt.Errorf("%w: hierarchy must not be empty", types.ErrConfiguration)
	}
	if c.UnknownDir == "" {
		return fmt.Errorf("%w: unknown_dir must not be empty", types.ErrConfiguration)
	}
	if c.Naming == "" {
		return fmt.Errorf("%w: naming must not be empty", types.ErrConfiguration)
	}
	return nil
}

// FormatRank returns the priority index of a format, lower is better.
// Formats outside the configured list rank after every listed one.
func (c Config) FormatRank(format string) int {
	for i, f := range c.FormatPriority {
		if f == format {
			return i
		}
	}
	return len(c.FormatPriority)
}
