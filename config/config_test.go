package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocons/types"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.90, cfg.VisualThreshold)
	assert.Equal(t, 1, cfg.TemporalThreshold)
	assert.Equal(t, "unknown-date", cfg.UnknownDir)
	assert.True(t, cfg.RawConversion)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
visual_threshold: 0.85
hierarchy: "2006/2006-01"
some_future_key: ignored
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.85, cfg.VisualThreshold)
	assert.Equal(t, "2006/2006-01", cfg.Hierarchy)
	// Keys the document does not mention keep their defaults.
	assert.Equal(t, 1, cfg.TemporalThreshold)
	assert.Equal(t, "{name}_{hash}{ext}", cfg.Naming)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingNamedFileIsConfigurationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestLoadMalformedFileIsConfigurationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("visual_threshold: [not a number"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.VisualThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.VisualThreshold = -0.1 }},
		{"band wider than threshold", func(c *Config) { c.AmbiguityBand = 0.95 }},
		{"negative temporal", func(c *Config) { c.TemporalThreshold = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"empty hierarchy", func(c *Config) { c.Hierarchy = "" }},
		{"empty naming", func(c *Config) { c.Naming = "" }},
		{"empty unknown dir", func(c *Config) { c.UnknownDir = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrConfiguration))
		})
	}
}

func TestFormatRank(t *testing.T) {
	cfg := Default()
	assert.Less(t, cfg.FormatRank("dng"), cfg.FormatRank("jpg"))
	assert.Less(t, cfg.FormatRank("png"), cfg.FormatRank("jpg"))
	// Unknown formats rank after every listed one.
	assert.Equal(t, len(cfg.FormatPriority), cfg.FormatRank("bmp"))
}
