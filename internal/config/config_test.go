package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1000.0, cfg.Matching.MaxDistanceMeters)
	assert.Equal(t, 80, cfg.Matching.FuzzyScoreThreshold)
	assert.Equal(t, 5000, cfg.Matching.ChunkSize)
	assert.Equal(t, []string{"yelp", "omf", "overpass"}, cfg.Conflation.SourcePriority)
	assert.Contains(t, cfg.Conflation.BlockedDomains, "facebook.com")
	assert.Equal(t, 300, cfg.Training.Trees)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matching:
  max_distance_meters: 500
  fuzzy_score_threshold: 90
conflation:
  source_priority: [overpass, yelp, omf]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500.0, cfg.Matching.MaxDistanceMeters)
	assert.Equal(t, 90, cfg.Matching.FuzzyScoreThreshold)
	assert.Equal(t, 5000, cfg.Matching.ChunkSize, "unset keys keep their defaults")

	p := cfg.SourcePriority()
	assert.Equal(t, 0, p.Rank(records.SourceOverpass))
	assert.Equal(t, 1, p.Rank(records.SourceYelp))
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Matching, cfg.Matching)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative distance", func(c *Config) { c.Matching.MaxDistanceMeters = -1 }},
		{"threshold above 100", func(c *Config) { c.Matching.FuzzyScoreThreshold = 101 }},
		{"zero chunk size", func(c *Config) { c.Matching.ChunkSize = 0 }},
		{"empty priority", func(c *Config) { c.Conflation.SourcePriority = nil }},
		{"duplicate priority entry", func(c *Config) { c.Conflation.SourcePriority = []string{"yelp", "omf", "yelp"} }},
		{"unknown priority source", func(c *Config) { c.Conflation.SourcePriority = []string{"yelp", "foursquare"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CONFLATE_TEST_STR", "hello")
	t.Setenv("CONFLATE_TEST_INT", "7")
	t.Setenv("CONFLATE_TEST_FLOAT", "2.5")

	assert.Equal(t, "hello", GetEnv("CONFLATE_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("CONFLATE_TEST_MISSING", "fallback"))
	assert.Equal(t, 7, GetEnvInt("CONFLATE_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("CONFLATE_TEST_STR", 1))
	assert.Equal(t, 2.5, GetEnvFloat("CONFLATE_TEST_FLOAT", 1.0))
}
