package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poi-conflation/internal/records"
)

// Config holds every tunable of the conflation pipeline.
type Config struct {
	Data struct {
		YelpJSON        string `yaml:"yelp_json"`
		OMFGeoJSON      string `yaml:"omf_geojson"`
		OverpassGeoJSON string `yaml:"overpass_geojson"`
		InterimDir      string `yaml:"interim_dir"`
		ProcessedDir    string `yaml:"processed_dir"`
		ModelDir        string `yaml:"model_dir"`
	} `yaml:"data"`

	Matching struct {
		MaxDistanceMeters   float64 `yaml:"max_distance_meters"`
		FuzzyScoreThreshold int     `yaml:"fuzzy_score_threshold"`
		ChunkSize           int     `yaml:"chunk_size"`
		Workers             int     `yaml:"workers"`
	} `yaml:"matching"`

	Conflation struct {
		// Ordered list, first entry wins ties.
		SourcePriority []string `yaml:"source_priority"`
		// Social/aggregator domains avoided during website selection.
		BlockedDomains []string `yaml:"blocked_domains"`
	} `yaml:"conflation"`

	Training struct {
		Trees       int     `yaml:"trees"`
		HoldoutFrac float64 `yaml:"holdout_frac"`
		Seed        int64   `yaml:"seed"`
	} `yaml:"training"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
}

// Default returns the pipeline defaults used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.YelpJSON = "data/raw/yelp_academic_dataset_business.json"
	cfg.Data.OMFGeoJSON = "data/interim/omf_all_merged.geojson"
	cfg.Data.OverpassGeoJSON = "data/interim/overpass_all_merged.geojson"
	cfg.Data.InterimDir = "data/interim"
	cfg.Data.ProcessedDir = "data/processed"
	cfg.Data.ModelDir = "models"
	cfg.Matching.MaxDistanceMeters = 1000
	cfg.Matching.FuzzyScoreThreshold = 80
	cfg.Matching.ChunkSize = 5000
	cfg.Matching.Workers = 1
	cfg.Conflation.SourcePriority = []string{"yelp", "omf", "overpass"}
	cfg.Conflation.BlockedDomains = []string{
		"facebook.com", "instagram.com", "youtube.com", "twitter.com", "yelp.com",
	}
	cfg.Training.Trees = 300
	cfg.Training.HoldoutFrac = 0.2
	cfg.Training.Seed = 42
	cfg.Database.URL = GetEnv("DATABASE_URL", "postgres://localhost/poi_conflation?sslmode=disable")
	cfg.Server.Host = GetEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = GetEnvInt("SERVER_PORT", 8080)
	return cfg
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Matching.MaxDistanceMeters <= 0 {
		return fmt.Errorf("matching.max_distance_meters must be positive, got %v", c.Matching.MaxDistanceMeters)
	}
	if c.Matching.FuzzyScoreThreshold < 0 || c.Matching.FuzzyScoreThreshold > 100 {
		return fmt.Errorf("matching.fuzzy_score_threshold must be in [0,100], got %d", c.Matching.FuzzyScoreThreshold)
	}
	if c.Matching.ChunkSize <= 0 {
		return fmt.Errorf("matching.chunk_size must be positive, got %d", c.Matching.ChunkSize)
	}
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = 1
	}
	if len(c.Conflation.SourcePriority) == 0 {
		return fmt.Errorf("conflation.source_priority must not be empty")
	}
	seen := make(map[records.Source]bool, len(c.Conflation.SourcePriority))
	for _, s := range c.Conflation.SourcePriority {
		name := records.Source(strings.ToLower(strings.TrimSpace(s)))
		if !records.KnownSource(name) {
			return fmt.Errorf("conflation.source_priority: unknown source %q", s)
		}
		if seen[name] {
			return fmt.Errorf("conflation.source_priority: source %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// SourcePriority converts the configured source names into a ranking.
func (c *Config) SourcePriority() *records.Priority {
	order := make([]records.Source, 0, len(c.Conflation.SourcePriority))
	for _, s := range c.Conflation.SourcePriority {
		order = append(order, records.Source(strings.ToLower(strings.TrimSpace(s))))
	}
	return records.NewPriority(order)
}

// GetEnv gets an environment variable with a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvFloat gets a float environment variable with a default.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
