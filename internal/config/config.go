package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/facetmux/facetmux/internal/domain/search/merge"
	"github.com/facetmux/facetmux/internal/domain/search/sortby"
)

// Config holds the facetmux service configuration.
type Config struct {
	HTTP        HTTPConfig         `yaml:"http"`
	Backend     BackendConfig      `yaml:"backend"`
	Search      SearchConfig       `yaml:"search"`
	Federation  FederationConfig   `yaml:"federation"`
	Collections []CollectionConfig `yaml:"collections"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig holds backing search service connection settings.
type BackendConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig holds query orchestration settings.
type SearchConfig struct {
	// DisjunctiveFacets toggles the self-exclusion fan-out globally.
	// Off, every search is one round trip with naive counts.
	DisjunctiveFacets *bool `yaml:"disjunctive_facets"`
	MaxFacetValues    int   `yaml:"max_facet_values"`
	DefaultPerPage    int   `yaml:"default_per_page"`
	MaxPerPage        int   `yaml:"max_per_page"`
}

// FederationConfig holds multi-collection merge defaults.
type FederationConfig struct {
	Strategy         string `yaml:"strategy"`
	GlobalMaxResults int    `yaml:"global_max_results"`
}

// CollectionConfig declares one searchable collection.
type CollectionConfig struct {
	Name    string        `yaml:"name"`
	QueryBy []string      `yaml:"query_by"`
	Weight  float64       `yaml:"weight"`
	Limit   int           `yaml:"limit"`
	Sort    string        `yaml:"default_sort"`
	Fields  []FieldConfig `yaml:"fields"`
}

// FieldConfig declares a filterable field's type for literal quoting.
type FieldConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // string, numeric, bool
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// DisjunctiveEnabled reports the disjunctive toggle, defaulting to on.
func (c *Config) DisjunctiveEnabled() bool {
	return c.Search.DisjunctiveFacets == nil || *c.Search.DisjunctiveFacets
}

// Collection returns the declared collection by name.
func (c *Config) Collection(name string) (CollectionConfig, bool) {
	for _, col := range c.Collections {
		if col.Name == name {
			return col, true
		}
	}
	return CollectionConfig{}, false
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = 10
	}
	if c.Search.MaxFacetValues <= 0 {
		c.Search.MaxFacetValues = 10
	}
	if c.Search.DefaultPerPage <= 0 {
		c.Search.DefaultPerPage = 20
	}
	if c.Search.MaxPerPage <= 0 {
		c.Search.MaxPerPage = 100
	}
	if c.Federation.Strategy == "" {
		c.Federation.Strategy = string(merge.Relevance)
	}
	for i := range c.Collections {
		if c.Collections[i].Weight == 0 {
			c.Collections[i].Weight = 1.0
		}
		if c.Collections[i].Limit <= 0 {
			c.Collections[i].Limit = c.Search.DefaultPerPage
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if !merge.Strategy(c.Federation.Strategy).IsValid() {
		return fmt.Errorf("federation.strategy %q is not a known merge strategy", c.Federation.Strategy)
	}
	seen := make(map[string]bool, len(c.Collections))
	for i, col := range c.Collections {
		if col.Name == "" {
			return fmt.Errorf("collections[%d].name is required", i)
		}
		if seen[col.Name] {
			return fmt.Errorf("collections[%d]: duplicate collection %q", i, col.Name)
		}
		seen[col.Name] = true
		if len(col.QueryBy) == 0 {
			return fmt.Errorf("collections.%s.query_by is required", col.Name)
		}
		if col.Weight < 0 {
			return fmt.Errorf("collections.%s.weight must be >= 0, got %v", col.Name, col.Weight)
		}
		if col.Sort != "" {
			if _, err := sortby.Parse(col.Sort); err != nil {
				return fmt.Errorf("collections.%s.default_sort: %w", col.Name, err)
			}
		}
		for _, f := range col.Fields {
			switch f.Type {
			case "string", "numeric", "bool":
				// ok
			default:
				return fmt.Errorf(
					"collections.%s.fields.%s: type must be string, numeric or bool, got %q",
					col.Name, f.Name, f.Type,
				)
			}
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
