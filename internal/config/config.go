package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the searchd API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	LLM      LLMConfig      `yaml:"llm"`
	Logging  LoggingConfig  `yaml:"logging"`
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

// DatabaseConfig holds search backend connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// WeightsConfig holds the per-signal fusion weights.
type WeightsConfig struct {
	Semantic float64 `yaml:"semantic"`
	BM25     float64 `yaml:"bm25"`
	Vector   float64 `yaml:"vector"`
	Business float64 `yaml:"business"`
}

// SearchConfig holds ranking and retrieval settings.
type SearchConfig struct {
	ItemWeights           WeightsConfig `yaml:"item_weights"`
	AuthorWeights         WeightsConfig `yaml:"author_weights"`
	ScoreThreshold        float64       `yaml:"score_threshold"`
	FreshnessHalflifeDays int           `yaml:"freshness_halflife_days"`
	PoolSize              int           `yaml:"pool_size"`
	TextTimeoutSec        int           `yaml:"text_timeout_sec"`
	VectorTimeoutSec      int           `yaml:"vector_timeout_sec"`
	PlanMinTokens         int           `yaml:"plan_min_tokens"`
	PlanTimeoutSec        int           `yaml:"plan_timeout_sec"`
}

// LLMConfig holds the embedding and planning provider settings.
type LLMConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ChatModel  string `yaml:"chat_model"`
	EmbedModel string `yaml:"embed_model"`
	Dimensions int    `yaml:"dimensions"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "searchd:"
	}
	if c.Search.ItemWeights == (WeightsConfig{}) {
		c.Search.ItemWeights = WeightsConfig{Semantic: 0.3, BM25: 0.4, Vector: 0.2, Business: 0.1}
	}
	if c.Search.AuthorWeights == (WeightsConfig{}) {
		c.Search.AuthorWeights = WeightsConfig{Semantic: 0.4, BM25: 0.3, Vector: 0.2, Business: 0.1}
	}
	if c.Search.ScoreThreshold <= 0 {
		c.Search.ScoreThreshold = 0.1
	}
	if c.Search.FreshnessHalflifeDays <= 0 {
		c.Search.FreshnessHalflifeDays = 30
	}
	if c.Search.PoolSize <= 0 {
		c.Search.PoolSize = 4
	}
	if c.Search.TextTimeoutSec <= 0 {
		c.Search.TextTimeoutSec = 10
	}
	if c.Search.VectorTimeoutSec <= 0 {
		c.Search.VectorTimeoutSec = 10
	}
	if c.Search.PlanMinTokens <= 0 {
		c.Search.PlanMinTokens = 5
	}
	if c.Search.PlanTimeoutSec <= 0 {
		c.Search.PlanTimeoutSec = 5
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = "gpt-4o-mini"
	}
	if c.LLM.EmbedModel == "" {
		c.LLM.EmbedModel = "text-embedding-3-small"
	}
	if c.LLM.Dimensions <= 0 {
		c.LLM.Dimensions = 1536
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for _, w := range []struct {
		name string
		cfg  WeightsConfig
	}{
		{"search.item_weights", c.Search.ItemWeights},
		{"search.author_weights", c.Search.AuthorWeights},
	} {
		for _, v := range []float64{w.cfg.Semantic, w.cfg.BM25, w.cfg.Vector, w.cfg.Business} {
			if v < 0 || v > 1 {
				return fmt.Errorf("%s values must be between 0 and 1", w.name)
			}
		}
	}
	if c.Search.ScoreThreshold < 0 || c.Search.ScoreThreshold >= 1 {
		return fmt.Errorf("search.score_threshold must be in [0, 1), got %g", c.Search.ScoreThreshold)
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
