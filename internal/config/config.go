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

// Config holds the clinicopilot service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Guardrail GuardrailConfig `yaml:"guardrail"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CorpusConfig holds corpus location and retrieval settings.
type CorpusConfig struct {
	DataPath         string  `yaml:"data_path"`          // directory with clinical_protocols.json / clinical_notes.json
	SimilarityFloor  float64 `yaml:"similarity_floor"`   // matches below are dropped (default 0.15)
	TopKResults      int     `yaml:"top_k_results"`      // result list cap shown to the caller (default 10)
	TopKContext      int     `yaml:"top_k_context"`      // smaller cap feeding the synthesis text budget (default 6)
	SearchTimeoutSec int     `yaml:"search_timeout_sec"` // bound on one similarity-search round trip (default 5)
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// GuardrailConfig holds the scope-classifier vocabulary. All three lists have
// code defaults so tests can substitute alternate vocabularies.
type GuardrailConfig struct {
	ClinicalKeywords    []string `yaml:"clinical_keywords"`
	NonClinicalKeywords []string `yaml:"non_clinical_keywords"`
	Patterns            []string `yaml:"patterns"`
}

// EmbeddingConfig holds embedding provider and vectorizer settings.
type EmbeddingConfig struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Corpus.DataPath == "" {
		c.Corpus.DataPath = "data/mimic_demo"
	}
	if c.Corpus.SimilarityFloor <= 0 {
		c.Corpus.SimilarityFloor = 0.15
	}
	if c.Corpus.TopKResults <= 0 {
		c.Corpus.TopKResults = 10
	}
	if c.Corpus.TopKContext <= 0 {
		c.Corpus.TopKContext = 6
	}
	if c.Corpus.SearchTimeoutSec <= 0 {
		c.Corpus.SearchTimeoutSec = 5
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if len(c.Guardrail.ClinicalKeywords) == 0 {
		c.Guardrail.ClinicalKeywords = DefaultClinicalKeywords()
	}
	if len(c.Guardrail.NonClinicalKeywords) == 0 {
		c.Guardrail.NonClinicalKeywords = DefaultNonClinicalKeywords()
	}
	if len(c.Guardrail.Patterns) == 0 {
		c.Guardrail.Patterns = DefaultClinicalPatterns()
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
	if c.Corpus.SimilarityFloor >= 1 {
		return fmt.Errorf("corpus.similarity_floor must be below 1, got %g", c.Corpus.SimilarityFloor)
	}
	if c.Corpus.TopKContext > c.Corpus.TopKResults {
		return fmt.Errorf("corpus.top_k_context (%d) must not exceed corpus.top_k_results (%d)",
			c.Corpus.TopKContext, c.Corpus.TopKResults)
	}
	for _, p := range c.Guardrail.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("guardrail.patterns: invalid pattern %q: %w", p, err)
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
