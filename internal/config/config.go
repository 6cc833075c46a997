// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvIndexPrefix = "SITEQA_INDEX_PREFIX"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Crawling
	MaxDepth            int    `json:"max_depth,omitempty" yaml:"max_depth,omitempty" validate:"gte=0,lte=10"`
	RateLimitMS         int    `json:"rate_limit_ms,omitempty" yaml:"rate_limit_ms,omitempty" validate:"gte=0"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds,omitempty" yaml:"fetch_timeout_seconds,omitempty" validate:"gte=0,lte=300"`
	UserAgent           string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	StaticOnly          bool   `json:"static_only,omitempty" yaml:"static_only,omitempty"` // Skip the headless browser

	// Chunking
	MaxTokens     int    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	OverlapTokens int    `json:"overlap_tokens,omitempty" yaml:"overlap_tokens,omitempty" validate:"gte=0"`
	Encoding      string `json:"encoding,omitempty" yaml:"encoding,omitempty"` // tiktoken encoding name

	// Embedding and index
	EmbeddingProvider string `json:"embedding_provider,omitempty" yaml:"embedding_provider,omitempty" validate:"omitempty,oneof=gemini hashing"`
	EmbeddingModel    string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
	Dimension         int    `json:"dimension,omitempty" yaml:"dimension,omitempty" validate:"gte=0"`
	IndexPrefix       string `json:"index_prefix,omitempty" yaml:"index_prefix,omitempty"` // Snapshot path prefix
	TopK              int    `json:"top_k,omitempty" yaml:"top_k,omitempty" validate:"gte=0,lte=100"`

	// Answering
	AnswerModel string `json:"answer_model,omitempty" yaml:"answer_model,omitempty"`

	// Behavior
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`           // Gemini API key
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // Crawl archive: postgres:// URL or SQLite path
	Verbose     bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`           // Print detailed debug information
	LogFile     string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		MaxDepth:            2,
		RateLimitMS:         500,
		FetchTimeoutSeconds: 10,
		MaxTokens:           500,
		OverlapTokens:       50,
		Encoding:            "cl100k_base",
		EmbeddingProvider:   "gemini",
		EmbeddingModel:      "text-embedding-004",
		Dimension:           768,
		IndexPrefix:         filepath.Join("data", "siteqa"),
		TopK:                5,
	}
}

// LoadConfig loads configuration from a .json, .yaml or .yml file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .json, .yaml or .yml)", ext)
	}

	return &cfg, nil
}

// FromEnv returns the settings available from environment variables.
func FromEnv() Config {
	return Config{
		APIKey:      os.Getenv(EnvAPIKey),
		DatabaseURL: os.Getenv(EnvDatabaseURL),
		IndexPrefix: os.Getenv(EnvIndexPrefix),
	}
}

// Resolve builds the effective configuration: file values (when path is set), then environment,
// then defaults. The result is validated.
func Resolve(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	merged := cfg.MergeWithDefaults(FromEnv())
	merged = merged.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their file key rather than the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s=%s' check (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.MaxTokens > 0 && c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("config error: 'overlap_tokens' (%d) must be less than 'max_tokens' (%d)", c.OverlapTokens, c.MaxTokens)
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.Encoding == "" {
		result.Encoding = defaults.Encoding
	}
	if result.EmbeddingProvider == "" {
		result.EmbeddingProvider = defaults.EmbeddingProvider
	}
	if result.EmbeddingModel == "" {
		result.EmbeddingModel = defaults.EmbeddingModel
	}
	if result.IndexPrefix == "" {
		result.IndexPrefix = defaults.IndexPrefix
	}
	if result.AnswerModel == "" {
		result.AnswerModel = defaults.AnswerModel
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogFile == "" {
		result.LogFile = defaults.LogFile
	}

	// Int fields: use default if zero
	if result.MaxDepth == 0 {
		result.MaxDepth = defaults.MaxDepth
	}
	if result.RateLimitMS == 0 {
		result.RateLimitMS = defaults.RateLimitMS
	}
	if result.FetchTimeoutSeconds == 0 {
		result.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
	}
	if result.MaxTokens == 0 {
		result.MaxTokens = defaults.MaxTokens
	}
	if result.OverlapTokens == 0 {
		result.OverlapTokens = defaults.OverlapTokens
	}
	if result.Dimension == 0 {
		result.Dimension = defaults.Dimension
	}
	if result.TopK == 0 {
		result.TopK = defaults.TopK
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
