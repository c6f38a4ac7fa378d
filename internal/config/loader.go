// Package config loads service settings from a file, the environment and
// built-in defaults.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Backends understood by the CLI.
const (
	BackendLlama  = "llama"
	BackendOpenAI = "openai"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" envconfig:"ASKD_ADDR"`

	// Backend selects the model runtime: llama or openai.
	Backend string `json:"backend" yaml:"backend" toml:"backend" envconfig:"ASKD_BACKEND"`
	ModelID string `json:"model" yaml:"model" toml:"model" envconfig:"ASKD_MODEL"`
	// CatalogPath points at a YAML/JSON model catalog; the built-in one is used when empty.
	CatalogPath string `json:"catalog" yaml:"catalog" toml:"catalog" envconfig:"ASKD_CATALOG"`
	// ModelsDir is scanned for local *.gguf files that need no download.
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir" envconfig:"ASKD_MODELS_DIR"`
	CacheDir  string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir" envconfig:"ASKD_CACHE_DIR"`

	ContextSize      int `json:"context_size" yaml:"context_size" toml:"context_size" envconfig:"ASKD_CONTEXT_SIZE"`
	Threads          int `json:"threads" yaml:"threads" toml:"threads" envconfig:"ASKD_THREADS"`
	FetchConcurrency int `json:"fetch_concurrency" yaml:"fetch_concurrency" toml:"fetch_concurrency" envconfig:"ASKD_FETCH_CONCURRENCY"`
	FetchRetries     int `json:"fetch_retries" yaml:"fetch_retries" toml:"fetch_retries" envconfig:"ASKD_FETCH_RETRIES"`

	OpenAIBaseURL string `json:"openai_base_url" yaml:"openai_base_url" toml:"openai_base_url" envconfig:"ASKD_OPENAI_BASE_URL"`
	OpenAIAPIKey  string `json:"openai_api_key" yaml:"openai_api_key" toml:"openai_api_key" envconfig:"ASKD_OPENAI_API_KEY"`

	TokenCeiling   int     `json:"token_ceiling" yaml:"token_ceiling" toml:"token_ceiling" envconfig:"ASKD_TOKEN_CEILING"`
	WordsPerToken  float64 `json:"words_per_token" yaml:"words_per_token" toml:"words_per_token" envconfig:"ASKD_WORDS_PER_TOKEN"`
	MaxNewTokens   int     `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens" envconfig:"ASKD_MAX_NEW_TOKENS"`
	Temperature    float32 `json:"temperature" yaml:"temperature" toml:"temperature" envconfig:"ASKD_TEMPERATURE"`
	MinResponseLen int     `json:"min_response_len" yaml:"min_response_len" toml:"min_response_len" envconfig:"ASKD_MIN_RESPONSE_LEN"`
	// ProfilePath replaces the embedded profile document.
	ProfilePath string `json:"profile" yaml:"profile" toml:"profile" envconfig:"ASKD_PROFILE"`

	ChatTimeoutSeconds int      `json:"chat_timeout_seconds" yaml:"chat_timeout_seconds" toml:"chat_timeout_seconds" envconfig:"ASKD_CHAT_TIMEOUT_SECONDS"`
	MaxBodyBytes       int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" envconfig:"ASKD_MAX_BODY_BYTES"`
	CORSOrigins        []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" envconfig:"ASKD_CORS_ORIGINS"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level" envconfig:"ASKD_LOG_LEVEL"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:             ":8080",
		Backend:          BackendLlama,
		ModelID:          "qwen2.5-0.5b-instruct-q4_k_m",
		CacheDir:         "~/.cache/askd",
		FetchConcurrency: 4,
		FetchRetries:     3,
		OpenAIBaseURL:    "http://127.0.0.1:8081/v1",
		TokenCeiling:     400,
		WordsPerToken:    0.75,
		MaxNewTokens:     150,
		Temperature:      0.7,
		MinResponseLen:   10,
		MaxBodyBytes:     1 << 20,
		LogLevel:         "info",
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, errors.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "parse %s", filepath.Base(path))
	}
	return cfg, nil
}

// FromEnv overlays ASKD_* environment variables onto cfg. Unset variables
// leave fields untouched.
func FromEnv(cfg *Config) error {
	if err := envconfig.Process("", cfg); err != nil {
		return errors.Wrap(err, "environment")
	}
	return nil
}

// Merge returns base with every non-zero field of over applied.
func Merge(base, over Config) Config {
	out := base
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setStr(&out.Addr, over.Addr)
	setStr(&out.Backend, over.Backend)
	setStr(&out.ModelID, over.ModelID)
	setStr(&out.CatalogPath, over.CatalogPath)
	setStr(&out.ModelsDir, over.ModelsDir)
	setStr(&out.CacheDir, over.CacheDir)
	setInt(&out.ContextSize, over.ContextSize)
	setInt(&out.Threads, over.Threads)
	setInt(&out.FetchConcurrency, over.FetchConcurrency)
	setInt(&out.FetchRetries, over.FetchRetries)
	setStr(&out.OpenAIBaseURL, over.OpenAIBaseURL)
	setStr(&out.OpenAIAPIKey, over.OpenAIAPIKey)
	setInt(&out.TokenCeiling, over.TokenCeiling)
	if over.WordsPerToken != 0 {
		out.WordsPerToken = over.WordsPerToken
	}
	setInt(&out.MaxNewTokens, over.MaxNewTokens)
	if over.Temperature != 0 {
		out.Temperature = over.Temperature
	}
	setInt(&out.MinResponseLen, over.MinResponseLen)
	setStr(&out.ProfilePath, over.ProfilePath)
	setInt(&out.ChatTimeoutSeconds, over.ChatTimeoutSeconds)
	if over.MaxBodyBytes != 0 {
		out.MaxBodyBytes = over.MaxBodyBytes
	}
	if len(over.CORSOrigins) > 0 {
		out.CORSOrigins = append([]string(nil), over.CORSOrigins...)
	}
	setStr(&out.LogLevel, over.LogLevel)
	return out
}

// Resolve builds the effective configuration: defaults, then the file at
// path (if any), then the environment.
func Resolve(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = Merge(cfg, fileCfg)
	}
	if err := FromEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLlama, BackendOpenAI:
	default:
		return errors.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendLlama, BackendOpenAI)
	}
	if strings.TrimSpace(c.ModelID) == "" {
		return errors.New("model is required")
	}
	if c.WordsPerToken < 0 || c.TokenCeiling < 0 || c.MaxNewTokens < 0 || c.MinResponseLen < 0 {
		return errors.New("prompt limits must not be negative")
	}
	return nil
}
