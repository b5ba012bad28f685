// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.edumentor/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model, embedder and embedding dimensions
//   - Content: subjects, chunking parameters, search depth
//   - Storage: data directory, SQLite database, profiles file (see storage.go)
//   - Server: listen address, CORS, rate limiting, upload limits
//   - Telemetry: OTLP trace export endpoint
//
// Security: sensitive data (API keys) is never logged; the config directory
// uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbeddingDims indicates the embedding dimensions are out of range.
	ErrInvalidEmbeddingDims = errors.New("invalid embedding dimensions")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrNoSubjects indicates the subject list is empty.
	ErrNoSubjects = errors.New("no subjects configured")

	// ErrInvalidSubject indicates a subject name is unusable.
	ErrInvalidSubject = errors.New("invalid subject name")

	// ErrInvalidChunking indicates the chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidTopK indicates the search depth is out of range.
	ErrInvalidTopK = errors.New("invalid search top-k")

	// ErrInvalidDataDir indicates the data directory is unusable.
	ErrInvalidDataDir = errors.New("invalid data directory")

	// ErrInvalidUploadLimit indicates the upload size limit is out of range.
	ErrInvalidUploadLimit = errors.New("invalid upload limit")

	// ErrInvalidRateLimit indicates the rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidCORSOrigin indicates a CORS origin is not a valid http(s) URL.
	ErrInvalidCORSOrigin = errors.New("invalid CORS origin")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultEmbedderModel is the default Google AI embedder.
	// text-embedding-004 outputs 768 dimensions, matching the default
	// embedding_dims used for the sqlite-vec tables.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultEmbeddingDims matches DefaultEmbedderModel's output width.
	DefaultEmbeddingDims = 768

	// DefaultChunkSize and DefaultChunkOverlap control how extracted
	// document text is split before embedding.
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50

	// DefaultTopK is the number of chunks retrieved per search.
	DefaultTopK = 3
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`       // "googleai" (default), "gemini", "ollama", "openai"
	ModelName     string  `mapstructure:"model_name" json:"model_name"`   // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o-mini"
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDims int     `mapstructure:"embedding_dims" json:"embedding_dims"` // must match the embedder's output width

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// OpenAI configuration (only used when provider is "openai")
	OpenAIAPIKey string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON

	// Content configuration
	Subjects     []string `mapstructure:"subjects" json:"subjects"` // lowercase letters only; names become table suffixes
	ChunkSize    int      `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int      `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	SearchTopK   int      `mapstructure:"search_top_k" json:"search_top_k"`

	// Storage configuration (see storage.go for path helpers)
	DataDir      string `mapstructure:"data_dir" json:"data_dir"`
	DatabaseFile string `mapstructure:"database_file" json:"database_file"` // relative names resolve under DataDir
	ProfilesFile string `mapstructure:"profiles_file" json:"profiles_file"`

	// Server configuration (serve mode only)
	ServerAddr     string   `mapstructure:"server_addr" json:"server_addr"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`
	Dev            bool     `mapstructure:"dev" json:"dev"`

	// Session configuration
	SessionMaxIdleMinutes int `mapstructure:"session_max_idle_minutes" json:"session_max_idle_minutes"`

	// Telemetry configuration; empty endpoint disables trace export
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Configuration directory: ~/.edumentor/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".edumentor")

	// Ensure directory exists (0750 keeps uploads and the database private)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGoogleAI)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dims", DefaultEmbeddingDims)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Content defaults
	viper.SetDefault("subjects", []string{"maths", "science", "evs"})
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("search_top_k", DefaultTopK)

	// Storage defaults
	viper.SetDefault("data_dir", "~/.edumentor")
	viper.SetDefault("database_file", "edumentor.db")
	viper.SetDefault("profiles_file", "profiles.json")

	// Server defaults
	viper.SetDefault("server_addr", "127.0.0.1:8000")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 30)
	viper.SetDefault("max_upload_bytes", 16<<20)
	viper.SetDefault("dev", false)

	// Session defaults
	viper.SetDefault("session_max_idle_minutes", 60)

	// Telemetry defaults (empty endpoint = tracing disabled)
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("service_name", "edumentor")
	viper.SetDefault("environment", "dev")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
//
// API keys:
//  1. GEMINI_API_KEY - read directly by the Genkit googlegenai plugin (not
//     via Viper); presence is checked in cfg.Validate() for that provider
//  2. OPENAI_API_KEY - read here and passed to the compat_oai plugin
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "EDUMENTOR_PROVIDER")
	mustBind("model_name", "EDUMENTOR_MODEL_NAME")
	mustBind("embedder_model", "EDUMENTOR_EMBEDDER_MODEL")
	mustBind("embedding_dims", "EDUMENTOR_EMBEDDING_DIMS")
	mustBind("ollama_host", "EDUMENTOR_OLLAMA_HOST")
	mustBind("openai_api_key", "OPENAI_API_KEY")

	mustBind("data_dir", "EDUMENTOR_DATA_DIR")

	mustBind("server_addr", "EDUMENTOR_SERVER_ADDR")
	mustBind("cors_origins", "EDUMENTOR_CORS_ORIGINS")
	mustBind("trust_proxy", "EDUMENTOR_TRUST_PROXY")
	mustBind("dev", "EDUMENTOR_DEV")

	mustBind("otlp_endpoint", "EDUMENTOR_OTLP_ENDPOINT")

	mustBind("log_level", "EDUMENTOR_LOG_LEVEL")
	mustBind("log_json", "EDUMENTOR_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data.
// Using ████████ (full-width blocks U+2588) to avoid substring matching:
// "****" leaks passwords containing "*", "[REDACTED]" leaks passwords
// containing "A", "D", "E", etc.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: secrets <=8 chars are fully masked to prevent substring attacks.
//
// THREAT MODEL: this defends against accidental logging of real secrets.
// It is not cryptographically secure; if logs are compromised, rotate keys.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - OpenAIAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o-mini".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	return c.qualify(c.ModelName)
}

// FullEmbedderName returns the provider-qualified embedder name for Genkit.
func (c *Config) FullEmbedderName() string {
	return c.qualify(c.EmbedderModel)
}

func (c *Config) qualify(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + name
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + name
	default: // "googleai" and the legacy "gemini" alias
		return ProviderGoogleAI + "/" + name
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
