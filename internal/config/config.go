// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, documented name mapping)
//  2. Config file (obelisk.yaml in the working directory or ~/.obelisk/)
//  3. Default values
//
// Main configuration categories:
//   - Vault: corpus root directory and chunking parameters
//   - Storage: PostgreSQL/pgvector connection, collection name, embedding dimension
//   - Provider: active model provider, fallback chain, per-provider settings
//   - Generation: default model, temperature, max tokens, timeout, retries
//
// The Config object is constructed once at process start and passed by
// injection into each component constructor. There is no process-wide
// mutable configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Provider kind identifiers used in Config.Provider and Config.FallbackProviders.
const (
	ProviderRouter = "router"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config stores application configuration.
// Sensitive fields (API keys, passwords) must never be logged; see String().
type Config struct {
	// Vault (corpus) configuration
	VaultDir     string `mapstructure:"vault_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`

	// Vector storage (PostgreSQL + pgvector)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`
	Collection       string `mapstructure:"collection"`
	EmbeddingDim     int    `mapstructure:"embedding_dim"`

	// Provider selection
	Provider              string   `mapstructure:"provider"`
	EnableFallback        bool     `mapstructure:"enable_fallback"`
	FallbackProviders     []string `mapstructure:"fallback_providers"`
	ForceRouterEmbeddings bool     `mapstructure:"force_router_embeddings"`

	// Router provider (LiteLLM-style unified endpoint)
	RouterBaseURL string `mapstructure:"router_base_url"`
	RouterAPIKey  string `mapstructure:"router_api_key"` // SENSITIVE

	// Ollama provider (local inference daemon)
	OllamaURL            string `mapstructure:"ollama_url"`
	OllamaModel          string `mapstructure:"ollama_model"`
	OllamaEmbeddingModel string `mapstructure:"ollama_embedding_model"`

	// OpenAI provider (direct cloud API)
	OpenAIAPIKey         string `mapstructure:"openai_api_key"` // SENSITIVE
	OpenAIModel          string `mapstructure:"openai_model"`
	OpenAIEmbeddingModel string `mapstructure:"openai_embedding_model"`

	// Provider-agnostic model preferences
	LLMModel       string `mapstructure:"llm_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`

	// Retrieval
	RetrieveTopK int `mapstructure:"retrieve_top_k"`

	// Generation defaults
	Temperature    float64 `mapstructure:"model_temperature"`
	MaxTokens      int     `mapstructure:"model_max_tokens"`
	RequestTimeout int     `mapstructure:"model_timeout"` // seconds
	RetryAttempts  int     `mapstructure:"model_retry_attempts"`

	// API surface
	APIHost string `mapstructure:"api_host"`
	APIPort int    `mapstructure:"api_port"`

	// Observability (optional OTLP trace endpoint; empty disables tracing)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("obelisk")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".obelisk"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults", "config_name", "obelisk.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		boolKeywordHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Vault defaults
	v.SetDefault("vault_dir", "./vault")
	v.SetDefault("chunk_size", 2500)
	v.SetDefault("chunk_overlap", 500)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "obelisk")
	v.SetDefault("postgres_password", "obelisk_dev_password")
	v.SetDefault("postgres_db_name", "obelisk")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("collection", "obelisk_rag")
	v.SetDefault("embedding_dim", 3072)

	// Provider defaults
	v.SetDefault("provider", ProviderRouter)
	v.SetDefault("enable_fallback", true)
	v.SetDefault("fallback_providers", []string{ProviderOllama, ProviderOpenAI})
	v.SetDefault("force_router_embeddings", true)

	v.SetDefault("router_base_url", "http://localhost:4000")
	v.SetDefault("ollama_url", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3")
	v.SetDefault("ollama_embedding_model", "mxbai-embed-large")
	v.SetDefault("openai_model", "gpt-4o")
	v.SetDefault("openai_embedding_model", "text-embedding-3-large")

	// Model preferences (provider-agnostic)
	v.SetDefault("llm_model", "gpt-4o")
	v.SetDefault("embedding_model", "text-embedding-3-large")

	// Retrieval and generation
	v.SetDefault("retrieve_top_k", 5)
	v.SetDefault("model_temperature", 0.7)
	v.SetDefault("model_max_tokens", 0)
	v.SetDefault("model_timeout", 30)
	v.SetDefault("model_retry_attempts", 3)

	// API defaults
	v.SetDefault("api_host", "0.0.0.0")
	v.SetDefault("api_port", 8000)

	// Observability
	v.SetDefault("otlp_endpoint", "")
}

// envMapping is the documented environment-variable name mapping.
// Values are coerced to the type of the corresponding default.
var envMapping = map[string]string{
	"vault_dir":     "VAULT_DIR",
	"chunk_size":    "CHUNK_SIZE",
	"chunk_overlap": "CHUNK_OVERLAP",

	"postgres_host":     "POSTGRES_HOST",
	"postgres_port":     "POSTGRES_PORT",
	"postgres_user":     "POSTGRES_USER",
	"postgres_password": "POSTGRES_PASSWORD",
	"postgres_db_name":  "POSTGRES_DB_NAME",
	"postgres_ssl_mode": "POSTGRES_SSL_MODE",
	"collection":        "COLLECTION",
	"embedding_dim":     "EMBEDDING_DIM",

	"provider":                "MODEL_PROVIDER",
	"enable_fallback":         "ENABLE_FALLBACK",
	"fallback_providers":      "FALLBACK_PROVIDERS",
	"force_router_embeddings": "FORCE_ROUTER_EMBEDDINGS",

	"router_base_url": "ROUTER_BASE_URL",
	"router_api_key":  "ROUTER_API_KEY",

	"ollama_url":             "OLLAMA_URL",
	"ollama_model":           "OLLAMA_MODEL",
	"ollama_embedding_model": "OLLAMA_EMBEDDING_MODEL",

	"openai_api_key":         "OPENAI_API_KEY",
	"openai_model":           "OPENAI_MODEL",
	"openai_embedding_model": "OPENAI_EMBEDDING_MODEL",

	"llm_model":       "LLM_MODEL",
	"embedding_model": "EMBEDDING_MODEL",

	"retrieve_top_k":       "RETRIEVE_TOP_K",
	"model_temperature":    "MODEL_TEMPERATURE",
	"model_max_tokens":     "MODEL_MAX_TOKENS",
	"model_timeout":        "MODEL_TIMEOUT",
	"model_retry_attempts": "MODEL_RETRY_ATTEMPTS",

	"api_host": "API_HOST",
	"api_port": "API_PORT",

	"otlp_endpoint": "OTLP_ENDPOINT",
}

// bindEnvVariables binds each configuration key to its environment variable.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded bindings cannot fail; a panic here is a bug, not a runtime error.
	for key, envVar := range envMapping {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}
}

// boolKeywordHookFunc decodes the documented boolean keywords
// (true/yes/1/on vs false/no/0/off, case-insensitive) into bool fields.
func boolKeywordHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1", "on":
			return true, nil
		case "false", "no", "0", "off":
			return false, nil
		default:
			return nil, fmt.Errorf("invalid boolean value %q", s)
		}
	}
}

// DatabaseURL returns the postgres:// connection URL for the storage backend.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// APIAddr returns the host:port listen address for the HTTP surface.
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "********"

// String implements Stringer with sensitive fields masked, so that a Config
// can be logged without leaking credentials.
func (c Config) String() string {
	masked := c
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = maskedValue
	}
	if masked.RouterAPIKey != "" {
		masked.RouterAPIKey = maskedValue
	}
	if masked.OpenAIAPIKey != "" {
		masked.OpenAIAPIKey = maskedValue
	}
	// Local type strips the Stringer method so %+v formats the fields.
	type plain Config
	return fmt.Sprintf("%+v", plain(masked))
}
