package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mediguideco/mediguide/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MEDIGUIDE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MEDIGUIDE_LLM_API_KEY, MEDIGUIDE_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MEDIGUIDE_LLM_API_KEY, MEDIGUIDE_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("MEDIGUIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper instance, so
// long-running commands (serve, index) see the full precedence chain
// including environment variables.
func FromViper(v *viper.Viper) *Config {
	cfg := NewDefaultConfig()

	cfg.Storage.Provider = v.GetString("storage.provider")
	cfg.Storage.SQLitePath = v.GetString("storage.sqlite_path")
	cfg.Storage.PostgresDSN = v.GetString("storage.postgres_dsn")

	cfg.API.Listen = v.GetString("api.listen")
	cfg.Client.APITarget = v.GetString("client.api_target")
	cfg.Client.TopK = v.GetUint("client.top_k")

	cfg.Corpus.DataDir = v.GetString("corpus.data_dir")

	cfg.Chunking.Size = v.GetInt("chunking.size")
	cfg.Chunking.Overlap = v.GetInt("chunking.overlap")

	cfg.VectorStore.Provider = v.GetString("vector_store.provider")
	cfg.VectorStore.Path = v.GetString("vector_store.path")
	cfg.VectorStore.Target = v.GetString("vector_store.target")
	cfg.VectorStore.Collection = v.GetString("vector_store.collection")

	cfg.Embedding.Provider = v.GetString("embedding.provider")
	cfg.Embedding.Target = v.GetString("embedding.target")
	cfg.Embedding.Model = v.GetString("embedding.model")
	cfg.Embedding.Dimensions = v.GetUint("embedding.dimensions")
	cfg.Embedding.APIKey = v.GetString("embedding.api_key")

	cfg.LLM.BaseURL = v.GetString("llm.base_url")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.Temperature = v.GetFloat64("llm.temperature")
	cfg.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	cfg.LLM.APIKey = v.GetString("llm.api_key")
	cfg.LLM.FallbackAPIKey = v.GetString("llm.fallback_api_key")

	cfg.Events.Provider = v.GetString("events.provider")
	cfg.Events.Brokers = v.GetString("events.brokers")
	cfg.Events.Topic = v.GetString("events.topic")

	cfg.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	cfg.Auth.TokenTTLMinutes = v.GetInt("auth.token_ttl_minutes")

	return cfg
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)
	v.SetDefault("client.top_k", d.Client.TopK)

	// Corpus
	v.SetDefault("corpus.data_dir", d.Corpus.DataDir)

	// Chunking
	v.SetDefault("chunking.size", d.Chunking.Size)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.path", d.VectorStore.Path)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// LLM
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.topic", d.Events.Topic)

	// Auth
	v.SetDefault("auth.token_ttl_minutes", d.Auth.TokenTTLMinutes)
}
