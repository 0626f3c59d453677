package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent mediguide configuration stored as
// config.toml in the .mediguide/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Corpus      CorpusConfig      `toml:"corpus"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	Events      EventsConfig      `toml:"events"`
	Auth        AuthConfig        `toml:"auth"`
}

// StorageConfig holds conversation/user store settings.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
	TopK      uint   `toml:"top_k,omitempty"`
}

// CorpusConfig holds document-source settings for indexing.
type CorpusConfig struct {
	DataDir string `toml:"data_dir,omitempty"`
}

// ChunkingConfig holds text-splitting parameters for indexing.
type ChunkingConfig struct {
	Size    int `toml:"size,omitempty"`
	Overlap int `toml:"overlap,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Path       string `toml:"path,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// LLMConfig holds generative-model settings, including the ordered
// credential list (primary first, then fallback).
type LLMConfig struct {
	BaseURL        string  `toml:"base_url,omitempty"`
	Model          string  `toml:"model,omitempty"`
	Temperature    float64 `toml:"temperature,omitempty"`
	MaxTokens      int     `toml:"max_tokens,omitempty"`
	APIKey         string  `toml:"api_key,omitempty"`
	FallbackAPIKey string  `toml:"fallback_api_key,omitempty"`
}

// Credentials returns the ordered, non-empty credential list:
// primary key first, then the fallback.
func (c LLMConfig) Credentials() []string {
	var creds []string
	for _, key := range []string{c.APIKey, c.FallbackAPIKey} {
		if strings.TrimSpace(key) != "" {
			creds = append(creds, key)
		}
	}
	return creds
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// AuthConfig holds token-issuance settings for the chat service surface.
type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret,omitempty"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
// Credential-bearing keys (llm.api_key, auth.jwt_secret) are settable but
// redacted by the config list command.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.top_k": {
		get: func(c *Config) string {
			if c.Client.TopK == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.TopK), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil || n == 0 {
				return fmt.Errorf("client.top_k must be a positive integer, got %q", v)
			}
			c.Client.TopK = uint(n)
			return nil
		},
	},
	"corpus.data_dir": {
		get: func(c *Config) string { return c.Corpus.DataDir },
		set: func(c *Config, v string) error { c.Corpus.DataDir = v; return nil },
	},
	"chunking.size": {
		get: func(c *Config) string { return strconv.Itoa(c.Chunking.Size) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for chunking.size: %w", err)
			}
			c.Chunking.Size = n
			return nil
		},
	},
	"chunking.overlap": {
		get: func(c *Config) string { return strconv.Itoa(c.Chunking.Overlap) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for chunking.overlap: %w", err)
			}
			c.Chunking.Overlap = n
			return nil
		},
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.path": {
		get: func(c *Config) string { return c.VectorStore.Path },
		set: func(c *Config, v string) error { c.VectorStore.Path = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"llm.base_url": {
		get: func(c *Config) string { return c.LLM.BaseURL },
		set: func(c *Config, v string) error { c.LLM.BaseURL = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.temperature": {
		get: func(c *Config) string { return strconv.FormatFloat(c.LLM.Temperature, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for llm.temperature: %w", err)
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("llm.temperature must be in [0,1], got %v", f)
			}
			c.LLM.Temperature = f
			return nil
		},
	},
	"llm.max_tokens": {
		get: func(c *Config) string { return strconv.Itoa(c.LLM.MaxTokens) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for llm.max_tokens: %w", err)
			}
			c.LLM.MaxTokens = n
			return nil
		},
	},
	"llm.api_key": {
		get: func(c *Config) string { return c.LLM.APIKey },
		set: func(c *Config, v string) error { c.LLM.APIKey = v; return nil },
	},
	"llm.fallback_api_key": {
		get: func(c *Config) string { return c.LLM.FallbackAPIKey },
		set: func(c *Config, v string) error { c.LLM.FallbackAPIKey = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"auth.jwt_secret": {
		get: func(c *Config) string { return c.Auth.JWTSecret },
		set: func(c *Config, v string) error { c.Auth.JWTSecret = v; return nil },
	},
	"auth.token_ttl_minutes": {
		get: func(c *Config) string { return strconv.Itoa(c.Auth.TokenTTLMinutes) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for auth.token_ttl_minutes: %w", err)
			}
			c.Auth.TokenTTLMinutes = n
			return nil
		},
	},
}

// secretKeys lists config keys whose values must never be echoed back in
// full by the CLI.
var secretKeys = map[string]bool{
	"llm.api_key":          true,
	"llm.fallback_api_key": true,
	"embedding.api_key":    true,
	"auth.jwt_secret":      true,
}

// IsSecretKey reports whether the given key holds credential material.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
