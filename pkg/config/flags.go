package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --data-dir
// on both "mediguide index" and "mediguide serve").
type Flag struct {
	// Name is the long flag name (e.g. "data-dir").
	Name string

	// Shorthand is the one-letter short flag (e.g. "d"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "corpus.data_dir").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen       = "api-listen"
	FlagAPITarget       = "api-target"
	FlagDataDir         = "data-dir"
	FlagChunkSize       = "chunk-size"
	FlagChunkOverlap    = "chunk-overlap"
	FlagStorageProv     = "storage-provider"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStorePath = "vector-store-path"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagLLMModel        = "model"
	FlagTopK            = "top-k"
)

// Flags is the shared registry used by the mediguide commands. Commands pick
// the subset they need by registry key.
var Flags = FlagSet{
	FlagAPIListen: {
		Name: "api-listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagAPITarget: {
		Name: "api-target", ViperKey: "client.api_target",
		Description: "Base URL of a running mediguide API server",
	},
	FlagDataDir: {
		Name: "data-dir", Shorthand: "d", ViperKey: "corpus.data_dir",
		Description: "Directory holding the .txt/.md corpus documents",
	},
	FlagChunkSize: {
		Name: "chunk-size", ViperKey: "chunking.size",
		Description: "Chunk size in runes",
	},
	FlagChunkOverlap: {
		Name: "chunk-overlap", ViperKey: "chunking.overlap",
		Description: "Chunk overlap in runes",
	},
	FlagStorageProv: {
		Name: "storage-provider", ViperKey: "storage.provider",
		Description: "Conversation store backend (sqlite, postgres, inmemory)",
	},
	FlagSQLite: {
		Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path",
		Description: "Path to the conversation SQLite database",
	},
	FlagPostgresDSN: {
		Name: "postgres-dsn", ViperKey: "storage.postgres_dsn",
		Description: "PostgreSQL connection string for the conversation store",
	},
	FlagVectorStoreProv: {
		Name: "vector-store-provider", ViperKey: "vector_store.provider",
		Description: "Vector index backend (sqlite, qdrant)",
	},
	FlagVectorStorePath: {
		Name: "vector-store-path", ViperKey: "vector_store.path",
		Description: "Path to the vector index SQLite file",
	},
	FlagVectorStoreTgt: {
		Name: "vector-store-target", ViperKey: "vector_store.target",
		Description: "host:port of the qdrant vector store",
	},
	FlagCollection: {
		Name: "collection", ViperKey: "vector_store.collection",
		Description: "Vector store collection name",
	},
	FlagEmbeddingProv: {
		Name: "embedding-provider", ViperKey: "embedding.provider",
		Description: "Embedding backend (ollama, openai)",
	},
	FlagEmbeddingTgt: {
		Name: "embedding-target", ViperKey: "embedding.target",
		Description: "Base URL of the embedding provider",
	},
	FlagEmbeddingModel: {
		Name: "embedding-model", ViperKey: "embedding.model",
		Description: "Embedding model identifier",
	},
	FlagEmbeddingDims: {
		Name: "embedding-dimensions", ViperKey: "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	FlagLLMModel: {
		Name: "model", Shorthand: "m", ViperKey: "llm.model",
		Description: "Generative model identifier",
	},
	FlagTopK: {
		Name: "top-k", Shorthand: "k", ViperKey: "client.top_k",
		Description: "Number of chunks to retrieve per question",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
