package config

const (
	defaultStorageProvider = "sqlite"
	defaultSQLitePath      = "mediguide.db"

	defaultAPIListen       = ":8000"
	defaultClientAPITarget = "http://localhost:8000"
	defaultClientTopK      = 3

	defaultDataDir = "data"

	// The reference corpus was split at 500 characters with a 50 character
	// overlap; these remain the defaults.
	defaultChunkSize    = 500
	defaultChunkOverlap = 50

	defaultVectorProvider = "sqlite"
	defaultVectorPath     = "vectorstore.db"
	defaultCollection     = "mediguide"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	// Groq serves an OpenAI-compatible API; these match the reference
	// decoding configuration.
	defaultLLMBaseURL     = "https://api.groq.com/openai/v1"
	defaultLLMModel       = "llama-3.1-8b-instant"
	defaultLLMTemperature = 0.7
	defaultLLMMaxTokens   = 512

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "mediguide.answers"

	defaultTokenTTLMinutes = 60
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider:   defaultStorageProvider,
			SQLitePath: defaultSQLitePath,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
			TopK:      defaultClientTopK,
		},
		Corpus: CorpusConfig{
			DataDir: defaultDataDir,
		},
		Chunking: ChunkingConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Path:       defaultVectorPath,
			Collection: defaultCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			BaseURL:     defaultLLMBaseURL,
			Model:       defaultLLMModel,
			Temperature: defaultLLMTemperature,
			MaxTokens:   defaultLLMMaxTokens,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Auth: AuthConfig{
			TokenTTLMinutes: defaultTokenTTLMinutes,
		},
	}
}
