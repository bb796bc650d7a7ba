package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/uiguide/uiguide-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultLocalModel  = "nomic-embed-text"

	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
	// defaultLocalDimensions is the output dimension of nomic-embed-text.
	// Other local models may differ; override with EMBEDDING_DIMENSIONS.
	defaultLocalDimensions = 768
)

// DefaultDimensions returns the default embedding vector size for the given
// backend name. Callers that need to pre-configure the vector store (Qdrant
// collection creation) should use this rather than hardcoding a value.
// EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "local":
		return defaultLocalDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// ResolveBackend returns the effective embeddings backend: "openai" or
// "local". The "auto" default picks openai when an OpenAI API key is present
// and falls back to the local model otherwise.
func ResolveBackend() string {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "auto")
	if backend != "auto" {
		return backend
	}
	if os.Getenv("OPENAI_API_KEY") != "" || os.Getenv("EMBEDDING_API_KEY") != "" {
		return "openai"
	}
	return "local"
}

// NewFromEnv constructs a rag.Embedder from environment variables.
//
//	EMBEDDING_PROVIDER   = auto | openai | local       (default: auto)
//	EMBEDDING_MODEL      overrides the backend's default model
//	EMBEDDING_API_KEY    overrides OPENAI_API_KEY for the openai backend
//	EMBEDDING_ENDPOINT   API base URL (openai) or Ollama host (local)
//	EMBEDDING_DIMENSIONS overrides the default vector size
//
// Construction fails fast when the selected backend's required credential or
// endpoint is absent, so a misconfigured ingest run stops before embedding.
func NewFromEnv() (rag.Embedder, error) {
	switch backend := ResolveBackend(); backend {
	case "openai":
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai embeddings require OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    getEnv("EMBEDDING_ENDPOINT"),
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions),
		}), nil

	case "local":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: getEnvOrDefault("EMBEDDING_MODEL", defaultLocalModel),
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid values: auto, openai, local)", backend)
	}
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
