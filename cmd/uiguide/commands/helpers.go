package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/uiguide/uiguide-go/internal/embedder"
	"github.com/uiguide/uiguide-go/internal/rag"
	"github.com/uiguide/uiguide-go/internal/server"
)

// defaultCollection is the Qdrant collection holding the policy index.
const defaultCollection = "UI_Policies"

// ExitError wraps an error with a process exit code so that main can map
// pipeline failures to distinct exit statuses for scripting.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// getEnvOrDefault returns the environment variable value or a fallback.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the environment variable parsed as int, or a fallback.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// buildStore connects to Qdrant using QDRANT_* environment variables and
// ensures the policy collection exists with the dimensionality of the
// configured embedding backend.
func buildStore(ctx context.Context) (*rag.QdrantStore, error) {
	// DefaultDimensions honours EMBEDDING_DIMENSIONS when set.
	dims := embedder.DefaultDimensions(embedder.ResolveBackend())

	cfg := &rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", defaultCollection),
		VectorSize: uint64(dims),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	}

	store, err := rag.NewQdrantStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("commands: failed to connect to Qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return store, nil
}

// buildRetriever wires the embedding backend and the vector store into an
// MMR retriever (top 4 of 20 candidates, half relevance half diversity).
func buildRetriever(store *rag.QdrantStore) (*rag.MMRRetriever, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}
	return rag.NewMMRRetriever(emb, store, 4, 20, 0.5)
}

// buildPingers assembles the readiness probes for the serve command: the
// Qdrant connection, the index itself, and the Ollama daemon when it is the
// active embedding or model backend.
func buildPingers(store *rag.QdrantStore) []server.Pinger {
	pingers := []server.Pinger{
		server.NewQdrantPinger(store.Client()),
		server.NewIndexPinger(store),
	}

	if embedder.ResolveBackend() == "ollama" || getEnvOrDefault("MODEL_PROVIDER", "auto") == "ollama" {
		pingers = append(pingers, server.NewOllamaPinger(getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")))
	}

	return pingers
}
