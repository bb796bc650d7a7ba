package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat models
// which are NOT suitable for embedding. If EMBEDDING_MODEL matches any of
// these, a warning is emitted so the operator knows they may have
// misconfigured the pipeline.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"solar",
	"vicuna",
	"falcon",
	"yi-",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate is a pre-flight check of the embeddings configuration. It returns
// an error when the configuration is clearly broken (openai backend with no
// API key), and logs a warning when EMBEDDING_MODEL looks like a chat model
// rather than an embedding model.
//
// Call it before constructing the embedder or the Qdrant store so operators
// get a clear error at startup rather than a cryptic failure during the
// first embed call.
func Validate(log *slog.Logger) error {
	backend := ResolveBackend()

	switch backend {
	case "openai":
		apiKey := os.Getenv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return fmt.Errorf("embedder: openai embeddings selected but no API key found — set OPENAI_API_KEY or EMBEDDING_API_KEY")
		}

	case "local":
		if os.Getenv("EMBEDDING_PROVIDER") == "" {
			log.Warn("embedder: no OpenAI API key found — falling back to the local embeddings backend",
				slog.String("backend", backend),
				slog.String("hint", "set EMBEDDING_PROVIDER=local (or openai) to be explicit"),
			)
		}

	default:
		return fmt.Errorf("embedder: unknown backend %q — valid values: auto, openai, local", backend)
	}

	// Warn if EMBEDDING_MODEL looks like a chat model.
	model := os.Getenv("EMBEDDING_MODEL")
	if model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model — "+
			"this will likely produce poor or broken embeddings",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. text-embedding-3-small, nomic-embed-text"),
		)
	}

	return nil
}
