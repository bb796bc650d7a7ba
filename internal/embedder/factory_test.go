package embedder

import (
	"testing"
)

// clearEmbeddingEnv blanks every env var the factory consults so tests see
// only what they set themselves.
func clearEmbeddingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY",
		"EMBEDDING_ENDPOINT", "EMBEDDING_DIMENSIONS",
		"OPENAI_API_KEY", "OLLAMA_HOST",
	} {
		t.Setenv(key, "")
	}
}

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "explicit provider wins",
			env:  map[string]string{"EMBEDDING_PROVIDER": "local", "OPENAI_API_KEY": "sk-test"},
			want: "local",
		},
		{
			name: "auto prefers openai when key present",
			env:  map[string]string{"OPENAI_API_KEY": "sk-test"},
			want: "openai",
		},
		{
			name: "auto accepts dedicated embedding key",
			env:  map[string]string{"EMBEDDING_API_KEY": "sk-embed"},
			want: "openai",
		},
		{
			name: "auto falls back to local",
			env:  map[string]string{},
			want: "local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEmbeddingEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := ResolveBackend(); got != tt.want {
				t.Fatalf("ResolveBackend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultDimensions(t *testing.T) {
	clearEmbeddingEnv(t)

	if got := DefaultDimensions("openai"); got != 1536 {
		t.Fatalf("openai dimensions = %d, want 1536", got)
	}
	if got := DefaultDimensions("local"); got != 768 {
		t.Fatalf("local dimensions = %d, want 768", got)
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "3072")
	if got := DefaultDimensions("openai"); got != 3072 {
		t.Fatalf("EMBEDDING_DIMENSIONS override ignored, got %d", got)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("openai without key fails fast", func(t *testing.T) {
		clearEmbeddingEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "openai")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("expected error when no API key is configured")
		}
	})

	t.Run("openai with key succeeds", func(t *testing.T) {
		clearEmbeddingEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "openai")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv: %v", err)
		}
		if _, ok := emb.(*OpenAIEmbedder); !ok {
			t.Fatalf("expected *OpenAIEmbedder, got %T", emb)
		}
	})

	t.Run("local never needs credentials", func(t *testing.T) {
		clearEmbeddingEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "local")

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv: %v", err)
		}
		if _, ok := emb.(*OllamaEmbedder); !ok {
			t.Fatalf("expected *OllamaEmbedder, got %T", emb)
		}
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		clearEmbeddingEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "bedrock")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("expected error for unknown provider")
		}
	})
}
