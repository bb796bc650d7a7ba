package provider

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg: Config{
				Backend: BackendOpenAI,
				OpenAI:  ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o-mini"},
			},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o-mini"}},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "openai/missing model",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-test"}},
			wantErr: "OPENAI_MODEL",
		},

		// ── Groq ──────────────────────────────────────────────────────────────
		{
			name: "groq/valid",
			cfg: Config{
				Backend: BackendGroq,
				Groq:    ProviderGroq{APIKey: "gsk-test", Model: "llama-3.3-70b-versatile"},
			},
		},
		{
			name:    "groq/missing api key",
			cfg:     Config{Backend: BackendGroq, Groq: ProviderGroq{Model: "llama-3.3-70b-versatile"}},
			wantErr: "GROQ_API_KEY",
		},
		{
			name:    "groq/missing model",
			cfg:     Config{Backend: BackendGroq, Groq: ProviderGroq{APIKey: "gsk-test"}},
			wantErr: "GROQ_MODEL",
		},

		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3"},
			},
		},
		{
			name:    "ollama/missing host",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Model: "llama3"}},
			wantErr: "OLLAMA_HOST",
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name: "gemini/valid",
			cfg: Config{
				Backend: BackendGemini,
				Gemini:  ProviderGemini{APIKey: "key", Model: "gemini-1.5-pro"},
			},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-1.5-pro"}},
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name:    "gemini/missing model",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "key"}},
			wantErr: "GEMINI_MODEL",
		},

		// ── Unknown ───────────────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: Backend("watsonx")},
			wantErr: "unknown backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Backend
	}{
		{
			name: "explicit provider wins",
			env:  map[string]string{"MODEL_PROVIDER": "gemini", "GROQ_API_KEY": "gsk"},
			want: BackendGemini,
		},
		{
			name: "auto prefers groq",
			env:  map[string]string{"GROQ_API_KEY": "gsk", "OPENAI_API_KEY": "sk"},
			want: BackendGroq,
		},
		{
			name: "auto falls back to openai",
			env:  map[string]string{"OPENAI_API_KEY": "sk"},
			want: BackendOpenAI,
		},
		{
			name: "auto defaults to ollama",
			env:  map[string]string{},
			want: BackendOllama,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"MODEL_PROVIDER", "GROQ_API_KEY", "OPENAI_API_KEY"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := ResolveBackend(); got != tt.want {
				t.Fatalf("ResolveBackend() = %q, want %q", got, tt.want)
			}
		})
	}
}
