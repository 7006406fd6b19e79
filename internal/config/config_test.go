package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/didaxa/didaxa/internal/assign"
	"github.com/didaxa/didaxa/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: ollama
    base_url: http://localhost:11434
    model: llama3.1
  embeddings:
    name: ollama
    base_url: http://localhost:11434
    model: nomic-embed-text
segmentation:
  similarity_threshold: 0.8
  min_group_size: 2
  max_group_size: 4
  min_paragraph_len: 30
assignment:
  mode: greedy
dialogue:
  generate_timeout: 45s
  context_window: 6
session:
  idle_timeout: 15m
  sweep_interval: 1m
store:
  postgres_dsn: postgres://localhost/didaxa
  embedding_dimensions: 768
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Providers.LLM.Name != "ollama" || cfg.Providers.LLM.Model != "llama3.1" {
		t.Errorf("LLM provider = %+v", cfg.Providers.LLM)
	}
	if cfg.Segmentation.SimilarityThreshold != 0.8 {
		t.Errorf("SimilarityThreshold = %v, want 0.8", cfg.Segmentation.SimilarityThreshold)
	}
	if cfg.Assignment.Mode != assign.ModeGreedy {
		t.Errorf("Mode = %q, want greedy", cfg.Assignment.Mode)
	}
	if got := cfg.Dialogue.GenerateTimeout.Std(); got != 45*time.Second {
		t.Errorf("GenerateTimeout = %v, want 45s", got)
	}
	if cfg.Dialogue.ContextWindow != 6 {
		t.Errorf("ContextWindow = %d, want 6", cfg.Dialogue.ContextWindow)
	}
	if got := cfg.Session.IdleTimeout.Std(); got != 15*time.Minute {
		t.Errorf("IdleTimeout = %v, want 15m", got)
	}
	if cfg.Store.EmbeddingDimensions != 768 {
		t.Errorf("EmbeddingDimensions = %d, want 768", cfg.Store.EmbeddingDimensions)
	}
}

func TestLoadFromReaderDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("server: {}\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Assignment.Mode != assign.ModeBalanced {
		t.Errorf("Mode = %q, want balanced", cfg.Assignment.Mode)
	}
	if got := cfg.Dialogue.GenerateTimeout.Std(); got != 30*time.Second {
		t.Errorf("GenerateTimeout = %v, want 30s", got)
	}
	if cfg.Dialogue.ContextWindow != 10 {
		t.Errorf("ContextWindow = %d, want 10", cfg.Dialogue.ContextWindow)
	}
	if got := cfg.Session.IdleTimeout.Std(); got != 30*time.Minute {
		t.Errorf("IdleTimeout = %v, want 30m", got)
	}
	if got := cfg.Session.SweepInterval.Std(); got != config.DefaultSweepInterval {
		t.Errorf("SweepInterval = %v, want %v", got, config.DefaultSweepInterval)
	}
	if cfg.Segmentation.SimilarityThreshold != 0.75 {
		t.Errorf("SimilarityThreshold = %v, want 0.75", cfg.Segmentation.SimilarityThreshold)
	}
	if cfg.Store.EmbeddingDimensions != config.DefaultEmbeddingDimensions {
		t.Errorf("EmbeddingDimensions = %d, want %d", cfg.Store.EmbeddingDimensions, config.DefaultEmbeddingDimensions)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("sever:\n  listen_addr: \":8080\"\n"))
	if err == nil {
		t.Fatal("expected error for misspelled top-level key")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()
	bad := `
server:
  log_level: verbose
segmentation:
  similarity_threshold: 1.5
assignment:
  mode: roundrobin
`
	_, err := config.LoadFromReader(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "similarity_threshold", "mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestDurationRejectsMalformedValues(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("dialogue:\n  generate_timeout: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "soon") {
		t.Fatalf("err = %v, want duration parse error mentioning the value", err)
	}
}

func TestBuildGenerator(t *testing.T) {
	t.Parallel()

	if _, err := config.BuildGenerator(config.ProviderEntry{}); err == nil {
		t.Error("expected error for empty provider name")
	}
	if _, err := config.BuildGenerator(config.ProviderEntry{Name: "openai", Model: "gpt-4o-mini"}); err == nil {
		t.Error("expected error for openai without api key")
	}

	gen, err := config.BuildGenerator(config.ProviderEntry{
		Name:    "ollama",
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	})
	if err != nil {
		t.Fatalf("BuildGenerator ollama: %v", err)
	}
	if gen.ModelID() == "" {
		t.Error("generator has no model id")
	}
}

func TestBuildEmbedder(t *testing.T) {
	t.Parallel()

	if _, err := config.BuildEmbedder(config.ProviderEntry{}); err == nil {
		t.Error("expected error for empty provider name")
	}
	if _, err := config.BuildEmbedder(config.ProviderEntry{Name: "cohere", Model: "embed-v3"}); err == nil {
		t.Error("expected error for unknown embeddings provider")
	}

	emb, err := config.BuildEmbedder(config.ProviderEntry{
		Name:    "ollama",
		BaseURL: "http://localhost:11434",
		Model:   "nomic-embed-text",
	})
	if err != nil {
		t.Fatalf("BuildEmbedder ollama: %v", err)
	}
	if emb == nil {
		t.Fatal("nil embedder")
	}
}
