package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind. Used by
// [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, validates the result, and
// applies defaults. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("providers.embeddings is not configured; documents cannot be segmented")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; dialogue turns cannot be generated")
	}

	s := cfg.Segmentation
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("segmentation.similarity_threshold %.2f is out of range [0, 1]", s.SimilarityThreshold))
	}
	if s.MinGroupSize < 0 {
		errs = append(errs, fmt.Errorf("segmentation.min_group_size %d must not be negative", s.MinGroupSize))
	}
	if s.MaxGroupSize != 0 && s.MinGroupSize != 0 && s.MaxGroupSize < s.MinGroupSize {
		errs = append(errs, fmt.Errorf("segmentation.max_group_size %d is smaller than min_group_size %d", s.MaxGroupSize, s.MinGroupSize))
	}
	if s.MinParagraphLen < 0 {
		errs = append(errs, fmt.Errorf("segmentation.min_paragraph_len %d must not be negative", s.MinParagraphLen))
	}

	if cfg.Assignment.Mode != "" && !cfg.Assignment.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("assignment.mode %q is invalid; valid values: greedy, balanced", cfg.Assignment.Mode))
	}

	if cfg.Dialogue.GenerateTimeout < 0 {
		errs = append(errs, fmt.Errorf("dialogue.generate_timeout must not be negative"))
	}
	if cfg.Dialogue.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("dialogue.context_window must not be negative"))
	}
	if cfg.Session.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.idle_timeout must not be negative"))
	}

	if cfg.Store.PostgresDSN != "" && cfg.Store.EmbeddingDimensions <= 0 {
		slog.Warn("store.postgres_dsn is configured but store.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; sessions will only persist in memory")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
