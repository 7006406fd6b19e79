// Package config provides the configuration schema, loader, and provider
// factory for the Didaxa tutoring engine.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/didaxa/didaxa/internal/assign"
	"github.com/didaxa/didaxa/internal/conversation"
	"github.com/didaxa/didaxa/internal/segment"
	"github.com/didaxa/didaxa/internal/session"
)

// LogLevel controls log verbosity for the Didaxa server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps [time.Duration] with YAML decoding from strings such as
// "30s" or "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns d as a [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for Didaxa. It is typically
// loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Assignment   AssignmentConfig   `yaml:"assignment"`
	Dialogue     DialogueConfig     `yaml:"dialogue"`
	Session      SessionConfig      `yaml:"session"`
	Store        StoreConfig        `yaml:"store"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for the
// generator and the embedder.
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	Embeddings ProviderEntry `yaml:"embeddings"`
}

// ProviderEntry is the common configuration block shared by both provider
// kinds.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. Leave empty to
	// use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`
}

// SegmentationConfig tunes the document segmentation pipeline. Zero values
// fall back to the segment package defaults.
type SegmentationConfig struct {
	// SimilarityThreshold is the minimum centroid cosine similarity for a
	// paragraph to join the current group, in [0, 1].
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// MinGroupSize is the smallest paragraph group kept as its own unit.
	MinGroupSize int `yaml:"min_group_size"`

	// MaxGroupSize caps paragraphs per unit.
	MaxGroupSize int `yaml:"max_group_size"`

	// MinParagraphLen drops paragraphs shorter than this many characters.
	MinParagraphLen int `yaml:"min_paragraph_len"`
}

// AssignmentConfig selects the role assignment strategy.
type AssignmentConfig struct {
	// Mode is "greedy" or "balanced". Empty defaults to balanced.
	Mode assign.Mode `yaml:"mode"`
}

// DialogueConfig tunes per-session dialogue behavior.
type DialogueConfig struct {
	// GenerateTimeout bounds each generator call. Zero defaults to 30s.
	GenerateTimeout Duration `yaml:"generate_timeout"`

	// ContextWindow is the number of recent turns in each prompt. Zero
	// defaults to 10.
	ContextWindow int `yaml:"context_window"`
}

// SessionConfig tunes the session registry.
type SessionConfig struct {
	// IdleTimeout evicts sessions with no activity for this long. Zero
	// defaults to 30m.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// SweepInterval is how often the idle sweep runs. Zero defaults to 5m.
	SweepInterval Duration `yaml:"sweep_interval"`
}

// StoreConfig selects session persistence.
type StoreConfig struct {
	// PostgresDSN enables the PostgreSQL store when non-empty; otherwise the
	// in-memory store is used.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions must match the embedding model's output dimension.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// Default values applied by [ApplyDefaults].
const (
	DefaultListenAddr          = ":8080"
	DefaultEmbeddingDimensions = 1536
	DefaultSweepInterval       = 5 * time.Minute
)

// DefaultConfig returns a [Config] with every default applied and no
// providers or store configured.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Segmentation.SimilarityThreshold == 0 {
		cfg.Segmentation.SimilarityThreshold = segment.DefaultSimilarityThreshold
	}
	if cfg.Segmentation.MinGroupSize == 0 {
		cfg.Segmentation.MinGroupSize = segment.DefaultMinGroupSize
	}
	if cfg.Segmentation.MaxGroupSize == 0 {
		cfg.Segmentation.MaxGroupSize = segment.DefaultMaxGroupSize
	}
	if cfg.Segmentation.MinParagraphLen == 0 {
		cfg.Segmentation.MinParagraphLen = segment.DefaultMinParagraphLen
	}
	if cfg.Assignment.Mode == "" {
		cfg.Assignment.Mode = assign.ModeBalanced
	}
	if cfg.Dialogue.GenerateTimeout == 0 {
		cfg.Dialogue.GenerateTimeout = Duration(conversation.DefaultGenerateTimeout)
	}
	if cfg.Dialogue.ContextWindow == 0 {
		cfg.Dialogue.ContextWindow = conversation.DefaultContextWindow
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = Duration(session.DefaultIdleTimeout)
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = Duration(DefaultSweepInterval)
	}
	if cfg.Store.EmbeddingDimensions == 0 {
		cfg.Store.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
}
