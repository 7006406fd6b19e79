package config

import (
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/didaxa/didaxa/pkg/provider/embeddings"
	ollamaembed "github.com/didaxa/didaxa/pkg/provider/embeddings/ollama"
	oaembed "github.com/didaxa/didaxa/pkg/provider/embeddings/openai"
	"github.com/didaxa/didaxa/pkg/provider/llm"
	"github.com/didaxa/didaxa/pkg/provider/llm/anyllm"
	oaillm "github.com/didaxa/didaxa/pkg/provider/llm/openai"
)

// BuildGenerator constructs the text generator named in entry. The "openai"
// name uses the native SDK client; every other name goes through the any-llm
// gateway.
func BuildGenerator(entry ProviderEntry) (llm.Generator, error) {
	switch entry.Name {
	case "":
		return nil, fmt.Errorf("config: providers.llm.name is required")
	case "openai":
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	case "ollama", "llamacpp", "llamafile":
		// Local servers use BaseURL for the address, not an API key.
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)
	default:
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)
	}
}

// BuildEmbedder constructs the embeddings provider named in entry.
func BuildEmbedder(entry ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "":
		return nil, fmt.Errorf("config: providers.embeddings.name is required")
	case "openai":
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	case "ollama":
		return ollamaembed.New(entry.BaseURL, entry.Model)
	default:
		return nil, fmt.Errorf("config: unknown embeddings provider %q", entry.Name)
	}
}
