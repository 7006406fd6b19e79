package openai_test

import (
	"testing"

	"github.com/didaxa/didaxa/pkg/provider/llm/openai"
)

// TestNewEmptyAPIKey verifies that an empty API key is rejected.
func TestNewEmptyAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := openai.New("", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

// TestModelIDDefaults verifies the default model is applied when none is
// given and is otherwise passed through verbatim.
func TestModelIDDefaults(t *testing.T) {
	t.Parallel()

	g, err := openai.New("test-key", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.ModelID() != openai.DefaultModel {
		t.Errorf("ModelID() = %q, want default %q", g.ModelID(), openai.DefaultModel)
	}

	g, err = openai.New("test-key", "gpt-4o", openai.WithBaseURL("http://localhost:8080/v1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.ModelID() != "gpt-4o" {
		t.Errorf("ModelID() = %q, want gpt-4o", g.ModelID())
	}
}
