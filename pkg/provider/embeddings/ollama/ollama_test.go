package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/didaxa/didaxa/pkg/provider/embeddings/ollama"
)

// embedServer starts a test HTTP server answering /api/embed with one canned
// vector per input text, cycling through responses.
func embedServer(t *testing.T, wantModel string, responses [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Model != wantModel {
			t.Errorf("model = %q, want %q", req.Model, wantModel)
		}

		out := make([][]float32, len(req.Input))
		for i := range req.Input {
			out[i] = responses[i%len(responses)]
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"model":      wantModel,
			"embeddings": out,
		}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

// TestNewEmptyModel verifies that an empty model name is rejected.
func TestNewEmptyModel(t *testing.T) {
	t.Parallel()

	if _, err := ollama.New("", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

// TestEmbed verifies a single-text embed round-trip against a test server.
func TestEmbed(t *testing.T) {
	t.Parallel()

	srv := embedServer(t, "all-minilm", [][]float32{{0.1, 0.2, 0.3}})
	defer srv.Close()

	p, err := ollama.New(srv.URL, "all-minilm")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vec, err := p.Embed(context.Background(), "semantic cohesion")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("Embed returned %d components, want 3", len(vec))
	}
}

// TestEmbedBatchOrder verifies that EmbedBatch returns one vector per input
// in input order.
func TestEmbedBatchOrder(t *testing.T) {
	t.Parallel()

	srv := embedServer(t, "nomic-embed-text", [][]float32{{1, 0}, {0, 1}})
	defer srv.Close()

	p, err := ollama.New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vecs, err := p.EmbedBatch(context.Background(), []string{"first paragraph", "second paragraph"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("EmbedBatch returned %d vectors, want 2", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("EmbedBatch order mismatch: %v", vecs)
	}
}

// TestEmbedBatchEmpty verifies no request is issued for an empty input slice.
func TestEmbedBatchEmpty(t *testing.T) {
	t.Parallel()

	p, err := ollama.New("http://127.0.0.1:1", "all-minilm")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vecs, err := p.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", vecs)
	}
}

// TestDimensions verifies the known-model table and the WithDimensions
// override.
func TestDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		opts  []ollama.Option
		want  int
	}{
		{model: "nomic-embed-text", want: 768},
		{model: "mxbai-embed-large", want: 1024},
		{model: "all-minilm", want: 384},
		{model: "custom-model", opts: []ollama.Option{ollama.WithDimensions(512)}, want: 512},
	}
	for _, tc := range tests {
		p, err := ollama.New("http://127.0.0.1:1", tc.model, tc.opts...)
		if err != nil {
			t.Fatalf("New(%s): %v", tc.model, err)
		}
		if got := p.Dimensions(); got != tc.want {
			t.Errorf("Dimensions(%s) = %d, want %d", tc.model, got, tc.want)
		}
	}
}

// TestServerError verifies that a non-200 response surfaces as an error.
func TestServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := ollama.New(srv.URL, "missing-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error from 404 response")
	}
}
