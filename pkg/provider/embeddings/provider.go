// Package embeddings defines the Provider interface for text-embedding
// backends.
//
// The segmenter embeds document paragraphs through a Provider and groups them
// by cosine similarity; the store keeps unit centroid vectors for post-hoc
// similarity queries. The engine never inspects vector contents beyond pure
// cosine arithmetic, so any backend with a fixed output dimension works.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by one Provider instance share the dimensionality
// reported by Dimensions. Vectors from different instances must not be mixed
// in a similarity computation unless model and space are known to match.
// Determinism is not required by this contract, but reproducible segmentation
// depends on the backend returning identical vectors for identical text.
type Provider interface {
	// Embed computes the embedding vector for a single text. The text is
	// passed through verbatim; any model-specific prefixing is the caller's
	// concern.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for all texts in one backend call. The
	// result is ordered like texts. On error no partial result is returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces.
	Dimensions() int

	// ModelID returns the backend-specific model identifier, for logging
	// and for pinning a consistent model across a session.
	ModelID() string
}
