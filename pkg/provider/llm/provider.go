// Package llm defines the Generator interface for the text-generation
// backends that voice the tutoring dialogue.
//
// The conversation layer assembles the full prompt itself (role system
// prompt, recent history, current unit text) and submits it together with the
// role's temperature and token budget. Generators are plain request/response
// collaborators: no tool calling, no message threading, no state.
//
// Every call must be bounded by the deadline carried in ctx; the caller
// imposes a default of 30 seconds. Implementations must be safe for
// concurrent use and must return promptly when ctx is cancelled, since the
// caller cancels in-flight generations on user interruption.
package llm

import "context"

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and may be zero for backends that do not report
// usage.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// Request carries one fully assembled generation request.
type Request struct {
	// Prompt is the complete prompt text. The generator submits it
	// verbatim; no further templating happens below this interface.
	Prompt string

	// Temperature controls sampling randomness in [0.0, 1.0]. 0.0 requests
	// deterministic (greedy) decoding and is used for the Explainer,
	// Summarizer, and Misconception-Spotter roles.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the backend default.
	MaxTokens int
}

// Response is the backend's reply to a [Request].
type Response struct {
	// Text is the generated turn.
	Text string

	// Usage contains token accounting when the backend reports it.
	Usage Usage
}

// Generator is the abstraction over any text-generation backend.
//
// Implementations must be safe for concurrent use and must honour ctx
// cancellation as promptly as the underlying transport allows; cancellation
// is cooperative and best-effort.
type Generator interface {
	// Generate submits req and waits for the full response. Returns an
	// error when the request fails or ctx is cancelled or expires first.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the backend-specific model identifier, for logging.
	ModelID() string
}
