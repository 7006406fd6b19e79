// Package mock provides a test double for the llm.Generator interface.
//
// Script the reply through the Response/Err fields, or supply a GenerateFunc
// for per-call behavior (useful for simulating slow generations that must be
// cancelled, or distinct replies per role).
package mock

import (
	"context"
	"sync"

	"github.com/didaxa/didaxa/pkg/provider/llm"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the request passed to Generate.
	Req llm.Request
}

// Generator is a mock implementation of llm.Generator.
type Generator struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// GenerateFunc, when non-nil, handles each call. It takes precedence
	// over Response and Err.
	GenerateFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// Response is returned by Generate when GenerateFunc is nil. A nil
	// Response yields an empty reply.
	Response *llm.Response

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// --- Call records (read after test) ---

	// GenerateCalls records every call to Generate in order.
	GenerateCalls []GenerateCall
}

// Generate records the call and returns the scripted or derived response.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	g.GenerateCalls = append(g.GenerateCalls, GenerateCall{Ctx: ctx, Req: req})
	fn := g.GenerateFunc
	resp, err := g.Response, g.Err
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &llm.Response{}, nil
	}
	return resp, nil
}

// ModelID returns ModelIDValue.
func (g *Generator) ModelID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ModelIDValue
}

// CallCount returns the number of Generate invocations so far. Thread-safe.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.GenerateCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GenerateCalls = nil
}

// Ensure Generator implements llm.Generator at compile time.
var _ llm.Generator = (*Generator)(nil)
