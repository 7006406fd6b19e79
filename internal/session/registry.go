// Package session manages the set of live dialogue sessions: uuid id
// minting, per-id machine lookup, last-activity tracking with an idle sweep,
// and store-backed save and restore.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/didaxa/didaxa/internal/conversation"
	"github.com/didaxa/didaxa/internal/observe"
	"github.com/didaxa/didaxa/pkg/provider/llm"
	"github.com/didaxa/didaxa/pkg/store"
)

// ErrSessionNotFound is returned when a session id is not registered.
var ErrSessionNotFound = errors.New("session: not found")

// DefaultIdleTimeout is how long a session may go without activity before
// the sweep evicts it.
const DefaultIdleTimeout = 30 * time.Minute

// saveAllConcurrency bounds parallel store writes in SaveAll.
const saveAllConcurrency = 8

type entry struct {
	machine      *conversation.Machine
	lastActivity time.Time
}

// Registry tracks live sessions. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry

	store       store.SessionStore
	gen         llm.Generator
	machineOpts []conversation.Option

	idleTimeout time.Duration
	now         func() time.Time

	log     *slog.Logger
	metrics *observe.Metrics
}

// Option configures a [Registry].
type Option func(*Registry)

// WithIdleTimeout overrides [DefaultIdleTimeout].
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithMachineOptions passes opts to every machine the registry creates.
func WithMachineOptions(opts ...conversation.Option) Option {
	return func(r *Registry) { r.machineOpts = opts }
}

// NewRegistry creates an empty registry backed by st. gen voices the bot
// turns of every session the registry creates.
func NewRegistry(st store.SessionStore, gen llm.Generator, opts ...Option) *Registry {
	r := &Registry{
		sessions:    make(map[string]*entry),
		store:       st,
		gen:         gen,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		log:         slog.Default(),
		metrics:     observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create mints a new session id, builds its machine, and registers it.
func (r *Registry) Create(ctx context.Context) (string, *conversation.Machine, error) {
	id := uuid.NewString()
	m := conversation.New(id, r.gen, r.machineOpts...)
	if err := m.Initialize(); err != nil {
		return "", nil, fmt.Errorf("session: create: %w", err)
	}

	r.mu.Lock()
	r.sessions[id] = &entry{machine: m, lastActivity: r.now()}
	r.mu.Unlock()

	r.metrics.ActiveSessions.Add(ctx, 1)
	r.log.Info("session created", "session_id", id)
	return id, m, nil
}

// Get returns the machine for id and refreshes its activity timestamp.
func (r *Registry) Get(id string) (*conversation.Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.lastActivity = r.now()
	return e.machine, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the registered session ids in unspecified order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Save snapshots the session and writes it to the store.
func (r *Registry) Save(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	blob, err := e.machine.Save()
	if err != nil {
		return fmt.Errorf("session: save %s: %w", id, err)
	}
	if err := r.store.Put(ctx, id, blob); err != nil {
		return fmt.Errorf("session: save %s: %w", id, err)
	}
	return nil
}

// SaveAll snapshots every live session to the store with bounded
// concurrency. The first error is returned after all saves finish.
func (r *Registry) SaveAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(saveAllConcurrency)
	for _, id := range r.IDs() {
		g.Go(func() error {
			return r.Save(ctx, id)
		})
	}
	return g.Wait()
}

// Restore loads a session snapshot from the store, rebuilds its machine, and
// registers it. The restored machine uses the registry's generator.
func (r *Registry) Restore(ctx context.Context, id string) (*conversation.Machine, error) {
	blob, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("session: restore %s: %w", id, err)
	}
	m := conversation.New(id, r.gen, r.machineOpts...)
	if err := m.Load(blob); err != nil {
		return nil, fmt.Errorf("session: restore %s: %w", id, err)
	}

	r.mu.Lock()
	_, existed := r.sessions[id]
	r.sessions[id] = &entry{machine: m, lastActivity: r.now()}
	r.mu.Unlock()

	if !existed {
		r.metrics.ActiveSessions.Add(ctx, 1)
	}
	r.log.Info("session restored", "session_id", id)
	return m, nil
}

// Remove saves the session to the store and drops it from the registry.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if err := r.Save(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	r.metrics.ActiveSessions.Add(ctx, -1)
	r.log.Info("session removed", "session_id", id)
	return nil
}

// SweepIdle evicts every session whose last activity is at least the idle
// timeout ago, saving each to the store first. Returns the evicted ids.
func (r *Registry) SweepIdle(ctx context.Context) ([]string, error) {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []string
	for id, e := range r.sessions {
		if !e.lastActivity.After(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	var errs []error
	var evicted []string
	for _, id := range idle {
		if err := r.Remove(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		evicted = append(evicted, id)
	}
	if len(evicted) > 0 {
		r.log.Info("idle sessions evicted", "count", len(evicted))
	}
	return evicted, errors.Join(errs...)
}

// Run sweeps idle sessions on the given interval until ctx is cancelled,
// then saves all remaining sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return r.SaveAll(context.WithoutCancel(ctx))
		case <-ticker.C:
			if _, err := r.SweepIdle(ctx); err != nil {
				r.log.Error("idle sweep failed", "error", err)
			}
		}
	}
}
