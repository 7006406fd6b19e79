// Package conversation implements the dialogue session state machine that
// orchestrates role-voiced tutoring turns over a segmented document.
//
// # Architecture
//
// A [Machine] owns one session: its lifecycle [State], the mutable [Context]
// (indices, flags, history, usage counters), the document's units, and the
// per-unit role queues produced by the assignment engine. Every verb is a
// guarded event: the transition table in state.go decides whether the event
// is accepted in the current state, and the verb's body applies the entry
// actions atomically under the machine's lock.
//
// The interruption path is the one place where state and data change
// together: only a user interrupt click records the interrupted unit index
// and bumps the interruption counter; the follow-up message is classified and
// may reorder the active unit's queue through the reallocator. Generator
// turns run outside the lock and re-validate against an interruption-count
// snapshot before committing, so a response that raced with an interrupt is
// discarded rather than appended.
//
// Sessions serialize to a versioned JSON blob (persist.go) and restore only
// into an idle machine.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/didaxa/didaxa/internal/assign"
	"github.com/didaxa/didaxa/internal/interrupt"
	"github.com/didaxa/didaxa/internal/observe"
	"github.com/didaxa/didaxa/internal/role"
	"github.com/didaxa/didaxa/internal/segment"
	"github.com/didaxa/didaxa/pkg/provider/llm"
)

const (
	// DefaultGenerateTimeout bounds a generator call when the caller's
	// context carries no deadline of its own.
	DefaultGenerateTimeout = 30 * time.Second

	// DefaultContextWindow is the number of recent dialogue turns included
	// in each generator prompt.
	DefaultContextWindow = 10
)

// Machine is the per-session dialogue state machine. Safe for concurrent use;
// all state is guarded by one mutex, released only around generator calls.
type Machine struct {
	mu sync.Mutex

	state   State
	convCtx Context

	units  []segment.Unit
	queues map[string][]role.Name

	gen       llm.Generator
	cancelGen context.CancelFunc

	timeout       time.Duration
	contextWindow int

	log     *slog.Logger
	metrics *observe.Metrics
}

// Option configures a [Machine].
type Option func(*Machine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Machine) { m.metrics = met }
}

// WithGenerateTimeout overrides [DefaultGenerateTimeout].
func WithGenerateTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// WithContextWindow overrides [DefaultContextWindow].
func WithContextWindow(n int) Option {
	return func(m *Machine) { m.contextWindow = n }
}

// New creates an idle machine for the given session. gen voices all bot
// turns and may be nil for machines that only segment and assign.
func New(sessionID string, gen llm.Generator, opts ...Option) *Machine {
	m := &Machine{
		state:         StateIdle,
		convCtx:       newContext(sessionID),
		gen:           gen,
		timeout:       DefaultGenerateTimeout,
		contextWindow: DefaultContextWindow,
		log:           slog.Default(),
		metrics:       observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// can reports whether ev is accepted in the current state, without firing
// it. Callers must hold m.mu.
func (m *Machine) can(ev Event) error {
	if _, ok := next(m.state, ev); !ok {
		return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, m.state)
	}
	return nil
}

// fire validates ev against the transition table and applies the target
// state. Callers must hold m.mu.
func (m *Machine) fire(ev Event) error {
	target, ok := next(m.state, ev)
	if !ok {
		return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, m.state)
	}
	if target != m.state {
		m.log.Debug("state transition",
			"session_id", m.convCtx.SessionID,
			"event", string(ev),
			"from", string(m.state),
			"to", string(target))
	}
	m.state = target
	return nil
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Context returns a deep copy of the session context.
func (m *Machine) Context() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.convCtx.clone()
}

// Initialize validates the freshly constructed session. The machine must be
// idle and carry a non-empty session id.
func (m *Machine) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.convCtx.SessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrInputInvalid)
	}
	return m.fire(EventInitialize)
}

// LoadDocument installs the segmented document. Requires at least one unit.
func (m *Machine) LoadDocument(units []segment.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.can(EventDocumentLoaded); err != nil {
		return err
	}
	if len(units) == 0 {
		return fmt.Errorf("%w: document produced no units", ErrPreconditionFailed)
	}
	if err := m.fire(EventDocumentLoaded); err != nil {
		return err
	}
	m.units = units
	m.convCtx.TotalUnits = len(units)
	m.log.Info("document loaded",
		"session_id", m.convCtx.SessionID,
		"total_units", len(units))
	return nil
}

// AttachAssignment installs the per-unit role queues. Every loaded unit must
// have a queue.
func (m *Machine) AttachAssignment(a *assign.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.can(EventRolesAssigned); err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: nil assignment", ErrInputInvalid)
	}
	queues := a.Queues()
	for _, u := range m.units {
		if len(queues[u.ID]) == 0 {
			return fmt.Errorf("%w: unit %s has no role queue", ErrPreconditionFailed, u.ID)
		}
	}
	if err := m.fire(EventRolesAssigned); err != nil {
		return err
	}
	m.queues = queues
	return nil
}

// StartDialogue begins the dialogue at unit 0. Requires an attached
// assignment.
func (m *Machine) StartDialogue() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.can(EventStartDialogue); err != nil {
		return err
	}
	if m.queues == nil {
		return fmt.Errorf("%w: no role assignment attached", ErrPreconditionFailed)
	}
	if err := m.fire(EventStartDialogue); err != nil {
		return err
	}
	m.convCtx.CurrentUnitIndex = 0
	m.convCtx.AwaitingUserInput = false
	m.log.Info("dialogue started", "session_id", m.convCtx.SessionID)
	return nil
}

// StartBotResponse marks a bot response as in flight without going through
// [Machine.GenerateBotTurn]. Used by transports that stream externally
// produced turns.
func (m *Machine) StartBotResponse() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fire(EventBotResponseStart); err != nil {
		return err
	}
	m.convCtx.BotIsGenerating = true
	m.convCtx.AwaitingUserInput = false
	return nil
}

// FinishBotResponse commits an externally produced bot turn. Calling it when
// no response is in flight is a no-op, so transports can retry delivery
// safely.
func (m *Machine) FinishBotResponse(roleName role.Name, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.convCtx.BotIsGenerating {
		return nil
	}
	if err := m.fire(EventBotResponseEnd); err != nil {
		return err
	}
	m.commitBotTurn(roleName, text)
	return nil
}

// commitBotTurn appends a completed generator turn and advances the turn
// bookkeeping. Callers must hold m.mu.
func (m *Machine) commitBotTurn(roleName role.Name, text string) {
	m.convCtx.BotIsGenerating = false
	m.convCtx.AwaitingUserInput = true
	m.convCtx.TurnNumber++
	m.convCtx.append(EventBotTurn, map[string]string{
		"role": string(roleName),
		"text": text,
	})
	m.convCtx.RoleUsageCount[roleName]++
	if u, ok := m.currentUnit(); ok {
		m.convCtx.QueuePositions[u.ID]++
	}
}

// ProcessUserMessage records a regular user message.
func (m *Machine) ProcessUserMessage(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.can(EventUserMessage); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty user message", ErrInputInvalid)
	}
	if err := m.fire(EventUserMessage); err != nil {
		return err
	}
	m.convCtx.TurnNumber++
	m.convCtx.append(EventUserMessage, map[string]string{"text": text})
	m.convCtx.AwaitingUserInput = false
	return nil
}

// UserClicksInterrupt handles the interrupt control. The first click in an
// engaged session transitions to interrupted, records the interrupted unit
// index, bumps the interruption counter, and cancels any in-flight generator
// call. A repeat click while already interrupted succeeds without any of
// those effects.
func (m *Machine) UserClicksInterrupt() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateInterrupted {
		return "already interrupted", nil
	}
	if err := m.fire(EventUserInterrupt); err != nil {
		return "", err
	}
	m.convCtx.InterruptedAtIndex = m.convCtx.CurrentUnitIndex
	m.convCtx.InterruptionCount++
	m.convCtx.append(EventUserInterrupt, map[string]string{
		"unit_index": strconv.Itoa(m.convCtx.InterruptedAtIndex),
	})
	if m.cancelGen != nil {
		m.cancelGen()
	}
	m.metrics.Interruptions.Add(context.Background(), 1)
	m.log.Info("user interrupted",
		"session_id", m.convCtx.SessionID,
		"unit_index", m.convCtx.InterruptedAtIndex,
		"interruption_count", m.convCtx.InterruptionCount)
	return "interrupted", nil
}

// ProcessInterruptionMessage records and classifies the user's interruption
// message and, for actionable intents, reorders the active unit's role queue.
// The returned record captures the classification and the queue before and
// after. A reallocation denied by the bounded-delay window returns the record
// together with [interrupt.ErrStabilityBlock]; the queue is unchanged.
func (m *Machine) ProcessInterruptionMessage(text string) (*InterruptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.can(EventUserInterruptMessage); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty interruption message", ErrInputInvalid)
	}
	if err := m.fire(EventUserInterruptMessage); err != nil {
		return nil, err
	}
	m.convCtx.TurnNumber++
	m.convCtx.append(EventUserInterruptMessage, map[string]string{"text": text})

	cls := interrupt.Classify(text)
	unit, ok := m.currentUnit()
	if !ok {
		return nil, fmt.Errorf("%w: no active unit", ErrNotFound)
	}
	queue := m.queues[unit.ID]

	rec := &InterruptionRecord{
		Turn:        m.convCtx.TurnNumber,
		UnitIndex:   m.convCtx.CurrentUnitIndex,
		RawText:     text,
		Intent:      cls.Intent,
		Confidence:  cls.Confidence,
		QueueBefore: append([]role.Name(nil), queue...),
		QueueAfter:  append([]role.Name(nil), queue...),
	}

	if !cls.Actionable {
		m.convCtx.Interruptions = append(m.convCtx.Interruptions, *rec)
		m.log.Info("interruption not actionable",
			"session_id", m.convCtx.SessionID,
			"intent", string(cls.Intent),
			"confidence", cls.Confidence)
		return rec, nil
	}

	res, err := interrupt.Reallocate(interrupt.Input{
		Queue:                queue,
		Intent:               cls.Intent,
		Usage:                m.convCtx.RoleUsageCount,
		HysteresisUntil:      m.convCtx.HysteresisUntil,
		Turn:                 m.convCtx.TurnNumber,
		LastReallocationTurn: m.convCtx.LastReallocationTurn,
	})
	if err != nil {
		m.convCtx.Interruptions = append(m.convCtx.Interruptions, *rec)
		if errors.Is(err, interrupt.ErrStabilityBlock) {
			m.metrics.StabilityBlocks.Add(context.Background(), 1)
			m.log.Info("reallocation blocked",
				"session_id", m.convCtx.SessionID,
				"intent", string(cls.Intent),
				"turn", m.convCtx.TurnNumber)
		}
		return rec, err
	}

	m.queues[unit.ID] = res.Queue
	m.convCtx.QueuePositions[unit.ID] = 0
	for r, until := range res.NewHysteresis {
		m.convCtx.HysteresisUntil[r] = until
	}
	m.convCtx.LastReallocationTurn = m.convCtx.TurnNumber
	rec.QueueAfter = append([]role.Name(nil), res.Queue...)
	m.convCtx.Interruptions = append(m.convCtx.Interruptions, *rec)
	m.metrics.RecordReallocation(context.Background(), string(cls.Intent))
	m.log.Info("queue reallocated",
		"session_id", m.convCtx.SessionID,
		"unit_id", unit.ID,
		"intent", string(cls.Intent),
		"primary", string(res.Queue[0]))
	return rec, nil
}

// Resume returns from interrupted to engaged. With fromStart the dialogue
// rewinds to the unit that was active when the interruption happened;
// otherwise it continues at the current unit. Either way the pending
// interruption marker is cleared.
func (m *Machine) Resume(fromStart bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fire(EventResume); err != nil {
		return err
	}
	if fromStart && m.convCtx.InterruptedAtIndex >= 0 {
		m.convCtx.CurrentUnitIndex = m.convCtx.InterruptedAtIndex
	}
	m.convCtx.InterruptedAtIndex = -1
	m.log.Info("dialogue resumed",
		"session_id", m.convCtx.SessionID,
		"from_start", fromStart,
		"unit_index", m.convCtx.CurrentUnitIndex)
	return nil
}

// Pause suspends an engaged dialogue.
func (m *Machine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fire(EventPause)
}

// ResumeFromPause returns a paused dialogue to engaged.
func (m *Machine) ResumeFromPause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fire(EventResumeFromPause)
}

// AdvanceUnit moves to the next unit, or completes the session when the last
// unit is done. On completion the unit index stays at the final unit.
func (m *Machine) AdvanceUnit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.convCtx.CurrentUnitIndex+1 >= m.convCtx.TotalUnits {
		if err := m.fire(EventComplete); err != nil {
			return err
		}
		m.log.Info("dialogue completed",
			"session_id", m.convCtx.SessionID,
			"total_units", m.convCtx.TotalUnits,
			"turns", m.convCtx.TurnNumber)
		return nil
	}
	if err := m.fire(EventNextUnit); err != nil {
		return err
	}
	m.convCtx.CurrentUnitIndex++
	m.convCtx.AwaitingUserInput = false
	return nil
}

// Summary is a read-only snapshot of the session for status endpoints.
type Summary struct {
	SessionID          string      `json:"session_id"`
	State              State       `json:"state"`
	CurrentUnitIndex   int         `json:"current_unit_index"`
	TotalUnits         int         `json:"total_units"`
	TurnNumber         int         `json:"turn_number"`
	InterruptionCount  int         `json:"interruption_count"`
	InterruptedAtIndex int         `json:"interrupted_at_index"`
	HistoryLength      int         `json:"history_length"`
	BotIsGenerating    bool        `json:"bot_is_generating"`
	AwaitingUserInput  bool        `json:"awaiting_user_input"`
	CurrentQueue       []role.Name `json:"current_queue,omitempty"`
}

// Summary returns the current session snapshot.
func (m *Machine) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{
		SessionID:          m.convCtx.SessionID,
		State:              m.state,
		CurrentUnitIndex:   m.convCtx.CurrentUnitIndex,
		TotalUnits:         m.convCtx.TotalUnits,
		TurnNumber:         m.convCtx.TurnNumber,
		InterruptionCount:  m.convCtx.InterruptionCount,
		InterruptedAtIndex: m.convCtx.InterruptedAtIndex,
		HistoryLength:      len(m.convCtx.History),
		BotIsGenerating:    m.convCtx.BotIsGenerating,
		AwaitingUserInput:  m.convCtx.AwaitingUserInput,
	}
	if u, ok := m.currentUnit(); ok {
		s.CurrentQueue = append([]role.Name(nil), m.queues[u.ID]...)
	}
	return s
}

// currentUnit returns the active unit. Callers must hold m.mu.
func (m *Machine) currentUnit() (segment.Unit, bool) {
	i := m.convCtx.CurrentUnitIndex
	if i < 0 || i >= len(m.units) {
		return segment.Unit{}, false
	}
	return m.units[i], true
}
