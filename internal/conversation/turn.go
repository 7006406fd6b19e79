package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/didaxa/didaxa/internal/observe"
	"github.com/didaxa/didaxa/internal/role"
	"github.com/didaxa/didaxa/pkg/provider/llm"
)

// GenerateBotTurn produces the next role-voiced turn for the active unit.
//
// The speaking role is the next unconsumed slot of the unit's queue. The
// prompt is the role's system prompt, the recent dialogue history, and the
// unit text. The generator runs outside the machine's lock; when the user
// interrupts while the call is in flight, the response is discarded and an
// empty turn is returned without error. Generator failures are recorded as
// error events, the in-flight flags are reverted, and no turn is appended.
//
// When ctx carries no deadline, the machine's generate timeout applies.
func (m *Machine) GenerateBotTurn(ctx context.Context) (string, error) {
	ctx, span := observe.StartSpan(ctx, "conversation.GenerateBotTurn")
	defer span.End()

	m.mu.Lock()
	if m.state != StateEngaged {
		state := m.state
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, EventBotResponseStart, state)
	}
	if m.gen == nil {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: no generator configured", ErrPreconditionFailed)
	}
	unit, ok := m.currentUnit()
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: no active unit", ErrNotFound)
	}
	queue := m.queues[unit.ID]
	if len(queue) == 0 {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: unit %s has no role queue", ErrNotFound, unit.ID)
	}
	pos := m.convCtx.QueuePositions[unit.ID]
	roleName := queue[pos%len(queue)]
	r, ok := role.Lookup(roleName)
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: role %q not in catalog", ErrNotFound, roleName)
	}

	prompt := m.buildPrompt(r, unit.Text)
	m.convCtx.BotIsGenerating = true
	m.convCtx.AwaitingUserInput = false
	interruptionsBefore := m.convCtx.InterruptionCount

	genCtx := ctx
	var timeoutCancel context.CancelFunc
	if _, hasDeadline := genCtx.Deadline(); !hasDeadline {
		genCtx, timeoutCancel = context.WithTimeout(genCtx, m.timeout)
	}
	genCtx, cancel := context.WithCancel(genCtx)
	m.cancelGen = cancel
	m.mu.Unlock()

	start := time.Now()
	resp, err := m.gen.Generate(genCtx, llm.Request{
		Prompt:      prompt,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	cancel()
	if timeoutCancel != nil {
		timeoutCancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelGen = nil

	if m.convCtx.InterruptionCount != interruptionsBefore {
		m.convCtx.BotIsGenerating = false
		m.log.Warn("stale_generator_response",
			"session_id", m.convCtx.SessionID,
			"unit_id", unit.ID,
			"role", string(roleName))
		return "", nil
	}

	if err != nil {
		m.convCtx.BotIsGenerating = false
		m.convCtx.append(EventError, map[string]string{
			"cause": err.Error(),
			"role":  string(roleName),
		})
		kind := "error"
		typed := ErrGenerator
		if errors.Is(err, context.DeadlineExceeded) || genCtx.Err() == context.DeadlineExceeded {
			kind = "timeout"
			typed = ErrGeneratorTimeout
		}
		m.metrics.RecordGeneratorError(context.Background(), kind)
		m.log.Error("generator failed",
			"session_id", m.convCtx.SessionID,
			"unit_id", unit.ID,
			"role", string(roleName),
			"error", err)
		return "", fmt.Errorf("%w: %v", typed, err)
	}

	m.commitBotTurn(roleName, resp.Text)
	m.metrics.RecordGeneration(context.Background(), string(roleName), time.Since(start).Seconds())
	m.log.Info("bot turn generated",
		"session_id", m.convCtx.SessionID,
		"unit_id", unit.ID,
		"role", string(roleName),
		"turn", m.convCtx.TurnNumber,
		"tokens", resp.Usage.TotalTokens)
	return resp.Text, nil
}

// buildPrompt assembles the full generator prompt: the role's system prompt,
// the last contextWindow dialogue turns, and the active unit's text. Callers
// must hold m.mu.
func (m *Machine) buildPrompt(r role.Role, unitText string) string {
	var b strings.Builder
	b.WriteString(r.SystemPrompt)
	b.WriteString("\n\n")
	lines := make([]string, 0, m.contextWindow)
	for _, ev := range m.recentTurns() {
		lines = append(lines, "["+m.turnLabel(ev)+"]: "+ev.Payload["text"])
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nCurrent unit:\n")
	b.WriteString(unitText)
	return b.String()
}

// recentTurns returns the last contextWindow dialogue-turn events from the
// history, oldest first. Non-turn events (state markers, errors) are skipped.
func (m *Machine) recentTurns() []HistoryEvent {
	var turns []HistoryEvent
	for _, ev := range m.convCtx.History {
		switch ev.Kind {
		case EventUserMessage, EventUserInterruptMessage, EventBotTurn:
			turns = append(turns, ev)
		}
	}
	if len(turns) > m.contextWindow {
		turns = turns[len(turns)-m.contextWindow:]
	}
	return turns
}

// turnLabel returns the speaker label for a dialogue-turn history event.
func (m *Machine) turnLabel(ev HistoryEvent) string {
	if ev.Kind == EventBotTurn {
		return ev.Payload["role"]
	}
	return "user"
}
