package conversation

import (
	"time"

	"github.com/didaxa/didaxa/internal/interrupt"
	"github.com/didaxa/didaxa/internal/role"
)

// HistoryEvent is one entry in the session's append-only event log. Payload
// keys are event-specific; dialogue turns carry "text" and, for generator
// turns, "role".
type HistoryEvent struct {
	// Timestamp is the wall-clock time the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Kind is the event that produced this entry.
	Kind Event `json:"kind"`

	// Turn is the turn counter value when the entry was appended.
	Turn int `json:"turn"`

	// Payload carries event-specific detail.
	Payload map[string]string `json:"payload,omitempty"`
}

// InterruptionRecord is the audit entry for one interruption message,
// including the queue reshuffle it caused (or did not cause).
type InterruptionRecord struct {
	// Turn is the turn number the interruption message arrived at.
	Turn int `json:"turn"`

	// UnitIndex is the unit active when the user interrupted.
	UnitIndex int `json:"unit_index"`

	// RawText is the user's interruption message.
	RawText string `json:"raw_text"`

	// Intent is the classified interruption intent.
	Intent interrupt.Intent `json:"intent"`

	// Confidence is the classification confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// QueueBefore is the active unit's role queue before reallocation.
	QueueBefore []role.Name `json:"queue_before"`

	// QueueAfter is the queue after reallocation. Equal to QueueBefore when
	// the intent was not actionable or the reallocation was blocked.
	QueueAfter []role.Name `json:"queue_after"`
}

// Context is the mutable per-session conversation state. It is owned by a
// [Machine] and must only be touched under the machine's lock; the JSON tags
// exist for persistence snapshots.
type Context struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// CurrentUnitIndex is the zero-based index of the active unit.
	CurrentUnitIndex int `json:"current_unit_index"`

	// TotalUnits is the number of units in the loaded document.
	TotalUnits int `json:"total_units"`

	// InterruptedAtIndex is the unit index at the moment of the last
	// interruption, or -1 when no interruption is pending.
	InterruptedAtIndex int `json:"interrupted_at_index"`

	// InterruptionCount counts interruptions over the session lifetime. It
	// only ever grows; generator staleness checks compare snapshots of it.
	InterruptionCount int `json:"interruption_count"`

	// BotIsGenerating is true while a generator call is in flight.
	BotIsGenerating bool `json:"bot_is_generating"`

	// AwaitingUserInput is true when the last turn was a bot turn.
	AwaitingUserInput bool `json:"awaiting_user_input"`

	// TurnNumber counts dialogue turns (user messages, interruption
	// messages, and bot turns). Strictly monotone.
	TurnNumber int `json:"turn_number"`

	// LastReallocationTurn is the turn of the most recent queue
	// reallocation, or -1 when none has happened.
	LastReallocationTurn int `json:"last_reallocation_turn"`

	// History is the append-only event log.
	History []HistoryEvent `json:"history"`

	// Interruptions is the audit trail of interruption messages.
	Interruptions []InterruptionRecord `json:"interruptions"`

	// RoleUsageCount counts completed turns per role.
	RoleUsageCount map[role.Name]int `json:"role_usage_count"`

	// HysteresisUntil maps demoted roles to the turn their cooldown ends.
	HysteresisUntil map[role.Name]int `json:"hysteresis_until"`

	// QueuePositions tracks, per unit id, how many queue slots have been
	// consumed by generator turns.
	QueuePositions map[string]int `json:"queue_positions"`

	// Metadata carries free-form session annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// newContext returns a Context with all maps allocated and the sentinel
// indices set.
func newContext(sessionID string) Context {
	return Context{
		SessionID:            sessionID,
		InterruptedAtIndex:   -1,
		LastReallocationTurn: -1,
		RoleUsageCount:       make(map[role.Name]int),
		HysteresisUntil:      make(map[role.Name]int),
		QueuePositions:       make(map[string]int),
	}
}

// append records one history event at the current turn number.
func (c *Context) append(kind Event, payload map[string]string) {
	c.History = append(c.History, HistoryEvent{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Turn:      c.TurnNumber,
		Payload:   payload,
	})
}

// clone returns a deep copy of c, safe to hand out after the machine's lock
// is released.
func (c *Context) clone() Context {
	out := *c
	out.History = append([]HistoryEvent(nil), c.History...)
	out.Interruptions = append([]InterruptionRecord(nil), c.Interruptions...)
	out.RoleUsageCount = make(map[role.Name]int, len(c.RoleUsageCount))
	for k, v := range c.RoleUsageCount {
		out.RoleUsageCount[k] = v
	}
	out.HysteresisUntil = make(map[role.Name]int, len(c.HysteresisUntil))
	for k, v := range c.HysteresisUntil {
		out.HysteresisUntil[k] = v
	}
	out.QueuePositions = make(map[string]int, len(c.QueuePositions))
	for k, v := range c.QueuePositions {
		out.QueuePositions[k] = v
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
