package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/didaxa/didaxa/internal/role"
	"github.com/didaxa/didaxa/internal/segment"
)

// SchemaVersion is the current snapshot schema. Load rejects any other
// version with [ErrSchemaMismatch].
const SchemaVersion = 1

// snapshot is the on-disk shape of a serialized session.
type snapshot struct {
	SchemaVersion int                    `json:"schema_version"`
	SessionID     string                 `json:"session_id"`
	State         State                  `json:"state"`
	Context       Context                `json:"context"`
	Units         []segment.Unit         `json:"units"`
	Queues        map[string][]role.Name `json:"queues"`
}

// Save serializes the full session to a versioned JSON blob. Callable in any
// state.
func (m *Machine) Save() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := snapshot{
		SchemaVersion: SchemaVersion,
		SessionID:     m.convCtx.SessionID,
		State:         m.state,
		Context:       m.convCtx.clone(),
		Units:         m.units,
		Queues:        m.queues,
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("conversation: save session %s: %w", m.convCtx.SessionID, err)
	}
	return blob, nil
}

// Load restores a session from a blob produced by [Machine.Save]. Only an
// idle machine can load; on any failure the machine stays idle and untouched.
func (m *Machine) Load(blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("%w: load in state %s", ErrInvalidTransition, m.state)
	}
	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return fmt.Errorf("%w: malformed session blob: %v", ErrInputInvalid, err)
	}
	if snap.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: got version %d, want %d", ErrSchemaMismatch, snap.SchemaVersion, SchemaVersion)
	}
	if !snap.State.IsValid() {
		return fmt.Errorf("%w: unknown state %q", ErrInputInvalid, snap.State)
	}

	m.state = snap.State
	m.convCtx = snap.Context
	m.units = snap.Units
	m.queues = snap.Queues
	if m.convCtx.RoleUsageCount == nil {
		m.convCtx.RoleUsageCount = make(map[role.Name]int)
	}
	if m.convCtx.HysteresisUntil == nil {
		m.convCtx.HysteresisUntil = make(map[role.Name]int)
	}
	if m.convCtx.QueuePositions == nil {
		m.convCtx.QueuePositions = make(map[string]int)
	}
	m.log.Info("session restored",
		"session_id", m.convCtx.SessionID,
		"state", string(m.state),
		"turn", m.convCtx.TurnNumber)
	return nil
}
