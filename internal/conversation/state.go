package conversation

// State is one of the six lifecycle states of a dialogue session.
type State string

const (
	StateIdle        State = "idle"
	StateReady       State = "ready"
	StateEngaged     State = "engaged"
	StateInterrupted State = "interrupted"
	StatePaused      State = "paused"
	StateCompleted   State = "completed"
)

// IsValid reports whether s is one of the six lifecycle states.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateReady, StateEngaged, StateInterrupted, StatePaused, StateCompleted:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further events.
func (s State) Terminal() bool { return s == StateCompleted }

// Event is one of the inputs the machine reacts to.
type Event string

const (
	EventInitialize           Event = "INITIALIZE"
	EventDocumentLoaded       Event = "DOCUMENT_LOADED"
	EventRolesAssigned        Event = "ROLES_ASSIGNED"
	EventStartDialogue        Event = "START_DIALOGUE"
	EventBotResponseStart     Event = "BOT_RESPONSE_START"
	EventBotResponseEnd       Event = "BOT_RESPONSE_END"
	EventUserMessage          Event = "USER_MESSAGE"
	EventUserInterrupt        Event = "USER_INTERRUPT"
	EventUserInterruptMessage Event = "USER_INTERRUPT_MESSAGE"
	EventResume               Event = "RESUME"
	EventPause                Event = "PAUSE"
	EventResumeFromPause      Event = "RESUME_FROM_PAUSE"
	EventNextUnit             Event = "NEXT_UNIT"
	EventComplete             Event = "COMPLETE"
	EventError                Event = "ERROR"

	// EventBotTurn is a history-only marker for a completed generator turn.
	// It never drives a transition.
	EventBotTurn Event = "BOT_TURN"
)

// transitions is the complete state transition table. Events absent from a
// state's row are rejected. [EventError] is handled separately: it is accepted
// in every non-terminal state and leaves the state unchanged.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventInitialize:     StateIdle,
		EventDocumentLoaded: StateReady,
	},
	StateReady: {
		EventRolesAssigned: StateReady,
		EventStartDialogue: StateEngaged,
	},
	StateEngaged: {
		EventBotResponseStart: StateEngaged,
		EventBotResponseEnd:   StateEngaged,
		EventUserMessage:      StateEngaged,
		EventUserInterrupt:    StateInterrupted,
		EventNextUnit:         StateEngaged,
		EventComplete:         StateCompleted,
		EventPause:            StatePaused,
	},
	StateInterrupted: {
		EventUserInterruptMessage: StateInterrupted,
		EventBotResponseStart:     StateInterrupted,
		EventBotResponseEnd:       StateInterrupted,
		EventUserMessage:          StateInterrupted,
		EventResume:               StateEngaged,
	},
	StatePaused: {
		EventResumeFromPause: StateEngaged,
	},
}

// next returns the target state for (s, e), or false when the table rejects
// the event.
func next(s State, e Event) (State, bool) {
	if e == EventError {
		if s.Terminal() {
			return s, false
		}
		return s, true
	}
	target, ok := transitions[s][e]
	return target, ok
}
