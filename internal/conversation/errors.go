package conversation

import "errors"

// Typed sentinels for every failure class the machine can surface. All verbs
// return these wrapped with detail; callers branch with errors.Is.
var (
	// ErrInvalidTransition marks an event rejected in the current state.
	ErrInvalidTransition = errors.New("conversation: event not accepted in current state")

	// ErrPreconditionFailed marks a verb whose state precondition held but
	// whose data precondition did not, such as starting a dialogue with no
	// units.
	ErrPreconditionFailed = errors.New("conversation: precondition failed")

	// ErrNotFound marks a lookup of an unknown unit id.
	ErrNotFound = errors.New("conversation: not found")

	// ErrGeneratorTimeout marks a generator call that breached its deadline.
	ErrGeneratorTimeout = errors.New("conversation: generator deadline exceeded")

	// ErrGenerator marks any other generator collaborator failure.
	ErrGenerator = errors.New("conversation: generator failure")

	// ErrSchemaMismatch marks a persisted blob with an unsupported schema
	// version.
	ErrSchemaMismatch = errors.New("conversation: unsupported schema version")

	// ErrInputInvalid marks empty text where non-empty is required.
	ErrInputInvalid = errors.New("conversation: invalid input")
)
