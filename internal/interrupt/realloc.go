package interrupt

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/didaxa/didaxa/internal/role"
)

// ErrStabilityBlock is returned when a reallocation request falls inside the
// bounded-delay window of a previous reallocation. Soft: the queue is simply
// left unchanged.
var ErrStabilityBlock = errors.New("interrupt: reallocation blocked by bounded-delay window")

// Stability constants.
const (
	// BoundedDelayTurns freezes the queue for this many turns after a
	// reallocation.
	BoundedDelayTurns = 3

	// HysteresisWindowTurns pins a demoted role to the queue tail for this
	// many turns.
	HysteresisWindowTurns = 7

	// demotionThreshold is the position drop that triggers hysteresis.
	demotionThreshold = 2

	// alignWeight scales the intent-role alignment in the score.
	alignWeight = 5.0

	// usagePenalty is subtracted per prior use of a role.
	usagePenalty = 0.2
)

// alignment is the intent-role alignment matrix. Roles absent from an
// intent's row align at 0.
var alignment = map[Intent]map[role.Name]float64{
	IntentClarification: {
		role.Explainer:            0.9,
		role.MisconceptionSpotter: 0.8,
		role.Summarizer:           0.3,
	},
	IntentObjection: {
		role.Challenger:           0.9,
		role.MisconceptionSpotter: 0.7,
		role.Explainer:            0.3,
	},
	IntentExampleRequest: {
		role.ExampleGenerator: 0.95,
		role.Explainer:        0.3,
	},
	IntentDepthRequest: {
		role.Challenger: 0.9,
		role.Explainer:  0.4,
	},
	IntentSummaryRequest: {
		role.Summarizer: 0.95,
		role.Explainer:  0.2,
	},
	IntentTopicPivot: {
		role.Summarizer: 0.6,
		role.Explainer:  0.4,
	},
}

// Input is a read-only snapshot of everything reallocation depends on.
type Input struct {
	// Queue is the current role queue for the active unit.
	Queue []role.Name

	// Intent is the classified interruption intent.
	Intent Intent

	// Usage counts how often each role has spoken this session.
	Usage map[role.Name]int

	// HysteresisUntil maps demoted roles to the turn their cooldown ends.
	HysteresisUntil map[role.Name]int

	// Turn is the current turn number.
	Turn int

	// LastReallocationTurn is the turn of the previous reallocation, or -1
	// when none has happened yet.
	LastReallocationTurn int
}

// Result is a reallocated queue plus the hysteresis entries it created.
type Result struct {
	// Queue is the new role ordering.
	Queue []role.Name

	// NewHysteresis maps each role demoted by at least two positions to the
	// turn its cooldown ends.
	NewHysteresis map[role.Name]int
}

// Reallocate reorders the queue for the given intent. Pure: the input is not
// mutated, so it is safe to call from any scheduler context.
//
// Scoring per role is base_weight + 5.0 x alignment - 0.2 x usage. A role
// still inside its hysteresis window scores negative infinity, pinning it to
// the tail. Ties break lexicographically on role name. Requests arriving
// within [BoundedDelayTurns] of the previous reallocation fail with
// [ErrStabilityBlock].
func Reallocate(in Input) (*Result, error) {
	if len(in.Queue) == 0 {
		return nil, fmt.Errorf("interrupt: reallocate: empty queue")
	}
	if in.LastReallocationTurn >= 0 && in.Turn-in.LastReallocationTurn < BoundedDelayTurns {
		return nil, fmt.Errorf("%w: turn %d, last reallocation at turn %d",
			ErrStabilityBlock, in.Turn, in.LastReallocationTurn)
	}

	scores := make(map[role.Name]float64, len(in.Queue))
	for _, name := range in.Queue {
		if in.HysteresisUntil[name] > in.Turn {
			scores[name] = math.Inf(-1)
			continue
		}
		r, ok := role.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("interrupt: reallocate: unknown role %q", name)
		}
		scores[name] = r.BaseWeight +
			alignWeight*alignment[in.Intent][name] -
			usagePenalty*float64(in.Usage[name])
	}

	newQueue := make([]role.Name, len(in.Queue))
	copy(newQueue, in.Queue)
	sort.SliceStable(newQueue, func(i, j int) bool {
		si, sj := scores[newQueue[i]], scores[newQueue[j]]
		if si != sj {
			return si > sj
		}
		return newQueue[i] < newQueue[j]
	})

	oldPos := make(map[role.Name]int, len(in.Queue))
	for i, name := range in.Queue {
		oldPos[name] = i
	}
	newHysteresis := make(map[role.Name]int)
	for i, name := range newQueue {
		if i-oldPos[name] >= demotionThreshold {
			newHysteresis[name] = in.Turn + HysteresisWindowTurns
		}
	}

	return &Result{Queue: newQueue, NewHysteresis: newHysteresis}, nil
}
