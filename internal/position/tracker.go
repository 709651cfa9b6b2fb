package position

import "github.com/lumova/learnflow/internal/flow"

// State is the tracker's lifecycle phase.
type State int

const (
	// StateLoading means Init has not run yet; steps or the saved
	// position are still being fetched.
	StateLoading State = iota

	// StateInProgress means the learner is on a step within the flow.
	StateInProgress

	// StateComplete is terminal: every step has been finished. It is a
	// distinct state rather than an out-of-range index so UI code never
	// has to special-case index == length.
	StateComplete
)

// Tracker holds the learner's position within one flattened flow. It is
// driven by discrete events (Init once content and the saved position are
// both known, Advance on each completion) and never by render timing.
//
// Tracker is not safe for concurrent use; the owning session serializes
// access.
type Tracker struct {
	state   State
	steps   []flow.Step
	current int

	// completed records step keys finished this session, for completion
	// affordances only. Authoritative progress lives server-side.
	completed map[string]bool

	initialized bool
}

// NewTracker returns a tracker in StateLoading.
func NewTracker() *Tracker {
	return &Tracker{completed: make(map[string]bool)}
}

// Init chooses the starting position from the flattened steps and the saved
// index (nil when the server has none). It runs exactly once: later calls
// are no-ops so a background content refresh can never silently move the
// learner.
//
// Selection order:
//  1. saved index >= len(steps): the flow is complete (covers stale indices
//     left over from content that has since shrunk — the clamp is silent).
//  2. saved index in range: resume exactly there.
//  3. no saved index: first step not marked complete by the server, or 0.
func (t *Tracker) Init(steps []flow.Step, saved *int) {
	if t.initialized {
		return
	}
	t.initialized = true
	t.steps = steps

	switch {
	case saved != nil && *saved >= len(steps):
		t.state = StateComplete
		t.current = len(steps)
	case saved != nil && *saved >= 0:
		t.state = StateInProgress
		t.current = *saved
	default:
		t.state = StateInProgress
		t.current = flow.FirstIncomplete(steps)
	}

	if len(steps) == 0 {
		t.state = StateComplete
		t.current = 0
	}
}

// Initialized reports whether Init has run.
func (t *Tracker) Initialized() bool {
	return t.initialized
}

// State returns the current lifecycle phase.
func (t *Tracker) State() State {
	return t.state
}

// Current returns the index of the active step. Only meaningful while
// StateInProgress.
func (t *Tracker) Current() int {
	return t.current
}

// CurrentStep returns the active step, or nil when loading or complete.
func (t *Tracker) CurrentStep() *flow.Step {
	if t.state != StateInProgress || t.current >= len(t.steps) {
		return nil
	}
	return &t.steps[t.current]
}

// Len returns the number of steps in the flow.
func (t *Tracker) Len() int {
	return len(t.steps)
}

// Advance records completion of the current step and moves forward by
// exactly one. Completing the last step transitions to StateComplete.
// Steps are never skipped programmatically.
func (t *Tracker) Advance() {
	if t.state != StateInProgress {
		return
	}
	if step := t.CurrentStep(); step != nil {
		t.completed[step.Key] = true
	}
	t.current++
	if t.current >= len(t.steps) {
		t.current = len(t.steps)
		t.state = StateComplete
	}
}

// SaveIndex is the value persisted to the server: the current index while
// in progress, or the flow length once complete.
func (t *Tracker) SaveIndex() int {
	if t.state == StateComplete {
		return len(t.steps)
	}
	return t.current
}

// MarkCompleted flags a step key as done this session without advancing.
func (t *Tracker) MarkCompleted(key string) {
	t.completed[key] = true
}

// Completed reports whether a step key was finished this session.
func (t *Tracker) Completed(key string) bool {
	return t.completed[key]
}

// Progress returns the fraction of steps completed, in [0, 1].
func (t *Tracker) Progress() float64 {
	if len(t.steps) == 0 {
		return 1
	}
	if t.state == StateComplete {
		return 1
	}
	return float64(t.current) / float64(len(t.steps))
}
