package engine

import (
	"math"
	"time"

	"github.com/lumova/learnflow/internal/flow"
	"github.com/lumova/learnflow/internal/hearts"
	"github.com/lumova/learnflow/internal/position"
)

// View is the read model a host UI renders from. It is a pure projection of
// session state plus wall-clock time; nothing in it feeds back into the
// engine.
type View struct {
	CourseID  string
	StepIndex int
	StepCount int
	Step      *flow.Step

	Complete        bool
	ProgressPercent int

	HeartsKnown bool
	Hearts      int
	MaxHearts   int

	Blocked       bool
	RecoveryShown bool

	// Countdown is the formatted time to the next heart, empty when no
	// regeneration is pending.
	Countdown string
}

// View builds the current read model.
func (s *Session) View() View {
	v := View{
		CourseID:        s.courseID,
		StepIndex:       s.tracker.Current(),
		StepCount:       s.tracker.Len(),
		Step:            s.tracker.CurrentStep(),
		Complete:        s.tracker.State() == position.StateComplete,
		ProgressPercent: int(math.Round(s.tracker.Progress() * 100)),
		Blocked:         s.Blocked(),
		RecoveryShown:   s.RecoveryShown(),
	}

	if snap, ok := s.ledger.Current(); ok {
		v.HeartsKnown = true
		v.Hearts = snap.Hearts
		v.MaxHearts = snap.MaxHearts
	}
	if remaining, ok := s.ledger.Remaining(time.Now()); ok {
		v.Countdown = hearts.FormatRemaining(remaining)
	}
	return v
}
