// Package engine ties the flattened flow, the hearts ledger, the position
// tracker and the autosaver into one per-course session and drives them
// from discrete completion events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumova/learnflow/internal/api"
	"github.com/lumova/learnflow/internal/config"
	"github.com/lumova/learnflow/internal/flow"
	"github.com/lumova/learnflow/internal/hearts"
	"github.com/lumova/learnflow/internal/persist"
	"github.com/lumova/learnflow/internal/position"
)

var (
	// ErrOutOfHearts means advancement is gated until the pool recovers.
	ErrOutOfHearts = errors.New("out of hearts")

	// ErrFlowComplete means there is no current step to act on.
	ErrFlowComplete = errors.New("flow already complete")
)

// Deps bundles the external collaborators a session needs. Transport and
// auth mechanics live behind these interfaces.
type Deps struct {
	Content  api.ContentAPI
	Progress api.ProgressAPI
	Hearts   api.HeartsAPI
	Log      *zap.Logger
}

// Session owns one learner's run through one course flow. It is constructed
// by Open when the course is entered and torn down by Close when the
// learner leaves; nothing it tracks outlives it or is shared globally.
//
// Session methods are safe for use from the single event loop of a UI host;
// internal state touched by background callbacks is mutex-guarded.
type Session struct {
	id       string
	courseID string
	cfg      config.Config
	log      *zap.Logger

	progress api.ProgressAPI
	steps    []flow.Step
	tracker  *position.Tracker
	ledger   *hearts.Ledger
	saver    *persist.Saver

	cancel context.CancelFunc

	mu       sync.Mutex
	recovery bool
	closed   bool
}

// Open fetches content and the saved position, flattens the flow, restores
// the learner's place and starts the hearts background loops. The resume
// decision runs exactly once, here; later ledger polls or content refreshes
// can never move the learner.
func Open(ctx context.Context, courseID string, deps Deps, cfg config.Config) (*Session, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("course_id", courseID))

	lessons, err := deps.Content.FetchLessons(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetch lessons: %w", err)
	}
	steps := flow.Flatten(lessons)

	pos, err := deps.Progress.FetchPosition(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetch position: %w", err)
	}

	s := &Session{
		id:       uuid.NewString(),
		courseID: courseID,
		cfg:      cfg,
		log:      log,
		progress: deps.Progress,
		steps:    steps,
		tracker:  position.NewTracker(),
	}
	s.tracker.Init(steps, pos.CurrentIndex)

	s.saver = persist.NewSaver(courseID, deps.Progress.SavePosition, cfg.SaveDebounce, log)

	bg, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.ledger = hearts.NewLedger(deps.Hearts, hearts.Config{PollInterval: cfg.HeartsPollInterval}, log)
	s.ledger.OnChange(s.observeHearts)
	if cfg.HeartsEnabled {
		// A failed initial fetch is not fatal: gating stays off until a
		// snapshot arrives, and the poll loop keeps trying.
		if _, err := s.ledger.Refresh(ctx); err != nil {
			log.Warn("initial hearts fetch failed", zap.Error(err))
		}
		go s.ledger.Run(bg)
	}

	return s, nil
}

// ID is the unique identifier of this session instance.
func (s *Session) ID() string {
	return s.id
}

// CourseID returns the course this session drives.
func (s *Session) CourseID() string {
	return s.courseID
}

// Steps returns the flattened flow. The slice must be treated as read-only.
func (s *Session) Steps() []flow.Step {
	return s.steps
}

// CurrentStep returns the active step, or nil once the flow is complete.
func (s *Session) CurrentStep() *flow.Step {
	return s.tracker.CurrentStep()
}

// Complete reports whether every step has been finished.
func (s *Session) Complete() bool {
	return s.tracker.State() == position.StateComplete
}

// observeHearts runs after every ledger snapshot replacement. It drives the
// recovery surface: shown at zero hearts, dismissed as soon as any snapshot
// shows hearts again. A response landing after Close is discarded.
func (s *Session) observeHearts(snap hearts.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if snap.Hearts <= 0 {
		s.recovery = true
	} else {
		s.recovery = false
	}
}

// Close flushes the final position, cancels background timers and marks
// the session dead so late responses are ignored. The flush is best-effort:
// a failure is logged and swallowed, a future session reconciles.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if err := s.saver.Flush(ctx, s.tracker.SaveIndex()); err != nil {
		s.log.Debug("final position flush failed", zap.Error(err))
	}
	s.saver.Close()
}
