// Package persist debounces flow-position saves so rapid navigation does
// not flood the backend, without dropping the latest value on exit.
package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a queued position is sent.
const DefaultDebounce = 2 * time.Second

// SaveFunc persists one (courseID, index) pair.
type SaveFunc func(ctx context.Context, courseID string, index int) error

// Saver coalesces position updates for a single course-flow session. One
// instance is constructed when the flow opens and closed when it ends; the
// last-saved and queued markers are instance fields, never globals.
//
// At most one save is queued or in flight at a time. A save that has been
// superseded while in flight must not clobber the newer queued value, and a
// repeat of an already-saved value is a no-op.
type Saver struct {
	courseID string
	save     SaveFunc
	debounce time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	timer     *time.Timer
	queued    string // key waiting on the debounce timer, "" when none
	lastSaved string // key of the last save the server acknowledged
	closed    bool
}

// NewSaver creates a saver for one course. A non-positive debounce falls
// back to DefaultDebounce.
func NewSaver(courseID string, save SaveFunc, debounce time.Duration, log *zap.Logger) *Saver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Saver{
		courseID: courseID,
		save:     save,
		debounce: debounce,
		log:      log,
	}
}

func (s *Saver) key(index int) string {
	return fmt.Sprintf("%s:%d", s.courseID, index)
}

// Schedule queues index for a debounced save.
//
// Already saved at this value: no-op. Already queued at this value: no-op,
// so identical repeated updates do not keep resetting the timer. Otherwise
// any pending timer is cancelled and a fresh one started.
func (s *Saver) Schedule(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	key := s.key(index)
	if key == s.lastSaved || key == s.queued {
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.queued = key
	s.timer = time.AfterFunc(s.debounce, func() {
		s.fire(key, index)
	})
}

// fire sends the save that was queued under key. Failures are swallowed:
// the next position change re-queues, and a future session reconciles.
func (s *Saver) fire(key string, index int) {
	s.mu.Lock()
	// The timer can race Close or a newer Schedule; if this key no longer
	// owns the slot there is nothing worth sending.
	if s.closed || s.queued != key {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	err := s.save(context.Background(), s.courseID, index)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.log.Debug("position save failed",
			zap.String("course_id", s.courseID),
			zap.Int("index", index),
			zap.Error(err))
		// Free the queued slot so a repeat of this value retries, but
		// only if nothing newer was queued while we were in flight.
		if s.queued == key {
			s.queued = ""
		}
		return
	}

	// Race guard: a newer update queued during the round-trip owns the
	// slot now. This older result is stale — discard it without touching
	// the bookkeeping the newer save will write.
	if s.queued != key {
		return
	}
	s.lastSaved = key
	s.queued = ""
}

// Flush performs an immediate, non-debounced save of index, cancelling any
// pending timer. Used on exit/finish/navigate-away paths; the caller
// decides whether the error matters (it usually swallows it).
func (s *Saver) Flush(ctx context.Context, index int) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	key := s.key(index)
	if key == s.lastSaved {
		s.queued = ""
		s.mu.Unlock()
		return nil
	}
	s.queued = key
	s.mu.Unlock()

	err := s.save(ctx, s.courseID, index)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.queued == key {
			s.queued = ""
		}
		return fmt.Errorf("flush position: %w", err)
	}
	s.lastSaved = key
	if s.queued == key {
		s.queued = ""
	}
	return nil
}

// Close cancels any pending debounce timer. It does not flush; callers that
// care about the final value call Flush first.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.queued = ""
}
