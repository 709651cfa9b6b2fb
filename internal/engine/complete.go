package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumova/learnflow/internal/flow"
)

// Acknowledge completes the current text/video step on the learner's
// explicit continue action. Steps that expect an answer submission reject
// acknowledgement; steps whose exercise payload failed validation degrade
// to acknowledgement so the learner is never stuck on them.
func (s *Session) Acknowledge(ctx context.Context) error {
	step := s.tracker.CurrentStep()
	if step == nil {
		return ErrFlowComplete
	}
	if step.HasExercise() {
		return fmt.Errorf("step %s expects an answer submission", step.Key)
	}
	if s.Blocked() {
		return ErrOutOfHearts
	}
	return s.completeCurrent(ctx, step)
}

// SubmitExercise records the outcome of an exercise attempt on the current
// step. A correct answer completes the step and advances; a wrong answer
// costs a heart (when gating is enabled) and leaves the position unchanged.
//
// A wrong answer is a normal outcome, not an error: callers inspect
// Blocked afterwards. A correct answer while already blocked is suppressed
// with ErrOutOfHearts — advancement stays frozen until the pool recovers.
func (s *Session) SubmitExercise(ctx context.Context, correct bool) error {
	step := s.tracker.CurrentStep()
	if step == nil {
		return ErrFlowComplete
	}
	if !step.HasExercise() {
		return fmt.Errorf("step %s has no exercise", step.Key)
	}

	if !correct {
		return s.recordFailure(ctx)
	}

	if s.Blocked() {
		return ErrOutOfHearts
	}
	return s.completeCurrent(ctx, step)
}

// recordFailure charges the failed attempt to the hearts pool. While
// already blocked the decrement is either still reported (analytics) or
// dropped, per configuration; it never unfreezes advancement.
func (s *Session) recordFailure(ctx context.Context) error {
	if !s.cfg.HeartsEnabled {
		return nil
	}
	if s.Blocked() && !s.cfg.RecordAttemptsWhileBlocked {
		return nil
	}

	snap, err := s.ledger.Decrement(ctx)
	if err != nil {
		// Last-known-good ledger stands; the learner keeps going.
		s.log.Warn("heart decrement failed", zap.Error(err))
		return nil
	}
	if snap.Hearts <= 0 {
		s.log.Info("out of hearts", zap.String("session_id", s.id))
	}
	return nil
}

// completeCurrent reports the completion to the server, then advances and
// queues a position save. Sections and legacy lessons use distinct
// endpoints. A failed completion call is logged but does not hold the
// learner back — the saved position reconciles progress server-side.
func (s *Session) completeCurrent(ctx context.Context, step *flow.Step) error {
	var err error
	if step.Kind == flow.StepSection {
		err = s.progress.CompleteSection(ctx, step.SectionID)
	} else {
		err = s.progress.CompleteLesson(ctx, step.LessonID)
	}
	if err != nil {
		s.log.Warn("completion call failed",
			zap.String("step", step.Key),
			zap.Error(err))
	}

	s.tracker.Advance()
	s.saver.Schedule(s.tracker.SaveIndex())
	return nil
}
