package engine

import (
	"context"
	"fmt"
)

// Blocked reports whether advancement is gated: hearts gating is on and the
// last authoritative snapshot shows an empty pool. Before the first
// successful fetch the learner is never blocked.
func (s *Session) Blocked() bool {
	if !s.cfg.HeartsEnabled {
		return false
	}
	snap, ok := s.ledger.Current()
	return ok && snap.Hearts <= 0
}

// RecoveryShown reports whether the out-of-hearts recovery surface should
// be visible. It appears when a snapshot hits zero and disappears on the
// first snapshot with hearts again, whichever mutation or poll produced it.
func (s *Session) RecoveryShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovery
}

// PracticeReward grants a heart for a completed bonus practice action, one
// of the recovery paths off the blocked state. Unlike background refreshes,
// this is an explicit user action, so the error is surfaced.
func (s *Session) PracticeReward(ctx context.Context) error {
	if _, err := s.ledger.Grant(ctx, 1); err != nil {
		return fmt.Errorf("practice reward: %w", err)
	}
	return nil
}

// RefillHearts restores the pool to max, the paid recovery path.
func (s *Session) RefillHearts(ctx context.Context) error {
	if _, err := s.ledger.Refill(ctx); err != nil {
		return fmt.Errorf("refill: %w", err)
	}
	return nil
}
