package hearts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Remaining projects the time until the next heart from the last snapshot
// and elapsed wall-clock time. Display-only: the result never feeds back
// into the heart count. The bool is false when no countdown applies (pool
// full, regeneration disabled, or nothing fetched yet).
func (l *Ledger) Remaining(now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded || l.snap.NextRegenSeconds == nil || l.snap.Full() {
		return 0, false
	}
	elapsed := int(now.Sub(l.snap.FetchedAt) / time.Second)
	remaining := *l.snap.NextRegenSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining) * time.Second, true
}

// FormatRemaining renders a countdown as mm:ss, or h:mm:ss once it crosses
// an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Run drives the one-second countdown tick and the safety-net poll until
// the context is cancelled. When the projected remaining time reaches zero
// it re-fetches the ledger exactly once (the server is the only party that
// may raise the heart count); the periodic poll covers the cases where that
// tick never fires. Background refresh failures are logged and otherwise
// ignored — the next tick or poll retries naturally.
func (l *Ledger) Run(ctx context.Context) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	poll := time.NewTicker(l.cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-tick.C:
			if !l.shouldZeroRefresh() {
				continue
			}
			if _, err := l.Refresh(ctx); err != nil && ctx.Err() == nil {
				l.log.Warn("hearts refresh at countdown zero failed", zap.Error(err))
			}

		case <-poll.C:
			if _, err := l.Refresh(ctx); err != nil && ctx.Err() == nil {
				l.log.Debug("hearts poll failed", zap.Error(err))
			}
		}
	}
}

// shouldZeroRefresh decides whether this tick triggers the once-only
// refresh: the countdown has hit zero, we have not already refreshed for
// this cycle, and no other refresh landed within the dedup gap.
func (l *Ledger) shouldZeroRefresh() bool {
	now := l.now()

	remaining, ok := l.Remaining(now)
	if !ok || remaining > 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.zeroRefreshed {
		return false
	}
	if now.Sub(l.lastRefreshAt) < l.cfg.MinRefreshGap {
		return false
	}
	l.zeroRefreshed = true
	return true
}
