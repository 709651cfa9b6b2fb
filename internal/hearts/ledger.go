package hearts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lumova/learnflow/internal/api"
)

// DefaultMaxHearts is used when the server omits or zeroes max_hearts.
const DefaultMaxHearts = 5

// Snapshot is the last authoritative hearts state plus the client timestamp
// that anchors the local countdown.
type Snapshot struct {
	Hearts    int
	MaxHearts int

	// NextRegenSeconds is nil when the pool is full or regeneration is
	// disabled.
	NextRegenSeconds *int

	// FetchedAt is when NextRegenSeconds was observed, in the ledger
	// clock's terms.
	FetchedAt time.Time
}

// Full reports whether the pool is at capacity.
func (s Snapshot) Full() bool {
	return s.Hearts >= s.MaxHearts
}

// Config holds ledger tunables.
type Config struct {
	// PollInterval is the safety-net refresh period catching regeneration
	// the countdown missed (backgrounded tab, suspended laptop).
	PollInterval time.Duration

	// MinRefreshGap suppresses the countdown-zero refresh when a poll
	// completed this recently, so the two triggers never double-fetch.
	MinRefreshGap time.Duration
}

// DefaultConfig returns sensible ledger defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:  60 * time.Second,
		MinRefreshGap: 2 * time.Second,
	}
}

// Ledger mirrors the server's hearts pool. Every mutation is an optimistic
// round-trip whose response replaces the whole snapshot; the client never
// computes a heart count locally, which is what keeps two clocks from
// drifting apart.
type Ledger struct {
	api api.HeartsAPI
	cfg Config
	log *zap.Logger

	// now is replaceable in tests.
	now func() time.Time

	group singleflight.Group

	mu            sync.Mutex
	snap          Snapshot
	loaded        bool
	lastRefreshAt time.Time

	// zeroRefreshed is set after the one re-fetch triggered by the local
	// countdown hitting zero, and cleared whenever a fresh snapshot
	// restarts the countdown. Prevents indefinite polling at zero.
	zeroRefreshed bool

	// onChange is invoked (outside the lock) after every snapshot
	// replacement. The gate controller hangs off this.
	onChange func(Snapshot)
}

// NewLedger creates a ledger over the given hearts endpoints.
func NewLedger(heartsAPI api.HeartsAPI, cfg Config, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.MinRefreshGap <= 0 {
		cfg.MinRefreshGap = DefaultConfig().MinRefreshGap
	}
	return &Ledger{
		api: heartsAPI,
		cfg: cfg,
		log: log,
		now: time.Now,
	}
}

// OnChange registers the snapshot observer. Must be called before Run.
func (l *Ledger) OnChange(fn func(Snapshot)) {
	l.onChange = fn
}

// Current returns the last authoritative snapshot. The bool is false before
// the first successful fetch.
func (l *Ledger) Current() (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap, l.loaded
}

// Refresh fetches the snapshot from the server. Concurrent callers (the
// countdown trigger and the safety-net poll) share one round-trip.
func (l *Ledger) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := l.group.Do("refresh", func() (any, error) {
		resp, err := l.api.FetchHearts(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("fetch hearts: %w", err)
		}
		return l.apply(resp), nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Decrement reports a failed attempt. The server decides the resulting
// count; zero hearts is a valid outcome the caller must gate on.
func (l *Ledger) Decrement(ctx context.Context) (Snapshot, error) {
	resp, err := l.api.DecrementHearts(ctx, 1)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decrement heart: %w", err)
	}
	return l.apply(resp), nil
}

// Grant awards hearts for a completed practice recovery action.
func (l *Ledger) Grant(ctx context.Context, amount int) (Snapshot, error) {
	resp, err := l.api.GrantHearts(ctx, amount)
	if err != nil {
		return Snapshot{}, fmt.Errorf("grant hearts: %w", err)
	}
	return l.apply(resp), nil
}

// Refill resets the pool to max (paid recovery path).
func (l *Ledger) Refill(ctx context.Context) (Snapshot, error) {
	resp, err := l.api.RefillHearts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refill hearts: %w", err)
	}
	return l.apply(resp), nil
}

// apply replaces the snapshot wholesale with a server response.
func (l *Ledger) apply(resp api.HeartsSnapshot) Snapshot {
	now := l.now()

	l.mu.Lock()
	maxHearts := resp.MaxHearts
	if maxHearts < 1 {
		maxHearts = DefaultMaxHearts
	}
	l.snap = Snapshot{
		Hearts:           resp.Hearts,
		MaxHearts:        maxHearts,
		NextRegenSeconds: resp.NextHeartInSeconds,
		FetchedAt:        now,
	}
	l.loaded = true
	l.lastRefreshAt = now
	if resp.NextHeartInSeconds != nil && *resp.NextHeartInSeconds > 0 {
		l.zeroRefreshed = false
	}
	snap := l.snap
	notify := l.onChange
	l.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
	return snap
}
