package hearts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumova/learnflow/internal/api"
)

// fakeHeartsAPI returns scripted snapshots and counts calls.
type fakeHeartsAPI struct {
	mu         sync.Mutex
	next       api.HeartsSnapshot
	err        error
	fetchCalls int
	decCalls   int
	blockFetch chan struct{} // when set, FetchHearts waits until it closes
}

func (f *fakeHeartsAPI) respond() (api.HeartsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next, f.err
}

func (f *fakeHeartsAPI) FetchHearts(context.Context) (api.HeartsSnapshot, error) {
	f.mu.Lock()
	ch := f.blockFetch
	f.fetchCalls++
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return f.respond()
}

func (f *fakeHeartsAPI) DecrementHearts(context.Context, int) (api.HeartsSnapshot, error) {
	f.mu.Lock()
	f.decCalls++
	f.mu.Unlock()
	return f.respond()
}

func (f *fakeHeartsAPI) GrantHearts(context.Context, int) (api.HeartsSnapshot, error) {
	return f.respond()
}

func (f *fakeHeartsAPI) RefillHearts(context.Context) (api.HeartsSnapshot, error) {
	return f.respond()
}

func (f *fakeHeartsAPI) set(snap api.HeartsSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = snap
	f.err = nil
}

func secs(n int) *int { return &n }

// fakeClock lets tests move the ledger's wall clock by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLedger(fake *fakeHeartsAPI) (*Ledger, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLedger(fake, DefaultConfig(), nil)
	l.now = clock.Now
	return l, clock
}

func TestLedgerMirrorsServerExactly(t *testing.T) {
	fake := &fakeHeartsAPI{}
	l, _ := newTestLedger(fake)
	ctx := context.Background()

	// The server's arithmetic is authoritative, even when surprising:
	// a single decrement may drop two hearts if another device raced us.
	fake.set(api.HeartsSnapshot{Hearts: 5, MaxHearts: 5})
	_, err := l.Refresh(ctx)
	require.NoError(t, err)

	fake.set(api.HeartsSnapshot{Hearts: 3, MaxHearts: 5, NextHeartInSeconds: secs(120)})
	snap, err := l.Decrement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Hearts, "local value must equal the server response, not hearts-1")

	fake.set(api.HeartsSnapshot{Hearts: 4, MaxHearts: 6, NextHeartInSeconds: secs(60)})
	snap, err = l.Grant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Hearts)
	assert.Equal(t, 6, snap.MaxHearts, "max hearts must be replaced along with the count")

	fake.set(api.HeartsSnapshot{Hearts: 6, MaxHearts: 6})
	snap, err = l.Refill(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Full())

	current, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, snap, current)
}

func TestLedgerKeepsLastGoodOnError(t *testing.T) {
	fake := &fakeHeartsAPI{}
	l, _ := newTestLedger(fake)
	ctx := context.Background()

	fake.set(api.HeartsSnapshot{Hearts: 2, MaxHearts: 5, NextHeartInSeconds: secs(30)})
	_, err := l.Refresh(ctx)
	require.NoError(t, err)

	fake.mu.Lock()
	fake.err = errors.New("network down")
	fake.mu.Unlock()

	_, err = l.Decrement(ctx)
	require.Error(t, err)

	snap, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, 2, snap.Hearts, "failed mutation must leave the last-known-good snapshot")
}

func TestLedgerDefaultMaxHearts(t *testing.T) {
	fake := &fakeHeartsAPI{}
	l, _ := newTestLedger(fake)

	fake.set(api.HeartsSnapshot{Hearts: 2})
	snap, err := l.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxHearts, snap.MaxHearts)
}

func TestRemainingProjection(t *testing.T) {
	fake := &fakeHeartsAPI{}
	l, clock := newTestLedger(fake)

	// Nothing fetched yet.
	_, ok := l.Remaining(clock.Now())
	assert.False(t, ok)

	fake.set(api.HeartsSnapshot{Hearts: 1, MaxHearts: 5, NextHeartInSeconds: secs(120)})
	_, err := l.Refresh(context.Background())
	require.NoError(t, err)

	remaining, ok := l.Remaining(clock.Now())
	require.True(t, ok)
	assert.Equal(t, 120*time.Second, remaining)

	clock.Advance(45 * time.Second)
	remaining, _ = l.Remaining(clock.Now())
	assert.Equal(t, 75*time.Second, remaining)

	// Far past the target: clamped to zero, never negative.
	clock.Advance(10 * time.Minute)
	remaining, ok = l.Remaining(clock.Now())
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), remaining)

	// Full pool: no countdown.
	fake.set(api.HeartsSnapshot{Hearts: 5, MaxHearts: 5})
	_, err = l.Refresh(context.Background())
	require.NoError(t, err)
	_, ok = l.Remaining(clock.Now())
	assert.False(t, ok)
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{59 * time.Second, "00:59"},
		{2*time.Minute + 5*time.Second, "02:05"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour + 5*time.Second, "1:00:05"},
		{3*time.Hour + 12*time.Minute + 7*time.Second, "3:12:07"},
		{-5 * time.Second, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRemaining(tt.d))
	}
}

func TestRefreshDeduplicatesConcurrentCallers(t *testing.T) {
	block := make(chan struct{})
	fake := &fakeHeartsAPI{blockFetch: block}
	fake.set(api.HeartsSnapshot{Hearts: 3, MaxHearts: 5})
	l, _ := newTestLedger(fake)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	// Let the goroutines pile onto the in-flight fetch, then release it.
	time.Sleep(20 * time.Millisecond)
	close(block)
	wg.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.fetchCalls, "concurrent refreshes must share one round-trip")
}

func TestZeroRefreshFiresOnce(t *testing.T) {
	fake := &fakeHeartsAPI{}
	l, clock := newTestLedger(fake)
	ctx := context.Background()

	fake.set(api.HeartsSnapshot{Hearts: 1, MaxHearts: 5, NextHeartInSeconds: secs(10)})
	_, err := l.Refresh(ctx)
	require.NoError(t, err)

	// Countdown still running: no trigger.
	clock.Advance(5 * time.Second)
	assert.False(t, l.shouldZeroRefresh())

	// Countdown hit zero: exactly one trigger, then quiet.
	clock.Advance(6 * time.Second)
	assert.True(t, l.shouldZeroRefresh())
	assert.False(t, l.shouldZeroRefresh(), "zero-crossing must trigger a single refresh, not a poll loop")

	// A fresh snapshot restarting the countdown re-arms the trigger.
	fake.set(api.HeartsSnapshot{Hearts: 2, MaxHearts: 5, NextHeartInSeconds: secs(10)})
	_, err = l.Refresh(ctx)
	require.NoError(t, err)
	clock.Advance(15 * time.Second)
	assert.True(t, l.shouldZeroRefresh())
}

func TestZeroRefreshSkippedRightAfterPoll(t *testing.T) {
	fake := &fakeHeartsAPI{}
	l, clock := newTestLedger(fake)

	// Server already reports zero seconds remaining at fetch time; the
	// poll that produced this snapshot just ran, so the countdown trigger
	// must stay quiet within the dedup gap.
	fake.set(api.HeartsSnapshot{Hearts: 1, MaxHearts: 5, NextHeartInSeconds: secs(0)})
	_, err := l.Refresh(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Second)
	assert.False(t, l.shouldZeroRefresh(), "refresh within the dedup gap of the last poll")

	clock.Advance(5 * time.Second)
	assert.True(t, l.shouldZeroRefresh())
}

func TestOnChangeObservesEveryReplacement(t *testing.T) {
	fake := &fakeHeartsAPI{}
	l, _ := newTestLedger(fake)

	var seen []int
	l.OnChange(func(s Snapshot) { seen = append(seen, s.Hearts) })

	fake.set(api.HeartsSnapshot{Hearts: 2, MaxHearts: 5})
	_, err := l.Refresh(context.Background())
	require.NoError(t, err)

	fake.set(api.HeartsSnapshot{Hearts: 0, MaxHearts: 5, NextHeartInSeconds: secs(120)})
	_, err = l.Decrement(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0}, seen)
}
