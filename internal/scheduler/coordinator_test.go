package scheduler

import (
	"testing"
	"time"

	"emergency_dashboard/internal/clock"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *clock.Manual, *Metrics) {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC))
	m := NewMetrics(prometheus.NewRegistry())
	return New(WithClock(clk), WithMetrics(m)), clk, m
}

func TestSchedule_RejectsInvalidIntervals(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	cases := []struct {
		name string
		task Task
		want error
	}{
		{"zero interval", Every("zero", 0, func() {}), ErrInvalidInterval},
		{"negative interval", Every("neg", -time.Second, func() {}), ErrInvalidInterval},
		{"negative countdown", CountdownFrom("cd", -1, nil, nil), ErrInvalidInterval},
		{"unknown kind", Task{Name: "x"}, ErrUnknownKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := c.Schedule(tc.task)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, h.IsZero())
		})
	}
	assert.Equal(t, 0, c.Len())
}

func TestRecurring_NTicksNCallbacks(t *testing.T) {
	c, clk, m := newTestCoordinator(t)

	calls := 0
	h, err := c.Schedule(Every("count", 500*time.Millisecond, func() { calls++ }))
	require.NoError(t, err)
	assert.False(t, h.IsZero())

	clk.Advance(499 * time.Millisecond)
	assert.Equal(t, 0, calls, "no tick before the first interval elapses")

	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)

	for i := 0; i < 99; i++ {
		clk.Advance(500 * time.Millisecond)
	}
	assert.Equal(t, 100, calls)
	assert.Equal(t, float64(100), testutil.ToFloat64(m.ticks.WithLabelValues("recurring")))
}

func TestRecurring_PauseKeepsTimerAndSkipsCallbacks(t *testing.T) {
	c, clk, _ := newTestCoordinator(t)

	calls := 0
	h, err := c.Schedule(Every("p", time.Second, func() { calls++ }))
	require.NoError(t, err)

	clk.Advance(2 * time.Second)
	require.Equal(t, 2, calls)

	c.Pause(h)
	assert.Equal(t, StatePaused, c.State(h))
	clk.Advance(10 * time.Second)
	assert.Equal(t, 2, calls, "paused ticks must not invoke the callback")
	assert.Equal(t, 1, clk.Pending(), "paused task keeps its timer")

	c.Resume(h)
	assert.Equal(t, StateActive, c.State(h))
	clk.Advance(time.Second)
	assert.Equal(t, 3, calls)
}

func TestCountdown_ExpiresOnceAfterSeedTicks(t *testing.T) {
	c, clk, m := newTestCoordinator(t)

	var seen []int
	expired := 0
	h, err := c.Schedule(CountdownFrom("code", 135,
		func(remaining int) { seen = append(seen, remaining) },
		func() { expired++ },
	))
	require.NoError(t, err)

	clk.Advance(134 * time.Second)
	assert.Equal(t, 0, expired)
	rem, ok := c.Remaining(h)
	require.True(t, ok)
	assert.Equal(t, 1, rem)

	clk.Advance(time.Second)
	assert.Equal(t, 1, expired)
	assert.Equal(t, StateExpired, c.State(h))
	require.Len(t, seen, 135)
	assert.Equal(t, 134, seen[0])
	assert.Equal(t, 0, seen[134])

	clk.Advance(time.Minute)
	assert.Equal(t, 1, expired, "no repeated onExpire")
	rem, _ = c.Remaining(h)
	assert.Equal(t, 0, rem)
	assert.Equal(t, 0, clk.Pending(), "expired countdown releases its timer")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.expired))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.active))
}

func TestCountdown_ZeroSeedExpiresOnFirstTick(t *testing.T) {
	c, clk, _ := newTestCoordinator(t)

	counted := 0
	expired := 0
	h, err := c.Schedule(CountdownFrom("zero", 0, func(int) { counted++ }, func() { expired++ }))
	require.NoError(t, err)
	assert.Equal(t, StateActive, c.State(h))

	clk.Advance(time.Second)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 0, counted)
}

func TestCountdown_PauseFreezesRemaining(t *testing.T) {
	c, clk, _ := newTestCoordinator(t)

	h, err := c.Schedule(CountdownFrom("cd", 10, nil, nil))
	require.NoError(t, err)
	clk.Advance(3 * time.Second)
	c.Pause(h)
	clk.Advance(30 * time.Second)

	rem, _ := c.Remaining(h)
	assert.Equal(t, 7, rem)

	c.Resume(h)
	clk.Advance(2 * time.Second)
	rem, _ = c.Remaining(h)
	assert.Equal(t, 5, rem)
}

func TestCancel_IsIdempotentAndStopsCallbacks(t *testing.T) {
	c, clk, m := newTestCoordinator(t)

	calls := 0
	h, err := c.Schedule(Every("c", time.Second, func() { calls++ }))
	require.NoError(t, err)
	clk.Advance(time.Second)

	c.Cancel(h)
	assert.NotPanics(t, func() { c.Cancel(h) })
	assert.NotPanics(t, func() { c.Cancel(Handle{}) })
	assert.Equal(t, StateGone, c.State(h))

	clk.Advance(10 * time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, clk.Pending())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.active))
}

func TestCancel_AfterExpiryIsNoop(t *testing.T) {
	c, clk, _ := newTestCoordinator(t)

	expired := 0
	h, err := c.Schedule(CountdownFrom("cd", 2, nil, func() { expired++ }))
	require.NoError(t, err)
	clk.Advance(5 * time.Second)
	require.Equal(t, 1, expired)

	assert.NotPanics(t, func() {
		c.Cancel(h)
		c.Cancel(h)
	})
	clk.Advance(5 * time.Second)
	assert.Equal(t, 1, expired)
}

func TestFire_StaleTickIsSuppressed(t *testing.T) {
	c, _, m := newTestCoordinator(t)

	calls := 0
	h, err := c.Schedule(Every("s", time.Second, func() { calls++ }))
	require.NoError(t, err)
	c.Cancel(h)

	// A fire that was already queued by the host timer when Cancel ran.
	c.fire(h.ID())

	assert.Equal(t, 0, calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.stale))
}

func TestCallbackMayCancelItsOwnTask(t *testing.T) {
	c, clk, _ := newTestCoordinator(t)

	var h Handle
	calls := 0
	h, err := c.Schedule(Every("self", time.Second, func() {
		calls++
		c.Cancel(h)
	}))
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, c.Len())
}

func TestTasksAreIndependent(t *testing.T) {
	c, clk, _ := newTestCoordinator(t)

	fast, slow := 0, 0
	hFast, err := c.Schedule(Every("fast", 500*time.Millisecond, func() { fast++ }))
	require.NoError(t, err)
	_, err = c.Schedule(Every("slow", 5*time.Second, func() { slow++ }))
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	assert.Equal(t, 10, fast)
	assert.Equal(t, 1, slow)

	c.Cancel(hFast)
	clk.Advance(5 * time.Second)
	assert.Equal(t, 10, fast)
	assert.Equal(t, 2, slow)
}

func TestClose_CancelsAllAndRejectsSchedule(t *testing.T) {
	c, clk, _ := newTestCoordinator(t)

	calls := 0
	_, err := c.Schedule(Every("a", time.Second, func() { calls++ }))
	require.NoError(t, err)
	_, err = c.Schedule(CountdownFrom("b", 5, nil, nil))
	require.NoError(t, err)

	c.Close()
	c.Close()
	clk.Advance(10 * time.Second)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, c.Len())

	_, err = c.Schedule(Every("late", time.Second, func() {}))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRecurring_SystemClockSmoke(t *testing.T) {
	c := New()
	defer c.Close()

	done := make(chan struct{}, 8)
	_, err := c.Schedule(Every("sys", 5*time.Millisecond, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d did not arrive", i+1)
		}
	}
}
