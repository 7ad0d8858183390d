package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualClockFiresInDeadlineOrder(t *testing.T) {
	c := NewManualClock(epoch)
	var order []string
	c.AfterFunc(30*time.Millisecond, func() { order = append(order, "late") })
	c.AfterFunc(10*time.Millisecond, func() { order = append(order, "early") })
	c.AfterFunc(10*time.Millisecond, func() { order = append(order, "early-2") })

	c.Advance(5 * time.Millisecond)
	assert.Empty(t, order)

	c.Advance(25 * time.Millisecond)
	assert.Equal(t, []string{"early", "early-2", "late"}, order)
	assert.Equal(t, epoch.Add(30*time.Millisecond), c.Now())
	assert.Zero(t, c.Pending())
}

func TestManualClockStop(t *testing.T) {
	c := NewManualClock(epoch)
	fired := false
	s := c.AfterFunc(time.Millisecond, func() { fired = true })
	assert.True(t, s.Stop())
	assert.False(t, s.Stop())
	c.Advance(time.Second)
	assert.False(t, fired)
}

func TestManualClockCallbackCanSchedule(t *testing.T) {
	c := NewManualClock(epoch)
	var at []time.Duration
	c.AfterFunc(10*time.Millisecond, func() {
		at = append(at, c.Now().Sub(epoch))
		c.AfterFunc(10*time.Millisecond, func() {
			at = append(at, c.Now().Sub(epoch))
		})
	})
	c.Advance(50 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, at)
}

func TestTimerScheduleReplacesPending(t *testing.T) {
	var mu sync.Mutex
	c := NewManualClock(epoch)
	tm := New(c, &mu)

	var fired []string
	mu.Lock()
	tm.Schedule(100*time.Millisecond, func() { fired = append(fired, "first") })
	tm.Schedule(100*time.Millisecond, func() { fired = append(fired, "second") })
	require.True(t, tm.Pending())
	mu.Unlock()

	c.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"second"}, fired)

	mu.Lock()
	assert.False(t, tm.Pending())
	mu.Unlock()
}

func TestTimerCancel(t *testing.T) {
	var mu sync.Mutex
	c := NewManualClock(epoch)
	tm := New(c, &mu)

	fired := false
	mu.Lock()
	tm.Schedule(10*time.Millisecond, func() { fired = true })
	assert.True(t, tm.Cancel())
	assert.False(t, tm.Cancel())
	mu.Unlock()

	c.Advance(time.Second)
	assert.False(t, fired)
}

// staleClock hands out stoppers that never stop anything, so a cancelled
// callback still fires and only the generation check can discard it.
type staleClock struct {
	calls []func()
}

func (s *staleClock) Now() time.Time { return epoch }

func (s *staleClock) AfterFunc(_ time.Duration, f func()) Stopper {
	s.calls = append(s.calls, f)
	return staleStopper{}
}

type staleStopper struct{}

func (staleStopper) Stop() bool { return false }

func TestTimerDiscardsCallbackFiringAfterCancel(t *testing.T) {
	var mu sync.Mutex
	c := &staleClock{}
	tm := New(c, &mu)

	fired := 0
	mu.Lock()
	tm.Schedule(time.Millisecond, func() { fired++ })
	tm.Cancel()
	mu.Unlock()

	require.Len(t, c.calls, 1)
	c.calls[0]()
	assert.Zero(t, fired)
}

func TestTimerSystemClock(t *testing.T) {
	var mu sync.Mutex
	tm := New(System(), &mu)
	done := make(chan struct{})

	mu.Lock()
	tm.Schedule(5*time.Millisecond, func() { close(done) })
	mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}
}
