package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// waitFor polls until the condition holds or the deadline passes. Timer
// callbacks run on their own goroutine, so tests on the real scheduler need
// a small grace period.
func waitFor(t *testing.T, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestTimerSchedulerFires(t *testing.T) {
	s := NewTimerScheduler()

	var fired int32
	s.Arm(1, time.Now().Add(20*time.Millisecond), func() {
		atomic.AddInt32(&fired, 1)
	})

	assert.Equal(t, []uint{1}, s.Pending())
	waitFor(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, "timer never fired")
	waitFor(t, func() bool { return len(s.Pending()) == 0 }, "fired timer still pending")
}

func TestTimerSchedulerFiresImmediatelyForPastTime(t *testing.T) {
	s := NewTimerScheduler()

	var fired int32
	s.Arm(7, time.Now().Add(-time.Hour), func() {
		atomic.AddInt32(&fired, 1)
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, "past-dated arm never fired")
}

func TestTimerSchedulerRearmReplaces(t *testing.T) {
	s := NewTimerScheduler()

	var firstFired, secondFired int32
	s.Arm(1, time.Now().Add(30*time.Millisecond), func() {
		atomic.AddInt32(&firstFired, 1)
	})
	s.Arm(1, time.Now().Add(60*time.Millisecond), func() {
		atomic.AddInt32(&secondFired, 1)
	})

	// Only one pending action per key
	assert.Equal(t, []uint{1}, s.Pending())

	waitFor(t, func() bool { return atomic.LoadInt32(&secondFired) == 1 }, "replacement timer never fired")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&firstFired), "replaced timer fired anyway")
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondFired), "replacement fired more than once")
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler()

	var fired int32
	s.Arm(3, time.Now().Add(30*time.Millisecond), func() {
		atomic.AddInt32(&fired, 1)
	})
	s.Cancel(3)

	assert.Empty(t, s.Pending())
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired), "cancelled timer fired")

	// Cancelling a key with no pending action is a no-op
	s.Cancel(99)
}

func TestTimerSchedulerIndependentKeys(t *testing.T) {
	s := NewTimerScheduler()

	var a, b int32
	s.Arm(1, time.Now().Add(20*time.Millisecond), func() { atomic.AddInt32(&a, 1) })
	s.Arm(2, time.Now().Add(20*time.Millisecond), func() { atomic.AddInt32(&b, 1) })
	assert.Equal(t, []uint{1, 2}, s.Pending())

	s.Cancel(1)
	assert.Equal(t, []uint{2}, s.Pending())

	waitFor(t, func() bool { return atomic.LoadInt32(&b) == 1 }, "surviving timer never fired")
	assert.Equal(t, int32(0), atomic.LoadInt32(&a))
}

func TestMockScheduler(t *testing.T) {
	m := NewMockScheduler()

	var fired int32
	fireAt := time.Now().Add(time.Hour)
	m.Arm(5, fireAt, func() { atomic.AddInt32(&fired, 1) })

	assert.Equal(t, []uint{5}, m.Pending())
	got, ok := m.FireAtFor(5)
	assert.True(t, ok)
	assert.Equal(t, fireAt, got)

	// Re-arming replaces the entry rather than stacking a second one
	later := fireAt.Add(time.Hour)
	m.Arm(5, later, func() { atomic.AddInt32(&fired, 1) })
	assert.Equal(t, []uint{5}, m.Pending())
	got, _ = m.FireAtFor(5)
	assert.Equal(t, later, got)

	assert.True(t, m.Fire(5))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.Empty(t, m.Pending())
	assert.False(t, m.Fire(5))
}
