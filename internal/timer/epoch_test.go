package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestElapsed(t *testing.T) {
	assert.Equal(t, 0, Elapsed(base, base))
	assert.Equal(t, 0, Elapsed(base, base.Add(999*time.Millisecond)))
	assert.Equal(t, 1, Elapsed(base, base.Add(time.Second)))
	assert.Equal(t, 59, Elapsed(base, base.Add(59*time.Second+900*time.Millisecond)))
	assert.Equal(t, 3600, Elapsed(base, base.Add(time.Hour)))
}

func TestElapsed_ClampsNegative(t *testing.T) {
	assert.Equal(t, 0, Elapsed(base, base.Add(-5*time.Second)))
}

func TestElapsed_ZeroStart(t *testing.T) {
	assert.Equal(t, 0, Elapsed(time.Time{}, base))
}

func TestElapsed_MonotonicAndSampleIndependent(t *testing.T) {
	prev := -1
	for i := 0; i < 100; i++ {
		now := base.Add(time.Duration(i) * 700 * time.Millisecond)
		got := Elapsed(base, now)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}

	// The same pair of instants always yields the same value, no matter how
	// many times it was sampled in between.
	now := base.Add(42 * time.Second)
	first := Elapsed(base, now)
	for i := 0; i < 10; i++ {
		Elapsed(base, base.Add(time.Duration(i)*time.Second))
	}
	assert.Equal(t, first, Elapsed(base, now))
}

func TestDurationSec_Rounds(t *testing.T) {
	assert.Equal(t, 5, DurationSec(base, base.Add(5*time.Second+400*time.Millisecond)))
	assert.Equal(t, 6, DurationSec(base, base.Add(5*time.Second+600*time.Millisecond)))
	assert.Equal(t, 0, DurationSec(base, base.Add(-3*time.Second)))
}

func TestFormatHHMMSS(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatHHMMSS(0))
	assert.Equal(t, "00:00:59", FormatHHMMSS(59))
	assert.Equal(t, "00:01:00", FormatHHMMSS(60))
	assert.Equal(t, "01:01:05", FormatHHMMSS(3665))
	assert.Equal(t, "27:46:40", FormatHHMMSS(100000))
	assert.Equal(t, "00:00:00", FormatHHMMSS(-10))
}

func TestStopwatch_BeginAtPreservesInstant(t *testing.T) {
	now := base
	s := New()
	s.Now = func() time.Time { return now }

	s.BeginAt(base.Add(-90 * time.Second))
	assert.Equal(t, 90, s.Elapsed())

	// Halt keeps the reference instant.
	s.Halt()
	now = now.Add(10 * time.Second)
	assert.Equal(t, 100, s.Elapsed())
	assert.Equal(t, base.Add(-90*time.Second), s.Instant())
}

func TestStopwatch_ClearDiscardsInstant(t *testing.T) {
	s := New()
	s.Begin()
	s.Clear()
	assert.True(t, s.Instant().IsZero())
	assert.Equal(t, 0, s.Elapsed())
}

func TestStopwatch_WatchRendersImmediately(t *testing.T) {
	now := base
	s := New()
	s.Now = func() time.Time { return now }
	s.Period = time.Hour // ticks never fire during the test

	s.BeginAt(base.Add(-30 * time.Second))

	got := make(chan int, 1)
	s.Watch(func(sec int) {
		select {
		case got <- sec:
		default:
		}
	})
	defer s.Halt()

	select {
	case sec := <-got:
		assert.Equal(t, 30, sec)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate render")
	}
}
