// Package timer implements epoch-based elapsed time: the display value is
// always derived from two instants, never from how many ticks fired. A host
// process that is suspended or throttled shows the correct time as soon as it
// renders again.
package timer

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultPeriod is how often the advisory display refresh fires.
const DefaultPeriod = 250 * time.Millisecond

// Elapsed returns the whole seconds between start and now, floored and
// clamped to zero. A zero start instant reports zero.
func Elapsed(start, now time.Time) int {
	if start.IsZero() {
		return 0
	}
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// DurationSec returns the whole seconds between start and end, rounded to the
// nearest second and clamped to zero. Clamping protects against clock skew
// between local and store-assigned timestamps.
func DurationSec(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(math.Round(d.Seconds()))
}

// FormatHHMMSS renders a second count as HH:MM:SS.
func FormatHHMMSS(totalSec int) string {
	if totalSec < 0 {
		totalSec = 0
	}
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	s := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Stopwatch owns a single reference instant and an optional periodic display
// refresh. The refresh is advisory only: every render recomputes elapsed time
// from the reference instant and the current clock, so a delayed or skipped
// tick can never corrupt the display.
type Stopwatch struct {
	mu     sync.Mutex
	start  time.Time
	halt   chan struct{}
	render func(elapsedSec int)

	// Now is the clock source, replaceable in tests.
	Now func() time.Time

	// Period is the advisory refresh interval. Zero means DefaultPeriod.
	Period time.Duration
}

// New returns a stopwatch on the wall clock.
func New() *Stopwatch {
	return &Stopwatch{Now: time.Now}
}

// Begin records a new reference instant and returns it.
func (s *Stopwatch) Begin() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = s.Now()
	return s.start
}

// BeginAt restores a reference instant, used when resuming after a crash
// or restart.
func (s *Stopwatch) BeginAt(instant time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = instant
}

// Instant returns the current reference instant (zero if never started).
func (s *Stopwatch) Instant() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// Clear discards the reference instant. Used only by start rollback.
func (s *Stopwatch) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = time.Time{}
}

// Elapsed returns whole elapsed seconds from the reference instant to now.
// It is idempotent and independent of how often it is sampled.
func (s *Stopwatch) Elapsed() int {
	s.mu.Lock()
	start := s.start
	s.mu.Unlock()
	return Elapsed(start, s.Now())
}

// Watch starts the advisory refresh, calling render immediately and then on
// every tick until Halt. Each call recomputes from the clock, so the first
// render after a suspension jumps straight to the correct value.
func (s *Stopwatch) Watch(render func(elapsedSec int)) {
	s.mu.Lock()
	if s.halt != nil {
		close(s.halt)
	}
	halt := make(chan struct{})
	s.halt = halt
	s.render = render
	period := s.Period
	s.mu.Unlock()

	if period <= 0 {
		period = DefaultPeriod
	}

	render(s.Elapsed())

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-halt:
				return
			case <-ticker.C:
				render(s.Elapsed())
			}
		}
	}()
}

// Halt stops the advisory refresh. The reference instant and the render
// callback are preserved, so Resume picks up from the original instant.
func (s *Stopwatch) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halt != nil {
		close(s.halt)
		s.halt = nil
	}
}

// Resume restarts the advisory refresh after a Halt. No-op when no render
// callback was ever attached.
func (s *Stopwatch) Resume() {
	s.mu.Lock()
	render := s.render
	s.mu.Unlock()
	if render != nil {
		s.Watch(render)
	}
}
