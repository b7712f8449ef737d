package nav

import (
	"time"
)

// TimedTask is one named phase and its accumulated duration.
type TimedTask struct {
	Name  string
	Total time.Duration
}

// TaskTimer accumulates wall time into named phases. Each call to Time
// charges the interval since the previous mark to the given phase, so a
// step's work is split across phases without nested instrumentation.
type TaskTimer struct {
	last    time.Time
	order   []string
	timings map[string]time.Duration
}

// NewTaskTimer returns a started timer.
func NewTaskTimer() *TaskTimer {
	tt := &TaskTimer{timings: map[string]time.Duration{}}
	tt.Reset()
	return tt
}

// Reset restarts the current interval without clearing accumulated phases.
func (tt *TaskTimer) Reset() {
	tt.last = time.Now()
}

// Time charges the interval since the last mark to the named phase and
// returns that interval.
func (tt *TaskTimer) Time(key string) time.Duration {
	now := time.Now()
	delta := now.Sub(tt.last)
	tt.last = now
	if _, ok := tt.timings[key]; !ok {
		tt.order = append(tt.order, key)
	}
	tt.timings[key] += delta
	return delta
}

// Timings returns the phases in first-seen order.
func (tt *TaskTimer) Timings() []TimedTask {
	out := make([]TimedTask, 0, len(tt.order))
	for _, key := range tt.order {
		out = append(out, TimedTask{Name: key, Total: tt.timings[key]})
	}
	return out
}
