package nav

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestTaskTimerAccumulates(t *testing.T) {
	tt := NewTaskTimer()
	time.Sleep(5 * time.Millisecond)
	d := tt.Time("first")
	test.That(t, d, test.ShouldBeGreaterThan, 0)

	time.Sleep(5 * time.Millisecond)
	tt.Time("second")
	time.Sleep(5 * time.Millisecond)
	tt.Time("first")

	timings := tt.Timings()
	test.That(t, len(timings), test.ShouldEqual, 2)
	test.That(t, timings[0].Name, test.ShouldEqual, "first")
	test.That(t, timings[1].Name, test.ShouldEqual, "second")
	test.That(t, timings[0].Total, test.ShouldBeGreaterThan, timings[1].Total)
}

func TestTaskTimerResetKeepsPhases(t *testing.T) {
	tt := NewTaskTimer()
	tt.Time("work")
	before := tt.Timings()[0].Total

	time.Sleep(5 * time.Millisecond)
	tt.Reset()
	tt.Time("work")
	after := tt.Timings()[0].Total

	// the sleep before Reset must not be charged
	test.That(t, after-before, test.ShouldBeLessThan, 5*time.Millisecond)
}
