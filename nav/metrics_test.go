package nav

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestRunMetricsAppendStep(t *testing.T) {
	m := NewRunMetrics()
	m.AppendStep(0.5, 0.9, 0.01, 1.2)
	m.AppendStep(0.3, 0.8, 0.02, 0.8)

	test.That(t, m.Steps(), test.ShouldEqual, 2)
	test.That(t, m.Times, test.ShouldResemble, []float64{0.5, 0.3})
	test.That(t, m.Fitnesses, test.ShouldResemble, []float64{0.9, 0.8})
	test.That(t, m.RMSEs, test.ShouldResemble, []float64{0.01, 0.02})
	test.That(t, m.Distances, test.ShouldResemble, []float64{1.2, 0.8})
}

func TestRunMetricsPositionError(t *testing.T) {
	m := NewRunMetrics()
	m.AppendPositionError(r3.Vector{X: 3, Y: 4, Z: 12})

	test.That(t, m.ErrX, test.ShouldResemble, []float64{3})
	test.That(t, m.ErrY, test.ShouldResemble, []float64{4})
	test.That(t, m.ErrZ, test.ShouldResemble, []float64{12})
	test.That(t, m.Err2D[0], test.ShouldAlmostEqual, 5)
	test.That(t, m.Err3D[0], test.ShouldAlmostEqual, 13)
}

func TestRunMetricsSummary(t *testing.T) {
	m := NewRunMetrics()
	m.AppendStep(0.5, 0.9, 0.01, 1.2)
	tt := NewTaskTimer()
	tt.Time("registration")

	out := m.Summary(tt)
	test.That(t, out, test.ShouldContainSubstring, "steps: 1")
	test.That(t, out, test.ShouldContainSubstring, "registration")
	test.That(t, out, test.ShouldNotContainSubstring, "position error")

	m.AppendPositionError(r3.Vector{X: 1})
	test.That(t, m.Summary(nil), test.ShouldContainSubstring, "position error")
}
