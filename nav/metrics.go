package nav

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

// RunMetrics holds the append-only per-step records of a run: registration
// time, alignment fitness, inlier residual, and movement magnitude, plus
// position error series when an independent positioning source is present.
type RunMetrics struct {
	Times     []float64
	Fitnesses []float64
	RMSEs     []float64
	Distances []float64

	ErrX  []float64
	ErrY  []float64
	ErrZ  []float64
	Err2D []float64
	Err3D []float64
}

// NewRunMetrics returns empty metrics.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{}
}

// AppendStep records one fusion step.
func (m *RunMetrics) AppendStep(elapsedSeconds, fitness, rmse, distance float64) {
	m.Times = append(m.Times, elapsedSeconds)
	m.Fitnesses = append(m.Fitnesses, fitness)
	m.RMSEs = append(m.RMSEs, rmse)
	m.Distances = append(m.Distances, distance)
}

// AppendPositionError records the difference between the independently
// reported position and the estimated one.
func (m *RunMetrics) AppendPositionError(diff r3.Vector) {
	m.ErrX = append(m.ErrX, diff.X)
	m.ErrY = append(m.ErrY, diff.Y)
	m.ErrZ = append(m.ErrZ, diff.Z)
	m.Err2D = append(m.Err2D, r3.Vector{X: diff.X, Y: diff.Y}.Norm())
	m.Err3D = append(m.Err3D, diff.Norm())
}

// Steps returns the number of recorded steps.
func (m *RunMetrics) Steps() int {
	return len(m.Times)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// Summary renders the progress-so-far report printed at the end of a run
// and when a run is interrupted.
func (m *RunMetrics) Summary(timer *TaskTimer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "steps: %d\n", m.Steps())
	fmt.Fprintf(&b, "registration time: %.3fs total, %.3fs mean\n", sum(m.Times), mean(m.Times))
	fmt.Fprintf(&b, "fitness: %.4f mean\n", mean(m.Fitnesses))
	fmt.Fprintf(&b, "inlier rmse: %.4f mean\n", mean(m.RMSEs))
	fmt.Fprintf(&b, "distance travelled: %.3f\n", sum(m.Distances))
	if len(m.Err3D) > 0 {
		fmt.Fprintf(&b, "position error: %.3f mean 2d, %.3f mean 3d\n", mean(m.Err2D), mean(m.Err3D))
	}
	if timer != nil {
		for _, task := range timer.Timings() {
			fmt.Fprintf(&b, "  %-24s %.3fs\n", task.Name, task.Total.Seconds())
		}
	}
	return b.String()
}
