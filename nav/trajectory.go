package nav

import (
	"github.com/golang/geo/r3"

	"github.com/roadscan/lidarnav/spatialmath"
)

// Trajectory is the ordered sequence of cumulative sensor positions, one
// per fused frame, plus the implicit line segments connecting consecutive
// positions. Positions are append-only; the only whole-path mutation is the
// rigid re-expression used in relative mode.
type Trajectory struct {
	positions []r3.Vector
}

// NewTrajectory returns an empty trajectory.
func NewTrajectory() *Trajectory {
	return &Trajectory{}
}

// Append records the next cumulative sensor position.
func (t *Trajectory) Append(p r3.Vector) {
	t.positions = append(t.positions, p)
}

// Advance applies a step transform expressed relative to the newest frame:
// all previously recorded positions are re-expressed through the transform
// so the path keeps its shape while its origin shifts, then the transform's
// translation is appended as the new position. Rigid transforms preserve
// pairwise distances, so the recorded path never deforms.
func (t *Trajectory) Advance(pose spatialmath.Pose) {
	for i, p := range t.positions {
		t.positions[i] = pose.TransformPoint(p)
	}
	t.positions = append(t.positions, pose.Translation())
}

// Len returns the number of recorded positions.
func (t *Trajectory) Len() int {
	return len(t.positions)
}

// Last returns the most recent position.
func (t *Trajectory) Last() (r3.Vector, bool) {
	if len(t.positions) == 0 {
		return r3.Vector{}, false
	}
	return t.positions[len(t.positions)-1], true
}

// Positions returns a copy of the recorded positions.
func (t *Trajectory) Positions() []r3.Vector {
	out := make([]r3.Vector, len(t.positions))
	copy(out, t.positions)
	return out
}

// Segments returns index pairs of consecutive positions; there is always
// exactly one segment fewer than there are positions.
func (t *Trajectory) Segments() [][2]int {
	if len(t.positions) < 2 {
		return nil
	}
	out := make([][2]int, 0, len(t.positions)-1)
	for i := 1; i < len(t.positions); i++ {
		out = append(out, [2]int{i - 1, i})
	}
	return out
}

// Flat returns the positions as a flat x,y,z coordinate list for
// structured run output.
func (t *Trajectory) Flat() []float64 {
	out := make([]float64, 0, 3*len(t.positions))
	for _, p := range t.positions {
		out = append(out, p.X, p.Y, p.Z)
	}
	return out
}
