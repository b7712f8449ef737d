// Package spatialmath defines the rigid transforms used to express sensor
// poses and to move point clouds between coordinate frames.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// orthoTol is the tolerance used when validating that a rotation block is
// orthonormal with determinant +1.
const orthoTol = 1e-9

// Pose is a rigid transform: a rotation followed by a translation, with no
// scale or shear. The zero value is not usable; use NewPose or Identity.
type Pose struct {
	rot   [9]float64 // row-major 3x3, orthonormal
	trans r3.Vector
}

// Identity returns the identity pose.
func Identity() Pose {
	return Pose{rot: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// NewPose constructs a pose from a 3x3 rotation matrix and a translation,
// validating that the rotation block is orthonormal.
func NewPose(rot *mat.Dense, trans r3.Vector) (Pose, error) {
	r, c := rot.Dims()
	if r != 3 || c != 3 {
		return Pose{}, errors.Errorf("rotation must be 3x3, got %dx%d", r, c)
	}
	var rtr mat.Dense
	rtr.Mul(rot.T(), rot)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rtr.At(i, j)-want) > orthoTol {
				return Pose{}, errors.New("rotation block is not orthonormal")
			}
		}
	}
	if det := mat.Det(rot); math.Abs(det-1) > orthoTol {
		return Pose{}, errors.Errorf("rotation block has determinant %f, want 1", det)
	}
	p := Pose{trans: trans}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p.rot[3*i+j] = rot.At(i, j)
		}
	}
	return p, nil
}

// NewPoseFromTranslation returns a pure translation pose.
func NewPoseFromTranslation(trans r3.Vector) Pose {
	p := Identity()
	p.trans = trans
	return p
}

// Translation returns the translation component. For a pose produced by an
// alignment it is the displacement of the sensor reference point, and equals
// TransformPoint applied to the origin.
func (p Pose) Translation() r3.Vector {
	return p.trans
}

// TransformPoint applies the pose to a point.
func (p Pose) TransformPoint(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.rot[0]*v.X + p.rot[1]*v.Y + p.rot[2]*v.Z + p.trans.X,
		Y: p.rot[3]*v.X + p.rot[4]*v.Y + p.rot[5]*v.Z + p.trans.Y,
		Z: p.rot[6]*v.X + p.rot[7]*v.Y + p.rot[8]*v.Z + p.trans.Z,
	}
}

// RotatePoint applies only the rotation component, used for surface normals
// which must not be translated.
func (p Pose) RotatePoint(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.rot[0]*v.X + p.rot[1]*v.Y + p.rot[2]*v.Z,
		Y: p.rot[3]*v.X + p.rot[4]*v.Y + p.rot[5]*v.Z,
		Z: p.rot[6]*v.X + p.rot[7]*v.Y + p.rot[8]*v.Z,
	}
}

// Compose returns the pose equivalent to applying q first, then p.
func (p Pose) Compose(q Pose) Pose {
	var out Pose
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += p.rot[3*i+k] * q.rot[3*k+j]
			}
			out.rot[3*i+j] = s
		}
	}
	out.trans = p.TransformPoint(q.trans)
	return out
}

// Invert returns the inverse pose.
func (p Pose) Invert() Pose {
	var out Pose
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.rot[3*i+j] = p.rot[3*j+i]
		}
	}
	t := out.RotatePoint(p.trans)
	out.trans = r3.Vector{X: -t.X, Y: -t.Y, Z: -t.Z}
	return out
}

// Mat returns the pose as a 4x4 homogeneous matrix.
func (p Pose) Mat() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, p.rot[3*i+j])
		}
	}
	m.Set(0, 3, p.trans.X)
	m.Set(1, 3, p.trans.Y)
	m.Set(2, 3, p.trans.Z)
	m.Set(3, 3, 1)
	return m
}

// AlmostEqual reports whether two poses are equal within tol, compared
// element-wise on rotation and translation.
func (p Pose) AlmostEqual(q Pose, tol float64) bool {
	for i := range p.rot {
		if math.Abs(p.rot[i]-q.rot[i]) > tol {
			return false
		}
	}
	d := p.trans.Sub(q.trans)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}
