package align

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/roadscan/lidarnav/pointcloud"
	"github.com/roadscan/lidarnav/spatialmath"
)

// convergence thresholds on the per-iteration incremental transform
const (
	icpTransEps = 1e-8
	icpRotEps   = 1e-8
)

// ICP is an iterative-closest-point aligner with SVD-based rigid transform
// estimation per iteration and a voxel-hash nearest neighbor index over the
// target.
type ICP struct {
	logger golog.Logger
}

// NewICP returns a plain ICP aligner.
func NewICP(logger golog.Logger) *ICP {
	return &ICP{logger: logger}
}

// Align implements Aligner.
func (icp *ICP) Align(
	ctx context.Context,
	source, target pointcloud.PointCloud,
	opts Options,
) (Result, error) {
	opts = opts.normalized()
	pose := opts.guess()

	if source.Size() == 0 || target.Size() == 0 {
		icp.logger.Warnf("alignment with empty cloud (source %d, target %d points)", source.Size(), target.Size())
		return Result{Pose: pose, Fitness: 0, InlierRMSE: 0}, nil
	}

	index := newNeighborIndex(target, opts.MaxCorrespondenceDistance)

	srcPoints := make([]r3.Vector, 0, source.Size())
	source.Iterate(func(p r3.Vector, d pointcloud.Data) bool {
		srcPoints = append(srcPoints, p)
		return true
	})

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		moved, matched := correspond(srcPoints, pose, index)
		if len(moved) == 0 {
			icp.logger.Warnf("alignment found no inliers after %d iterations", iter)
			return Result{Pose: opts.guess(), Fitness: 0, InlierRMSE: 0}, nil
		}

		delta, err := estimateRigid(moved, matched)
		if err != nil {
			return Result{}, err
		}
		pose = delta.Compose(pose)

		if converged(delta) {
			break
		}
	}

	moved, matched := correspond(srcPoints, pose, index)
	if len(moved) == 0 {
		return Result{Pose: opts.guess(), Fitness: 0, InlierRMSE: 0}, nil
	}
	var sqSum float64
	for i := range moved {
		d := moved[i].Sub(matched[i])
		sqSum += d.Dot(d)
	}
	return Result{
		Pose:       pose,
		Fitness:    float64(len(moved)) / float64(len(srcPoints)),
		InlierRMSE: math.Sqrt(sqSum / float64(len(moved))),
	}, nil
}

func converged(delta spatialmath.Pose) bool {
	if delta.Translation().Norm() > icpTransEps {
		return false
	}
	m := delta.Mat()
	trace := m.At(0, 0) + m.At(1, 1) + m.At(2, 2)
	angle := math.Acos(math.Max(-1, math.Min(1, (trace-1)/2)))
	return angle <= icpRotEps
}

// correspond transforms the source points by pose and pairs each with its
// nearest target point within the inlier radius.
func correspond(src []r3.Vector, pose spatialmath.Pose, index *neighborIndex) (moved, matched []r3.Vector) {
	for _, p := range src {
		q := pose.TransformPoint(p)
		if nn, ok := index.nearest(q); ok {
			moved = append(moved, q)
			matched = append(matched, nn)
		}
	}
	return moved, matched
}

// estimateRigid solves the orthogonal Procrustes problem between paired
// point sets via SVD of the cross covariance (Kabsch), returning the rigid
// transform that best maps src onto dst.
func estimateRigid(src, dst []r3.Vector) (spatialmath.Pose, error) {
	n := float64(len(src))
	var cs, cd r3.Vector
	for i := range src {
		cs = cs.Add(src[i])
		cd = cd.Add(dst[i])
	}
	cs = cs.Mul(1 / n)
	cd = cd.Mul(1 / n)

	h := mat.NewDense(3, 3, nil)
	for i := range src {
		s := src[i].Sub(cs)
		d := dst[i].Sub(cd)
		h.Set(0, 0, h.At(0, 0)+s.X*d.X)
		h.Set(0, 1, h.At(0, 1)+s.X*d.Y)
		h.Set(0, 2, h.At(0, 2)+s.X*d.Z)
		h.Set(1, 0, h.At(1, 0)+s.Y*d.X)
		h.Set(1, 1, h.At(1, 1)+s.Y*d.Y)
		h.Set(1, 2, h.At(1, 2)+s.Y*d.Z)
		h.Set(2, 0, h.At(2, 0)+s.Z*d.X)
		h.Set(2, 1, h.At(2, 1)+s.Z*d.Y)
		h.Set(2, 2, h.At(2, 2)+s.Z*d.Z)
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return spatialmath.Pose{}, errors.New("cross covariance SVD failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var rot mat.Dense
	rot.Mul(&v, u.T())
	if mat.Det(&rot) < 0 {
		// reflection; flip the axis of least significance
		flip := mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, -1,
		})
		var vf mat.Dense
		vf.Mul(&v, flip)
		rot.Mul(&vf, u.T())
	}

	rcs := r3.Vector{
		X: rot.At(0, 0)*cs.X + rot.At(0, 1)*cs.Y + rot.At(0, 2)*cs.Z,
		Y: rot.At(1, 0)*cs.X + rot.At(1, 1)*cs.Y + rot.At(1, 2)*cs.Z,
		Z: rot.At(2, 0)*cs.X + rot.At(2, 1)*cs.Y + rot.At(2, 2)*cs.Z,
	}
	trans := cd.Sub(rcs)

	return spatialmath.NewPose(&rot, trans)
}

// neighborIndex is a voxel hash over the target cloud with cell edge equal
// to the correspondence radius, so a nearest inlier is always within the 27
// cells around a query point.
type neighborIndex struct {
	cells  map[pointcloud.VoxelCoords][]r3.Vector
	radius float64
}

func newNeighborIndex(cloud pointcloud.PointCloud, radius float64) *neighborIndex {
	index := &neighborIndex{
		cells:  make(map[pointcloud.VoxelCoords][]r3.Vector, cloud.Size()),
		radius: radius,
	}
	cloud.Iterate(func(p r3.Vector, d pointcloud.Data) bool {
		c := pointcloud.GetVoxelCoordinates(p, radius)
		index.cells[c] = append(index.cells[c], p)
		return true
	})
	return index
}

func (index *neighborIndex) nearest(q r3.Vector) (r3.Vector, bool) {
	center := pointcloud.GetVoxelCoordinates(q, index.radius)
	bestSq := index.radius * index.radius
	var best r3.Vector
	found := false
	for di := int64(-1); di <= 1; di++ {
		for dj := int64(-1); dj <= 1; dj++ {
			for dk := int64(-1); dk <= 1; dk++ {
				key := pointcloud.VoxelCoords{I: center.I + di, J: center.J + dj, K: center.K + dk}
				for _, p := range index.cells[key] {
					d := p.Sub(q)
					if sq := d.Dot(d); sq <= bestSq {
						bestSq = sq
						best = p
						found = true
					}
				}
			}
		}
	}
	return best, found
}
