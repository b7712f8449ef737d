// Package align provides the rigid registration capability used to overlay
// one point cloud onto another. The engine treats an Aligner as a black
// box; variants differ only in pre-processing and all return the same
// result shape.
package align

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/roadscan/lidarnav/pointcloud"
	"github.com/roadscan/lidarnav/spatialmath"
)

// Defaults mirror the registration settings used for vehicle-mounted
// scanners: consecutive frames are already roughly aligned.
const (
	DefaultMaxIterations             = 100
	DefaultMaxCorrespondenceDistance = 1.0
	// DefaultSeedVoxelSize is the compaction resolution applied before the
	// coarse pass of the downsample-first variant.
	DefaultSeedVoxelSize = 0.5
)

// Result reports a rigid alignment. Fitness is the fraction of source
// points with a close correspondence in the target; InlierRMSE is the
// root-mean-square correspondence distance over those inliers.
type Result struct {
	Pose       spatialmath.Pose
	Fitness    float64
	InlierRMSE float64
}

// Options tune a single alignment invocation.
type Options struct {
	// MaxIterations caps the iterative refinement. Zero selects the default.
	MaxIterations int
	// MaxCorrespondenceDistance is the inlier radius. Zero selects the
	// default.
	MaxCorrespondenceDistance float64
	// InitialGuess seeds the refinement; nil means identity.
	InitialGuess *spatialmath.Pose
}

func (o Options) normalized() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxCorrespondenceDistance <= 0 {
		o.MaxCorrespondenceDistance = DefaultMaxCorrespondenceDistance
	}
	return o
}

func (o Options) guess() spatialmath.Pose {
	if o.InitialGuess == nil {
		return spatialmath.Identity()
	}
	return *o.InitialGuess
}

// Aligner computes the rigid transform that best overlays source onto
// target. A source that yields no inliers (including an empty source) is
// not an error; it reports as Fitness 0 so the caller can record the step
// and move on.
type Aligner interface {
	Align(ctx context.Context, source, target pointcloud.PointCloud, opts Options) (Result, error)
}

// ByName selects an alignment strategy from run configuration.
func ByName(name string, logger golog.Logger) (Aligner, error) {
	switch name {
	case "", "icp":
		return NewICP(logger), nil
	case "downsample-first":
		return NewDownsampleFirst(NewICP(logger), DefaultSeedVoxelSize), nil
	case "coarse-seeded":
		return NewCoarseSeeded(NewICP(logger)), nil
	default:
		return nil, errors.Errorf("unknown alignment strategy %q", name)
	}
}
