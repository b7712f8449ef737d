package align

import (
	"context"

	"github.com/roadscan/lidarnav/pointcloud"
	"github.com/roadscan/lidarnav/spatialmath"
)

// DownsampleFirst runs its inner aligner on voxel-downsampled copies of both
// clouds to find a coarse seed, then refines on the full clouds.
type DownsampleFirst struct {
	inner     Aligner
	voxelSize float64
}

// NewDownsampleFirst wraps an aligner with a coarse downsampled pass.
func NewDownsampleFirst(inner Aligner, voxelSize float64) *DownsampleFirst {
	if voxelSize <= 0 {
		voxelSize = DefaultSeedVoxelSize
	}
	return &DownsampleFirst{inner: inner, voxelSize: voxelSize}
}

// Align implements Aligner. A caller-provided initial guess skips the
// coarse pass.
func (df *DownsampleFirst) Align(
	ctx context.Context,
	source, target pointcloud.PointCloud,
	opts Options,
) (Result, error) {
	if opts.InitialGuess == nil {
		srcDown, err := pointcloud.VoxelDownsample(source, df.voxelSize)
		if err != nil {
			return Result{}, err
		}
		dstDown, err := pointcloud.VoxelDownsample(target, df.voxelSize)
		if err != nil {
			return Result{}, err
		}
		seed, err := df.inner.Align(ctx, srcDown, dstDown, opts)
		if err != nil {
			return Result{}, err
		}
		if seed.Fitness > 0 {
			opts.InitialGuess = &seed.Pose
		}
	}
	return df.inner.Align(ctx, source, target, opts)
}

// CoarseSeeded seeds refinement with the translation between the cloud
// centroids, standing in for a full global registration pre-pass while
// keeping the same contract shape.
type CoarseSeeded struct {
	inner Aligner
}

// NewCoarseSeeded wraps an aligner with a centroid-shift seed.
func NewCoarseSeeded(inner Aligner) *CoarseSeeded {
	return &CoarseSeeded{inner: inner}
}

// Align implements Aligner.
func (cs *CoarseSeeded) Align(
	ctx context.Context,
	source, target pointcloud.PointCloud,
	opts Options,
) (Result, error) {
	if opts.InitialGuess == nil && source.Size() > 0 && target.Size() > 0 {
		srcMeta := source.MetaData()
		dstMeta := target.MetaData()
		shift := dstMeta.Center(target.Size()).Sub(srcMeta.Center(source.Size()))
		seed := spatialmath.NewPoseFromTranslation(shift)
		opts.InitialGuess = &seed
	}
	return cs.inner.Align(ctx, source, target, opts)
}
