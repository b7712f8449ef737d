package nav

import (
	"context"

	"github.com/edaniels/golog"

	"github.com/roadscan/lidarnav/align"
	"github.com/roadscan/lidarnav/pointcloud"
	"github.com/roadscan/lidarnav/spatialmath"
)

const (
	// absoluteFirstAlignDistance is the correspondence radius of the very
	// first alignment, which has no pose estimate to start from.
	absoluteFirstAlignDistance = 1e8
	// absoluteRefineAlignDistance bounds later steps, which are seeded by
	// the previous step's transform.
	absoluteRefineAlignDistance = 3.0
)

// AbsoluteNavigator is the frame-to-reference fusion engine. Every frame
// is aligned against a fixed, pre-processed reference cloud, so each
// step's transform is already expressed in the same fixed frame and its
// translation is the cumulative sensor position directly; no re-expression
// of prior movements is needed. The model accumulates fused frames but
// never drives alignment.
type AbsoluteNavigator struct {
	engineCore

	source  FrameSource
	aligner align.Aligner
	ref     *pointcloud.ReferenceCloud

	prevPose *spatialmath.Pose

	// actual is the comparison trajectory from the independent positioning
	// source, when the frame source carries one. It is never used for
	// alignment.
	actual *Trajectory
}

// NewAbsoluteNavigator assembles an absolute-mode engine around a fixed
// reference cloud.
func NewAbsoluteNavigator(
	cfg Config,
	source FrameSource,
	aligner align.Aligner,
	ref *pointcloud.ReferenceCloud,
	logger golog.Logger,
	observers ...Observer,
) *AbsoluteNavigator {
	n := &AbsoluteNavigator{
		engineCore: newEngineCore(cfg, logger, observers),
		source:     source,
		aligner:    aligner,
		ref:        ref,
		actual:     NewTrajectory(),
	}
	n.resultsFn = n.Results
	return n
}

// Run drains the frame source like the relative mode; external
// interruption leaves the partial model and trajectory usable.
func (n *AbsoluteNavigator) Run(ctx context.Context) error {
	return n.run(ctx, n.source, n.step)
}

func (n *AbsoluteNavigator) step(ctx context.Context, frame pointcloud.PointCloud) error {
	frame = pointcloud.EstimateNormals(frame, pointcloud.DefaultNormalRadius, pointcloud.DefaultNormalMaxNeighbors)
	n.timer.Time("normal estimation")

	opts := align.Options{MaxIterations: n.cfg.MaxAlignIterations}
	isFirst := n.prevPose == nil
	if isFirst {
		// no pose estimate exists yet, so the search radius must cover the
		// whole reference cloud
		opts.MaxCorrespondenceDistance = absoluteFirstAlignDistance
	} else {
		opts.MaxCorrespondenceDistance = absoluteRefineAlignDistance
		if n.cfg.MaxAlignDistance > 0 {
			opts.MaxCorrespondenceDistance = n.cfg.MaxAlignDistance
		}
		opts.InitialGuess = n.prevPose
	}

	res, err := n.aligner.Align(ctx, n.ref.Cloud, frame, opts)
	if err != nil {
		return err
	}
	registration := n.timer.Time("registration")

	if res.Fitness == 0 {
		n.logger.Warnf("step %d aligned with zero fitness; keeping position", n.steps)
	}

	// the transform's translation is the cumulative position in the
	// reference frame; movement is its delta against the previous step
	position := res.Pose.Translation()
	movement := pointcloud.NewVector(0, 0, 0)
	var rebase spatialmath.Pose
	if isFirst {
		rebase = res.Pose
	} else {
		movement = position.Sub(n.prevPose.Translation())
		rebase = res.Pose.Compose(n.prevPose.Invert())
	}
	pose := res.Pose
	n.prevPose = &pose

	n.traj.Append(position)
	n.compareWithPositionSource(position)
	n.timer.Time("book keeping")

	if n.model == nil {
		n.model = frame
		n.modelDirty = true
	} else {
		rebased, err := pointcloud.Transformed(n.model, rebase)
		if err != nil {
			return err
		}
		if err := pointcloud.MergeInto(rebased, frame); err != nil {
			return err
		}
		n.model = rebased
		n.modelDirty = true
	}
	n.timer.Time("cloud merging")

	if err := n.maybeCompact(); err != nil {
		return err
	}

	n.metrics.AppendStep(registration.Seconds(), res.Fitness, res.InlierRMSE, movement.Norm())
	n.notifyStep()
	return nil
}

// compareWithPositionSource records the independently reported position,
// translated by the reference cloud's centering offset so the two
// trajectories stay comparable.
func (n *AbsoluteNavigator) compareWithPositionSource(estimated pointcloud.Vec3) {
	reported, ok := n.source.CurrentPosition()
	if !ok {
		return
	}
	adjusted := reported.Sub(n.ref.Offset)
	n.actual.Append(adjusted)
	n.metrics.AppendPositionError(adjusted.Sub(estimated))
}

// ActualTrajectory returns the comparison trajectory built from the
// independent positioning source; empty when none was supplied.
func (n *AbsoluteNavigator) ActualTrajectory() *Trajectory {
	return n.actual
}

// Results includes the comparison coordinates when a positioning source
// was present.
func (n *AbsoluteNavigator) Results() *Results {
	results := n.engineCore.Results()
	results.EstimatedCoordinates = n.traj.Flat()
	results.ActualCoordinates = n.actual.Flat()
	return results
}
