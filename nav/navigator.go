package nav

import (
	"context"

	"github.com/edaniels/golog"

	"github.com/roadscan/lidarnav/align"
	"github.com/roadscan/lidarnav/pointcloud"
)

// Navigator is the frame-to-model fusion engine. Each new frame is aligned
// against the previous frame, the running model is re-based into the new
// frame's coordinate system by the resulting transform, and the frame's
// points are fused in.
type Navigator struct {
	engineCore

	source  FrameSource
	aligner align.Aligner

	prev pointcloud.PointCloud

	// deadReckoned integrates per-step movements from the position the
	// source reported at the first frame, for cross-checking against the
	// source's later reports. Nil when the source carries no positions.
	deadReckoned *pointcloud.Vec3
	estimated    *Trajectory
	actual       *Trajectory
}

// NewNavigator assembles a relative-mode engine.
func NewNavigator(
	cfg Config,
	source FrameSource,
	aligner align.Aligner,
	logger golog.Logger,
	observers ...Observer,
) *Navigator {
	n := &Navigator{
		engineCore: newEngineCore(cfg, logger, observers),
		source:     source,
		aligner:    aligner,
		estimated:  NewTrajectory(),
		actual:     NewTrajectory(),
	}
	n.resultsFn = n.Results
	return n
}

// Run drains the frame source to exhaustion or the configured frame
// limit. End of stream terminates the loop successfully. Cancellation
// between steps emits the progress summary and returns the context error
// with the model and trajectory accumulated so far intact.
func (n *Navigator) Run(ctx context.Context) error {
	return n.run(ctx, n.source, n.step)
}

func (n *Navigator) step(ctx context.Context, frame pointcloud.PointCloud) error {
	frame = pointcloud.EstimateNormals(frame, pointcloud.DefaultNormalRadius, pointcloud.DefaultNormalMaxNeighbors)
	n.timer.Time("normal estimation")

	if n.prev == nil {
		// the very first frame seeds the reference; no alignment runs
		n.model = frame
		n.prev = frame
		n.traj.Append(pointcloud.NewVector(0, 0, 0))
		if reported, ok := n.source.CurrentPosition(); ok {
			n.deadReckoned = &reported
		}
		n.metrics.AppendStep(0, 1, 0, 0)
		n.modelDirty = true
		n.notifyStep()
		return nil
	}

	res, err := n.aligner.Align(ctx, n.prev, frame, align.Options{
		MaxIterations:             n.cfg.MaxAlignIterations,
		MaxCorrespondenceDistance: n.cfg.MaxAlignDistance,
	})
	if err != nil {
		return err
	}
	registration := n.timer.Time("registration")

	movement := res.Pose.Translation()
	if res.Fitness == 0 {
		// a degenerate frame still consumes a trajectory slot so the
		// one-position-per-frame invariant holds
		n.logger.Warnf("step %d aligned with zero fitness; keeping position", n.steps)
	}

	// each step's transform is relative to the newest frame: re-express the
	// whole path through it, then re-base the model before fusing
	n.traj.Advance(res.Pose)
	n.compareWithPositionSource(movement)
	n.timer.Time("book keeping")

	rebased, err := pointcloud.Transformed(n.model, res.Pose)
	if err != nil {
		return err
	}
	n.timer.Time("frame transformation")

	if err := pointcloud.MergeInto(rebased, frame); err != nil {
		return err
	}
	n.model = rebased
	n.modelDirty = true
	n.timer.Time("cloud merging")

	if err := n.maybeCompact(); err != nil {
		return err
	}

	n.metrics.AppendStep(registration.Seconds(), res.Fitness, res.InlierRMSE, movement.Norm())
	n.prev = frame
	n.notifyStep()
	return nil
}

// compareWithPositionSource dead-reckons the sensor's world position by
// integrating per-step movements from the first reported position, and
// records its divergence from the source's own report.
func (n *Navigator) compareWithPositionSource(movement pointcloud.Vec3) {
	if n.deadReckoned == nil {
		return
	}
	reported, ok := n.source.CurrentPosition()
	if !ok {
		return
	}
	next := n.deadReckoned.Add(movement)
	n.deadReckoned = &next
	n.estimated.Append(next)
	n.actual.Append(reported)
	n.metrics.AppendPositionError(reported.Sub(next))
}

// EstimatedTrajectory returns the dead-reckoned world positions; empty
// when the source carries no position records.
func (n *Navigator) EstimatedTrajectory() *Trajectory {
	return n.estimated
}

// ActualTrajectory returns the positions the source itself reported.
func (n *Navigator) ActualTrajectory() *Trajectory {
	return n.actual
}

// Results includes the dead-reckoned and reported world coordinates when a
// positioning source was present.
func (n *Navigator) Results() *Results {
	results := n.engineCore.Results()
	results.EstimatedCoordinates = n.estimated.Flat()
	results.ActualCoordinates = n.actual.Flat()
	return results
}
