package nav

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/roadscan/lidarnav/pointcloud"
)

// engineCore carries the state and bookkeeping shared by both fusion
// modes: the exclusively owned model, the trajectory, metrics, phase
// timer, and the compaction trigger.
type engineCore struct {
	cfg       Config
	logger    golog.Logger
	observers []Observer

	model   pointcloud.PointCloud
	traj    *Trajectory
	metrics *RunMetrics
	timer   *TaskTimer

	compactCountdown int
	modelDirty       bool
	compactedOnce    bool
	steps            int

	// resultsFn, when set by the embedding engine, supplies the results
	// handed to Done observers so mode-specific fields are included.
	resultsFn func() *Results
}

func newEngineCore(cfg Config, logger golog.Logger, observers []Observer) engineCore {
	cfg = cfg.withDefaults()
	return engineCore{
		cfg:              cfg,
		logger:           logger,
		observers:        observers,
		traj:             NewTrajectory(),
		metrics:          NewRunMetrics(),
		timer:            NewTaskTimer(),
		compactCountdown: cfg.CompactEveryNFrames,
	}
}

// run drives the loop: one step runs to completion before the next begins
// and cancellation is honored only between steps, so an interrupted run
// keeps every fully applied step. End of stream terminates successfully.
func (e *engineCore) run(
	ctx context.Context,
	source FrameSource,
	step func(context.Context, pointcloud.PointCloud) error,
) error {
	e.timer.Reset()
	for {
		if err := ctx.Err(); err != nil {
			e.reportInterrupted()
			return err
		}
		if e.cfg.FrameLimit > 0 && e.steps >= e.cfg.FrameLimit {
			break
		}

		frame, err := source.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				e.reportInterrupted()
				return err
			}
			return errors.Wrap(err, "frame source failed")
		}
		if frame == nil {
			break
		}

		if err := step(ctx, frame); err != nil {
			if ctx.Err() != nil {
				e.reportInterrupted()
			}
			return err
		}
		e.steps++
	}

	return e.finalize()
}

// maybeCompact runs the periodic compaction trigger after a fuse.
func (e *engineCore) maybeCompact() error {
	e.compactCountdown--
	if e.compactCountdown > 0 {
		return nil
	}
	if err := e.compact(); err != nil {
		return err
	}
	e.compactCountdown = e.cfg.CompactEveryNFrames
	return nil
}

func (e *engineCore) compact() error {
	compacted, err := pointcloud.VoxelDownsample(e.model, e.cfg.VoxelResolution)
	if err != nil {
		return err
	}
	e.model = compacted
	e.modelDirty = false
	e.compactedOnce = true
	e.timer.Time("downsampling")
	return nil
}

// finalize guarantees the model is compacted before observers receive it,
// then emits the end-of-run summary and results.
func (e *engineCore) finalize() error {
	if e.model != nil && (e.modelDirty || !e.compactedOnce) {
		if err := e.compact(); err != nil {
			return err
		}
	}
	e.logger.Infof("run complete\n%s", e.metrics.Summary(e.timer))
	results := e.Results()
	if e.resultsFn != nil {
		results = e.resultsFn()
	}
	for _, obs := range e.observers {
		obs.Done(results)
	}
	return nil
}

func (e *engineCore) reportInterrupted() {
	e.logger.Warnf("run interrupted; results so far:\n%s", e.metrics.Summary(e.timer))
}

func (e *engineCore) notifyStep() {
	info := StepInfo{
		Index:      e.steps,
		Model:      e.model,
		Trajectory: e.traj,
		Metrics:    e.metrics,
	}
	for _, obs := range e.observers {
		obs.Step(info)
	}
}

// Model returns the fused model accumulated so far.
func (e *engineCore) Model() pointcloud.PointCloud {
	return e.model
}

// Trajectory returns the recovered path so far.
func (e *engineCore) Trajectory() *Trajectory {
	return e.traj
}

// Metrics returns the per-step records so far.
func (e *engineCore) Metrics() *RunMetrics {
	return e.metrics
}

// Timer returns the run's phase timer.
func (e *engineCore) Timer() *TaskTimer {
	return e.timer
}

// Results assembles the structured run record from the state accumulated
// so far; it remains usable after an interrupted run.
func (e *engineCore) Results() *Results {
	return buildResults(e.metrics, e.traj)
}
