package nav

import (
	"github.com/roadscan/lidarnav/pointcloud"
)

// StepInfo is handed to observers after each completed fusion step. The
// model reference is owned by the engine; observers must not mutate it.
type StepInfo struct {
	// Index is the zero-based frame index of the completed step.
	Index int
	// Model is the running fused model after this step.
	Model pointcloud.PointCloud
	// Trajectory is the path recovered so far.
	Trajectory *Trajectory
	// Metrics are the run's append-only records including this step.
	Metrics *RunMetrics
}

// Observer receives progress while a run executes. Observers are invoked
// synchronously inside the step, so a live view must refresh without
// blocking; any blocking final view belongs after Done.
type Observer interface {
	Step(info StepInfo)
	Done(results *Results)
}

// ObserverFuncs adapts plain functions to the Observer interface; either
// may be nil.
type ObserverFuncs struct {
	OnStep func(info StepInfo)
	OnDone func(results *Results)
}

// Step implements Observer.
func (o ObserverFuncs) Step(info StepInfo) {
	if o.OnStep != nil {
		o.OnStep(info)
	}
}

// Done implements Observer.
func (o ObserverFuncs) Done(results *Results) {
	if o.OnDone != nil {
		o.OnDone(results)
	}
}
