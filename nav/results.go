package nav

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Results is the structured record persisted per run: the per-step metric
// arrays, the full trajectory as a flat coordinate list, and, in absolute
// mode, the estimated and independently reported coordinates.
type Results struct {
	Times     []float64 `json:"time_usages"`
	Fitnesses []float64 `json:"fitnesses"`
	RMSEs     []float64 `json:"rmses"`
	Distances []float64 `json:"distances"`

	Trajectory []float64 `json:"trajectory"`

	EstimatedCoordinates []float64 `json:"estimated_coordinates,omitempty"`
	ActualCoordinates    []float64 `json:"actual_coordinates,omitempty"`

	PositionError2D []float64 `json:"position_error_2d,omitempty"`
	PositionError3D []float64 `json:"position_error_3d,omitempty"`
}

func buildResults(metrics *RunMetrics, trajectory *Trajectory) *Results {
	return &Results{
		Times:           metrics.Times,
		Fitnesses:       metrics.Fitnesses,
		RMSEs:           metrics.RMSEs,
		Distances:       metrics.Distances,
		Trajectory:      trajectory.Flat(),
		PositionError2D: metrics.Err2D,
		PositionError3D: metrics.Err3D,
	}
}

// Save writes the results as indented JSON, creating parent directories as
// needed.
func (r *Results) Save(path string) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o644)
}

const saveTimeLayout = "2006-01-02_15-04-05"

// ExpandSavePath substitutes the [time] and [source] tokens of a save path
// template with the run timestamp and the frame source name.
func ExpandSavePath(template, sourceName string, now time.Time) string {
	out := strings.ReplaceAll(template, "[time]", now.Format(saveTimeLayout))
	base := filepath.Base(sourceName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(out, "[source]", base)
}
