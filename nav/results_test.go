package nav

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestResultsSaveRoundTrip(t *testing.T) {
	m := NewRunMetrics()
	m.AppendStep(0.5, 0.9, 0.01, 1.2)
	traj := NewTrajectory()
	traj.Append(r3.Vector{X: 1, Y: 2, Z: 3})

	results := buildResults(m, traj)
	path := filepath.Join(t.TempDir(), "out", "run.json")
	test.That(t, results.Save(path), test.ShouldBeNil)

	raw, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	var got Results
	test.That(t, json.Unmarshal(raw, &got), test.ShouldBeNil)
	test.That(t, got.Fitnesses, test.ShouldResemble, []float64{0.9})
	test.That(t, got.Trajectory, test.ShouldResemble, []float64{1, 2, 3})
}

func TestExpandSavePath(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	got := ExpandSavePath("out/[source]_[time]", "/data/drives/route66.pcap", now)
	test.That(t, got, test.ShouldEqual, "out/route66_2024-03-15_10-30-00")

	// templates without tokens pass through unchanged
	test.That(t, ExpandSavePath("out/run", "x", now), test.ShouldEqual, "out/run")
}
