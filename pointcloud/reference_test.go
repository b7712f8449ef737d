package pointcloud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"go.viam.com/utils"
)

func writeTempPCD(t *testing.T, dir string, pts []r3.Vector) string {
	t.Helper()
	pc := NewWithPrealloc(len(pts))
	for _, p := range pts {
		test.That(t, pc.Set(p, NewBasicData()), test.ShouldBeNil)
	}
	fn := filepath.Join(dir, "reference.pcd")
	f, err := os.Create(fn)
	test.That(t, err, test.ShouldBeNil)
	defer utils.UncheckedErrorFunc(f.Close)
	test.That(t, WritePCD(pc, f, PCDBinary), test.ShouldBeNil)
	return fn
}

func TestLoadReferenceCentersCloud(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()
	fn := writeTempPCD(t, dir, []r3.Vector{
		{X: 10, Y: 20, Z: 30},
		{X: 14, Y: 26, Z: 38},
	})

	ref, err := LoadReference(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ref.Cloud.Size(), test.ShouldEqual, 2)
	test.That(t, ref.Offset.Sub(r3.Vector{X: 12, Y: 23, Z: 34}).Norm(), test.ShouldBeLessThan, 1e-3)

	// centered cloud straddles the origin
	meta := ref.Cloud.MetaData()
	test.That(t, meta.BoundingBoxMiddle().Norm(), test.ShouldBeLessThan, 1e-3)
}

func TestReferenceSidecarRoundTrip(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()
	fn := writeTempPCD(t, dir, []r3.Vector{
		{X: 100, Y: 0, Z: 0},
		{X: 104, Y: 2, Z: 6},
		{X: 102, Y: 1, Z: 3},
	})

	fromRaw, err := LoadReference(fn, logger)
	test.That(t, err, test.ShouldBeNil)

	cloudPath := filepath.Join(dir, "processed.pcd")
	sidecarPath := filepath.Join(dir, "processed.json")
	test.That(t, fromRaw.SaveProcessed(cloudPath, sidecarPath), test.ShouldBeNil)

	fromSidecar, err := LoadReference(sidecarPath, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, fromSidecar.Cloud.Size(), test.ShouldEqual, fromRaw.Cloud.Size())
	test.That(t, fromSidecar.Offset.Sub(fromRaw.Offset).Norm(), test.ShouldBeLessThan, 1e-9)
}

func TestLoadReferenceFailures(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()

	_, err := LoadReference(filepath.Join(dir, "missing.pcd"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte("{not json"), 0o644), test.ShouldBeNil)
	_, err = LoadReference(bad, logger)
	test.That(t, err, test.ShouldNotBeNil)

	empty := filepath.Join(dir, "empty.json")
	test.That(t, os.WriteFile(empty, []byte(`{"offset":[0,0,0]}`), 0o644), test.ShouldBeNil)
	_, err = LoadReference(empty, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
