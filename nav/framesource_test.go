package nav

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/roadscan/lidarnav/pointcloud"
)

func writeFrameFiles(t *testing.T, clouds []pointcloud.PointCloud) string {
	t.Helper()
	dir := t.TempDir()
	for i, cloud := range clouds {
		fn := filepath.Join(dir, "frame_"+string(rune('a'+i))+".pcd")
		f, err := os.Create(fn)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pointcloud.WritePCD(cloud, f, pointcloud.PCDAscii), test.ShouldBeNil)
		test.That(t, f.Close(), test.ShouldBeNil)
	}
	return dir
}

func singlePointCloud(t *testing.T, p r3.Vector) pointcloud.PointCloud {
	t.Helper()
	pc := pointcloud.New()
	test.That(t, pc.Set(p, nil), test.ShouldBeNil)
	return pc
}

func TestFileSourceOrderAndEOS(t *testing.T) {
	dir := writeFrameFiles(t, []pointcloud.PointCloud{
		singlePointCloud(t, r3.Vector{X: 1}),
		singlePointCloud(t, r3.Vector{X: 2}),
	})
	src, err := NewFileSource(dir, FileSourceConfig{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.Count(), test.ShouldEqual, 2)

	ctx := context.Background()
	first, err := src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.MetaData().MaxX, test.ShouldAlmostEqual, 1, 1e-5)

	second, err := src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.MetaData().MaxX, test.ShouldAlmostEqual, 2, 1e-5)

	end, err := src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, end, test.ShouldBeNil)

	src.Reset()
	again, err := src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.MetaData().MaxX, test.ShouldAlmostEqual, 1, 1e-5)
}

func TestFileSourceSkip(t *testing.T) {
	dir := writeFrameFiles(t, []pointcloud.PointCloud{
		singlePointCloud(t, r3.Vector{X: 1}),
		singlePointCloud(t, r3.Vector{X: 2}),
		singlePointCloud(t, r3.Vector{X: 3}),
	})
	src, err := NewFileSource(dir, FileSourceConfig{Skip: 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.Count(), test.ShouldEqual, 1)

	frame, err := src.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.MetaData().MaxX, test.ShouldAlmostEqual, 3, 1e-5)

	_, err = NewFileSource(dir, FileSourceConfig{Skip: 3})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFileSourceEmptyDir(t *testing.T) {
	_, err := NewFileSource(t.TempDir(), FileSourceConfig{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFileSourceFilters(t *testing.T) {
	pc := pointcloud.New()
	test.That(t, pc.Set(r3.Vector{X: 1}, nil), test.ShouldBeNil)     // foreground
	test.That(t, pc.Set(r3.Vector{X: 10}, nil), test.ShouldBeNil)    // keep
	test.That(t, pc.Set(r3.Vector{X: 100}, nil), test.ShouldBeNil)   // beyond range
	dir := writeFrameFiles(t, []pointcloud.PointCloud{pc})

	src, err := NewFileSource(dir, FileSourceConfig{
		MaxRange:         50,
		RemoveForeground: true,
		ForegroundRadius: 2,
	})
	test.That(t, err, test.ShouldBeNil)
	frame, err := src.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Size(), test.ShouldEqual, 1)
	test.That(t, frame.MetaData().MaxX, test.ShouldAlmostEqual, 10, 1e-5)
}

func TestFileSourcePositions(t *testing.T) {
	dir := writeFrameFiles(t, []pointcloud.PointCloud{
		singlePointCloud(t, r3.Vector{X: 1}),
		singlePointCloud(t, r3.Vector{X: 2}),
	})
	positions := []r3.Vector{{X: 10}, {X: 20}}
	src, err := NewFileSource(dir, FileSourceConfig{Positions: positions})
	test.That(t, err, test.ShouldBeNil)

	_, ok := src.CurrentPosition()
	test.That(t, ok, test.ShouldBeFalse)

	_, err = src.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	pos, ok := src.CurrentPosition()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pos, test.ShouldResemble, r3.Vector{X: 10})
}

func TestFileSourceSkipKeepsPositionsAligned(t *testing.T) {
	dir := writeFrameFiles(t, []pointcloud.PointCloud{
		singlePointCloud(t, r3.Vector{X: 1}),
		singlePointCloud(t, r3.Vector{X: 2}),
		singlePointCloud(t, r3.Vector{X: 3}),
	})

	positions := []r3.Vector{{X: 10}, {X: 20}, {X: 30}}
	src, err := NewFileSource(dir, FileSourceConfig{Skip: 1, Positions: positions})
	test.That(t, err, test.ShouldBeNil)

	_, err = src.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	pos, ok := src.CurrentPosition()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pos, test.ShouldResemble, r3.Vector{X: 20})

	// a positions list shorter than the skip count has no records left for
	// the surviving frames
	short, err := NewFileSource(dir, FileSourceConfig{Skip: 2, Positions: positions[:1]})
	test.That(t, err, test.ShouldBeNil)
	_, err = short.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	_, ok = short.CurrentPosition()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFileSourceCancelled(t *testing.T) {
	dir := writeFrameFiles(t, []pointcloud.PointCloud{singlePointCloud(t, r3.Vector{X: 1})})
	src, err := NewFileSource(dir, FileSourceConfig{})
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
