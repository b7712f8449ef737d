package pointcloud

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPointCloudBasic(t *testing.T) {
	pc := New()

	p0 := NewVector(0, 0, 0)
	d0 := NewColoredData(color.NRGBA{R: 255, A: 255})

	test.That(t, pc.Set(p0, d0), test.ShouldBeNil)
	d, got := pc.At(0, 0, 0)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d, test.ShouldResemble, d0)

	_, got = pc.At(1, 0, 1)
	test.That(t, got, test.ShouldBeFalse)

	p1 := NewVector(1, 0, 1)
	d1 := NewBasicData().SetIntensity(17)
	test.That(t, pc.Set(p1, d1), test.ShouldBeNil)

	d, got = pc.At(1, 0, 1)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d, test.ShouldResemble, d1)
	test.That(t, d, test.ShouldNotResemble, d0)

	p2 := NewVector(-1, -2, 1)
	test.That(t, pc.Set(p2, NewBasicData()), test.ShouldBeNil)

	count := 0
	pc.Iterate(func(p r3.Vector, d Data) bool {
		count++
		return true
	})
	test.That(t, count, test.ShouldEqual, 3)
	test.That(t, pc.Size(), test.ShouldEqual, 3)

	test.That(t, CloudContains(pc, 1, 1, 1), test.ShouldBeFalse)
	test.That(t, CloudContains(pc, 1, 0, 1), test.ShouldBeTrue)

	// setting an existing position replaces the payload, not the point
	test.That(t, pc.Set(p1, d0), test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 3)
}

func TestPointCloudMetaData(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(-1, -2, 5), nil), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(582, 12, 0), NewColoredData(color.NRGBA{B: 5, A: 255})), test.ShouldBeNil)

	meta := pc.MetaData()
	test.That(t, meta.HasColor, test.ShouldBeTrue)
	test.That(t, meta.HasNormals, test.ShouldBeFalse)
	test.That(t, meta.MinX, test.ShouldEqual, -1.0)
	test.That(t, meta.MaxX, test.ShouldEqual, 582.0)
	test.That(t, meta.MinY, test.ShouldEqual, -2.0)
	test.That(t, meta.MaxY, test.ShouldEqual, 12.0)
	test.That(t, meta.MinZ, test.ShouldEqual, 0.0)
	test.That(t, meta.MaxZ, test.ShouldEqual, 5.0)

	mid := meta.BoundingBoxMiddle()
	test.That(t, mid.X, test.ShouldEqual, 290.5)
	test.That(t, mid.Y, test.ShouldEqual, 5.0)
	test.That(t, mid.Z, test.ShouldEqual, 2.5)

	center := meta.Center(pc.Size())
	test.That(t, center.X, test.ShouldEqual, 290.5)
	test.That(t, center.Y, test.ShouldEqual, 5.0)
	test.That(t, center.Z, test.ShouldEqual, 2.5)
}

func TestCloneDataDoesNotAlias(t *testing.T) {
	d := NewColoredData(color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	d.SetNormal(r3.Vector{Z: 1})
	c := CloneData(d)
	c.SetNormal(r3.Vector{X: 1})
	test.That(t, d.Normal(), test.ShouldResemble, r3.Vector{Z: 1})
	r, g, b := c.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{10, 20, 30})
}
