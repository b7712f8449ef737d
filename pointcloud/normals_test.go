package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestEstimateNormalsOnPlane(t *testing.T) {
	// a flat patch at z = -2, below the sensor origin
	pc := New()
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			p := r3.Vector{X: float64(i) * 0.02, Y: float64(j) * 0.02, Z: -2}
			test.That(t, pc.Set(p, NewBasicData()), test.ShouldBeNil)
		}
	}
	test.That(t, pc.MetaData().HasNormals, test.ShouldBeFalse)

	out := EstimateNormals(pc, DefaultNormalRadius, DefaultNormalMaxNeighbors)
	test.That(t, out.MetaData().HasNormals, test.ShouldBeTrue)

	out.Iterate(func(p r3.Vector, d Data) bool {
		test.That(t, d.HasNormal(), test.ShouldBeTrue)
		n := d.Normal()
		test.That(t, math.Abs(n.Norm()-1), test.ShouldBeLessThan, 1e-9)
		// plane normal is ±Z, oriented back toward the sensor
		test.That(t, math.Abs(n.Z), test.ShouldBeGreaterThan, 0.999)
		test.That(t, n.Dot(p), test.ShouldBeLessThanOrEqualTo, 0)
		return true
	})
}

func TestEstimateNormalsLazy(t *testing.T) {
	pc := New()
	for i := 0; i < 10; i++ {
		p := r3.Vector{X: float64(i) * 0.01, Y: 1, Z: 1}
		test.That(t, pc.Set(p, NewBasicData()), test.ShouldBeNil)
	}
	once := EstimateNormals(pc, DefaultNormalRadius, DefaultNormalMaxNeighbors)
	test.That(t, once.MetaData().HasNormals, test.ShouldBeTrue)

	// a second call sees HasNormals and returns the same cloud untouched:
	// a hand-planted normal survives because nothing is recomputed
	sentinel := r3.Vector{X: 1}
	planted := NewBasicData().SetNormal(sentinel)
	test.That(t, once.Set(r3.Vector{Y: 1, Z: 1}, planted), test.ShouldBeNil)

	twice := EstimateNormals(once, DefaultNormalRadius, DefaultNormalMaxNeighbors)
	test.That(t, twice, test.ShouldEqual, once)
	d, ok := twice.At(0, 1, 1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d.Normal(), test.ShouldResemble, sentinel)
}

func TestSetReplacementRecordsAttributes(t *testing.T) {
	pc := New()
	p := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, pc.Set(p, nil), test.ShouldBeNil)
	test.That(t, pc.MetaData().HasNormals, test.ShouldBeFalse)

	// replacing an existing point's payload surfaces its attributes
	test.That(t, pc.Set(p, NewBasicData().SetNormal(r3.Vector{Z: 1})), test.ShouldBeNil)
	meta := pc.MetaData()
	test.That(t, meta.HasNormals, test.ShouldBeTrue)
	test.That(t, meta.MaxX, test.ShouldAlmostEqual, 1)
	test.That(t, pc.Size(), test.ShouldEqual, 1)
}

func TestEstimateNormalsEmpty(t *testing.T) {
	pc := New()
	out := EstimateNormals(pc, DefaultNormalRadius, DefaultNormalMaxNeighbors)
	test.That(t, out.Size(), test.ShouldEqual, 0)
	test.That(t, out.MetaData().HasNormals, test.ShouldBeFalse)
}
