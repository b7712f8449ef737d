package pointcloud

import (
	"bytes"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestPCDRoundTrip(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(-0.5, 1, 2), NewColoredData(color.NRGBA{R: 251, G: 112, B: 21, A: 255})), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(582, 12, 0), NewColoredData(color.NRGBA{R: 40, G: 40, B: 40, A: 255})), test.ShouldBeNil)

	for _, pcdType := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, WritePCD(pc, &buf, pcdType), test.ShouldBeNil)

		got, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Size(), test.ShouldEqual, 2)
		test.That(t, got.MetaData().HasColor, test.ShouldBeTrue)

		// positions survive within float32 precision
		test.That(t, containsNear(got, NewVector(-0.5, 1, 2), 1e-4), test.ShouldBeTrue)
		test.That(t, containsNear(got, NewVector(582, 12, 0), 1e-2), test.ShouldBeTrue)
	}
}

func TestPCDNoColor(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(1, 2, 3), NewBasicData()), test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, WritePCD(pc, &buf, PCDBinary), test.ShouldBeNil)
	got, err := ReadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, 1)
	test.That(t, got.MetaData().HasColor, test.ShouldBeFalse)
}

func TestReadPCDRejectsGarbage(t *testing.T) {
	_, err := ReadPCD(bytes.NewBufferString("VERSION .9\nnot a pcd\n"))
	test.That(t, err, test.ShouldNotBeNil)
}
