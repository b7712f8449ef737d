package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// Vec3 is a three-dimensional point or direction.
type Vec3 = r3.Vector

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Data describes data associated with a single point within a PointCloud.
type Data interface {
	// HasColor returns whether or not this point is colored.
	HasColor() bool

	// RGB255 returns, if colored, the RGB components of the color.
	RGB255() (uint8, uint8, uint8)

	// Color returns the native color of the point.
	Color() color.Color

	// SetColor sets the given color on the point.
	SetColor(c color.NRGBA) Data

	// Intensity returns the sensor return intensity, 0 when absent.
	Intensity() uint16

	// SetIntensity sets the sensor return intensity.
	SetIntensity(v uint16) Data

	// HasNormal returns whether a surface normal has been estimated for
	// this point.
	HasNormal() bool

	// Normal returns the unit surface normal, if estimated.
	Normal() r3.Vector

	// SetNormal sets the unit surface normal.
	SetNormal(n r3.Vector) Data
}

type basicData struct {
	hasColor bool
	c        color.NRGBA

	intensity uint16

	hasNormal bool
	normal    r3.Vector
}

// NewBasicData returns a point payload that is solely positionally based.
func NewBasicData() Data {
	return &basicData{}
}

// NewColoredData returns a point payload with a color.
func NewColoredData(c color.NRGBA) Data {
	return &basicData{c: c, hasColor: true}
}

func (bp *basicData) SetColor(c color.NRGBA) Data {
	bp.c = c
	bp.hasColor = true
	return bp
}

func (bp *basicData) HasColor() bool {
	return bp.hasColor
}

func (bp *basicData) RGB255() (uint8, uint8, uint8) {
	return bp.c.R, bp.c.G, bp.c.B
}

func (bp *basicData) Color() color.Color {
	return &bp.c
}

func (bp *basicData) Intensity() uint16 {
	return bp.intensity
}

func (bp *basicData) SetIntensity(v uint16) Data {
	bp.intensity = v
	return bp
}

func (bp *basicData) HasNormal() bool {
	return bp.hasNormal
}

func (bp *basicData) Normal() r3.Vector {
	return bp.normal
}

func (bp *basicData) SetNormal(n r3.Vector) Data {
	bp.normal = n
	bp.hasNormal = true
	return bp
}

// CloneData copies a payload so that transformed clouds do not alias the
// source cloud's attributes.
func CloneData(d Data) Data {
	if d == nil {
		return nil
	}
	out := &basicData{}
	if d.HasColor() {
		r, g, b := d.RGB255()
		out.SetColor(color.NRGBA{R: r, G: g, B: b, A: 255})
	}
	out.SetIntensity(d.Intensity())
	if d.HasNormal() {
		out.SetNormal(d.Normal())
	}
	return out
}
