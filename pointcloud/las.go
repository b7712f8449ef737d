package pointcloud

import (
	"image/color"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
)

// lasScale is the coordinate scale declared in written LAS headers; point
// records store integer multiples of it.
const lasScale = 0.001

// WriteToLASFile writes the point cloud out to a LAS file with the cloud's
// bounding box minimums as the declared coordinate offset.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	meta := cloud.MetaData()

	pointFormatID := 0
	if meta.HasColor {
		pointFormatID = 2
	}
	header := lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
		XScaleFactor:  lasScale,
		YScaleFactor:  lasScale,
		ZScaleFactor:  lasScale,
	}
	if cloud.Size() > 0 {
		header.XOffset = meta.MinX
		header.YOffset = meta.MinY
		header.ZOffset = meta.MinZ
	}
	if err = lf.AddHeader(header); err != nil {
		return
	}

	var lastErr error
	cloud.Iterate(func(pos r3.Vector, d Data) bool {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		lp = pr0

		if d != nil {
			pr0.Intensity = d.Intensity()
		}

		if meta.HasColor {
			red, green, blue := 255, 255, 255
			if d != nil && d.HasColor() {
				r, g, b := d.RGB255()
				red, green, blue = int(r), int(g), int(b)
			}
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(red * 256),
					Green: uint16(green * 256),
					Blue:  uint16(blue * 256),
				},
			}
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = lastErr
		return
	}

	//nolint:nakedret
	return
}

// NewFromLASFile returns a point cloud from reading a LAS file.
func NewFromLASFile(fn string) (_ PointCloud, err error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	pc := NewWithPrealloc(lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		v := r3.Vector{X: data.X, Y: data.Y, Z: data.Z}
		var dd Data
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			r := uint8(p.RgbData().Red / 256)
			g := uint8(p.RgbData().Green / 256)
			b := uint8(p.RgbData().Blue / 256)
			dd = NewColoredData(color.NRGBA{R: r, G: g, B: b, A: 255})
		} else {
			dd = NewBasicData()
		}
		dd.SetIntensity(data.Intensity)

		if err := pc.Set(v, dd); err != nil {
			return nil, err
		}
	}
	return pc, nil
}
