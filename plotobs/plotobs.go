// Package plotobs renders run metrics as a stacked line-chart PNG. It
// plugs into a run as an observer so the chart lands next to the other
// saved artifacts when the run completes.
package plotobs

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/roadscan/lidarnav/nav"
)

// MetricsPlotter writes the metrics chart when the run finishes.
type MetricsPlotter struct {
	path   string
	logger golog.Logger
}

// NewMetricsPlotter returns an observer that saves the chart to path on
// Done.
func NewMetricsPlotter(path string, logger golog.Logger) *MetricsPlotter {
	return &MetricsPlotter{path: path, logger: logger}
}

// Step implements nav.Observer; the chart is rendered once at the end.
func (mp *MetricsPlotter) Step(nav.StepInfo) {}

// Done implements nav.Observer. A chart that fails to render must not
// fail the run, so the error is logged and swallowed.
func (mp *MetricsPlotter) Done(results *nav.Results) {
	if err := RenderPNG(results, mp.path); err != nil {
		mp.logger.Errorw("cannot save metrics plot", "path", mp.path, "error", err)
	}
}

type series struct {
	name   string
	color  color.Color
	values []float64
}

var (
	colorTime     = color.RGBA{B: 255, A: 255}
	colorDistance = color.RGBA{R: 255, A: 255}
	colorRMSE     = color.RGBA{R: 128, B: 128, A: 255}
	colorFitness  = color.RGBA{G: 160, A: 255}
	colorError2D  = color.RGBA{R: 230, G: 140, A: 255}
	colorError3D  = color.RGBA{R: 180, B: 60, A: 255}
)

// RenderPNG draws one panel per metric group, sharing the frame index
// axis, and writes them stacked into a single PNG.
func RenderPNG(results *nav.Results, path string) error {
	panels := []*plot.Plot{
		seriesPanel("Registration time", "Seconds", series{"calculation time", colorTime, results.Times}),
		seriesPanel("Movement", "Meters", series{"distance", colorDistance, results.Distances}),
		seriesPanel("Alignment quality", "",
			series{"rmse", colorRMSE, results.RMSEs},
			series{"fitness", colorFitness, results.Fitnesses}),
	}
	if len(results.PositionError3D) > 0 {
		panels = append(panels, seriesPanel("Position error", "Meters",
			series{"2d error", colorError2D, results.PositionError2D},
			series{"3d error", colorError3D, results.PositionError3D}))
	}
	panels[len(panels)-1].X.Label.Text = "Frame index"

	return writeStacked(panels, path)
}

func seriesPanel(title, yLabel string, groups ...series) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	for _, g := range groups {
		pts := make(plotter.XYs, len(g.values))
		for i, v := range g.values {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			continue
		}
		line.Color = g.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(g.name, line)
		p.Legend.Top = true
	}
	return p
}

func writeStacked(panels []*plot.Plot, path string) error {
	const (
		width       = 8 * vg.Inch
		panelHeight = 2.5 * vg.Inch
	)

	img := vgimg.New(width, panelHeight*vg.Length(len(panels)))
	dc := draw.New(img)

	tiles := draw.Tiles{Rows: len(panels), Cols: 1}
	aligned := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		aligned[i] = []*plot.Plot{p}
	}
	canvases := plot.Align(aligned, tiles, dc)
	for i, p := range panels {
		p.Draw(canvases[i][0])
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create plot file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return errors.Wrap(err, "cannot encode plot")
	}
	return nil
}
