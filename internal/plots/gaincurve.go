// Package plots renders sensor gain curves as PNG with gonum/plot and
// control-loop traces as HTML with go-echarts.
package plots

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/camctl/internal/sensor"
)

// NamedModel is a model with the identifier it is registered under.
type NamedModel struct {
	ID    string
	Model sensor.ControlModel
}

const (
	curveStep    = 0.05
	fallbackMax  = 16.0
	curveWidthIn = 10
	curveHeight  = 6
)

// CurvePoints samples a model from lo to hi and returns the gain actually
// realised for each requested gain, after encoding to a register code.
func CurvePoints(m sensor.ControlModel, lo, hi, step float64) plotter.XYs {
	if step <= 0 || hi < lo {
		return nil
	}
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		g := lo + float64(i)*step
		pts = append(pts, plotter.XY{X: g, Y: m.Gain(m.GainCode(g))})
	}
	return pts
}

// GainCurves plots requested against realised analogue gain for every
// model and saves the figure to path. The image format follows the file
// extension.
func GainCurves(models []NamedModel, path string) error {
	if len(models) == 0 {
		return fmt.Errorf("no sensor models to plot")
	}

	p := plot.New()
	p.Title.Text = "Analogue gain quantisation"
	p.X.Label.Text = "Requested gain"
	p.Y.Label.Text = "Realised gain"

	for i, nm := range models {
		lo, hi, ok := sensor.GainRangeOf(nm.Model)
		if !ok {
			lo, hi = 1, fallbackMax
		}
		line, err := plotter.NewLine(CurvePoints(nm.Model, lo, hi, curveStep))
		if err != nil {
			return fmt.Errorf("%s: %w", nm.ID, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / 7)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(nm.ID, line)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())

	if err := p.Save(curveWidthIn*vg.Inch, curveHeight*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save gain curves: %w", err)
	}
	return nil
}
