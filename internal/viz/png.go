package viz

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/san-kum/orbitsim/internal/convergence"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Track is one named x-y curve.
type Track struct {
	Name   string
	Points plotter.XYer
}

// Vectors adapts a slice of positions to plotter.XYer.
type Vectors []r3.Vec

func (v Vectors) Len() int { return len(v) }

func (v Vectors) XY(i int) (float64, float64) { return v[i].X, v[i].Y }

var _ plotter.XYer = dynamo.BodyPath{}

func checkFormat(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg", ".pdf", ".eps", ".jpg", ".jpeg", ".tif", ".tiff":
		return nil
	}
	return dynamo.Invalid("unsupported plot format %q", filepath.Ext(path))
}

// SaveOrbits draws tracks in the x-y plane with equal axis scales. The image
// format follows the file extension.
func SaveOrbits(path, title, units string, tracks []Track) error {
	if err := checkFormat(path); err != nil {
		return err
	}
	if len(tracks) == 0 {
		return dynamo.Invalid("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x [" + units + "]"
	p.Y.Label.Text = "y [" + units + "]"
	p.Add(plotter.NewGrid())

	for i, tr := range tracks {
		line, err := plotter.NewLine(tr.Points)
		if err != nil {
			return fmt.Errorf("track %s: %w", tr.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(tr.Name, line)
	}

	square(p)
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// square widens the narrower axis so both span the same range.
func square(p *plot.Plot) {
	dx, dy := p.X.Max-p.X.Min, p.Y.Max-p.Y.Min
	if dx > dy {
		mid := (p.Y.Max + p.Y.Min) / 2
		p.Y.Min, p.Y.Max = mid-dx/2, mid+dx/2
	} else {
		mid := (p.X.Max + p.X.Min) / 2
		p.X.Min, p.X.Max = mid-dy/2, mid+dy/2
	}
}

// SaveErrors draws relative error against step size on log-log axes. Points
// with a non-positive error are left out.
func SaveErrors(path, title string, points []convergence.Point) error {
	if err := checkFormat(path); err != nil {
		return err
	}

	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if pt.Error > 0 && pt.Dt > 0 {
			xys = append(xys, plotter.XY{X: pt.Dt, Y: pt.Error})
		}
	}
	if len(xys) == 0 {
		return dynamo.Invalid("no positive errors to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "dt [s]"
	p.Y.Label.Text = "relative error"
	p.X.Scale, p.Y.Scale = plot.LogScale{}, plot.LogScale{}
	p.X.Tick.Marker, p.Y.Tick.Marker = plot.LogTicks{Prec: -1}, plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLinePoints(p, "error", xys); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
