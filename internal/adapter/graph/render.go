// Package graph renders point time series as PNG images and publishes them to blob storage.
package graph

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/domain"
)

// Image size of rendered graphs.
const (
	Width  = 6 * vg.Inch
	Height = 3 * vg.Inch
)

// RenderPNG draws the values of series against time. Every non-time axis must have length 1.
func RenderPNG(series cube.Cube) ([]byte, error) {
	for _, a := range series.Axes() {
		if a.Name != cube.TimeAxis && a.Len() != 1 {
			return nil, domain.DataErrorf("cannot graph %s: axis %s has %d points", series.Name(), a.Name, a.Len())
		}
	}
	units, err := series.TimeUnits()
	if err != nil {
		return nil, err
	}
	tc, err := series.Coord(cube.TimeAxis)
	if err != nil {
		return nil, err
	}

	data := series.Data()
	xys := make(plotter.XYs, 0, len(data))
	for i, v := range data {
		if math.IsNaN(v) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(units.Num2Date(tc.Points[i]).Unix()), Y: v})
	}
	if len(xys) == 0 {
		return nil, domain.DataErrorf("cannot graph %s: no valid values", series.Name())
	}

	p := plot.New()
	p.Title.Text = title(series.Name())
	p.X.Tick.Marker = plot.TimeTicks{Format: domain.DateLayout}
	p.Y.Label.Text = series.Units()
	if err := plotutil.AddLinePoints(p, xys); err != nil {
		return nil, fmt.Errorf("failed to add series: %w", err)
	}

	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render graph: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return buf.Bytes(), nil
}

// title turns a variable name such as "air_temperature" into "Air Temperature".
func title(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
