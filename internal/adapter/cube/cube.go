// Package cube defines the coordinate-labelled array consumed by the grid engine
// and an in-memory implementation of it.
package cube

import (
	"go.ngs.io/climate-api/internal/adapter/crs"
)

// Standard axis names.
const (
	TimeAxis = "time"
	XAxis    = "projection_x_coordinate"
	YAxis    = "projection_y_coordinate"
)

// Axis is a named, labelled dimension of a cube.
type Axis struct {
	Name   string
	Units  string
	Points []float64
	Bounds [][2]float64 // Optional cell bounds, one pair per point.
}

// Len returns the number of points on the axis.
func (a Axis) Len() int {
	return len(a.Points)
}

// Bound returns the cell bounds of point i, falling back to the point itself.
func (a Axis) Bound(i int) [2]float64 {
	if len(a.Bounds) == len(a.Points) {
		return a.Bounds[i]
	}
	return [2]float64{a.Points[i], a.Points[i]}
}

// Extent returns the lowest lower bound and highest upper bound along the axis.
func (a Axis) Extent() (float64, float64) {
	lo, hi := a.Bound(0)[0], a.Bound(0)[1]
	for i := 1; i < a.Len(); i++ {
		b := a.Bound(i)
		lo = min(lo, b[0], b[1])
		hi = max(hi, b[0], b[1])
	}
	return min(lo, hi), max(lo, hi)
}

func (a Axis) clone() Axis {
	out := Axis{Name: a.Name, Units: a.Units, Points: append([]float64(nil), a.Points...)}
	if a.Bounds != nil {
		out.Bounds = append([][2]float64(nil), a.Bounds...)
	}
	return out
}

func (a Axis) take(idx []int) Axis {
	out := Axis{Name: a.Name, Units: a.Units, Points: make([]float64, len(idx))}
	hasBounds := len(a.Bounds) == len(a.Points)
	if hasBounds {
		out.Bounds = make([][2]float64, len(idx))
	}
	for i, ix := range idx {
		out.Points[i] = a.Points[ix]
		if hasBounds {
			out.Bounds[i] = a.Bounds[ix]
		}
	}
	return out
}

// Reduction names an axis collapse.
type Reduction int

const (
	// Mean collapses with the arithmetic mean of the non-missing values.
	Mean Reduction = iota
)

// Cube is an immutable coordinate-labelled array with a coordinate reference system.
// Every extraction or collapse returns a new Cube. Missing values are NaN.
type Cube interface {
	// Name is the variable name, e.g. "tasmax".
	Name() string
	// Units are the data units, e.g. "degC".
	Units() string
	// Axes returns copies of the axes in storage order.
	Axes() []Axis
	// Shape returns the length of each axis.
	Shape() []int
	// Size is the total number of cells.
	Size() int
	// Coord looks up an axis by name.
	Coord(name string) (Axis, error)
	// TimeUnits parses the units of the time axis.
	TimeUnits() (TimeUnits, error)
	// CRS is the reference system of the projected axes.
	CRS() *crs.CRS
	// NearestIndex returns the index on the named axis closest to value.
	NearestIndex(axis string, value float64) (int, error)
	// Extract keeps the points of the named axis whose values are in values.
	// It returns false when no point matches.
	Extract(axis string, values []float64) (Cube, bool, error)
	// Slice keeps the closed index range [lo, hi] of the named axis.
	Slice(axis string, lo, hi int) (Cube, error)
	// Collapse reduces the named axis to a single point.
	Collapse(axis string, r Reduction) (Cube, error)
	// Cell returns the single-cell cube at a flat (row-major) index.
	Cell(flat int) (Cube, error)
	// Data returns a copy of the row-major values.
	Data() []float64
	// At returns the value at the given per-axis indices.
	At(idx ...int) (float64, error)
}
