package cube

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"go.ngs.io/climate-api/internal/adapter/crs"
	"go.ngs.io/climate-api/internal/adapter/interp"
	"go.ngs.io/climate-api/internal/domain"
)

// Dense is an in-memory Cube backed by a row-major float64 slice.
type Dense struct {
	name  string
	units string
	axes  []Axis
	data  []float64
	crs   *crs.CRS
}

var _ Cube = (*Dense)(nil)

// NewDense validates and builds a Dense cube. The cube takes ownership of axes and data.
func NewDense(name, units string, axes []Axis, data []float64, c *crs.CRS) (*Dense, error) {
	if len(axes) == 0 {
		return nil, domain.DataErrorf("cube %s has no axes", name)
	}

	size := 1
	seen := make(map[string]bool, len(axes))
	for _, a := range axes {
		if a.Name == "" {
			return nil, domain.DataErrorf("cube %s has an unnamed axis", name)
		}
		if seen[a.Name] {
			return nil, domain.DataErrorf("cube %s has duplicate axis %s", name, a.Name)
		}
		seen[a.Name] = true
		if !interp.IsMonotonic(a.Points) {
			return nil, domain.DataErrorf("axis %s of cube %s is not strictly monotonic", a.Name, name)
		}
		if a.Bounds != nil && len(a.Bounds) != len(a.Points) {
			return nil, domain.DataErrorf("axis %s has %d bounds for %d points", a.Name, len(a.Bounds), len(a.Points))
		}
		size *= a.Len()
	}
	if len(data) != size {
		return nil, domain.DataErrorf("cube %s has %d values, expected %d", name, len(data), size)
	}
	if c == nil {
		c = crs.LonLat()
	}

	return &Dense{name: name, units: units, axes: axes, data: data, crs: c}, nil
}

// Name returns the variable name.
func (d *Dense) Name() string { return d.name }

// Units returns the data units.
func (d *Dense) Units() string { return d.units }

// CRS returns the cube's coordinate reference system.
func (d *Dense) CRS() *crs.CRS { return d.crs }

// Axes returns copies of the axes.
func (d *Dense) Axes() []Axis {
	out := make([]Axis, len(d.axes))
	for i, a := range d.axes {
		out[i] = a.clone()
	}
	return out
}

// Shape returns the length of each axis.
func (d *Dense) Shape() []int {
	shape := make([]int, len(d.axes))
	for i, a := range d.axes {
		shape[i] = a.Len()
	}
	return shape
}

// Size returns the number of cells.
func (d *Dense) Size() int { return len(d.data) }

// Data returns a copy of the values.
func (d *Dense) Data() []float64 {
	return append([]float64(nil), d.data...)
}

// Coord looks up an axis by name.
func (d *Dense) Coord(name string) (Axis, error) {
	k := d.axisIndex(name)
	if k < 0 {
		return Axis{}, domain.DataErrorf("cube %s has no axis %q", d.name, name)
	}
	return d.axes[k].clone(), nil
}

// TimeUnits parses the units of the time axis.
func (d *Dense) TimeUnits() (TimeUnits, error) {
	t, err := d.Coord(TimeAxis)
	if err != nil {
		return TimeUnits{}, err
	}
	tu, err := ParseTimeUnits(t.Units)
	if err != nil {
		return TimeUnits{}, domain.DataErrorf("cube %s: %v", d.name, err)
	}
	return tu, nil
}

// NearestIndex returns the index on the named axis closest to value.
func (d *Dense) NearestIndex(axis string, value float64) (int, error) {
	k := d.axisIndex(axis)
	if k < 0 {
		return 0, domain.DataErrorf("cube %s has no axis %q", d.name, axis)
	}
	idx, err := interp.NearestIndex(d.axes[k].Points, value)
	if err != nil {
		return 0, domain.DataErrorf("nearest index on %s: %v", axis, err)
	}
	return idx, nil
}

// At returns the value at the given per-axis indices.
func (d *Dense) At(idx ...int) (float64, error) {
	if len(idx) != len(d.axes) {
		return 0, fmt.Errorf("expected %d indices, got %d", len(d.axes), len(idx))
	}
	flat := 0
	for k, i := range idx {
		if i < 0 || i >= d.axes[k].Len() {
			return 0, fmt.Errorf("index %d out of range for axis %s (len %d)", i, d.axes[k].Name, d.axes[k].Len())
		}
		flat = flat*d.axes[k].Len() + i
	}
	return d.data[flat], nil
}

// Extract keeps the points of the named axis matching any of values.
func (d *Dense) Extract(axis string, values []float64) (Cube, bool, error) {
	k := d.axisIndex(axis)
	if k < 0 {
		return nil, false, domain.DataErrorf("cube %s has no axis %q", d.name, axis)
	}

	keep := make([]int, 0, len(values))
	for i, p := range d.axes[k].Points {
		for _, v := range values {
			if math.Abs(p-v) <= interp.Tolerance {
				keep = append(keep, i)
				break
			}
		}
	}
	if len(keep) == 0 {
		return nil, false, nil
	}
	return d.take(k, keep), true, nil
}

// Slice keeps the closed index range [lo, hi] of the named axis.
func (d *Dense) Slice(axis string, lo, hi int) (Cube, error) {
	k := d.axisIndex(axis)
	if k < 0 {
		return nil, domain.DataErrorf("cube %s has no axis %q", d.name, axis)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	n := d.axes[k].Len()
	if lo < 0 || hi >= n {
		return nil, fmt.Errorf("slice [%d, %d] out of range for axis %s (len %d)", lo, hi, axis, n)
	}
	idx := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		idx = append(idx, i)
	}
	return d.take(k, idx), nil
}

// Collapse reduces the named axis to a single point spanning its full extent.
// Missing values are skipped; a cell with no valid values stays missing.
func (d *Dense) Collapse(axis string, r Reduction) (Cube, error) {
	k := d.axisIndex(axis)
	if k < 0 {
		return nil, domain.DataErrorf("cube %s has no axis %q", d.name, axis)
	}
	if d.Size() == 0 {
		return nil, domain.DataErrorf("cannot collapse empty cube %s", d.name)
	}

	outer, n, inner := d.strides(k)
	out := make([]float64, outer*inner)
	buf := make([]float64, 0, n)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			buf = buf[:0]
			for j := 0; j < n; j++ {
				v := d.data[(o*n+j)*inner+in]
				if !math.IsNaN(v) {
					buf = append(buf, v)
				}
			}
			out[o*inner+in] = reduce(buf, r)
		}
	}

	axes := d.Axes()
	lo, hi := axes[k].Extent()
	axes[k] = Axis{
		Name:   axes[k].Name,
		Units:  axes[k].Units,
		Points: []float64{(lo + hi) / 2},
		Bounds: [][2]float64{{lo, hi}},
	}
	return &Dense{name: d.name, units: d.units, axes: axes, data: out, crs: d.crs}, nil
}

func reduce(vals []float64, r Reduction) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	switch r {
	case Mean:
		return floats.Sum(vals) / float64(len(vals))
	default:
		return math.NaN()
	}
}

// Cell returns the single-cell cube at a flat (row-major) index.
func (d *Dense) Cell(flat int) (Cube, error) {
	if flat < 0 || flat >= d.Size() {
		return nil, fmt.Errorf("cell %d out of range (size %d)", flat, d.Size())
	}

	idx := make([]int, len(d.axes))
	rem := flat
	for k := len(d.axes) - 1; k >= 0; k-- {
		n := d.axes[k].Len()
		idx[k] = rem % n
		rem /= n
	}

	axes := make([]Axis, len(d.axes))
	for k, a := range d.axes {
		axes[k] = a.take([]int{idx[k]})
	}
	return &Dense{name: d.name, units: d.units, axes: axes, data: []float64{d.data[flat]}, crs: d.crs}, nil
}

// take keeps the given indices of axis k.
func (d *Dense) take(k int, idx []int) *Dense {
	outer, n, inner := d.strides(k)
	out := make([]float64, 0, outer*len(idx)*inner)
	for o := 0; o < outer; o++ {
		for _, ix := range idx {
			start := (o*n + ix) * inner
			out = append(out, d.data[start:start+inner]...)
		}
	}

	axes := d.Axes()
	axes[k] = d.axes[k].take(idx)
	return &Dense{name: d.name, units: d.units, axes: axes, data: out, crs: d.crs}
}

// strides returns the product of axis lengths before k, the length of k, and the product after k.
func (d *Dense) strides(k int) (outer, n, inner int) {
	outer, inner = 1, 1
	for i := 0; i < k; i++ {
		outer *= d.axes[i].Len()
	}
	for i := k + 1; i < len(d.axes); i++ {
		inner *= d.axes[i].Len()
	}
	return outer, d.axes[k].Len(), inner
}

func (d *Dense) axisIndex(name string) int {
	for i, a := range d.axes {
		if a.Name == name {
			return i
		}
	}
	return -1
}
