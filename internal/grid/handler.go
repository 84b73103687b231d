// Package grid implements time and space subsetting and aggregation over a data cube.
package grid

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"go.ngs.io/climate-api/internal/adapter/crs"
	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/adapter/interp"
	"go.ngs.io/climate-api/internal/domain"
)

// Handler wraps one cube. Every operation returns a new Handler; the wrapped cube is never modified.
type Handler struct {
	cube cube.Cube
}

// Result is a reduced cube together with the dates its time axis actually spans.
type Result struct {
	Cube  cube.Cube
	Value float64 // First cell of the reduced cube.
	Start time.Time
	End   time.Time
}

// New wraps c.
func New(c cube.Cube) *Handler {
	return &Handler{cube: c}
}

// Cube returns the wrapped cube.
func (h *Handler) Cube() cube.Cube {
	return h.cube
}

// CRS returns the coordinate reference system of the wrapped cube.
func (h *Handler) CRS() *crs.CRS {
	return h.cube.CRS()
}

// TimeRange decodes the full extent of the time axis, including cell bounds.
func (h *Handler) TimeRange() (time.Time, time.Time, error) {
	return timeExtent(h.cube)
}

// SelectTimes keeps exactly the requested timestamps. Every timestamp must already exist
// on the time axis in the cube's native encoding; there is no nearest-neighbour snapping.
func (h *Handler) SelectTimes(ts []time.Time) (*Handler, error) {
	if len(ts) == 0 {
		return nil, domain.InputErrorf("no timestamps requested")
	}

	units, err := h.cube.TimeUnits()
	if err != nil {
		return nil, err
	}
	axis, err := h.cube.Coord(cube.TimeAxis)
	if err != nil {
		return nil, err
	}

	offsets := make([]float64, 0, len(ts))
	seen := make(map[float64]bool, len(ts))
	var missing []string
	for _, t := range ts {
		v := units.Date2Num(t)
		if seen[v] {
			continue
		}
		seen[v] = true
		offsets = append(offsets, v)
		if !onAxis(axis.Points, v) {
			missing = append(missing, t.UTC().Format(time.RFC3339))
		}
	}
	if len(missing) > 0 {
		return nil, domain.NoMatchErrorf("%d of %d requested times not in %s time axis: %s",
			len(missing), len(offsets), h.cube.Name(), summarize(missing, 5))
	}

	sub, ok, err := h.cube.Extract(cube.TimeAxis, offsets)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NoMatchErrorf("no requested times in %s time axis", h.cube.Name())
	}
	return New(sub), nil
}

// SelectGrid keeps the inclusive index range on both projected axes spanned by the
// nearest grid points to the two corners, given in src (lon/lat when nil).
func (h *Handler) SelectGrid(minLon, maxLon, minLat, maxLat float64, src *crs.CRS) (*Handler, error) {
	if _, err := h.cube.Coord(cube.XAxis); err != nil {
		return nil, err
	}
	if _, err := h.cube.Coord(cube.YAxis); err != nil {
		return nil, err
	}

	target := h.cube.CRS()
	x0, y0, err := target.TransformPoint(minLon, minLat, src)
	if err != nil {
		return nil, domain.InputErrorf("cannot locate (%.6f, %.6f) in grid: %v", minLon, minLat, err)
	}
	x1, y1, err := target.TransformPoint(maxLon, maxLat, src)
	if err != nil {
		return nil, domain.InputErrorf("cannot locate (%.6f, %.6f) in grid: %v", maxLon, maxLat, err)
	}

	minX, err := h.cube.NearestIndex(cube.XAxis, x0)
	if err != nil {
		return nil, err
	}
	maxX, err := h.cube.NearestIndex(cube.XAxis, x1)
	if err != nil {
		return nil, err
	}
	minY, err := h.cube.NearestIndex(cube.YAxis, y0)
	if err != nil {
		return nil, err
	}
	maxY, err := h.cube.NearestIndex(cube.YAxis, y1)
	if err != nil {
		return nil, err
	}

	sub, err := h.cube.Slice(cube.XAxis, min(minX, maxX), max(minX, maxX))
	if err != nil {
		return nil, domain.DataErrorf("x subset: %v", err)
	}
	sub, err = sub.Slice(cube.YAxis, min(minY, maxY), max(minY, maxY))
	if err != nil {
		return nil, domain.DataErrorf("y subset: %v", err)
	}
	return New(sub), nil
}

// SelectPoint keeps the single grid cell nearest to (lon, lat).
func (h *Handler) SelectPoint(lon, lat float64, src *crs.CRS) (*Handler, error) {
	return h.SelectGrid(lon, lon, lat, lat, src)
}

// Aggregate reduces the wrapped cube. Mean collapses axis; Min and Max return the
// full coordinate slice of the single cell holding the global extremum.
func (h *Handler) Aggregate(op domain.Operation, axis string) (*Result, error) {
	if h.cube.Size() == 0 {
		return nil, domain.DataErrorf("cannot aggregate empty cube %s", h.cube.Name())
	}

	var reduced cube.Cube
	var err error
	switch op {
	case domain.OpMean:
		reduced, err = h.mean(axis)
	case domain.OpMin:
		reduced, err = h.extremum(floats.MinIdx)
	case domain.OpMax:
		reduced, err = h.extremum(floats.MaxIdx)
	default:
		return nil, domain.InputErrorf("unsupported operation %d", int(op))
	}
	if err != nil {
		return nil, err
	}

	return newResult(reduced)
}

func (h *Handler) mean(axis string) (cube.Cube, error) {
	if axis == "" {
		axis = cube.TimeAxis
	}
	if _, err := h.cube.Coord(axis); err != nil {
		return nil, err
	}
	reduced, err := h.cube.Collapse(axis, cube.Mean)
	if err != nil {
		return nil, err
	}
	if allMissing(reduced.Data()) {
		return nil, domain.DataErrorf("mean of %s over %s has no valid values", h.cube.Name(), axis)
	}
	return reduced, nil
}

func (h *Handler) extremum(index func([]float64) int) (cube.Cube, error) {
	data := h.cube.Data()
	if allMissing(data) {
		return nil, domain.DataErrorf("%s has no valid values", h.cube.Name())
	}
	i := index(data)
	if math.IsNaN(data[i]) {
		return nil, domain.DataErrorf("%s extremum is missing", h.cube.Name())
	}
	cell, err := h.cube.Cell(i)
	if err != nil {
		return nil, domain.DataErrorf("extremum cell: %v", err)
	}
	return cell, nil
}

func newResult(c cube.Cube) (*Result, error) {
	start, end, err := timeExtent(c)
	if err != nil {
		return nil, err
	}
	data := c.Data()
	if len(data) == 0 {
		return nil, domain.DataErrorf("reduction of %s produced no result", c.Name())
	}
	return &Result{Cube: c, Value: data[0], Start: start, End: end}, nil
}

func timeExtent(c cube.Cube) (time.Time, time.Time, error) {
	units, err := c.TimeUnits()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	axis, err := c.Coord(cube.TimeAxis)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if axis.Len() == 0 {
		return time.Time{}, time.Time{}, domain.DataErrorf("%s time axis is empty", c.Name())
	}
	lo, hi := axis.Extent()
	return units.Num2Date(lo), units.Num2Date(hi), nil
}

func onAxis(points []float64, v float64) bool {
	if interp.IsAscending(points) {
		i := sort.SearchFloat64s(points, v-interp.Tolerance)
		return i < len(points) && math.Abs(points[i]-v) <= interp.Tolerance
	}
	return interp.ExactIndex(points, v) >= 0
}

func allMissing(data []float64) bool {
	for _, v := range data {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func summarize(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(items[:limit], ", "), len(items)-limit)
}
