// Package netcdf reads CF-convention NetCDF partitions into cubes.
package netcdf

import (
	"fmt"
	"math"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/climate-api/internal/adapter/crs"
	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/domain"
)

// Candidate coordinate variable names, tried in order.
var (
	timeNames = []string{cube.TimeAxis, "t"}
	xNames    = []string{cube.XAxis, "x", "lon", "longitude"}
	yNames    = []string{cube.YAxis, "y", "lat", "latitude"}
)

// Numeric grid mapping attributes understood by crs.FromGridMapping.
var gridMappingParams = []string{
	"latitude_of_projection_origin",
	"longitude_of_central_meridian",
	"longitude_of_projection_origin",
	"scale_factor_at_central_meridian",
	"false_easting",
	"false_northing",
	"semi_major_axis",
	"semi_minor_axis",
	"inverse_flattening",
}

// Reader reads a single gridded variable with time, y and x dimensions.
type Reader struct {
	// Variable is the data variable to read. When empty the first variable whose
	// dimensions are all recognised coordinates is used, preferring one with time.
	Variable string
}

// NewReader creates a reader that picks the data variable automatically.
func NewReader() *Reader {
	return &Reader{}
}

// Read loads path into a cube. Missing values become NaN and scale_factor/add_offset are applied.
//
//nolint:gocyclo // Sequential lookups of coordinates, data, bounds and grid mapping.
func (r *Reader) Read(path string) (cube.Cube, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, domain.DataErrorf("failed to open NetCDF file %s: %v", path, err)
	}
	defer func() { _ = ds.Close() }()

	dataVar, name, err := r.findDataVar(ds)
	if err != nil {
		return nil, domain.DataErrorf("%s: %v", path, err)
	}

	dims, err := dataVar.Dims()
	if err != nil {
		return nil, domain.DataErrorf("%s: failed to get dimensions of %s: %v", path, name, err)
	}

	axes := make([]cube.Axis, 0, len(dims))
	for _, d := range dims {
		dimName, err := d.Name()
		if err != nil {
			return nil, domain.DataErrorf("%s: failed to get dimension name: %v", path, err)
		}
		axis, err := readAxis(ds, dimName)
		if err != nil {
			return nil, domain.DataErrorf("%s: %v", path, err)
		}
		axes = append(axes, axis)
	}

	values, err := readFloat64s(dataVar)
	if err != nil {
		return nil, domain.DataErrorf("%s: failed to read %s: %v", path, name, err)
	}
	applyPacking(dataVar, values)

	c, err := gridCRS(ds, dataVar)
	if err != nil {
		return nil, domain.DataErrorf("%s: %v", path, err)
	}

	return cube.NewDense(name, attrText(dataVar, "units"), axes, values, c)
}

func (r *Reader) findDataVar(ds netcdf.Dataset) (netcdf.Var, string, error) {
	if r.Variable != "" {
		v, err := ds.Var(r.Variable)
		if err != nil {
			return netcdf.Var{}, "", fmt.Errorf("variable %q not found: %w", r.Variable, err)
		}
		return v, r.Variable, nil
	}

	n, err := ds.NVars()
	if err != nil {
		return netcdf.Var{}, "", fmt.Errorf("failed to count variables: %w", err)
	}
	// Prefer a variable with a time dimension; 2-D auxiliary coordinates such as
	// latitude(y, x) also span only recognised dimensions.
	var fallback *netcdf.Var
	var fallbackName string
	for i := 0; i < n; i++ {
		v := ds.VarN(i)
		dims, err := v.Dims()
		if err != nil || len(dims) < 2 {
			continue
		}
		if !allCoordinates(dims) {
			continue
		}
		name, err := v.Name()
		if err != nil {
			continue
		}
		if hasTimeDim(dims) {
			return v, name, nil
		}
		if fallback == nil {
			fallback, fallbackName = &v, name
		}
	}
	if fallback != nil {
		return *fallback, fallbackName, nil
	}
	return netcdf.Var{}, "", fmt.Errorf("no gridded data variable found")
}

func hasTimeDim(dims []netcdf.Dim) bool {
	for _, d := range dims {
		name, err := d.Name()
		if err == nil && axisRole(name) == cube.TimeAxis {
			return true
		}
	}
	return false
}

func allCoordinates(dims []netcdf.Dim) bool {
	for _, d := range dims {
		name, err := d.Name()
		if err != nil || axisRole(name) == "" {
			return false
		}
	}
	return true
}

// axisRole maps a dimension name onto a standard cube axis name.
func axisRole(dim string) string {
	lower := strings.ToLower(dim)
	for role, names := range map[string][]string{
		cube.TimeAxis: timeNames,
		cube.XAxis:    xNames,
		cube.YAxis:    yNames,
	} {
		for _, n := range names {
			if lower == n {
				return role
			}
		}
	}
	return ""
}

func readAxis(ds netcdf.Dataset, dim string) (cube.Axis, error) {
	role := axisRole(dim)
	if role == "" {
		return cube.Axis{}, fmt.Errorf("unrecognised dimension %q", dim)
	}

	v, err := ds.Var(dim)
	if err != nil {
		return cube.Axis{}, fmt.Errorf("coordinate variable %q not found: %w", dim, err)
	}
	points, err := readFloat64s(v)
	if err != nil {
		return cube.Axis{}, fmt.Errorf("failed to read %s: %w", dim, err)
	}

	axis := cube.Axis{Name: role, Units: attrText(v, "units"), Points: points}
	if bname := attrText(v, "bounds"); bname != "" {
		if bv, err := ds.Var(bname); err == nil {
			flat, err := readFloat64s(bv)
			if err == nil && len(flat) == 2*len(points) {
				axis.Bounds = make([][2]float64, len(points))
				for i := range points {
					axis.Bounds[i] = [2]float64{flat[2*i], flat[2*i+1]}
				}
			}
		}
	}
	return axis, nil
}

// gridCRS derives the CRS from the data variable's grid_mapping attribute; lon/lat when absent.
func gridCRS(ds netcdf.Dataset, v netcdf.Var) (*crs.CRS, error) {
	name := attrText(v, "grid_mapping")
	if name == "" {
		return crs.LonLat(), nil
	}
	gv, err := ds.Var(name)
	if err != nil {
		return nil, fmt.Errorf("grid mapping variable %q not found: %w", name, err)
	}

	gm := crs.GridMapping{
		Name:   attrText(gv, "grid_mapping_name"),
		Params: make(map[string]float64),
		WKT:    attrText(gv, "crs_wkt"),
	}
	for _, key := range []string{"proj4", "proj4_params", "proj4text", "spatial_ref"} {
		if s := attrText(gv, key); s != "" && strings.Contains(s, "+proj") {
			gm.Proj4 = s
			break
		}
	}
	for _, key := range gridMappingParams {
		if vals := attrFloats(gv, key); len(vals) > 0 {
			gm.Params[key] = vals[0]
		}
	}
	if vals := attrFloats(gv, "standard_parallel"); len(vals) > 0 {
		gm.Params["standard_parallel"] = vals[0]
		if len(vals) > 1 {
			gm.Params["standard_parallel_2"] = vals[1]
		}
	}

	c, err := crs.FromGridMapping(gm)
	if err != nil {
		return nil, fmt.Errorf("grid mapping %q: %w", name, err)
	}
	return c, nil
}

// applyPacking replaces _FillValue/missing_value with NaN and unpacks scale_factor/add_offset.
func applyPacking(v netcdf.Var, values []float64) {
	var fills []float64
	for _, name := range []string{"_FillValue", "missing_value"} {
		fills = append(fills, attrFloats(v, name)...)
	}
	scale, offset := 1.0, 0.0
	if s := attrFloats(v, "scale_factor"); len(s) > 0 {
		scale = s[0]
	}
	if o := attrFloats(v, "add_offset"); len(o) > 0 {
		offset = o[0]
	}

	for i, val := range values {
		missing := false
		for _, fv := range fills {
			if val == fv {
				missing = true
				break
			}
		}
		if missing {
			values[i] = math.NaN()
			continue
		}
		values[i] = val*scale + offset
	}
}

// attrText returns a text attribute, or "" when absent or not text.
func attrText(v netcdf.Var, name string) string {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	if t, err := a.Type(); err != nil || t != netcdf.CHAR {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

// attrFloats returns a numeric attribute as float64s, or nil when absent.
func attrFloats(v netcdf.Var, name string) []float64 {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return nil
	}
	t, err := a.Type()
	if err != nil {
		return nil
	}

	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		if err := a.ReadFloat64s(buf); err != nil {
			return nil
		}
		return buf
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := a.ReadFloat32s(buf); err != nil {
			return nil
		}
		return widen(buf)
	case netcdf.INT:
		buf := make([]int32, n)
		if err := a.ReadInt32s(buf); err != nil {
			return nil
		}
		return widen(buf)
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err := a.ReadInt16s(buf); err != nil {
			return nil
		}
		return widen(buf)
	default:
		return nil
	}
}

// readFloat64s reads every value of a numeric variable as float64.
func readFloat64s(v netcdf.Var) ([]float64, error) {
	length, err := v.Len()
	if err != nil {
		return nil, err
	}
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, length)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, length)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.INT:
		tmp := make([]int32, length)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.SHORT:
		tmp := make([]int16, length)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

func widen[T float32 | int32 | int16](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
