package netcdf

import (
	"fmt"
	"math"
	"sort"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/climate-api/internal/adapter/crs"
	"go.ngs.io/climate-api/internal/adapter/cube"
)

// FillValue marks missing cells in written files.
const FillValue = -9999.0

// WriteOptions controls how a cube is written.
type WriteOptions struct {
	// GridMapping, when set, is written as a "crs" variable referenced by the data variable.
	GridMapping *crs.GridMapping
}

// Write stores c at path as a CF-style NetCDF file, replacing any existing file.
// Every axis becomes a dimension with a coordinate variable of the same name.
func Write(path string, c cube.Cube, opts WriteOptions) (err error) {
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	axes := c.Axes()
	dims := make([]netcdf.Dim, len(axes))
	coordVars := make([]netcdf.Var, len(axes))
	boundVars := make(map[int]netcdf.Var)
	var nv netcdf.Dim
	haveNV := false
	for i, a := range axes {
		if dims[i], err = f.AddDim(a.Name, uint64(a.Len())); err != nil {
			return fmt.Errorf("failed to add dimension %s: %w", a.Name, err)
		}
		if coordVars[i], err = f.AddVar(a.Name, netcdf.DOUBLE, []netcdf.Dim{dims[i]}); err != nil {
			return fmt.Errorf("failed to add variable %s: %w", a.Name, err)
		}
		if err := writeText(coordVars[i], "units", a.Units); err != nil {
			return err
		}
		if len(a.Bounds) != a.Len() || a.Len() == 0 {
			continue
		}
		if !haveNV {
			if nv, err = f.AddDim("nv", 2); err != nil {
				return fmt.Errorf("failed to add bounds dimension: %w", err)
			}
			haveNV = true
		}
		bname := a.Name + "_bnds"
		if boundVars[i], err = f.AddVar(bname, netcdf.DOUBLE, []netcdf.Dim{dims[i], nv}); err != nil {
			return fmt.Errorf("failed to add variable %s: %w", bname, err)
		}
		if err := writeText(coordVars[i], "bounds", bname); err != nil {
			return err
		}
	}

	dataVar, err := f.AddVar(c.Name(), netcdf.DOUBLE, dims)
	if err != nil {
		return fmt.Errorf("failed to add variable %s: %w", c.Name(), err)
	}
	if err := writeText(dataVar, "units", c.Units()); err != nil {
		return err
	}
	if err := dataVar.Attr("_FillValue").WriteFloat64s([]float64{FillValue}); err != nil {
		return fmt.Errorf("failed to write _FillValue: %w", err)
	}

	if gm := opts.GridMapping; gm != nil {
		crsDim, err := f.AddDim("crs", 1)
		if err != nil {
			return fmt.Errorf("failed to add crs dimension: %w", err)
		}
		crsVar, err := f.AddVar("crs", netcdf.INT, []netcdf.Dim{crsDim})
		if err != nil {
			return fmt.Errorf("failed to add crs variable: %w", err)
		}
		if err := writeText(dataVar, "grid_mapping", "crs"); err != nil {
			return err
		}
		if err := writeGridMapping(crsVar, gm); err != nil {
			return err
		}
	}

	if err := f.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}

	for i, a := range axes {
		if err := coordVars[i].WriteFloat64s(a.Points); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.Name, err)
		}
		if bv, ok := boundVars[i]; ok {
			flat := make([]float64, 0, 2*a.Len())
			for _, b := range a.Bounds {
				flat = append(flat, b[0], b[1])
			}
			if err := bv.WriteFloat64s(flat); err != nil {
				return fmt.Errorf("failed to write %s bounds: %w", a.Name, err)
			}
		}
	}

	data := c.Data()
	for i, v := range data {
		if math.IsNaN(v) {
			data[i] = FillValue
		}
	}
	if err := dataVar.WriteFloat64s(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Name(), err)
	}
	return nil
}

func writeGridMapping(v netcdf.Var, gm *crs.GridMapping) error {
	if err := writeText(v, "grid_mapping_name", gm.Name); err != nil {
		return err
	}
	if err := writeText(v, "proj4", gm.Proj4); err != nil {
		return err
	}
	if err := writeText(v, "crs_wkt", gm.WKT); err != nil {
		return err
	}

	keys := make([]string, 0, len(gm.Params))
	for k := range gm.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := v.Attr(k).WriteFloat64s([]float64{gm.Params[k]}); err != nil {
			return fmt.Errorf("failed to write grid mapping attribute %s: %w", k, err)
		}
	}
	return nil
}

func writeText(v netcdf.Var, name, value string) error {
	if value == "" {
		return nil
	}
	if err := v.Attr(name).WriteBytes([]byte(value)); err != nil {
		return fmt.Errorf("failed to write attribute %s: %w", name, err)
	}
	return nil
}
