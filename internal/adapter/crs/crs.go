// Package crs wraps projection definitions and point transforms between them.
package crs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
)

// LonLatDef is the definition of unprojected longitude/latitude in degrees.
const LonLatDef = "+proj=longlat +datum=WGS84 +no_defs"

// CRS is a parsed coordinate reference system.
type CRS struct {
	def string
	sr  *proj.SR
}

// Parse parses a PROJ.4 string or WKT definition.
func Parse(def string) (*CRS, error) {
	def = strings.TrimSpace(def)
	if def == "" {
		return nil, fmt.Errorf("empty CRS definition")
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CRS %q: %w", def, err)
	}
	return &CRS{def: def, sr: sr}, nil
}

// LonLat returns the unprojected longitude/latitude CRS.
func LonLat() *CRS {
	c, err := Parse(LonLatDef)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the definition the CRS was parsed from.
func (c *CRS) String() string {
	return c.def
}

// IsGeographic reports whether coordinates are longitude/latitude degrees.
func (c *CRS) IsGeographic() bool {
	return c.sr.Name == "longlat"
}

// TransformPoint converts (x, y) given in src into this CRS.
func (c *CRS) TransformPoint(x, y float64, src *CRS) (float64, float64, error) {
	if src == nil {
		src = LonLat()
	}
	t, err := src.sr.NewTransform(c.sr)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build transform from %q to %q: %w", src.def, c.def, err)
	}
	tx, ty, err := t(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to transform (%.6f, %.6f): %w", x, y, err)
	}
	if math.IsNaN(tx) || math.IsNaN(ty) {
		return 0, 0, fmt.Errorf("transform of (%.6f, %.6f) is undefined", x, y)
	}
	return tx, ty, nil
}

// GridMapping holds the CF-convention attributes describing a grid's projection.
type GridMapping struct {
	Name   string             // grid_mapping_name, e.g. "transverse_mercator".
	Params map[string]float64 // Numeric attributes, e.g. "false_easting".
	Proj4  string             // Explicit proj4 / proj4_params / spatial_ref attribute if present.
	WKT    string             // crs_wkt attribute if present.
}

// FromGridMapping derives a CRS from CF grid mapping attributes.
// Explicit proj4 or WKT text takes precedence over grid_mapping_name parameters.
func FromGridMapping(gm GridMapping) (*CRS, error) {
	if gm.Proj4 != "" {
		return Parse(gm.Proj4)
	}
	if gm.WKT != "" {
		return Parse(gm.WKT)
	}

	p := func(key string, def float64) string {
		if v, ok := gm.Params[key]; ok {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return strconv.FormatFloat(def, 'f', -1, 64)
	}

	var def string
	switch gm.Name {
	case "", "latitude_longitude":
		def = LonLatDef
	case "transverse_mercator":
		def = fmt.Sprintf("+proj=tmerc +lat_0=%s +lon_0=%s +k=%s +x_0=%s +y_0=%s %s +units=m +no_defs",
			p("latitude_of_projection_origin", 0),
			p("longitude_of_central_meridian", 0),
			p("scale_factor_at_central_meridian", 1),
			p("false_easting", 0),
			p("false_northing", 0),
			ellipsoid(gm))
	case "lambert_conformal_conic":
		def = fmt.Sprintf("+proj=lcc +lat_1=%s +lat_2=%s +lat_0=%s +lon_0=%s +x_0=%s +y_0=%s %s +units=m +no_defs",
			p("standard_parallel", 0),
			p("standard_parallel_2", gm.Params["standard_parallel"]),
			p("latitude_of_projection_origin", 0),
			p("longitude_of_central_meridian", 0),
			p("false_easting", 0),
			p("false_northing", 0),
			ellipsoid(gm))
	case "mercator":
		def = fmt.Sprintf("+proj=merc +lon_0=%s +x_0=%s +y_0=%s %s +units=m +no_defs",
			p("longitude_of_projection_origin", 0),
			p("false_easting", 0),
			p("false_northing", 0),
			ellipsoid(gm))
	default:
		return nil, fmt.Errorf("unsupported grid mapping %q", gm.Name)
	}
	return Parse(def)
}

func ellipsoid(gm GridMapping) string {
	a, okA := gm.Params["semi_major_axis"]
	if !okA {
		return "+datum=WGS84"
	}
	if b, ok := gm.Params["semi_minor_axis"]; ok {
		return fmt.Sprintf("+a=%s +b=%s", strconv.FormatFloat(a, 'f', -1, 64), strconv.FormatFloat(b, 'f', -1, 64))
	}
	if rf, ok := gm.Params["inverse_flattening"]; ok {
		return fmt.Sprintf("+a=%s +rf=%s", strconv.FormatFloat(a, 'f', -1, 64), strconv.FormatFloat(rf, 'f', -1, 64))
	}
	return fmt.Sprintf("+a=%s +b=%s", strconv.FormatFloat(a, 'f', -1, 64), strconv.FormatFloat(a, 'f', -1, 64))
}
