// Package csv reads long-format CSV partitions into cubes for local development.
package csv

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/domain"
)

// TimeUnits is the encoding applied to the date column.
const TimeUnits = "hours since 1970-01-01 00:00:00"

var expectedHeaders = []string{"time", "projection_y_coordinate", "projection_x_coordinate", "value"}

// Reader reads files with one row per cell: date, y, x, value.
// Coordinates are longitude/latitude degrees; dates are normalised to the dataset hour.
type Reader struct {
	// Units are attached to the cube data.
	Units string
}

// NewReader creates a CSV reader.
func NewReader(units string) *Reader {
	return &Reader{Units: units}
}

type row struct {
	t, y, x, v float64
}

// Read loads path. The cube is named after the directory holding the file.
func (r *Reader) Read(path string) (cube.Cube, error) {
	//nolint:gosec // G304: path comes from the partition catalog.
	file, err := os.Open(path)
	if err != nil {
		return nil, domain.DataErrorf("failed to open CSV file %s: %v", path, err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, domain.DataErrorf("failed to read CSV header of %s: %v", path, err)
	}
	if len(header) != len(expectedHeaders) {
		return nil, domain.DataErrorf("invalid CSV header in %s: expected %v, got %v", path, expectedHeaders, header)
	}
	for i, h := range header {
		if strings.TrimSpace(h) != expectedHeaders[i] {
			return nil, domain.DataErrorf("invalid CSV header in %s: expected column %d to be %s, got %s",
				path, i, expectedHeaders[i], h)
		}
	}

	units, err := cube.ParseTimeUnits(TimeUnits)
	if err != nil {
		return nil, err
	}

	var rows []row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.DataErrorf("failed to read CSV record in %s: %v", path, err)
		}

		day, err := domain.ParseDate(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, domain.DataErrorf("%s line %d: %v", path, line, err)
		}
		rw := row{t: units.Date2Num(day)}
		for i, dst := range []*float64{&rw.y, &rw.x, &rw.v} {
			s := strings.TrimSpace(record[i+1])
			if s == "" || strings.EqualFold(s, "nan") {
				*dst = math.NaN()
				continue
			}
			if *dst, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, domain.DataErrorf("%s line %d: invalid %s %q", path, line, expectedHeaders[i+1], s)
			}
		}
		if math.IsNaN(rw.y) || math.IsNaN(rw.x) {
			return nil, domain.DataErrorf("%s line %d: missing coordinate", path, line)
		}
		rows = append(rows, rw)
	}

	if len(rows) == 0 {
		return nil, domain.DataErrorf("no records found in %s", path)
	}
	return r.grid(path, rows)
}

// grid lays rows out on the product of their distinct coordinates; absent cells are NaN.
func (r *Reader) grid(path string, rows []row) (cube.Cube, error) {
	ts, ys, xs := uniq(rows, func(rw row) float64 { return rw.t }),
		uniq(rows, func(rw row) float64 { return rw.y }),
		uniq(rows, func(rw row) float64 { return rw.x })

	data := make([]float64, len(ts)*len(ys)*len(xs))
	for i := range data {
		data[i] = math.NaN()
	}
	for _, rw := range rows {
		ti := sort.SearchFloat64s(ts, rw.t)
		yi := sort.SearchFloat64s(ys, rw.y)
		xi := sort.SearchFloat64s(xs, rw.x)
		idx := (ti*len(ys)+yi)*len(xs) + xi
		if !math.IsNaN(data[idx]) {
			return nil, domain.DataErrorf("%s: duplicate record at time %v, y %v, x %v", path, rw.t, rw.y, rw.x)
		}
		data[idx] = rw.v
	}

	name := filepath.Base(filepath.Dir(path))
	return cube.NewDense(name, r.Units, []cube.Axis{
		{Name: cube.TimeAxis, Units: TimeUnits, Points: ts},
		{Name: cube.YAxis, Units: "degrees_north", Points: ys},
		{Name: cube.XAxis, Units: "degrees_east", Points: xs},
	}, data, nil)
}

func uniq(rows []row, key func(row) float64) []float64 {
	seen := make(map[float64]bool)
	out := make([]float64, 0)
	for _, rw := range rows {
		k := key(rw)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Float64s(out)
	return out
}
