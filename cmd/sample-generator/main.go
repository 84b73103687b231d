// Command sample-generator writes synthetic daily partitions on a British National Grid
// style transverse Mercator grid, one NetCDF file per year.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/adapter/crs"
	"go.ngs.io/climate-api/internal/adapter/cube"
	ncstore "go.ngs.io/climate-api/internal/adapter/store/netcdf"
	"go.ngs.io/climate-api/internal/domain"
)

// TimeUnits of generated time axes.
const TimeUnits = "hours since 1970-01-01 00:00:00"

// britishNationalGrid is the OSGB36 transverse Mercator grid mapping.
var britishNationalGrid = crs.GridMapping{
	Name: "transverse_mercator",
	Params: map[string]float64{
		"latitude_of_projection_origin":    49,
		"longitude_of_central_meridian":    -2,
		"scale_factor_at_central_meridian": 0.9996012717,
		"false_easting":                    400000,
		"false_northing":                   -100000,
		"semi_major_axis":                  6377563.396,
		"semi_minor_axis":                  6356256.909,
	},
}

// Grid defines the projected grid cell centres.
type Grid struct {
	X0, Y0  float64 // First cell centre, metres.
	Spacing float64 // Metres.
	NX, NY  int
}

// Field describes the synthetic variable.
type Field struct {
	Name      string
	Units     string
	Mean      float64 // Annual mean at the grid origin.
	Amplitude float64 // Seasonal amplitude.
	Noise     float64 // Daily noise standard deviation.
	Gradient  float64 // Change per 100 km northwards.
}

func main() {
	outDir := flag.String("out", "./data", "Output data directory")
	parameter := flag.String("parameter", "tasmax", "Parameter name (directory and variable name)")
	units := flag.String("units", "degC", "Units of the variable")
	startYear := flag.Int("start-year", 1960, "First year to generate")
	endYear := flag.Int("end-year", 2015, "Last year to generate")
	x0 := flag.Float64("x0", 100000, "Easting of the first cell centre (m)")
	y0 := flag.Float64("y0", 0, "Northing of the first cell centre (m)")
	spacing := flag.Float64("spacing", 25000, "Grid spacing (m)")
	nx := flag.Int("nx", 24, "Number of cells east-west")
	ny := flag.Int("ny", 48, "Number of cells north-south")
	mean := flag.Float64("mean", 14, "Annual mean at the southern edge")
	amplitude := flag.Float64("amplitude", 7, "Seasonal amplitude")
	noise := flag.Float64("noise", 2, "Daily noise standard deviation")
	gradient := flag.Float64("gradient", -0.6, "Change per 100 km northwards")
	seed := flag.Int64("seed", 1, "Random seed")

	flag.Parse()

	if *endYear < *startYear {
		log.Fatalf("end-year %d is before start-year %d", *endYear, *startYear)
	}
	if *nx < 1 || *ny < 1 || *spacing <= 0 {
		log.Fatalf("invalid grid: nx=%d ny=%d spacing=%g", *nx, *ny, *spacing)
	}

	grid := Grid{X0: *x0, Y0: *y0, Spacing: *spacing, NX: *nx, NY: *ny}
	field := Field{
		Name:      *parameter,
		Units:     *units,
		Mean:      *mean,
		Amplitude: *amplitude,
		Noise:     *noise,
		Gradient:  *gradient,
	}

	dir := filepath.Join(*outDir, field.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	log.Printf("Generating %s for %d-%d on a %d x %d grid (%.0f m)", field.Name, *startYear, *endYear, grid.NX, grid.NY, grid.Spacing)

	rng := rand.New(rand.NewSource(*seed))
	for year := *startYear; year <= *endYear; year++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.nc", field.Name, year))
		if err := writeYear(path, year, grid, field, rng); err != nil {
			log.Fatalf("Failed to generate %d: %v", year, err)
		}
		log.Debugf("Generated %s", path)
	}

	log.Printf("Files created in: %s", dir)
	log.Printf("Total size: ~%.1f MB", float64(grid.NX*grid.NY*366*8*(*endYear-*startYear+1))/1024/1024)
}

// writeYear generates one year of daily midday values and writes it to path.
func writeYear(path string, year int, grid Grid, field Field, rng *rand.Rand) error {
	c, err := generateYear(year, grid, field, rng)
	if err != nil {
		return err
	}
	gm := britishNationalGrid
	return ncstore.Write(path, c, ncstore.WriteOptions{GridMapping: &gm})
}

// generateYear builds a [time, y, x] cube for every day of year.
func generateYear(year int, grid Grid, field Field, rng *rand.Rand) (cube.Cube, error) {
	tu, err := cube.ParseTimeUnits(TimeUnits)
	if err != nil {
		return nil, err
	}
	proj, err := crs.FromGridMapping(britishNationalGrid)
	if err != nil {
		return nil, err
	}

	first := time.Date(year, time.January, 1, domain.DatasetHour, 0, 0, 0, time.UTC)
	last := time.Date(year, time.December, 31, domain.DatasetHour, 0, 0, 0, time.UTC)
	days, err := domain.ExpandRange(first, last)
	if err != nil {
		return nil, err
	}

	timeAxis := cube.Axis{
		Name:   cube.TimeAxis,
		Units:  tu.String(),
		Points: make([]float64, len(days)),
		Bounds: make([][2]float64, len(days)),
	}
	for i, d := range days {
		midnight := d.Add(-domain.DatasetHour * time.Hour)
		timeAxis.Points[i] = tu.Date2Num(d)
		timeAxis.Bounds[i] = [2]float64{tu.Date2Num(midnight), tu.Date2Num(midnight.AddDate(0, 0, 1))}
	}

	ys := make([]float64, grid.NY)
	for j := range ys {
		ys[j] = grid.Y0 + float64(j)*grid.Spacing
	}
	xs := make([]float64, grid.NX)
	for i := range xs {
		xs[i] = grid.X0 + float64(i)*grid.Spacing
	}

	data := make([]float64, 0, len(days)*grid.NY*grid.NX)
	for _, d := range days {
		season := -math.Cos(2 * math.Pi * (float64(d.YearDay()) - 15) / 365.25)
		for _, y := range ys {
			for _, x := range xs {
				v := field.Mean +
					field.Amplitude*season +
					field.Gradient*(y-grid.Y0)/100000 +
					0.2*math.Sin(x/150000) +
					field.Noise*rng.NormFloat64()
				data = append(data, v)
			}
		}
	}

	return cube.NewDense(field.Name, field.Units, []cube.Axis{
		timeAxis,
		{Name: cube.YAxis, Units: "m", Points: ys},
		{Name: cube.XAxis, Units: "m", Points: xs},
	}, data, proj)
}
