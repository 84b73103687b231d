package main

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climate-api/internal/adapter/cube"
	ncstore "go.ngs.io/climate-api/internal/adapter/store/netcdf"
	"go.ngs.io/climate-api/internal/domain"
	"go.ngs.io/climate-api/internal/grid"
)

var testGrid = Grid{X0: 300000, Y0: -100000, Spacing: 100000, NX: 3, NY: 2}

var testField = Field{Name: "tasmax", Units: "degC", Mean: 10, Amplitude: 5}

func TestGenerateYear(t *testing.T) {
	c, err := generateYear(2012, testGrid, testField, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// 2012 is a leap year.
	assert.Equal(t, []int{366, 2, 3}, c.Shape())
	assert.False(t, c.CRS().IsGeographic())

	tu, err := c.TimeUnits()
	require.NoError(t, err)
	tc, err := c.Coord(cube.TimeAxis)
	require.NoError(t, err)
	assert.True(t, tu.Num2Date(tc.Points[0]).Equal(time.Date(2012, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, tu.Num2Date(tc.Bounds[0][0]).Equal(time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, tu.Num2Date(tc.Bounds[365][1]).Equal(time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Without noise, mid January is colder than mid July.
	data := c.Data()
	cells := testGrid.NX * testGrid.NY
	assert.Less(t, data[14*cells], data[196*cells])
}

func TestWriteYearIsQueryable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasmax_2013.nc")
	require.NoError(t, writeYear(path, 2013, testGrid, testField, rand.New(rand.NewSource(1))))

	c, err := ncstore.NewReader().Read(path)
	require.NoError(t, err)
	assert.Equal(t, []int{365, 2, 3}, c.Shape())

	day, err := domain.ParseDate("2013-07-01")
	require.NoError(t, err)
	h, err := grid.New(c).SelectTimes([]time.Time{day})
	require.NoError(t, err)
	h, err = h.SelectPoint(-2, 49, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, h.Cube().Shape())
}
