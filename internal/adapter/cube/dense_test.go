package cube

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climate-api/internal/domain"
)

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// newTestCube builds a 7x9x11 time/y/x cube holding 0..692 in storage order.
func newTestCube(t *testing.T) *Dense {
	t.Helper()
	data := make([]float64, 7*9*11)
	for i := range data {
		data[i] = float64(i)
	}
	c, err := NewDense("air_potential_temperature", "K", []Axis{
		{Name: TimeAxis, Units: "hours since 1970-01-01 00:00:00", Points: linspace(394200, 394236, 7)},
		{Name: YAxis, Units: "m", Points: linspace(-4, 4, 9)},
		{Name: XAxis, Units: "m", Points: linspace(-5, 5, 11)},
	}, data, nil)
	require.NoError(t, err)
	return c
}

func TestNewDenseValidation(t *testing.T) {
	_, err := NewDense("v", "K", []Axis{{Name: "x", Points: []float64{0, 1}}}, []float64{1}, nil)
	assert.ErrorIs(t, err, domain.ErrData)

	_, err = NewDense("v", "K", []Axis{{Name: "x", Points: []float64{0, 2, 1}}}, []float64{1, 2, 3}, nil)
	assert.ErrorIs(t, err, domain.ErrData)

	_, err = NewDense("v", "K", []Axis{{Name: "x", Points: []float64{0}}, {Name: "x", Points: []float64{0}}}, []float64{1}, nil)
	assert.ErrorIs(t, err, domain.ErrData)
}

func TestExtract(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	c := newTestCube(t)

	sub, ok, err := c.Extract(TimeAxis, []float64{394206, 394200})
	r.NoError(err)
	r.True(ok)
	a.Equal([]int{2, 9, 11}, sub.Shape())

	tc, err := sub.Coord(TimeAxis)
	r.NoError(err)
	a.Equal([]float64{394200, 394206}, tc.Points)

	v, err := sub.At(1, 0, 0)
	r.NoError(err)
	a.Equal(99.0, v)

	_, ok, err = c.Extract(TimeAxis, []float64{394201})
	r.NoError(err)
	a.False(ok)

	_, _, err = c.Extract("depth", []float64{1})
	a.True(errors.Is(err, domain.ErrData))
}

func TestSliceAndNearest(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	c := newTestCube(t)

	ix, err := c.NearestIndex(XAxis, 0.4)
	r.NoError(err)
	a.Equal(5, ix)

	sub, err := c.Slice(XAxis, 7, 5)
	r.NoError(err)
	a.Equal([]int{7, 9, 3}, sub.Shape())

	xc, err := sub.Coord(XAxis)
	r.NoError(err)
	a.Equal([]float64{0, 1, 2}, xc.Points)

	_, err = c.Slice(XAxis, 0, 11)
	a.Error(err)
}

func TestCollapseMean(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	c := newTestCube(t)

	m, err := c.Collapse(TimeAxis, Mean)
	r.NoError(err)
	a.Equal([]int{1, 9, 11}, m.Shape())

	// Cell (y, x) holds mean over t of t*99 + y*11 + x.
	v, err := m.At(0, 2, 3)
	r.NoError(err)
	a.InDelta(3*99+2*11+3, v, 1e-9)

	tc, err := m.Coord(TimeAxis)
	r.NoError(err)
	a.Equal([][2]float64{{394200, 394236}}, tc.Bounds)
	a.Equal([]float64{394218}, tc.Points)
}

func TestCollapseSkipsMissing(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	c, err := NewDense("v", "K", []Axis{
		{Name: TimeAxis, Units: "days since 2000-01-01", Points: []float64{0, 1, 2}},
		{Name: XAxis, Points: []float64{0, 1}},
	}, []float64{1, math.NaN(), math.NaN(), math.NaN(), 5, math.NaN()}, nil)
	r.NoError(err)

	m, err := c.Collapse(TimeAxis, Mean)
	r.NoError(err)
	data := m.Data()
	a.InDelta(3.0, data[0], 1e-9)
	a.True(math.IsNaN(data[1]))
}

func TestCell(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	c := newTestCube(t)

	cell, err := c.Cell(99*3 + 11*4 + 6)
	r.NoError(err)
	a.Equal([]int{1, 1, 1}, cell.Shape())
	a.Equal([]float64{99*3 + 11*4 + 6}, cell.Data())

	tc, _ := cell.Coord(TimeAxis)
	yc, _ := cell.Coord(YAxis)
	xc, _ := cell.Coord(XAxis)
	a.Equal([]float64{394218}, tc.Points)
	a.Equal([]float64{0}, yc.Points)
	a.Equal([]float64{1}, xc.Points)
}

func TestTimeUnits(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	tu, err := ParseTimeUnits("hours since 1970-01-01 00:00:00")
	r.NoError(err)
	a.Equal(time.Hour, tu.Step)

	d := time.Date(2014, time.December, 21, 0, 0, 0, 0, time.UTC)
	a.InDelta(394200, tu.Date2Num(d), 1e-9)
	a.True(tu.Num2Date(394206).Equal(d.Add(6 * time.Hour)))

	tu, err = ParseTimeUnits("days since 1800-1-1")
	r.NoError(err)
	a.InDelta(0.5, tu.Date2Num(time.Date(1800, 1, 1, 12, 0, 0, 0, time.UTC)), 1e-12)

	tu, err = ParseTimeUnits("seconds since 2000-01-01T00:00:00Z")
	r.NoError(err)
	a.InDelta(86400, tu.Date2Num(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)), 1e-9)

	for _, bad := range []string{"", "hours", "fortnights since 2000-01-01", "hours since yesterday"} {
		_, err := ParseTimeUnits(bad)
		a.Error(err, bad)
	}
}

func TestConcatenate(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	mk := func(times []float64, base float64) Cube {
		data := make([]float64, len(times)*2)
		for i := range data {
			data[i] = base + float64(i)
		}
		c, err := NewDense("tasmax", "degC", []Axis{
			{Name: TimeAxis, Units: "days since 2000-01-01", Points: times},
			{Name: XAxis, Units: "m", Points: []float64{10, 20}},
		}, data, nil)
		r.NoError(err)
		return c
	}

	joined, err := Concatenate([]Cube{mk([]float64{2, 3}, 100), mk([]float64{0, 1}, 0)}, TimeAxis)
	r.NoError(err)
	a.Equal([]int{4, 2}, joined.Shape())
	a.Equal([]float64{0, 1, 2, 3, 100, 101, 102, 103}, joined.Data())

	_, err = Concatenate([]Cube{mk([]float64{0, 1}, 0), mk([]float64{1, 2}, 0)}, TimeAxis)
	a.ErrorIs(err, domain.ErrData)

	other, err := NewDense("tasmax", "degC", []Axis{
		{Name: TimeAxis, Units: "days since 2000-01-01", Points: []float64{5}},
		{Name: XAxis, Units: "m", Points: []float64{10, 30}},
	}, []float64{1, 2}, nil)
	r.NoError(err)
	_, err = Concatenate([]Cube{mk([]float64{0, 1}, 0), other}, TimeAxis)
	a.ErrorIs(err, domain.ErrData)
}
