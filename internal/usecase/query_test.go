package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/domain"
)

// fakeLoader serves one cube and records the patterns requested.
type fakeLoader struct {
	cube     cube.Cube
	err      error
	patterns []string
}

func (f *fakeLoader) ListParameters() ([]string, error) {
	return []string{"tasmax"}, nil
}

func (f *fakeLoader) Load(parameter, pattern string) (cube.Cube, error) {
	f.patterns = append(f.patterns, pattern)
	if f.err != nil {
		return nil, f.err
	}
	return f.cube, nil
}

type fakePublisher struct {
	link string
	err  error
}

func (f fakePublisher) Publish(_ context.Context, _ cube.Cube) (string, error) {
	return f.link, f.err
}

// newDailyCube builds a 3x3 lon/lat cube over the given days; cell (d, y, x) holds d*10 + y*3 + x.
func newDailyCube(t *testing.T, days []time.Time) cube.Cube {
	t.Helper()
	units, err := cube.ParseTimeUnits("hours since 1970-01-01 00:00:00")
	require.NoError(t, err)

	points := make([]float64, len(days))
	data := make([]float64, 0, len(days)*9)
	for d, day := range days {
		points[d] = units.Date2Num(day)
		for cell := 0; cell < 9; cell++ {
			data = append(data, float64(d*10+cell))
		}
	}

	c, err := cube.NewDense("tasmax", "degC", []cube.Axis{
		{Name: cube.TimeAxis, Units: units.String(), Points: points},
		{Name: cube.YAxis, Units: "degrees", Points: []float64{-1, 0, 1}},
		{Name: cube.XAxis, Units: "degrees", Points: []float64{-1, 0, 1}},
	}, data, nil)
	require.NoError(t, err)
	return c
}

func midday(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, domain.DatasetHour, 0, 0, 0, time.UTC)
}

func january2010(t *testing.T) cube.Cube {
	days := make([]time.Time, 10)
	for i := range days {
		days[i] = midday(2010, time.January, i+1)
	}
	return newDailyCube(t, days)
}

func ptr(v float64) *float64 { return &v }

func TestExecuteRange(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	loader := &fakeLoader{cube: january2010(t)}
	uc := NewQueryUseCase(loader, DefaultSettings())

	req := QueryRequest{
		Parameter: "tasmax",
		Operation: domain.OpMean,
		Kind:      Range,
		Dates:     domain.DateInputs{StartDate: "2010-01-02", EndDate: "2010-01-04"},
		Lon:       ptr(0.1),
		Lat:       ptr(-0.2),
	}

	resp, err := uc.Execute(context.Background(), req)
	r.NoError(err)
	a.InDelta(24.0, resp.Value, 1e-9)
	a.Equal("2010-01-02", resp.StartDate)
	a.Equal("2010-01-04", resp.EndDate)
	a.Equal("", resp.Graph)
	a.Equal([]string{"2010"}, loader.patterns)

	req.Operation = domain.OpMax
	resp, err = uc.Execute(context.Background(), req)
	r.NoError(err)
	a.Equal(34.0, resp.Value)
	a.Equal("2010-01-04", resp.StartDate)
	a.Equal("2010-01-04", resp.EndDate)

	req.Operation = domain.OpMin
	req.Dates = domain.DateInputs{Date: "2010-01-07"}
	resp, err = uc.Execute(context.Background(), req)
	r.NoError(err)
	a.Equal(64.0, resp.Value)
	a.Equal("2010-01-07", resp.StartDate)
}

func TestExecuteClimatology(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	loader := &fakeLoader{cube: newDailyCube(t, []time.Time{
		midday(2008, time.January, 5),
		midday(2009, time.January, 5),
		midday(2010, time.January, 5),
	})}
	clock := func() time.Time { return time.Date(2010, time.January, 5, 8, 30, 0, 0, time.UTC) }
	uc := NewQueryUseCase(loader, Settings{Defaults: domain.DefaultWindow(), ClimatologyYears: 2},
		WithClock(clock), WithGraphPublisher(fakePublisher{link: "https://graphs.example/abc.png"}))

	resp, err := uc.Execute(context.Background(), QueryRequest{
		Parameter: "tasmax",
		Operation: domain.OpMean,
		Kind:      Climatology,
		Lon:       ptr(1),
		Lat:       ptr(1),
	})
	r.NoError(err)
	// Cell (y=2, x=2) is 8 plus 0, 10 and 20 over the three years.
	a.InDelta(18.0, resp.Value, 1e-9)
	a.Equal("2008-01-05", resp.StartDate)
	a.Equal("2010-01-05", resp.EndDate)
	a.Equal("https://graphs.example/abc.png", resp.Graph)
	a.Equal([]string{"{2008,2009,2010}"}, loader.patterns)
}

func TestExecuteGraphFailureIsIgnored(t *testing.T) {
	uc := NewQueryUseCase(&fakeLoader{cube: january2010(t)}, DefaultSettings(),
		WithGraphPublisher(fakePublisher{err: errors.New("upload refused")}))

	resp, err := uc.Execute(context.Background(), QueryRequest{
		Parameter: "tasmax",
		Kind:      Range,
		Dates:     domain.DateInputs{Date: "2010-01-03"},
		Lon:       ptr(0),
		Lat:       ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Graph)
	assert.Equal(t, 24.0, resp.Value)
}

func TestExecuteErrors(t *testing.T) {
	base := QueryRequest{
		Parameter: "tasmax",
		Operation: domain.OpMean,
		Kind:      Range,
		Dates:     domain.DateInputs{Date: "2010-01-03"},
		Lon:       ptr(0),
		Lat:       ptr(0),
	}

	tests := []struct {
		name      string
		modify    func(*QueryRequest)
		loaderErr error
		want      error
	}{
		{"missing lon", func(r *QueryRequest) { r.Lon = nil }, nil, domain.ErrInput},
		{"latitude out of range", func(r *QueryRequest) { r.Lat = ptr(91) }, nil, domain.ErrInput},
		{"malformed date", func(r *QueryRequest) { r.Dates = domain.DateInputs{Date: "03/01/2010"} }, nil, domain.ErrInput},
		{"reversed range", func(r *QueryRequest) {
			r.Dates = domain.DateInputs{StartDate: "2010-01-05", EndDate: "2010-01-01"}
		}, nil, domain.ErrInput},
		{"date outside data", func(r *QueryRequest) { r.Dates = domain.DateInputs{Date: "2010-02-01"} }, nil, domain.ErrNoMatch},
		{"unknown parameter", func(*QueryRequest) {}, domain.NotFoundErrorf("parameter %q not found", "tasmax"), domain.ErrNotFound},
		{"broken partitions", func(*QueryRequest) {}, domain.DataErrorf("overlapping time"), domain.ErrData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &fakeLoader{cube: january2010(t), err: tt.loaderErr}
			uc := NewQueryUseCase(loader, DefaultSettings())

			req := base
			tt.modify(&req)
			_, err := uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExecuteValidatesBeforeLoading(t *testing.T) {
	loader := &fakeLoader{cube: january2010(t)}
	uc := NewQueryUseCase(loader, DefaultSettings())

	_, err := uc.Execute(context.Background(), QueryRequest{Parameter: "tasmax", Lat: ptr(0)})
	assert.ErrorIs(t, err, domain.ErrInput)
	assert.Empty(t, loader.patterns)
}

func TestListParameters(t *testing.T) {
	uc := NewQueryUseCase(&fakeLoader{}, DefaultSettings())
	names, err := uc.ListParameters()
	require.NoError(t, err)
	assert.Equal(t, []string{"tasmax"}, names)
}
