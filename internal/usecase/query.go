package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/adapter/cube"
	"go.ngs.io/climate-api/internal/adapter/store"
	"go.ngs.io/climate-api/internal/domain"
	"go.ngs.io/climate-api/internal/grid"
)

// DefaultClimatologyYears is how many preceding years a climatology query spans.
const DefaultClimatologyYears = 20

// Kind selects how the request window is expanded into timestamps.
type Kind int

const (
	// Range queries every day of the window.
	Range Kind = iota
	// Climatology queries every day of the window in each of the preceding years too.
	Climatology
)

// String returns the route segment for the kind.
func (k Kind) String() string {
	switch k {
	case Range:
		return "range"
	case Climatology:
		return "climatology"
	default:
		return "unknown"
	}
}

// QueryRequest encapsulates a point query.
type QueryRequest struct {
	Parameter string
	Operation domain.Operation
	Kind      Kind
	Dates     domain.DateInputs

	// Location in longitude/latitude degrees. Both are required.
	Lon *float64
	Lat *float64
}

// QueryResponse is the reduced value and the dates it actually covers.
type QueryResponse struct {
	Value     float64 `json:"value"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Graph     string  `json:"graph"`
}

// GraphPublisher renders the point time series and returns a link to the image.
type GraphPublisher interface {
	Publish(ctx context.Context, series cube.Cube) (string, error)
}

// Settings carries the query defaults.
type Settings struct {
	Defaults         domain.Window
	ClimatologyYears int
}

// DefaultSettings returns the standard dataset window and a 20 year climatology.
func DefaultSettings() Settings {
	return Settings{
		Defaults:         domain.DefaultWindow(),
		ClimatologyYears: DefaultClimatologyYears,
	}
}

// QueryUseCase runs the date window, partition load, subset and aggregation chain.
type QueryUseCase struct {
	catalog  store.ParameterLoader
	settings Settings
	graphs   GraphPublisher
	now      func() time.Time
	log      logrus.FieldLogger
}

// Option configures a QueryUseCase.
type Option func(*QueryUseCase)

// WithClock overrides the clock used for climatology requests without dates.
func WithClock(now func() time.Time) Option {
	return func(uc *QueryUseCase) { uc.now = now }
}

// WithGraphPublisher enables graph links in responses.
func WithGraphPublisher(p GraphPublisher) Option {
	return func(uc *QueryUseCase) { uc.graphs = p }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(uc *QueryUseCase) { uc.log = l }
}

// NewQueryUseCase creates a query use case over catalog.
func NewQueryUseCase(catalog store.ParameterLoader, settings Settings, opts ...Option) *QueryUseCase {
	if settings.ClimatologyYears < 0 {
		settings.ClimatologyYears = 0
	}
	uc := &QueryUseCase{
		catalog:  catalog,
		settings: settings,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Validate checks the location of the request.
func (r *QueryRequest) Validate() error {
	if r.Lon == nil || r.Lat == nil {
		return domain.InputErrorf("lon and lat are required")
	}
	if math.IsNaN(*r.Lon) || math.IsInf(*r.Lon, 0) || math.IsNaN(*r.Lat) || math.IsInf(*r.Lat, 0) {
		return domain.InputErrorf("lon and lat must be finite numbers")
	}
	if *r.Lat < -90 || *r.Lat > 90 {
		return domain.InputErrorf("latitude must be between -90 and 90")
	}
	if *r.Lon < -180 || *r.Lon > 180 {
		return domain.InputErrorf("longitude must be between -180 and 180")
	}
	if r.Parameter == "" {
		return domain.InputErrorf("parameter is required")
	}
	return nil
}

// Execute answers a query. Errors keep their domain class for the caller to map.
func (uc *QueryUseCase) Execute(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := uc.log.WithFields(logrus.Fields{
		"parameter": req.Parameter,
		"operation": req.Operation.String(),
		"kind":      req.Kind.String(),
	})

	timestamps, err := uc.timestamps(req)
	if err != nil {
		return nil, err
	}
	pattern := domain.PartitionPattern(domain.YearsOf(timestamps))
	log.WithFields(logrus.Fields{"timestamps": len(timestamps), "pattern": pattern}).Debug("window expanded")

	data, err := uc.catalog.Load(req.Parameter, pattern)
	if err != nil {
		return nil, uc.fail(log, fmt.Errorf("failed to load %s: %w", req.Parameter, err))
	}

	h, err := grid.New(data).SelectTimes(timestamps)
	if err != nil {
		return nil, uc.fail(log, fmt.Errorf("failed to select times: %w", err))
	}
	h, err = h.SelectPoint(*req.Lon, *req.Lat, nil)
	if err != nil {
		return nil, uc.fail(log, fmt.Errorf("failed to select point (%.4f, %.4f): %w", *req.Lon, *req.Lat, err))
	}

	graph := uc.publish(ctx, log, h.Cube())

	res, err := h.Aggregate(req.Operation, cube.TimeAxis)
	if err != nil {
		return nil, uc.fail(log, fmt.Errorf("failed to aggregate: %w", err))
	}

	log.WithField("value", res.Value).Debug("query answered")
	return &QueryResponse{
		Value:     res.Value,
		StartDate: res.Start.Format(domain.DateLayout),
		EndDate:   res.End.Format(domain.DateLayout),
		Graph:     graph,
	}, nil
}

// ListParameters returns the names a request may use.
func (uc *QueryUseCase) ListParameters() ([]string, error) {
	return uc.catalog.ListParameters()
}

// timestamps expands the request dates into the exact timestamps to select.
func (uc *QueryUseCase) timestamps(req QueryRequest) ([]time.Time, error) {
	dates := req.Dates
	if req.Kind == Climatology && dates.IsEmpty() {
		dates.Date = uc.now().UTC().Format(domain.DateLayout)
	}

	start, end, err := domain.ResolveRequestWindow(dates, uc.settings.Defaults)
	if err != nil {
		return nil, err
	}
	days, err := domain.ExpandRange(start, end)
	if err != nil {
		return nil, err
	}

	switch req.Kind {
	case Range:
		return days, nil
	case Climatology:
		return domain.ExpandYears(days, uc.settings.ClimatologyYears), nil
	default:
		return nil, domain.InputErrorf("unknown query kind %d", int(req.Kind))
	}
}

// publish returns the graph link, or "" when publishing is disabled or fails.
func (uc *QueryUseCase) publish(ctx context.Context, log logrus.FieldLogger, series cube.Cube) string {
	if uc.graphs == nil {
		return ""
	}
	link, err := uc.graphs.Publish(ctx, series)
	if err != nil {
		log.WithError(err).Warn("failed to publish graph")
		return ""
	}
	return link
}

func (uc *QueryUseCase) fail(log logrus.FieldLogger, err error) error {
	if errors.Is(err, domain.ErrData) {
		log.WithError(err).Error("query failed")
	} else {
		log.WithError(err).Debug("query rejected")
	}
	return err
}
