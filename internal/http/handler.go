package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/domain"
	"go.ngs.io/climate-api/internal/usecase"
)

// Handler handles HTTP requests for point queries.
type Handler struct {
	queryUC *usecase.QueryUseCase
	log     logrus.FieldLogger
}

// NewHandler creates a new HTTP handler.
func NewHandler(queryUC *usecase.QueryUseCase, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		queryUC: queryUC,
		log:     log,
	}
}

// queryParams are the query string parameters shared by both query routes.
// Coordinates bind as text so that an empty value fails "required" instead of becoming 0.
type queryParams struct {
	Lon       string `form:"lon" binding:"required"`
	Lat       string `form:"lat" binding:"required"`
	Date      string `form:"date" binding:"omitempty,isodate"`
	StartDate string `form:"start_date" binding:"omitempty,isodate"`
	EndDate   string `form:"end_date" binding:"omitempty,isodate"`
}

// coordinates parses lon and lat as decimal degrees.
func (p queryParams) coordinates() (lon, lat float64, err error) {
	if lon, err = strconv.ParseFloat(strings.TrimSpace(p.Lon), 64); err != nil {
		return 0, 0, domain.InputErrorf("invalid longitude %q", p.Lon)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(p.Lat), 64); err != nil {
		return 0, 0, domain.InputErrorf("invalid latitude %q", p.Lat)
	}
	return lon, lat, nil
}

// GetRange handles GET /:parameter/:operation/range.
func (h *Handler) GetRange(c *gin.Context) {
	h.query(c, usecase.Range)
}

// GetClimatology handles GET /:parameter/:operation/climatology.
func (h *Handler) GetClimatology(c *gin.Context) {
	h.query(c, usecase.Climatology)
}

func (h *Handler) query(c *gin.Context, kind usecase.Kind) {
	op, err := domain.ParseOperation(c.Param("operation"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var params queryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	lon, lat, err := params.coordinates()
	if err != nil {
		h.writeError(c, err)
		return
	}

	req := usecase.QueryRequest{
		Parameter: c.Param("parameter"),
		Operation: op,
		Kind:      kind,
		Dates: domain.DateInputs{
			Date:      params.Date,
			StartDate: params.StartDate,
			EndDate:   params.EndDate,
		},
		Lon: &lon,
		Lat: &lat,
	}

	response, err := h.queryUC.Execute(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetParameters handles GET /v1/parameters.
func (h *Handler) GetParameters(c *gin.Context) {
	names, err := h.queryUC.ListParameters()
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"parameters": names,
		"count":      len(names),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeError maps the error class onto a status code.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoMatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// bindingMessage turns validator failures into one readable line.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid query parameters: " + err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " parameter is required"
	case "isodate":
		return "invalid " + fe.Field() + " (expected YYYY-MM-DD)"
	default:
		return "invalid " + fe.Field()
	}
}
