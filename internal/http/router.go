package http

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/domain"
	"go.ngs.io/climate-api/internal/usecase"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RouterConfig holds the router settings.
type RouterConfig struct {
	// AllowedOrigins for CORS. Empty allows all origins.
	AllowedOrigins []string

	// GraphDir, when set, is served under /graphs.
	GraphDir string

	Log logrus.FieldLogger
}

// SetupRouter creates and configures the Gin router.
func SetupRouter(queryUC *usecase.QueryUseCase, cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	setupValidators()

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(cfg.Log))

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(queryUC, cfg.Log)

	// Point queries.
	router.GET("/:parameter/:operation/range", handler.GetRange)
	router.GET("/:parameter/:operation/climatology", handler.GetClimatology)

	v1 := router.Group("/v1")
	v1.GET("/parameters", handler.GetParameters)

	if cfg.GraphDir != "" {
		router.Static("/graphs", cfg.GraphDir)
	}

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}

var validatorsOnce sync.Once

// setupValidators registers the custom tags on gin's validator. It panics on failure.
func setupValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("unexpected binding validator engine %T", binding.Validator.Engine()))
		}
		if err := registerValidators(v); err != nil {
			panic(err)
		}
	})
}

// registerValidators adds the isodate tag and reports fields by their query names.
func registerValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("isodate", isoDate); err != nil {
		return fmt.Errorf("failed to register isodate validator: %w", err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	return nil
}

func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(domain.DateLayout, fl.Field().String())
	return err == nil
}

// requestID propagates the caller's request ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"query":      c.Request.URL.RawQuery,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
		}).Info("request completed")
	}
}
