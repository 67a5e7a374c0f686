package http

import (
	"net/http"

	_ "golang-news-slate/internal/delivery/http/docs"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	swagger "github.com/swaggo/echo-swagger"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Pipeline    *PipelineHandler
	Slots       *SlotHandler
	Performance *PerformanceHandler
	Executions  *ExecutionHandler
	Health      *HealthHandler
}

// NewRouter builds the echo server with every route of the service.
func NewRouter(h Handlers, gatherer prometheus.Gatherer, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.Sugar().Warnw("Request failed", append(fields, "error", v.Error)...)
				return nil
			}
			log.Sugar().Debugw("Request handled", fields...)
			return nil
		},
	}))

	apiV1 := e.Group("/api/v1")
	h.Pipeline.RegisterRoutes(apiV1.Group("/pipeline"))
	h.Slots.RegisterRoutes(apiV1.Group("/slots"))
	h.Performance.RegisterRoutes(apiV1.Group("/performance"))
	h.Executions.RegisterRoutes(apiV1.Group("/executions"))

	e.GET("/health", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	e.GET("/swagger/*", swagger.WrapHandler)
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
	})
	return e
}
