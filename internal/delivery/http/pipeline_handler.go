package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-news-slate/internal/entity"
	executor "golang-news-slate/internal/executor/service"
	"golang-news-slate/internal/executor/strategy"
	"golang-news-slate/internal/service"
	"golang-news-slate/internal/slot"
	"golang-news-slate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PipelineHandler triggers pipeline stages on demand.
type PipelineHandler struct {
	executor executor.ExecutorService
	logger   *logger.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(executorSvc executor.ExecutorService, logger *logger.Logger) *PipelineHandler {
	return &PipelineHandler{executor: executorSvc, logger: logger}
}

// RegisterRoutes registers the pipeline routes to the Echo group.
func (h *PipelineHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/collect", h.Collect)
	g.POST("/publish", h.Publish)
	g.POST("/metrics", h.Metrics)
}

// Collect godoc
// @Summary Run the collection stage
// @Description Collect, score and rank candidates and assign today's slate
// @Tags pipeline
// @Produce  json
// @Success 200 {object} dto.ExecutionResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /pipeline/collect [post]
func (h *PipelineHandler) Collect(c echo.Context) error {
	return h.run(c, entity.StageCollect, strategy.Params{})
}

// Publish godoc
// @Summary Run the publish stage
// @Description Publish the post due this hour, or the given post number
// @Tags pipeline
// @Produce  json
// @Param   post  query    int false    "Post number 1-9"
// @Success 200 {object} dto.ExecutionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /pipeline/publish [post]
func (h *PipelineHandler) Publish(c echo.Context) error {
	var params strategy.Params
	if raw := c.QueryParam("post"); raw != "" {
		n, err := parsePostNumber(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		params.PostNumber = n
	}
	return h.run(c, entity.StagePublish, params)
}

// Metrics godoc
// @Summary Run a metrics phase
// @Description Fetch platform metrics for posts old enough for the phase
// @Tags pipeline
// @Produce  json
// @Param   phase  query    string true    "initial, day1, day3 or day10"
// @Success 200 {object} dto.ExecutionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /pipeline/metrics [post]
func (h *PipelineHandler) Metrics(c echo.Context) error {
	phase, err := service.ParsePhase(c.QueryParam("phase"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return h.run(c, entity.StageMetrics, strategy.Params{Phase: string(phase)})
}

func (h *PipelineHandler) run(c echo.Context, stage entity.Stage, params strategy.Params) error {
	execution, err := h.executor.Run(c.Request().Context(), stage, entity.TriggerHTTP, params)
	if err != nil {
		h.logger.Error("Stage run failed", logger.StringField("stage", string(stage)), logger.ErrorField(err))
		return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, executor.ToExecutionResponse(execution))
}

var errBadPostNumber = errors.New("post must be a number between 1 and 9")

func parsePostNumber(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > entity.SlotCount {
		return 0, errBadPostNumber
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownPhase),
		errors.Is(err, slot.ErrUnknownPost),
		errors.Is(err, slot.ErrInvalidTransition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
