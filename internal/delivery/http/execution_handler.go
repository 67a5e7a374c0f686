package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-news-slate/internal/entity"
	executor "golang-news-slate/internal/executor/service"
	"golang-news-slate/pkg/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const defaultExecutionLimit = 50

// ExecutionHandler handles HTTP requests for stage run history.
type ExecutionHandler struct {
	historyService executor.ExecutionHistoryService
	logger         *logger.Logger
}

// NewExecutionHandler creates a new ExecutionHandler.
func NewExecutionHandler(historyService executor.ExecutionHistoryService, logger *logger.Logger) *ExecutionHandler {
	return &ExecutionHandler{historyService: historyService, logger: logger}
}

// RegisterRoutes registers the execution routes to the Echo group.
func (h *ExecutionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetExecutions)
	g.GET("/:id", h.GetExecutionByID)
}

// GetExecutions godoc
// @Summary List stage runs
// @Description List the most recent stage runs, newest first
// @Tags executions
// @Produce  json
// @Param   stage  query    string false    "collect, publish or metrics"
// @Param   limit  query    int false    "Maximum number of runs (default 50)"
// @Success 200 {array} dto.ExecutionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /executions [get]
func (h *ExecutionHandler) GetExecutions(c echo.Context) error {
	stage := entity.Stage(c.QueryParam("stage"))
	switch stage {
	case "", entity.StageCollect, entity.StagePublish, entity.StageMetrics:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid stage"})
	}

	limit := defaultExecutionLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		limit = n
	}

	executions, err := h.historyService.GetRecentExecutions(c.Request().Context(), stage, limit)
	if err != nil {
		h.logger.Error("Failed to list executions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get executions"})
	}
	return c.JSON(http.StatusOK, executions)
}

// GetExecutionByID godoc
// @Summary Get a stage run by ID
// @Description Get a single stage run with its params and output
// @Tags executions
// @Produce  json
// @Param   id  path    int true    "Execution ID"
// @Success 200 {object} dto.ExecutionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /executions/{id} [get]
func (h *ExecutionHandler) GetExecutionByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid execution ID"})
	}

	execution, err := h.historyService.GetExecutionByID(c.Request().Context(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Execution not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, execution)
}
