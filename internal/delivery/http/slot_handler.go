package http

import (
	"net/http"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	executor "golang-news-slate/internal/executor/service"
	"golang-news-slate/internal/executor/strategy"
	"golang-news-slate/internal/service"
	"golang-news-slate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SlotHandler exposes today's board.
type SlotHandler struct {
	pipeline service.PipelineService
	executor executor.ExecutorService
	logger   *logger.Logger
	now      func() time.Time
}

// NewSlotHandler creates a new SlotHandler.
func NewSlotHandler(pipeline service.PipelineService, executorSvc executor.ExecutorService, logger *logger.Logger) *SlotHandler {
	return &SlotHandler{pipeline: pipeline, executor: executorSvc, logger: logger, now: time.Now}
}

// RegisterRoutes registers the slot routes to the Echo group.
func (h *SlotHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetSlots)
	g.POST("/:post/retry", h.RetrySlot)
}

// GetSlots godoc
// @Summary Get today's slate
// @Description List the nine scheduled posts of the current civic day with their status
// @Tags slots
// @Produce  json
// @Success 200 {object} dto.SlotsResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /slots [get]
func (h *SlotHandler) GetSlots(c echo.Context) error {
	now := h.now()
	if _, err := h.pipeline.EnsureBoard(c.Request().Context(), now); err != nil {
		h.logger.Error("Failed to load today's board", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	clock := h.pipeline.Clock()
	board := h.pipeline.Board()
	resp := dto.SlotsResponse{
		Date:   clock.Date(now),
		Board:  board.Date(),
		Counts: map[string]int{},
	}
	for status, n := range board.Counts() {
		resp.Counts[string(status)] = n
	}
	for _, p := range board.Posts() {
		view := dto.SlotView{ScheduledPost: p}
		if at, ok := clock.SlotTime(p.Date, p.Slot.PostNumber); ok {
			view.DueAt = at
		}
		resp.Posts = append(resp.Posts, view)
	}
	return c.JSON(http.StatusOK, resp)
}

// RetrySlot godoc
// @Summary Retry a failed post
// @Description Reset a failed post to ready and publish it immediately
// @Tags slots
// @Produce  json
// @Param   post  path    int true    "Post number 1-9"
// @Success 200 {object} dto.ExecutionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /slots/{post}/retry [post]
func (h *SlotHandler) RetrySlot(c echo.Context) error {
	n, err := parsePostNumber(c.Param("post"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	execution, err := h.executor.Run(c.Request().Context(), entity.StagePublish, entity.TriggerHTTP, strategy.Params{PostNumber: n, Retry: true})
	if err != nil {
		return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, executor.ToExecutionResponse(execution))
}
