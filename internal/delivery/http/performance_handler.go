package http

import (
	"io"
	"net/http"
	"strings"

	"golang-news-slate/internal/service"
	"golang-news-slate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// maxUploadBytes bounds performance CSV uploads.
const maxUploadBytes = 10 << 20

// PerformanceHandler accepts analytics exports.
type PerformanceHandler struct {
	performance service.PerformanceService
	logger      *logger.Logger
}

// NewPerformanceHandler creates a new PerformanceHandler.
func NewPerformanceHandler(performance service.PerformanceService, logger *logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{performance: performance, logger: logger}
}

// RegisterRoutes registers the performance routes to the Echo group.
func (h *PerformanceHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/upload", h.Upload)
}

// Upload godoc
// @Summary Upload a performance CSV
// @Description Update impressions and CTR from an analytics export, as multipart "file" or a text/csv body
// @Tags performance
// @Accept  mpfd
// @Accept  text/csv
// @Produce  json
// @Param   file  formData    file false    "CSV export"
// @Success 200 {object} service.ImportReport
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /performance/upload [post]
func (h *PerformanceHandler) Upload(c echo.Context) error {
	var body io.Reader
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "multipart field \"file\" is required"})
		}
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		defer f.Close()
		body = f
	} else {
		body = c.Request().Body
	}

	report, err := h.performance.ImportCSV(c.Request().Context(), io.LimitReader(body, maxUploadBytes))
	if err != nil {
		h.logger.Error("Performance upload rejected", logger.ErrorField(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}
