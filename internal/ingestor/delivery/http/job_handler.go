package http

import (
	"net/http"

	"finnews-notifier/internal/ingestor/service"
	"finnews-notifier/pkg/logger"

	"github.com/labstack/echo/v4"
)

// JobHandler exposes the ops endpoints of the ingestion service.
type JobHandler struct {
	ingestion service.IngestionService
	gate      *service.CycleGate
	logger    *logger.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(ingestion service.IngestionService, gate *service.CycleGate, log *logger.Logger) *JobHandler {
	return &JobHandler{ingestion: ingestion, gate: gate, logger: log}
}

// RegisterRoutes registers the ops routes on the Echo instance.
func (h *JobHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.POST("/internal/jobs/news-ingestion", h.RunIngestion)
}

// Health reports process liveness.
func (h *JobHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// RunIngestion triggers one ingestion cycle out of band. The cycle gate keeps
// it serialized with the scheduled runs.
func (h *JobHandler) RunIngestion(c echo.Context) error {
	ctx := c.Request().Context()

	if !h.gate.TryAcquire(ctx) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "an ingestion cycle is already running"})
	}
	defer h.gate.Release(ctx)

	stats, err := h.ingestion.RunCycle(ctx)
	if err != nil {
		h.logger.Error("Manual ingestion cycle failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}
