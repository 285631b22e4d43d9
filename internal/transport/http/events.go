package httpt

import (
	"context"
	"net/http"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/internal/transport/sender"

	"github.com/gin-gonic/gin"
)

// Fan-out over a large member list can take a while; pipeline routes get
// a longer budget than the CRUD ones.
const _pipelineTimeout = 30 * time.Second

// @Summary Ingest a network event
// @Description Runs the event through resolution and dispatch for every affected user
// @Tags Events
// @Accept json
// @Produce json
// @Param request body httpt.IngestEventRequest true "Event to process"
// @Success 200 {object} httpt.DeliveryReportResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/events [post]
func (h *Handler) ingestEvent(c *gin.Context) {
	const op = "transport.ingestEvent"

	var req IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _pipelineTimeout)
	defer cancel()

	report, err := h.events.Process(ctx, entity.NetworkEvent{
		Type:      entity.NotificationType(req.Type),
		NetworkID: req.NetworkID,
		Priority:  entity.Priority(req.Priority),
		Title:     req.Title,
		Message:   req.Message,
		Details:   req.Details,
	})
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, toReportResponse(report))
}

// @Summary Send a test notification
// @Description Delivers a synthetic notification on one channel, skipping quiet hours and rate limits
// @Tags Events
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param request body httpt.TestDeliveryRequest true "Channel to exercise"
// @Success 200 {object} httpt.SuccessResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/test [post]
func (h *Handler) testDelivery(c *gin.Context) {
	const op = "transport.testDelivery"

	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req TestDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body", err)
		return
	}

	channel := entity.Channel(req.Channel)
	if !channel.IsValid() {
		h.respondError(c, http.StatusBadRequest, "invalid_data",
			"channel must be email or discord", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _pipelineTimeout)
	defer cancel()

	if err := h.events.TestDelivery(ctx, userID, req.NetworkID, channel); err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Test notification sent"})
}

// @Summary Service status
// @Description Per-channel configuration and connectivity plus the rate-limit overflow counter
// @Tags System
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/notifications/status [get]
func (h *Handler) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	channels := make([]sender.Status, 0, len(h.statuses))
	for _, reporter := range h.statuses {
		channels = append(channels, reporter.Status(ctx))
	}

	c.JSON(http.StatusOK, gin.H{
		"channels":            channels,
		"rate_limit_overflow": h.events.Overflow(),
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
