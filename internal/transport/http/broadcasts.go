package httpt

import (
	"context"
	"net/http"

	"cartographer-notify/internal/entity"
	"cartographer-notify/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// @Summary Schedule a broadcast
// @Description Creates a pending broadcast; scheduled_at must be at least five minutes out
// @Tags Broadcasts
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param request body httpt.CreateBroadcastRequest true "Broadcast to schedule"
// @Success 201 {object} entity.ScheduledBroadcast
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/broadcasts [post]
func (h *Handler) createBroadcast(c *gin.Context) {
	const op = "transport.createBroadcast"

	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req CreateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	b, err := h.broadcasts.Create(ctx, service.CreateBroadcastRequest{
		NetworkID:   req.NetworkID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        entity.NotificationType(req.Type),
		Priority:    entity.Priority(req.Priority),
		ScheduledAt: req.ScheduledAt,
		Timezone:    req.Timezone,
		CreatedBy:   userID,
	})
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// @Summary List broadcasts for a network
// @Tags Broadcasts
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param network_id query string true "Network identifier"
// @Param include_completed query bool false "Include terminal broadcasts"
// @Success 200 {array} entity.ScheduledBroadcast
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/broadcasts [get]
func (h *Handler) listBroadcasts(c *gin.Context) {
	const op = "transport.listBroadcasts"

	if _, ok := h.userID(c); !ok {
		return
	}

	networkID := c.Query("network_id")
	if networkID == "" {
		h.respondError(c, http.StatusBadRequest, "invalid_data",
			"network_id query parameter is required", nil)
		return
	}
	includeCompleted := c.Query("include_completed") == "true"

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	list, err := h.broadcasts.List(ctx, networkID, includeCompleted)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get one broadcast
// @Tags Broadcasts
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param id path string true "Broadcast identifier"
// @Success 200 {object} entity.ScheduledBroadcast
// @Failure 404 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/broadcasts/{id} [get]
func (h *Handler) getBroadcast(c *gin.Context) {
	const op = "transport.getBroadcast"

	if _, ok := h.userID(c); !ok {
		return
	}

	id, ok := h.broadcastID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	b, err := h.broadcasts.Get(ctx, id)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary Edit a pending broadcast
// @Description Partial update; rejected once the broadcast left the pending state
// @Tags Broadcasts
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param id path string true "Broadcast identifier"
// @Param request body httpt.UpdateBroadcastRequest true "Fields to change"
// @Success 200 {object} entity.ScheduledBroadcast
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 404 {object} httpt.ErrorResponse
// @Failure 409 {object} httpt.ErrorResponse
// @Router /api/notifications/broadcasts/{id} [patch]
func (h *Handler) updateBroadcast(c *gin.Context) {
	const op = "transport.updateBroadcast"

	if _, ok := h.userID(c); !ok {
		return
	}

	id, ok := h.broadcastID(c)
	if !ok {
		return
	}

	var req UpdateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	b, err := h.broadcasts.Update(ctx, id, req.toUpdate())
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary Cancel a pending broadcast
// @Tags Broadcasts
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param id path string true "Broadcast identifier"
// @Success 200 {object} httpt.SuccessResponse
// @Failure 404 {object} httpt.ErrorResponse
// @Failure 409 {object} httpt.ErrorResponse
// @Router /api/notifications/broadcasts/{id}/cancel [post]
func (h *Handler) cancelBroadcast(c *gin.Context) {
	const op = "transport.cancelBroadcast"

	if _, ok := h.userID(c); !ok {
		return
	}

	id, ok := h.broadcastID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	if err := h.broadcasts.Cancel(ctx, id); err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Broadcast cancelled successfully"})
}

// @Summary Delete a broadcast record
// @Tags Broadcasts
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param id path string true "Broadcast identifier"
// @Success 204
// @Failure 404 {object} httpt.ErrorResponse
// @Router /api/notifications/broadcasts/{id} [delete]
func (h *Handler) deleteBroadcast(c *gin.Context) {
	const op = "transport.deleteBroadcast"

	if _, ok := h.userID(c); !ok {
		return
	}

	id, ok := h.broadcastID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	if err := h.broadcasts.Delete(ctx, id); err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) broadcastID(c *gin.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_id",
			"Broadcast id must be a UUID", err)
		return uuid.Nil, false
	}
	return id, true
}
