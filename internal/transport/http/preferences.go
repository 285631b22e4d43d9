package httpt

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const _defaultContextTimeout = 2 * time.Second

// @Summary Get global notification preferences
// @Description Returns the caller's global preference record, or the defaults when none exists
// @Tags Preferences
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Success 200 {object} entity.Preferences
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/preferences/global [get]
func (h *Handler) getGlobalPreferences(c *gin.Context) {
	const op = "transport.getGlobalPreferences"

	userID, ok := h.userID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	p, err := h.prefs.GetGlobal(ctx, userID)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update global notification preferences
// @Description Partial update; omitted fields keep their current values
// @Tags Preferences
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param request body httpt.UpdatePreferencesRequest true "Fields to change"
// @Success 200 {object} entity.Preferences
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/preferences/global [put]
func (h *Handler) updateGlobalPreferences(c *gin.Context) {
	const op = "transport.updateGlobalPreferences"

	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	p, err := h.prefs.Update(ctx, userID, "", req.toUpdate())
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Get per-network notification preferences
// @Tags Preferences
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param networkID path string true "Network identifier"
// @Success 200 {object} entity.Preferences
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/preferences/{networkID} [get]
func (h *Handler) getNetworkPreferences(c *gin.Context) {
	const op = "transport.getNetworkPreferences"

	userID, ok := h.userID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	p, err := h.prefs.GetNetwork(ctx, userID, c.Param("networkID"))
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update per-network notification preferences
// @Description Partial update; the record is created from defaults on first write
// @Tags Preferences
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param networkID path string true "Network identifier"
// @Param request body httpt.UpdatePreferencesRequest true "Fields to change"
// @Success 200 {object} entity.Preferences
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/preferences/{networkID} [put]
func (h *Handler) updateNetworkPreferences(c *gin.Context) {
	const op = "transport.updateNetworkPreferences"

	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	p, err := h.prefs.Update(ctx, userID, c.Param("networkID"), req.toUpdate())
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete per-network notification preferences
// @Description Removes the network override so resolution falls back to the global record
// @Tags Preferences
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param networkID path string true "Network identifier"
// @Success 204
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/notifications/preferences/{networkID} [delete]
func (h *Handler) deleteNetworkPreferences(c *gin.Context) {
	const op = "transport.deleteNetworkPreferences"

	userID, ok := h.userID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _defaultContextTimeout)
	defer cancel()

	if err := h.prefs.DeleteNetwork(ctx, userID, c.Param("networkID")); err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	h.log.Info("network preferences deleted",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.String("network_id", c.Param("networkID")),
	)
	c.Status(http.StatusNoContent)
}
