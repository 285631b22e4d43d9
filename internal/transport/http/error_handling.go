package httpt

import (
	"errors"
	"net/http"

	"cartographer-notify/internal/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) respondError(c *gin.Context, status int, code, msg string, err error) {
	resp := ErrorResponse{
		Error: msg,
		Code:  code,
	}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

func (h *Handler) handleServiceError(c *gin.Context, op string, err error) {
	log := h.log.With(
		zap.String("op", op),
		zap.String("request_id", c.GetString("request_id")),
	)

	switch {
	case errors.Is(err, entity.ErrBroadcastNotFound):
		log.Warn("broadcast not found", zap.Error(err))
		h.respondError(c, http.StatusNotFound, "not_found", "Broadcast not found", err)

	case errors.Is(err, entity.ErrDataNotFound):
		log.Warn("data not found", zap.Error(err))
		h.respondError(c, http.StatusNotFound, "not_found", "Resource not found", err)

	case errors.Is(err, entity.ErrBroadcastNotPending):
		log.Warn("broadcast not pending", zap.Error(err))
		h.respondError(c, http.StatusConflict, "not_pending",
			"Broadcast is no longer pending", err)

	case errors.Is(err, entity.ErrScheduleTooSoon):
		log.Warn("schedule too soon", zap.Error(err))
		h.respondError(c, http.StatusBadRequest, "schedule_too_soon",
			"Broadcast is not scheduled far enough in the future", err)

	case errors.Is(err, entity.ErrNetworkNotFound):
		log.Warn("network not found", zap.Error(err))
		h.respondError(c, http.StatusNotFound, "network_not_found", "Network not found", err)

	case errors.Is(err, entity.ErrNoChannelConfigured):
		log.Warn("no channel configured", zap.Error(err))
		h.respondError(c, http.StatusBadRequest, "no_channel",
			"Requested channel is not configured for this user", err)

	case errors.Is(err, entity.ErrRecipientNotLinked):
		log.Warn("recipient not linked", zap.Error(err))
		h.respondError(c, http.StatusBadRequest, "not_linked",
			"User has no linked Discord account", err)

	case errors.Is(err, entity.ErrInvalidData):
		log.Warn("invalid data", zap.Error(err))
		h.respondError(c, http.StatusBadRequest, "invalid_data", "Invalid input data", err)

	case errors.Is(err, entity.ErrConflictingData):
		log.Warn("conflicting data", zap.Error(err))
		h.respondError(c, http.StatusConflict, "conflict", "Data conflict occurred", err)

	default:
		log.Error("internal server error", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "internal_error",
			"Internal server error occurred", err)
	}
}
