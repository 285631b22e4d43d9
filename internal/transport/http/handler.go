// Package httpt is the REST surface of the notification engine. Identity
// comes from the X-User-ID header set by the gateway; there is no auth
// here.
package httpt

import (
	"cartographer-notify/internal/service"
	"cartographer-notify/internal/transport/sender"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const _userIDHeader = "X-User-ID"

type Handler struct {
	prefs      *service.PreferenceService
	broadcasts *service.BroadcastService
	events     *service.EventService
	statuses   []sender.StatusReporter
	log        *zap.Logger
	router     *gin.Engine
}

func NewHandler(
	prefs *service.PreferenceService,
	broadcasts *service.BroadcastService,
	events *service.EventService,
	statuses []sender.StatusReporter,
	log *zap.Logger,
) *Handler {
	h := &Handler{
		prefs:      prefs,
		broadcasts: broadcasts,
		events:     events,
		statuses:   statuses,
		log:        log,
	}

	router := gin.New()

	router.Use(h.requestIDMiddleware())
	router.Use(h.loggingMiddleware())
	router.Use(gin.Recovery())

	h.router = router
	h.setupRoutes()

	return h
}

func (h *Handler) Engine() *gin.Engine {
	return h.router
}

// userID pulls the caller identity from the gateway header. An empty
// header is a client error on every identity-scoped route.
func (h *Handler) userID(c *gin.Context) (string, bool) {
	id := c.GetHeader(_userIDHeader)
	if id == "" {
		h.respondError(c, 400, "missing_user", "X-User-ID header is required", nil)
		return "", false
	}
	return id, true
}
