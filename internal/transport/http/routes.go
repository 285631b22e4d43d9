package httpt

import (
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Cartographer Notification Service API
// @version         1.0
// @description     Preference resolution and delivery engine for Cartographer network events
// @license.name    MIT
// @host            localhost:8080
// @BasePath        /
func (h *Handler) setupRoutes() {
	h.router.GET("/health", h.health)

	api := h.router.Group("/api/notifications")
	{
		api.GET("/preferences/global", h.getGlobalPreferences)
		api.PUT("/preferences/global", h.updateGlobalPreferences)
		api.GET("/preferences/:networkID", h.getNetworkPreferences)
		api.PUT("/preferences/:networkID", h.updateNetworkPreferences)
		api.DELETE("/preferences/:networkID", h.deleteNetworkPreferences)

		api.POST("/broadcasts", h.createBroadcast)
		api.GET("/broadcasts", h.listBroadcasts)
		api.GET("/broadcasts/:id", h.getBroadcast)
		api.PATCH("/broadcasts/:id", h.updateBroadcast)
		api.POST("/broadcasts/:id/cancel", h.cancelBroadcast)
		api.DELETE("/broadcasts/:id", h.deleteBroadcast)

		api.POST("/events", h.ingestEvent)
		api.POST("/test", h.testDelivery)
		api.GET("/status", h.status)
	}

	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
