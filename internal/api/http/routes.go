package http

import "github.com/gin-gonic/gin"

// Register mounts the API routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.PUT("/log-level", h.PutLogLevel)

	devices := r.Group("/devices")
	devices.GET("", h.ListDevices)
	devices.GET("/:id", h.GetDevice)
	devices.GET("/:id/apps", h.GetApps)
	devices.GET("/:id/apps/:app", h.GetApp)
	devices.POST("/:id/apps/check", h.CheckApps)
	devices.GET("/:id/debuggable", h.GetDebuggable)
	devices.GET("/:id/log-options", h.GetLogOptions)
	devices.PUT("/:id/log-options", h.PutLogOptions)
	devices.DELETE("/:id/sockets", h.DeleteSockets)
}
