package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/shared/utils"
)

// GetApps returns the installed apps seen by the last completed poll round.
func (h *Handlers) GetApps(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	apps := s.Tracker.InstalledApplications()
	c.JSON(http.StatusOK, gin.H{
		"device": s.Info.Identifier,
		"apps":   apps,
		"count":  len(apps),
	})
}

// GetApp asks the device about one app.
func (h *Handlers) GetApp(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	appID := c.Param("app")
	if err := utils.ValidateAppIdentifier(appID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	info, err := s.Tracker.GetApplicationInfo(c.Request.Context(), appID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// CheckApps runs a poll round now, joining one already in flight.
func (h *Handlers) CheckApps(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Tracker.CheckForApplicationUpdates(c.Request.Context()); err != nil {
		h.logger.Warn("Forced poll round failed",
			zap.String("device", s.Info.Identifier),
			zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"apps":    s.Tracker.InstalledApplications(),
	})
}

type debuggableView struct {
	device.DebuggableAppInfo
	Views []device.DebugWebViewInfo `json:"views"`
}

// GetDebuggable returns debuggable apps with their web views.
func (h *Handlers) GetDebuggable(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	apps := s.Tracker.DebuggableApps()
	out := make([]debuggableView, 0, len(apps))
	for _, app := range apps {
		views, _ := s.Tracker.DebuggableViews(app.AppIdentifier)
		if views == nil {
			views = []device.DebugWebViewInfo{}
		}
		out = append(out, debuggableView{DebuggableAppInfo: app, Views: views})
	}

	c.JSON(http.StatusOK, gin.H{
		"device": s.Info.Identifier,
		"apps":   out,
	})
}

// DeleteSockets closes every cached socket of the device.
func (h *Handlers) DeleteSockets(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Sockets.DestroyAllSockets(); err != nil {
		h.logger.Warn("Closing sockets reported errors",
			zap.String("device", s.Info.Identifier),
			zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}
