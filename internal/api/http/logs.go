package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/devicesession/internal/domain/logs"
)

type logOptionsRequest struct {
	LogLevel       *string `json:"logLevel"`
	ApplicationPID *string `json:"applicationPid"`
	ProjectName    *string `json:"projectName"`
	ProjectDir     *string `json:"projectDir"`
}

// GetLogOptions returns the log options of a device.
func (h *Handlers) GetLogOptions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.manager.Pipeline().DeviceLogOptions(s.Info.Identifier))
}

// PutLogOptions updates the fields present in the body.
func (h *Handlers) PutLogOptions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req logOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var level logs.LogLevel
	if req.LogLevel != nil {
		parsed, err := logs.ParseLogLevel(*req.LogLevel)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		level = parsed
	}

	pipeline := h.manager.Pipeline()
	deviceID := s.Info.Identifier
	if req.LogLevel != nil {
		pipeline.SetLogLevel(level, deviceID)
	}
	if req.ApplicationPID != nil {
		pipeline.SetApplicationPidForDevice(deviceID, *req.ApplicationPID)
	}
	if req.ProjectName != nil {
		pipeline.SetProjectNameForDevice(deviceID, *req.ProjectName)
	}
	if req.ProjectDir != nil {
		pipeline.SetProjectDirForDevice(deviceID, *req.ProjectDir)
	}

	c.JSON(http.StatusOK, pipeline.DeviceLogOptions(deviceID))
}

// PutLogLevel sets the level of the listed devices, or the global level and
// every device without an explicit level when none are listed.
func (h *Handlers) PutLogLevel(c *gin.Context) {
	var req struct {
		Level   string   `json:"level" binding:"required"`
		Devices []string `json:"devices"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	level, err := logs.ParseLogLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	pipeline := h.manager.Pipeline()
	pipeline.SetLogLevel(level, req.Devices...)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"level":   pipeline.LogLevel(),
	})
}
