package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/domain/session"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/resilience"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	manager *session.Manager
	logger  *zap.Logger
	started time.Time
}

// NewHandlers creates a handler set over manager.
func NewHandlers(manager *session.Manager) *Handlers {
	return &Handlers{
		manager: manager,
		logger:  zap.NewNop(),
		started: time.Now(),
	}
}

// WithLogger sets the handler logger.
func (h *Handlers) WithLogger(logger *zap.Logger) *Handlers {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// breakerReporter is implemented by adapters guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() resilience.State
}

// deviceView is the JSON shape of one attached device.
type deviceView struct {
	device.Info
	AttachedAt    time.Time `json:"attachedAt"`
	Installed     int       `json:"installedApps"`
	Debuggable    int       `json:"debuggableApps"`
	CachedSockets int       `json:"cachedSockets"`
	Breaker       string    `json:"breaker,omitempty"`
}

func newDeviceView(s *session.Session) deviceView {
	v := deviceView{
		Info:          s.Info,
		AttachedAt:    s.AttachedAt(),
		Installed:     len(s.Tracker.InstalledApplications()),
		Debuggable:    len(s.Tracker.DebuggableApps()),
		CachedSockets: s.Sockets.Len(),
	}
	if r, ok := s.Adapter().(breakerReporter); ok {
		v.Breaker = r.BreakerState().String()
	}
	return v
}

// Health reports service liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"devices": len(h.manager.List()),
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// ListDevices lists attached devices.
func (h *Handlers) ListDevices(c *gin.Context) {
	sessions := h.manager.List()
	devices := make([]deviceView, 0, len(sessions))
	for _, s := range sessions {
		devices = append(devices, newDeviceView(s))
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

// GetDevice returns one attached device.
func (h *Handlers) GetDevice(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newDeviceView(s))
}

// session resolves the :id parameter, writing a 404 when it is not attached.
func (h *Handlers) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return s, true
}

// writeError maps domain errors to status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, device.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyTrials):
		status = http.StatusServiceUnavailable
	default:
		var probeErr *device.ProbeError
		if errors.As(err, &probeErr) {
			status = http.StatusBadGateway
		}
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
