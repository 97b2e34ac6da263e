// Package server wires the device session manager to the inspection API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/devicesession/internal/api/http"
	"github.com/GriffinCanCode/devicesession/internal/api/middleware"
	"github.com/GriffinCanCode/devicesession/internal/api/ws"
	"github.com/GriffinCanCode/devicesession/internal/domain/logs"
	"github.com/GriffinCanCode/devicesession/internal/domain/session"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/config"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/devicesession/internal/providers/bridge"
)

// Server wraps the HTTP server and the session manager.
type Server struct {
	router  *gin.Engine
	http    *http.Server
	manager *session.Manager
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a server from cfg. Device output is rendered to console
// when it is not nil.
func NewServer(cfg *config.Config, console io.Writer) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing device session server",
		zap.String("port", cfg.Server.Port),
		zap.Duration("poll_interval", cfg.Device.PollInterval),
		zap.String("device_log_level", cfg.Device.LogLevel),
	)

	metrics := monitoring.NewMetrics()

	pipeline := logs.NewPipeline(cfg.DeviceLogLevel()).
		WithLogger(logger.ForComponent("logs")).
		WithMetrics(metrics)
	if console != nil {
		pipeline = pipeline.WithConsole(console)
	}
	if !cfg.Device.SourceMaps {
		pipeline = pipeline.WithSourceMapper(nil)
	}

	manager := session.NewManager(pipeline, cfg.Device.PollInterval).
		WithLogger(logger).
		WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(logger.ForComponent("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rate := middleware.DefaultRateLimitConfig()
		rate.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rate.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rate))
	}

	handlers := apihttp.NewHandlers(manager).WithLogger(logger.ForComponent("api"))
	handlers.Register(router)

	stream := ws.NewHandler(manager).
		WithLogger(logger.ForComponent("stream")).
		WithMetrics(metrics)
	router.GET("/stream", stream.HandleStream)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &Server{
		router:  router,
		manager: manager,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		http: &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Manager returns the session manager.
func (s *Server) Manager() *session.Manager {
	return s.manager
}

// Logger returns the server logger.
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// AttachDevices attaches every inventory device through a bridge adapter.
// Devices that fail to attach are logged and skipped; the joined errors are
// returned.
func (s *Server) AttachDevices(ctx context.Context, inv *config.Inventory) error {
	var errs []error
	for _, entry := range inv.Devices {
		if err := s.attach(ctx, entry); err != nil {
			s.logger.Warn("Failed to attach device", zap.String("device", entry.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("device %s: %w", entry.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) attach(ctx context.Context, entry config.DeviceEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}
	interval, err := entry.Interval()
	if err != nil {
		return err
	}

	log := s.logger.ForDevice(info.Identifier)
	bridgeCfg := bridge.DefaultConfig(entry.Agent)
	bridgeCfg.Timeout = s.config.Bridge.Timeout
	bridgeCfg.RetryMax = s.config.Bridge.RetryMax
	bridgeCfg.Breaker.FailureThreshold = s.config.Bridge.FailureThreshold
	bridgeCfg.Breaker.CoolDown = s.config.Bridge.CoolDown
	bridgeCfg.Breaker.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Agent circuit changed state",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	adapter, err := bridge.NewAdapter(info, bridgeCfg)
	if err != nil {
		return err
	}

	_, err = s.manager.Attach(ctx, info, adapter.WithLogger(log.Named("bridge")), session.Options{
		ProjectName:    entry.ProjectName,
		ProjectDir:     entry.ProjectDir,
		ApplicationPID: entry.ApplicationPID,
		PollInterval:   interval,
	})
	return err
}

// Run serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown detaches every device, destroying their sockets, then stops the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.manager.Shutdown(); err != nil {
		s.logger.Error("Failed to detach devices cleanly", zap.Error(err))
		errs = append(errs, err)
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("stop http server: %w", err))
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
