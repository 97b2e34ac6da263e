package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/domain/lifecycle"
	"github.com/GriffinCanCode/devicesession/internal/domain/logs"
	"github.com/GriffinCanCode/devicesession/internal/domain/sockets"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devicesession/internal/shared/pubsub"
)

// DefaultPollInterval is used when neither the manager nor Options set one.
const DefaultPollInterval = 3 * time.Second

// roundDrainTimeout bounds how long a detach waits for a poll round in flight.
const roundDrainTimeout = 30 * time.Second

// ErrAlreadyAttached is returned when a device is attached twice.
var ErrAlreadyAttached = errors.New("device already attached")

// Options carry the project context of a device session.
type Options struct {
	ProjectName    string
	ProjectDir     string
	ApplicationPID string
	// PollInterval overrides the manager interval when positive.
	PollInterval time.Duration
}

// Session is one attached device.
type Session struct {
	Info    device.Info
	Tracker *lifecycle.Tracker
	Sockets *sockets.Registry

	adapter  device.Adapter
	attached time.Time
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	sub      *pubsub.Subscription[lifecycle.Event]
}

// Adapter returns the device adapter.
func (s *Session) Adapter() device.Adapter {
	return s.adapter
}

// AttachedAt returns when the session started.
func (s *Session) AttachedAt() time.Time {
	return s.attached
}

// Manager owns every device session.
type Manager struct {
	pipeline *logs.Pipeline
	interval time.Duration
	events   *pubsub.Hub[lifecycle.Event]
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager feeding device logs into pipeline.
func NewManager(pipeline *logs.Pipeline, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Manager{
		pipeline: pipeline,
		interval: interval,
		events:   pubsub.NewHub[lifecycle.Event](),
		logger:   logging.NewNop(),
		sessions: make(map[string]*Session),
	}
}

// WithLogger sets the manager logger.
func (m *Manager) WithLogger(logger *logging.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithMetrics adds metrics tracking to the manager and its sessions.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Pipeline returns the shared log pipeline.
func (m *Manager) Pipeline() *logs.Pipeline {
	return m.pipeline
}

// Subscribe registers fn for lifecycle events of every device.
func (m *Manager) Subscribe(fn func(lifecycle.Event)) *pubsub.Subscription[lifecycle.Event] {
	return m.events.Subscribe(fn)
}

// Attach starts a session for info using adapter.
func (m *Manager) Attach(ctx context.Context, info device.Info, adapter device.Adapter, opts Options) (*Session, error) {
	if info.Identifier == "" {
		return nil, errors.New("device identifier is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[info.Identifier]; exists {
		return nil, fmt.Errorf("%s: %w", info.Identifier, ErrAlreadyAttached)
	}

	log := m.logger.ForDevice(info.Identifier)
	tracker := lifecycle.NewTracker(info.Identifier, adapter).
		WithLogger(log.Named("lifecycle")).
		WithMetrics(m.metrics)
	registry := sockets.NewRegistry(info.Identifier, adapter).
		WithLogger(log.Named("sockets")).
		WithMetrics(m.metrics)

	if opts.ProjectName != "" {
		m.pipeline.SetProjectNameForDevice(info.Identifier, opts.ProjectName)
	}
	if opts.ProjectDir != "" {
		m.pipeline.SetProjectDirForDevice(info.Identifier, opts.ProjectDir)
	}
	if opts.ApplicationPID != "" {
		m.pipeline.SetApplicationPidForDevice(info.Identifier, opts.ApplicationPID)
	}

	interval := m.interval
	if opts.PollInterval > 0 {
		interval = opts.PollInterval
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		Info:     info,
		Tracker:  tracker,
		Sockets:  registry,
		adapter:  adapter,
		attached: time.Now(),
		cancel:   cancel,
	}
	s.sub = tracker.Subscribe(m.events.Publish)

	poller := lifecycle.NewPoller(tracker, interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		poller.Run(runCtx)
	}()

	if source, ok := adapter.(device.LogSource); ok {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			m.streamLogs(runCtx, log, source, interval)
		}()
	}

	m.sessions[info.Identifier] = s
	log.Info("Device attached",
		zap.String("platform", string(info.Platform)),
		zap.Duration("poll_interval", interval),
	)
	return s, nil
}

// streamLogs feeds the pipeline until ctx is done, reconnecting after
// failures.
func (m *Manager) streamLogs(ctx context.Context, log *zap.Logger, source device.LogSource, backoff time.Duration) {
	for {
		err := source.StreamLogs(ctx, m.pipeline.Consume)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("Device log stream ended", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// Detach stops the session for deviceID and destroys its sockets.
func (m *Manager) Detach(deviceID string) error {
	m.mu.Lock()
	s, ok := m.sessions[deviceID]
	if ok {
		delete(m.sessions, deviceID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("device %s: %w", deviceID, device.ErrNotFound)
	}
	return m.stop(s)
}

func (m *Manager) stop(s *Session) error {
	log := m.logger.ForDevice(s.Info.Identifier)
	s.cancel()
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), roundDrainTimeout)
	defer cancel()
	if err := s.Tracker.Close(ctx); err != nil {
		log.Warn("Poll round still running at detach", zap.Error(err))
	}
	s.sub.Cancel()

	err := s.Sockets.Close()
	m.pipeline.RemoveDevice(s.Info.Identifier)

	log.Info("Device detached")
	if err != nil {
		return fmt.Errorf("detach %s: %w", s.Info.Identifier, err)
	}
	return nil
}

// Shutdown detaches every device.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := m.stop(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the session of deviceID.
func (m *Manager) Get(deviceID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, device.ErrNotFound)
	}
	return s, nil
}

// List returns every session ordered by device identifier.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Info.Identifier < out[j].Info.Identifier
	})
	return out
}
