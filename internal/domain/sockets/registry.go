// Package sockets caches communication channels to apps on one device.
//
// A Registry holds at most one open channel per application identifier. The
// livesync and debug accessors share that slot. A cached channel is dropped
// from the cache as soon as it reports closed, whoever closed it.
package sockets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/monitoring"
)

// ErrRegistryClosed is returned by accessors after Close.
var ErrRegistryClosed = errors.New("socket registry closed")

type entry struct {
	channel device.Channel
	kind    device.ChannelKind
}

// Registry caches channels per application identifier.
type Registry struct {
	deviceID string
	opener   device.ChannelOpener
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	opens    singleflight.Group

	mu      sync.Mutex
	sockets map[device.ApplicationIdentifier]entry // Protected by mu
	closed  bool                                   // Protected by mu
}

// NewRegistry creates an empty registry for deviceID.
func NewRegistry(deviceID string, opener device.ChannelOpener) *Registry {
	return &Registry{
		deviceID: deviceID,
		opener:   opener,
		logger:   zap.NewNop(),
		sockets:  make(map[device.ApplicationIdentifier]entry),
	}
}

// WithLogger sets the registry logger.
func (r *Registry) WithLogger(logger *zap.Logger) *Registry {
	r.logger = logging.OrNop(logger)
	return r
}

// WithMetrics adds metrics tracking to the registry.
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// GetLiveSyncSocket returns the cached channel for appID or opens a livesync
// channel.
func (r *Registry) GetLiveSyncSocket(ctx context.Context, appID device.ApplicationIdentifier) (device.Channel, error) {
	return r.get(ctx, appID, device.ChannelLiveSync)
}

// GetDebugSocket returns the cached channel for appID or opens a debug
// channel.
func (r *Registry) GetDebugSocket(ctx context.Context, appID device.ApplicationIdentifier) (device.Channel, error) {
	return r.get(ctx, appID, device.ChannelDebug)
}

// DestroyLiveSyncSocket closes and forgets the channel for appID.
func (r *Registry) DestroyLiveSyncSocket(appID device.ApplicationIdentifier) error {
	return r.DestroySocket(appID)
}

// DestroyDebugSocket closes and forgets the channel for appID.
func (r *Registry) DestroyDebugSocket(appID device.ApplicationIdentifier) error {
	return r.DestroySocket(appID)
}

// DestroySocket uncaches the channel for appID, then closes it. Destroying an
// unknown app is a no-op.
func (r *Registry) DestroySocket(appID device.ApplicationIdentifier) error {
	r.mu.Lock()
	e, ok := r.sockets[appID]
	if ok {
		delete(r.sockets, appID)
	}
	n := len(r.sockets)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	r.metrics.SetSocketsCached(r.deviceID, n)

	r.logger.Debug("Destroying socket",
		zap.String("app", appID),
		zap.Stringer("kind", e.kind),
	)
	if err := e.channel.Close(); err != nil {
		return fmt.Errorf("close %s socket for %s: %w", e.kind, appID, err)
	}
	return nil
}

// DestroyAllSockets closes and forgets every cached channel.
func (r *Registry) DestroyAllSockets() error {
	r.mu.Lock()
	sockets := r.sockets
	r.sockets = make(map[device.ApplicationIdentifier]entry)
	r.mu.Unlock()

	r.metrics.SetSocketsCached(r.deviceID, 0)

	var errs []error
	for appID, e := range sockets {
		if err := e.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s socket for %s: %w", e.kind, appID, err))
		}
	}
	if len(sockets) > 0 {
		r.logger.Debug("Destroyed all sockets", zap.Int("count", len(sockets)))
	}
	return errors.Join(errs...)
}

// Close destroys every socket and rejects later opens.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	return r.DestroyAllSockets()
}

// Len returns the number of cached channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sockets)
}

// Cached returns the cached channel for appID, if any.
func (r *Registry) Cached(appID device.ApplicationIdentifier) (device.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sockets[appID]
	return e.channel, ok
}

func (r *Registry) lookup(appID device.ApplicationIdentifier) (device.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if e, ok := r.sockets[appID]; ok {
		return e.channel, nil
	}
	return nil, nil
}

func (r *Registry) get(ctx context.Context, appID device.ApplicationIdentifier, kind device.ChannelKind) (device.Channel, error) {
	if ch, err := r.lookup(appID); ch != nil || err != nil {
		return ch, err
	}

	// The open outlives any single caller; each caller stops waiting on its own ctx.
	openCtx := context.WithoutCancel(ctx)
	res := r.opens.DoChan(appID, func() (interface{}, error) {
		if ch, err := r.lookup(appID); ch != nil || err != nil {
			return ch, err
		}
		return r.open(openCtx, appID, kind)
	})

	select {
	case out := <-res:
		if out.Err != nil {
			return nil, out.Err
		}
		return out.Val.(device.Channel), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) open(ctx context.Context, appID device.ApplicationIdentifier, kind device.ChannelKind) (device.Channel, error) {
	var (
		ch  device.Channel
		err error
	)
	switch kind {
	case device.ChannelDebug:
		ch, err = r.opener.OpenDebugChannel(ctx, appID)
	default:
		ch, err = r.opener.OpenLiveSyncChannel(ctx, appID)
	}
	if err != nil {
		r.metrics.RecordSocketOpen(r.deviceID, kind.String(), "failure")
		r.logger.Warn("Failed to open socket",
			zap.String("app", appID),
			zap.Stringer("kind", kind),
			zap.Error(err),
		)
		return nil, fmt.Errorf("open %s socket for %s: %w", kind, appID, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = ch.Close()
		return nil, ErrRegistryClosed
	}
	r.sockets[appID] = entry{channel: ch, kind: kind}
	n := len(r.sockets)
	r.mu.Unlock()

	r.metrics.RecordSocketOpen(r.deviceID, kind.String(), "success")
	r.metrics.SetSocketsCached(r.deviceID, n)
	r.logger.Debug("Opened socket", zap.String("app", appID), zap.Stringer("kind", kind))

	go r.watch(appID, ch)
	return ch, nil
}

// watch uncaches ch once it closes, unless another channel replaced it.
func (r *Registry) watch(appID device.ApplicationIdentifier, ch device.Channel) {
	<-ch.Done()

	r.mu.Lock()
	e, ok := r.sockets[appID]
	removed := ok && e.channel == ch
	if removed {
		delete(r.sockets, appID)
	}
	n := len(r.sockets)
	r.mu.Unlock()

	if removed {
		r.metrics.SetSocketsCached(r.deviceID, n)
		r.logger.Debug("Socket closed", zap.String("app", appID))
	}
}
