// Package testutil provides adapter and channel fakes for session-layer tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
)

// MockAdapter is a testify mock of device.Adapter.
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) GetInstalledApplications(ctx context.Context) ([]device.ApplicationIdentifier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]device.ApplicationIdentifier), args.Error(1)
}

func (m *MockAdapter) GetApplicationInfo(ctx context.Context, appID device.ApplicationIdentifier) (*device.ApplicationInfo, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*device.ApplicationInfo), args.Error(1)
}

func (m *MockAdapter) GetDebuggableApps(ctx context.Context) ([]device.DebuggableAppInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]device.DebuggableAppInfo), args.Error(1)
}

func (m *MockAdapter) GetDebuggableAppViews(ctx context.Context, appIDs []device.ApplicationIdentifier) (map[device.ApplicationIdentifier][]device.DebugWebViewInfo, error) {
	args := m.Called(ctx, appIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[device.ApplicationIdentifier][]device.DebugWebViewInfo), args.Error(1)
}

func (m *MockAdapter) InstallApplication(ctx context.Context, packagePath string, appID device.ApplicationIdentifier) error {
	return m.Called(ctx, packagePath, appID).Error(0)
}

func (m *MockAdapter) UninstallApplication(ctx context.Context, appID device.ApplicationIdentifier) error {
	return m.Called(ctx, appID).Error(0)
}

func (m *MockAdapter) StartApplication(ctx context.Context, app device.AppData) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockAdapter) StopApplication(ctx context.Context, app device.AppData) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockAdapter) IsLiveSyncSupported(ctx context.Context, appID device.ApplicationIdentifier) (bool, error) {
	args := m.Called(ctx, appID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdapter) OpenLiveSyncChannel(ctx context.Context, appID device.ApplicationIdentifier) (device.Channel, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(device.Channel), args.Error(1)
}

func (m *MockAdapter) OpenDebugChannel(ctx context.Context, appID device.ApplicationIdentifier) (device.Channel, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(device.Channel), args.Error(1)
}

// StubAdapter is a scriptable in-memory adapter. Tests replace its snapshot
// fields between poll rounds; Gate, when set, blocks GetInstalledApplications
// until it is closed.
type StubAdapter struct {
	mu sync.Mutex

	Installed  []device.ApplicationIdentifier
	Debuggable []device.DebuggableAppInfo
	Views      map[device.ApplicationIdentifier][]device.DebugWebViewInfo

	InstalledErr  error
	DebuggableErr error
	ViewsErr      error
	StartErr      error

	// Entered receives a value every time GetInstalledApplications starts.
	Entered chan struct{}
	// Gate blocks GetInstalledApplications while open.
	Gate chan struct{}

	InstalledCalls atomic.Int32
	ViewCalls      atomic.Int32
	Opens          atomic.Int32

	Calls []string
}

// NewStubAdapter returns an adapter reporting the given installed apps.
func NewStubAdapter(installed ...device.ApplicationIdentifier) *StubAdapter {
	return &StubAdapter{
		Installed: installed,
		Views:     make(map[device.ApplicationIdentifier][]device.DebugWebViewInfo),
	}
}

// Set replaces the snapshot fields atomically.
func (s *StubAdapter) Set(fn func(s *StubAdapter)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *StubAdapter) record(call string) {
	s.mu.Lock()
	s.Calls = append(s.Calls, call)
	s.mu.Unlock()
}

// CallLog returns the recorded command calls.
func (s *StubAdapter) CallLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Calls))
	copy(out, s.Calls)
	return out
}

func (s *StubAdapter) GetInstalledApplications(ctx context.Context) ([]device.ApplicationIdentifier, error) {
	s.InstalledCalls.Add(1)
	if s.Entered != nil {
		s.Entered <- struct{}{}
	}
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InstalledErr != nil {
		return nil, s.InstalledErr
	}
	return append([]device.ApplicationIdentifier(nil), s.Installed...), nil
}

func (s *StubAdapter) GetApplicationInfo(_ context.Context, appID device.ApplicationIdentifier) (*device.ApplicationInfo, error) {
	return &device.ApplicationInfo{ApplicationIdentifier: appID, Configuration: "debug"}, nil
}

func (s *StubAdapter) GetDebuggableApps(context.Context) ([]device.DebuggableAppInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DebuggableErr != nil {
		return nil, s.DebuggableErr
	}
	return append([]device.DebuggableAppInfo(nil), s.Debuggable...), nil
}

func (s *StubAdapter) GetDebuggableAppViews(_ context.Context, appIDs []device.ApplicationIdentifier) (map[device.ApplicationIdentifier][]device.DebugWebViewInfo, error) {
	s.ViewCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ViewsErr != nil {
		return nil, s.ViewsErr
	}
	out := make(map[device.ApplicationIdentifier][]device.DebugWebViewInfo, len(appIDs))
	for _, appID := range appIDs {
		if views, ok := s.Views[appID]; ok {
			out[appID] = append([]device.DebugWebViewInfo(nil), views...)
		}
	}
	return out, nil
}

func (s *StubAdapter) InstallApplication(_ context.Context, packagePath string, appID device.ApplicationIdentifier) error {
	s.record("install:" + appID + ":" + packagePath)
	s.mu.Lock()
	s.Installed = append(s.Installed, appID)
	s.mu.Unlock()
	return nil
}

func (s *StubAdapter) UninstallApplication(_ context.Context, appID device.ApplicationIdentifier) error {
	s.record("uninstall:" + appID)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.Installed[:0]
	for _, id := range s.Installed {
		if id != appID {
			kept = append(kept, id)
		}
	}
	s.Installed = kept
	return nil
}

func (s *StubAdapter) StartApplication(_ context.Context, app device.AppData) error {
	s.record("start:" + app.AppIdentifier)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StartErr
}

func (s *StubAdapter) StopApplication(_ context.Context, app device.AppData) error {
	s.record("stop:" + app.AppIdentifier)
	return nil
}

func (s *StubAdapter) IsLiveSyncSupported(context.Context, device.ApplicationIdentifier) (bool, error) {
	return true, nil
}

func (s *StubAdapter) OpenLiveSyncChannel(context.Context, device.ApplicationIdentifier) (device.Channel, error) {
	s.Opens.Add(1)
	return NewFakeChannel(), nil
}

func (s *StubAdapter) OpenDebugChannel(context.Context, device.ApplicationIdentifier) (device.Channel, error) {
	s.Opens.Add(1)
	return NewFakeChannel(), nil
}

// ErrChannelClosed is returned by FakeChannel after Close.
var ErrChannelClosed = errors.New("channel closed")

// FakeChannel is an in-memory device.Channel.
type FakeChannel struct {
	mu      sync.Mutex
	written [][]byte
	inbox   chan []byte
	done    chan struct{}
	closes  atomic.Int32
	once    sync.Once
}

// NewFakeChannel returns an open channel.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{
		inbox: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (c *FakeChannel) Write(data []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	c.mu.Lock()
	c.written = append(c.written, append([]byte(nil), data...))
	c.mu.Unlock()
	return nil
}

func (c *FakeChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.inbox:
		return msg, nil
	case <-c.done:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Deliver queues a message for Read.
func (c *FakeChannel) Deliver(data []byte) {
	c.inbox <- data
}

// Written returns everything written so far.
func (c *FakeChannel) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *FakeChannel) Done() <-chan struct{} {
	return c.done
}

func (c *FakeChannel) Close() error {
	c.closes.Add(1)
	c.once.Do(func() { close(c.done) })
	return nil
}

// Closed reports whether Close has been called.
func (c *FakeChannel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// CloseCount returns how many times Close was called.
func (c *FakeChannel) CloseCount() int {
	return int(c.closes.Load())
}
