package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/domain/lifecycle"
	"github.com/GriffinCanCode/devicesession/internal/domain/logs"
	"github.com/GriffinCanCode/devicesession/internal/testutil"
)

// streamingAdapter adds a scripted log stream to the stub adapter.
type streamingAdapter struct {
	*testutil.StubAdapter
	lines chan device.LogLine
}

func (a *streamingAdapter) StreamLogs(ctx context.Context, fn func(device.LogLine)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-a.lines:
			fn(line)
		}
	}
}

func newManager() *Manager {
	return NewManager(logs.NewPipeline(logs.LevelInfo), 10*time.Millisecond)
}

func TestAttachPollsAndPublishes(t *testing.T) {
	m := newManager()
	defer m.Shutdown()

	var mu sync.Mutex
	var events []lifecycle.Event
	m.Subscribe(func(ev lifecycle.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	adapter := testutil.NewStubAdapter("org.demo")
	s, err := m.Attach(context.Background(), device.Info{Identifier: "dev", Platform: device.PlatformAndroid}, adapter, Options{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, lifecycle.ApplicationInstalled, events[0].Kind)
	assert.Equal(t, "dev", events[0].DeviceIdentifier)
	mu.Unlock()

	assert.Equal(t, []string{"org.demo"}, s.Tracker.InstalledApplications())
}

func TestAttachRecordsProjectOptions(t *testing.T) {
	m := newManager()
	defer m.Shutdown()

	_, err := m.Attach(context.Background(), device.Info{Identifier: "dev"}, testutil.NewStubAdapter(), Options{
		ProjectName:    "demo",
		ProjectDir:     "/work/demo",
		ApplicationPID: "77",
	})
	require.NoError(t, err)

	opts := m.Pipeline().DeviceLogOptions("dev")
	assert.Equal(t, "demo", opts.ProjectName)
	assert.Equal(t, "/work/demo", opts.ProjectDir)
	assert.Equal(t, "77", opts.ApplicationPID)
}

func TestAttachTwiceFails(t *testing.T) {
	m := newManager()
	defer m.Shutdown()

	info := device.Info{Identifier: "dev"}
	_, err := m.Attach(context.Background(), info, testutil.NewStubAdapter(), Options{})
	require.NoError(t, err)

	_, err = m.Attach(context.Background(), info, testutil.NewStubAdapter(), Options{})
	assert.ErrorIs(t, err, ErrAlreadyAttached)
}

func TestAttachRequiresIdentifier(t *testing.T) {
	m := newManager()
	_, err := m.Attach(context.Background(), device.Info{}, testutil.NewStubAdapter(), Options{})
	assert.Error(t, err)
}

func TestLogStreamFeedsPipeline(t *testing.T) {
	m := newManager()
	defer m.Shutdown()

	var mu sync.Mutex
	var got []logs.DeviceLogEvent
	m.Pipeline().Subscribe(func(ev logs.DeviceLogEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	adapter := &streamingAdapter{StubAdapter: testutil.NewStubAdapter(), lines: make(chan device.LogLine, 1)}
	_, err := m.Attach(context.Background(), device.Info{Identifier: "dev", Platform: device.PlatformIOS}, adapter, Options{})
	require.NoError(t, err)

	adapter.lines <- device.LogLine{DeviceIdentifier: "dev", Platform: device.PlatformIOS, Text: "CONSOLE LOG: hi"}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Text == "CONSOLE LOG: hi"
	}, time.Second, 5*time.Millisecond)
}

func TestDetachDestroysSockets(t *testing.T) {
	m := newManager()
	adapter := testutil.NewStubAdapter()
	s, err := m.Attach(context.Background(), device.Info{Identifier: "dev"}, adapter, Options{})
	require.NoError(t, err)

	ch, err := s.Sockets.GetLiveSyncSocket(context.Background(), "org.demo")
	require.NoError(t, err)
	m.Pipeline().SetLogLevel(logs.LevelFull, "dev")

	require.NoError(t, m.Detach("dev"))
	assert.True(t, ch.(*testutil.FakeChannel).Closed())
	assert.Empty(t, m.List())
	assert.NotContains(t, m.Pipeline().Devices(), "dev")

	_, err = m.Get("dev")
	assert.ErrorIs(t, err, device.ErrNotFound)
	assert.ErrorIs(t, m.Detach("dev"), device.ErrNotFound)
}

func TestDetachWaitsForRoundInFlight(t *testing.T) {
	m := newManager()
	adapter := testutil.NewStubAdapter("org.demo")
	adapter.Entered = make(chan struct{}, 8)
	adapter.Gate = make(chan struct{})

	var mu sync.Mutex
	var events []lifecycle.Event
	m.Subscribe(func(ev lifecycle.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	s, err := m.Attach(context.Background(), device.Info{Identifier: "dev"}, adapter, Options{})
	require.NoError(t, err)
	<-adapter.Entered

	detached := make(chan error, 1)
	go func() { detached <- m.Detach("dev") }()

	select {
	case <-detached:
		t.Fatal("detach returned while a poll round was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(adapter.Gate)
	select {
	case err := <-detached:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("detach never returned")
	}

	// The drained round published before the subscription was dropped.
	mu.Lock()
	require.Len(t, events, 1)
	assert.Equal(t, lifecycle.ApplicationInstalled, events[0].Kind)
	mu.Unlock()

	calls := adapter.InstalledCalls.Load()
	err = s.Tracker.CheckForApplicationUpdates(context.Background())
	assert.ErrorIs(t, err, lifecycle.ErrTrackerClosed)
	assert.Equal(t, calls, adapter.InstalledCalls.Load())
}

func TestShutdownDestroysEverySocket(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	var channels []*testutil.FakeChannel
	for _, id := range []string{"b", "a"} {
		s, err := m.Attach(ctx, device.Info{Identifier: id}, testutil.NewStubAdapter(), Options{})
		require.NoError(t, err)
		ch, err := s.Sockets.GetDebugSocket(ctx, "org.demo")
		require.NoError(t, err)
		channels = append(channels, ch.(*testutil.FakeChannel))
	}

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Info.Identifier)

	require.NoError(t, m.Shutdown())
	for _, ch := range channels {
		assert.True(t, ch.Closed())
	}
	assert.Empty(t, m.List())
}
