package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devicesession/internal/shared/id"
	"github.com/GriffinCanCode/devicesession/internal/shared/pubsub"
)

const roundKey = "check-for-application-updates"

// ErrTrackerClosed is returned by checks started after Close.
var ErrTrackerClosed = errors.New("tracker closed")

// Tracker reconciles application state for one device.
type Tracker struct {
	deviceID string
	adapter  device.Adapter
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	events   *pubsub.Hub[Event]
	rounds   singleflight.Group

	roundMu  sync.Mutex
	closed   bool          // Protected by roundMu
	inflight chan struct{} // Protected by roundMu; closed when the running round ends

	mu         sync.RWMutex
	installed  []device.ApplicationIdentifier                             // Protected by mu
	debuggable []device.DebuggableAppInfo                                 // Protected by mu
	views      map[device.ApplicationIdentifier][]device.DebugWebViewInfo // Protected by mu
}

// NewTracker creates a tracker with empty snapshots.
func NewTracker(deviceID string, adapter device.Adapter) *Tracker {
	return &Tracker{
		deviceID: deviceID,
		adapter:  adapter,
		logger:   zap.NewNop(),
		events:   pubsub.NewHub[Event](),
		views:    make(map[device.ApplicationIdentifier][]device.DebugWebViewInfo),
	}
}

// WithLogger sets the tracker logger.
func (t *Tracker) WithLogger(logger *zap.Logger) *Tracker {
	t.logger = logging.OrNop(logger)
	return t
}

// WithMetrics adds metrics tracking to the tracker.
func (t *Tracker) WithMetrics(metrics *monitoring.Metrics) *Tracker {
	t.metrics = metrics
	return t
}

// DeviceIdentifier returns the tracked device.
func (t *Tracker) DeviceIdentifier() string {
	return t.deviceID
}

// Subscribe registers fn for every event emitted from now on.
func (t *Tracker) Subscribe(fn func(Event)) *pubsub.Subscription[Event] {
	return t.events.Subscribe(fn)
}

// CheckForApplicationUpdates runs one poll round, or waits for the round
// already in flight. Every caller sharing a round receives its result. A
// caller whose ctx ends stops waiting; the round itself is not canceled.
func (t *Tracker) CheckForApplicationUpdates(ctx context.Context) error {
	t.roundMu.Lock()
	closed := t.closed
	t.roundMu.Unlock()
	if closed {
		return ErrTrackerClosed
	}

	roundCtx := context.WithoutCancel(ctx)
	ch := t.rounds.DoChan(roundKey, func() (interface{}, error) {
		done, err := t.beginRound()
		if err != nil {
			return nil, err
		}
		defer t.endRound(done)
		return nil, t.runRound(roundCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new rounds and waits for the round in flight, if any, so no
// adapter call or event outlives it. Close is idempotent.
func (t *Tracker) Close(ctx context.Context) error {
	t.roundMu.Lock()
	t.closed = true
	done := t.inflight
	t.roundMu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) beginRound() (chan struct{}, error) {
	t.roundMu.Lock()
	defer t.roundMu.Unlock()
	if t.closed {
		return nil, ErrTrackerClosed
	}
	t.inflight = make(chan struct{})
	return t.inflight, nil
}

func (t *Tracker) endRound(done chan struct{}) {
	t.roundMu.Lock()
	defer t.roundMu.Unlock()
	close(done)
	if t.inflight == done {
		t.inflight = nil
	}
}

// IsApplicationInstalled refreshes state and reports whether appID is installed.
func (t *Tracker) IsApplicationInstalled(ctx context.Context, appID device.ApplicationIdentifier) (bool, error) {
	if err := t.CheckForApplicationUpdates(ctx); err != nil {
		return false, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Contains(t.installed, appID), nil
}

// GetApplicationInfo returns adapter info for an installed app, or
// device.ErrNotFound when the app is not installed.
func (t *Tracker) GetApplicationInfo(ctx context.Context, appID device.ApplicationIdentifier) (*device.ApplicationInfo, error) {
	installed, err := t.IsApplicationInstalled(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !installed {
		return nil, fmt.Errorf("application %s: %w", appID, device.ErrNotFound)
	}

	info, err := t.adapter.GetApplicationInfo(ctx, appID)
	if err != nil {
		t.metrics.RecordProbeError(t.deviceID, "getApplicationInfo")
		return nil, device.NewProbeError("getApplicationInfo", err)
	}
	return info, nil
}

// InstallApplication installs the package at packagePath.
func (t *Tracker) InstallApplication(ctx context.Context, packagePath string, appID device.ApplicationIdentifier) error {
	return device.NewProbeError("installApplication", t.adapter.InstallApplication(ctx, packagePath, appID))
}

// UninstallApplication removes appID from the device.
func (t *Tracker) UninstallApplication(ctx context.Context, appID device.ApplicationIdentifier) error {
	return device.NewProbeError("uninstallApplication", t.adapter.UninstallApplication(ctx, appID))
}

// StartApplication starts an app.
func (t *Tracker) StartApplication(ctx context.Context, app device.AppData) error {
	return device.NewProbeError("startApplication", t.adapter.StartApplication(ctx, app))
}

// StopApplication stops an app.
func (t *Tracker) StopApplication(ctx context.Context, app device.AppData) error {
	return device.NewProbeError("stopApplication", t.adapter.StopApplication(ctx, app))
}

// ReinstallApplication uninstalls appID when installed, then installs it again.
func (t *Tracker) ReinstallApplication(ctx context.Context, appID device.ApplicationIdentifier, packagePath string) error {
	installed, err := t.IsApplicationInstalled(ctx, appID)
	if err != nil {
		return err
	}
	if installed {
		if err := t.UninstallApplication(ctx, appID); err != nil {
			return err
		}
	}
	return t.InstallApplication(ctx, packagePath, appID)
}

// RestartApplication stops then starts an app.
func (t *Tracker) RestartApplication(ctx context.Context, app device.AppData) error {
	if err := t.StopApplication(ctx, app); err != nil {
		return err
	}
	return t.StartApplication(ctx, app)
}

// TryStartApplication starts an app and ignores any failure.
func (t *Tracker) TryStartApplication(ctx context.Context, app device.AppData) {
	if err := t.StartApplication(ctx, app); err != nil {
		t.logger.Debug("Unable to start application",
			zap.String("app", app.AppIdentifier),
			zap.Error(err),
		)
	}
}

// InstalledApplications returns the current installed snapshot.
func (t *Tracker) InstalledApplications() []device.ApplicationIdentifier {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.installed)
}

// DebuggableApps returns the current debuggable app snapshot.
func (t *Tracker) DebuggableApps() []device.DebuggableAppInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.debuggable)
}

// DebuggableApp returns one debuggable app, or device.ErrNotFound.
func (t *Tracker) DebuggableApp(appID device.ApplicationIdentifier) (device.DebuggableAppInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, app := range t.debuggable {
		if app.AppIdentifier == appID {
			return app, nil
		}
	}
	return device.DebuggableAppInfo{}, fmt.Errorf("debuggable app %s: %w", appID, device.ErrNotFound)
}

// DebuggableViews returns the known views of a debuggable app, or
// device.ErrNotFound when the app is not currently debuggable.
func (t *Tracker) DebuggableViews(appID device.ApplicationIdentifier) ([]device.DebugWebViewInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, app := range t.debuggable {
		if app.AppIdentifier == appID {
			return slices.Clone(t.views[appID]), nil
		}
	}
	return nil, fmt.Errorf("debuggable app %s: %w", appID, device.ErrNotFound)
}

// probeResult is everything a round learned from the adapter.
type probeResult struct {
	installed  []device.ApplicationIdentifier
	debuggable []device.DebuggableAppInfo
	views      map[device.ApplicationIdentifier][]device.DebugWebViewInfo
}

func (t *Tracker) runRound(ctx context.Context) error {
	round := id.NewRoundID()
	timer := monitoring.NewTimer(t.metrics, t.deviceID)
	logger := t.logger.With(zap.Stringer("round", round))

	result, err := t.probe(ctx)
	if err != nil {
		d := timer.Stop("failure")
		logger.Warn("Poll round failed", zap.Duration("duration", d), zap.Error(err))
		return err
	}

	events := t.commit(result, round)
	d := timer.Stop("success")
	logger.Debug("Poll round complete",
		zap.Duration("duration", d),
		zap.Int("installed", len(result.installed)),
		zap.Int("debuggable", len(result.debuggable)),
		zap.Int("events", len(events)),
	)

	for _, ev := range events {
		t.metrics.RecordLifecycleEvent(t.deviceID, ev.Kind.String())
		t.events.Publish(ev)
	}
	return nil
}

func (t *Tracker) probe(ctx context.Context) (*probeResult, error) {
	installed, err := t.adapter.GetInstalledApplications(ctx)
	if err != nil {
		t.metrics.RecordProbeError(t.deviceID, "getInstalledApplications")
		return nil, device.NewProbeError("getInstalledApplications", err)
	}

	debuggable, err := t.adapter.GetDebuggableApps(ctx)
	if err != nil {
		t.metrics.RecordProbeError(t.deviceID, "getDebuggableApps")
		return nil, device.NewProbeError("getDebuggableApps", err)
	}
	debuggable = dedupeApps(debuggable)

	var cordovaApps []device.ApplicationIdentifier
	for _, app := range debuggable {
		if app.Framework.IsCordovaLike() {
			cordovaApps = append(cordovaApps, app.AppIdentifier)
		}
	}

	views := make(map[device.ApplicationIdentifier][]device.DebugWebViewInfo, len(cordovaApps))
	if len(cordovaApps) > 0 {
		fetched, err := t.adapter.GetDebuggableAppViews(ctx, cordovaApps)
		if err != nil {
			t.metrics.RecordProbeError(t.deviceID, "getDebuggableAppViews")
			return nil, device.NewProbeError("getDebuggableAppViews", err)
		}
		for _, appID := range cordovaApps {
			views[appID] = dedupeViews(fetched[appID])
		}
	}

	return &probeResult{
		installed:  device.Dedupe(installed),
		debuggable: debuggable,
		views:      views,
	}, nil
}

// commit swaps in the probed snapshots and returns the events describing the
// change, in emission order.
func (t *Tracker) commit(result *probeResult, round id.RoundID) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	var events []Event
	newEvent := func(kind EventKind, appID string) Event {
		return Event{Kind: kind, DeviceIdentifier: t.deviceID, AppIdentifier: appID, Round: round}
	}

	added, removed := device.Diff(t.installed, result.installed)
	for _, appID := range added {
		events = append(events, newEvent(ApplicationInstalled, appID))
	}
	for _, appID := range removed {
		events = append(events, newEvent(ApplicationUninstalled, appID))
	}
	t.installed = result.installed

	previousApps := indexApps(t.debuggable)
	currentApps := indexApps(result.debuggable)
	foundIDs, lostIDs := device.Diff(appIDs(t.debuggable), appIDs(result.debuggable))
	for _, appID := range foundIDs {
		ev := newEvent(DebuggableAppFound, appID)
		app := currentApps[appID]
		ev.App = &app
		events = append(events, ev)
	}
	for _, appID := range lostIDs {
		ev := newEvent(DebuggableAppLost, appID)
		app := previousApps[appID]
		ev.App = &app
		events = append(events, ev)
	}
	t.debuggable = result.debuggable

	// Views of lost apps vanish with their parent and are not reported.
	for _, appID := range lostIDs {
		delete(t.views, appID)
	}

	nextViews := make(map[device.ApplicationIdentifier][]device.DebugWebViewInfo, len(result.views))
	for _, app := range result.debuggable {
		// An app that is no longer Cordova-like has no probed views; its
		// cached views are reported lost.
		current, probed := result.views[app.AppIdentifier]
		events = append(events, diffViews(t.views[app.AppIdentifier], current, func(kind EventKind, view device.DebugWebViewInfo) Event {
			ev := newEvent(kind, app.AppIdentifier)
			ev.View = &view
			return ev
		})...)
		if probed {
			nextViews[app.AppIdentifier] = current
		}
	}
	t.views = nextViews

	return events
}

// diffViews compares two view lists of one app by view ID.
func diffViews(previous, current []device.DebugWebViewInfo, mk func(EventKind, device.DebugWebViewInfo) Event) []Event {
	prevByID := make(map[string]device.DebugWebViewInfo, len(previous))
	for _, v := range previous {
		prevByID[v.ID] = v
	}
	curByID := make(map[string]device.DebugWebViewInfo, len(current))
	for _, v := range current {
		curByID[v.ID] = v
	}

	var found, lost, changed []Event
	for _, v := range current {
		old, existed := prevByID[v.ID]
		switch {
		case !existed:
			found = append(found, mk(DebuggableViewFound, v))
		case old != v:
			changed = append(changed, mk(DebuggableViewChanged, v))
		}
	}
	for _, v := range previous {
		if _, ok := curByID[v.ID]; !ok {
			lost = append(lost, mk(DebuggableViewLost, v))
		}
	}

	events := append(found, lost...)
	return append(events, changed...)
}

func appIDs(apps []device.DebuggableAppInfo) []device.ApplicationIdentifier {
	ids := make([]device.ApplicationIdentifier, len(apps))
	for i, app := range apps {
		ids[i] = app.AppIdentifier
	}
	return ids
}

func indexApps(apps []device.DebuggableAppInfo) map[device.ApplicationIdentifier]device.DebuggableAppInfo {
	out := make(map[device.ApplicationIdentifier]device.DebuggableAppInfo, len(apps))
	for _, app := range apps {
		out[app.AppIdentifier] = app
	}
	return out
}

func dedupeApps(apps []device.DebuggableAppInfo) []device.DebuggableAppInfo {
	out := make([]device.DebuggableAppInfo, 0, len(apps))
	seen := make(map[device.ApplicationIdentifier]struct{}, len(apps))
	for _, app := range apps {
		if _, ok := seen[app.AppIdentifier]; ok {
			continue
		}
		seen[app.AppIdentifier] = struct{}{}
		out = append(out, app)
	}
	return out
}

func dedupeViews(views []device.DebugWebViewInfo) []device.DebugWebViewInfo {
	out := make([]device.DebugWebViewInfo, 0, len(views))
	seen := make(map[string]struct{}, len(views))
	for _, v := range views {
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}
