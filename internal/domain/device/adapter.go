package device

import "context"

// Adapter is the per-device protocol surface consumed by the session layer.
// Implementations wrap native tooling; every method may block and may fail
// with implementation-specific errors.
type Adapter interface {
	GetInstalledApplications(ctx context.Context) ([]ApplicationIdentifier, error)
	GetApplicationInfo(ctx context.Context, appID ApplicationIdentifier) (*ApplicationInfo, error)
	GetDebuggableApps(ctx context.Context) ([]DebuggableAppInfo, error)
	GetDebuggableAppViews(ctx context.Context, appIDs []ApplicationIdentifier) (map[ApplicationIdentifier][]DebugWebViewInfo, error)

	InstallApplication(ctx context.Context, packagePath string, appID ApplicationIdentifier) error
	UninstallApplication(ctx context.Context, appID ApplicationIdentifier) error
	StartApplication(ctx context.Context, app AppData) error
	StopApplication(ctx context.Context, app AppData) error
	IsLiveSyncSupported(ctx context.Context, appID ApplicationIdentifier) (bool, error)

	ChannelOpener
}

// ChannelOpener opens raw communication channels to an app.
type ChannelOpener interface {
	OpenLiveSyncChannel(ctx context.Context, appID ApplicationIdentifier) (Channel, error)
	OpenDebugChannel(ctx context.Context, appID ApplicationIdentifier) (Channel, error)
}

// LogSource is implemented by adapters that stream raw device output.
// StreamLogs blocks, invoking fn for every chunk, until ctx is done or the
// stream fails.
type LogSource interface {
	StreamLogs(ctx context.Context, fn func(LogLine)) error
}
