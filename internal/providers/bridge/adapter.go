package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/resilience"
)

var (
	_ device.Adapter   = (*Adapter)(nil)
	_ device.LogSource = (*Adapter)(nil)
)

// Adapter talks to the agent serving one device.
type Adapter struct {
	info   device.Info
	cfg    Config
	client *client
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewAdapter creates an adapter for the agent at cfg.BaseURL.
func NewAdapter(info device.Info, cfg Config) (*Adapter, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid agent url %q", cfg.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid agent url %q: scheme must be http or https", cfg.BaseURL)
	}

	return &Adapter{
		info:   info,
		cfg:    cfg,
		client: newClient("agent "+info.Identifier, cfg),
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.Timeout},
		logger: zap.NewNop(),
	}, nil
}

// WithLogger sets the adapter logger.
func (a *Adapter) WithLogger(logger *zap.Logger) *Adapter {
	a.logger = logging.OrNop(logger)
	return a
}

// Info returns the device this adapter serves.
func (a *Adapter) Info() device.Info {
	return a.info
}

// BreakerState reports the agent circuit state.
func (a *Adapter) BreakerState() resilience.State {
	return a.client.breaker.State()
}

type installedReply struct {
	Apps []device.ApplicationIdentifier `json:"apps"`
}

type debuggableReply struct {
	Apps []device.DebuggableAppInfo `json:"apps"`
}

type viewsReply struct {
	Views map[device.ApplicationIdentifier][]device.DebugWebViewInfo `json:"views"`
}

type supportReply struct {
	Supported bool `json:"supported"`
}

type installRequest struct {
	PackagePath string                       `json:"packagePath"`
	AppID       device.ApplicationIdentifier `json:"appId,omitempty"`
}

func appPath(appID device.ApplicationIdentifier, suffix string) string {
	return "/apps/" + url.PathEscape(appID) + suffix
}

func (a *Adapter) GetInstalledApplications(ctx context.Context) ([]device.ApplicationIdentifier, error) {
	var reply installedReply
	if err := a.client.probe(ctx, "/apps", &reply, nil); err != nil {
		return nil, err
	}
	return reply.Apps, nil
}

func (a *Adapter) GetApplicationInfo(ctx context.Context, appID device.ApplicationIdentifier) (*device.ApplicationInfo, error) {
	var info device.ApplicationInfo
	if err := a.client.probe(ctx, appPath(appID, ""), &info, nil); err != nil {
		return nil, err
	}
	if info.DeviceIdentifier == "" {
		info.DeviceIdentifier = a.info.Identifier
	}
	return &info, nil
}

func (a *Adapter) GetDebuggableApps(ctx context.Context) ([]device.DebuggableAppInfo, error) {
	var reply debuggableReply
	if err := a.client.probe(ctx, "/debuggable", &reply, nil); err != nil {
		return nil, err
	}
	for i := range reply.Apps {
		if reply.Apps[i].DeviceIdentifier == "" {
			reply.Apps[i].DeviceIdentifier = a.info.Identifier
		}
	}
	return reply.Apps, nil
}

func (a *Adapter) GetDebuggableAppViews(ctx context.Context, appIDs []device.ApplicationIdentifier) (map[device.ApplicationIdentifier][]device.DebugWebViewInfo, error) {
	var reply viewsReply
	if err := a.client.probe(ctx, "/debuggable/views", &reply, map[string][]string{"app": appIDs}); err != nil {
		return nil, err
	}
	if reply.Views == nil {
		reply.Views = make(map[device.ApplicationIdentifier][]device.DebugWebViewInfo)
	}
	return reply.Views, nil
}

func (a *Adapter) InstallApplication(ctx context.Context, packagePath string, appID device.ApplicationIdentifier) error {
	return a.client.command(ctx, http.MethodPost, "/apps", installRequest{PackagePath: packagePath, AppID: appID})
}

func (a *Adapter) UninstallApplication(ctx context.Context, appID device.ApplicationIdentifier) error {
	return a.client.command(ctx, http.MethodDelete, appPath(appID, ""), nil)
}

func (a *Adapter) StartApplication(ctx context.Context, app device.AppData) error {
	return a.client.command(ctx, http.MethodPost, appPath(app.AppIdentifier, "/start"), app)
}

func (a *Adapter) StopApplication(ctx context.Context, app device.AppData) error {
	return a.client.command(ctx, http.MethodPost, appPath(app.AppIdentifier, "/stop"), app)
}

func (a *Adapter) IsLiveSyncSupported(ctx context.Context, appID device.ApplicationIdentifier) (bool, error) {
	var reply supportReply
	if err := a.client.probe(ctx, appPath(appID, "/livesync-support"), &reply, nil); err != nil {
		return false, err
	}
	return reply.Supported, nil
}

func (a *Adapter) OpenLiveSyncChannel(ctx context.Context, appID device.ApplicationIdentifier) (device.Channel, error) {
	return a.openChannel(ctx, appPath(appID, "/livesync"))
}

func (a *Adapter) OpenDebugChannel(ctx context.Context, appID device.ApplicationIdentifier) (device.Channel, error) {
	return a.openChannel(ctx, appPath(appID, "/debug"))
}

func (a *Adapter) openChannel(ctx context.Context, path string) (device.Channel, error) {
	conn, err := resilience.Call(ctx, a.client.breaker, func(ctx context.Context) (*websocket.Conn, error) {
		return a.dial(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	return newWSChannel(conn), nil
}

func (a *Adapter) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	target := websocketURL(a.cfg.BaseURL, path)
	header := http.Header{"User-Agent": []string{userAgent}}

	conn, resp, err := a.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w", path, &AgentError{Status: resp.StatusCode})
		}
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return conn, nil
}

type logFrame struct {
	Text string `json:"text"`
}

// StreamLogs reads the agent log stream until ctx is done or the stream
// fails.
func (a *Adapter) StreamLogs(ctx context.Context, fn func(device.LogLine)) error {
	conn, err := a.dial(ctx, "/logs")
	if err != nil {
		return err
	}
	ch := newWSChannel(conn)
	defer ch.Close()

	for {
		msg, err := ch.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("log stream: %w", err)
		}

		var frame logFrame
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			a.logger.Debug("Skipping malformed log frame", zap.Error(err))
			continue
		}
		if frame.Text == "" {
			continue
		}
		fn(device.LogLine{
			DeviceIdentifier: a.info.Identifier,
			Platform:         a.info.Platform,
			Text:             frame.Text,
		})
	}
}

// websocketURL rewrites an http(s) base URL to ws(s) and appends path.
func websocketURL(base, path string) string {
	u, _ := url.Parse(base)
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return scheme + "://" + u.Host + strings.TrimSuffix(u.EscapedPath(), "/") + path
}
