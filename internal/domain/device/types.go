package device

import (
	"context"
	"fmt"
	"strings"
)

// ApplicationIdentifier names an installed application on a device.
type ApplicationIdentifier = string

// Platform identifies the device operating system family.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ParsePlatform normalizes a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "android":
		return PlatformAndroid, nil
	case "ios":
		return PlatformIOS, nil
	default:
		return "", fmt.Errorf("unknown platform: %q", s)
	}
}

// Framework is the runtime an application was built with.
type Framework string

const (
	FrameworkNativeScript Framework = "NativeScript"
	FrameworkCordova      Framework = "Cordova"
)

// IsCordovaLike reports whether apps of this framework expose debug web views.
func (f Framework) IsCordovaLike() bool {
	return strings.EqualFold(string(f), string(FrameworkCordova))
}

// Info describes a connected device.
type Info struct {
	Identifier string   `json:"identifier"`
	Platform   Platform `json:"platform"`
	Name       string   `json:"name,omitempty"`
}

// DebuggableAppInfo describes an installed app currently exposing a debug interface.
type DebuggableAppInfo struct {
	AppIdentifier       ApplicationIdentifier `json:"appIdentifier"`
	DeviceIdentifier    string                `json:"deviceIdentifier"`
	Framework           Framework             `json:"framework"`
	IsLiveSyncSupported bool                  `json:"isLiveSyncSupported"`
	Configuration       string                `json:"configuration,omitempty"`
}

// DebugWebViewInfo describes one debuggable web view inside an app.
// Two views are equal when every field is equal.
type DebugWebViewInfo struct {
	ID                   string `json:"id"`
	Type                 string `json:"type,omitempty"`
	Title                string `json:"title,omitempty"`
	URL                  string `json:"url,omitempty"`
	Description          string `json:"description,omitempty"`
	FaviconURL           string `json:"faviconUrl,omitempty"`
	DevtoolsFrontendURL  string `json:"devtoolsFrontendUrl,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl,omitempty"`
}

// ApplicationInfo is the adapter's description of one installed app.
type ApplicationInfo struct {
	ApplicationIdentifier ApplicationIdentifier `json:"applicationIdentifier"`
	DeviceIdentifier      string                `json:"deviceIdentifier"`
	Configuration         string                `json:"configuration,omitempty"`
}

// AppData is the payload used to start and stop an app.
type AppData struct {
	AppIdentifier ApplicationIdentifier `json:"appId"`
	ProjectName   string                `json:"projectName,omitempty"`
	ProjectDir    string                `json:"projectDir,omitempty"`
}

// LogLine is a raw chunk of device output.
type LogLine struct {
	DeviceIdentifier string
	Platform         Platform
	Text             string
}

// ChannelKind selects which adapter primitive opens a channel.
type ChannelKind int

const (
	ChannelLiveSync ChannelKind = iota
	ChannelDebug
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelLiveSync:
		return "livesync"
	case ChannelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Channel is an open communication socket to an app on a device.
type Channel interface {
	// Write sends one message.
	Write(data []byte) error
	// Read blocks until a message arrives, the channel closes or ctx is done.
	Read(ctx context.Context) ([]byte, error)
	// Done is closed once the channel is closed for any reason.
	Done() <-chan struct{}
	// Close forcibly destroys the channel. It is safe to call more than once.
	Close() error
}
