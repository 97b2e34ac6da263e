package lifecycle

import (
	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/shared/id"
)

// EventKind enumerates tracker notifications.
type EventKind int

const (
	ApplicationInstalled EventKind = iota + 1
	ApplicationUninstalled
	DebuggableAppFound
	DebuggableAppLost
	DebuggableViewFound
	DebuggableViewLost
	DebuggableViewChanged
)

func (k EventKind) String() string {
	switch k {
	case ApplicationInstalled:
		return "applicationInstalled"
	case ApplicationUninstalled:
		return "applicationUninstalled"
	case DebuggableAppFound:
		return "debuggableAppFound"
	case DebuggableAppLost:
		return "debuggableAppLost"
	case DebuggableViewFound:
		return "debuggableViewFound"
	case DebuggableViewLost:
		return "debuggableViewLost"
	case DebuggableViewChanged:
		return "debuggableViewChanged"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one tracker notification. App is set for debuggable app events,
// View for debug view events.
type Event struct {
	Kind             EventKind                 `json:"kind"`
	DeviceIdentifier string                    `json:"deviceIdentifier"`
	AppIdentifier    string                    `json:"appIdentifier"`
	App              *device.DebuggableAppInfo `json:"app,omitempty"`
	View             *device.DebugWebViewInfo  `json:"view,omitempty"`
	Round            id.RoundID                `json:"round"`
}
