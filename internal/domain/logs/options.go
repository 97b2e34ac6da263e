package logs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// LogLevel is the device log verbosity.
type LogLevel string

const (
	// LevelInfo hides trace records and output from other processes.
	LevelInfo LogLevel = "INFO"
	// LevelFull passes everything.
	LevelFull LogLevel = "FULL"
)

// ParseLogLevel parses a level name, ignoring case.
func ParseLogLevel(s string) (LogLevel, error) {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelInfo:
		return LevelInfo, nil
	case LevelFull:
		return LevelFull, nil
	default:
		return "", fmt.Errorf("invalid log level %q: must be INFO or FULL", s)
	}
}

// DeviceLogOptions are the per-device log settings.
type DeviceLogOptions struct {
	LogLevel       LogLevel `json:"logLevel"`
	ApplicationPID string   `json:"applicationPid,omitempty"`
	ProjectName    string   `json:"projectName,omitempty"`
	ProjectDir     string   `json:"projectDir,omitempty"`
}

type deviceOptions struct {
	DeviceLogOptions
	// explicitLevel is set once a level was assigned to this device alone.
	explicitLevel bool
}

// Store holds log options for every known device. Entries are created lazily
// with the global level on first access.
type Store struct {
	mu      sync.RWMutex
	global  LogLevel
	devices map[string]*deviceOptions
}

// NewStore creates a store whose global level is level.
func NewStore(level LogLevel) *Store {
	if level == "" {
		level = LevelInfo
	}
	return &Store{
		global:  level,
		devices: make(map[string]*deviceOptions),
	}
}

// LogLevel returns the global level.
func (s *Store) LogLevel() LogLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// SetLogLevel sets the level of the given devices. Without device ids it sets
// the global level, which also applies to every device that has no level of
// its own. Devices with an explicit level keep it.
func (s *Store) SetLogLevel(level LogLevel, deviceIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(deviceIDs) == 0 {
		s.global = level
		for _, opts := range s.devices {
			if !opts.explicitLevel {
				opts.LogLevel = level
			}
		}
		return
	}

	for _, deviceID := range deviceIDs {
		opts := s.ensure(deviceID)
		opts.LogLevel = level
		opts.explicitLevel = true
	}
}

// SetApplicationPidForDevice records the pid of the app under development.
func (s *Store) SetApplicationPidForDevice(deviceID, pid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(deviceID).ApplicationPID = pid
}

// SetProjectNameForDevice records the project name deployed to a device.
func (s *Store) SetProjectNameForDevice(deviceID, projectName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(deviceID).ProjectName = projectName
}

// SetProjectDirForDevice records the project directory used for source maps.
func (s *Store) SetProjectDirForDevice(deviceID, projectDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(deviceID).ProjectDir = projectDir
}

// DeviceLogOptions returns a copy of the options for deviceID.
func (s *Store) DeviceLogOptions(deviceID string) DeviceLogOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(deviceID).DeviceLogOptions
}

// RemoveDevice forgets the options of a disconnected device.
func (s *Store) RemoveDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, deviceID)
}

// Devices returns the known device ids, sorted.
func (s *Store) Devices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ensure must be called with mu held for writing.
func (s *Store) ensure(deviceID string) *deviceOptions {
	opts, ok := s.devices[deviceID]
	if !ok {
		opts = &deviceOptions{DeviceLogOptions: DeviceLogOptions{LogLevel: s.global}}
		s.devices[deviceID] = opts
	}
	return opts
}
