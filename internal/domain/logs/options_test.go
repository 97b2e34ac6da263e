package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"INFO", LevelInfo, false},
		{"info", LevelInfo, false},
		{" Full ", LevelFull, false},
		{"debug", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoreLazyDefaults(t *testing.T) {
	store := NewStore(LevelFull)

	opts := store.DeviceLogOptions("dev-1")
	assert.Equal(t, LevelFull, opts.LogLevel)
	assert.Empty(t, opts.ApplicationPID)
	assert.Equal(t, []string{"dev-1"}, store.Devices())
}

func TestStoreDefaultsToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, NewStore("").LogLevel())
}

func TestStoreSetters(t *testing.T) {
	store := NewStore(LevelInfo)
	store.SetApplicationPidForDevice("dev", "4242")
	store.SetProjectNameForDevice("dev", "demo")
	store.SetProjectDirForDevice("dev", "/work/demo")

	assert.Equal(t, DeviceLogOptions{
		LogLevel:       LevelInfo,
		ApplicationPID: "4242",
		ProjectName:    "demo",
		ProjectDir:     "/work/demo",
	}, store.DeviceLogOptions("dev"))
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(LevelInfo)
	opts := store.DeviceLogOptions("dev")
	opts.LogLevel = LevelFull

	assert.Equal(t, LevelInfo, store.DeviceLogOptions("dev").LogLevel)
}

func TestSetLogLevelFallback(t *testing.T) {
	store := NewStore(LevelInfo)
	store.DeviceLogOptions("plain")
	store.SetLogLevel(LevelFull, "pinned")

	store.SetLogLevel(LevelFull)
	assert.Equal(t, LevelFull, store.LogLevel())
	assert.Equal(t, LevelFull, store.DeviceLogOptions("plain").LogLevel)

	store.SetLogLevel(LevelInfo, "pinned")
	store.SetLogLevel(LevelFull)
	assert.Equal(t, LevelInfo, store.DeviceLogOptions("pinned").LogLevel, "explicit level survives global set")

	store.SetLogLevel(LevelInfo)
	assert.Equal(t, LevelInfo, store.DeviceLogOptions("plain").LogLevel)
	assert.Equal(t, LevelInfo, store.DeviceLogOptions("late").LogLevel)
}

func TestSetLogLevelForSeveralDevices(t *testing.T) {
	store := NewStore(LevelInfo)
	store.SetLogLevel(LevelFull, "a", "b")

	assert.Equal(t, LevelFull, store.DeviceLogOptions("a").LogLevel)
	assert.Equal(t, LevelFull, store.DeviceLogOptions("b").LogLevel)
	assert.Equal(t, LevelInfo, store.DeviceLogOptions("c").LogLevel)
	assert.Equal(t, LevelInfo, store.LogLevel())
}

func TestRemoveDevice(t *testing.T) {
	store := NewStore(LevelInfo)
	store.SetLogLevel(LevelFull, "dev")
	store.RemoveDevice("dev")

	assert.Empty(t, store.Devices())
	assert.Equal(t, LevelInfo, store.DeviceLogOptions("dev").LogLevel)
}
