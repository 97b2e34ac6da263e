package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlInventory = `devices:
  - id: emulator-5554
    platform: android
    name: Pixel 8
    agent: http://127.0.0.1:9100
    projectName: demo
    projectDir: /work/demo
    pollInterval: 500ms
  - id: 00008030-001A
    platform: iOS
    agent: http://127.0.0.1:9101
`

const tomlInventory = `[[devices]]
id = "emulator-5554"
platform = "android"
agent = "http://127.0.0.1:9100"
applicationPid = "4242"

[[devices]]
id = "00008030-001A"
platform = "ios"
agent = "http://127.0.0.1:9101"
`

func TestLoadDevicesYAML(t *testing.T) {
	inv, err := LoadDevices(writeFile(t, "devices.yaml", yamlInventory))
	require.NoError(t, err)
	require.Len(t, inv.Devices, 2)

	first := inv.Devices[0]
	assert.Equal(t, "emulator-5554", first.ID)
	assert.Equal(t, "Pixel 8", first.Name)
	assert.Equal(t, "/work/demo", first.ProjectDir)

	interval, err := first.Interval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, interval)

	info, err := inv.Devices[1].Info()
	require.NoError(t, err)
	assert.Equal(t, device.Info{Identifier: "00008030-001A", Platform: device.PlatformIOS}, info)
}

func TestLoadDevicesTOML(t *testing.T) {
	inv, err := LoadDevices(writeFile(t, "devices.toml", tomlInventory))
	require.NoError(t, err)
	require.Len(t, inv.Devices, 2)
	assert.Equal(t, "4242", inv.Devices[0].ApplicationPID)

	interval, err := inv.Devices[0].Interval()
	require.NoError(t, err)
	assert.Zero(t, interval)
}

func TestLoadDevicesErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "devices.json", `{"devices":[]}`},
		{"malformed yaml", "devices.yml", "devices: [\n"},
		{"missing agent", "devices.yaml", "devices:\n  - id: a\n    platform: android\n"},
		{"missing id", "devices.yaml", "devices:\n  - platform: android\n    agent: http://x\n"},
		{"invalid id", "devices.yaml", "devices:\n  - {id: \"dev one\", platform: ios, agent: http://x}\n"},
		{"bad platform", "devices.toml", "[[devices]]\nid = \"a\"\nplatform = \"windows\"\nagent = \"http://x\"\n"},
		{"duplicate id", "devices.yaml", "devices:\n  - {id: a, platform: ios, agent: http://x}\n  - {id: a, platform: ios, agent: http://y}\n"},
		{"bad interval", "devices.yaml", "devices:\n  - {id: a, platform: ios, agent: http://x, pollInterval: often}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDevices(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadDevices(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
