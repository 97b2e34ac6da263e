package logs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/monitoring"
)

type failingMapper struct{ calls int }

func (m *failingMapper) Rewrite(_ device.Platform, _ string, text string) (string, error) {
	m.calls++
	return text, errors.New("map lookup failed")
}

func collect(p *Pipeline) *[]DeviceLogEvent {
	var events []DeviceLogEvent
	p.Subscribe(func(ev DeviceLogEvent) { events = append(events, ev) })
	return &events
}

func TestLogDataLevelFiltering(t *testing.T) {
	p := NewPipeline(LevelInfo)
	events := collect(p)

	p.LogData("CONSOLE TRACE: noisy", device.PlatformAndroid, "dev")
	assert.Empty(t, *events)

	p.SetLogLevel(LevelFull, "dev")
	p.LogData("CONSOLE TRACE: noisy", device.PlatformAndroid, "dev")
	require.Len(t, *events, 1)
	assert.Equal(t, DeviceLogEvent{
		Platform:         device.PlatformAndroid,
		DeviceIdentifier: "dev",
		Text:             "CONSOLE TRACE: noisy",
	}, (*events)[0])
}

func TestLogDataLazilyCreatesOptions(t *testing.T) {
	p := NewPipeline(LevelFull)
	p.LogData("hello", device.PlatformIOS, "new-device")

	assert.Equal(t, LevelFull, p.DeviceLogOptions("new-device").LogLevel)
}

func TestLogDataToleratesSourceMapFailures(t *testing.T) {
	mapper := &failingMapper{}
	p := NewPipeline(LevelInfo).WithSourceMapper(mapper)
	events := collect(p)

	p.LogData("at file:///app/bundle.js:1:1", device.PlatformIOS, "dev")

	require.Len(t, *events, 1)
	assert.Equal(t, "at file:///app/bundle.js:1:1", (*events)[0].Text)
	assert.Equal(t, 1, mapper.calls)
}

func TestLogDataRewritesWithProjectDir(t *testing.T) {
	projectDir := t.TempDir()
	writeSourceMap(t, projectDir, "platforms/ios/demo/app/bundle.js.map")

	p := NewPipeline(LevelInfo)
	p.SetProjectDirForDevice("dev", projectDir)
	events := collect(p)

	p.LogData("CONSOLE ERROR file:///app/bundle.js:1:1: boom", device.PlatformIOS, "dev")

	require.Len(t, *events, 1)
	assert.Contains(t, (*events)[0].Text, "src/main.ts")
}

func TestLogDataRendersToConsole(t *testing.T) {
	var buf bytes.Buffer
	p := NewPipeline(LevelInfo)
	p.WithRenderer(NewRenderer(&buf, p.Colors()).WithProfile(termenv.Ascii))

	p.LogData("plain\nCONSOLE LOG: hello\nworld\n", device.PlatformAndroid, "dev")

	assert.Equal(t, colorBlock+" plain\n"+colorBlock+" hello\n"+colorBlock+" world\n", buf.String())
}

func TestLogDataRecordsMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	p := NewPipeline(LevelInfo).WithMetrics(metrics)

	p.LogData("CONSOLE TRACE: x", device.PlatformAndroid, "dev")
	p.LogData("CONSOLE LOG: y", device.PlatformAndroid, "dev")

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "devicesession_log_records_total" {
			found = true
			assert.Len(t, mf.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestRemoveDeviceKeepsColor(t *testing.T) {
	p := NewPipeline(LevelInfo)
	first := p.Colors().Color("dev")
	p.Colors().Color("other")

	p.RemoveDevice("dev")
	assert.Equal(t, first, p.Colors().Color("dev"))
}
