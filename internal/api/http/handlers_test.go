package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/domain/logs"
	"github.com/GriffinCanCode/devicesession/internal/domain/session"
	"github.com/GriffinCanCode/devicesession/internal/testutil"
)

type fixture struct {
	router  *gin.Engine
	manager *session.Manager
	adapter *testutil.StubAdapter
	session *session.Session
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := session.NewManager(logs.NewPipeline(logs.LevelInfo), time.Hour)
	t.Cleanup(func() { _ = manager.Shutdown() })

	adapter := testutil.NewStubAdapter("org.demo")
	s, err := manager.Attach(context.Background(),
		device.Info{Identifier: "emulator-5554", Platform: device.PlatformAndroid},
		adapter, session.Options{})
	require.NoError(t, err)

	// Let the poller's first round finish so later rounds run on demand only.
	require.Eventually(t, func() bool { return adapter.InstalledCalls.Load() > 0 }, time.Second, time.Millisecond)
	require.NoError(t, s.Tracker.CheckForApplicationUpdates(context.Background()))

	router := gin.New()
	NewHandlers(manager).Register(router)

	return &fixture{router: router, manager: manager, adapter: adapter, session: s}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["devices"])
}

func TestListDevices(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Devices []deviceView `json:"devices"`
		Count   int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "emulator-5554", body.Devices[0].Identifier)
	assert.Equal(t, 1, body.Devices[0].Installed)
	assert.Empty(t, body.Devices[0].Breaker)
}

func TestUnknownDeviceIsNotFound(t *testing.T) {
	f := setup(t)

	for _, tt := range []struct{ method, path string }{
		{"GET", "/devices/nope"},
		{"GET", "/devices/nope/apps"},
		{"POST", "/devices/nope/apps/check"},
		{"GET", "/devices/nope/debuggable"},
		{"GET", "/devices/nope/log-options"},
		{"DELETE", "/devices/nope/sockets"},
	} {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestCheckAppsRunsRound(t *testing.T) {
	f := setup(t)
	f.adapter.Set(func(s *testutil.StubAdapter) {
		s.Installed = []device.ApplicationIdentifier{"org.demo", "org.other"}
	})

	w := f.do(t, "POST", "/devices/emulator-5554/apps/check", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", "/devices/emulator-5554/apps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.ElementsMatch(t, []any{"org.demo", "org.other"}, body["apps"])
}

func TestCheckAppsFailureIsBadGateway(t *testing.T) {
	f := setup(t)
	f.adapter.Set(func(s *testutil.StubAdapter) {
		s.InstalledErr = errors.New("adb offline")
	})

	w := f.do(t, "POST", "/devices/emulator-5554/apps/check", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "adb offline")
}

func TestGetApp(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/devices/emulator-5554/apps/org.demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "org.demo", decode(t, w)["applicationIdentifier"])

	w = f.do(t, "GET", "/devices/emulator-5554/apps/org.missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "GET", "/devices/emulator-5554/apps/org%20demo", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDebuggable(t *testing.T) {
	f := setup(t)
	view := device.DebugWebViewInfo{ID: "1", Title: "index.html"}
	f.adapter.Set(func(s *testutil.StubAdapter) {
		s.Debuggable = []device.DebuggableAppInfo{
			{AppIdentifier: "org.demo", Framework: device.FrameworkCordova},
			{AppIdentifier: "org.native", Framework: device.FrameworkNativeScript},
		}
		s.Views["org.demo"] = []device.DebugWebViewInfo{view}
	})
	require.NoError(t, f.session.Tracker.CheckForApplicationUpdates(context.Background()))

	w := f.do(t, "GET", "/devices/emulator-5554/debuggable", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Apps []debuggableView `json:"apps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Apps, 2)

	views := map[string][]device.DebugWebViewInfo{}
	for _, app := range body.Apps {
		views[app.AppIdentifier] = app.Views
	}
	assert.Equal(t, []device.DebugWebViewInfo{view}, views["org.demo"])
	assert.Empty(t, views["org.native"])
}

func TestLogOptions(t *testing.T) {
	f := setup(t)

	w := f.do(t, "PUT", "/devices/emulator-5554/log-options", map[string]any{
		"logLevel":       "full",
		"applicationPid": "4242",
		"projectDir":     "/src/app",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", "/devices/emulator-5554/log-options", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var opts logs.DeviceLogOptions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opts))
	assert.Equal(t, logs.LevelFull, opts.LogLevel)
	assert.Equal(t, "4242", opts.ApplicationPID)
	assert.Equal(t, "/src/app", opts.ProjectDir)
	assert.Equal(t, logs.LevelInfo, f.manager.Pipeline().LogLevel(), "global level unchanged")
}

func TestLogOptionsRejectsBadLevel(t *testing.T) {
	f := setup(t)

	w := f.do(t, "PUT", "/devices/emulator-5554/log-options", map[string]any{"logLevel": "verbose"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, logs.LevelInfo, f.manager.Pipeline().DeviceLogOptions("emulator-5554").LogLevel)
}

func TestPutLogLevel(t *testing.T) {
	f := setup(t)
	pipeline := f.manager.Pipeline()
	pipeline.SetLogLevel(logs.LevelInfo, "pinned")

	w := f.do(t, "PUT", "/log-level", map[string]any{"level": "FULL"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FULL", decode(t, w)["level"])

	assert.Equal(t, logs.LevelFull, pipeline.LogLevel())
	assert.Equal(t, logs.LevelFull, pipeline.DeviceLogOptions("emulator-5554").LogLevel)
	assert.Equal(t, logs.LevelInfo, pipeline.DeviceLogOptions("pinned").LogLevel)

	w = f.do(t, "PUT", "/log-level", map[string]any{"level": "INFO", "devices": []string{"emulator-5554"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, logs.LevelFull, pipeline.LogLevel())
	assert.Equal(t, logs.LevelInfo, pipeline.DeviceLogOptions("emulator-5554").LogLevel)

	w = f.do(t, "PUT", "/log-level", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSockets(t *testing.T) {
	f := setup(t)

	_, err := f.session.Sockets.GetDebugSocket(context.Background(), "org.demo")
	require.NoError(t, err)
	require.Equal(t, 1, f.session.Sockets.Len())

	w := f.do(t, "DELETE", "/devices/emulator-5554/sockets", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, f.session.Sockets.Len())
}
