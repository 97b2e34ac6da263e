package logs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
)

const testSourceMap = `{"version":3,"file":"bundle.js","sources":["src/main.ts"],"names":[],"mappings":"AAAA"}`

func writeSourceMap(t *testing.T, projectDir, rel string) {
	t.Helper()
	full := filepath.Join(projectDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(testSourceMap), 0o644))
}

func TestFileSourceMapperRewrites(t *testing.T) {
	projectDir := t.TempDir()
	writeSourceMap(t, projectDir, "platforms/android/app/src/main/assets/app/bundle.js.map")

	mapper := NewFileSourceMapper()
	text := "Error: boom\n    at run (file:///data/data/org.demo/files/app/bundle.js:1:1)"

	got, err := mapper.Rewrite(device.PlatformAndroid, projectDir, text)
	require.NoError(t, err)
	assert.Contains(t, got, "file: src/main.ts:")
	assert.NotContains(t, got, "bundle.js:1:1")
	assert.Contains(t, got, "Error: boom")
}

func TestFileSourceMapperScopedToPlatform(t *testing.T) {
	projectDir := t.TempDir()
	writeSourceMap(t, projectDir, "platforms/android/app/bundle.js.map")

	mapper := NewFileSourceMapper()
	text := "at file:///app/bundle.js:1:1"

	got, err := mapper.Rewrite(device.PlatformIOS, projectDir, text)
	assert.ErrorIs(t, err, ErrSourceMapNotFound)
	assert.Equal(t, text, got)
}

func TestFileSourceMapperToleratesBadMaps(t *testing.T) {
	projectDir := t.TempDir()
	full := filepath.Join(projectDir, "platforms", "ios", "app", "bundle.js.map")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("not json"), 0o644))

	mapper := NewFileSourceMapper()
	text := "at file:///app/bundle.js:1:1"

	got, err := mapper.Rewrite(device.PlatformIOS, projectDir, text)
	assert.Error(t, err)
	assert.Equal(t, text, got)
}

func TestFileSourceMapperWithoutProjectDir(t *testing.T) {
	mapper := NewFileSourceMapper()
	text := "at file:///app/bundle.js:1:1"

	got, err := mapper.Rewrite(device.PlatformIOS, "", text)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestFindSourceMapPrefersLongestSuffix(t *testing.T) {
	projectDir := t.TempDir()
	writeSourceMap(t, projectDir, "platforms/ios/build/other/bundle.js.map")
	writeSourceMap(t, projectDir, "platforms/ios/demo/app/bundle.js.map")

	got, err := findSourceMap(projectDir, device.PlatformIOS, "var/containers/demo/app/bundle.js")
	require.NoError(t, err)
	assert.Equal(t, "platforms/ios/demo/app/bundle.js.map", got)
}
