package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformDir(t *testing.T) {
	assert.Equal(t, "platforms/android", PlatformDir("android"))
	assert.Equal(t, "platforms/ios", PlatformDir("iOS"))
}

func TestSourceMapPattern(t *testing.T) {
	assert.Equal(t, "platforms/ios/**/bundle.js.map", SourceMapPattern("ios", "bundle.js"))
	assert.Equal(t, `platforms/android/**/vendor\[1\].js.map`, SourceMapPattern("android", "vendor[1].js"))
}

func TestEscapeMeta(t *testing.T) {
	assert.Equal(t, "bundle.js", EscapeMeta("bundle.js"))
	assert.Equal(t, `a\*b\?c\{d,e\}\\f`, EscapeMeta(`a*b?c{d,e}\f`))
}

func TestMappedFile(t *testing.T) {
	assert.Equal(t, "platforms/ios/app/bundle.js", MappedFile("platforms/ios/app/bundle.js.map"))
	assert.True(t, IsSourceMap("bundle.js.map"))
	assert.False(t, IsSourceMap("bundle.js"))
}
