package paths

import (
	"path"
	"strings"
)

// metaEscaper escapes the characters doublestar treats as pattern syntax.
var metaEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
)

// Project layout, relative to the project root.
const (
	// PlatformsDir holds one build output directory per platform.
	PlatformsDir = "platforms"

	// SourceMapExt is appended to a bundle name to name its source map.
	SourceMapExt = ".map"
)

// PlatformDir returns the build output directory of platform.
func PlatformDir(platform string) string {
	return path.Join(PlatformsDir, strings.ToLower(platform))
}

// SourceMapPattern returns a doublestar pattern matching every map of the
// bundle named base anywhere under the platform directory.
func SourceMapPattern(platform, base string) string {
	return path.Join(PlatformDir(platform), "**", EscapeMeta(base)+SourceMapExt)
}

// EscapeMeta escapes s so a doublestar pattern matches it literally.
func EscapeMeta(s string) string {
	return metaEscaper.Replace(s)
}

// MappedFile returns the bundle path a source map path describes.
func MappedFile(mapPath string) string {
	return strings.TrimSuffix(mapPath, SourceMapExt)
}

// IsSourceMap reports whether p names a source map.
func IsSourceMap(p string) bool {
	return strings.HasSuffix(p, SourceMapExt)
}
