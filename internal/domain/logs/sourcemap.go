package logs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-sourcemap/sourcemap"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/shared/paths"
)

// ErrSourceMapNotFound is reported when no map exists for a generated file.
var ErrSourceMapNotFound = errors.New("source map not found")

// locationPattern matches "file:///<path>.js:<line>:<column>".
var locationPattern = regexp.MustCompile(`file:///([^\s:()]+\.js):(\d+):(\d+)`)

// SourceMapper rewrites generated-code locations to original sources.
type SourceMapper interface {
	// Rewrite returns text with every resolvable location replaced. The
	// returned text is usable even when err is non-nil.
	Rewrite(platform device.Platform, projectDir, text string) (string, error)
}

// FileSourceMapper resolves locations with the ".js.map" files a build left
// under <projectDir>/platforms/<platform>.
type FileSourceMapper struct {
	mu        sync.Mutex
	consumers map[string]*sourcemap.Consumer // map path -> parsed map
	lookups   map[string]string              // projectDir|platform|file -> map path, "" if none
}

// NewFileSourceMapper creates a mapper with empty caches.
func NewFileSourceMapper() *FileSourceMapper {
	return &FileSourceMapper{
		consumers: make(map[string]*sourcemap.Consumer),
		lookups:   make(map[string]string),
	}
}

// Rewrite implements SourceMapper.
func (m *FileSourceMapper) Rewrite(platform device.Platform, projectDir, text string) (string, error) {
	if projectDir == "" || !strings.Contains(text, "file:///") {
		return text, nil
	}

	var errs []error
	out := locationPattern.ReplaceAllStringFunc(text, func(loc string) string {
		parts := locationPattern.FindStringSubmatch(loc)
		line, _ := strconv.Atoi(parts[2])
		column, _ := strconv.Atoi(parts[3])

		mapped, err := m.resolve(platform, projectDir, parts[1], line, column)
		if err != nil {
			errs = append(errs, err)
			return loc
		}
		return mapped
	})

	return out, errors.Join(errs...)
}

// Reset drops every cached lookup and parsed map.
func (m *FileSourceMapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumers = make(map[string]*sourcemap.Consumer)
	m.lookups = make(map[string]string)
}

func (m *FileSourceMapper) resolve(platform device.Platform, projectDir, file string, line, column int) (string, error) {
	consumer, err := m.consumer(platform, projectDir, file)
	if err != nil {
		return "", err
	}

	// Stack columns are 1-based, map columns 0-based.
	source, _, srcLine, srcColumn, ok := consumer.Source(line, max(column-1, 0))
	if !ok {
		return "", fmt.Errorf("%s:%d:%d: no mapping", file, line, column)
	}
	return fmt.Sprintf("file: %s:%d:%d", source, srcLine, srcColumn+1), nil
}

func (m *FileSourceMapper) consumer(platform device.Platform, projectDir, file string) (*sourcemap.Consumer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := projectDir + "|" + string(platform) + "|" + file
	mapPath, seen := m.lookups[key]
	if !seen {
		var err error
		mapPath, err = findSourceMap(projectDir, platform, file)
		if err != nil {
			return nil, err
		}
		m.lookups[key] = mapPath
	}
	if mapPath == "" {
		return nil, fmt.Errorf("%s: %w", file, ErrSourceMapNotFound)
	}

	if c, ok := m.consumers[mapPath]; ok {
		return c, nil
	}

	data, err := os.ReadFile(filepath.Join(projectDir, filepath.FromSlash(mapPath)))
	if err != nil {
		return nil, fmt.Errorf("read source map: %w", err)
	}
	c, err := sourcemap.Parse("", data)
	if err != nil {
		return nil, fmt.Errorf("parse source map %s: %w", mapPath, err)
	}
	m.consumers[mapPath] = c
	return c, nil
}

// findSourceMap returns the slash-separated path, relative to projectDir, of
// the map for file, or "" when there is none. Among several candidates the
// one sharing the longest path suffix with file wins.
func findSourceMap(projectDir string, platform device.Platform, file string) (string, error) {
	base := path.Base(file)
	pattern := paths.SourceMapPattern(string(platform), base)

	matches, err := doublestar.Glob(os.DirFS(projectDir), pattern)
	if err != nil {
		return "", fmt.Errorf("search source maps: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	sort.Strings(matches)
	best, bestScore := matches[0], -1
	for _, candidate := range matches {
		if score := sharedSuffix(paths.MappedFile(candidate), file); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, nil
}

// sharedSuffix counts the trailing path elements a and b have in common.
func sharedSuffix(a, b string) int {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	n := 0
	for n < len(as) && n < len(bs) && as[len(as)-1-n] == bs[len(bs)-1-n] {
		n++
	}
	return n
}
