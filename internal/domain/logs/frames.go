package logs

import (
	"regexp"
	"strings"
)

// Severity classifies one console record.
type Severity string

const (
	SeverityLog   Severity = "log"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
	SeverityTrace Severity = "trace"
	SeverityTime  Severity = "time"
)

var (
	// markerPattern matches "CONSOLE <LEVEL>[ free text]:" followed by
	// whitespace or end of line.
	markerPattern = regexp.MustCompile(`(?i)\bCONSOLE (LOG|INFO|WARN|ERROR|TRACE|TIME)(?: [^\n]*?)?:(?:[ \t]|$)`)

	timePattern = regexp.MustCompile(`^(.*?):\s*([0-9]+(?:\.[0-9]+)?)\s*ms$`)
)

const tracePrefix = "Trace:"

// Frame is one logical record of device output.
type Frame struct {
	Severity Severity
	// Text is the payload with the marker header stripped.
	Text string
	// Raw is the original text of the record, marker included.
	Raw string
	// Marked reports whether the record was introduced by a console marker.
	Marked bool
}

type frameBuilder struct {
	severity Severity
	marked   bool
	text     []string
	raw      []string
}

func (b *frameBuilder) frame() (Frame, bool) {
	text := strings.TrimRight(strings.Join(b.text, "\n"), "\r\n")
	if strings.TrimSpace(text) == "" {
		return Frame{}, false
	}
	if !b.marked && strings.HasPrefix(strings.TrimLeft(text, " \t\r\n"), tracePrefix) {
		b.severity = SeverityTrace
	}
	if b.severity == SeverityTime {
		text = formatTiming(text)
	}
	return Frame{
		Severity: b.severity,
		Text:     text,
		Raw:      strings.TrimRight(strings.Join(b.raw, "\n"), "\r\n"),
		Marked:   b.marked,
	}, true
}

// SplitFrames splits a chunk of device output into records. Text before the
// first marker forms one unmarked record. Each marker line starts a record
// holding the rest of that line and every following line up to the next
// marker. Only markers are boundaries; an unmarked record whose first line
// begins with "Trace:" is classified as a trace.
func SplitFrames(text string) []Frame {
	var (
		frames  []Frame
		current *frameBuilder
	)
	flush := func() {
		if current == nil {
			return
		}
		if f, ok := current.frame(); ok {
			frames = append(frames, f)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if loc := markerPattern.FindStringSubmatchIndex(line); loc != nil {
			flush()
			current = &frameBuilder{
				severity: Severity(strings.ToLower(line[loc[2]:loc[3]])),
				marked:   true,
				text:     []string{line[loc[1]:]},
				raw:      []string{line},
			}
			continue
		}

		if current == nil {
			current = &frameBuilder{severity: SeverityLog}
		}
		current.text = append(current.text, line)
		current.raw = append(current.raw, line)
	}
	flush()

	return frames
}

// formatTiming rewrites "label: 12.345ms" as "label: 12.345 ms".
func formatTiming(text string) string {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return text
	}
	return m[1] + ": " + m[2] + " ms"
}
