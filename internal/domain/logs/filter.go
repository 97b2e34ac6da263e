package logs

import (
	"regexp"
	"strings"
)

// syslogPattern matches a syslog header such as
// "Oct 18 10:21:03 iPhone Demo[4242] <Notice>:" and captures the pid.
var syslogPattern = regexp.MustCompile(`^[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}\s+\S+\s+[^\s\[]+\[(\d+)\]`)

// Filter drops records below the configured verbosity.
type Filter struct{}

// Filter returns the part of text visible at opts.LogLevel, or "" when
// nothing survives. FULL returns text unchanged.
func (Filter) Filter(text string, opts DeviceLogOptions) string {
	if opts.LogLevel == LevelFull {
		return text
	}

	frames := SplitFrames(text)
	kept := make([]string, 0, len(frames))
	for _, f := range frames {
		if f.Severity == SeverityTrace {
			continue
		}
		raw := f.Raw
		if opts.ApplicationPID != "" {
			raw = dropForeignProcessLines(raw, opts.ApplicationPID)
		}
		if strings.TrimSpace(raw) != "" {
			kept = append(kept, raw)
		}
	}
	return strings.Join(kept, "\n")
}

// dropForeignProcessLines removes syslog lines written by another process.
// Lines without a syslog header are kept.
func dropForeignProcessLines(text, pid string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if m := syslogPattern.FindStringSubmatch(line); m != nil && m[1] != pid {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
