package logs

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const colorBlock = "  "

// Renderer writes device log events to a terminal, one physical line at a
// time, each prefixed with the device color.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	term   *lipgloss.Renderer
	colors *ColorAssigner
	styles map[Severity]lipgloss.Style
}

// NewRenderer creates a renderer writing to w. The color profile is detected
// from w.
func NewRenderer(w io.Writer, colors *ColorAssigner) *Renderer {
	r := &Renderer{
		out:    w,
		term:   lipgloss.NewRenderer(w, termenv.WithColorCache(true)),
		colors: colors,
	}
	r.styles = r.severityStyles()
	return r
}

// WithProfile forces a color profile, e.g. termenv.Ascii for plain output.
func (r *Renderer) WithProfile(profile termenv.Profile) *Renderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.term.SetColorProfile(profile)
	r.styles = r.severityStyles()
	return r
}

func (r *Renderer) severityStyles() map[Severity]lipgloss.Style {
	base := r.term.NewStyle()
	return map[Severity]lipgloss.Style{
		SeverityLog:   base,
		SeverityInfo:  base.Foreground(lipgloss.Color("12")),
		SeverityWarn:  base.Foreground(lipgloss.Color("11")),
		SeverityError: base.Foreground(lipgloss.Color("9")).Bold(true),
		SeverityTrace: base.Faint(true),
		SeverityTime:  base.Foreground(lipgloss.Color("14")),
	}
}

// Render writes every record of ev.
func (r *Renderer) Render(ev DeviceLogEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	block := r.term.NewStyle().Background(r.colors.Color(ev.DeviceIdentifier)).Render(colorBlock)

	var b strings.Builder
	for _, f := range SplitFrames(ev.Text) {
		style, ok := r.styles[f.Severity]
		if !ok {
			style = r.styles[SeverityLog]
		}
		for _, line := range strings.Split(f.Text, "\n") {
			fmt.Fprintf(&b, "%s %s\n", block, style.Render(line))
		}
	}

	if b.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(r.out, b.String())
	return err
}
