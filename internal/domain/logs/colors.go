package logs

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// DefaultPalette is the device color rotation.
var DefaultPalette = []lipgloss.Color{
	lipgloss.Color("39"),  // blue
	lipgloss.Color("208"), // orange
	lipgloss.Color("141"), // purple
	lipgloss.Color("77"),  // green
	lipgloss.Color("204"), // pink
	lipgloss.Color("220"), // yellow
	lipgloss.Color("45"),  // cyan
	lipgloss.Color("167"), // red
}

// ColorAssigner hands out palette colors to devices round-robin. A device
// keeps its color for the lifetime of the assigner.
type ColorAssigner struct {
	mu       sync.Mutex
	palette  []lipgloss.Color
	next     int
	assigned map[string]lipgloss.Color
}

// NewColorAssigner creates an assigner over palette, or DefaultPalette when
// palette is empty.
func NewColorAssigner(palette ...lipgloss.Color) *ColorAssigner {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &ColorAssigner{
		palette:  append([]lipgloss.Color(nil), palette...),
		assigned: make(map[string]lipgloss.Color),
	}
}

// Color returns the color of deviceID, assigning the next one on first use.
func (a *ColorAssigner) Color(deviceID string) lipgloss.Color {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.assigned[deviceID]; ok {
		return c
	}
	c := a.palette[a.next]
	a.next = (a.next + 1) % len(a.palette)
	a.assigned[deviceID] = c
	return c
}
