package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/wavtagger/api"
	"github.com/jscyril/wavtagger/internal/waveform"
)

// Waveform draws envelope columns one terminal cell each, scrolled so the
// playhead stays in view
type Waveform struct {
	Width    int // cells
	Height   int // rows
	Columns  []waveform.Column
	Duration float64
	Offset   int // first visible column

	Playhead float64
	Pending  *float64
	Tags     []api.Tag

	WaveStyle     lipgloss.Style
	TagStyle      lipgloss.Style
	PlayheadStyle lipgloss.Style
	PendingStyle  lipgloss.Style
	EmptyStyle    lipgloss.Style
}

// NewWaveform creates a waveform strip
func NewWaveform(width, height int) Waveform {
	return Waveform{
		Width:         width,
		Height:        height,
		WaveStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		TagStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")),
		PlayheadStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		PendingStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		EmptyStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetEnvelope replaces the columns; the offset is reset when they change length
func (w *Waveform) SetEnvelope(columns []waveform.Column, duration float64) {
	if len(columns) != len(w.Columns) {
		w.Offset = 0
	}
	w.Columns = columns
	w.Duration = duration
	w.follow()
}

// SetMarkers updates the overlays
func (w *Waveform) SetMarkers(playhead float64, pending *float64, tags []api.Tag) {
	w.Playhead = playhead
	w.Pending = pending
	w.Tags = tags
	w.follow()
}

// TimeAt maps a cell x (relative to the strip) to a time in seconds
func (w Waveform) TimeAt(x int) float64 {
	if len(w.Columns) == 0 || w.Duration <= 0 {
		return 0
	}
	col := w.Offset + x
	if col < 0 {
		return 0
	}
	if col >= len(w.Columns) {
		return w.Duration
	}
	return float64(col) * w.columnSeconds()
}

// columnAt returns the column index holding time t, or -1
func (w Waveform) columnAt(t float64) int {
	if len(w.Columns) == 0 || w.Duration <= 0 {
		return -1
	}
	col := int(t / w.columnSeconds())
	if col >= len(w.Columns) {
		col = len(w.Columns) - 1
	}
	if col < 0 {
		col = 0
	}
	return col
}

func (w Waveform) columnSeconds() float64 {
	return w.Duration / float64(len(w.Columns))
}

// follow scrolls so the playhead column is visible
func (w *Waveform) follow() {
	col := w.columnAt(w.Playhead)
	if col < 0 || w.Width < 1 {
		return
	}
	if col < w.Offset {
		w.Offset = col
	} else if col >= w.Offset+w.Width {
		w.Offset = col - w.Width + 1
	}
}

// inTag reports whether column col overlaps a committed tag
func (w Waveform) inTag(col int) bool {
	start := float64(col) * w.columnSeconds()
	end := start + w.columnSeconds()
	for _, t := range w.Tags {
		if t.Start < end && t.End > start {
			return true
		}
	}
	return false
}

// filled reports whether row r of an h-row strip intersects the column range.
// Row 0 is the top, covering amplitudes near +1.
func filled(c waveform.Column, r, h int) bool {
	if c.Empty() {
		return false
	}
	step := 2 / float64(h)
	hi := 1 - float64(r)*step
	lo := hi - step
	return c.Max >= lo && c.Min <= hi
}

// View renders the strip
func (w Waveform) View() string {
	if w.Height < 1 || w.Width < 1 {
		return ""
	}
	if len(w.Columns) == 0 {
		return w.EmptyStyle.Render(strings.Repeat("·", w.Width))
	}

	playhead := w.columnAt(w.Playhead)
	pending := -1
	if w.Pending != nil {
		pending = w.columnAt(*w.Pending)
	}

	end := w.Offset + w.Width
	if end > len(w.Columns) {
		end = len(w.Columns)
	}

	rows := make([]string, w.Height)
	for r := 0; r < w.Height; r++ {
		var sb strings.Builder
		for col := w.Offset; col < end; col++ {
			c := w.Columns[col]
			cell := " "
			if filled(c, r, w.Height) {
				cell = "█"
			}

			switch {
			case col == playhead:
				if cell == " " {
					cell = "│"
				}
				sb.WriteString(w.PlayheadStyle.Render(cell))
			case col == pending:
				if cell == " " {
					cell = "┆"
				}
				sb.WriteString(w.PendingStyle.Render(cell))
			case w.inTag(col):
				sb.WriteString(w.TagStyle.Render(cell))
			default:
				sb.WriteString(w.WaveStyle.Render(cell))
			}
		}
		rows[r] = sb.String()
	}
	return strings.Join(rows, "\n")
}
