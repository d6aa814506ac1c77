package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar shows the playhead against the recording length, with the
// start position marked
type ProgressBar struct {
	Width       int
	Current     float64 // seconds
	Total       float64 // seconds
	Start       float64 // seconds
	BarChar     string
	EmptyChar   string
	StartChar   string
	ShowTime    bool
	Style       lipgloss.Style
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
	StartStyle  lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		StartChar:   "▼",
		ShowTime:    true,
		Style:       lipgloss.NewStyle(),
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StartStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// SetProgress sets the current position, start anchor and length in seconds
func (p *ProgressBar) SetProgress(current, start, total float64) {
	p.Current = current
	p.Start = start
	p.Total = total
}

// barWidth leaves room for the time display
func (p ProgressBar) barWidth() int {
	w := p.Width - 26
	if w < 10 {
		w = 10
	}
	return w
}

func (p ProgressBar) cell(seconds float64, width int) int {
	if p.Total <= 0 {
		return 0
	}
	percent := seconds / p.Total
	if percent > 1 {
		percent = 1
	}
	if percent < 0 {
		percent = 0
	}
	return int(float64(width) * percent)
}

// View renders the progress bar
func (p ProgressBar) View() string {
	var sb strings.Builder

	width := p.barWidth()
	filled := p.cell(p.Current, width)
	start := p.cell(p.Start, width)
	if start >= width {
		start = width - 1
	}

	for i := 0; i < width; i++ {
		switch {
		case i == start && p.Start > 0:
			sb.WriteString(p.StartStyle.Render(p.StartChar))
		case i < filled:
			sb.WriteString(p.FilledStyle.Render(p.BarChar))
		default:
			sb.WriteString(p.EmptyStyle.Render(p.EmptyChar))
		}
	}

	// Add time display
	if p.ShowTime {
		sb.WriteString(" ")
		sb.WriteString(FormatTime(p.Current))
		sb.WriteString("/")
		sb.WriteString(FormatTime(p.Total))
	}

	return p.Style.Render(sb.String())
}
