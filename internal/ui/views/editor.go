package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/wavtagger/internal/session"
	"github.com/jscyril/wavtagger/internal/ui/components"
	"github.com/jscyril/wavtagger/internal/waveform"
)

// waveformRows is the height of the waveform strip
const waveformRows = 8

// EditorView displays the loaded recording, its waveform and the transport
type EditorView struct {
	Width       int
	Height      int
	State       session.State
	Waveform    components.Waveform
	ProgressBar components.ProgressBar

	// Styles
	TitleStyle    lipgloss.Style
	InfoStyle     lipgloss.Style
	StatusStyle   lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewEditorView creates a new editor view
func NewEditorView(width, height int) EditorView {
	return EditorView{
		Width:       width,
		Height:      height,
		Waveform:    components.NewWaveform(width-8, waveformRows),
		ProgressBar: components.NewProgressBar(width - 8),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		InfoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}
}

// Resize updates the view dimensions
func (v *EditorView) Resize(width, height int) {
	v.Width = width
	v.Height = height
	v.Waveform.Width = v.WaveformWidth()
	v.ProgressBar.Width = width - 8
}

// WaveformWidth is the number of cells available to the waveform strip
func (v EditorView) WaveformWidth() int {
	w := v.Width - 8 // border and padding
	if w < 1 {
		return 1
	}
	return w
}

// WaveformOrigin is the screen cell of the strip's top-left corner,
// relative to the view
func (v EditorView) WaveformOrigin() (x, y int) {
	// border + padding, then the title and info lines and a blank line
	return 3, 5
}

// SetState updates the view from a session snapshot
func (v *EditorView) SetState(state session.State, columns []waveform.Column) {
	v.State = state
	v.Waveform.SetEnvelope(columns, state.Duration())
	v.Waveform.SetMarkers(state.CurrentTime, state.PendingTag, state.Tags)
	v.ProgressBar.SetProgress(state.CurrentTime, state.StartPosition, state.Duration())
}

// View renders the editor view
func (v EditorView) View() string {
	var sb strings.Builder
	s := v.State

	if !s.Loaded() {
		if s.Loading {
			sb.WriteString(v.TitleStyle.Render("♪ Loading…"))
		} else {
			sb.WriteString(v.TitleStyle.Render("♪ No recording loaded"))
		}
		sb.WriteString("\n\n")
		sb.WriteString(v.ControlsStyle.Render("Press o to open a .wav file"))
		return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
	}

	// Status icon
	statusIcon := "⏸"
	switch {
	case s.IsDragging:
		statusIcon = "⇔"
	case s.IsPlaying:
		statusIcon = "▶"
	}

	sb.WriteString(v.StatusStyle.Render(statusIcon + " "))
	sb.WriteString(v.TitleStyle.Render(s.Title))
	if s.Artist != "" {
		sb.WriteString(v.InfoStyle.Render(" by " + s.Artist))
	}
	sb.WriteString("\n")
	sb.WriteString(v.InfoStyle.Render(fmt.Sprintf("%s · %d Hz · %d ch · %d-bit",
		s.FileName, s.Audio.SampleRate, s.Audio.Channels, s.Audio.BitDepth)))
	sb.WriteString("\n\n")

	sb.WriteString(v.Waveform.View())
	sb.WriteString("\n\n")

	sb.WriteString(v.ProgressBar.View())
	sb.WriteString("\n")
	sb.WriteString(v.InfoStyle.Render("start " + components.FormatTime(s.StartPosition)))
	if s.Loading {
		sb.WriteString(v.StatusStyle.Render("  loading…"))
	}

	sb.WriteString("\n")
	sb.WriteString(v.ControlsStyle.Render(
		"[Space] Play/Pause  [←→] Seek  [s] Set start  [g] Go to  [t] Tag  [Esc] Drop marker  [o] Open  [q] Quit",
	))

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
