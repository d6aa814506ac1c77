package views

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/wavtagger/internal/ui/components"
)

// FileSelectedMsg is sent when a recording is picked in the file browser
type FileSelectedMsg struct {
	Path string
}

// BrowseView picks a recording to load
type BrowseView struct {
	Width       int
	Height      int
	StartDir    string
	FileBrowser components.FileBrowser
	TitleStyle  lipgloss.Style
}

// NewBrowseView creates a browser rooted at startDir (home when empty)
func NewBrowseView(startDir string, width, height int) BrowseView {
	return BrowseView{
		Width:       width,
		Height:      height,
		StartDir:    startDir,
		FileBrowser: components.NewFileBrowser(startDir, width, height-2),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
	}
}

// Resize updates the view dimensions
func (v *BrowseView) Resize(width, height int) {
	v.Width = width
	v.Height = height
	v.FileBrowser.Width = width
	v.FileBrowser.Height = height - 2
}

// Refresh re-reads the current directory
func (v *BrowseView) Refresh() {
	v.FileBrowser.Navigate(v.FileBrowser.CurrentPath)
}

// Update handles messages
func (v BrowseView) Update(msg tea.Msg) (BrowseView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			filePath := v.FileBrowser.EnterSelected()
			if filePath != "" {
				return v, func() tea.Msg {
					return FileSelectedMsg{Path: filePath}
				}
			}
			// Otherwise it was a directory navigation, stay in browser
			return v, nil
		default:
			v.FileBrowser, _ = v.FileBrowser.Update(msg)
		}
	}
	return v, nil
}

// View renders the browser
func (v BrowseView) View() string {
	var sb strings.Builder
	sb.WriteString(v.TitleStyle.Render("Open a recording"))
	sb.WriteString("\n")
	sb.WriteString(v.FileBrowser.View())
	return sb.String()
}
