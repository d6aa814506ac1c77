package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/wavtagger/api"
	"github.com/jscyril/wavtagger/internal/ui/components"
)

// TagsView lists the committed tags and the open marker
type TagsView struct {
	Width       int
	Height      int
	TagList     components.TagList
	Pending     *float64
	BorderStyle lipgloss.Style
	HintStyle   lipgloss.Style
}

// NewTagsView creates a new tags view
func NewTagsView(width, height int) TagsView {
	return TagsView{
		Width:   width,
		Height:  height,
		TagList: components.NewTagList(height-6, width-6),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
		HintStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Resize updates the view dimensions
func (v *TagsView) Resize(width, height int) {
	v.Width = width
	v.Height = height
	v.TagList.Width = width - 6
	v.TagList.Height = height - 6
}

// SetTags updates the list from a session snapshot
func (v *TagsView) SetTags(tags []api.Tag, pending *float64) {
	v.TagList.SetItems(tags)
	v.TagList.Title = fmt.Sprintf("🏷  Tags (%d)", len(tags))
	v.Pending = pending
}

// SelectedIndex returns the selected tag index, or -1
func (v TagsView) SelectedIndex() int {
	return v.TagList.SelectedIndex()
}

// Update handles messages
func (v TagsView) Update(msg tea.Msg) (TagsView, tea.Cmd) {
	v.TagList, _ = v.TagList.Update(msg)
	return v, nil
}

// View renders the tags view
func (v TagsView) View() string {
	var sb strings.Builder

	sb.WriteString(v.TagList.View())
	sb.WriteString("\n\n")
	if v.Pending != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(
			"Open tag from " + components.FormatTime(*v.Pending)))
		sb.WriteString("\n")
	}
	sb.WriteString(v.HintStyle.Render("[↑↓] Select  [x] Remove  [e] Export"))

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
