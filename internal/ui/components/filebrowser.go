package components

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/wavtagger/internal/audio"
)

// FileEntry is a directory or a recording in the browser. Recordings carry
// what their header reports, or why it could not be read.
type FileEntry struct {
	Name     string
	Path     string
	IsDir    bool
	Info     audio.Info
	HeaderErr error
}

// Playable reports whether the entry is a recording the decoder accepts
func (e FileEntry) Playable() bool {
	return !e.IsDir && e.HeaderErr == nil
}

// Summary describes the recording's format in one line
func (e FileEntry) Summary() string {
	if e.HeaderErr != nil {
		return "unsupported: " + e.HeaderErr.Error()
	}
	return fmt.Sprintf("%d Hz · %d ch · %d-bit · %s",
		e.Info.SampleRate, e.Info.Channels, e.Info.BitDepth, FormatTime(e.Info.Duration))
}

// FileBrowser lists directories and .wav recordings, probing each recording
// header so unplayable files are marked before they are opened
type FileBrowser struct {
	Width       int
	Height      int
	CurrentPath string
	Entries     []FileEntry
	Selected    int
	Offset      int
	Err         error

	DirStyle      lipgloss.Style
	FileStyle     lipgloss.Style
	BadStyle      lipgloss.Style
	InfoStyle     lipgloss.Style
	ErrStyle      lipgloss.Style
	SelectedStyle lipgloss.Style
	PathStyle     lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewFileBrowser opens a browser at startPath, or the home directory
func NewFileBrowser(startPath string, width, height int) FileBrowser {
	fb := FileBrowser{
		Width:         width,
		Height:        height,
		DirStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
		FileStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		BadStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		InfoStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		ErrStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		SelectedStyle: lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("255")).Bold(true),
		PathStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}

	if startPath == "" {
		startPath = "/"
		if home, err := os.UserHomeDir(); err == nil {
			startPath = home
		}
	}
	fb.Navigate(startPath)
	return fb
}

// Navigate lists path: parent first, then directories, then recordings,
// each group sorted case-insensitively. Hidden entries are skipped.
func (fb *FileBrowser) Navigate(path string) {
	fb.CurrentPath = path
	fb.Selected, fb.Offset = 0, 0
	fb.Err = nil
	fb.Entries = nil

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		fb.Err = err
		return
	}

	var dirs, recordings []FileEntry
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(path, name)
		switch {
		case de.IsDir():
			dirs = append(dirs, FileEntry{Name: name, Path: full, IsDir: true})
		case audio.IsSupported(name):
			info, err := audio.InspectFile(full)
			recordings = append(recordings, FileEntry{Name: name, Path: full, Info: info, HeaderErr: err})
		}
	}

	byName := func(a, b FileEntry) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	slices.SortFunc(dirs, byName)
	slices.SortFunc(recordings, byName)

	if path != "/" {
		fb.Entries = append(fb.Entries, FileEntry{Name: "..", Path: filepath.Dir(path), IsDir: true})
	}
	fb.Entries = append(fb.Entries, dirs...)
	fb.Entries = append(fb.Entries, recordings...)
}

// FileCount returns the number of listed recordings and how many of them
// can be played
func (fb *FileBrowser) FileCount() (total, playable int) {
	for _, e := range fb.Entries {
		if e.IsDir {
			continue
		}
		total++
		if e.Playable() {
			playable++
		}
	}
	return total, playable
}

// Update moves the selection and handles directory shortcuts
func (fb FileBrowser) Update(msg tea.Msg) (FileBrowser, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return fb, nil
	}

	last := len(fb.Entries) - 1
	switch key.String() {
	case "up", "k":
		fb.moveTo(fb.Selected - 1)
	case "down", "j":
		fb.moveTo(fb.Selected + 1)
	case "pgup":
		fb.moveTo(fb.Selected - fb.visibleHeight())
	case "pgdown":
		fb.moveTo(fb.Selected + fb.visibleHeight())
	case "home":
		fb.moveTo(0)
	case "end":
		fb.moveTo(last)
	case "backspace":
		if fb.CurrentPath != "/" {
			fb.Navigate(filepath.Dir(fb.CurrentPath))
		}
	case "~":
		if home, err := os.UserHomeDir(); err == nil {
			fb.Navigate(home)
		}
	}
	return fb, nil
}

func (fb *FileBrowser) moveTo(i int) {
	fb.Selected = max(0, min(i, len(fb.Entries)-1))

	visible := fb.visibleHeight()
	if fb.Selected < fb.Offset {
		fb.Offset = fb.Selected
	} else if fb.Selected >= fb.Offset+visible {
		fb.Offset = fb.Selected - visible + 1
	}
}

// SelectedEntry returns the entry under the cursor, or nil
func (fb *FileBrowser) SelectedEntry() *FileEntry {
	if fb.Selected >= 0 && fb.Selected < len(fb.Entries) {
		return &fb.Entries[fb.Selected]
	}
	return nil
}

// EnterSelected descends into a directory and returns "", or returns the
// path of a playable recording. An unplayable one sets Err and returns "".
func (fb *FileBrowser) EnterSelected() string {
	entry := fb.SelectedEntry()
	switch {
	case entry == nil:
		return ""
	case entry.IsDir:
		fb.Navigate(entry.Path)
		return ""
	case entry.HeaderErr != nil:
		fb.Err = fmt.Errorf("%s: %w", entry.Name, entry.HeaderErr)
		return ""
	}
	fb.Err = nil
	return entry.Path
}

// visibleHeight leaves room for the border, path, counter and help lines
func (fb *FileBrowser) visibleHeight() int {
	return max(1, fb.Height-6)
}

func (fb FileBrowser) View() string {
	var sb strings.Builder

	sb.WriteString(fb.PathStyle.Render("📁 " + fb.CurrentPath))
	sb.WriteString("\n\n")
	if fb.Err != nil {
		sb.WriteString(fb.ErrStyle.Render("Error: " + fb.Err.Error()))
		sb.WriteString("\n")
	}

	visible := fb.visibleHeight()
	end := min(fb.Offset+visible, len(fb.Entries))
	width := fb.Width - 10
	for i := fb.Offset; i < end; i++ {
		sb.WriteString(fb.renderEntry(i, width))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat("\n", max(0, visible-(end-fb.Offset))))

	total, playable := fb.FileCount()
	sb.WriteString(fb.InfoStyle.Render(fmt.Sprintf("%s\nRecordings: %d (%d playable)",
		strings.Repeat("─", 20), total, playable)))
	sb.WriteString("\n\n")
	sb.WriteString(fb.InfoStyle.Render("[Enter] Open  [Backspace] Up  [~] Home  [Esc] Cancel"))

	return fb.BorderStyle.Width(fb.Width - 4).Render(sb.String())
}

func (fb FileBrowser) renderEntry(i, width int) string {
	e := fb.Entries[i]
	if e.IsDir {
		line := truncate("📂 "+e.Name, width)
		if i == fb.Selected {
			return fb.SelectedStyle.Render(line)
		}
		return fb.DirStyle.Render(line)
	}

	icon, style := "🔊 ", fb.FileStyle
	if !e.Playable() {
		icon, style = "✗ ", fb.BadStyle
	}
	name := icon + e.Name
	line := truncate(name+"  "+e.Summary(), width)
	if i == fb.Selected {
		return fb.SelectedStyle.Render(line)
	}
	// Only the name takes the entry style; the summary is dimmed.
	if n := len([]rune(name)); len([]rune(line)) > n {
		return style.Render(string([]rune(line)[:n])) + fb.InfoStyle.Render(string([]rune(line)[n:]))
	}
	return style.Render(line)
}

// truncate shortens s to at most maxLen runes
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen < 4 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
