package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/wavtagger/api"
	"github.com/jscyril/wavtagger/internal/app"
	"github.com/jscyril/wavtagger/internal/config"
	"github.com/jscyril/wavtagger/internal/ui/components"
	"github.com/jscyril/wavtagger/internal/ui/views"
)

// pixelsPerCell converts the waveform strip's cell width into the pixel
// width envelopes are scaled against
const pixelsPerCell = 60

// headerHeight is the number of rows above the editor view
const headerHeight = 1

// ViewType represents the current active view
type ViewType int

const (
	ViewEditor ViewType = iota
	ViewTags
	ViewBrowse
)

type promptKind int

const (
	promptNone promptKind = iota
	promptGoTo
	promptStart
)

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	// Current view
	activeView ViewType

	// Views
	editorView views.EditorView
	tagsView   views.TagsView
	browseView views.BrowseView
	timeInput  components.TimeInput
	prompt     promptKind

	tagger   *app.Tagger
	events   <-chan api.AudioEvent
	keys     config.KeyMap
	seekStep float64

	// Mouse drag over the waveform
	dragging  bool
	dragMoved bool

	// State
	ctx    context.Context
	cancel context.CancelFunc
	status string
	err    error

	// Styles
	tabStyle       lipgloss.Style
	activeTabStyle lipgloss.Style
	statusStyle    lipgloss.Style
}

// StateUpdateMsg is sent when the session changes
type StateUpdateMsg struct{}

// ErrorMsg carries an error published by the session
type ErrorMsg struct {
	Err error
}

// LoadedMsg reports the outcome of opening a file
type LoadedMsg struct {
	Path string
	Err  error
}

// ExportedMsg reports the outcome of an export
type ExportedMsg struct {
	Path string
	Err  error
}

// NewModel creates a new application model
func NewModel(ctx context.Context, tagger *app.Tagger, cfg *config.Config) Model {
	ctx, cancel := context.WithCancel(ctx)

	m := Model{
		width:      80,
		height:     24,
		activeView: ViewEditor,
		tagger:     tagger,
		events:     tagger.Events().SubscribeAll(),
		keys:       cfg.KeyBindings,
		seekStep:   cfg.SeekStepSeconds,
		ctx:        ctx,
		cancel:     cancel,
		tabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("240")),
		activeTabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
		statusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
	}

	m.editorView = views.NewEditorView(m.width, m.height/2)
	m.tagsView = views.NewTagsView(m.width, m.height/2)
	m.browseView = views.NewBrowseView(cfg.StartDir, m.width, m.height-headerHeight)
	m.timeInput = components.NewTimeInput(m.width - 4)

	if !tagger.State().Loaded() {
		m.activeView = ViewBrowse
	}
	m.updateViewSizes()
	m.syncState()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.listenForEvents()
}

// listenForEvents waits for the next session event
func (m Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case event, ok := <-m.events:
			if !ok {
				return nil
			}
			if event.Type == api.EventError {
				if err, isErr := event.Payload.(error); isErr {
					return ErrorMsg{Err: err}
				}
			}
			return StateUpdateMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// loadFile reads and loads path off the UI goroutine
func (m Model) loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return LoadedMsg{Path: path, Err: err}
		}
		return LoadedMsg{Path: path, Err: m.tagger.Load(m.ctx, filepath.Base(path), data)}
	}
}

func (m Model) exportTags() tea.Cmd {
	return func() tea.Msg {
		path, err := m.tagger.ExportTo("")
		return ExportedMsg{Path: path, Err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewSizes()

	case StateUpdateMsg:
		cmds = append(cmds, m.listenForEvents())

	case ErrorMsg:
		m.err = msg.Err
		cmds = append(cmds, m.listenForEvents())

	case views.FileSelectedMsg:
		m.activeView = ViewEditor
		m.status = "Loading " + filepath.Base(msg.Path)
		m.err = nil
		cmds = append(cmds, m.loadFile(msg.Path))

	case LoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.status = ""
		} else {
			m.status = "Loaded " + filepath.Base(msg.Path)
			m.err = nil
		}

	case ExportedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.status = "Exported to " + msg.Path
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}

		// An open prompt takes every key
		if m.prompt != promptNone {
			m.handlePrompt(msg)
			break
		}

		if m.activeView == ViewBrowse {
			if msg.String() == "esc" && m.tagger.State().Loaded() {
				m.activeView = ViewEditor
				break
			}
			var cmd tea.Cmd
			m.browseView, cmd = m.browseView.Update(msg)
			cmds = append(cmds, cmd)
			break
		}

		if quit := m.handleKey(msg); quit {
			m.cancel()
			return m, tea.Quit
		}
		if msg.String() == m.keys.Export {
			cmds = append(cmds, m.exportTags())
		}
	}

	m.syncState()
	return m, tea.Batch(cmds...)
}

// handleKey runs editor and tag-list bindings. It reports whether to quit.
func (m *Model) handleKey(msg tea.KeyMsg) bool {
	s := m.tagger.State()

	switch msg.String() {
	case m.keys.Quit:
		return true
	case m.keys.Open:
		m.activeView = ViewBrowse
		m.browseView.Refresh()
	case "1":
		m.activeView = ViewEditor
	case "2":
		m.activeView = ViewTags
	case "tab":
		if m.activeView == ViewEditor {
			m.activeView = ViewTags
		} else {
			m.activeView = ViewEditor
		}
	case m.keys.PlayPause:
		if s.IsPlaying {
			m.report(m.tagger.Pause())
		} else {
			m.report(m.tagger.Play())
		}
	case m.keys.SeekForward:
		m.report(m.tagger.Seek(s.CurrentTime + m.seekStep))
	case m.keys.SeekBack:
		m.report(m.tagger.Seek(s.CurrentTime - m.seekStep))
	case "s":
		m.report(m.tagger.SetStart(s.CurrentTime))
	case "g":
		m.prompt = promptGoTo
		m.timeInput.Focus("Go to")
	case "S":
		m.prompt = promptStart
		m.timeInput.Focus("Start at")
	case m.keys.ToggleTag:
		m.report(m.tagger.ToggleTag())
	case m.keys.ClearMarker:
		m.tagger.ClearPendingTag()
	case m.keys.RemoveTag:
		if i := m.tagsView.SelectedIndex(); i >= 0 {
			m.tagger.RemoveTag(i)
		}
	default:
		if m.activeView == ViewTags {
			m.tagsView, _ = m.tagsView.Update(msg)
		}
	}
	return false
}

func (m *Model) handlePrompt(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc":
		m.timeInput.Blur()
		m.prompt = promptNone
	case "enter":
		seconds, err := m.timeInput.Seconds()
		kind := m.prompt
		m.timeInput.Blur()
		m.prompt = promptNone
		if err != nil {
			m.err = err
			return
		}
		if kind == promptStart {
			m.report(m.tagger.SetStart(seconds))
		} else {
			m.report(m.tagger.Seek(seconds))
		}
	default:
		m.timeInput, _ = m.timeInput.Update(msg)
	}
}

// handleMouse maps left-button gestures on the waveform onto drag
// commands. A press and release without motion sets the start position.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.activeView == ViewBrowse || !m.tagger.State().Loaded() {
		return
	}

	ox, oy := m.editorView.WaveformOrigin()
	x := msg.X - ox
	y := msg.Y - headerHeight - oy
	inStrip := x >= 0 && x < m.editorView.Waveform.Width && y >= 0 && y < m.editorView.Waveform.Height
	t := m.editorView.Waveform.TimeAt(x)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inStrip {
			return
		}
		m.dragging = true
		m.dragMoved = false
		m.report(m.tagger.DragStart())
		m.report(m.tagger.DragMove(t))

	case tea.MouseActionMotion:
		if !m.dragging {
			return
		}
		m.dragMoved = true
		m.report(m.tagger.DragMove(t))

	case tea.MouseActionRelease:
		if !m.dragging {
			return
		}
		m.dragging = false
		m.report(m.tagger.DragEnd())
		if !m.dragMoved {
			m.report(m.tagger.SetStart(t))
		}
	}
}

func (m *Model) report(err error) {
	if err != nil {
		m.err = err
	}
}

// syncState copies the session snapshot into the views
func (m *Model) syncState() {
	s := m.tagger.State()
	m.editorView.SetState(s, m.tagger.Envelope())
	m.tagsView.SetTags(s.Tags, s.PendingTag)
}

// updateViewSizes updates view dimensions and the envelope width
func (m *Model) updateViewSizes() {
	m.editorView.Resize(m.width, 22)
	m.tagsView.Resize(m.width, m.height-22-headerHeight-2)
	m.browseView.Resize(m.width, m.height-headerHeight)
	m.timeInput.Width = m.width - 4
	m.tagger.Resize(m.editorView.WaveformWidth() * pixelsPerCell)
}

// View renders the UI
func (m Model) View() string {
	var sb string

	// Header with tabs
	sb += m.renderTabs()
	sb += "\n"

	if m.activeView == ViewBrowse {
		sb += m.browseView.View()
	} else {
		sb += m.editorView.View()
		sb += "\n"
		if m.prompt != promptNone {
			sb += m.timeInput.View()
			sb += "\n"
		}
		sb += m.tagsView.View()
	}

	if m.status != "" {
		sb += "\n" + m.statusStyle.Render(m.status)
	}

	// Error display
	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
		sb += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return sb
}

// renderTabs renders the tab bar
func (m Model) renderTabs() string {
	tabs := []string{"[1] Editor", "[2] Tags", "[o] Open"}

	var rendered []string
	for i, tab := range tabs {
		if ViewType(i) == m.activeView {
			rendered = append(rendered, m.activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, m.tabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Run starts the bubbletea program
func Run(ctx context.Context, tagger *app.Tagger, cfg *config.Config) error {
	model := NewModel(ctx, tagger, cfg)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
