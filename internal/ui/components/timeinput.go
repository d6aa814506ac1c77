package components

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TimeInput is a one-line prompt for a position such as "1:05.250" or "65.25"
type TimeInput struct {
	Value      string
	Label      string
	Focused    bool
	Width      int
	CursorPos  int
	Style      lipgloss.Style
	FocusStyle lipgloss.Style
	Prompt     string
}

// NewTimeInput creates a new time prompt
func NewTimeInput(width int) TimeInput {
	return TimeInput{
		Width:  width,
		Prompt: "⏱ ",
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

// Focus opens the prompt with an empty value
func (s *TimeInput) Focus(label string) {
	s.Label = label
	s.Focused = true
	s.Value = ""
	s.CursorPos = 0
}

// Blur closes the prompt
func (s *TimeInput) Blur() {
	s.Focused = false
}

// Seconds parses the current value
func (s TimeInput) Seconds() (float64, error) {
	return ParseTime(s.Value)
}

// Update handles messages for the prompt
func (s TimeInput) Update(msg tea.Msg) (TimeInput, tea.Cmd) {
	if !s.Focused {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyBackspace:
			if len(s.Value) > 0 && s.CursorPos > 0 {
				s.Value = s.Value[:s.CursorPos-1] + s.Value[s.CursorPos:]
				s.CursorPos--
			}
		case tea.KeyDelete:
			if s.CursorPos < len(s.Value) {
				s.Value = s.Value[:s.CursorPos] + s.Value[s.CursorPos+1:]
			}
		case tea.KeyLeft:
			if s.CursorPos > 0 {
				s.CursorPos--
			}
		case tea.KeyRight:
			if s.CursorPos < len(s.Value) {
				s.CursorPos++
			}
		case tea.KeyHome:
			s.CursorPos = 0
		case tea.KeyEnd:
			s.CursorPos = len(s.Value)
		case tea.KeyRunes:
			// Only digits, separators and a decimal point make sense here
			var accepted strings.Builder
			for _, r := range msg.Runes {
				if (r >= '0' && r <= '9') || r == ':' || r == '.' {
					accepted.WriteRune(r)
				}
			}
			char := accepted.String()
			s.Value = s.Value[:s.CursorPos] + char + s.Value[s.CursorPos:]
			s.CursorPos += len(char)
		}
	}

	return s, nil
}

// View renders the prompt
func (s TimeInput) View() string {
	content := s.Prompt + s.Label + " "
	if s.Focused {
		before := s.Value[:s.CursorPos]
		after := s.Value[s.CursorPos:]
		cursor := lipgloss.NewStyle().Background(lipgloss.Color("212")).Render(" ")
		content += before + cursor + after
	} else {
		content += s.Value
	}

	if s.Focused {
		return s.FocusStyle.Width(s.Width).Render(content)
	}
	return s.Style.Width(s.Width).Render(content)
}

// ParseTime accepts "ss", "ss.fff", "mm:ss(.fff)" and "hh:mm:ss(.fff)"
func ParseTime(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty time")
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}

	var total float64
	for i, p := range parts {
		last := i == len(parts)-1
		var (
			v   float64
			err error
		)
		if last {
			v, err = strconv.ParseFloat(p, 64)
		} else {
			var n int
			n, err = strconv.Atoi(p)
			v = float64(n)
		}
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, fmt.Errorf("invalid time %q", value)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid time %q: field out of range", value)
		}
		total = total*60 + v
	}
	return total, nil
}

// FormatTime renders seconds as MM:SS.mmm
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	m := ms / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms%1000)
}
