// Package session holds the authoritative editing state for one loaded
// recording and the pure transition function that mutates it.
package session

import (
	"github.com/jscyril/wavtagger/api"
	"github.com/jscyril/wavtagger/internal/audio"
	"github.com/jscyril/wavtagger/internal/waveform"
)

// DefaultScreenWidth is the available waveform width before the first resize
const DefaultScreenWidth = 800

// State is a value snapshot of the session. Reduce never mutates a State it
// is given; slices are copied before they change.
type State struct {
	SessionID string
	FileName  string
	Title     string
	Artist    string
	Audio     *audio.DecodedAudio

	Loading       bool
	IsPlaying     bool
	IsDragging    bool
	CurrentTime   float64
	StartPosition float64

	Tags       []api.Tag
	PendingTag *float64

	ScreenWidth int
}

// New returns the empty initial state
func New() State {
	return State{ScreenWidth: DefaultScreenWidth}
}

// Loaded reports whether a recording is installed
func (s State) Loaded() bool {
	return s.Audio != nil
}

// Duration returns the loaded recording's duration in seconds, or 0
func (s State) Duration() float64 {
	if s.Audio == nil {
		return 0
	}
	return s.Audio.Duration
}

// DisplayWidth returns the envelope width for the current screen width
func (s State) DisplayWidth() int {
	return waveform.DisplayWidth(s.Duration(), s.ScreenWidth)
}

// HasPending reports whether a tag start marker is set
func (s State) HasPending() bool {
	return s.PendingTag != nil
}
