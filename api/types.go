package api

import "fmt"

// Tag is a committed time range over the recording, in seconds
type Tag struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns the tag length in seconds
func (t Tag) Length() float64 {
	return t.End - t.Start
}

// String formats the tag as "start-end" with millisecond precision
func (t Tag) String() string {
	return fmt.Sprintf("%.3fs-%.3fs", t.Start, t.End)
}

// ClockState is the closed set of playback clock states
type ClockState int

const (
	ClockIdle ClockState = iota
	ClockReady
	ClockPlaying
	ClockPaused
	ClockSuspended
)

func (s ClockState) String() string {
	switch s {
	case ClockIdle:
		return "idle"
	case ClockReady:
		return "ready"
	case ClockPlaying:
		return "playing"
	case ClockPaused:
		return "paused"
	case ClockSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("ClockState(%d)", int(s))
	}
}

// Player is the transport surface exposed to collaborators
type Player interface {
	Play() error
	Pause() error
	Seek(position float64) error
}
