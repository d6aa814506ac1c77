package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrInvalidContainer  = errors.New("invalid audio container")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrMissingDataChunk  = errors.New("missing data chunk")
	ErrPlaybackInit      = errors.New("playback initialization failed")
	ErrHardwareVoice     = errors.New("hardware voice failure")
	ErrInitSuperseded    = errors.New("playback initialization superseded")
	ErrNotInitialized    = errors.New("playback not initialized")
	ErrNoRecording       = errors.New("no recording loaded")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrDragInProgress    = errors.New("playhead is being dragged")
)

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op   string // Operation that failed
	File string // File name if applicable
	Err  error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.File, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, file string, err error) *PlayerError {
	return &PlayerError{Op: op, File: file, Err: err}
}

// DecodeError describes where in the byte stream decoding stopped
type DecodeError struct {
	Offset int
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
