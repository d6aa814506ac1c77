package audio

import "context"

// Device opens hardware outputs from raw file bytes. It is the only way the
// Clock reaches audio hardware.
type Device interface {
	Open(ctx context.Context, raw []byte) (Output, error)
}

// Output is an opened hardware context holding one decoded buffer
type Output interface {
	// Duration of the playable buffer in seconds
	Duration() float64
	// Now reads the free-running hardware clock in seconds
	Now() float64
	// Start begins a new voice at offset seconds into the buffer
	Start(offset float64) (Voice, error)
	// Close releases the hardware context
	Close() error
}

// Voice is one sounding instance of the buffer. Stop must tolerate being
// called more than once.
type Voice interface {
	Stop() error
}
