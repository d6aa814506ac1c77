package api

// EventType identifies what an AudioEvent carries
type EventType int

const (
	EventTimeUpdate EventType = iota
	EventPlaybackEnded
	EventStateChange
	EventFileLoaded
	EventError
)

// AllEventTypes lists every event type, in declaration order
var AllEventTypes = []EventType{
	EventTimeUpdate,
	EventPlaybackEnded,
	EventStateChange,
	EventFileLoaded,
	EventError,
}

// AudioEvent is published by the session host.
// Payload is a float64 position for EventTimeUpdate, an error for EventError,
// and nil otherwise.
type AudioEvent struct {
	Type    EventType
	Payload interface{}
}
