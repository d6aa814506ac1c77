package session

import "github.com/jscyril/wavtagger/internal/audio"

// Action is an input to Reduce
type Action interface {
	action()
}

type (
	FileLoadStart   struct{}
	FileLoadSuccess struct {
		Audio     *audio.DecodedAudio
		Name      string
		Title     string
		Artist    string
		SessionID string
	}
	FileLoadError struct{ Err error }

	Play  struct{}
	Pause struct{}

	Seek             struct{ Time float64 }
	SetStartPosition struct{ Position float64 }

	DragStart struct{}
	DragMove  struct{ Time float64 }
	DragEnd   struct{}

	TimeUpdate struct{ Time float64 }

	ToggleTag       struct{ Time float64 }
	RemoveTag       struct{ Index int }
	ClearPendingTag struct{}

	Resize struct{ Width int }
)

func (FileLoadStart) action()    {}
func (FileLoadSuccess) action()  {}
func (FileLoadError) action()    {}
func (Play) action()             {}
func (Pause) action()            {}
func (Seek) action()             {}
func (SetStartPosition) action() {}
func (DragStart) action()        {}
func (DragMove) action()         {}
func (DragEnd) action()          {}
func (TimeUpdate) action()       {}
func (ToggleTag) action()        {}
func (RemoveTag) action()        {}
func (ClearPendingTag) action()  {}
func (Resize) action()           {}
