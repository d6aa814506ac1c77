package session

// Reduce applies action to s and returns the next state. It has no side
// effects; actions it does not know leave the state unchanged.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case FileLoadStart:
		s.Loading = true

	case FileLoadSuccess:
		next := New()
		next.ScreenWidth = s.ScreenWidth
		next.Audio = a.Audio
		next.FileName = a.Name
		next.Title = a.Title
		next.Artist = a.Artist
		next.SessionID = a.SessionID
		return next

	case FileLoadError:
		s.Loading = false

	case Play:
		s.IsPlaying = true
	case Pause:
		s.IsPlaying = false

	case Seek:
		s.CurrentTime = a.Time
	case SetStartPosition:
		s.StartPosition = a.Position

	case DragStart:
		s.IsDragging = true
	case DragMove:
		s.CurrentTime = a.Time
		s.IsDragging = true
	case DragEnd:
		s.IsDragging = false

	case TimeUpdate:
		s.CurrentTime = a.Time

	case ToggleTag:
		s = toggleTag(s, a.Time)
	case RemoveTag:
		s = removeTag(s, a.Index)
	case ClearPendingTag:
		s.PendingTag = nil

	case Resize:
		s.ScreenWidth = a.Width
	}
	return s
}
