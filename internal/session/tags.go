package session

import "github.com/jscyril/wavtagger/api"

// toggleTag sets the pending marker, or closes it into a tag. Closing at or
// before the marker discards the marker without creating a tag.
func toggleTag(s State, t float64) State {
	if s.PendingTag == nil {
		start := t
		s.PendingTag = &start
		return s
	}

	start := *s.PendingTag
	s.PendingTag = nil
	if t <= start {
		return s
	}

	tags := make([]api.Tag, len(s.Tags), len(s.Tags)+1)
	copy(tags, s.Tags)
	s.Tags = append(tags, api.Tag{Start: start, End: t})
	return s
}

// removeTag drops the tag at index i; out-of-range indices are ignored
func removeTag(s State, i int) State {
	if i < 0 || i >= len(s.Tags) {
		return s
	}
	tags := make([]api.Tag, 0, len(s.Tags)-1)
	tags = append(tags, s.Tags[:i]...)
	s.Tags = append(tags, s.Tags[i+1:]...)
	return s
}
