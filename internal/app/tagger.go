// Package app hosts one editing session: it owns the session state, drives
// the playback clock from user commands and publishes every transition on
// the event bus.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jscyril/wavtagger/api"
	"github.com/jscyril/wavtagger/internal/audio"
	"github.com/jscyril/wavtagger/internal/export"
	"github.com/jscyril/wavtagger/internal/library"
	"github.com/jscyril/wavtagger/internal/session"
	"github.com/jscyril/wavtagger/internal/waveform"
	playerrors "github.com/jscyril/wavtagger/pkg/errors"
	"github.com/jscyril/wavtagger/pkg/events"
)

var _ api.Player = (*Tagger)(nil)

// Options configures a Tagger
type Options struct {
	Device          audio.Device
	Bus             *events.EventBus
	ExportDir       string
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

// Tagger is the host of the session state machine. Commands are serialized;
// clock callbacks only touch the state, never the clock.
type Tagger struct {
	clock  *audio.Clock
	bus    *events.EventBus
	meta   *library.MetadataReader
	writer *export.Writer
	log    *slog.Logger

	// opMu serializes commands that call into the clock
	opMu sync.Mutex

	mu    sync.Mutex
	state session.State

	envMu    sync.Mutex
	envAudio *audio.DecodedAudio
	envWidth int
	envelope []waveform.Column
}

// New creates a Tagger with an empty session
func New(opts Options) *Tagger {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewEventBus()
	}

	t := &Tagger{
		bus:    opts.Bus,
		meta:   library.NewMetadataReader(),
		writer: export.NewWriter(opts.ExportDir),
		log:    opts.Logger.With("component", "tagger"),
		state:  session.New(),
	}
	t.clock = audio.NewClock(opts.Device, audio.ClockOptions{
		RefreshInterval: opts.RefreshInterval,
		Logger:          opts.Logger,
		Callbacks: audio.Callbacks{
			OnTimeUpdate:    t.onTimeUpdate,
			OnPlaybackEnded: t.onPlaybackEnded,
			OnError:         t.publishError,
		},
	})
	return t
}

// Events returns the bus transitions are published on
func (t *Tagger) Events() *events.EventBus {
	return t.bus
}

// State returns a snapshot of the session
func (t *Tagger) State() session.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ClockState returns the playback clock state
func (t *Tagger) ClockState() api.ClockState {
	return t.clock.State()
}

// Load decodes data and installs it as a new session. On a decode failure
// the previous session is kept and only the loading flag is cleared. A
// playback init failure also leaves the previous session paused.
func (t *Tagger) Load(ctx context.Context, name string, data []byte) error {
	if !audio.IsSupported(name) {
		err := playerrors.NewPlayerError("load", name, playerrors.ErrUnsupportedFile)
		t.publishError(err)
		return err
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.dispatch(session.FileLoadStart{})
	start := time.Now()

	decoded, err := audio.Decode(data)
	if err != nil {
		return t.loadFailed(name, err)
	}

	// The clock releases the previous output before opening the new one, so
	// a sounding session is paused even if the new output then fails.
	if t.State().IsPlaying {
		t.dispatch(session.Pause{})
	}
	if err := t.clock.Initialize(ctx, decoded.Raw); err != nil {
		return t.loadFailed(name, err)
	}

	rec := t.meta.Read(name, data)
	sessionID := uuid.NewString()
	t.dispatch(session.FileLoadSuccess{
		Audio:     decoded,
		Name:      name,
		Title:     rec.Title,
		Artist:    rec.Artist,
		SessionID: sessionID,
	})
	t.bus.Publish(api.AudioEvent{Type: api.EventFileLoaded})

	t.log.Info("recording loaded",
		"file", name,
		"session", sessionID,
		"duration", decoded.Duration,
		"sample_rate", decoded.SampleRate,
		"channels", decoded.Channels,
		"bit_depth", decoded.BitDepth,
		"elapsed", time.Since(start),
	)
	return nil
}

func (t *Tagger) loadFailed(name string, err error) error {
	t.dispatch(session.FileLoadError{Err: err})
	perr := playerrors.NewPlayerError("load", name, err)
	t.log.Error("load failed", "file", name, "error", err)
	t.publishError(perr)
	return perr
}

// Play starts playback from the current time. At the end of the recording
// it restarts from the start position.
func (t *Tagger) Play() error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	s := t.State()
	if !s.Loaded() {
		return t.commandFailed("play", playerrors.ErrNoRecording)
	}
	if s.IsDragging {
		return t.commandFailed("play", playerrors.ErrDragInProgress)
	}

	pos := s.CurrentTime
	if pos >= s.Duration() {
		pos = s.StartPosition
		t.dispatchTime(pos)
	}

	err := t.clock.Play(pos)
	t.syncPlaying()
	if err != nil {
		return t.commandFailed("play", err)
	}
	return nil
}

// Pause stops playback and keeps the position
func (t *Tagger) Pause() error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if !t.State().Loaded() {
		return t.commandFailed("pause", playerrors.ErrNoRecording)
	}

	err := t.clock.Pause()
	t.clock.Observe(func(state api.ClockState, position float64) {
		t.dispatch(session.Pause{})
		if state != api.ClockIdle {
			t.dispatchTime(position)
		}
	})
	if err != nil {
		return t.commandFailed("pause", err)
	}
	return nil
}

// Seek moves the playhead to position, clamped to the recording. A sounding
// voice is restarted at the new position.
func (t *Tagger) Seek(position float64) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()
	return t.seekLocked(position)
}

func (t *Tagger) seekLocked(position float64) error {
	s := t.State()
	if !s.Loaded() {
		return t.commandFailed("seek", playerrors.ErrNoRecording)
	}

	pos := clamp(position, s.Duration())
	t.clock.Seek(pos)
	t.clock.Observe(func(state api.ClockState, position float64) {
		if state == api.ClockIdle {
			position = pos
		}
		t.dispatch(session.Seek{Time: position})
		t.publishTime(position)
	})

	// Restarting at the end leaves the clock paused with no voice.
	if t.clock.State() == api.ClockPlaying {
		err := t.clock.Play(pos)
		t.syncPlaying()
		if err != nil {
			return t.commandFailed("seek", err)
		}
	}
	return nil
}

// SetStart anchors playback at position and moves the playhead there
func (t *Tagger) SetStart(position float64) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	s := t.State()
	if !s.Loaded() {
		return t.commandFailed("set start", playerrors.ErrNoRecording)
	}
	t.dispatch(session.SetStartPosition{Position: clamp(position, s.Duration())})
	return t.seekLocked(position)
}

// DragStart hands the playhead to a drag gesture
func (t *Tagger) DragStart() error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if !t.State().Loaded() {
		return t.commandFailed("drag", playerrors.ErrNoRecording)
	}

	err := t.clock.Suspend()
	t.dispatch(session.DragStart{})
	if err != nil {
		return t.commandFailed("drag", err)
	}
	return nil
}

// DragMove moves the playhead while dragging
func (t *Tagger) DragMove(position float64) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	s := t.State()
	if !s.Loaded() {
		return t.commandFailed("drag", playerrors.ErrNoRecording)
	}

	pos := clamp(position, s.Duration())
	t.clock.Seek(pos)
	t.dispatch(session.DragMove{Time: pos})
	t.publishTime(pos)
	return nil
}

// DragEnd ends the gesture, resuming playback if it was playing
func (t *Tagger) DragEnd() error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if !t.State().Loaded() {
		return t.commandFailed("drag", playerrors.ErrNoRecording)
	}

	_, err := t.clock.Release()
	t.dispatch(session.DragEnd{})
	t.syncPlaying()
	if err != nil {
		return t.commandFailed("drag", err)
	}
	return nil
}

// ToggleTag opens a tag at the playhead, or closes the open one there
func (t *Tagger) ToggleTag() error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	s := t.State()
	if !s.Loaded() {
		return t.commandFailed("tag", playerrors.ErrNoRecording)
	}

	pos := s.CurrentTime
	if t.clock.State() == api.ClockPlaying {
		pos = t.clock.Position()
	}
	next := t.dispatch(session.ToggleTag{Time: pos})
	if !next.HasPending() && len(next.Tags) > len(s.Tags) {
		tag := next.Tags[len(next.Tags)-1]
		t.log.Debug("tag committed", "start", tag.Start, "end", tag.End)
	}
	return nil
}

// RemoveTag deletes the tag at index; out-of-range indices are ignored
func (t *Tagger) RemoveTag(index int) {
	t.dispatch(session.RemoveTag{Index: index})
}

// ClearPendingTag discards the open tag marker
func (t *Tagger) ClearPendingTag() {
	t.dispatch(session.ClearPendingTag{})
}

// Resize records the available waveform width
func (t *Tagger) Resize(width int) {
	t.dispatch(session.Resize{Width: width})
}

// Envelope returns the waveform columns for the current width, or nil when
// no recording is loaded
func (t *Tagger) Envelope() []waveform.Column {
	s := t.State()
	if !s.Loaded() {
		return nil
	}
	width := s.DisplayWidth()

	t.envMu.Lock()
	defer t.envMu.Unlock()

	if t.envAudio != s.Audio || t.envWidth != width {
		t.envelope = waveform.Build(s.Audio.Samples, width)
		t.envAudio = s.Audio
		t.envWidth = width
	}
	return t.envelope
}

// Export renders the committed tags as a JSON document
func (t *Tagger) Export() ([]byte, error) {
	doc, err := session.ExportTags(t.State().Tags)
	if err != nil {
		return nil, t.commandFailed("export", err)
	}
	return doc, nil
}

// ExportTo writes the tag document to dir, or to the configured export
// directory when dir is empty, and returns the file path
func (t *Tagger) ExportTo(dir string) (string, error) {
	s := t.State()
	if !s.Loaded() {
		return "", t.commandFailed("export", playerrors.ErrNoRecording)
	}

	doc, err := t.Export()
	if err != nil {
		return "", err
	}

	w := t.writer
	if dir != "" {
		w = export.NewWriter(dir)
	}
	path, err := w.Write(s.Title, s.SessionID, doc)
	if err != nil {
		return "", t.commandFailed("export", err)
	}

	t.log.Info("tags exported", "path", path, "tags", len(s.Tags))
	return path, nil
}

// Close stops playback and releases the audio output. A load that is
// still initializing is abandoned.
func (t *Tagger) Close() error {
	err := t.clock.Cleanup()

	t.opMu.Lock()
	defer t.opMu.Unlock()

	if t.State().IsPlaying {
		t.dispatch(session.Pause{})
	}
	t.bus.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (t *Tagger) onTimeUpdate(position float64) {
	t.dispatchTime(position)
}

func (t *Tagger) onPlaybackEnded() {
	t.dispatch(session.Pause{})
	t.bus.Publish(api.AudioEvent{Type: api.EventPlaybackEnded})
	t.log.Debug("playback ended")
}

// syncPlaying records whether a voice is sounding. It is ordered after every
// report the clock delivered before it, so a natural end cannot overwrite it.
func (t *Tagger) syncPlaying() {
	t.clock.Observe(func(state api.ClockState, _ float64) {
		if state == api.ClockPlaying {
			t.dispatch(session.Play{})
		} else {
			t.dispatch(session.Pause{})
		}
	})
}

// dispatch applies action to the state and announces the change
func (t *Tagger) dispatch(action session.Action) session.State {
	t.mu.Lock()
	t.state = session.Reduce(t.state, action)
	s := t.state
	t.mu.Unlock()

	t.bus.Publish(api.AudioEvent{Type: api.EventStateChange})
	return s
}

// dispatchTime records a playhead report; it publishes only a time update
func (t *Tagger) dispatchTime(position float64) {
	t.mu.Lock()
	t.state = session.Reduce(t.state, session.TimeUpdate{Time: position})
	t.mu.Unlock()

	t.publishTime(position)
}

func (t *Tagger) publishTime(position float64) {
	t.bus.Publish(api.AudioEvent{Type: api.EventTimeUpdate, Payload: position})
}

func (t *Tagger) publishError(err error) {
	t.bus.Publish(api.AudioEvent{Type: api.EventError, Payload: err})
}

func (t *Tagger) commandFailed(op string, err error) error {
	perr := playerrors.NewPlayerError(op, t.State().FileName, err)
	t.log.Warn("command failed", "op", op, "error", err)
	t.publishError(perr)
	return perr
}

func clamp(position, duration float64) float64 {
	if position < 0 {
		return 0
	}
	if position > duration {
		return duration
	}
	return position
}
