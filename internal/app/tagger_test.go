package app

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jscyril/wavtagger/api"
	"github.com/jscyril/wavtagger/internal/audio"
	playerrors "github.com/jscyril/wavtagger/pkg/errors"
)

type stubDevice struct {
	mu      sync.Mutex
	openErr error
	outputs []*stubOutput
}

func (d *stubDevice) Open(ctx context.Context, raw []byte) (audio.Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	dec, err := audio.Decode(raw)
	if err != nil {
		return nil, err
	}
	out := &stubOutput{duration: dec.Duration}
	d.outputs = append(d.outputs, out)
	return out, nil
}

func (d *stubDevice) last() *stubOutput {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputs[len(d.outputs)-1]
}

type stubOutput struct {
	mu       sync.Mutex
	duration float64
	now      float64
	voices   []*stubVoice
	closed   int
}

func (o *stubOutput) advance(seconds float64) {
	o.mu.Lock()
	o.now += seconds
	o.mu.Unlock()
}

func (o *stubOutput) Duration() float64 { return o.duration }

func (o *stubOutput) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *stubOutput) Start(offset float64) (audio.Voice, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := &stubVoice{offset: offset}
	o.voices = append(o.voices, v)
	return v, nil
}

func (o *stubOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
	return nil
}

func (o *stubOutput) voiceList() []*stubVoice {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*stubVoice(nil), o.voices...)
}

type stubVoice struct {
	offset  float64
	stopped int
}

func (v *stubVoice) Stop() error {
	v.stopped++
	return nil
}

// wavBytes builds a 16-bit mono PCM file of the given length at 8 kHz
func wavBytes(seconds float64) []byte {
	const rate = 8000
	frames := int(seconds * rate)
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(math.Sin(float64(i)/10) * 16000)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	buf := make([]byte, 0, 44+len(pcm))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(pcm)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, rate)
	buf = binary.LittleEndian.AppendUint32(buf, rate*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(pcm)))
	return append(buf, pcm...)
}

func newTestTagger(t *testing.T) (*Tagger, *stubDevice) {
	t.Helper()
	dev := &stubDevice{}
	tg := New(Options{
		Device:          dev,
		ExportDir:       t.TempDir(),
		RefreshInterval: time.Hour,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(func() { tg.Close() })
	return tg, dev
}

func loadedTagger(t *testing.T) (*Tagger, *stubDevice) {
	t.Helper()
	tg, dev := newTestTagger(t)
	if err := tg.Load(context.Background(), "take1.wav", wavBytes(2)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return tg, dev
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLoadRejectsUnsupportedFile(t *testing.T) {
	tg, _ := newTestTagger(t)

	err := tg.Load(context.Background(), "notes.mp3", wavBytes(1))
	if !errors.Is(err, playerrors.ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	if s := tg.State(); s.Loaded() || s.Loading {
		t.Errorf("state should be untouched, got %+v", s)
	}
}

func TestLoadInstallsSession(t *testing.T) {
	tg, _ := newTestTagger(t)
	loaded := tg.Events().Subscribe(api.EventFileLoaded)

	if err := tg.Load(context.Background(), "take1.wav", wavBytes(2)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := tg.State()
	if !s.Loaded() || s.Loading {
		t.Fatalf("expected loaded state, got %+v", s)
	}
	if s.Title != "take1" || s.FileName != "take1.wav" {
		t.Errorf("unexpected title/name %q/%q", s.Title, s.FileName)
	}
	if len(s.SessionID) != 36 {
		t.Errorf("expected uuid session id, got %q", s.SessionID)
	}
	if !almostEqual(s.Duration(), 2) {
		t.Errorf("expected duration 2, got %v", s.Duration())
	}
	if tg.ClockState() != api.ClockReady {
		t.Errorf("expected clock ready, got %v", tg.ClockState())
	}

	select {
	case <-loaded:
	default:
		t.Error("expected EventFileLoaded")
	}
}

func TestLoadFailureKeepsPreviousSession(t *testing.T) {
	tg, _ := loadedTagger(t)
	tg.Seek(0.5)
	tg.ToggleTag()
	tg.Seek(1)
	tg.ToggleTag()
	before := tg.State()

	err := tg.Load(context.Background(), "broken.wav", []byte("not a wav file at all"))
	if !errors.Is(err, playerrors.ErrInvalidContainer) {
		t.Fatalf("expected ErrInvalidContainer, got %v", err)
	}

	after := tg.State()
	if after.Loading {
		t.Error("loading flag should be cleared")
	}
	if after.SessionID != before.SessionID || after.FileName != "take1.wav" {
		t.Errorf("previous session replaced: %+v", after)
	}
	if len(after.Tags) != 1 {
		t.Errorf("tags lost: %v", after.Tags)
	}
}

func TestLoadPlaybackInitFailure(t *testing.T) {
	tg, dev := newTestTagger(t)
	dev.openErr = errors.New("no audio device")

	err := tg.Load(context.Background(), "take1.wav", wavBytes(1))
	if !errors.Is(err, playerrors.ErrPlaybackInit) {
		t.Fatalf("expected ErrPlaybackInit, got %v", err)
	}
	if tg.State().Loaded() {
		t.Error("no recording should be installed")
	}
	if tg.ClockState() != api.ClockIdle {
		t.Errorf("expected idle clock, got %v", tg.ClockState())
	}
}

func TestPlayPauseTracksClock(t *testing.T) {
	tg, dev := loadedTagger(t)
	out := dev.last()

	if err := tg.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !tg.State().IsPlaying {
		t.Fatal("expected playing state")
	}

	out.advance(0.5)
	tg.clock.Tick()
	if got := tg.State().CurrentTime; !almostEqual(got, 0.5) {
		t.Errorf("expected 0.5 after tick, got %v", got)
	}

	out.advance(0.25)
	if err := tg.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	s := tg.State()
	if s.IsPlaying {
		t.Error("expected paused state")
	}
	if !almostEqual(s.CurrentTime, 0.75) {
		t.Errorf("expected 0.75 after pause, got %v", s.CurrentTime)
	}
	if v := out.voiceList(); len(v) != 1 || v[0].stopped == 0 {
		t.Errorf("expected the voice to be stopped, got %+v", v)
	}
}

func TestPlayAtEndRestartsFromStartPosition(t *testing.T) {
	tg, dev := loadedTagger(t)

	tg.SetStart(0.5)
	tg.Seek(2)
	if err := tg.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	voices := dev.last().voiceList()
	if len(voices) != 1 || !almostEqual(voices[0].offset, 0.5) {
		t.Fatalf("expected a voice at 0.5, got %+v", voices)
	}
	if got := tg.State().CurrentTime; !almostEqual(got, 0.5) {
		t.Errorf("expected current time 0.5, got %v", got)
	}
}

func TestNaturalEndPausesAtDuration(t *testing.T) {
	tg, dev := loadedTagger(t)
	ended := tg.Events().Subscribe(api.EventPlaybackEnded)

	tg.Play()
	dev.last().advance(3)
	if tg.clock.Tick() {
		t.Error("clock should stop at the end")
	}

	s := tg.State()
	if s.IsPlaying {
		t.Error("expected paused after natural end")
	}
	if !almostEqual(s.CurrentTime, 2) {
		t.Errorf("expected position at duration, got %v", s.CurrentTime)
	}

	select {
	case <-ended:
	default:
		t.Error("expected EventPlaybackEnded")
	}
}

func TestSeekClamps(t *testing.T) {
	tg, _ := loadedTagger(t)

	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0.75, 0.75},
		{10, 2},
	}
	for _, tt := range tests {
		if err := tg.Seek(tt.in); err != nil {
			t.Fatalf("Seek(%v) failed: %v", tt.in, err)
		}
		if got := tg.State().CurrentTime; !almostEqual(got, tt.want) {
			t.Errorf("Seek(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestSeekWhilePlayingRestartsVoice(t *testing.T) {
	tg, dev := loadedTagger(t)

	tg.Play()
	if err := tg.Seek(1.2); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	voices := dev.last().voiceList()
	if len(voices) != 2 {
		t.Fatalf("expected two voices, got %d", len(voices))
	}
	if voices[0].stopped == 0 {
		t.Error("previous voice should be stopped")
	}
	if !almostEqual(voices[1].offset, 1.2) {
		t.Errorf("expected new voice at 1.2, got %v", voices[1].offset)
	}
	if !tg.State().IsPlaying {
		t.Error("should still be playing")
	}
}

func TestDragWhilePlayingResumesAtDropPosition(t *testing.T) {
	tg, dev := loadedTagger(t)
	out := dev.last()

	tg.Play()
	if err := tg.DragStart(); err != nil {
		t.Fatalf("DragStart failed: %v", err)
	}
	if tg.ClockState() != api.ClockSuspended {
		t.Fatalf("expected suspended clock, got %v", tg.ClockState())
	}
	if s := tg.State(); !s.IsDragging || !s.IsPlaying {
		t.Errorf("expected dragging while playing, got %+v", s)
	}

	tg.DragMove(1.5)
	if got := tg.State().CurrentTime; !almostEqual(got, 1.5) {
		t.Errorf("expected 1.5 during drag, got %v", got)
	}

	if err := tg.DragEnd(); err != nil {
		t.Fatalf("DragEnd failed: %v", err)
	}
	voices := out.voiceList()
	if len(voices) != 2 || !almostEqual(voices[1].offset, 1.5) {
		t.Fatalf("expected resume at 1.5, got %+v", voices)
	}
	if s := tg.State(); s.IsDragging || !s.IsPlaying {
		t.Errorf("expected playing after drag, got %+v", s)
	}
}

func TestDragWhilePausedStaysPaused(t *testing.T) {
	tg, dev := loadedTagger(t)

	tg.DragStart()
	tg.DragMove(1)
	tg.DragEnd()

	if n := len(dev.last().voiceList()); n != 0 {
		t.Errorf("no voice should start, got %d", n)
	}
	if tg.ClockState() != api.ClockReady {
		t.Errorf("expected ready clock, got %v", tg.ClockState())
	}
	if s := tg.State(); s.IsPlaying || !almostEqual(s.CurrentTime, 1) {
		t.Errorf("unexpected state %+v", s)
	}
}

func TestToggleTagAndExport(t *testing.T) {
	tg, _ := loadedTagger(t)

	tg.Seek(0.5)
	tg.ToggleTag()
	if !tg.State().HasPending() {
		t.Fatal("expected pending marker")
	}
	tg.Seek(1.25)
	tg.ToggleTag()

	s := tg.State()
	if s.HasPending() || len(s.Tags) != 1 {
		t.Fatalf("expected one committed tag, got %+v", s.Tags)
	}
	if s.Tags[0] != (api.Tag{Start: 0.5, End: 1.25}) {
		t.Errorf("unexpected tag %v", s.Tags[0])
	}

	doc, err := tg.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	want := "[\n  [\n    0.5,\n    1.25\n  ]\n]"
	if string(doc) != want {
		t.Errorf("export mismatch:\n%s\nwant:\n%s", doc, want)
	}

	tg.RemoveTag(5)
	tg.RemoveTag(0)
	if n := len(tg.State().Tags); n != 0 {
		t.Errorf("expected no tags, got %d", n)
	}
}

func TestClearPendingTag(t *testing.T) {
	tg, _ := loadedTagger(t)

	tg.ToggleTag()
	tg.ClearPendingTag()
	if tg.State().HasPending() {
		t.Error("pending marker should be cleared")
	}
}

func TestExportToWritesFile(t *testing.T) {
	tg, _ := loadedTagger(t)
	tg.Seek(0.25)
	tg.ToggleTag()
	tg.Seek(0.5)
	tg.ToggleTag()

	dir := t.TempDir()
	path, err := tg.ExportTo(dir)
	if err != nil {
		t.Fatalf("ExportTo failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected file in %s, got %s", dir, path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "take1-") || !strings.HasSuffix(base, ".tags.json") {
		t.Errorf("unexpected file name %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[\n  [\n    0.25,\n    0.5\n  ]\n]\n" {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestEnvelopeFollowsWidth(t *testing.T) {
	tg, _ := newTestTagger(t)
	if env := tg.Envelope(); env != nil {
		t.Errorf("expected nil envelope before load, got %d columns", len(env))
	}

	tg.Load(context.Background(), "take1.wav", wavBytes(2))
	tg.Resize(3600)

	env := tg.Envelope()
	if len(env) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(env))
	}
	if again := tg.Envelope(); &again[0] != &env[0] {
		t.Error("envelope should be reused for an unchanged width")
	}

	tg.Resize(7200)
	if n := len(tg.Envelope()); n != 4 {
		t.Errorf("expected 4 columns after resize, got %d", n)
	}
}

func TestCommandsWithoutRecording(t *testing.T) {
	tg, _ := newTestTagger(t)

	commands := map[string]func() error{
		"play":   tg.Play,
		"pause":  tg.Pause,
		"seek":   func() error { return tg.Seek(1) },
		"start":  func() error { return tg.SetStart(1) },
		"drag":   tg.DragStart,
		"tag":    tg.ToggleTag,
		"export": func() error { _, err := tg.ExportTo(""); return err },
	}
	for name, cmd := range commands {
		t.Run(name, func(t *testing.T) {
			if err := cmd(); !errors.Is(err, playerrors.ErrNoRecording) {
				t.Errorf("expected ErrNoRecording, got %v", err)
			}
		})
	}
}

func TestCloseReleasesOutput(t *testing.T) {
	tg, dev := loadedTagger(t)
	events := tg.Events().SubscribeAll()

	tg.Play()
	if err := tg.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	out := dev.last()
	if out.closed != 1 {
		t.Errorf("expected output closed once, got %d", out.closed)
	}
	if tg.State().IsPlaying {
		t.Error("expected paused state after close")
	}
	for range events {
	}
}

func TestSeekToEndWhilePlayingPauses(t *testing.T) {
	tg, dev := loadedTagger(t)

	tg.Play()
	if err := tg.Seek(5); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	s := tg.State()
	if s.IsPlaying {
		t.Error("session still playing after seeking to the end")
	}
	if !almostEqual(s.CurrentTime, 2) {
		t.Errorf("expected position at duration, got %v", s.CurrentTime)
	}
	if tg.ClockState() != api.ClockPaused {
		t.Errorf("expected paused clock, got %v", tg.ClockState())
	}
	for i, v := range dev.last().voiceList() {
		if v.stopped == 0 {
			t.Errorf("voice %d still sounding", i)
		}
	}

	if err := tg.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !tg.State().IsPlaying {
		t.Error("a single Play should restart playback")
	}
}

func TestPauseAndSeekWinOverInFlightReport(t *testing.T) {
	tg, dev := loadedTagger(t)
	out := dev.last()

	tg.Play()
	out.advance(1.5)

	// Hold the session so the report below blocks while being delivered.
	tg.mu.Lock()
	go tg.clock.Tick()
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		tg.Pause()
		tg.Seek(0)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	tg.mu.Unlock()
	<-done

	if got := tg.State().CurrentTime; got != 0 {
		t.Fatalf("stale report overwrote the seek: CurrentTime = %v", got)
	}

	tg.Play()
	voices := out.voiceList()
	if last := voices[len(voices)-1]; last.offset != 0 {
		t.Errorf("expected playback to resume at 0, got %v", last.offset)
	}
}

func TestPlayRefusedWhileDragging(t *testing.T) {
	tg, dev := loadedTagger(t)

	tg.Play()
	tg.DragStart()
	err := tg.Play()
	if !errors.Is(err, playerrors.ErrDragInProgress) {
		t.Fatalf("expected ErrDragInProgress, got %v", err)
	}
	if n := len(dev.last().voiceList()); n != 1 {
		t.Errorf("no voice should start during a drag, got %d voices", n)
	}
	if tg.ClockState() != api.ClockSuspended {
		t.Errorf("expected suspended clock, got %v", tg.ClockState())
	}

	tg.DragMove(1)
	tg.DragEnd()
	voices := dev.last().voiceList()
	if len(voices) != 2 || !almostEqual(voices[1].offset, 1) {
		t.Errorf("expected resume at the drop position, got %+v", voices)
	}
}

func TestPlaybackInitFailurePausesPreviousSession(t *testing.T) {
	tg, dev := loadedTagger(t)
	tg.ToggleTag()
	tg.Seek(1)
	tg.ToggleTag()
	tg.Play()
	before := tg.State()

	dev.mu.Lock()
	dev.openErr = errors.New("device busy")
	dev.mu.Unlock()

	err := tg.Load(context.Background(), "take2.wav", wavBytes(1))
	if !errors.Is(err, playerrors.ErrPlaybackInit) {
		t.Fatalf("expected ErrPlaybackInit, got %v", err)
	}

	after := tg.State()
	if after.IsPlaying {
		t.Error("the torn-down session should no longer be playing")
	}
	if after.Loading {
		t.Error("loading flag should be cleared")
	}
	if after.SessionID != before.SessionID || after.FileName != "take1.wav" || len(after.Tags) != 1 {
		t.Errorf("previous session should be kept, got %+v", after)
	}
	if tg.ClockState() != api.ClockIdle {
		t.Errorf("expected idle clock, got %v", tg.ClockState())
	}
}
