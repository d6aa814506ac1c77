package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// DefaultBufferSize is the speaker buffer used when none is configured
const DefaultBufferSize = 100 * time.Millisecond

// SpeakerDevice plays through the beep speaker. The speaker is a process-wide
// resource, so only one Output from this device should be open at a time;
// the Clock guarantees that by closing the previous output before opening.
type SpeakerDevice struct {
	BufferSize time.Duration
}

// NewSpeakerDevice creates a speaker-backed device
func NewSpeakerDevice(bufferSize time.Duration) *SpeakerDevice {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &SpeakerDevice{BufferSize: bufferSize}
}

// Open decodes raw with the beep WAV decoder and initializes the speaker at
// the file's sample rate
func (d *SpeakerDevice) Open(ctx context.Context, raw []byte) (Output, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	if err := ctx.Err(); err != nil {
		streamer.Close()
		return nil, err
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(d.BufferSize)); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("speaker init: %w", err)
	}

	return &speakerOutput{
		streamer: streamer,
		format:   format,
		opened:   time.Now(),
	}, nil
}

type speakerOutput struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	opened   time.Time

	closeOnce sync.Once
	closeErr  error
}

func (o *speakerOutput) Duration() float64 {
	return o.format.SampleRate.D(o.streamer.Len()).Seconds()
}

// Now uses the monotonic wall clock; the speaker consumes samples in real time
func (o *speakerOutput) Now() float64 {
	return time.Since(o.opened).Seconds()
}

func (o *speakerOutput) Start(offset float64) (Voice, error) {
	pos := o.format.SampleRate.N(time.Duration(offset * float64(time.Second)))
	if pos < 0 {
		pos = 0
	}
	if n := o.streamer.Len(); pos > n {
		pos = n
	}

	speaker.Lock()
	err := o.streamer.Seek(pos)
	speaker.Unlock()
	if err != nil {
		return nil, fmt.Errorf("seek to frame %d: %w", pos, err)
	}

	ctrl := &beep.Ctrl{Streamer: o.streamer}
	speaker.Play(ctrl)
	return &speakerVoice{ctrl: ctrl}, nil
}

func (o *speakerOutput) Close() error {
	o.closeOnce.Do(func() {
		speaker.Clear()
		speaker.Close()
		o.closeErr = o.streamer.Close()
	})
	return o.closeErr
}

type speakerVoice struct {
	ctrl *beep.Ctrl
	once sync.Once
}

// Stop detaches the streamer; the speaker mixer drops a drained Ctrl
func (v *speakerVoice) Stop() error {
	v.once.Do(func() {
		speaker.Lock()
		v.ctrl.Streamer = nil
		speaker.Unlock()
	})
	return nil
}
