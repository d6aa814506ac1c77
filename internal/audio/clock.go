package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jscyril/wavtagger/api"
	playerrors "github.com/jscyril/wavtagger/pkg/errors"
)

// DefaultRefreshInterval approximates one display refresh
const DefaultRefreshInterval = 16 * time.Millisecond

// Callbacks are invoked by the poll loop, never while the clock lock is held
type Callbacks struct {
	OnTimeUpdate    func(position float64)
	OnPlaybackEnded func()
	OnError         func(err error)
}

// ClockOptions configures a Clock
type ClockOptions struct {
	RefreshInterval time.Duration
	Callbacks       Callbacks
	Logger          *slog.Logger
}

// Clock maps the free-running hardware clock onto the logical track
// position. While playing, position = offset + (hardwareNow - startedAt).
type Clock struct {
	device   Device
	interval time.Duration
	cb       Callbacks
	log      *slog.Logger

	mu         sync.Mutex
	state      api.ClockState
	output     Output
	voice      Voice
	duration   float64
	position   float64 // retained position, or the offset while playing
	startedAt  float64 // hardware reading when the voice started
	lastReport float64
	suspended  api.ClockState // state Suspend was entered from
	gen        uint64         // play generation, bumped whenever a poll loop must die
	initGen    uint64
	stopPoll   context.CancelFunc

	// emitMu serializes callback delivery with transitions. Lock order is
	// emitMu then mu; a transition never completes while a report computed
	// before it is still being delivered.
	emitMu sync.Mutex
}

// NewClock creates an idle clock driving device
func NewClock(device Device, opts ClockOptions) *Clock {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Clock{
		device:   device,
		interval: opts.RefreshInterval,
		cb:       opts.Callbacks,
		log:      opts.Logger.With("component", "clock"),
		state:    api.ClockIdle,
	}
}

// Initialize tears down any previous hardware context and opens a new one
// from raw. The device decode runs without holding the clock lock; if
// another Initialize or Cleanup happens meanwhile, the new output is
// discarded.
func (c *Clock) Initialize(ctx context.Context, raw []byte) error {
	c.emitMu.Lock()
	c.mu.Lock()
	c.initGen++
	gen := c.initGen
	teardownErr := c.teardownLocked()
	c.mu.Unlock()
	c.emitMu.Unlock()

	if teardownErr != nil {
		c.log.Warn("previous output teardown failed", "error", teardownErr)
	}

	out, err := c.device.Open(ctx, raw)
	if err != nil {
		c.log.Error("platform decode failed", "error", err)
		return fmt.Errorf("%w: %w", playerrors.ErrPlaybackInit, err)
	}

	if err := ctx.Err(); err != nil {
		c.closeOutput(out)
		return fmt.Errorf("%w: %w", playerrors.ErrPlaybackInit, err)
	}

	c.emitMu.Lock()
	c.mu.Lock()
	if c.initGen != gen {
		c.mu.Unlock()
		c.emitMu.Unlock()
		c.closeOutput(out)
		return playerrors.ErrInitSuperseded
	}
	c.output = out
	c.duration = out.Duration()
	c.position = 0
	c.lastReport = 0
	c.state = api.ClockReady
	duration := c.duration
	c.mu.Unlock()
	c.emitMu.Unlock()

	c.log.Debug("output initialized", "duration", duration)
	return nil
}

// Play starts a new voice at position, stopping any sounding voice first.
// It is a silent no-op when nothing remains to play after position.
func (c *Clock) Play(position float64) error {
	c.lock()
	defer c.unlock()
	return c.playLocked(position)
}

func (c *Clock) playLocked(position float64) error {
	if c.state == api.ClockIdle || c.output == nil {
		return playerrors.ErrNotInitialized
	}
	if position < 0 {
		position = 0
	}

	var stopErr error
	if c.state == api.ClockPlaying {
		c.position = c.livePositionLocked()
		c.stopPollLocked()
		stopErr = c.stopVoiceLocked()
		c.state = api.ClockPaused
	}

	if c.duration-position <= 0 {
		if c.state == api.ClockSuspended {
			c.state = api.ClockPaused
		}
		return stopErr
	}

	voice, err := c.output.Start(position)
	if err != nil {
		c.position = position
		if c.state == api.ClockSuspended {
			c.state = api.ClockPaused
		}
		c.log.Error("voice start failed", "position", position, "error", err)
		return errors.Join(stopErr, fmt.Errorf("%w: start: %w", playerrors.ErrHardwareVoice, err))
	}

	c.voice = voice
	c.state = api.ClockPlaying
	c.position = position
	c.lastReport = position
	c.startedAt = c.output.Now()
	c.gen++

	ctx, cancel := context.WithCancel(context.Background())
	c.stopPoll = cancel
	go c.runPoll(ctx, c.gen)

	return stopErr
}

// Pause captures the live position, stops the voice and retains the
// position. Pausing while suspended cancels the resume on Release.
func (c *Clock) Pause() error {
	c.lock()
	defer c.unlock()

	switch c.state {
	case api.ClockPlaying:
		c.position = c.livePositionLocked()
		c.stopPollLocked()
		c.state = api.ClockPaused
		return c.stopVoiceLocked()
	case api.ClockSuspended:
		if c.suspended == api.ClockPlaying {
			c.suspended = api.ClockPaused
		}
	}
	return nil
}

// Seek sets the logical position without starting or stopping a voice.
// While playing, the timeline is rebased so reports continue from position.
func (c *Clock) Seek(position float64) {
	c.lock()
	defer c.unlock()

	position = c.clampLocked(position)
	c.position = position
	c.lastReport = position
	if c.state == api.ClockPlaying {
		c.startedAt = c.output.Now()
	}
}

// Suspend hands the position over to an external driver such as a drag
// gesture. Any sounding voice is stopped.
func (c *Clock) Suspend() error {
	c.lock()
	defer c.unlock()

	switch c.state {
	case api.ClockPlaying:
		c.position = c.livePositionLocked()
		c.stopPollLocked()
		c.suspended = api.ClockPlaying
		c.state = api.ClockSuspended
		return c.stopVoiceLocked()
	case api.ClockReady, api.ClockPaused:
		c.suspended = c.state
		c.state = api.ClockSuspended
	}
	return nil
}

// Release ends a suspension. If the clock was playing when suspended, a new
// voice starts at the retained position. It reports whether a voice is
// sounding afterwards.
func (c *Clock) Release() (bool, error) {
	c.lock()
	defer c.unlock()

	if c.state != api.ClockSuspended {
		return c.state == api.ClockPlaying, nil
	}
	if c.suspended == api.ClockPlaying {
		err := c.playLocked(c.position)
		return c.state == api.ClockPlaying, err
	}
	c.state = c.suspended
	return false, nil
}

// Observe calls fn with the current state and position. Calls are ordered
// with callback delivery: every report made before Observe has been
// delivered, and none made after it has started. fn must not call the clock.
func (c *Clock) Observe(fn func(state api.ClockState, position float64)) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	state := c.state
	pos := c.position
	if state == api.ClockPlaying {
		pos = c.livePositionLocked()
	}
	c.mu.Unlock()

	fn(state, pos)
}

// Tick runs one poll step synchronously. It reports whether the clock is
// still playing afterwards.
func (c *Clock) Tick() bool {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.poll(gen)
}

// Cleanup stops any voice and releases the hardware context. It is safe to
// call in any state, any number of times.
func (c *Clock) Cleanup() error {
	c.lock()
	defer c.unlock()

	c.initGen++
	return c.teardownLocked()
}

// State returns the current clock state
func (c *Clock) State() api.ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the live position while playing, the retained one otherwise
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == api.ClockPlaying {
		return c.livePositionLocked()
	}
	return c.position
}

// Duration returns the loaded buffer duration in seconds
func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// lock takes both locks for a transition
func (c *Clock) lock() {
	c.emitMu.Lock()
	c.mu.Lock()
}

func (c *Clock) unlock() {
	c.mu.Unlock()
	c.emitMu.Unlock()
}

// runPoll reschedules itself once per refresh until its generation dies
func (c *Clock) runPoll(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.poll(gen) {
				return
			}
		}
	}
}

// poll reports the current position for generation gen and detects the
// natural end of the track
func (c *Clock) poll(gen uint64) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.state != api.ClockPlaying || gen != c.gen {
		c.mu.Unlock()
		return false
	}

	pos := c.livePositionLocked()
	c.lastReport = pos

	if pos < c.duration {
		c.mu.Unlock()
		c.emitTime(pos)
		return true
	}

	// Natural end: only this branch moves Playing to Paused at the end, and
	// it runs under the lock, so a concurrent Pause cannot double-report.
	c.stopPollLocked()
	stopErr := c.stopVoiceLocked()
	c.position = c.duration
	c.state = api.ClockPaused
	c.gen++
	end := c.duration
	c.mu.Unlock()

	if stopErr != nil && c.cb.OnError != nil {
		c.cb.OnError(stopErr)
	}
	c.emitTime(end)
	if c.cb.OnPlaybackEnded != nil {
		c.cb.OnPlaybackEnded()
	}
	return false
}

func (c *Clock) emitTime(pos float64) {
	if c.cb.OnTimeUpdate != nil {
		c.cb.OnTimeUpdate(pos)
	}
}

// livePositionLocked computes the playing position, clamped to the buffer
// and never below the last report
func (c *Clock) livePositionLocked() float64 {
	pos := c.position + (c.output.Now() - c.startedAt)
	if pos > c.duration {
		pos = c.duration
	}
	if pos < c.lastReport {
		pos = c.lastReport
	}
	return pos
}

func (c *Clock) clampLocked(position float64) float64 {
	if position < 0 {
		return 0
	}
	if c.output != nil && position > c.duration {
		return c.duration
	}
	return position
}

// stopPollLocked cancels the poll loop; redundant calls are harmless
func (c *Clock) stopPollLocked() {
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
	c.gen++
}

// stopVoiceLocked stops and forgets the current voice. The voice is dropped
// even when Stop fails so no Playing state outlives it.
func (c *Clock) stopVoiceLocked() error {
	v := c.voice
	c.voice = nil
	if v == nil {
		return nil
	}
	if err := v.Stop(); err != nil {
		c.log.Error("voice stop failed", "state", c.state.String(), "position", c.position, "error", err)
		return fmt.Errorf("%w: stop: %w", playerrors.ErrHardwareVoice, err)
	}
	return nil
}

// teardownLocked returns the clock to Idle and releases all hardware
func (c *Clock) teardownLocked() error {
	c.stopPollLocked()
	err := c.stopVoiceLocked()
	if c.output != nil {
		if cerr := c.output.Close(); cerr != nil {
			c.log.Error("output close failed", "error", cerr)
			err = errors.Join(err, fmt.Errorf("%w: close: %w", playerrors.ErrHardwareVoice, cerr))
		}
		c.output = nil
	}
	c.state = api.ClockIdle
	c.duration = 0
	c.position = 0
	c.lastReport = 0
	c.suspended = api.ClockIdle
	return err
}

func (c *Clock) closeOutput(out Output) {
	if err := out.Close(); err != nil {
		c.log.Warn("discarded output close failed", "error", err)
	}
}
