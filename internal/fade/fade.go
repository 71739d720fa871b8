// package fade implements an equal-power two-channel crossfader.
//
// Position 0 plays channel A at full gain, position 1 plays channel B.
// Gains follow the equal-power law, so perceived loudness stays flat
// across the sweep. Moves are either immediate or ramped over a duration;
// a new move always cancels the one in flight.
package fade

import (
	"math"
	"sync"
	"time"
)

// DefaultFrameInterval paces ramp updates when none is configured.
// 16ms tracks a 60fps render loop.
const DefaultFrameInterval = 16 * time.Millisecond

// Sink receives gain updates for one channel. Implementations must accept
// values in [0, 1] and should be cheap; the fader calls them on every
// ramp frame.
type Sink interface {
	SetGain(gain float64)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(gain float64)

func (f SinkFunc) SetGain(gain float64) { f(gain) }

// Gains returns the equal-power gain pair for a fade position. The
// position is clamped to [0, 1]. At every position the squares of the two
// gains sum to one.
func Gains(pos float64) (a, b float64) {
	pos = clamp(pos)
	return math.Cos(pos * math.Pi / 2), math.Sin(pos * math.Pi / 2)
}

func clamp(pos float64) float64 {
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}

// Fader sweeps gain between two sinks. All moves serialize through an
// internal mutex; whichever call arrives last owns the fader, and any
// ramp started earlier stops without applying further frames.
type Fader struct {
	a, b  Sink
	frame time.Duration

	mu     sync.Mutex
	pos    float64
	ramp   chan struct{} // cancels the in-flight ramp; nil when none
	closed bool
}

// NewFader creates a fader at position 0 (full A) and applies the initial
// gains. frameInterval controls ramp granularity; zero or negative picks
// DefaultFrameInterval.
func NewFader(a, b Sink, frameInterval time.Duration) *Fader {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	f := &Fader{a: a, b: b, frame: frameInterval}
	f.applyLocked()
	return f
}

// Set moves the fader immediately and cancels any ramp in flight.
func (f *Fader) Set(pos float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.cancelRampLocked()
	f.pos = clamp(pos)
	f.applyLocked()
}

// RampTo sweeps the fader to target over the given duration, frame by
// frame. A non-positive duration is an immediate Set. Any earlier ramp is
// cancelled; its remaining frames never apply.
func (f *Fader) RampTo(target float64, duration time.Duration) {
	if duration <= 0 {
		f.Set(target)
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.cancelRampLocked()
	start := f.pos
	target = clamp(target)
	cancel := make(chan struct{})
	f.ramp = cancel
	f.mu.Unlock()

	go f.runRamp(start, target, duration, cancel)
}

// Position returns the current fade position.
func (f *Fader) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

// Close cancels any ramp and rejects further moves. The sinks keep their
// last applied gains.
func (f *Fader) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelRampLocked()
	f.closed = true
}

func (f *Fader) runRamp(start, target float64, duration time.Duration, cancel chan struct{}) {
	ticker := time.NewTicker(f.frame)
	defer ticker.Stop()
	begin := time.Now()

	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			frac := float64(now.Sub(begin)) / float64(duration)
			if frac >= 1 {
				f.finishRamp(target, cancel)
				return
			}
			f.mu.Lock()
			if f.ramp != cancel {
				f.mu.Unlock()
				return
			}
			f.pos = start + (target-start)*frac
			f.applyLocked()
			f.mu.Unlock()
		}
	}
}

// finishRamp lands exactly on the target, unless the ramp was superseded
// while the last frame was pending.
func (f *Fader) finishRamp(target float64, cancel chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ramp != cancel {
		return
	}
	f.ramp = nil
	f.pos = target
	f.applyLocked()
}

func (f *Fader) cancelRampLocked() {
	if f.ramp != nil {
		close(f.ramp)
		f.ramp = nil
	}
}

func (f *Fader) applyLocked() {
	ga, gb := Gains(f.pos)
	if f.a != nil {
		f.a.SetGain(ga)
	}
	if f.b != nil {
		f.b.SetGain(gb)
	}
}
