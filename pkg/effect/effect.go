// Package effect defines the mixer's audio-effect contract and ships
// two built-in effects: EffectGain, a smoothed gain stage used as the
// mixer's terminal gain, and EffectCallback, a thin adapter for
// host-supplied processing functions.
package effect

import "math"

// StereoBlock is a fixed pair of channel buffers, left then right,
// both the same length within one ProcessAudio call.
type StereoBlock [2][]float32

// ProcessInfo carries the per-call context an effect needs beyond the
// sample buffer itself.
type ProcessInfo struct {
	SampleRate                       float32
	TimeInFramesSincePlaybackStarted int64
	UserData                         any
}

// Parameter is a single named, clamped knob an effect exposes. Value
// is the live value; Min/Max bound it.
type Parameter struct {
	Name  string
	Min   float32
	Max   float32
	Value float32
}

// Clamp pins v into [p.Min, p.Max].
func (p *Parameter) Clamp(v float32) float32 {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

// Set clamps and stores v.
func (p *Parameter) Set(v float32) {
	p.Value = p.Clamp(v)
}

// IAudioEffect is the interface every effect in the mixer's chain
// (per-channel or master) implements.
type IAudioEffect interface {
	// PrepareToPlay is called exactly once before the first
	// ProcessAudio call, with the mixer's sample rate, the maximum
	// frames any single ProcessAudio call will carry, and the channel
	// count (always 2 in this mixer, but effects shouldn't hardcode it).
	PrepareToPlay(sampleRate float32, maxFrames int, numChannels int)

	// ProcessAudio processes buffer in place.
	ProcessAudio(buffer *StereoBlock, info ProcessInfo)

	// Parameters returns the effect's live parameter set. The default
	// (for effects with none) is an empty slice.
	Parameters() []*Parameter
}

// MaxFramesForEffects bounds how many frames a single ProcessAudio
// call may be given; the mixer splits larger blocks into sub-blocks of
// at most this size before calling into the effect chain.
const MaxFramesForEffects = 512

// gainSmoothTimeConstant is the one-pole smoother's time constant in
// seconds for EffectGain.
const gainSmoothTimeConstant = 0.015

// EffectGain is a one-parameter effect ("Gain", [0,1], default 1) that
// smooths toward its target with an exponential one-pole filter rather
// than jumping, to avoid zipper noise on parameter changes.
type EffectGain struct {
	gain      Parameter
	current   float32
	expFactor float32
}

// NewEffectGain creates an EffectGain at unity gain.
func NewEffectGain() *EffectGain {
	g := &EffectGain{
		gain:    Parameter{Name: "Gain", Min: 0, Max: 1, Value: 1},
		current: 1,
	}
	return g
}

func (g *EffectGain) PrepareToPlay(sampleRate float32, _ int, _ int) {
	g.expFactor = float32(1 - math.Exp(-1/(gainSmoothTimeConstant*float64(sampleRate))))
}

func (g *EffectGain) ProcessAudio(buffer *StereoBlock, _ ProcessInfo) {
	target := g.gain.Value
	for i := range buffer[0] {
		g.current += (target - g.current) * g.expFactor
		buffer[0][i] *= g.current
		buffer[1][i] *= g.current
	}
}

func (g *EffectGain) Parameters() []*Parameter {
	return []*Parameter{&g.gain}
}

// SetGain sets the target gain, clamped to [0,1]. The audible value
// approaches it over the smoother's time constant rather than jumping.
func (g *EffectGain) SetGain(v float32) {
	g.gain.Set(v)
}

// Gain returns the current target gain (not the smoothed value).
func (g *EffectGain) Gain() float32 {
	return g.gain.Value
}

// EffectCallbackFunc is a host-supplied processing function, given the
// same buffer and info an IAudioEffect would see.
type EffectCallbackFunc func(buffer *StereoBlock, info ProcessInfo)

// EffectCallback adapts an EffectCallbackFunc (plus opaque user data
// threaded through ProcessInfo) into an IAudioEffect, for hosts that
// want to inject custom processing without defining a type.
type EffectCallback struct {
	fn       EffectCallbackFunc
	userData any
}

// NewEffectCallback wraps fn, threading userData into every
// ProcessInfo.UserData it receives.
func NewEffectCallback(fn EffectCallbackFunc, userData any) *EffectCallback {
	return &EffectCallback{fn: fn, userData: userData}
}

func (c *EffectCallback) PrepareToPlay(float32, int, int) {}

func (c *EffectCallback) ProcessAudio(buffer *StereoBlock, info ProcessInfo) {
	info.UserData = c.userData
	c.fn(buffer, info)
}

func (c *EffectCallback) Parameters() []*Parameter { return nil }
