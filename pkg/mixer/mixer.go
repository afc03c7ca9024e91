// Package mixer implements the top-level engine: a fixed pool of
// Channels, a master effect chain terminated by a gain stage, and the
// glue that drives both from a Sink's write callback (or, in loopback
// mode, from a direct Generate/LoopbackMix call with no backend at all).
package mixer

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AuburnSounds/game-mixer/pkg/channel"
	"github.com/AuburnSounds/game-mixer/pkg/effect"
	"github.com/AuburnSounds/game-mixer/pkg/sink"
	"github.com/AuburnSounds/game-mixer/pkg/source"
)

// Mixer owns the channel pool, the master effect chain and (unless
// running in loopback mode) a Sink backend.
type Mixer struct {
	options    MixerOptions
	sampleRate float32

	channels      []*channel.Channel
	channelsMutex sync.Mutex

	masterEffects      []effect.IAudioEffect
	masterEffectsMutex sync.Mutex
	terminalGain       *effect.EffectGain

	backend sink.Sink

	timeSincePlaybackBegan atomic.Int64

	scratch [2][]float32

	// errorMutex guards errored/lastError, which can be written from the
	// sink's own thread (a fatal stream error reported mid-playback) as
	// well as from the command thread (a construction-time failure).
	errorMutex sync.Mutex
	errored    bool
	lastError  string
}

// New constructs a Mixer. backend is ignored (and may be nil) when
// options.IsLoopback is true; otherwise it must be non-nil and is
// opened immediately. Construction errors latch the mixer into an
// errored state rather than returning one: every subsequent command
// becomes a no-op and IsErrored/LastErrorString report what happened.
func New(options MixerOptions, backend sink.Sink) *Mixer {
	options = options.withDefaults()

	m := &Mixer{options: options}
	m.channels = make([]*channel.Channel, options.NumChannels)
	for i := range m.channels {
		m.channels[i] = &channel.Channel{}
	}

	m.terminalGain = effect.NewEffectGain()
	m.masterEffects = []effect.IAudioEffect{m.terminalGain}

	if options.IsLoopback {
		m.sampleRate = options.SampleRate
	} else {
		if backend == nil {
			m.fail(ErrNoOutputDevice, "")
			return m
		}
		actualRate, err := backend.Open(options.SampleRate, m.writeCallback, m.reportStreamError)
		if err != nil {
			m.fail(ErrDeviceOpenFailed, err.Error())
			return m
		}
		m.backend = backend
		m.sampleRate = actualRate
	}

	m.terminalGain.PrepareToPlay(m.sampleRate, MaxFramesForEffects, 2)
	return m
}

func (m *Mixer) fail(kind error, detail string) {
	m.errorMutex.Lock()
	defer m.errorMutex.Unlock()
	m.errored = true
	if detail == "" {
		m.lastError = kind.Error()
	} else {
		m.lastError = fmt.Sprintf("%s: %s", kind.Error(), detail)
	}
}

// reportStreamError is passed to the backend as its sink.ErrorReporter.
// Per the mixer's error-handling contract, any sink error reaching this
// point (as opposed to a transient underflow, which the sink never
// reports this way) is fatal: the mixer latches ErrStreamUnrecoverable
// and every subsequent command becomes a no-op.
func (m *Mixer) reportStreamError(err error) {
	m.fail(ErrStreamUnrecoverable, err.Error())
}

func (m *Mixer) isErrored() bool {
	m.errorMutex.Lock()
	defer m.errorMutex.Unlock()
	return m.errored
}

// IsErrored reports whether construction failed, or a fatal stream
// error arrived later, leaving the mixer a no-op shell.
func (m *Mixer) IsErrored() bool { return m.isErrored() }

// LastErrorString is the stored message from the failure that put the
// mixer into its errored state, or "" if it never errored.
func (m *Mixer) LastErrorString() string {
	m.errorMutex.Lock()
	defer m.errorMutex.Unlock()
	return m.lastError
}

// SampleRate is the mixer's latched output rate (the sink's actual
// rate in device mode, or the requested rate in loopback mode).
func (m *Mixer) SampleRate() float32 { return m.sampleRate }

// NumChannels is the size of the channel pool.
func (m *Mixer) NumChannels() int { return len(m.channels) }

// Play starts src on the resolved channel. A resolution of
// AnyMixerChannel that finds no idle channel drops the command
// silently, matching the "voice stealing is not this mixer's job"
// scope decision.
func (m *Mixer) Play(src *source.AudioSource, opts PlayOptions) {
	if m.isErrored() {
		return
	}

	m.channelsMutex.Lock()
	idx, ok := m.resolveChannel(opts.Channel)
	if !ok {
		m.channelsMutex.Unlock()
		return
	}

	volL, volR := equalPowerPan(opts.Volume, opts.Pan)
	frameOffset := computeFrameOffset(opts.DelayBeforePlay, opts.StartTimeSecs, m.sampleRate)
	loopCount := loopCountSentinel(opts.LoopCount)

	m.channels[idx].StartPlaying(src, volL, volR, frameOffset, loopCount,
		opts.CrossFadeInSecs, opts.CrossFadeOutSecs, opts.FadeInSecs)
	m.channelsMutex.Unlock()

	src.PrepareToPlay(m.sampleRate)
}

// PlaySimultaneously starts every (source, opts) pair under a single
// channelsMutex acquisition, so all of them begin on the same audio
// callback block — sample-accurate joint onset.
func (m *Mixer) PlaySimultaneously(sources []*source.AudioSource, opts []PlayOptions) {
	if m.isErrored() || len(sources) != len(opts) {
		return
	}

	m.channelsMutex.Lock()
	for i, src := range sources {
		idx, ok := m.resolveChannel(opts[i].Channel)
		if !ok {
			continue
		}
		volL, volR := equalPowerPan(opts[i].Volume, opts[i].Pan)
		frameOffset := computeFrameOffset(opts[i].DelayBeforePlay, opts[i].StartTimeSecs, m.sampleRate)
		loopCount := loopCountSentinel(opts[i].LoopCount)
		m.channels[idx].StartPlaying(src, volL, volR, frameOffset, loopCount,
			opts[i].CrossFadeInSecs, opts[i].CrossFadeOutSecs, opts[i].FadeInSecs)
	}
	m.channelsMutex.Unlock()

	for _, src := range sources {
		src.PrepareToPlay(m.sampleRate)
	}
}

// Stop fades out (immediately, if fadeOutSecs is zero) every slot on
// channel ch. Idempotent.
func (m *Mixer) Stop(ch int32, fadeOutSecs float32) {
	if m.isErrored() {
		return
	}
	if ch < 0 || int(ch) >= len(m.channels) {
		panic("mixer: channel out of range")
	}
	m.channelsMutex.Lock()
	m.channels[ch].Stop(fadeOutSecs)
	m.channelsMutex.Unlock()
}

// SetMasterVolume forwards to the terminal gain effect's sole
// parameter; the audible change is smoothed over the gain's time
// constant, not instantaneous.
func (m *Mixer) SetMasterVolume(x float32) {
	if m.isErrored() {
		return
	}
	m.masterEffectsMutex.Lock()
	m.terminalGain.SetGain(x)
	m.masterEffectsMutex.Unlock()
}

// AddMasterEffect appends e to the master chain, which always runs
// before the terminal gain effect.
func (m *Mixer) AddMasterEffect(e effect.IAudioEffect) {
	if m.isErrored() {
		return
	}
	e.PrepareToPlay(m.sampleRate, MaxFramesForEffects, 2)

	m.masterEffectsMutex.Lock()
	n := len(m.masterEffects)
	m.masterEffects = append(m.masterEffects[:n-1], e, m.terminalGain)
	m.masterEffectsMutex.Unlock()
}

// Generate synchronously renders frames of audio into dst, overwriting
// whatever it already contained, bypassing any Sink entirely. It is
// always safe to call regardless of whether the mixer was constructed
// in loopback mode — there simply won't be any other caller of
// writeCallback in that mode. Requests longer than MaxInternalBuffering
// are rendered as consecutive blocks of at most that many frames.
func (m *Mixer) Generate(dst [2][]float32, frames int) {
	for start := 0; start < frames; start += MaxInternalBuffering {
		n := min(MaxInternalBuffering, frames-start)
		m.writeCallback([2][]float32{dst[0][start:], dst[1][start:]}, n)
	}
}

// LoopbackMix synchronously renders frames of audio and adds it into
// dst, leaving whatever dst already held intact rather than
// overwriting it — for a caller mixing this mixer's output together
// with other audio sources into a shared buffer.
func (m *Mixer) LoopbackMix(dst [2][]float32, frames int) {
	out := m.mixBlock(frames)
	for i := 0; i < frames; i++ {
		dst[0][i] += out[0][i]
		dst[1][i] += out[1][i]
	}
}

// PlaybackTimeInSeconds is the mixer's current playback clock,
// compensated for the backend's reported output latency: frames
// already handed to the sink haven't reached the speaker yet. It can
// be negative in the first fraction of a second of playback, once
// latency compensation is subtracted from a small elapsed time.
func (m *Mixer) PlaybackTimeInSeconds() float64 {
	if m.sampleRate <= 0 {
		return 0
	}
	elapsed := float64(m.timeSincePlaybackBegan.Load()) / float64(m.sampleRate)

	lr, ok := m.backend.(sink.LatencyReporter)
	if !ok {
		return elapsed
	}
	latencyFrames, err := lr.LatencyFrames()
	if err != nil {
		return elapsed
	}
	return elapsed - float64(latencyFrames)/float64(m.sampleRate)
}

// Close drives the master volume to zero, gives the audio thread a
// moment to settle, and tears down the sink backend (a no-op in
// loopback mode, where there is none).
func (m *Mixer) Close() error {
	if m.isErrored() {
		return nil
	}
	m.SetMasterVolume(0)
	time.Sleep(200 * time.Millisecond)
	if m.backend != nil {
		return m.backend.Close()
	}
	return nil
}

func (m *Mixer) resolveChannel(requested int32) (int, bool) {
	if requested == AnyMixerChannel {
		for i, ch := range m.channels {
			if ch.IsSlot0Idle() {
				return i, true
			}
		}
		return 0, false
	}
	if requested < 0 || int(requested) >= len(m.channels) {
		panic("mixer: channel out of range")
	}
	return int(requested), true
}

func loopCountSentinel(loopCount uint32) int {
	if loopCount == LoopForever {
		return -1
	}
	return int(loopCount)
}

func computeFrameOffset(delayBeforePlay, startTimeSecs, sampleRate float32) int {
	if delayBeforePlay != 0 && startTimeSecs != 0 {
		panic("mixer: delayBeforePlay and startTimeSecs are mutually exclusive")
	}
	if delayBeforePlay != 0 {
		return -int(math.Round(float64(delayBeforePlay) * float64(sampleRate)))
	}
	return int(math.Round(float64(startTimeSecs) * float64(sampleRate)))
}

// equalPowerPan computes per-channel gains whose total power
// (volL² + volR² = 2·volume²) is the same at any pan position, with
// unity gain on each side at dead center.
func equalPowerPan(volume, pan float32) (volL, volR float32) {
	angle := float64(pan+1) * math.Pi / 4
	sqrt2 := float32(math.Sqrt2)
	volL = volume * float32(math.Cos(angle)) * sqrt2
	volR = volume * float32(math.Sin(angle)) * sqrt2
	return volL, volR
}

// writeCallback is the audio thread's entry point for the copy-out
// path (the Sink callback and Generate both use it): mix a block via
// mixBlock, then copy it into dst.
func (m *Mixer) writeCallback(dst [2][]float32, frames int) {
	out := m.mixBlock(frames)
	copy(dst[0][:frames], out[0][:frames])
	copy(dst[1][:frames], out[1][:frames])
}

// mixBlock zeroes the persistent scratch buffer, mixes every channel
// into it under channelsMutex, then runs the master effect chain (in
// sub-blocks of at most MaxFramesForEffects) under masterEffectsMutex.
// It never allocates past growing scratch to fit frames, and never
// waits on a condition variable. The returned slices alias m.scratch
// and are only valid until the next mixBlock call.
func (m *Mixer) mixBlock(frames int) [2][]float32 {
	if frames > MaxInternalBuffering {
		panic("mixer: sink requested more frames than MaxInternalBuffering")
	}
	if cap(m.scratch[0]) < frames {
		m.scratch[0] = make([]float32, frames)
		m.scratch[1] = make([]float32, frames)
	}
	out0 := m.scratch[0][:frames]
	out1 := m.scratch[1][:frames]
	for i := range out0 {
		out0[i] = 0
		out1[i] = 0
	}

	m.channelsMutex.Lock()
	for _, ch := range m.channels {
		ch.ProduceSound([2][]float32{out0, out1}, frames, m.sampleRate)
	}
	m.channelsMutex.Unlock()

	m.masterEffectsMutex.Lock()
	base := m.timeSincePlaybackBegan.Load()
	for start := 0; start < frames; start += MaxFramesForEffects {
		end := start + MaxFramesForEffects
		if end > frames {
			end = frames
		}
		block := effect.StereoBlock{out0[start:end], out1[start:end]}
		info := effect.ProcessInfo{
			SampleRate:                       m.sampleRate,
			TimeInFramesSincePlaybackStarted: base + int64(start),
		}
		for _, e := range m.masterEffects {
			e.ProcessAudio(&block, info)
		}
	}
	m.masterEffectsMutex.Unlock()

	m.timeSincePlaybackBegan.Add(int64(frames))
	return [2][]float32{out0, out1}
}
