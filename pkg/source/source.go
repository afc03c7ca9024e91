// Package source implements AudioSource, the thin wrapper a Channel
// plays: it owns a DecodedStream, latches the mixer's output rate once
// playback is prepared, and reports best-effort length/rate metadata.
package source

import (
	"errors"

	"github.com/AuburnSounds/game-mixer/internal/decodedstream"
	"github.com/AuburnSounds/game-mixer/pkg/decodestream"
)

// UnknownLength is returned by the length-reporting methods when the
// answer isn't known yet (the source hasn't decoded far enough, or the
// underlying stream never reports a length).
const UnknownLength int64 = -1

// UnknownSeconds is the floating-point counterpart of UnknownLength.
const UnknownSeconds float64 = -1

// ErrFullDecodeNotPrepared is returned by FullDecode when PrepareToPlay
// hasn't been called yet: the resample target rate isn't known, and
// decoding now would either guess wrong or have to be redone later.
var ErrFullDecodeNotPrepared = errors.New("source: full decode requires prepare to play first")

// ErrFullDecodeDisallowed is returned by FullDecode once the source has
// actually started playing: past that point the audio thread may be
// mutating the DecodedStream concurrently, so driving it from another
// goroutine is no longer safe.
var ErrFullDecodeDisallowed = errors.New("source: full decode no longer allowed once playback has started")

// fullDecodeProbeFrames is the throwaway stereo buffer width used to
// pump decode-ahead during FullDecode.
const fullDecodeProbeFrames = 32

// AudioSource wraps a DecodedStream with the lifecycle a Channel needs:
// latch the mixer rate once, then forward every mix into the decoded
// corpus.
type AudioSource struct {
	ds *decodedstream.DecodedStream

	mixerRate    float32
	prepared     bool // PrepareToPlay has latched mixerRate
	started      bool // the real MixIntoBuffer path has been invoked at least once
	fullyDecoded bool
}

// New creates an AudioSource over stream. Decoding does not start
// until the first MixIntoBuffer or FullDecode call.
func New(stream decodestream.Stream) *AudioSource {
	return &AudioSource{ds: decodedstream.New(stream)}
}

// PrepareToPlay latches mixerRate as the rate every resample will
// target from now on. Callers that want FullDecode to pre-warm a
// source must call this first, with the real mixer rate, so decoding
// never has to guess a target and redo itself later.
func (s *AudioSource) PrepareToPlay(mixerRate float32) {
	s.mixerRate = mixerRate
	s.prepared = true
}

// MixIntoBuffer forwards straight to the underlying DecodedStream.
// This is the path a Channel drives from the audio thread; the first
// call latches started, which forbids any further FullDecode.
func (s *AudioSource) MixIntoBuffer(
	dst [2][]float32,
	frames int,
	frameOffset *int,
	loopCount *int,
	volumeRamp []float32,
	volume [2]float32,
) {
	s.started = true
	s.ds.MixIntoBuffer(dst, frames, frameOffset, loopCount, volumeRamp, volume, s.mixerRate)
}

// FullDecode drives decoding of the entire source into a throwaway
// buffer so a short sample is fully resident before it is first
// played, avoiding first-play decode latency. It resamples to the
// rate latched by PrepareToPlay, so it must be called after
// PrepareToPlay and before the source is actually played; it is a
// no-op once already fully decoded.
func (s *AudioSource) FullDecode() error {
	if !s.prepared {
		return ErrFullDecodeNotPrepared
	}
	if s.started {
		return ErrFullDecodeDisallowed
	}
	if s.fullyDecoded {
		return nil
	}

	dst := [2][]float32{make([]float32, fullDecodeProbeFrames), make([]float32, fullDecodeProbeFrames)}
	ramp := make([]float32, fullDecodeProbeFrames)
	for i := range ramp {
		ramp[i] = 1
	}

	frameOffset := 0
	loopCount := 1
	for loopCount != 0 {
		s.ds.MixIntoBuffer(dst, fullDecodeProbeFrames, &frameOffset, &loopCount, ramp, [2]float32{0, 0}, s.mixerRate)
	}

	s.fullyDecoded = true
	return nil
}

// SampleRate is the source's native sample rate, before resampling.
func (s *AudioSource) SampleRate() float32 {
	return s.ds.SampleRate()
}

// OriginalLengthInFrames is the source's length in frames at its
// native sample rate, or UnknownLength if not yet known.
func (s *AudioSource) OriginalLengthInFrames() int64 {
	length, known := s.ds.SourceLengthInFrames()
	if !known {
		return UnknownLength
	}
	return length
}

// LengthInSeconds is the source's duration, independent of any
// resampling target, or UnknownSeconds if not yet known.
func (s *AudioSource) LengthInSeconds() float64 {
	length, known := s.ds.SourceLengthInFrames()
	if !known || s.ds.SampleRate() <= 0 {
		return UnknownSeconds
	}
	return float64(length) / float64(s.ds.SampleRate())
}

// LengthInFrames is the source's length in frames at the latched
// mixer output rate, or UnknownLength if not yet known or not yet
// prepared for playback.
func (s *AudioSource) LengthInFrames() int64 {
	if !s.prepared {
		return UnknownLength
	}
	length, known := s.ds.SourceLengthInFrames()
	if !known || s.ds.SampleRate() <= 0 {
		return UnknownLength
	}
	return int64(float64(length) * float64(s.mixerRate) / float64(s.ds.SampleRate()))
}
