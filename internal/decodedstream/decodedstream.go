// Package decodedstream bridges a decodestream.Stream (optionally
// wrapped in a bufferedstream.BufferedStream) to the mixer's in-memory,
// already-resampled corpus of samples backing one AudioSource.
package decodedstream

import (
	"github.com/AuburnSounds/game-mixer/internal/bufferedstream"
	"github.com/AuburnSounds/game-mixer/internal/chunkedvec"
	"github.com/AuburnSounds/game-mixer/internal/resampler"
	"github.com/AuburnSounds/game-mixer/pkg/decodestream"
)

// chunkFramesDecoder is how many interleaved frames are pulled from the
// decode stream per decode step.
const chunkFramesDecoder = 128

// chunkedVecChunkLen sizes the backing chunks of each per-channel
// resampled-sample store; must stay a power of two.
const chunkedVecChunkLen = 1 << 16

type decodeState int

const (
	decodingFromStream decodeState = iota
	flushingResamplerTail
	terminated
)

// DecodedStream owns one resampler and one ChunkedVec per source
// channel, decoding and resampling ahead of the mixer's playback
// position on demand.
type DecodedStream struct {
	stream         decodestream.Stream
	numSrcChannels int
	srcRate        float32

	resamplers []*resampler.Resampler // nil until the first MixIntoBuffer
	channels   []*chunkedvec.ChunkedVec[float32]

	framesDecodedAndResampled uint32

	sourceLengthInFrames int64
	lengthIsKnown        bool

	state decodeState

	interleaveScratch []float32   // chunkFramesDecoder*numSrcChannels
	monoScratch       [][]float32 // per source channel, chunkFramesDecoder long
}

// New wraps stream (via bufferedstream.MaybeWrap, so non-realtime-safe
// decoders get a producer thread) and prepares empty per-channel
// storage. Resamplers are created lazily on the first MixIntoBuffer,
// once the mixer's output rate is known.
func New(stream decodestream.Stream) *DecodedStream {
	wrapped := bufferedstream.MaybeWrap(stream)
	numSrcChannels := wrapped.NumChannels()

	length, known := wrapped.LengthInFrames()

	ds := &DecodedStream{
		stream:               wrapped,
		numSrcChannels:       numSrcChannels,
		srcRate:              wrapped.SampleRate(),
		sourceLengthInFrames: length,
		lengthIsKnown:        known,
		channels:             make([]*chunkedvec.ChunkedVec[float32], numSrcChannels),
		interleaveScratch:    make([]float32, chunkFramesDecoder*numSrcChannels),
		monoScratch:          make([][]float32, numSrcChannels),
	}
	for i := range ds.channels {
		ds.channels[i] = chunkedvec.New[float32](chunkedVecChunkLen)
	}
	for i := range ds.monoScratch {
		ds.monoScratch[i] = make([]float32, chunkFramesDecoder)
	}
	return ds
}

func (ds *DecodedStream) ensureResamplers(mixerRate float32) {
	if ds.resamplers != nil {
		return
	}
	ds.resamplers = make([]*resampler.Resampler, ds.numSrcChannels)
	for i := range ds.resamplers {
		ds.resamplers[i] = resampler.New(float64(ds.srcRate), float64(mixerRate), resampler.Cubic)
	}
}

// SourceLengthInFrames reports the source's length once known, mostly
// for AudioSource's reporting API.
func (ds *DecodedStream) SourceLengthInFrames() (int64, bool) {
	return ds.sourceLengthInFrames, ds.lengthIsKnown
}

// SampleRate is the source's native rate, before resampling.
func (ds *DecodedStream) SampleRate() float32 { return ds.srcRate }

// FramesAvailable is how many resampled frames have been produced so
// far, regardless of how much of the source remains undecoded.
func (ds *DecodedStream) FramesAvailable() uint32 { return ds.framesDecodedAndResampled }

// FullyDecoded reports whether the source's decode state machine has
// reached its terminal state: every sample has been decoded, resampled
// and the resampler's tail has been flushed.
func (ds *DecodedStream) FullyDecoded() bool { return ds.state == terminated }

// MixIntoBuffer mixes frames of resampled, volume-ramped audio into
// dst (one slice per output channel) starting at *frameOffset within
// the source's resampled timeline, advancing *frameOffset and
// decrementing *loopCount as the source loops or ends. volumeRamp and
// each dst channel must be exactly frames long.
func (ds *DecodedStream) MixIntoBuffer(
	dst [2][]float32,
	frames int,
	frameOffset *int,
	loopCount *int,
	volumeRamp []float32,
	volume [2]float32,
	mixerRate float32,
) {
	ds.ensureResamplers(mixerRate)

	dstPos := 0
	for frames > 0 {
		framesEnd := frames + *frameOffset
		if framesEnd > int(ds.framesDecodedAndResampled) {
			ds.decodeMoreSamples(uint32(framesEnd) - ds.framesDecodedAndResampled)
		}
		if ds.lengthIsKnown && int64(framesEnd) > ds.sourceLengthInFrames {
			framesEnd = int(ds.sourceLengthInFrames)
		}

		framesToCopy := framesEnd - *frameOffset
		if framesToCopy < 0 {
			framesToCopy = 0
		}

		if framesToCopy > 0 {
			for c := 0; c < 2; c++ {
				sc := c
				if sc >= ds.numSrcChannels {
					sc = ds.numSrcChannels - 1
				}
				chunkedvec.MixInto(
					ds.channels[sc],
					dst[c][dstPos:dstPos+framesToCopy],
					uint32(*frameOffset),
					volumeRamp[dstPos:dstPos+framesToCopy],
					volume[c],
				)
			}
		}

		frames -= framesToCopy
		*frameOffset += framesToCopy
		dstPos += framesToCopy

		if frames != 0 {
			if !ds.lengthIsKnown {
				panic("decodedstream: source ran out of known length mid-block with loop pending")
			}
			*frameOffset -= int(ds.sourceLengthInFrames)
			*loopCount--
			if *loopCount == 0 {
				return
			}
		}
	}
}

// decodeMoreSamples pumps readFromStreamAndResample until at least
// framesNeeded new resampled frames exist across all channels, or the
// source terminates (at which point its length is latched and the
// remaining requested frames are zero-padded).
func (ds *DecodedStream) decodeMoreSamples(framesNeeded uint32) {
	target := ds.framesDecodedAndResampled + framesNeeded
	for ds.framesDecodedAndResampled < target {
		_, isTerminated := ds.readFromStreamAndResample()
		if isTerminated {
			ds.sourceLengthInFrames = int64(ds.framesDecodedAndResampled)
			ds.lengthIsKnown = true
			for ds.framesDecodedAndResampled < target {
				for _, ch := range ds.channels {
					ch.PushBack(0)
				}
				ds.framesDecodedAndResampled++
			}
			return
		}
	}
}

// readFromStreamAndResample advances the decode state machine by one
// step, pushing any newly produced resampled samples onto every
// channel's ChunkedVec. produced counts the new frames appended to
// each (all channels gain the same count, by construction); isTerminated
// reports whether the source is now fully drained.
func (ds *DecodedStream) readFromStreamAndResample() (produced uint32, isTerminated bool) {
	switch ds.state {
	case decodingFromStream:
		n, err := ds.stream.ReadSamplesFloat(ds.interleaveScratch, chunkFramesDecoder)
		ds.deinterleave(n)

		var channelProduced int
		for i := 0; i < ds.numSrcChannels; i++ {
			out := ds.resamplers[i].Push(ds.monoScratch[i][:n], nil)
			for _, v := range out {
				ds.channels[i].PushBack(v)
			}
			channelProduced = len(out)
		}

		if n < chunkFramesDecoder || err != nil {
			ds.state = flushingResamplerTail
		}

		ds.framesDecodedAndResampled += uint32(channelProduced)
		return uint32(channelProduced), false

	case flushingResamplerTail:
		zero := make([]float32, chunkFramesDecoder)
		var channelProduced int
		for i := 0; i < ds.numSrcChannels; i++ {
			out := ds.resamplers[i].Push(zero, nil)
			for _, v := range out {
				ds.channels[i].PushBack(v)
			}
			channelProduced = len(out)
		}
		ds.state = terminated
		ds.framesDecodedAndResampled += uint32(channelProduced)
		return uint32(channelProduced), false

	default: // terminated
		return 0, true
	}
}

func (ds *DecodedStream) deinterleave(n int) {
	for i := 0; i < ds.numSrcChannels; i++ {
		dst := ds.monoScratch[i]
		for f := 0; f < n; f++ {
			dst[f] = ds.interleaveScratch[f*ds.numSrcChannels+i]
		}
	}
}
