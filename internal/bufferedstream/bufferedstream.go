// Package bufferedstream inserts a producer thread ahead of a decode
// stream that is not realtime-safe, so the real-time consumer (driven
// from the mixer's audio callback) reads from a bounded ring instead
// of blocking on file I/O or decoder allocation.
package bufferedstream

import (
	"sync"
	"sync/atomic"

	"github.com/AuburnSounds/game-mixer/pkg/decodestream"
)

// decodeIncrementSeconds bounds how much the producer asks the
// underlying stream for in one read, so one slow decode call can't
// hold up the ring for too long before checking for shutdown.
const decodeIncrementSeconds = 0.1

// MaybeWrap returns inner unchanged if it already reports itself
// realtime-safe, otherwise wraps it in a BufferedStream and starts its
// producer goroutine.
func MaybeWrap(inner decodestream.Stream) decodestream.Stream {
	if inner.RealtimeSafe() {
		return inner
	}
	return New(inner)
}

// BufferedStream is a decodestream.Stream backed by a ring buffer that
// a producer goroutine keeps filled ahead of the consumer.
type BufferedStream struct {
	inner       decodestream.Stream
	numChannels int
	sampleRate  float32

	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	ring           []float32 // capacityFrames*numChannels, circular
	capacityFrames int
	head           int // frame index of the oldest buffered frame
	length         int // frames currently buffered

	shouldDie      atomic.Bool
	streamFinished atomic.Bool

	producerScratch []float32
	wg              sync.WaitGroup
}

// New wraps inner in a BufferedStream, unconditionally starting the
// producer goroutine. Most callers should use MaybeWrap instead.
func New(inner decodestream.Stream) *BufferedStream {
	numChannels := inner.NumChannels()
	sampleRate := inner.SampleRate()

	capacityFrames := int(sampleRate) // ~1 second of audio
	if capacityFrames < 1 {
		capacityFrames = 1
	}

	bs := &BufferedStream{
		inner:           inner,
		numChannels:     numChannels,
		sampleRate:      sampleRate,
		ring:            make([]float32, capacityFrames*numChannels),
		capacityFrames:  capacityFrames,
		producerScratch: make([]float32, decodeIncrementFrames(sampleRate)*numChannels),
	}
	bs.notFull = sync.NewCond(&bs.mu)
	bs.notEmpty = sync.NewCond(&bs.mu)

	bs.wg.Add(1)
	go bs.produce()

	return bs
}

func decodeIncrementFrames(sampleRate float32) int {
	n := int(decodeIncrementSeconds * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	return n
}

func (bs *BufferedStream) NumChannels() int    { return bs.numChannels }
func (bs *BufferedStream) SampleRate() float32 { return bs.sampleRate }
func (bs *BufferedStream) RealtimeSafe() bool  { return true }

func (bs *BufferedStream) LengthInFrames() (int64, bool) {
	return bs.inner.LengthInFrames()
}

// produce is the producer loop: it never holds bs.mu while calling
// into the underlying (possibly blocking) decode stream.
func (bs *BufferedStream) produce() {
	defer bs.wg.Done()

	increment := decodeIncrementFrames(bs.sampleRate)

	for {
		bs.mu.Lock()
		for bs.capacityFrames-bs.length == 0 && !bs.shouldDie.Load() {
			bs.notFull.Wait()
		}
		if bs.shouldDie.Load() {
			bs.mu.Unlock()
			return
		}
		room := bs.capacityFrames - bs.length
		bs.mu.Unlock()

		request := min(room, increment)
		if cap(bs.producerScratch) < request*bs.numChannels {
			bs.producerScratch = make([]float32, request*bs.numChannels)
		}
		scratch := bs.producerScratch[:request*bs.numChannels]

		framesRead, err := bs.inner.ReadSamplesFloat(scratch, request)
		if framesRead < request || err != nil {
			bs.streamFinished.Store(true)
		}

		if framesRead > 0 {
			bs.mu.Lock()
			bs.appendLocked(scratch[:framesRead*bs.numChannels])
			bs.notEmpty.Signal()
			bs.mu.Unlock()
		}

		if bs.streamFinished.Load() {
			bs.mu.Lock()
			bs.notEmpty.Broadcast()
			bs.mu.Unlock()
			return
		}
	}
}

func (bs *BufferedStream) appendLocked(samples []float32) {
	frames := len(samples) / bs.numChannels
	writeIdx := (bs.head + bs.length) % bs.capacityFrames
	for i := 0; i < frames; i++ {
		dst := ((writeIdx + i) % bs.capacityFrames) * bs.numChannels
		src := i * bs.numChannels
		copy(bs.ring[dst:dst+bs.numChannels], samples[src:src+bs.numChannels])
	}
	bs.length += frames
}

// ReadSamplesFloat is the consumer side, called by DecodedStream's
// decode-ahead logic. It copies out of the ring, waking the producer
// whenever it frees room, and blocks on the "not empty" condition
// variable only when the ring has run dry and the stream has not yet
// finished.
func (bs *BufferedStream) ReadSamplesFloat(out []float32, frames int) (int, error) {
	framesWanted := frames
	framesWritten := 0

	bs.mu.Lock()
	defer bs.mu.Unlock()

	for framesWritten < framesWanted {
		for bs.length == 0 && !bs.streamFinished.Load() {
			bs.notEmpty.Wait()
		}
		if bs.length == 0 {
			// streamFinished and nothing left buffered.
			return framesWritten, nil
		}

		n := min(bs.length, framesWanted-framesWritten)
		for i := 0; i < n; i++ {
			srcFrame := (bs.head + i) % bs.capacityFrames
			srcOff := srcFrame * bs.numChannels
			dstOff := (framesWritten + i) * bs.numChannels
			copy(out[dstOff:dstOff+bs.numChannels], bs.ring[srcOff:srcOff+bs.numChannels])
		}
		bs.head = (bs.head + n) % bs.capacityFrames
		bs.length -= n
		framesWritten += n
		bs.notFull.Signal()

		if bs.streamFinished.Load() && bs.length == 0 {
			break
		}
	}

	return framesWritten, nil
}

// Close signals the producer to die and waits for it to exit.
func (bs *BufferedStream) Close() {
	bs.shouldDie.Store(true)
	bs.mu.Lock()
	bs.notFull.Broadcast()
	bs.mu.Unlock()
	bs.wg.Wait()
}
