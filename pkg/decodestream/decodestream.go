// Package decodestream defines the external collaborator interface the
// mixer's source pipeline drives to pull decoded audio, plus a handful
// of reference implementations (WAV, MP3, Ogg Vorbis) so the pipeline
// is exercisable without a host game's own decoders.
package decodestream

import "errors"

// ErrUnknownLength names the unknown-length case. No Stream method
// returns it: LengthInFrames reports an unknown length (e.g. a network
// stream) through its bool result, and callers treat that as unknown
// rather than as an error.
var ErrUnknownLength = errors.New("decodestream: length not known")

// Stream is the interface the mixer's source pipeline (BufferedStream
// and DecodedStream) drives. Implementations are owned and called by
// the pipeline; nothing in the mixer assumes a concrete decoder.
type Stream interface {
	// NumChannels returns the number of channels in the underlying
	// source, 1 or 2. Any other value is a caller error.
	NumChannels() int

	// SampleRate returns the stream's native sample rate in Hz.
	SampleRate() float32

	// LengthInFrames returns the total number of frames the stream will
	// produce, and whether that length is known up front.
	LengthInFrames() (frames int64, known bool)

	// RealtimeSafe reports whether ReadSamplesFloat is guaranteed never
	// to block on I/O or allocate. When false, the mixer wraps the
	// stream in a BufferedStream so a producer thread absorbs the
	// blocking decode work ahead of the real-time consumer.
	RealtimeSafe() bool

	// ReadSamplesFloat reads up to frames interleaved frames into out
	// (which must be at least frames*NumChannels() long) and returns
	// the number of frames actually read. Returning fewer frames than
	// requested signals end of stream.
	ReadSamplesFloat(out []float32, frames int) (int, error)
}
