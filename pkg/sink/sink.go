// Package sink defines the backend the mixer writes mixed audio to,
// plus a null sink (discards everything, grounded on the teacher's
// DummyAudioSinkDevice) and FormatConvertingSink, which resamples
// between the mixer's rate and an inner sink's device rate.
package sink

// WriteCallback is invoked by a Sink's own audio thread, once per
// block it wants filled. dst has exactly two channels (left, right);
// frames is in [1, maxInternalBuffering].
type WriteCallback func(dst [2][]float32, frames int)

// ErrorReporter lets a Sink backend report a runtime stream error that
// happened on its own thread, after Open already returned. Anything
// reported this way is treated as fatal by the mixer: an underflow is
// never reported through it, since it is transient by nature, but a
// device disconnect or a stream the backend can no longer service is.
type ErrorReporter func(err error)

// Sink is the backend a Mixer writes audio to. Open may start a
// background thread that drives cb until Close; a sink that never
// calls cb (a null sink) is a valid implementation.
type Sink interface {
	// Open starts the sink at (approximately) requestedSampleRate and
	// returns the rate it actually settled on — real hardware may not
	// support the exact request. The mixer latches the returned rate.
	// report, if non-nil, is how the sink signals a fatal runtime error
	// discovered after Open returns; a sink that never hits one is free
	// to never call it.
	Open(requestedSampleRate float32, cb WriteCallback, report ErrorReporter) (actualSampleRate float32, err error)

	// Close tears down any background thread and releases the backend.
	// Idempotent.
	Close() error
}

// LatencyReporter is implemented by sinks that can measure the output
// latency of their backend. The mixer type-asserts for it when
// computing playback_time_in_seconds and treats an unimplementing sink
// as zero latency.
type LatencyReporter interface {
	LatencyFrames() (int, error)
}
