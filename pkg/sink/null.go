package sink

// NullSink consumes audio without producing it anywhere: Open never
// starts a thread and never calls the write callback. Useful for
// headless operation (preloading sources, running an event loop with
// no audible output) and in tests that don't care about the rendered
// signal. Grounded on the teacher's DummyAudioSinkDevice, which drains
// its input stream without acting on it.
type NullSink struct {
	closed bool
}

// NewNullSink creates a NullSink.
func NewNullSink() *NullSink { return &NullSink{} }

func (s *NullSink) Open(requestedSampleRate float32, _ WriteCallback, _ ErrorReporter) (float32, error) {
	return requestedSampleRate, nil
}

func (s *NullSink) Close() error {
	s.closed = true
	return nil
}
