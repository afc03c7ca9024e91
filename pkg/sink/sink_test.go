package sink

import "testing"

func TestNullSinkNeverCallsBack(t *testing.T) {
	called := false
	s := NewNullSink()
	rate, err := s.Open(44100, func([2][]float32, int) { called = true }, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rate != 44100 {
		t.Fatalf("rate = %v, want passthrough of requested rate", rate)
	}
	if called {
		t.Fatal("NullSink must never invoke the write callback")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// stubInnerSink drives its write callback synchronously from Open's
// caller via DriveOnce, standing in for a real hardware device.
type stubInnerSink struct {
	rate   float32
	cb     WriteCallback
	report ErrorReporter
}

func (s *stubInnerSink) Open(requested float32, cb WriteCallback, report ErrorReporter) (float32, error) {
	s.cb = cb
	s.report = report
	return s.rate, nil
}

func (s *stubInnerSink) Close() error { return nil }

func (s *stubInnerSink) DriveOnce(dst [2][]float32, frames int) {
	s.cb(dst, frames)
}

func TestFormatConvertingSinkPassthroughAtMatchingRate(t *testing.T) {
	inner := &stubInnerSink{rate: 48000}
	fc := NewFormatConvertingSink(inner)

	var gotFrames int
	rate, err := fc.Open(48000, func(dst [2][]float32, frames int) {
		gotFrames = frames
		for i := range dst[0] {
			dst[0][i] = 1
			dst[1][i] = 1
		}
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rate != 48000 {
		t.Fatalf("rate = %v, want 48000", rate)
	}

	dst := [2][]float32{make([]float32, 100), make([]float32, 100)}
	inner.DriveOnce(dst, 100)

	if gotFrames != 100 {
		t.Fatalf("mixer callback got %d frames, want 100 (passthrough, no resample needed)", gotFrames)
	}
	if dst[0][0] != 1 {
		t.Fatalf("dst[0][0] = %v, want 1 (passthrough)", dst[0][0])
	}
}

func TestFormatConvertingSinkResamplesOnRateMismatch(t *testing.T) {
	inner := &stubInnerSink{rate: 44100}
	fc := NewFormatConvertingSink(inner)

	_, err := fc.Open(48000, func(dst [2][]float32, frames int) {
		for i := range dst[0] {
			dst[0][i] = 0.5
			dst[1][i] = 0.5
		}
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	dst := [2][]float32{make([]float32, 256), make([]float32, 256)}
	inner.DriveOnce(dst, 256)

	nonZero := false
	for _, v := range dst[0] {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("resampled output should not be entirely zero")
	}
}

func TestFormatConvertingSinkForwardsErrorReport(t *testing.T) {
	inner := &stubInnerSink{rate: 48000}
	fc := NewFormatConvertingSink(inner)

	var reported error
	_, err := fc.Open(48000, func([2][]float32, int) {}, func(e error) { reported = e })
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	inner.report(errNoLatencyReporter)
	if reported != errNoLatencyReporter {
		t.Fatalf("reported = %v, want the error forwarded from the inner sink", reported)
	}
}

type latencyStub struct {
	stubInnerSink
	frames int
}

func (s *latencyStub) LatencyFrames() (int, error) { return s.frames, nil }

func TestFormatConvertingSinkConvertsLatencyToMixerRate(t *testing.T) {
	inner := &latencyStub{stubInnerSink: stubInnerSink{rate: 48000}, frames: 96}
	fc := NewFormatConvertingSink(inner)

	// Mixer rate half the device rate: 96 device-rate frames of latency
	// is 48 frames at the mixer's own rate.
	if _, err := fc.Open(24000, func([2][]float32, int) {}, nil); err != nil {
		t.Fatalf("Open: %v", err)
	}

	got, err := fc.LatencyFrames()
	if err != nil {
		t.Fatalf("LatencyFrames: %v", err)
	}
	if got != 48 {
		t.Fatalf("LatencyFrames = %d, want 48", got)
	}
}
