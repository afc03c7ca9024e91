package sink

import (
	"errors"

	"github.com/oov/audio/resampler"
)

// formatConvertingResampleQuality mirrors the teacher's fixed quality
// argument to oov/audio/resampler.New.
const formatConvertingResampleQuality = 10

var errNoLatencyReporter = errors.New("sink: inner sink does not report latency")

// FormatConvertingSink wraps an inner Sink whose device rate may not
// match the mixer's configured rate, inserting a per-channel
// oov/audio/resampler pass between the two — grounded on the
// teacher's AudioFormatConversionDevice, which does the same planar
// resample-and-reinterleave dance for a channel/rate mismatch between
// a source and a sink.
type FormatConvertingSink struct {
	inner Sink

	mixerRate  float32
	deviceRate float32

	resamplers [2]*resampler.Resampler
	mixerBuf   [2][]float32
}

// NewFormatConvertingSink wraps inner.
func NewFormatConvertingSink(inner Sink) *FormatConvertingSink {
	return &FormatConvertingSink{inner: inner}
}

func (s *FormatConvertingSink) Open(requestedSampleRate float32, cb WriteCallback, report ErrorReporter) (float32, error) {
	deviceRate, err := s.inner.Open(requestedSampleRate, func(dst [2][]float32, frames int) {
		s.convertAndForward(dst, frames, cb)
	}, report)
	if err != nil {
		return 0, err
	}

	s.mixerRate = requestedSampleRate
	s.deviceRate = deviceRate
	if deviceRate != requestedSampleRate {
		s.resamplers[0] = resampler.New(1, int(requestedSampleRate), int(deviceRate), formatConvertingResampleQuality)
		s.resamplers[1] = resampler.New(1, int(requestedSampleRate), int(deviceRate), formatConvertingResampleQuality)
	}

	// The mixer always mixes at its own requested rate; this sink
	// absorbs any mismatch against the underlying device internally.
	return requestedSampleRate, nil
}

func (s *FormatConvertingSink) convertAndForward(dst [2][]float32, deviceFrames int, cb WriteCallback) {
	if s.resamplers[0] == nil {
		cb(dst, deviceFrames)
		return
	}

	mixerFrames := int(float64(deviceFrames)*float64(s.mixerRate)/float64(s.deviceRate)) + 8
	if cap(s.mixerBuf[0]) < mixerFrames {
		s.mixerBuf[0] = make([]float32, mixerFrames)
		s.mixerBuf[1] = make([]float32, mixerFrames)
	}
	src := [2][]float32{s.mixerBuf[0][:mixerFrames], s.mixerBuf[1][:mixerFrames]}
	cb(src, mixerFrames)

	for c := 0; c < 2; c++ {
		_, written := s.resamplers[c].ProcessFloat32(0, src[c], dst[c][:deviceFrames])
		for ; written < deviceFrames; written++ {
			dst[c][written] = 0
		}
	}
}

func (s *FormatConvertingSink) Close() error {
	return s.inner.Close()
}

// LatencyFrames forwards to inner if it reports latency, converted from
// the device rate to the mixer rate; otherwise it returns
// errNoLatencyReporter, so the mixer falls back to zero latency.
func (s *FormatConvertingSink) LatencyFrames() (int, error) {
	lr, ok := s.inner.(LatencyReporter)
	if !ok {
		return 0, errNoLatencyReporter
	}
	deviceFrames, err := lr.LatencyFrames()
	if err != nil {
		return 0, err
	}
	if s.deviceRate == 0 {
		return deviceFrames, nil
	}
	return int(float64(deviceFrames) * float64(s.mixerRate) / float64(s.deviceRate)), nil
}
