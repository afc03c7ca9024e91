// Package hostaudio wires the mixer's sink.Sink interface to a real
// output device through the rtaudio cgo binding, the same way the
// teacher's RtAudioOutputDevice drives its frame channel, but feeding
// the stream's callback straight from a sink.WriteCallback instead of
// a buffered channel of PCM frames.
package hostaudio

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AuburnSounds/game-mixer/internal/rtaudio"
	"github.com/AuburnSounds/game-mixer/pkg/sink"
)

// DeviceSink plays mixer output on the default output device.
type DeviceSink struct {
	bufferFrames uint
	numChannels  int

	audio rtaudio.RtAudio

	interleaved []float32
	planar      [2][]float32
}

// New returns a sink.Sink backed by the default RtAudio output
// device. bufferFrames controls the device's callback block size
// (512 or 1024 are typical); numChannels is almost always 2, since
// the mixer only ever produces stereo output.
func New(bufferFrames uint, numChannels int) *DeviceSink {
	return &DeviceSink{bufferFrames: bufferFrames, numChannels: numChannels}
}

var _ sink.Sink = (*DeviceSink)(nil)
var _ sink.LatencyReporter = (*DeviceSink)(nil)

func (d *DeviceSink) Open(requestedSampleRate float32, cb sink.WriteCallback, report sink.ErrorReporter) (float32, error) {
	audio, err := rtaudio.Create(rtaudio.APIUnspecified)
	if err != nil {
		return 0, fmt.Errorf("hostaudio: create audio interface: %w", err)
	}

	callback := func(out, in rtaudio.Buffer, dur time.Duration, status rtaudio.StreamStatus) int {
		outputData := out.Float32()
		if outputData == nil {
			if report != nil {
				report(fmt.Errorf("hostaudio: device delivered a non-float32 buffer, expected %v", rtaudio.FormatFloat32))
			}
			return 2 // abort the stream, matching rtaudio's callback return convention
		}
		frames := out.Len()
		d.fillFromCallback(outputData, frames, cb)
		if status&rtaudio.StatusOutputUnderflow != 0 {
			slog.Warn("hostaudio: output underflow")
		}
		return 0
	}

	params := rtaudio.StreamParams{
		DeviceID:     uint(audio.DefaultOutputDeviceId()),
		NumChannels:  uint(d.numChannels),
		FirstChannel: 0,
	}

	sampleRate := uint(requestedSampleRate)
	if err := audio.Open(&params, nil, rtaudio.FormatFloat32, sampleRate, d.bufferFrames, callback, nil); err != nil {
		return 0, fmt.Errorf("hostaudio: open stream: %w", err)
	}
	if err := audio.Start(); err != nil {
		audio.Close()
		return 0, fmt.Errorf("hostaudio: start stream: %w", err)
	}

	d.audio = audio
	actualRate, err := audio.SampleRate()
	if err != nil || actualRate == 0 {
		actualRate = sampleRate
	}
	return float32(actualRate), nil
}

// fillFromCallback pulls frames worth of mixer output via cb and
// interleaves it into the device's output buffer.
func (d *DeviceSink) fillFromCallback(outputData []float32, frames int, cb sink.WriteCallback) {
	if cap(d.planar[0]) < frames {
		d.planar[0] = make([]float32, frames)
		d.planar[1] = make([]float32, frames)
	}
	left := d.planar[0][:frames]
	right := d.planar[1][:frames]
	cb([2][]float32{left, right}, frames)

	needed := frames * d.numChannels
	if cap(d.interleaved) < needed {
		d.interleaved = make([]float32, needed)
	}
	d.interleaved = d.interleaved[:needed]

	for i := 0; i < frames; i++ {
		base := i * d.numChannels
		d.interleaved[base] = left[i]
		if d.numChannels > 1 {
			d.interleaved[base+1] = right[i]
		}
		for c := 2; c < d.numChannels; c++ {
			d.interleaved[base+c] = 0
		}
	}
	copy(outputData, d.interleaved)
}

// LatencyFrames reports the stream's current output latency in frames,
// satisfying sink.LatencyReporter.
func (d *DeviceSink) LatencyFrames() (int, error) {
	if d.audio == nil {
		return 0, nil
	}
	return d.audio.Latency()
}

func (d *DeviceSink) Close() error {
	if d.audio == nil {
		return nil
	}
	if d.audio.IsRunning() {
		if err := d.audio.Stop(); err != nil {
			slog.Error("hostaudio: error stopping stream", "err", err)
		}
	}
	d.audio.Close()
	d.audio.Destroy()
	d.audio = nil
	return nil
}
