package mixer

import (
	"testing"

	"github.com/AuburnSounds/game-mixer/pkg/decodestream"
	"github.com/AuburnSounds/game-mixer/pkg/source"
)

// constantSource is a realtime-safe mono decode stream of fixed length
// at a fixed value, already at the mixer's native rate so resampling
// is close to identity.
type constantSource struct {
	sampleRate float32
	value      float32
	remaining  int64
	total      int64
}

func newConstantSource(sampleRate, value float32, frames int64) *source.AudioSource {
	return source.New(&constantSource{sampleRate: sampleRate, value: value, remaining: frames, total: frames})
}

func (c *constantSource) NumChannels() int              { return 1 }
func (c *constantSource) SampleRate() float32           { return c.sampleRate }
func (c *constantSource) RealtimeSafe() bool            { return true }
func (c *constantSource) LengthInFrames() (int64, bool) { return c.total, true }

func (c *constantSource) ReadSamplesFloat(out []float32, frames int) (int, error) {
	if int64(frames) > c.remaining {
		frames = int(c.remaining)
	}
	for i := 0; i < frames; i++ {
		out[i] = c.value
	}
	c.remaining -= int64(frames)
	return frames, nil
}

var _ decodestream.Stream = (*constantSource)(nil)

func newLoopbackMixer(t *testing.T, numChannels int32) *Mixer {
	t.Helper()
	m := New(MixerOptions{SampleRate: 48000, NumChannels: numChannels, IsLoopback: true}, nil)
	if m.IsErrored() {
		t.Fatalf("mixer errored: %s", m.LastErrorString())
	}
	return m
}

func newDst(frames int) [2][]float32 {
	return [2][]float32{make([]float32, frames), make([]float32, frames)}
}

func TestSilenceWhenEmpty(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	dst := newDst(256)
	m.Generate(dst, 256)

	for i := range dst[0] {
		if dst[0][i] != 0 || dst[1][i] != 0 {
			t.Fatalf("expected silence, got dst[0][%d]=%v dst[1][%d]=%v", i, dst[0][i], i, dst[1][i])
		}
	}
}

func TestOneShotSource(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	src := newConstantSource(48000, 1.0, 100)

	opts := DefaultPlayOptions()
	opts.Volume = 1
	opts.Pan = 0
	m.Play(src, opts)

	dst := newDst(128)
	m.Generate(dst, 128)

	for i := 0; i < 100; i++ {
		if dst[0][i] < 0.9 || dst[0][i] > 1.1 {
			t.Fatalf("dst[0][%d] = %v, want ~1.0 within tolerance", i, dst[0][i])
		}
	}
	for i := 105; i < 128; i++ {
		if dst[0][i] != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 after source ends", i, dst[0][i])
		}
	}
}

func TestLoopTwice(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	src := newConstantSource(48000, 1.0, 100)

	opts := DefaultPlayOptions()
	opts.LoopCount = 2
	m.Play(src, opts)

	dst := newDst(256)
	m.Generate(dst, 256)

	nonZeroBeforeEnd := false
	for i := 0; i < 190; i++ {
		if dst[0][i] != 0 {
			nonZeroBeforeEnd = true
			break
		}
	}
	if !nonZeroBeforeEnd {
		t.Fatal("expected non-zero output across the two loop iterations")
	}
	for i := 205; i < 256; i++ {
		if dst[0][i] != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 after both loop iterations complete", i, dst[0][i])
		}
	}
}

func TestDelayedStart(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	src := newConstantSource(48000, 1.0, 1000)

	opts := DefaultPlayOptions()
	opts.DelayBeforePlay = float32(10.0 / 48000.0)
	m.Play(src, opts)

	dst := newDst(32)
	m.Generate(dst, 32)

	for i := 0; i < 10; i++ {
		if dst[0][i] != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 before delayed start fires", i, dst[0][i])
		}
	}
	for i := 15; i < 32; i++ {
		if dst[0][i] < 0.9 {
			t.Fatalf("dst[0][%d] = %v, want ~1.0 once delayed start fires", i, dst[0][i])
		}
	}
}

func TestCrossFadeOnSameChannel(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	a := newConstantSource(48000, 1.0, 100000)
	b := newConstantSource(48000, 1.0, 100000)

	optsA := DefaultPlayOptions()
	optsA.Channel = 0
	m.Play(a, optsA)

	dst := newDst(64)
	m.Generate(dst, 64) // let A become audible (isPlaying)

	optsB := DefaultPlayOptions()
	optsB.Channel = 0
	optsB.CrossFadeInSecs = 0.01
	optsB.CrossFadeOutSecs = 0.01
	m.Play(b, optsB)

	dst2 := newDst(1024)
	m.Generate(dst2, 1024)

	for i, v := range dst2[0] {
		if v < -2 || v > 2 {
			t.Fatalf("dst2[0][%d] = %v out of sane bounds during cross-fade", i, v)
		}
	}
}

func TestMasterVolumeMuteThenUnmute(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	m.SetMasterVolume(0)

	src := newConstantSource(48000, 1.0, 100000)
	m.Play(src, DefaultPlayOptions())

	dst := newDst(4096)
	m.Generate(dst, 4096)

	maxAbs := float32(0)
	for _, v := range dst[0] {
		av := v
		if av < 0 {
			av = -av
		}
		if av > maxAbs {
			maxAbs = av
		}
	}
	if maxAbs > 0.01 {
		t.Fatalf("max(|out|) = %v, want < 0.01 while muted", maxAbs)
	}

	m.SetMasterVolume(1)
	dst2 := newDst(4096)
	m.Generate(dst2, 4096)

	maxAbs2 := float32(0)
	for _, v := range dst2[0] {
		av := v
		if av < 0 {
			av = -av
		}
		if av > maxAbs2 {
			maxAbs2 = av
		}
	}
	if maxAbs2 < 0.5 {
		t.Fatalf("max(|out2|) = %v, want near source amplitude after unmuting", maxAbs2)
	}
}

func TestPlayDropsSilentlyWhenNoIdleChannel(t *testing.T) {
	m := newLoopbackMixer(t, 1)
	src1 := newConstantSource(48000, 1.0, 100000)
	src2 := newConstantSource(48000, 1.0, 100000)

	opts := DefaultPlayOptions()
	opts.Channel = AnyMixerChannel
	opts.FadeInSecs = 0
	m.Play(src1, opts)

	// occupy the only channel's slot 0 so a second "any channel" play
	// has nowhere to go; should be dropped, not panic.
	m.Play(src2, opts)
}

func TestChannelOutOfRangePanics(t *testing.T) {
	m := newLoopbackMixer(t, 4)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range channel")
		}
	}()
	m.Stop(99, 0)
}

func TestMixerErrorsWithoutBackendWhenNotLoopback(t *testing.T) {
	m := New(MixerOptions{SampleRate: 48000, NumChannels: 4, IsLoopback: false}, nil)
	if !m.IsErrored() {
		t.Fatal("expected mixer to enter errored state with a nil backend")
	}
	if m.LastErrorString() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestLoopbackMixAddsRatherThanOverwrites(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	src := newConstantSource(48000, 1.0, 100000)
	m.Play(src, DefaultPlayOptions())

	dst := newDst(64)
	for i := range dst[0] {
		dst[0][i] = 0.25
		dst[1][i] = 0.25
	}

	m.LoopbackMix(dst, 64)

	for i, v := range dst[0] {
		if v < 0.25 {
			t.Fatalf("dst[0][%d] = %v, want >= 0.25 (mixed content added, not overwritten)", i, v)
		}
	}
}

func TestLoopbackMixIntoSilentBufferMatchesGenerate(t *testing.T) {
	m1 := newLoopbackMixer(t, 8)
	m2 := newLoopbackMixer(t, 8)
	src1 := newConstantSource(48000, 1.0, 1000)
	src2 := newConstantSource(48000, 1.0, 1000)
	m1.Play(src1, DefaultPlayOptions())
	m2.Play(src2, DefaultPlayOptions())

	generated := newDst(128)
	m1.Generate(generated, 128)

	mixed := newDst(128)
	m2.LoopbackMix(mixed, 128)

	for i := range generated[0] {
		if mixed[0][i] != generated[0][i] {
			t.Fatalf("dst[0][%d] = %v, want %v (mix into silence == generate)", i, mixed[0][i], generated[0][i])
		}
	}
}

func TestPlaybackTimeInSecondsAdvancesWithoutLatency(t *testing.T) {
	m := newLoopbackMixer(t, 8)
	if got := m.PlaybackTimeInSeconds(); got != 0 {
		t.Fatalf("PlaybackTimeInSeconds before any Generate = %v, want 0", got)
	}

	dst := newDst(4800)
	m.Generate(dst, 4800)

	got := m.PlaybackTimeInSeconds()
	want := 4800.0 / 48000.0
	if got < want-1e-6 || got > want+1e-6 {
		t.Fatalf("PlaybackTimeInSeconds = %v, want %v (no backend reports latency in loopback mode)", got, want)
	}
}
