package channel

import "testing"

// fakeSource emits a constant-value signal forever (loopCount never
// drops to 0 unless told to by the test via finiteAfter).
type fakeSource struct {
	value       float32
	finiteAfter int // frames after which MixIntoBuffer reports end-of-source; 0 = infinite
	produced    int
}

func (f *fakeSource) PrepareToPlay(float32) {}

func (f *fakeSource) MixIntoBuffer(dst [2][]float32, frames int, frameOffset *int, loopCount *int, volumeRamp []float32, volume [2]float32) {
	n := frames
	if f.finiteAfter > 0 {
		remaining := f.finiteAfter - *frameOffset
		if remaining < 0 {
			remaining = 0
		}
		if n > remaining {
			n = remaining
		}
	}
	for c := 0; c < 2; c++ {
		for i := 0; i < n; i++ {
			dst[c][i] += f.value * volumeRamp[i] * volume[c]
		}
	}
	*frameOffset += n
	f.produced += n
	if n < frames {
		*loopCount = 0
	}
}

func newDst(frames int) [2][]float32 {
	return [2][]float32{make([]float32, frames), make([]float32, frames)}
}

func TestStartPlayingImmediateNoFadeGoesStraightToConstant(t *testing.T) {
	ch := &Channel{}
	src := &fakeSource{value: 1}
	ch.StartPlaying(src, 1, 1, 0, -1, 0, 0, 0)

	dst := newDst(10)
	ch.ProduceSound(dst, 10, 44100)

	for i, v := range dst[0] {
		if v != 1 {
			t.Fatalf("dst[0][%d] = %v, want 1 (no fade-in requested)", i, v)
		}
	}
}

func TestStartPlayingWithFadeInRampsUp(t *testing.T) {
	ch := &Channel{}
	src := &fakeSource{value: 1}
	ch.StartPlaying(src, 1, 1, 0, -1, 0, 0, 0.01) // 10ms fade-in

	dst := newDst(4)
	ch.ProduceSound(dst, 4, 44100)

	if dst[0][0] <= 0 {
		t.Fatal("first sample of a fade-in should already be above zero (ramp, not a jump)")
	}
	for i := 1; i < len(dst[0]); i++ {
		if dst[0][i] < dst[0][i-1] {
			t.Fatalf("fade-in ramp must be monotonically non-decreasing, got %v after %v", dst[0][i], dst[0][i-1])
		}
	}
}

func TestDelayedStartSkipsSilentPrefix(t *testing.T) {
	ch := &Channel{}
	src := &fakeSource{value: 1}
	// frameOffset = -5: the first 5 samples of a 10-frame block are silent.
	ch.StartPlaying(src, 1, 1, -5, -1, 0, 0, 0)

	dst := newDst(10)
	ch.ProduceSound(dst, 10, 44100)

	for i := 0; i < 5; i++ {
		if dst[0][i] != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 before delayed start fires", i, dst[0][i])
		}
	}
	for i := 5; i < 10; i++ {
		if dst[0][i] != 1 {
			t.Fatalf("dst[0][%d] = %v, want 1 once the delayed start fires", i, dst[0][i])
		}
	}
}

func TestDelayedStartNotYetReachedAdvancesOffsetOnly(t *testing.T) {
	ch := &Channel{}
	src := &fakeSource{value: 1}
	ch.StartPlaying(src, 1, 1, -100, -1, 0, 0, 0)

	dst := newDst(10)
	ch.ProduceSound(dst, 10, 44100)

	for i, v := range dst[0] {
		if v != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 (start not yet reached)", i, v)
		}
	}
	if src.produced != 0 {
		t.Fatalf("source should not have been asked to produce anything yet, got %d frames", src.produced)
	}
}

func TestChannelGoesIdleWhenSourceEnds(t *testing.T) {
	ch := &Channel{}
	src := &fakeSource{value: 1, finiteAfter: 5}
	ch.StartPlaying(src, 1, 1, 0, -1, 0, 0, 0)

	if ch.IsSlot0Idle() {
		t.Fatal("slot 0 should be occupied right after StartPlaying")
	}

	dst := newDst(10)
	ch.ProduceSound(dst, 10, 44100)

	if !ch.IsSlot0Idle() {
		t.Fatal("slot 0 should go idle once the source reports end of stream")
	}
}

func TestStopWithZeroFadeGoesIdleImmediately(t *testing.T) {
	ch := &Channel{}
	src := &fakeSource{value: 1}
	ch.StartPlaying(src, 1, 1, 0, -1, 0, 0, 0)
	ch.Stop(0)

	if !ch.IsSlot0Idle() {
		t.Fatal("Stop(0) should silence slot 0 immediately")
	}

	dst := newDst(4)
	ch.ProduceSound(dst, 4, 44100)
	for i, v := range dst[0] {
		if v != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 after immediate stop", i, v)
		}
	}
}

func TestStopWithFadeOutRampsDownThenGoesIdle(t *testing.T) {
	ch := &Channel{}
	src := &fakeSource{value: 1}
	ch.StartPlaying(src, 1, 1, 0, -1, 0, 0, 0)
	ch.Stop(0.001) // 1ms fade-out, about 44 samples at 44.1kHz, well under the 100-sample block

	dst := newDst(100)
	ch.ProduceSound(dst, 100, 44100)

	if !ch.IsSlot0Idle() {
		t.Fatal("slot 0 should have gone idle once the 1ms fade-out completed within a 100-sample block")
	}
	if dst[0][0] <= 0 {
		t.Fatal("fade-out should start from the current (nonzero) gain, not jump to zero")
	}
}

func TestCrossFadeRotatesPreviousSlotIntoSlot1(t *testing.T) {
	ch := &Channel{}
	first := &fakeSource{value: 1}
	ch.StartPlaying(first, 1, 1, 0, -1, 0, 0, 0)

	dst := newDst(4)
	ch.ProduceSound(dst, 4, 44100) // let first slot become audible (isPlaying)

	second := &fakeSource{value: 0.5}
	ch.StartPlaying(second, 1, 1, 0, -1, 0.01, 0.01, 0.01)

	before := first.produced
	dst2 := newDst(4)
	ch.ProduceSound(dst2, 4, 44100)

	if first.produced == before {
		t.Fatal("previous slot should keep producing briefly while it cross-fades out")
	}
	if second.produced == 0 {
		t.Fatal("new slot should already be producing audio during the cross-fade")
	}
}
