package effect

import "testing"

func TestParameterClampsOnSet(t *testing.T) {
	p := Parameter{Name: "x", Min: 0, Max: 1, Value: 1}
	p.Set(5)
	if p.Value != 1 {
		t.Fatalf("Value = %v, want clamped to 1", p.Value)
	}
	p.Set(-5)
	if p.Value != 0 {
		t.Fatalf("Value = %v, want clamped to 0", p.Value)
	}
}

func TestEffectGainDefaultsToUnity(t *testing.T) {
	g := NewEffectGain()
	g.PrepareToPlay(44100, 512, 2)

	buf := StereoBlock{make([]float32, 4), make([]float32, 4)}
	for i := range buf[0] {
		buf[0][i] = 1
		buf[1][i] = 1
	}

	g.ProcessAudio(&buf, ProcessInfo{SampleRate: 44100})

	for i, v := range buf[0] {
		if v <= 0 || v > 1 {
			t.Fatalf("buf[0][%d] = %v, want in (0,1] approaching unity", i, v)
		}
	}
}

func TestEffectGainSmoothsTowardZero(t *testing.T) {
	g := NewEffectGain()
	g.PrepareToPlay(44100, 512, 2)
	g.SetGain(0)

	buf := StereoBlock{make([]float32, 4000), make([]float32, 4000)}
	for i := range buf[0] {
		buf[0][i] = 1
		buf[1][i] = 1
	}

	g.ProcessAudio(&buf, ProcessInfo{SampleRate: 44100})

	if buf[0][0] >= 1 {
		t.Fatal("first sample should already be attenuated below 1 as the smoother starts moving")
	}
	last := buf[0][len(buf[0])-1]
	if last > 0.01 {
		t.Fatalf("after 4000 samples (about 6 tau at 15ms/44.1kHz), gain should have settled near 0, got %v", last)
	}
}

func TestEffectGainClampsParameterRange(t *testing.T) {
	g := NewEffectGain()
	g.SetGain(2)
	if g.Gain() != 1 {
		t.Fatalf("Gain() = %v, want clamped to 1", g.Gain())
	}
	g.SetGain(-1)
	if g.Gain() != 0 {
		t.Fatalf("Gain() = %v, want clamped to 0", g.Gain())
	}
}

func TestEffectGainExposesOneParameter(t *testing.T) {
	g := NewEffectGain()
	params := g.Parameters()
	if len(params) != 1 || params[0].Name != "Gain" {
		t.Fatalf("Parameters() = %+v, want a single Gain parameter", params)
	}
}

func TestEffectCallbackInvokesFunctionWithUserData(t *testing.T) {
	var seen any
	cb := NewEffectCallback(func(buf *StereoBlock, info ProcessInfo) {
		seen = info.UserData
		buf[0][0] = 42
	}, "marker")

	buf := StereoBlock{make([]float32, 1), make([]float32, 1)}
	cb.ProcessAudio(&buf, ProcessInfo{})

	if seen != "marker" {
		t.Fatalf("UserData = %v, want marker", seen)
	}
	if buf[0][0] != 42 {
		t.Fatalf("buf[0][0] = %v, want 42", buf[0][0])
	}
	if cb.Parameters() != nil {
		t.Fatal("EffectCallback should expose no parameters")
	}
}
