package mixer

import "math"

// Constants from the mixer's external interface contract.
const (
	AnyMixerChannel    int32  = -1
	LoopForever        uint32 = math.MaxUint32
	MaxSoundPerChannel        = 2
	MaxFramesForEffects       = 512
	MaxInternalBuffering      = 1024
	ChunkFramesDecoder        = 128
)

// MixerOptions configures a Mixer at construction.
type MixerOptions struct {
	SampleRate  float32
	NumChannels int32
	IsLoopback  bool
}

// DefaultMixerOptions returns the documented defaults.
func DefaultMixerOptions() MixerOptions {
	return MixerOptions{
		SampleRate:  48000.0,
		NumChannels: 16,
		IsLoopback:  false,
	}
}

func (o MixerOptions) withDefaults() MixerOptions {
	d := DefaultMixerOptions()
	if o.SampleRate == 0 {
		o.SampleRate = d.SampleRate
	}
	if o.NumChannels == 0 {
		o.NumChannels = d.NumChannels
	}
	return o
}

// PlayOptions configures a single Play call.
type PlayOptions struct {
	Channel          int32
	Volume           float32
	Pan              float32
	DelayBeforePlay  float32
	StartTimeSecs    float32
	LoopCount        uint32
	CrossFadeInSecs  float32
	CrossFadeOutSecs float32
	FadeInSecs       float32
}

// DefaultPlayOptions returns the documented defaults.
func DefaultPlayOptions() PlayOptions {
	return PlayOptions{
		Channel:          AnyMixerChannel,
		Volume:           1.0,
		Pan:              0,
		DelayBeforePlay:  0,
		StartTimeSecs:    0,
		LoopCount:        1,
		CrossFadeInSecs:  0.0,
		CrossFadeOutSecs: 0.040,
		FadeInSecs:       0.0,
	}
}
