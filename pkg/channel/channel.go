// Package channel implements the mixer's per-voice playback state
// machine: up to two overlapping SoundSlots per Channel, so a new
// start_playing can cross-fade against whatever the channel was
// already doing.
package channel

// Source is what a Channel plays: an AudioSource's MixIntoBuffer and
// PrepareToPlay, kept as a narrow interface so this package doesn't
// depend on how a source decodes or resamples.
type Source interface {
	MixIntoBuffer(dst [2][]float32, frames int, frameOffset *int, loopCount *int, volumeRamp []float32, volume [2]float32)
	PrepareToPlay(mixerRate float32)
}

type fadeState int

const (
	idle fadeState = iota
	fadingIn
	constant
	fadingOut
)

type slot struct {
	source Source

	volL, volR  float32
	frameOffset int
	loopCount   int

	state        fadeState
	fadeGain     float32
	fadeDuration float32

	fadeOutFinished bool
}

func (sl *slot) isPlaying() bool {
	return sl.state != idle && sl.frameOffset >= 0
}

func (sl *slot) isPlayingOrPending() bool {
	return sl.state != idle
}

// begin transitions the slot into fadingIn (or directly to constant,
// at unity gain, if fadeDuration is zero).
func (sl *slot) begin(fadeDuration float32) {
	if fadeDuration == 0 {
		sl.state = constant
		sl.fadeGain = 1
		return
	}
	sl.state = fadingIn
	sl.fadeGain = 0
	sl.fadeDuration = fadeDuration
}

// beginFadeOut transitions the slot into fadingOut (or directly to
// idle if duration is zero).
func (sl *slot) beginFadeOut(duration float32) {
	if duration == 0 {
		sl.state = idle
		sl.loopCount = 0
		return
	}
	sl.state = fadingOut
	sl.fadeDuration = duration
}

// buildVolumeRamp fills ramp with this slot's per-sample gain for the
// block, stepping the fade state machine. fadeOutFinished is reset
// here and set if a fade-out reaches zero during this block.
func (sl *slot) buildVolumeRamp(ramp []float32, sampleRate float32) {
	sl.fadeOutFinished = false

	var increment float32
	if sl.fadeDuration > 0 {
		increment = 1 / (sampleRate * sl.fadeDuration)
	}

	for i := range ramp {
		switch sl.state {
		case idle:
			ramp[i] = 0
		case constant:
			ramp[i] = 1
		case fadingIn:
			sl.fadeGain += increment
			if sl.fadeGain >= 1 {
				sl.fadeGain = 1
				sl.state = constant
			}
			ramp[i] = sl.fadeGain
		case fadingOut:
			sl.fadeGain -= increment
			if sl.fadeGain <= 0 {
				sl.fadeGain = 0
				sl.fadeOutFinished = true
			}
			ramp[i] = sl.fadeGain
		}
	}
}

// Channel is one voice in the mixer's channel pool: two SoundSlots so
// a new StartPlaying can cross-fade out whatever was already playing.
type Channel struct {
	slots [2]slot

	rampBuf []float32 // reused across ProduceSound calls
}

// IsSlot0Idle reports whether this channel's primary slot is free,
// used by the mixer to pick "any channel" for a new play command.
func (ch *Channel) IsSlot0Idle() bool {
	return ch.slots[0].state == idle
}

// StartPlaying begins playback of src on slot 0, rotating whatever was
// there into slot 1 and resolving cross-fade/interrupt behavior against
// it per the rules in produce_sound's caller (the mixer's Play).
func (ch *Channel) StartPlaying(
	src Source,
	volL, volR float32,
	frameOffset int,
	loopCount int,
	crossFadeIn, crossFadeOut, fadeIn float32,
) {
	ch.slots[1] = ch.slots[0]
	ch.slots[0] = slot{
		source:      src,
		volL:        volL,
		volR:        volR,
		frameOffset: frameOffset,
		loopCount:   loopCount,
	}

	prev := &ch.slots[1]
	switch {
	case prev.isPlaying():
		prev.beginFadeOut(crossFadeOut)
		ch.slots[0].begin(crossFadeIn)
	case prev.isPlayingOrPending():
		prev.state = idle
		ch.slots[0].begin(fadeIn)
	default:
		ch.slots[0].begin(fadeIn)
	}
}

// Stop fades out (or silences immediately, if fadeOutSecs is zero)
// every non-idle slot.
func (ch *Channel) Stop(fadeOutSecs float32) {
	for i := range ch.slots {
		sl := &ch.slots[i]
		if sl.state != idle {
			sl.beginFadeOut(fadeOutSecs)
		}
	}
}

func (ch *Channel) ensureRampCap(n int) []float32 {
	if cap(ch.rampBuf) < n {
		ch.rampBuf = make([]float32, n)
	}
	return ch.rampBuf[:n]
}

// ProduceSound mixes every active slot's audio into dst (one slice
// per output channel, both exactly frames long), handling delayed
// starts, volume ramps, looping and slot retirement.
func (ch *Channel) ProduceSound(dst [2][]float32, frames int, sampleRate float32) {
	for i := range ch.slots {
		sl := &ch.slots[i]
		if sl.loopCount == 0 {
			continue
		}

		d0, d1, n := dst[0], dst[1], frames

		if sl.frameOffset+frames <= 0 {
			sl.frameOffset += frames
			continue
		}
		if sl.frameOffset < 0 {
			shift := -sl.frameOffset
			d0 = d0[shift:]
			d1 = d1[shift:]
			n = frames - shift
			sl.frameOffset = 0
		}

		ramp := ch.ensureRampCap(n)
		sl.buildVolumeRamp(ramp, sampleRate)

		sl.source.MixIntoBuffer([2][]float32{d0, d1}, n, &sl.frameOffset, &sl.loopCount, ramp, [2]float32{sl.volL, sl.volR})

		if sl.fadeOutFinished || sl.loopCount == 0 {
			sl.state = idle
			sl.loopCount = 0
		}
	}
}
