package mixer

import "errors"

// Error kinds of the mixer's errored state. The mixer latches
// ErrNoOutputDevice, ErrDeviceOpenFailed and ErrStreamUnrecoverable;
// the other kinds are declared but no code path returns them.
var (
	ErrDeviceOpenFailed         = errors.New("mixer: device open failed")
	ErrNoOutputDevice           = errors.New("mixer: no output device")
	ErrFormatUnsupported        = errors.New("mixer: output format unsupported (only f32 native-endian stereo is supported)")
	ErrChannelLayoutUnsupported = errors.New("mixer: channel layout unsupported")
	ErrStreamUnrecoverable      = errors.New("mixer: audio stream unrecoverable")
	ErrAllocationFailed         = errors.New("mixer: allocation failed")
	ErrSourceLoadFailed         = errors.New("mixer: source load failed")
	ErrDecoderError             = errors.New("mixer: decoder error")
)
