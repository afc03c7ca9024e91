package decodestream

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisStream decodes an Ogg Vorbis file block by block via
// jfreymuth/oggvorbis. Like MP3Stream, it is not realtime-safe.
type VorbisStream struct {
	dec         *oggvorbis.Reader
	numChannels int
	done        bool
}

// NewVorbisStream opens an Ogg Vorbis stream.
func NewVorbisStream(r io.Reader) (*VorbisStream, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &VorbisStream{dec: dec, numChannels: dec.Channels()}, nil
}

func (s *VorbisStream) NumChannels() int    { return s.numChannels }
func (s *VorbisStream) SampleRate() float32 { return float32(s.dec.SampleRate()) }
func (s *VorbisStream) RealtimeSafe() bool  { return false }

func (s *VorbisStream) LengthInFrames() (int64, bool) {
	length := s.dec.Length()
	if length <= 0 {
		return 0, false
	}
	return length, true
}

func (s *VorbisStream) ReadSamplesFloat(out []float32, frames int) (int, error) {
	if s.done || frames <= 0 {
		return 0, nil
	}

	want := frames * s.numChannels
	if len(out) < want {
		want = len(out) - len(out)%s.numChannels
	}

	n, err := s.dec.Read(out[:want])
	if n == 0 {
		s.done = true
		if err != nil && err != io.EOF {
			return 0, err
		}
		return 0, nil
	}
	if err == io.EOF {
		s.done = true
	} else if err != nil {
		return 0, err
	}

	return n / s.numChannels, nil
}
