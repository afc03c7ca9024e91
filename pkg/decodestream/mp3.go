package decodestream

import (
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Stream decodes an MP3 file block by block via go-mp3. Decoding
// touches an io.Reader on every call, so RealtimeSafe reports false
// and the mixer wraps this stream in a BufferedStream, matching the
// byte-buffer decode loop in the teacher pack's mp3.source.ReadSamples.
type MP3Stream struct {
	dec  *gomp3.Decoder
	buf  []byte
	done bool
}

// NewMP3Stream opens an MP3 stream. go-mp3 always decodes to stereo
// 16-bit PCM, matching the reference adapter's fixed channels=2.
func NewMP3Stream(r io.Reader) (*MP3Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &MP3Stream{dec: dec}, nil
}

func (s *MP3Stream) NumChannels() int    { return 2 }
func (s *MP3Stream) SampleRate() float32 { return float32(s.dec.SampleRate()) }
func (s *MP3Stream) RealtimeSafe() bool  { return false }

func (s *MP3Stream) LengthInFrames() (int64, bool) {
	length := s.dec.Length()
	if length < 0 {
		return 0, false
	}
	// go-mp3 reports Length in bytes of 16-bit stereo PCM.
	return length / (2 * 2), true
}

func (s *MP3Stream) ReadSamplesFloat(out []float32, frames int) (int, error) {
	if s.done || frames <= 0 {
		return 0, nil
	}

	bytesNeeded := frames * 2 * 2 // frames * channels * bytes-per-sample
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := io.ReadFull(s.dec, s.buf)
	if n == 0 {
		s.done = true
		if err != nil && err != io.EOF {
			return 0, err
		}
		return 0, nil
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		s.done = true
	} else if err != nil {
		return 0, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		low := uint16(s.buf[2*i])
		high := uint16(s.buf[2*i+1])
		out[i] = float32(int16(low|(high<<8))) / 32768.0
	}

	return samples / 2, nil
}
