// Package audio provides the capture devices behind the answer flow and the
// WAV encoding the transcription service expects.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/mockprep/coach-gateway/internal/capture"
)

const (
	bitDepth      = 16
	numChannels   = 1
	formatPCM     = 1
	bytesPerFrame = bitDepth / 8 * numChannels
)

var (
	ErrInvalidWAV     = errors.New("not a valid WAV file")
	ErrEmptyRecording = errors.New("recording contains no audio")
	ErrAudioTooLarge  = errors.New("recording exceeds the size limit")
)

// EncodeWAV encodes mono 16-bit samples as a WAV file.
func EncodeWAV(samples []int, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyRecording
	}
	buf := &memFile{}
	enc := wav.NewEncoder(buf, sampleRate, bitDepth, numChannels, formatPCM)
	err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeClip validates a WAV file and wraps it as a clip with its duration.
func DecodeClip(data []byte) (capture.Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return capture.Clip{}, ErrInvalidWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return capture.Clip{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	bytesPerSec := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth) / 8
	if bytesPerSec == 0 {
		return capture.Clip{}, ErrInvalidWAV
	}
	d := time.Duration(dec.PCMLen()) * time.Second / time.Duration(bytesPerSec)
	return capture.Clip{Data: data, Duration: d}, nil
}

// Duration is the playback length of n mono samples.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch the header sizes on Close.
type memFile struct {
	data []byte
	pos  int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	copy(m.data[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.data)
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	next := base + int(offset)
	if next < 0 {
		return 0, errors.New("seek: negative position")
	}
	m.pos = next
	return int64(next), nil
}

func (m *memFile) Bytes() []byte { return m.data }
