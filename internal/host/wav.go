package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when a file is not a readable PCM WAV
var ErrNotWAV = errors.New("not a valid WAV file")

// PCM is decoded planar audio
type PCM struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of sample frames per channel
func (p *PCM) Frames() int {
	if len(p.Channels) == 0 {
		return 0
	}
	return len(p.Channels[0])
}

// DecodeWAV reads a whole PCM WAV stream into normalized planar floats
func DecodeWAV(r io.ReadSeeker) (*PCM, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}

	numChans := int(d.NumChans)
	if numChans <= 0 {
		return nil, ErrNotWAV
	}
	return &PCM{
		SampleRate: int(d.SampleRate),
		Channels:   deinterleave(buf, numChans, int(d.BitDepth)),
	}, nil
}

// DecodeWAVFile opens and decodes the WAV file at path
func DecodeWAVFile(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeWAV(f)
}

func deinterleave(buf *audio.IntBuffer, numChans, bitDepth int) [][]float32 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	offset := 0
	// 8-bit PCM is unsigned
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(buf.Data) / numChans
	out := make([][]float32, numChans)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChans; ch++ {
			out[ch][i] = float32(buf.Data[i*numChans+ch]-offset) / scale
		}
	}
	return out
}

// WAVSource is a Source backed by a WAV file decoded into memory
type WAVSource struct {
	path string
	pcm  *PCM

	alive atomic.Bool
}

// OpenWAV decodes the file at path and returns a live source for it
func OpenWAV(path string) (*WAVSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return OpenWAVAs(abs, abs)
}

// OpenWAVAs decodes the file at path but names the source after origin,
// the file or URL the WAV was converted from. The file at path is not
// needed once this returns.
func OpenWAVAs(path, origin string) (*WAVSource, error) {
	pcm, err := DecodeWAVFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &WAVSource{path: origin, pcm: pcm}
	s.alive.Store(true)
	return s, nil
}

func (s *WAVSource) Name() string              { return filepath.Base(s.path) }
func (s *WAVSource) Path() string              { return s.path }
func (s *WAVSource) SampleRate() float64       { return float64(s.pcm.SampleRate) }
func (s *WAVSource) NumChannels() int          { return len(s.pcm.Channels) }
func (s *WAVSource) Length() int64             { return int64(s.pcm.Frames()) }
func (s *WAVSource) IsAlive() bool             { return s.alive.Load() }
func (s *WAVSource) SampleAccessEnabled() bool { return true }

// PersistentID is the absolute path or URL the source was opened from
func (s *WAVSource) PersistentID() string { return s.path }

// Close releases the source; subsequent reads fail with ErrInvalidated
func (s *WAVSource) Close() { s.alive.Store(false) }

// NewReader implements Source
func (s *WAVSource) NewReader() (Reader, error) {
	if !s.alive.Load() {
		return nil, ErrInvalidated
	}
	return &wavReader{src: s}, nil
}

type wavReader struct {
	src *WAVSource
}

func (r *wavReader) Read(dst [][]float32, start int64, n int) error {
	if !r.src.alive.Load() {
		return ErrInvalidated
	}
	length := r.src.Length()
	if start < 0 || n < 0 || start+int64(n) > length {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, start, start+int64(n), length)
	}
	for ch, data := range r.src.pcm.Channels {
		copy(dst[ch][:n], data[start:start+int64(n)])
	}
	return nil
}

func (r *wavReader) Close() error { return nil }

// WriteWAVFile encodes planar floats as a 16-bit PCM WAV at path
func WriteWAVFile(path string, sampleRate int, channels [][]float32) error {
	if len(channels) == 0 {
		return errors.New("no channels")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	numChans := len(channels)
	frames := len(channels[0])
	data := make([]int, frames*numChans)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChans; ch++ {
			data[i*numChans+ch] = FloatToPCM16(channels[ch][i])
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, numChans, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChans, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// FloatToPCM16 clamps v to [-1, 1] and scales it to a signed 16-bit sample
func FloatToPCM16(v float32) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(v * 32767)
}
