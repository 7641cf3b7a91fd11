package host

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySource_Read(t *testing.T) {
	src := NewMemorySource("tone", 48000, [][]float32{
		{0, 0.1, 0.2, 0.3},
		{1, 0.9, 0.8, 0.7},
	})
	assert.Equal(t, 2, src.NumChannels())
	assert.Equal(t, int64(4), src.Length())
	assert.Equal(t, "tone", Name(src))

	r, err := src.NewReader()
	require.NoError(t, err)
	defer r.Close()

	dst := [][]float32{make([]float32, 2), make([]float32, 2)}
	require.NoError(t, r.Read(dst, 1, 2))
	assert.Equal(t, []float32{0.1, 0.2}, dst[0])
	assert.Equal(t, []float32{0.9, 0.8}, dst[1])

	err = r.Read(dst, 3, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMemorySource_AccessAndLiveness(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *MemorySource)
		wantErr error
	}{
		{"access disabled", func(s *MemorySource) { s.SetSampleAccess(false) }, ErrAccessDisabled},
		{"invalidated", func(s *MemorySource) { s.Invalidate() }, ErrInvalidated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewSineSource("s", 16000, 1, 100, 440)
			tt.setup(src)
			_, err := src.NewReader()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMemorySource_InvalidateAfter(t *testing.T) {
	src := NewSineSource("s", 16000, 1, 100, 440)
	src.InvalidateAfter(2)

	r, err := src.NewReader()
	require.NoError(t, err)
	dst := [][]float32{make([]float32, 10)}

	require.NoError(t, r.Read(dst, 0, 10))
	require.NoError(t, r.Read(dst, 10, 10))
	assert.False(t, src.IsAlive())
	assert.ErrorIs(t, r.Read(dst, 20, 10), ErrInvalidated)
}

func TestWAV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	left := []float32{0, 0.5, -0.5, 0.25}
	right := []float32{0.1, -0.1, 0.2, -0.2}
	require.NoError(t, WriteWAVFile(path, 22050, [][]float32{left, right}))

	src, err := OpenWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 22050.0, src.SampleRate())
	assert.Equal(t, 2, src.NumChannels())
	assert.Equal(t, int64(4), src.Length())
	assert.Equal(t, "stereo.wav", src.Name())
	assert.True(t, filepath.IsAbs(src.PersistentID()))

	r, err := src.NewReader()
	require.NoError(t, err)
	dst := [][]float32{make([]float32, 4), make([]float32, 4)}
	require.NoError(t, r.Read(dst, 0, 4))
	for i := range left {
		assert.InDelta(t, left[i], dst[0][i], 1e-3)
		assert.InDelta(t, right[i], dst[1][i], 1e-3)
	}

	src.Close()
	assert.ErrorIs(t, r.Read(dst, 0, 4), ErrInvalidated)
}

func TestOpenWAV_Invalid(t *testing.T) {
	_, err := OpenWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestFloatToPCM16(t *testing.T) {
	assert.Equal(t, 32767, FloatToPCM16(2))
	assert.Equal(t, -32767, FloatToPCM16(-2))
	assert.Equal(t, 0, FloatToPCM16(0))
}
