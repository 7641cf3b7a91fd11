package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, rate, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

func runAll(t *testing.T, r *Resampler, in []float32, chunk int) []float32 {
	t.Helper()
	var result []float32
	for off := 0; off < len(in); off += chunk {
		end := min(off+chunk, len(in))
		part := in[off:end]
		out := make([]float32, r.OutputCapacity(len(part)))
		consumed := 0
		for consumed < len(part) {
			c, p := r.Process(part[consumed:], out)
			consumed += c
			result = append(result, out[:p]...)
		}
	}
	return result
}

func TestNew_InvalidRates(t *testing.T) {
	tests := []struct {
		name     string
		src, dst float64
	}{
		{"zero source", 0, 16000},
		{"negative source", -1, 16000},
		{"nan source", math.NaN(), 16000},
		{"inf source", math.Inf(1), 16000},
		{"zero target", 48000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.src, tt.dst)
			assert.Error(t, err)
		})
	}
}

func TestProcess_OutputCount(t *testing.T) {
	tests := []struct {
		name    string
		srcRate float64
		n       int
		want    int
		delta   int
	}{
		{"48k to 16k", 48000, 480000, 160000, 0},
		{"44.1k to 16k", 44100, 441000, 160000, 4},
		{"16k passthrough", 16000, 16000, 16000, 4},
		{"8k to 16k", 8000, 8000, 16000, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.srcRate, TargetRate)
			require.NoError(t, err)
			out := runAll(t, r, make([]float32, tt.n), 8192)
			assert.InDelta(t, tt.want, len(out), float64(tt.delta))
		})
	}
}

func TestProcess_IntegerRatioPicksSamples(t *testing.T) {
	r, err := New(48000, 16000)
	require.NoError(t, err)
	in := sine(4800, 48000, 440)
	out := runAll(t, r, in, 1000)

	require.Len(t, out, 1600)
	for k := 0; k < len(out); k++ {
		assert.InDelta(t, in[3*k], out[k], 1e-6)
	}
}

func TestProcess_TracksSine(t *testing.T) {
	r, err := New(44100, 16000)
	require.NoError(t, err)
	out := runAll(t, r, sine(44100, 44100, 440), 8192)

	for k := 4; k < len(out); k++ {
		want := 0.5 * math.Sin(2*math.Pi*440*float64(k)/16000)
		assert.InDelta(t, want, out[k], 1e-3, "sample %d", k)
	}
}

func TestProcess_ChunkingIsTransparent(t *testing.T) {
	in := sine(20000, 22050, 300)

	a, err := New(22050, TargetRate)
	require.NoError(t, err)
	whole := runAll(t, a, in, len(in))

	b, err := New(22050, TargetRate)
	require.NoError(t, err)
	chunked := runAll(t, b, in, 777)

	require.Equal(t, len(whole), len(chunked))
	for i := range whole {
		assert.InDelta(t, whole[i], chunked[i], 1e-6)
	}
}

func TestProcess_SmallOutputBuffer(t *testing.T) {
	r, err := New(48000, TargetRate)
	require.NoError(t, err)
	in := make([]float32, 300)

	out := make([]float32, 10)
	c, p := r.Process(in, out)
	assert.Equal(t, 10, p)
	assert.Less(t, c, len(in))
}

func TestDownmix(t *testing.T) {
	dst := make([]float32, 3)
	Downmix(dst, [][]float32{{1, 0, -1}, {0, 0, 1}}, 3)
	assert.Equal(t, []float32{0.5, 0, 0}, dst)

	Downmix(dst, [][]float32{{0.3, 0.2, 0.1}}, 3)
	assert.Equal(t, []float32{0.3, 0.2, 0.1}, dst)
}

func TestToMono16k(t *testing.T) {
	left := sine(48000, 48000, 440)
	out, err := ToMono16k([][]float32{left, left}, 48000)
	require.NoError(t, err)
	assert.Len(t, out, 16000)

	same, err := ToMono16k([][]float32{left[:100]}, TargetRate)
	require.NoError(t, err)
	assert.Equal(t, left[:100], same)

	_, err = ToMono16k([][]float32{left}, 0)
	assert.Error(t, err)
}
