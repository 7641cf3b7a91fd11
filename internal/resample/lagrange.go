// Package resample converts mono float audio between sample rates with a
// streaming 4-point cubic Lagrange interpolator.
package resample

import (
	"fmt"
	"math"
)

// TargetRate is the sample rate the inference engine expects
const TargetRate = 16000

// Resampler is a stateful streaming sample-rate converter. State carries
// across Process calls so a stream can be fed in arbitrary chunk sizes.
// A Resampler is not safe for concurrent use.
type Resampler struct {
	ratio   float64
	history [4]float64
	pos     float64
}

// New creates a resampler from srcRate to dstRate. Both rates must be
// finite and positive.
func New(srcRate, dstRate float64) (*Resampler, error) {
	if !validRate(srcRate) {
		return nil, fmt.Errorf("invalid source sample rate %v", srcRate)
	}
	if !validRate(dstRate) {
		return nil, fmt.Errorf("invalid target sample rate %v", dstRate)
	}
	r := &Resampler{ratio: srcRate / dstRate}
	r.Reset()
	return r, nil
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsNaN(rate) && !math.IsInf(rate, 0)
}

// Ratio is input samples per output sample
func (r *Resampler) Ratio() float64 { return r.ratio }

// Reset clears interpolation history. The next output is aligned with the
// next input sample.
func (r *Resampler) Reset() {
	r.history = [4]float64{}
	// three samples must arrive before the first output at time zero
	r.pos = 3
}

// OutputCapacity returns a buffer size that always holds the output for
// n input samples.
func (r *Resampler) OutputCapacity(n int) int {
	return int(math.Ceil(float64(n)/r.ratio)) + 4
}

// Process consumes samples from in and writes interpolated samples to out.
// It stops when either in is exhausted or out is full, returning how many
// samples it consumed and produced. Callers loop until consumed == len(in).
func (r *Resampler) Process(in, out []float32) (consumed, produced int) {
	for {
		for r.pos >= 1 {
			if consumed >= len(in) {
				return consumed, produced
			}
			r.push(float64(in[consumed]))
			consumed++
			r.pos--
		}
		if produced >= len(out) {
			return consumed, produced
		}
		out[produced] = float32(r.interpolate(r.pos))
		produced++
		r.pos += r.ratio
	}
}

func (r *Resampler) push(v float64) {
	r.history[0] = r.history[1]
	r.history[1] = r.history[2]
	r.history[2] = r.history[3]
	r.history[3] = v
}

// interpolate evaluates the cubic through history at x = -1, 0, 1, 2 for
// t in [0, 1) between history[1] and history[2].
func (r *Resampler) interpolate(t float64) float64 {
	tp1 := t + 1
	tm1 := t - 1
	tm2 := t - 2
	c0 := -t * tm1 * tm2 / 6
	c1 := tp1 * tm1 * tm2 / 2
	c2 := -tp1 * t * tm2 / 2
	c3 := tp1 * t * tm1 / 6
	return c0*r.history[0] + c1*r.history[1] + c2*r.history[2] + c3*r.history[3]
}

// Downmix averages n frames of planar channels into dst with equal weights
func Downmix(dst []float32, channels [][]float32, n int) {
	switch len(channels) {
	case 0:
		clear(dst[:n])
		return
	case 1:
		copy(dst[:n], channels[0][:n])
		return
	}
	scale := 1 / float32(len(channels))
	for i := 0; i < n; i++ {
		var sum float32
		for _, ch := range channels {
			sum += ch[i]
		}
		dst[i] = sum * scale
	}
}

// ToMono16k downmixes and resamples a whole buffer in one pass
func ToMono16k(channels [][]float32, srcRate float64) ([]float32, error) {
	if len(channels) == 0 {
		return nil, nil
	}
	n := len(channels[0])
	mono := make([]float32, n)
	Downmix(mono, channels, n)
	if srcRate == TargetRate {
		return mono, nil
	}

	r, err := New(srcRate, TargetRate)
	if err != nil {
		return nil, err
	}
	out := make([]float32, r.OutputCapacity(n))
	consumed, produced := 0, 0
	for consumed < n {
		c, p := r.Process(mono[consumed:], out[produced:])
		consumed += c
		produced += p
		if c == 0 && p == 0 {
			break
		}
	}
	return out[:produced], nil
}
