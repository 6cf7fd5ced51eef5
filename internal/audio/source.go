package audio

import (
	"math"
	"sync/atomic"
)

// UnityTolerance is the distance from 1.0 inside which a gain is treated as
// unity and samples are copied instead of multiplied.
const UnityTolerance = 1e-4

// Source produces interleaved samples on demand.
type Source interface {
	// ChannelCount returns the number of interleaved channels.
	ChannelCount() int

	// Read fills buf[offset:offset+count] and returns the number of samples
	// written. A short read means the source is exhausted for this cycle.
	Read(buf []float32, offset, count int) int
}

// IsUnity reports whether gain is close enough to 1.0 to skip scaling.
func IsUnity(gain float64) bool {
	return math.Abs(gain-1) < UnityTolerance
}

// GainSource wraps a Source and scales everything it reads.
// The gain can be changed while the audio thread is reading.
type GainSource struct {
	src  Source
	gain atomic.Uint64 // math.Float64bits
}

// NewGainSource wraps src with the given linear gain.
func NewGainSource(src Source, gain float64) *GainSource {
	g := &GainSource{src: src}
	g.SetGain(gain)
	return g
}

// Unwrap returns the wrapped source.
func (g *GainSource) Unwrap() Source {
	return g.src
}

// Gain returns the current linear gain.
func (g *GainSource) Gain() float64 {
	return math.Float64frombits(g.gain.Load())
}

// SetGain changes the linear gain.
func (g *GainSource) SetGain(gain float64) {
	g.gain.Store(math.Float64bits(gain))
}

// ChannelCount implements Source.
func (g *GainSource) ChannelCount() int {
	return g.src.ChannelCount()
}

// Read implements Source.
func (g *GainSource) Read(buf []float32, offset, count int) int {
	n := min(max(g.src.Read(buf, offset, count), 0), count)
	gain := g.Gain()
	if IsUnity(gain) {
		return n
	}
	Scale(buf[offset:offset+n], float32(gain))
	return n
}

// Scale multiplies every sample in buf by gain.
func Scale(buf []float32, gain float32) {
	for i := range buf {
		buf[i] *= gain
	}
}

// Silence zeroes buf.
func Silence(buf []float32) {
	clear(buf)
}
