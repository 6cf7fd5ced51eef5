package sidechain

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/nerrad567/mixroute-core/internal/audio"
)

// BusConfig holds detector parameters for a Bus.
type BusConfig struct {
	SampleRate  int     `yaml:"sample_rate" json:"sample_rate"`
	Channels    int     `yaml:"channels" json:"channels"`
	AttackMS    float64 `yaml:"attack_ms" json:"attack_ms"`
	ReleaseMS   float64 `yaml:"release_ms" json:"release_ms"`
	RMSWindowMS float64 `yaml:"rms_window_ms" json:"rms_window_ms"`
	PeakDecay   float64 `yaml:"peak_decay" json:"peak_decay"`
	HighPassHz  float64 `yaml:"high_pass_hz" json:"high_pass_hz"` // 0 disables the filter
}

// DefaultBusConfig returns a stereo 48 kHz detector with 1 ms attack,
// 50 ms release, 100 ms RMS window and ×0.9995 peak decay per buffer.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		SampleRate:  48000,
		Channels:    2,
		AttackMS:    1,
		ReleaseMS:   50,
		RMSWindowMS: 100,
		PeakDecay:   0.9995,
	}
}

// Validate checks the configuration.
func (c BusConfig) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive", ErrInvalidBusConfig)
	case c.Channels <= 0:
		return fmt.Errorf("%w: channels must be positive", ErrInvalidBusConfig)
	case c.AttackMS <= 0 || c.ReleaseMS <= 0:
		return fmt.Errorf("%w: attack_ms and release_ms must be positive", ErrInvalidBusConfig)
	case c.RMSWindowMS <= 0:
		return fmt.Errorf("%w: rms_window_ms must be positive", ErrInvalidBusConfig)
	case c.PeakDecay <= 0 || c.PeakDecay > 1:
		return fmt.Errorf("%w: peak_decay must be in (0, 1]", ErrInvalidBusConfig)
	case c.HighPassHz < 0 || c.HighPassHz >= float64(c.SampleRate)/2:
		return fmt.Errorf("%w: high_pass_hz must be in [0, nyquist)", ErrInvalidBusConfig)
	}
	return nil
}

// timeCoeff converts a time constant in ms to a one-pole smoothing
// coefficient.
func timeCoeff(ms float64, sampleRate int) float64 {
	return math.Exp(-1 / (ms / 1000 * float64(sampleRate)))
}

// highPassAlpha returns the one-pole low-pass coefficient whose residual
// forms the high-pass.
func highPassAlpha(cutoff float64, sampleRate int) float64 {
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	return dt / (rc + dt)
}

// Meters is a snapshot of a bus's detector state, one entry per channel.
type Meters struct {
	Envelope []float64 `json:"envelope"`
	Peak     []float64 `json:"peak"`
	RMS      []float64 `json:"rms"`
}

// Bus conditions a signal for sidechain detection and meters it. A Bus is
// itself an audio.Source: reading it pulls from its input and returns the
// conditioned samples.
type Bus struct {
	id   string
	name string
	cfg  BusConfig

	mu           sync.Mutex
	input        audio.Source
	inputGain    float64
	hpAlpha      float64 // 0 when the filter is off
	lowpass      []float64
	attackCoeff  float64
	releaseCoeff float64
	envelope     []float64
	peak         []float64
	rms          []float64
	rmsSum       []float64
	rmsFrames    int
	rmsWindow    int
}

// NewBus creates a bus with an explicit ID.
func NewBus(id, name string, cfg BusConfig) (*Bus, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = id
	}

	ch := cfg.Channels
	b := &Bus{
		id:           id,
		name:         name,
		cfg:          cfg,
		inputGain:    1,
		lowpass:      make([]float64, ch),
		attackCoeff:  timeCoeff(cfg.AttackMS, cfg.SampleRate),
		releaseCoeff: timeCoeff(cfg.ReleaseMS, cfg.SampleRate),
		envelope:     make([]float64, ch),
		peak:         make([]float64, ch),
		rms:          make([]float64, ch),
		rmsSum:       make([]float64, ch),
		rmsWindow:    max(1, int(cfg.RMSWindowMS/1000*float64(cfg.SampleRate))),
	}
	if cfg.HighPassHz > 0 {
		b.hpAlpha = highPassAlpha(cfg.HighPassHz, cfg.SampleRate)
	}
	return b, nil
}

// ID returns the bus ID.
func (b *Bus) ID() string { return b.id }

// Name returns the display name.
func (b *Bus) Name() string { return b.name }

// Config returns the bus configuration.
func (b *Bus) Config() BusConfig { return b.cfg }

// ChannelCount implements audio.Source.
func (b *Bus) ChannelCount() int { return b.cfg.Channels }

// SetInput sets the tapped source. Nil detaches it.
func (b *Bus) SetInput(src audio.Source) {
	b.mu.Lock()
	b.input = src
	b.mu.Unlock()
}

// InputGain returns the linear input gain.
func (b *Bus) InputGain() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inputGain
}

// SetInputGain sets the linear input gain; negative values clamp to 0.
func (b *Bus) SetInputGain(g float64) {
	if math.IsNaN(g) || g < 0 {
		g = 0
	}
	b.mu.Lock()
	b.inputGain = g
	b.mu.Unlock()
}

// SetHighPass sets the filter cutoff in Hz; 0 disables it.
func (b *Bus) SetHighPass(hz float64) error {
	if hz < 0 || hz >= float64(b.cfg.SampleRate)/2 || math.IsNaN(hz) {
		return fmt.Errorf("%w: high-pass cutoff %.1f Hz", ErrInvalidBusConfig, hz)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.HighPassHz = hz
	if hz == 0 {
		b.hpAlpha = 0
	} else {
		b.hpAlpha = highPassAlpha(hz, b.cfg.SampleRate)
	}
	clear(b.lowpass)
	return nil
}

// Read implements audio.Source. It pulls count samples from the input
// (silence when there is none), conditions them in place and updates the
// meters. The input is read without holding the bus lock.
func (b *Bus) Read(buf []float32, offset, count int) int {
	b.mu.Lock()
	input := b.input
	b.mu.Unlock()

	region := buf[offset : offset+count]
	n := count
	if input != nil {
		n = min(max(input.Read(buf, offset, count), 0), count)
		audio.Silence(region[n:])
	} else {
		audio.Silence(region)
	}
	b.Process(region)
	return count
}

// Process conditions interleaved samples in place and updates the meters.
func (b *Bus) Process(samples []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := b.cfg.Channels
	for c := range ch {
		b.peak[c] *= b.cfg.PeakDecay
	}

	for i, s := range samples {
		c := i % ch
		x := float64(s) * b.inputGain

		if b.hpAlpha > 0 {
			b.lowpass[c] += b.hpAlpha * (x - b.lowpass[c])
			x -= b.lowpass[c]
		}
		samples[i] = float32(x)

		level := math.Abs(x)
		coeff := b.releaseCoeff
		if level > b.envelope[c] {
			coeff = b.attackCoeff
		}
		b.envelope[c] = coeff*b.envelope[c] + (1-coeff)*level

		if level > b.peak[c] {
			b.peak[c] = level
		}
		b.rmsSum[c] += x * x

		if c == ch-1 {
			b.rmsFrames++
			if b.rmsFrames >= b.rmsWindow {
				for k := range ch {
					b.rms[k] = math.Sqrt(b.rmsSum[k] / float64(b.rmsFrames))
					b.rmsSum[k] = 0
				}
				b.rmsFrames = 0
			}
		}
	}
	busSamples.Add(float64(len(samples)))
}

// Envelope returns the envelope of channel c, or 0 if out of range.
func (b *Bus) Envelope(c int) float64 { return b.meter(b.envelope, c) }

// Peak returns the peak level of channel c, or 0 if out of range.
func (b *Bus) Peak(c int) float64 { return b.meter(b.peak, c) }

// RMS returns the last completed RMS window of channel c, or 0.
func (b *Bus) RMS(c int) float64 { return b.meter(b.rms, c) }

func (b *Bus) meter(values []float64, c int) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c < 0 || c >= len(values) {
		return 0
	}
	return values[c]
}

// Meters returns a snapshot of every channel's meters.
func (b *Bus) Meters() Meters {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Meters{
		Envelope: append([]float64(nil), b.envelope...),
		Peak:     append([]float64(nil), b.peak...),
		RMS:      append([]float64(nil), b.rms...),
	}
}

// Reset clears filter and meter state.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.lowpass)
	clear(b.envelope)
	clear(b.peak)
	clear(b.rms)
	clear(b.rmsSum)
	b.rmsFrames = 0
}

// BusInfo is a serialisable snapshot of a bus.
type BusInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Config    BusConfig `json:"config"`
	InputGain float64   `json:"input_gain"`
	HasInput  bool      `json:"has_input"`
	Meters    Meters    `json:"meters"`
}

// Info returns a snapshot of the bus.
func (b *Bus) Info() BusInfo {
	meters := b.Meters()
	b.mu.Lock()
	defer b.mu.Unlock()
	return BusInfo{
		ID:        b.id,
		Name:      b.name,
		Config:    b.cfg,
		InputGain: b.inputGain,
		HasInput:  b.input != nil,
		Meters:    meters,
	}
}
