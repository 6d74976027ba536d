package oscillator

import (
	"fmt"
	"math"
)

const (
	TwoPi = 2 * math.Pi

	// Amplitude is the fixed headroom applied to every generated sample.
	Amplitude = 0.3
)

type Config struct {
	Frequency  float64 // Hz
	SampleRate float64 // Hz, negotiated with the host
	Phase      float64 // initial phase in radians
}

// State is a phase accumulator for a single sine voice.
// It is owned by exactly one realtime processor and must not be shared.
type State struct {
	frequency  float64
	sampleRate float64
	phase      float64
	increment  float64
}

func (c Config) New() (*State, error) {
	if !(c.Frequency > 0) || math.IsInf(c.Frequency, 0) {
		return nil, fmt.Errorf("invalid frequency: %v", c.Frequency)
	}
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return nil, fmt.Errorf("invalid sample rate: %v", c.SampleRate)
	}
	if math.IsNaN(c.Phase) || math.IsInf(c.Phase, 0) {
		return nil, fmt.Errorf("invalid phase: %v", c.Phase)
	}

	// reducing the increment keeps a single subtraction enough to wrap the phase,
	// even above the Nyquist frequency
	return &State{
		frequency:  c.Frequency,
		sampleRate: c.SampleRate,
		phase:      Wrap(c.Phase),
		increment:  math.Mod(TwoPi*c.Frequency/c.SampleRate, TwoPi),
	}, nil
}

func New(frequency, sampleRate float64) (*State, error) {
	return Config{Frequency: frequency, SampleRate: sampleRate}.New()
}

func (s *State) Frequency() float64  { return s.frequency }
func (s *State) SampleRate() float64 { return s.sampleRate }
func (s *State) Phase() float64      { return s.phase }
func (s *State) Increment() float64  { return s.increment }

// Next returns the sample at the current phase and advances the phase by one sample.
func (s *State) Next() float64 {
	sample := Amplitude * math.Sin(s.phase)
	s.phase += s.increment
	if s.phase >= TwoPi {
		s.phase -= TwoPi
	}
	return sample
}

// Fill writes len(out) consecutive samples. It does not allocate.
func (s *State) Fill(out []float32) {
	for i := range out {
		out[i] = float32(s.Next())
	}
}

// Wrap maps any finite phase into [0, 2π).
func Wrap(phase float64) float64 {
	phase = math.Mod(phase, TwoPi)
	if phase < 0 {
		phase += TwoPi
	}
	if phase >= TwoPi {
		phase = 0
	}
	return phase
}
