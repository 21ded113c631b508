// Package filter provides the per-voice state variable filter
package filter

import "math"

// Mode selects which SVF output Process returns
type Mode int

const (
	Lowpass Mode = iota
	Highpass
	Bandpass
	Notch
)

// ModeNames lists modes in order, for parameter choices.
var ModeNames = []string{"Lowpass", "Highpass", "Bandpass", "Notch"}

const (
	// MinCutoff is the lowest cutoff accepted by SetFrequency
	MinCutoff = 10.0
	// maxCutoffRatio keeps the prewarped coefficient finite
	maxCutoffRatio = 0.48
	// MinQ keeps damping bounded
	MinQ = 0.1
	// MaxQ keeps the filter stable at high resonance
	MaxQ = 40.0
)

// SVF implements a single-channel state variable filter.
// Zero-delay feedback topology for better analog modeling
type SVF struct {
	mode Mode

	// Filter parameters
	g float64 // frequency coefficient
	k float64 // damping coefficient (1/Q)

	a1, a2, a3 float64

	// State variables
	ic1eq float64
	ic2eq float64
}

// NewSVF creates a lowpass filter at 1 kHz, Q 0.707 for 48 kHz
func NewSVF() *SVF {
	s := &SVF{}
	s.SetFrequencyAndQ(48000, 1000, math.Sqrt2/2)
	return s
}

// SetMode selects the output. Unknown modes fall back to lowpass.
func (s *SVF) SetMode(mode Mode) {
	if mode < Lowpass || mode > Notch {
		mode = Lowpass
	}
	s.mode = mode
}

// Reset clears the filter state
func (s *SVF) Reset() {
	s.ic1eq = 0
	s.ic2eq = 0
}

// SetFrequencyAndQ updates coefficients. Cutoff is clamped into
// [MinCutoff, 0.48*sampleRate] and Q into [MinQ, MaxQ]; non-finite values
// take the nearest bound.
func (s *SVF) SetFrequencyAndQ(sampleRate, frequency, q float64) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		sampleRate = 48000
	}
	maxCutoff := sampleRate * maxCutoffRatio
	switch {
	case math.IsNaN(frequency) || frequency < MinCutoff:
		frequency = MinCutoff
	case frequency > maxCutoff:
		frequency = maxCutoff
	}
	switch {
	case math.IsNaN(q) || q < MinQ:
		q = MinQ
	case q > MaxQ:
		q = MaxQ
	}

	// Pre-warp the frequency for the bilinear transform
	s.g = math.Tan(math.Pi * frequency / sampleRate)
	s.k = 1 / q
	s.a1 = 1 / (1 + s.g*(s.g+s.k))
	s.a2 = s.g * s.a1
	s.a3 = s.g * s.a2
}

// Process filters one sample
func (s *SVF) Process(input float64) float64 {
	v3 := input - s.ic2eq
	v1 := s.a1*s.ic1eq + s.a2*v3
	v2 := s.ic2eq + s.a2*s.ic1eq + s.a3*v3

	s.ic1eq = 2*v1 - s.ic1eq
	s.ic2eq = 2*v2 - s.ic2eq

	switch s.mode {
	case Highpass:
		return input - s.k*v1 - v2
	case Bandpass:
		return v1
	case Notch:
		return input - s.k*v1
	}
	return v2
}

// ResonanceToQ maps a 0-1 resonance control to Q on a log curve from
// 0.5 to MaxQ/2.
func ResonanceToQ(resonance float64) float64 {
	if !(resonance > 0) {
		resonance = 0
	} else if resonance > 1 {
		resonance = 1
	}
	return 0.5 * math.Pow(MaxQ, resonance)
}
