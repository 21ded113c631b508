package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 48000.0

// sineGain runs a unit sine through the filter and returns the output peak
// after the transient.
func sineGain(s *SVF, freq float64) float64 {
	s.Reset()
	peak := 0.0
	for i := 0; i < 9600; i++ {
		out := s.Process(math.Sin(2 * math.Pi * freq * float64(i) / testRate))
		if i > 4800 {
			peak = math.Max(peak, math.Abs(out))
		}
	}
	return peak
}

func TestSVFModes(t *testing.T) {
	s := NewSVF()
	s.SetFrequencyAndQ(testRate, 1000, math.Sqrt2/2)

	s.SetMode(Lowpass)
	assert.InDelta(t, 1.0, sineGain(s, 50), 0.02)
	assert.Less(t, sineGain(s, 10000), 0.05)

	s.SetMode(Highpass)
	assert.Less(t, sineGain(s, 50), 0.05)
	assert.InDelta(t, 1.0, sineGain(s, 10000), 0.02)

	s.SetMode(Bandpass)
	assert.InDelta(t, 0.707, sineGain(s, 1000), 0.05)

	s.SetMode(Notch)
	assert.Less(t, sineGain(s, 1000), 0.05)
}

func TestSVFClamps(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		frequency float64
		q         float64
	}{
		{"AboveNyquist", testRate, 40000, 1},
		{"NaNFrequency", testRate, math.NaN(), 1},
		{"NegativeFrequency", testRate, -100, 1},
		{"InfFrequency", testRate, math.Inf(1), 1},
		{"ZeroQ", testRate, 1000, 0},
		{"HugeQ", testRate, 1000, 1e9},
		{"ZeroRate", 0, 1000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSVF()
			s.SetFrequencyAndQ(tt.rate, tt.frequency, tt.q)
			for i := 0; i < 48000; i++ {
				in := 0.0
				if i%100 < 50 {
					in = 1
				}
				out := s.Process(in)
				require.False(t, math.IsNaN(out) || math.IsInf(out, 0), "sample %d", i)
			}
		})
	}
}

func TestResonanceToQ(t *testing.T) {
	assert.InDelta(t, 0.5, ResonanceToQ(0), 1e-12)
	assert.InDelta(t, MaxQ/2, ResonanceToQ(1), 1e-9)
	assert.InDelta(t, 0.5, ResonanceToQ(math.NaN()), 1e-12)
	assert.Less(t, ResonanceToQ(0.3), ResonanceToQ(0.6))
}
