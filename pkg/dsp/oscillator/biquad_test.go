package oscillator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 48000.0

// risingCrossings counts negative-to-non-negative transitions over n samples.
func risingCrossings(b *BiquadBank, n int) int {
	count := 0
	prev := b.Process()
	for i := 1; i < n; i++ {
		cur := b.Process()
		if prev < 0 && cur >= 0 {
			count++
		}
		prev = cur
	}
	return count
}

func TestBiquadBankBounds(t *testing.T) {
	gains := []float64{1, 0.5, 0.25, 0.8}
	for _, f := range []float64{20, 220, 1000, 5000, 15000, 23000} {
		b := NewBiquadBank(len(gains))
		sum := 0.0
		for i, g := range gains {
			b.SetPartial(i, f*float64(i+1), g)
			sum += g
		}
		b.Setup(testRate)

		for n := 0; n < 10000; n++ {
			out := b.Process()
			require.False(t, math.IsNaN(out))
			require.LessOrEqual(t, math.Abs(out), sum+1e-9, "f=%v n=%d", f, n)
		}
	}
}

func TestBiquadBankPeriod(t *testing.T) {
	for _, f := range []float64{55, 440, 1234.5, 8000} {
		b := NewBiquadBank(1)
		b.SetPartial(0, f, 1)
		b.Setup(testRate)

		// One second of output has f rising zero crossings.
		got := risingCrossings(b, int(testRate))
		assert.InDelta(t, f, float64(got), 1.5, "frequency %v", f)
	}
}

func TestBiquadBankDeterminism(t *testing.T) {
	run := func() []float64 {
		b := NewBiquadBank(3)
		b.SetPartial(0, 110, 1)
		b.SetPartial(1, 331, 0.5)
		b.SetPartial(2, 997, 0.25)
		b.Setup(testRate)
		out := make([]float64, 4096)
		for i := range out {
			out[i] = b.Process()
		}
		return out
	}
	assert.Equal(t, run(), run())

	// Setup again on the same bank restarts the identical sequence.
	b := NewBiquadBank(1)
	b.SetPartial(0, 440, 1)
	b.Setup(testRate)
	first := make([]float64, 256)
	for i := range first {
		first[i] = b.Process()
	}
	b.Setup(testRate)
	for i := range first {
		require.Equal(t, first[i], b.Process(), "sample %d", i)
	}
}

func TestBiquadBankStaleFrequency(t *testing.T) {
	b := NewBiquadBank(1)
	b.SetPartial(0, 440, 1)
	b.Setup(testRate)
	b.SetPartial(0, 880, 1)

	// Without Setup the old coefficient is still in use.
	assert.InDelta(t, 440, float64(risingCrossings(b, int(testRate))), 1.5)

	b.Setup(testRate)
	assert.InDelta(t, 880, float64(risingCrossings(b, int(testRate))), 1.5)
}

func TestBiquadBankRetune(t *testing.T) {
	b := NewBiquadBank(1)
	b.SetPartial(0, 440, 1)
	b.Setup(testRate)
	var last float64
	for i := 0; i < 1000; i++ {
		last = b.Process()
	}

	b.SetPartial(0, 660, 1)
	b.Retune(testRate)

	// Continuous: the next step is no larger than one step at the new pitch.
	next := b.Process()
	maxStep := 2 * math.Pi * 660 / testRate
	assert.LessOrEqual(t, math.Abs(next-last), maxStep+1e-9)

	peak := 0.0
	count := 0
	prev := next
	for i := 0; i < int(testRate); i++ {
		cur := b.Process()
		peak = math.Max(peak, math.Abs(cur))
		if prev < 0 && cur >= 0 {
			count++
		}
		prev = cur
	}
	assert.InDelta(t, 1.0, peak, 1e-3)
	assert.InDelta(t, 660, float64(count), 1.5)
}

func TestBiquadBankRetuneWithoutSetup(t *testing.T) {
	b := NewBiquadBank(1)
	b.SetPartial(0, 1000, 1)
	b.Retune(testRate)
	assert.InDelta(t, 1000, float64(risingCrossings(b, int(testRate))), 1.5)
}

func TestBiquadBankPhase(t *testing.T) {
	b := NewBiquadBank(1)
	b.SetPartial(0, 100, 1)
	b.SetupPhase(testRate, 0.25)

	omega := 2 * math.Pi * 100 / testRate
	assert.InDelta(t, math.Cos(omega), b.Process(), 1e-12)
}

func TestBiquadBankDegenerateInput(t *testing.T) {
	tests := []struct {
		name       string
		rate       float64
		frequency  float64
		gain       float64
		wantSilent bool
	}{
		{"ZeroRate", 0, 440, 1, false},
		{"NegativeRate", -44100, 440, 1, false},
		{"NaNRate", math.NaN(), 440, 1, false},
		{"ZeroFrequency", testRate, 0, 1, false},
		{"NaNFrequency", testRate, math.NaN(), 1, false},
		{"InfFrequency", testRate, math.Inf(1), 1, false},
		{"AboveNyquist", testRate, 30000, 1, false},
		{"NaNGain", testRate, 440, math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBiquadBank(1)
			b.SetPartial(0, tt.frequency, tt.gain)
			b.Setup(tt.rate)
			for i := 0; i < 2048; i++ {
				out := b.Process()
				require.False(t, math.IsNaN(out) || math.IsInf(out, 0), "sample %d", i)
				require.LessOrEqual(t, math.Abs(out), 1+1e-9)
				if tt.wantSilent {
					require.Equal(t, 0.0, out)
				}
			}
		})
	}
}

func TestBiquadBankReset(t *testing.T) {
	b := NewBiquadBank(2)
	b.Setup(testRate)
	b.Process()
	b.Reset()
	for i := 0; i < 16; i++ {
		assert.Equal(t, 0.0, b.Process())
	}
}

func BenchmarkBiquadBank(b *testing.B) {
	bank := NewBiquadBank(8)
	for i := 0; i < 8; i++ {
		bank.SetPartial(i, 110*float64(i+1), 1)
	}
	bank.Setup(testRate)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bank.Process()
	}
}
