package oscillator

import "math"

const (
	// MinSampleRate replaces a zero, negative or non-finite sample rate.
	MinSampleRate = 1000.0
	// MinFrequency replaces a zero, negative or non-finite frequency.
	MinFrequency = 0.01
	// maxRatio keeps every partial strictly below Nyquist.
	maxRatio = 0.49
)

// BiquadBank is a set of sine partials, each produced by the two-term
// recurrence out = k*u1 - u0 with k = 2cos(w). No trigonometric call is made
// per sample.
//
// Coefficients are derived from the partial frequencies only in Setup,
// SetupPhase and Retune. Changing a frequency with SetPartial and calling
// Process without one of those keeps the old pitch.
type BiquadBank struct {
	frequency []float64
	gain      []float64
	k         []float64
	u1        []float64
	u0        []float64
	norm      float64
	ready     bool
}

// NewBiquadBank allocates a bank with size partials. All memory used by
// Process is allocated here.
func NewBiquadBank(size int) *BiquadBank {
	if size < 1 {
		size = 1
	}
	b := &BiquadBank{
		frequency: make([]float64, size),
		gain:      make([]float64, size),
		k:         make([]float64, size),
		u1:        make([]float64, size),
		u0:        make([]float64, size),
		norm:      1 / float64(size),
	}
	for i := range b.frequency {
		b.frequency[i] = 440
		b.gain[i] = 1
	}
	return b
}

// Size returns the number of partials
func (b *BiquadBank) Size() int {
	return len(b.frequency)
}

// SetPartial sets the frequency (Hz) and linear gain of partial i. Out of
// range indices are ignored. Takes effect on the next Setup or Retune.
func (b *BiquadBank) SetPartial(i int, frequency, gain float64) {
	if i < 0 || i >= len(b.frequency) {
		return
	}
	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		gain = 0
	}
	b.frequency[i] = frequency
	b.gain[i] = gain
}

// Frequency returns the stored frequency of partial i
func (b *BiquadBank) Frequency(i int) float64 {
	if i < 0 || i >= len(b.frequency) {
		return 0
	}
	return b.frequency[i]
}

// Setup derives coefficients and starts every partial at phase zero.
func (b *BiquadBank) Setup(sampleRate float64) {
	b.SetupPhase(sampleRate, 0)
}

// SetupPhase is Setup with an initial phase offset in cycles applied to
// every partial.
func (b *BiquadBank) SetupPhase(sampleRate, phase float64) {
	fs := clampSampleRate(sampleRate)
	if math.IsNaN(phase) || math.IsInf(phase, 0) {
		phase = 0
	}
	phi := 2 * math.Pi * (phase - math.Floor(phase))
	for i, f := range b.frequency {
		omega := 2 * math.Pi * clampFrequency(f, fs) / fs
		b.k[i] = 2 * math.Cos(omega)
		b.u1[i] = math.Sin(phi)
		b.u0[i] = math.Sin(phi - omega)
	}
	b.ready = true
}

// Retune recomputes coefficients for the current frequencies while keeping
// each partial's amplitude and phase, so pitch changes are click free.
func (b *BiquadBank) Retune(sampleRate float64) {
	if !b.ready {
		b.Setup(sampleRate)
		return
	}
	fs := clampSampleRate(sampleRate)
	for i, f := range b.frequency {
		cosOld := 0.5 * b.k[i]
		sinOld := math.Sqrt(math.Max(0, 1-cosOld*cosOld))

		omega := 2 * math.Pi * clampFrequency(f, fs) / fs
		sinNew, cosNew := math.Sincos(omega)

		if sinOld < 1e-12 {
			b.k[i] = 2 * cosNew
			b.u1[i] = 0
			b.u0[i] = -sinNew
			continue
		}

		// u1 = A sin(t), u0 = A sin(t - w).
		aCos := (b.u1[i]*cosOld - b.u0[i]) / sinOld
		b.k[i] = 2 * cosNew
		b.u0[i] = b.u1[i]*cosNew - aCos*sinNew
	}
}

// Process advances every partial by one sample and returns the mean of
// gain*out over all partials.
func (b *BiquadBank) Process() float64 {
	sum := 0.0
	for i := range b.k {
		out := b.k[i]*b.u1[i] - b.u0[i]
		b.u0[i] = b.u1[i]
		b.u1[i] = out
		sum += b.gain[i] * out
	}
	return sum * b.norm
}

// Reset zeroes the registers. The bank outputs silence until the next Setup.
func (b *BiquadBank) Reset() {
	for i := range b.u1 {
		b.u1[i] = 0
		b.u0[i] = 0
	}
}

func clampSampleRate(fs float64) float64 {
	if !(fs > 0) || math.IsInf(fs, 0) {
		return MinSampleRate
	}
	return fs
}

func clampFrequency(f, fs float64) float64 {
	if !(f > 0) || math.IsInf(f, 0) {
		if math.IsInf(f, 1) {
			return fs * maxRatio
		}
		return MinFrequency
	}
	if f > fs*maxRatio {
		return fs * maxRatio
	}
	return f
}
