package envelope

import "math"

// Follower tracks the amplitude of a rendered signal. It is used off the
// audio thread to draw level charts.
type Follower struct {
	sampleRate  float64
	attackCoef  float64
	releaseCoef float64
	envelope    float64
}

// NewFollower creates a follower with 1 ms attack and 50 ms release
func NewFollower(sampleRate float64) *Follower {
	f := &Follower{sampleRate: sampleRate}
	f.SetTimes(0.001, 0.05)
	return f
}

// SetTimes sets attack and release time constants in seconds
func (f *Follower) SetTimes(attack, release float64) {
	f.attackCoef = calcCoef(math.Max(0.0001, attack), f.sampleRate)
	f.releaseCoef = calcCoef(math.Max(0.0001, release), f.sampleRate)
}

// calcCoef calculates a one-pole coefficient for a given time constant
func calcCoef(timeSeconds, sampleRate float64) float64 {
	if timeSeconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (timeSeconds * sampleRate))
}

// Follow processes a single sample
func (f *Follower) Follow(input float32) float32 {
	x := math.Abs(float64(input))
	if x > f.envelope {
		f.envelope = x + (f.envelope-x)*f.attackCoef
	} else {
		f.envelope = x + (f.envelope-x)*f.releaseCoef
	}
	return float32(f.envelope)
}

// Process extracts the envelope from a signal - no allocations
func (f *Follower) Process(input, output []float32) {
	for i := range input {
		output[i] = f.Follow(input[i])
	}
}

// Reset clears the tracked level
func (f *Follower) Reset() {
	f.envelope = 0
}
