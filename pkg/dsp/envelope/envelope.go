// Package envelope provides per-voice envelope generators for synthesis.
package envelope

import "math"

// Stage represents the current envelope stage
type Stage int

const (
	// StageIdle outputs 0 until the next Trigger
	StageIdle Stage = iota
	// StageAttack rises toward 1
	StageAttack
	// StageDecay falls from 1 to the sustain level
	StageDecay
	// StageSustain holds the sustain level while the key is down
	StageSustain
	// StageRelease falls to exactly 0
	StageRelease
	// StageSection is used by Sections while looping through its sections
	StageSection
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	case StageSection:
		return "section"
	}
	return "unknown"
}

// Envelope is the per-sample amplitude source used by a voice. Next
// advances exactly one sample.
type Envelope interface {
	SetSampleRate(sampleRate float64)
	Trigger()
	Release()
	Reset()
	Next() float64
	Level() float64
	Stage() Stage
	IsIdle() bool
}

// Shape selects the progress curve used inside each timed stage.
type Shape int

const (
	// ShapeLinear moves at constant speed
	ShapeLinear Shape = iota
	// ShapeExponential moves fast first, like an RC charge
	ShapeExponential
	// ShapeCurve is 1-(1-p)^curve. curve > 1 is fast first, < 1 slow first.
	ShapeCurve
)

// ShapeNames lists shapes in order, for parameter choices.
var ShapeNames = []string{"Linear", "Exponential", "Curve"}

// expK sets the exponential shape to reach -60 dB of its span at p = 1
// before normalization.
const expK = 6.907755278982137

var expNorm = 1 / (1 - math.Exp(-expK))

// progress maps p in [0, 1] to [0, 1]. It is monotonic with g(0) = 0 and
// g(1) = 1 for every shape.
func progress(shape Shape, curve, p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	switch shape {
	case ShapeExponential:
		return (1 - math.Exp(-expK*p)) * expNorm
	case ShapeCurve:
		return 1 - math.Pow(1-p, curve)
	}
	return p
}

// secondsToSamples converts a duration, treating negative or NaN as zero.
func secondsToSamples(seconds, sampleRate float64) int {
	if !(seconds > 0) || !(sampleRate > 0) {
		return 0
	}
	n := math.Round(seconds * sampleRate)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func clampLevel(x float64) float64 {
	if !(x > 0) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ADSR implements an Attack-Decay-Sustain-Release envelope generator.
// Transitions happen when the elapsed sample count reaches the stage
// duration, so a stage of n samples always takes exactly n calls to Next.
type ADSR struct {
	sampleRate float64

	// Parameters (in seconds for A,D,R and 0-1 for S)
	attack  float64
	decay   float64
	sustain float64
	release float64
	shape   Shape
	curve   float64

	// Durations in samples
	attackLen  int
	decayLen   int
	releaseLen int

	// State
	stage   Stage
	elapsed int
	level   float64
	from    float64
}

// New creates a new ADSR envelope
func New(sampleRate float64) *ADSR {
	env := &ADSR{
		sampleRate: sampleRate,
		attack:     0.01,
		decay:      0.1,
		sustain:    0.7,
		release:    0.3,
		shape:      ShapeExponential,
		curve:      2,
	}
	env.updateDurations()
	return env
}

// SetSampleRate changes the rate used to convert stage times
func (e *ADSR) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.updateDurations()
}

// SetADSR sets all parameters at once. Times are seconds, sustain is 0-1.
func (e *ADSR) SetADSR(attack, decay, sustain, release float64) {
	e.attack = attack
	e.decay = decay
	e.sustain = clampLevel(sustain)
	e.release = release
	e.updateDurations()
}

// SetShape selects the stage curve. curve is used by ShapeCurve only and
// must be positive.
func (e *ADSR) SetShape(shape Shape, curve float64) {
	if shape < ShapeLinear || shape > ShapeCurve {
		shape = ShapeLinear
	}
	if !(curve > 0) || math.IsInf(curve, 0) {
		curve = 1
	}
	e.shape = shape
	e.curve = curve
}

func (e *ADSR) updateDurations() {
	e.attackLen = secondsToSamples(e.attack, e.sampleRate)
	e.decayLen = secondsToSamples(e.decay, e.sampleRate)
	e.releaseLen = secondsToSamples(e.release, e.sampleRate)
}

// Trigger starts the attack from the current level, so retriggering a
// sounding voice does not click.
func (e *ADSR) Trigger() {
	e.from = e.level
	e.stage = StageAttack
	e.elapsed = 0
}

// Release starts the release stage from whatever stage is active. It is a
// no-op when idle or already releasing.
func (e *ADSR) Release() {
	if e.stage == StageIdle || e.stage == StageRelease {
		return
	}
	e.from = e.level
	e.stage = StageRelease
	e.elapsed = 0
}

// Reset immediately returns the envelope to idle
func (e *ADSR) Reset() {
	e.stage = StageIdle
	e.level = 0
	e.from = 0
	e.elapsed = 0
}

// IsIdle reports whether the envelope has finished
func (e *ADSR) IsIdle() bool {
	return e.stage == StageIdle
}

// Stage returns the current envelope stage
func (e *ADSR) Stage() Stage {
	return e.stage
}

// Level returns the most recent output
func (e *ADSR) Level() float64 {
	return e.level
}

// step advances the elapsed counter and returns shaped progress in [0, 1].
func (e *ADSR) step(length int) float64 {
	e.elapsed++
	if e.elapsed >= length {
		return 1
	}
	return progress(e.shape, e.curve, float64(e.elapsed)/float64(length))
}

// Next generates the next envelope value
func (e *ADSR) Next() float64 {
	switch e.stage {
	case StageAttack:
		g := e.step(e.attackLen)
		// max keeps the stage monotonic when the time changes mid-stage.
		e.level = math.Max(e.level, e.from+(1-e.from)*g)
		if g >= 1 {
			e.level = 1
			e.stage = StageDecay
			e.elapsed = 0
		}

	case StageDecay:
		g := e.step(e.decayLen)
		e.level = math.Min(e.level, 1+(e.sustain-1)*g)
		if g >= 1 {
			e.level = e.sustain
			e.stage = StageSustain
			e.elapsed = 0
		}

	case StageSustain:
		e.level = e.sustain

	case StageRelease:
		g := e.step(e.releaseLen)
		e.level = math.Min(e.level, e.from*(1-g))
		if g >= 1 {
			e.level = 0
			e.stage = StageIdle
			e.elapsed = 0
		}

	case StageIdle:
		e.level = 0
	}

	return e.level
}

// Process fills buffer with envelope values - no allocations
func (e *ADSR) Process(buffer []float64) {
	for i := range buffer {
		buffer[i] = e.Next()
	}
}
