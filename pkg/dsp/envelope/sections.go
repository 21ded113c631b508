package envelope

import "math"

// SectionCount is the number of sections in a Sections envelope.
const SectionCount = 4

// Section is one step of a Sections envelope: ramp from the previous level
// to Level in Ramp seconds, then hold for Hold seconds.
type Section struct {
	Ramp  float64
	Hold  float64
	Level float64
	Curve float64
}

// Sections is a looping multi-section envelope. While the key is held it
// plays sections in order, jumping from LoopEnd back to LoopStart. Sections
// before LoopStart play once; sections after LoopEnd never play. Release
// ramps from the current level to exactly 0.
type Sections struct {
	sampleRate float64
	sections   [SectionCount]Section
	loopStart  int
	loopEnd    int
	release    float64
	relCurve   float64
	rate       float64

	stage   Stage
	index   int
	holding bool
	elapsed int
	length  int
	level   float64
	from    float64
	target  float64
	curve   float64
}

// NewSections creates a section envelope with a plain attack, decay and
// sustain loop on the last section.
func NewSections(sampleRate float64) *Sections {
	e := &Sections{
		sampleRate: sampleRate,
		loopStart:  SectionCount - 1,
		loopEnd:    SectionCount - 1,
		release:    0.3,
		relCurve:   1,
		rate:       1,
	}
	e.sections[0] = Section{Ramp: 0.01, Level: 1, Curve: 1}
	e.sections[1] = Section{Ramp: 0.1, Level: 0.7, Curve: 1}
	e.sections[2] = Section{Level: 0.7, Curve: 1}
	e.sections[3] = Section{Hold: 1, Level: 0.7, Curve: 1}
	return e
}

// SetSampleRate sets the rate used to convert times
func (e *Sections) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
}

// SetSection updates section i. Changes apply from the next section start.
func (e *Sections) SetSection(i int, s Section) {
	if i < 0 || i >= SectionCount {
		return
	}
	s.Level = clampLevel(s.Level)
	if !(s.Curve > 0) || math.IsInf(s.Curve, 0) {
		s.Curve = 1
	}
	e.sections[i] = s
}

// SetLoop sets the loop range. Indices are clamped and ordered.
func (e *Sections) SetLoop(start, end int) {
	start = clampIndex(start)
	end = clampIndex(end)
	if start > end {
		start, end = end, start
	}
	e.loopStart = start
	e.loopEnd = end
}

// SetRelease sets the release time in seconds and its curve exponent.
func (e *Sections) SetRelease(seconds, curve float64) {
	if !(curve > 0) || math.IsInf(curve, 0) {
		curve = 1
	}
	e.release = seconds
	e.relCurve = curve
}

// SetRate scales the speed of every section and the release. 2 plays
// twice as fast.
func (e *Sections) SetRate(rate float64) {
	if !(rate > 0) || math.IsInf(rate, 0) {
		rate = 1
	}
	e.rate = rate
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= SectionCount {
		return SectionCount - 1
	}
	return i
}

func (e *Sections) samples(seconds float64) int {
	return secondsToSamples(seconds/e.rate, e.sampleRate)
}

func (e *Sections) enter(index int) {
	s := e.sections[index]
	e.index = index
	e.holding = false
	e.elapsed = 0
	e.length = e.samples(s.Ramp)
	e.from = e.level
	e.target = s.Level
	e.curve = s.Curve
}

// Trigger starts at section 0 from the current level
func (e *Sections) Trigger() {
	e.stage = StageSection
	e.enter(0)
}

// Release ramps to zero from any active stage
func (e *Sections) Release() {
	if e.stage == StageIdle || e.stage == StageRelease {
		return
	}
	e.stage = StageRelease
	e.elapsed = 0
	e.length = e.samples(e.release)
	e.from = e.level
	e.curve = e.relCurve
}

// Reset immediately returns the envelope to idle
func (e *Sections) Reset() {
	e.stage = StageIdle
	e.level = 0
	e.elapsed = 0
}

// Level returns the most recent output
func (e *Sections) Level() float64 { return e.level }

// Stage returns StageSection while held, then StageRelease and StageIdle
func (e *Sections) Stage() Stage { return e.stage }

// Index returns the section being played
func (e *Sections) Index() int { return e.index }

// IsIdle reports whether the envelope has finished
func (e *Sections) IsIdle() bool { return e.stage == StageIdle }

func (e *Sections) step() float64 {
	e.elapsed++
	if e.elapsed >= e.length {
		return 1
	}
	return progress(ShapeCurve, e.curve, float64(e.elapsed)/float64(e.length))
}

// Next generates the next envelope value
func (e *Sections) Next() float64 {
	switch e.stage {
	case StageSection:
		if e.holding {
			e.elapsed++
			if e.elapsed >= e.length {
				next := e.index + 1
				if next > e.loopEnd {
					next = e.loopStart
				}
				e.enter(next)
			}
			return e.level
		}
		g := e.step()
		e.level = e.from + (e.target-e.from)*g
		if g >= 1 {
			e.level = e.target
			e.holding = true
			e.elapsed = 0
			e.length = e.samples(e.sections[e.index].Hold)
		}

	case StageRelease:
		g := e.step()
		e.level = math.Min(e.level, e.from*(1-g))
		if g >= 1 {
			e.level = 0
			e.stage = StageIdle
		}

	case StageIdle:
		e.level = 0
	}
	return e.level
}
