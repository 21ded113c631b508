package param

import (
	"math"
)

// SmoothingType defines different parameter smoothing algorithms.
type SmoothingType int

const (
	// LinearSmoothing reaches the target in a fixed number of samples
	LinearSmoothing SmoothingType = iota
	// ExponentialSmoothing is a one-pole lowpass toward the target
	ExponentialSmoothing
	// LogarithmicSmoothing interpolates linearly in log space (frequencies)
	LogarithmicSmoothing
)

const logFloor = 1e-3

// Smoother removes zipper noise from block-rate parameter changes. It is a
// plain value type so a voice or processor can embed it without allocating.
type Smoother struct {
	smoothingType SmoothingType
	current       float64
	target        float64
	threshold     float64
	isSmoothing   bool

	// Samples to reach the target (linear, logarithmic).
	steps float64
	// One-pole coefficient (exponential).
	kp float64

	step       float64
	logCurrent float64
	logTarget  float64
}

// NewSmoother creates a smoother that settles in roughly seconds at the
// given sample rate.
func NewSmoother(smoothingType SmoothingType, sampleRate, seconds float64) Smoother {
	s := Smoother{smoothingType: smoothingType, threshold: 1e-5}
	s.SetTime(sampleRate, seconds)
	return s
}

// SetTime recomputes the smoothing rate. seconds <= 0 disables smoothing.
func (s *Smoother) SetTime(sampleRate, seconds float64) {
	samples := sampleRate * seconds
	if samples < 1 {
		samples = 1
	}
	s.steps = samples
	// Time constant of a fifth of the settle time so the one-pole lands
	// within the threshold at roughly the same point as the linear ramp.
	s.kp = 1 - math.Exp(-5/samples)
}

// SetTarget sets the target value for smoothing.
func (s *Smoother) SetTarget(target float64) {
	if math.IsNaN(target) || (s.isSmoothing && target == s.target) {
		return
	}
	if !s.isSmoothing && math.Abs(target-s.current) < s.threshold {
		s.Reset(target)
		return
	}
	s.target = target
	s.isSmoothing = true

	switch s.smoothingType {
	case LinearSmoothing:
		s.step = (target - s.current) / s.steps

	case LogarithmicSmoothing:
		s.logCurrent = math.Log(math.Max(s.current, logFloor))
		s.logTarget = math.Log(math.Max(target, logFloor))
		s.step = (s.logTarget - s.logCurrent) / s.steps
	}
}

// Next returns the next smoothed value.
func (s *Smoother) Next() float64 {
	if !s.isSmoothing {
		return s.current
	}

	switch s.smoothingType {
	case ExponentialSmoothing:
		s.current += (s.target - s.current) * s.kp
		if math.Abs(s.current-s.target) < s.threshold {
			s.finish()
		}

	case LinearSmoothing:
		s.current += s.step
		if s.step == 0 || (s.step > 0 && s.current >= s.target) || (s.step < 0 && s.current <= s.target) {
			s.finish()
		}

	case LogarithmicSmoothing:
		s.logCurrent += s.step
		if s.step == 0 || (s.step > 0 && s.logCurrent >= s.logTarget) || (s.step < 0 && s.logCurrent <= s.logTarget) {
			s.finish()
		} else {
			s.current = math.Exp(s.logCurrent)
		}
	}

	return s.current
}

func (s *Smoother) finish() {
	s.current = s.target
	s.isSmoothing = false
}

// Value returns the current output without advancing.
func (s *Smoother) Value() float64 {
	return s.current
}

// Target returns the value being approached.
func (s *Smoother) Target() float64 {
	return s.target
}

// IsSmoothing returns true if the smoother is currently smoothing.
func (s *Smoother) IsSmoothing() bool {
	return s.isSmoothing
}

// Reset jumps to value with no ramp.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.isSmoothing = false
}
