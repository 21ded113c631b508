package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/justyntemme/sincluster/pkg/framework/voice"
)

// ErrInvalidConfig is wrapped by every Config validation error
var ErrInvalidConfig = errors.New("synth: invalid config")

const (
	// MaxVoicesLimit bounds Config.MaxVoices
	MaxVoicesLimit = 256
	// OvertoneCount is the number of partials with their own gain and
	// pitch parameters, and the largest allowed Config.Partials.
	OvertoneCount = 8
)

// Config fixes the engine's resources at construction. Everything that can
// change while running lives in the parameter store instead.
type Config struct {
	MaxVoices     int
	Partials      int
	SampleRate    float64
	StealPolicy   voice.StealPolicy
	EnvelopeKind  voice.EnvelopeKind
	SmoothingTime float64 // seconds, master gain and cutoff ramps
}

// DefaultConfig returns 16 voices of 8 partials at 48 kHz
func DefaultConfig() Config {
	return Config{
		MaxVoices:     16,
		Partials:      OvertoneCount,
		SampleRate:    48000,
		StealPolicy:   voice.StealOldest,
		EnvelopeKind:  voice.EnvelopeADSR,
		SmoothingTime: 0.02,
	}
}

// Validate reports the first invalid field
func (c Config) Validate() error {
	switch {
	case c.MaxVoices < 1 || c.MaxVoices > MaxVoicesLimit:
		return fmt.Errorf("%w: max voices %d not in [1, %d]", ErrInvalidConfig, c.MaxVoices, MaxVoicesLimit)
	case c.Partials < 1 || c.Partials > OvertoneCount:
		return fmt.Errorf("%w: partials %d not in [1, %d]", ErrInvalidConfig, c.Partials, OvertoneCount)
	case !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0):
		return fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, c.SampleRate)
	case c.StealPolicy < voice.StealOldest || c.StealPolicy > voice.StealLowest:
		return fmt.Errorf("%w: steal policy %d", ErrInvalidConfig, int(c.StealPolicy))
	case c.EnvelopeKind != voice.EnvelopeADSR && c.EnvelopeKind != voice.EnvelopeSections:
		return fmt.Errorf("%w: envelope kind %d", ErrInvalidConfig, int(c.EnvelopeKind))
	case !(c.SmoothingTime >= 0) || math.IsInf(c.SmoothingTime, 0):
		return fmt.Errorf("%w: smoothing time %v", ErrInvalidConfig, c.SmoothingTime)
	}
	return nil
}
