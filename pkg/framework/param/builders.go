package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Common parameter helpers. Each returns a Builder so callers can still
// override the default or add flags before Build.

// GainParameter creates a level in dB from minDB to maxDB whose plain value
// is linear amplitude. The bottom of the range is silence.
func GainParameter(id uint32, name string, minDB, maxDB, defaultDB float64) *Builder {
	return New(id, name).
		Scale(NewDecibelScale(minDB, maxDB, true)).
		Default(DBToAmp(defaultDB)).
		Unit("dB").
		Formatter(GainFormatter, GainParser)
}

// LevelParameter creates a plain 0-1 level shown as a percentage
func LevelParameter(id uint32, name string, defaultVal float64) *Builder {
	return New(id, name).
		Range(0, 1).
		Default(defaultVal).
		Unit("%").
		Formatter(PercentFormatter, PercentParser)
}

// FrequencyParameter creates a frequency parameter whose knob centre lands
// on mid Hz.
func FrequencyParameter(id uint32, name string, min, max, mid, defaultVal float64) *Builder {
	return New(id, name).
		Scale(NewLogScale(min, max, 0.5, mid)).
		Default(defaultVal).
		Unit("Hz").
		Formatter(FrequencyFormatter, FrequencyParser)
}

// TimeParameter creates an envelope time in seconds from 0 to maxSec whose
// knob centre lands on midSec.
func TimeParameter(id uint32, name string, maxSec, midSec, defaultSec float64) *Builder {
	return New(id, name).
		Scale(NewLogScale(0, maxSec, 0.5, midSec)).
		Default(defaultSec).
		Unit("s").
		Formatter(SecondsFormatter, SecondsParser)
}

// SemitoneParameter creates an integer pitch offset in semitones
func SemitoneParameter(id uint32, name string, min, max, defaultVal int) *Builder {
	return New(id, name).
		Range(float64(min), float64(max)).
		Steps(int32(max - min)).
		Default(float64(defaultVal)).
		Unit("st").
		Formatter(SemitoneFormatter, func(s string) (float64, error) {
			return parseFloat(strings.TrimSuffix(strings.TrimSpace(s), "st"))
		})
}

// RatioParameter creates a frequency multiplier such as an overtone pitch
func RatioParameter(id uint32, name string, minRatio, maxRatio, defaultRatio float64) *Builder {
	return New(id, name).
		Range(minRatio, maxRatio).
		Default(defaultRatio).
		Formatter(func(v float64) string {
			return fmt.Sprintf("x%.3f", v)
		}, func(s string) (float64, error) {
			s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "x")
			return parseFloat(s)
		})
}

// CurveParameter creates a positive curve exponent; 1 is linear
func CurveParameter(id uint32, name string, defaultVal float64) *Builder {
	return New(id, name).
		Scale(NewLogScale(0.1, 16, 0.5, 1)).
		Default(defaultVal).
		Formatter(func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		}, parseFloat)
}

// ResonanceParameter creates a 0-1 filter resonance
func ResonanceParameter(id uint32, name string) *Builder {
	return New(id, name).
		Range(0, 1).
		Default(0).
		Formatter(func(v float64) string {
			return fmt.Sprintf("%.3f", v)
		}, parseFloat)
}

// PhaseParameter creates an initial phase in cycles, shown in degrees
func PhaseParameter(id uint32, name string) *Builder {
	return New(id, name).
		Range(0, 1).
		Default(0).
		Unit("°").
		Formatter(func(v float64) string {
			return fmt.Sprintf("%.1f°", v*360)
		}, func(s string) (float64, error) {
			s = strings.TrimSuffix(s, "°")
			s = strings.TrimSuffix(s, "deg")
			v, err := parseFloat(s)
			return v / 360, err
		})
}

// BypassParameter creates the bypass on/off switch
func BypassParameter(id uint32, name string) *Builder {
	return New(id, name).Bypass()
}

// parseFloat parses a number, ignoring surrounding space
func parseFloat(s string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return value, nil
}
