package param

import "math"

// Scale maps a normalized value in [0, 1] to a plain value and back. Both
// directions clamp, so a host sending an out-of-range value never produces
// a plain value outside [Min, Max].
type Scale interface {
	Map(normalized float64) float64
	Invmap(plain float64) float64
	Min() float64
	Max() float64
}

var unitScale = NewLinearScale(0, 1)

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// LinearScale maps [0, 1] to [min, max] linearly. min != max.
type LinearScale struct {
	min, max float64
}

// NewLinearScale creates a linear scale
func NewLinearScale(min, max float64) *LinearScale {
	return &LinearScale{min: min, max: max}
}

func (s *LinearScale) Map(normalized float64) float64 {
	return s.min + clamp01(normalized)*(s.max-s.min)
}

func (s *LinearScale) Invmap(plain float64) float64 {
	if s.max == s.min {
		return 0
	}
	return clamp01((plain - s.min) / (s.max - s.min))
}

func (s *LinearScale) Min() float64 { return s.min }
func (s *LinearScale) Max() float64 { return s.max }

// SPolyScale is a symmetric power curve. With power > 1 it is flat near
// both ends and steep through the middle.
type SPolyScale struct {
	min, max        float64
	power, powerInv float64
}

// NewSPolyScale creates a symmetric polynomial scale. power must be > 0.
func NewSPolyScale(min, max, power float64) *SPolyScale {
	if power <= 0 {
		power = 1
	}
	return &SPolyScale{min: min, max: max, power: power, powerInv: 1 / power}
}

func (s *SPolyScale) Map(normalized float64) float64 {
	x := clamp01(normalized)
	var v float64
	if x <= 0.5 {
		v = 0.5 * math.Pow(2*x, s.power)
	} else {
		v = 1 - 0.5*math.Pow(2-2*x, s.power)
	}
	return v*(s.max-s.min) + s.min
}

func (s *SPolyScale) Invmap(plain float64) float64 {
	if s.max == s.min {
		return 0
	}
	v := clamp01((plain - s.min) / (s.max - s.min))
	if v <= 0.5 {
		return 0.5 * math.Pow(2*v, s.powerInv)
	}
	return 1 - 0.5*math.Pow(2-2*v, s.powerInv)
}

func (s *SPolyScale) Min() float64 { return s.min }
func (s *SPolyScale) Max() float64 { return s.max }

// LogScale is a power curve chosen so that Map(inValue) == outValue. Used
// for times and frequencies where the useful detail sits near min.
type LogScale struct {
	min, max      float64
	expo, expoInv float64
}

// NewLogScale creates a scale with Map(inValue) == outValue.
// 0 < inValue < 1 and min < outValue < max.
func NewLogScale(min, max, inValue, outValue float64) *LogScale {
	span := math.Abs(max - min)
	expo := 1.0
	if span > 0 && inValue > 0 && inValue < 1 && outValue > min {
		expo = math.Log(math.Abs(outValue-min)/span) / math.Log(inValue)
	}
	return &LogScale{min: min, max: max, expo: expo, expoInv: 1 / expo}
}

func (s *LogScale) Map(normalized float64) float64 {
	return math.Pow(clamp01(normalized), s.expo)*math.Abs(s.max-s.min) + s.min
}

func (s *LogScale) Invmap(plain float64) float64 {
	span := math.Abs(s.max - s.min)
	if span == 0 {
		return 0
	}
	return math.Pow(clamp01((plain-s.min)/span), s.expoInv)
}

func (s *LogScale) Min() float64 { return s.min }
func (s *LogScale) Max() float64 { return s.max }

// DecibelScale maps [0, 1] linearly in dB and returns linear amplitude.
// With minToZero set, normalized 0 maps to silence instead of minDB.
type DecibelScale struct {
	minDB, maxDB float64
	minToZero    bool
}

// NewDecibelScale creates a decibel scale
func NewDecibelScale(minDB, maxDB float64, minToZero bool) *DecibelScale {
	return &DecibelScale{minDB: minDB, maxDB: maxDB, minToZero: minToZero}
}

func (s *DecibelScale) Map(normalized float64) float64 {
	x := clamp01(normalized)
	if s.minToZero && x <= 0 {
		return 0
	}
	return DBToAmp(s.minDB + x*(s.maxDB-s.minDB))
}

func (s *DecibelScale) Invmap(plain float64) float64 {
	if plain <= 0 || s.maxDB == s.minDB {
		return 0
	}
	return clamp01((AmpToDB(plain) - s.minDB) / (s.maxDB - s.minDB))
}

func (s *DecibelScale) Min() float64 {
	if s.minToZero {
		return 0
	}
	return DBToAmp(s.minDB)
}

func (s *DecibelScale) Max() float64 { return DBToAmp(s.maxDB) }

// BoolScale rounds to 0 or 1 around the midpoint.
type BoolScale struct{}

func (BoolScale) Map(normalized float64) float64 {
	if normalized > 0.5 {
		return 1
	}
	return 0
}

func (BoolScale) Invmap(plain float64) float64 {
	if plain > 0.5 {
		return 1
	}
	return 0
}

func (BoolScale) Min() float64 { return 0 }
func (BoolScale) Max() float64 { return 1 }

// IntScale maps [0, 1] to the integers 0..max.
type IntScale struct {
	max int
}

// NewIntScale creates an integer scale
func NewIntScale(max int) *IntScale {
	if max < 1 {
		max = 1
	}
	return &IntScale{max: max}
}

func (s *IntScale) Map(normalized float64) float64 {
	return math.Floor(clamp01(normalized)*float64(s.max) + 0.5)
}

func (s *IntScale) Invmap(plain float64) float64 {
	return clamp01(math.Floor(plain+0.5) / float64(s.max))
}

func (s *IntScale) Min() float64 { return 0 }
func (s *IntScale) Max() float64 { return float64(s.max) }

// DBToAmp converts decibels to linear amplitude
func DBToAmp(db float64) float64 {
	return math.Pow(10, db/20)
}

// AmpToDB converts linear amplitude to decibels
func AmpToDB(amp float64) float64 {
	if amp <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amp)
}
