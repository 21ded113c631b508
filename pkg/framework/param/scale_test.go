package param

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScales(t *testing.T) {
	scales := map[string]Scale{
		"linear":  NewLinearScale(-24, 24),
		"spoly":   NewSPolyScale(-1, 1, 3),
		"log":     NewLogScale(0, 8, 0.5, 0.5),
		"decibel": NewDecibelScale(-60, 6, true),
		"int":     NewIntScale(4),
	}

	for name, s := range scales {
		t.Run(name+"/Bounds", func(t *testing.T) {
			assert.InDelta(t, s.Min(), s.Map(0), 1e-9)
			assert.InDelta(t, s.Max(), s.Map(1), 1e-9)
			assert.InDelta(t, s.Min(), s.Map(-3), 1e-9)
			assert.InDelta(t, s.Max(), s.Map(7), 1e-9)
		})

		t.Run(name+"/Monotonic", func(t *testing.T) {
			prev := s.Map(0)
			for i := 1; i <= 100; i++ {
				v := s.Map(float64(i) / 100)
				assert.GreaterOrEqual(t, v, prev)
				prev = v
			}
		})
	}

	t.Run("RoundTrip", func(t *testing.T) {
		for _, name := range []string{"linear", "spoly", "log"} {
			s := scales[name]
			for _, x := range []float64{0, 0.1, 0.25, 0.5, 0.75, 1} {
				assert.InDelta(t, x, s.Invmap(s.Map(x)), 1e-9, "%s at %v", name, x)
			}
		}
	})

	t.Run("LogHitsAnchor", func(t *testing.T) {
		s := NewLogScale(0.0001, 16, 0.5, 2)
		assert.InDelta(t, 2.0, s.Map(0.5), 1e-9)
	})

	t.Run("SPolyFlatEdges", func(t *testing.T) {
		s := NewSPolyScale(-1, 1, 3)
		assert.InDelta(t, 0.0, s.Map(0.5), 1e-12)
		assert.InDelta(t, -1.0, s.Map(0.05), 0.01)
		assert.Greater(t, math.Abs(s.Map(0.55)), 0.1)
	})

	t.Run("DecibelZero", func(t *testing.T) {
		s := NewDecibelScale(-60, 0, true)
		assert.Equal(t, 0.0, s.Map(0))
		assert.InDelta(t, 1.0, s.Map(1), 1e-12)
		assert.InDelta(t, 0.5, s.Invmap(DBToAmp(-30)), 1e-9)
	})

	t.Run("IntRounds", func(t *testing.T) {
		s := NewIntScale(4)
		assert.Equal(t, 2.0, s.Map(0.49))
		assert.Equal(t, 0.75, s.Invmap(3.2))
	})

	t.Run("Bool", func(t *testing.T) {
		assert.Equal(t, 0.0, BoolScale{}.Map(0.5))
		assert.Equal(t, 1.0, BoolScale{}.Map(0.51))
	})
}
