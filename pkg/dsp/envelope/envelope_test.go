package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRate = 48000.0

// runStage calls Next until the stage changes, checking monotonicity, and
// returns the number of samples spent in the stage.
func runStage(t *testing.T, e *ADSR, rising bool, limit int) int {
	t.Helper()
	stage := e.Stage()
	prev := e.Level()
	n := 0
	for e.Stage() == stage && n < limit {
		v := e.Next()
		if rising {
			require.GreaterOrEqual(t, v, prev, "%s sample %d", stage, n)
		} else {
			require.LessOrEqual(t, v, prev, "%s sample %d", stage, n)
		}
		prev = v
		n++
	}
	return n
}

func TestADSRMonotonicStages(t *testing.T) {
	shapes := []struct {
		name  string
		shape Shape
		curve float64
	}{
		{"Linear", ShapeLinear, 1},
		{"Exponential", ShapeExponential, 1},
		{"CurveFast", ShapeCurve, 4},
		{"CurveSlow", ShapeCurve, 0.3},
	}

	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			e := New(sampleRate)
			e.SetShape(tt.shape, tt.curve)
			e.SetADSR(0.01, 0.02, 0.5, 0.03)
			e.Trigger()

			assert.Equal(t, 480, runStage(t, e, true, 10000))
			assert.Equal(t, 1.0, e.Level())
			assert.Equal(t, StageDecay, e.Stage())

			assert.Equal(t, 960, runStage(t, e, false, 10000))
			assert.Equal(t, 0.5, e.Level())
			require.Equal(t, StageSustain, e.Stage())

			for i := 0; i < 100; i++ {
				assert.Equal(t, 0.5, e.Next())
			}

			e.Release()
			assert.Equal(t, 1440, runStage(t, e, false, 10000))
			assert.Equal(t, 0.0, e.Level())
			assert.True(t, e.IsIdle())

			for i := 0; i < 100; i++ {
				assert.Equal(t, 0.0, e.Next())
			}
		})
	}
}

func TestADSREarlyRelease(t *testing.T) {
	e := New(sampleRate)
	e.SetADSR(0.1, 0.1, 0.8, 0.01)
	e.Trigger()
	for i := 0; i < 100; i++ {
		e.Next()
	}
	mid := e.Level()
	require.Greater(t, mid, 0.0)
	require.Less(t, mid, 1.0)

	e.Release()
	assert.Equal(t, StageRelease, e.Stage())
	first := e.Next()
	assert.LessOrEqual(t, first, mid)

	runStage(t, e, false, 10000)
	assert.True(t, e.IsIdle())
	assert.Equal(t, 0.0, e.Level())
}

func TestADSRZeroDurations(t *testing.T) {
	e := New(sampleRate)
	e.SetADSR(0, 0, 0.25, 0)
	e.Trigger()

	assert.Equal(t, 1.0, e.Next())
	assert.Equal(t, StageDecay, e.Stage())
	assert.Equal(t, 0.25, e.Next())
	assert.Equal(t, StageSustain, e.Stage())

	e.Release()
	assert.Equal(t, 0.0, e.Next())
	assert.True(t, e.IsIdle())
}

func TestADSRRetriggerFromLevel(t *testing.T) {
	e := New(sampleRate)
	e.SetShape(ShapeLinear, 1)
	e.SetADSR(0.01, 0.01, 0.6, 0.1)
	e.Trigger()
	for i := 0; i < 2000; i++ {
		e.Next()
	}
	e.Release()
	for i := 0; i < 100; i++ {
		e.Next()
	}
	level := e.Level()

	e.Trigger()
	assert.Equal(t, StageAttack, e.Stage())
	assert.GreaterOrEqual(t, e.Next(), level)
}

func TestADSRReleaseWhenIdle(t *testing.T) {
	e := New(sampleRate)
	e.Release()
	assert.True(t, e.IsIdle())
	assert.Equal(t, 0.0, e.Next())
}

func TestADSRDegenerateTimes(t *testing.T) {
	e := New(0)
	e.SetADSR(-1, -1, 2, -1)
	e.Trigger()
	for i := 0; i < 4; i++ {
		v := e.Next()
		assert.True(t, v >= 0 && v <= 1)
	}
	e.Release()
	e.Next()
	assert.True(t, e.IsIdle())
}

func TestProgressCurves(t *testing.T) {
	for _, shape := range []Shape{ShapeLinear, ShapeExponential, ShapeCurve} {
		assert.Equal(t, 0.0, progress(shape, 2, 0))
		assert.Equal(t, 1.0, progress(shape, 2, 1))
		prev := 0.0
		for i := 1; i < 100; i++ {
			v := progress(shape, 2, float64(i)/100)
			assert.Greater(t, v, prev)
			prev = v
		}
	}
	assert.Equal(t, "release", StageRelease.String())
}

func TestSectionsLoop(t *testing.T) {
	e := NewSections(1000)
	e.SetSection(0, Section{Ramp: 0.01, Level: 1, Curve: 1})
	e.SetSection(1, Section{Ramp: 0.01, Hold: 0.005, Level: 0.2, Curve: 1})
	e.SetSection(2, Section{Ramp: 0.01, Hold: 0.005, Level: 0.8, Curve: 2})
	e.SetSection(3, Section{Ramp: 0.01, Level: 0, Curve: 1})
	e.SetLoop(1, 2)
	e.Trigger()

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		v := e.Next()
		require.True(t, v >= 0 && v <= 1)
		seen[e.Index()] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[2])
	assert.False(t, seen[3], "section after loop end must not play while held")
	assert.Equal(t, StageSection, e.Stage())

	e.SetRelease(0.02, 1)
	e.Release()
	prev := e.Level()
	for !e.IsIdle() {
		v := e.Next()
		require.LessOrEqual(t, v, prev)
		prev = v
	}
	assert.Equal(t, 0.0, e.Level())
}

func TestSectionsRampMonotonic(t *testing.T) {
	e := NewSections(1000)
	e.SetSection(0, Section{Ramp: 0.05, Hold: 0.01, Level: 1, Curve: 3})
	e.SetLoop(3, 3)
	e.Trigger()
	prev := 0.0
	for i := 0; i < 50; i++ {
		v := e.Next()
		require.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.Equal(t, 1.0, prev)
}

func TestSectionsZeroTimesTerminate(t *testing.T) {
	e := NewSections(sampleRate)
	for i := 0; i < SectionCount; i++ {
		e.SetSection(i, Section{Level: float64(i) / 4, Curve: 1})
	}
	e.SetLoop(0, 3)
	e.Trigger()
	for i := 0; i < 64; i++ {
		e.Next()
	}
	e.SetRelease(0, 1)
	e.Release()
	assert.Equal(t, 0.0, e.Next())
	assert.True(t, e.IsIdle())
}

func TestEnvelopeInterface(t *testing.T) {
	var _ Envelope = New(sampleRate)
	var _ Envelope = NewSections(sampleRate)
}

func TestFollower(t *testing.T) {
	f := NewFollower(sampleRate)
	var v float32
	for i := 0; i < 4800; i++ {
		v = f.Follow(1)
	}
	assert.InDelta(t, 1.0, float64(v), 1e-3)
	for i := 0; i < 48000; i++ {
		v = f.Follow(0)
	}
	assert.Less(t, v, float32(0.01))
}
