package synth

import (
	"fmt"

	"github.com/justyntemme/sincluster/pkg/dsp/envelope"
	"github.com/justyntemme/sincluster/pkg/dsp/filter"
	"github.com/justyntemme/sincluster/pkg/framework/param"
)

// Parameter IDs. They are dense so the store can index them directly.
const (
	ParamBypass uint32 = iota
	ParamGain
	ParamAttack
	ParamDecay
	ParamSustain
	ParamRelease
	ParamEnvShape
	ParamEnvCurve
	ParamFilterOn
	ParamFilterMode
	ParamCutoff
	ParamResonance
	ParamFilterAmount
	ParamKeyFollow
	ParamFilterAttack
	ParamFilterDecay
	ParamFilterSustain
	ParamFilterRelease
	ParamOctave
	ParamSemitone
	ParamMilli
	ParamA4
	ParamBendRange
	ParamPhase
	// ParamOvertoneGain is the first of OvertoneCount partial gains
	ParamOvertoneGain
)

// Section fields, offsets inside each section's parameter group
const (
	SectionRamp uint32 = iota
	SectionHold
	SectionLevel
	SectionCurve
	sectionFields
)

const (
	// ParamOvertonePitch is the first of OvertoneCount pitch multipliers
	ParamOvertonePitch = ParamOvertoneGain + OvertoneCount
	// ParamSection is the first section parameter; see SectionParam
	ParamSection     = ParamOvertonePitch + OvertoneCount
	ParamLoopStart   = ParamSection + sectionFields*envelope.SectionCount
	ParamLoopEnd     = ParamLoopStart + 1
	ParamSectionRate = ParamLoopStart + 2
	// ParamCount is the number of parameters
	ParamCount = ParamLoopStart + 3
)

// SectionParam returns the ID of field of the given section envelope step
func SectionParam(section int, field uint32) uint32 {
	return ParamSection + uint32(section)*sectionFields + field
}

var defaultSections = [envelope.SectionCount]envelope.Section{
	{Ramp: 0.01, Level: 1, Curve: 1},
	{Ramp: 0.1, Level: 0.7, Curve: 1},
	{Level: 0.7, Curve: 1},
	{Hold: 1, Level: 0.7, Curve: 1},
}

var sectionNames = []string{"1", "2", "3", "4"}

// NewParams builds the engine's parameter table in ID order
func NewParams() []*param.Parameter {
	params := []*param.Parameter{
		param.BypassParameter(ParamBypass, "Bypass").Build(),
		param.GainParameter(ParamGain, "Gain", -60, 6, -12).Build(),

		param.TimeParameter(ParamAttack, "Attack", 8, 0.5, 0.002).Build(),
		param.TimeParameter(ParamDecay, "Decay", 8, 0.5, 0.1).Build(),
		param.LevelParameter(ParamSustain, "Sustain", 0.7).Build(),
		param.TimeParameter(ParamRelease, "Release", 16, 1, 0.2).Build(),
		param.New(ParamEnvShape, "Envelope Shape").ShortName("Shape").
			Choice(envelope.ShapeNames...).Default(float64(envelope.ShapeExponential)).Build(),
		param.CurveParameter(ParamEnvCurve, "Envelope Curve", 2).ShortName("Curve").Build(),

		param.New(ParamFilterOn, "Filter").Toggle().Build(),
		param.New(ParamFilterMode, "Filter Mode").Choice(filter.ModeNames...).Build(),
		param.FrequencyParameter(ParamCutoff, "Cutoff", 20, 20000, 1000, 20000).Build(),
		param.ResonanceParameter(ParamResonance, "Resonance").Build(),
		param.New(ParamFilterAmount, "Filter Env Amount").ShortName("Amount").
			Range(-8, 8).Default(0).Unit("oct").Build(),
		param.LevelParameter(ParamKeyFollow, "Key Follow", 0).Build(),
		param.TimeParameter(ParamFilterAttack, "Filter Attack", 8, 0.5, 0.01).Build(),
		param.TimeParameter(ParamFilterDecay, "Filter Decay", 8, 0.5, 0.2).Build(),
		param.LevelParameter(ParamFilterSustain, "Filter Sustain", 1).Build(),
		param.TimeParameter(ParamFilterRelease, "Filter Release", 16, 1, 0.2).Build(),

		param.New(ParamOctave, "Octave").Range(-4, 4).Steps(8).Default(0).Unit("oct").Build(),
		param.SemitoneParameter(ParamSemitone, "Semitone", -24, 24, 0).Build(),
		param.New(ParamMilli, "Milli").Range(-1000, 1000).Default(0).Unit("mst").Build(),
		param.New(ParamA4, "A4").Range(400, 480).Default(440).Unit("Hz").
			Formatter(param.FrequencyFormatter, param.FrequencyParser).Build(),
		param.New(ParamBendRange, "Bend Range").Range(0, 48).Steps(48).Default(2).Unit("st").Build(),
		param.PhaseParameter(ParamPhase, "Phase").Build(),
	}

	for i := 0; i < OvertoneCount; i++ {
		params = append(params, param.GainParameter(ParamOvertoneGain+uint32(i),
			fmt.Sprintf("Overtone %d Gain", i+1), -60, 0, 0).Build())
	}
	for i := 0; i < OvertoneCount; i++ {
		params = append(params, param.RatioParameter(ParamOvertonePitch+uint32(i),
			fmt.Sprintf("Overtone %d Pitch", i+1), 0.25, 16, float64(i+1)).Build())
	}
	for i, s := range defaultSections {
		n := i + 1
		params = append(params,
			param.TimeParameter(SectionParam(i, SectionRamp), fmt.Sprintf("Section %d Ramp", n), 8, 0.5, s.Ramp).Build(),
			param.TimeParameter(SectionParam(i, SectionHold), fmt.Sprintf("Section %d Hold", n), 8, 0.5, s.Hold).Build(),
			param.LevelParameter(SectionParam(i, SectionLevel), fmt.Sprintf("Section %d Level", n), s.Level).Build(),
			param.CurveParameter(SectionParam(i, SectionCurve), fmt.Sprintf("Section %d Curve", n), s.Curve).Build(),
		)
	}

	params = append(params,
		param.New(ParamLoopStart, "Loop Start").Choice(sectionNames...).Default(3).Build(),
		param.New(ParamLoopEnd, "Loop End").Choice(sectionNames...).Default(3).Build(),
		param.New(ParamSectionRate, "Section Rate").Scale(param.NewLogScale(0.1, 10, 0.5, 1)).Default(1).Build(),
	)
	return params
}
