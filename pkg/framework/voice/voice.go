// Package voice implements the synth voice and the note dispatcher that
// assigns voices to incoming notes.
package voice

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/justyntemme/sincluster/pkg/dsp/envelope"
	"github.com/justyntemme/sincluster/pkg/dsp/filter"
	"github.com/justyntemme/sincluster/pkg/dsp/oscillator"
	"github.com/justyntemme/sincluster/pkg/midi"
)

// ControlInterval is the number of samples between filter coefficient
// updates.
const ControlInterval = 32

// EnvelopeKind selects the amplitude envelope of every voice
type EnvelopeKind int

const (
	EnvelopeADSR EnvelopeKind = iota
	EnvelopeSections
)

var envelopeKindNames = [...]string{"adsr", "sections"}

// ErrUnknownEnvelope is returned by ParseEnvelopeKind
var ErrUnknownEnvelope = errors.New("voice: unknown envelope kind")

func (k EnvelopeKind) String() string {
	if k < 0 || int(k) >= len(envelopeKindNames) {
		return fmt.Sprintf("EnvelopeKind(%d)", int(k))
	}
	return envelopeKindNames[k]
}

// ParseEnvelopeKind parses a kind name as printed by String
func ParseEnvelopeKind(s string) (EnvelopeKind, error) {
	for i, name := range envelopeKindNames {
		if strings.EqualFold(s, name) {
			return EnvelopeKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEnvelope, s)
}

// Patch holds the block-rate settings shared by all voices. The engine
// fills it from the parameter store once per block; voices only read it.
type Patch struct {
	SampleRate float64

	// Tuning
	A4        float64 // Hz
	Transpose float64 // semitones, octave and fine tuning included
	Bend      float64 // semitones
	Ratio     []float64
	Gain      []float64
	Phase     float64 // cycles

	// Amplitude envelope
	Attack      float64
	Decay       float64
	Sustain     float64
	Release     float64
	Shape       envelope.Shape
	Curve       float64
	Sections    [envelope.SectionCount]envelope.Section
	LoopStart   int
	LoopEnd     int
	SectionRate float64

	// Filter
	FilterOn      bool
	FilterMode    filter.Mode
	Cutoff        float64 // Hz
	Q             float64
	FilterAmount  float64 // octaves at full filter envelope
	KeyFollow     float64 // 0-1
	FilterAttack  float64
	FilterDecay   float64
	FilterSustain float64
	FilterRelease float64
}

// NewPatch returns a patch with the given partial count and neutral
// settings: harmonic partials at equal gain, no filter.
func NewPatch(partials int, sampleRate float64) *Patch {
	p := &Patch{
		SampleRate:    sampleRate,
		A4:            440,
		Ratio:         make([]float64, partials),
		Gain:          make([]float64, partials),
		Attack:        0.01,
		Decay:         0.1,
		Sustain:       0.7,
		Release:       0.3,
		Shape:         envelope.ShapeExponential,
		Curve:         2,
		LoopStart:     envelope.SectionCount - 1,
		LoopEnd:       envelope.SectionCount - 1,
		SectionRate:   1,
		Cutoff:        20000,
		Q:             math.Sqrt2 / 2,
		FilterSustain: 1,
	}
	for i := range p.Ratio {
		p.Ratio[i] = float64(i + 1)
		p.Gain[i] = 1
	}
	for i := range p.Sections {
		p.Sections[i] = envelope.Section{Level: p.Sustain, Curve: 1}
	}
	return p
}

// Voice is one sounding note: an oscillator bank shaped by an amplitude
// envelope and an optional filter with its own envelope. All state is
// allocated by New; none of its methods allocate.
type Voice struct {
	patch *Patch

	bank      *oscillator.BiquadBank
	amp       envelope.Envelope
	adsr      *envelope.ADSR
	sections  *envelope.Sections
	filterEnv *envelope.ADSR
	filter    *filter.SVF

	note     uint8
	noteID   uint32
	velocity float64
	active   bool
	released bool

	pitch       float64 // note number plus offsets, last applied to the bank
	controlTick int
}

// New creates a voice reading its settings from patch. The patch must have
// at least one partial.
func New(patch *Patch, kind EnvelopeKind) *Voice {
	v := &Voice{
		patch:     patch,
		bank:      oscillator.NewBiquadBank(len(patch.Ratio)),
		adsr:      envelope.New(patch.SampleRate),
		sections:  envelope.NewSections(patch.SampleRate),
		filterEnv: envelope.New(patch.SampleRate),
		filter:    filter.NewSVF(),
	}
	v.SetEnvelopeKind(kind)
	return v
}

// SetEnvelopeKind switches the amplitude envelope. Call only while the
// voice is idle.
func (v *Voice) SetEnvelopeKind(kind EnvelopeKind) {
	if kind == EnvelopeSections {
		v.amp = v.sections
	} else {
		v.amp = v.adsr
	}
}

// Configure copies block-rate envelope and filter settings from the patch
// and retunes the oscillators when the pitch offset moved.
func (v *Voice) Configure() {
	p := v.patch
	v.adsr.SetSampleRate(p.SampleRate)
	v.adsr.SetShape(p.Shape, p.Curve)
	v.adsr.SetADSR(p.Attack, p.Decay, p.Sustain, p.Release)

	v.sections.SetSampleRate(p.SampleRate)
	for i := range p.Sections {
		v.sections.SetSection(i, p.Sections[i])
	}
	v.sections.SetLoop(p.LoopStart, p.LoopEnd)
	v.sections.SetRelease(p.Release, p.Curve)
	v.sections.SetRate(p.SectionRate)

	v.filterEnv.SetSampleRate(p.SampleRate)
	v.filterEnv.SetShape(p.Shape, p.Curve)
	v.filterEnv.SetADSR(p.FilterAttack, p.FilterDecay, p.FilterSustain, p.FilterRelease)
	v.filter.SetMode(p.FilterMode)

	if v.active {
		if pitch := v.targetPitch(); pitch != v.pitch {
			v.pitch = pitch
			v.setPartials()
			v.bank.Retune(p.SampleRate)
		}
	}
}

func (v *Voice) targetPitch() float64 {
	return float64(v.note) + v.patch.Transpose + v.patch.Bend
}

func (v *Voice) setPartials() {
	base := midi.NoteToFrequency(v.pitch, v.patch.A4)
	for i, r := range v.patch.Ratio {
		v.bank.SetPartial(i, base*r, v.patch.Gain[i])
	}
}

// Trigger starts a note. velocity is 0-1, phase is the initial oscillator
// phase in cycles. A voice that is still sounding is retriggered: its
// envelope restarts from the current level.
func (v *Voice) Trigger(note uint8, noteID uint32, velocity, phase float64) {
	if !(velocity >= 0) {
		velocity = 0
	} else if velocity > 1 {
		velocity = 1
	}
	v.note = note
	v.noteID = noteID
	v.velocity = velocity
	v.active = true
	v.released = false

	v.pitch = v.targetPitch()
	v.setPartials()
	v.bank.SetupPhase(v.patch.SampleRate, phase)

	v.amp.Trigger()
	v.filterEnv.Trigger()
	v.filter.Reset()
	v.controlTick = 0
}

// Release starts the release stage of both envelopes
func (v *Voice) Release() {
	if !v.active {
		return
	}
	v.released = true
	v.amp.Release()
	v.filterEnv.Release()
}

// Stop silences the voice immediately and zeroes all registers
func (v *Voice) Stop() {
	v.active = false
	v.released = false
	v.adsr.Reset()
	v.sections.Reset()
	v.filterEnv.Reset()
	v.bank.Reset()
	v.filter.Reset()
}

func (v *Voice) updateFilter() {
	p := v.patch
	octaves := p.FilterAmount * v.filterEnv.Level()
	octaves += p.KeyFollow * (v.pitch - 69) / 12
	v.filter.SetFrequencyAndQ(p.SampleRate, p.Cutoff*math.Exp2(octaves), p.Q)
}

// RenderSample advances the voice by one sample and returns
// envelope * oscillator * velocity, filtered when the patch enables it.
// The voice turns inactive once its amplitude envelope is idle.
func (v *Voice) RenderSample() float64 {
	if !v.active {
		return 0
	}

	out := v.amp.Next() * v.bank.Process() * v.velocity

	if v.patch.FilterOn {
		if v.controlTick == 0 {
			v.updateFilter()
		}
		v.controlTick++
		if v.controlTick >= ControlInterval {
			v.controlTick = 0
		}
		v.filterEnv.Next()
		out = v.filter.Process(out)
	}

	if v.amp.IsIdle() {
		v.active = false
		v.released = false
	}
	return out
}

// IsActive reports whether the voice produces sound
func (v *Voice) IsActive() bool { return v.active }

// IsReleased reports whether the voice is in its release stage
func (v *Voice) IsReleased() bool { return v.active && v.released }

// Note returns the MIDI note number of the current or last note
func (v *Voice) Note() uint8 { return v.note }

// NoteID returns the unique id of the current or last note
func (v *Voice) NoteID() uint32 { return v.noteID }

// Level returns the current amplitude envelope output
func (v *Voice) Level() float64 { return v.amp.Level() }

// Stage returns the amplitude envelope stage
func (v *Voice) Stage() envelope.Stage { return v.amp.Stage() }
