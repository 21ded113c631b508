// Package synth is the polyphonic sine cluster engine: a parameter store, a
// pool of voices and the block processing entry point a host drives from
// its audio callback.
package synth

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/justyntemme/sincluster/pkg/dsp/envelope"
	"github.com/justyntemme/sincluster/pkg/dsp/filter"
	"github.com/justyntemme/sincluster/pkg/framework/debug"
	"github.com/justyntemme/sincluster/pkg/framework/param"
	"github.com/justyntemme/sincluster/pkg/framework/voice"
	"github.com/justyntemme/sincluster/pkg/midi"
)

// ErrUnknownParam is returned by SetByName for names not in the table
var ErrUnknownParam = errors.New("synth: unknown parameter")

// Stats is a snapshot of the engine counters
type Stats struct {
	Blocks        uint64
	Frames        uint64
	DroppedEvents uint64
	NonFinite     uint64
	ActiveVoices  int
	LastNoteID    uint32
}

// Synth owns every voice and all per-block state. Process must be called
// from one goroutine; Params may be written from any goroutine.
type Synth struct {
	cfg     Config
	params  *param.Store
	patch   *voice.Patch
	manager *voice.Manager
	gain    param.Smoother
	cutoff  param.Smoother
	log     *logrus.Entry

	active bool

	blocks       atomic.Uint64
	frames       atomic.Uint64
	dropped      atomic.Uint64
	nonFinite    atomic.Uint64
	activeVoices atomic.Int32
	lastNoteID   atomic.Uint32
}

// New validates cfg and allocates everything the engine will ever use.
func New(cfg Config) (*Synth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := param.NewStore(NewParams()...)
	if err != nil {
		return nil, err
	}

	patch := voice.NewPatch(cfg.Partials, cfg.SampleRate)
	m := voice.NewManager(patch, cfg.MaxVoices, cfg.EnvelopeKind)
	m.SetStealPolicy(cfg.StealPolicy)

	s := &Synth{
		cfg:     cfg,
		params:  store,
		patch:   patch,
		manager: m,
		gain:    param.NewSmoother(param.LinearSmoothing, cfg.SampleRate, cfg.SmoothingTime),
		cutoff:  param.NewSmoother(param.LogarithmicSmoothing, cfg.SampleRate, cfg.SmoothingTime),
		log:     debug.Logger("synth"),
	}
	s.readParams()

	s.log.WithFields(logrus.Fields{
		"voices":      cfg.MaxVoices,
		"partials":    cfg.Partials,
		"sample_rate": cfg.SampleRate,
		"steal":       cfg.StealPolicy.String(),
		"params":      store.Count(),
	}).Info("Synth created")
	return s, nil
}

// Config returns the configuration the engine was built with, with the
// current sample rate.
func (s *Synth) Config() Config {
	return s.cfg
}

// Params returns the parameter store
func (s *Synth) Params() *param.Store {
	return s.params
}

// SetSampleRate changes the processing rate. Sounding voices are stopped.
// Call it while deactivated.
func (s *Synth) SetSampleRate(sampleRate float64) error {
	cfg := s.cfg
	cfg.SampleRate = sampleRate
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	s.patch.SampleRate = sampleRate
	s.gain.SetTime(sampleRate, cfg.SmoothingTime)
	s.cutoff.SetTime(sampleRate, cfg.SmoothingTime)
	s.manager.Reset()
	s.manager.Configure()

	s.log.WithField("sample_rate", sampleRate).Info("Sample rate changed")
	return nil
}

// Activate prepares for processing. Smoothers jump to their targets so a
// fresh start does not ramp.
func (s *Synth) Activate() {
	s.readParams()
	s.gain.Reset(s.params.Plain(ParamGain))
	s.cutoff.Reset(s.params.Plain(ParamCutoff))
	s.patch.Cutoff = s.cutoff.Value()
	s.manager.Startup()
	s.active = true
	s.log.Info("Synth activated")
}

// Deactivate stops every voice and zeroes all registers. Note ids keep
// counting across activations.
func (s *Synth) Deactivate() {
	s.active = false
	s.manager.Reset()
	s.activeVoices.Store(0)
	s.log.WithField("last_note_id", s.manager.LastNoteID()).Info("Synth deactivated")
}

// IsActive reports whether Activate was called without Deactivate
func (s *Synth) IsActive() bool {
	return s.active
}

// readParams copies the store into the patch. It runs once per block.
func (s *Synth) readParams() {
	st, p := s.params, s.patch

	p.Attack = st.Plain(ParamAttack)
	p.Decay = st.Plain(ParamDecay)
	p.Sustain = st.Plain(ParamSustain)
	p.Release = st.Plain(ParamRelease)
	p.Shape = envelope.Shape(st.Plain(ParamEnvShape))
	p.Curve = st.Plain(ParamEnvCurve)

	p.FilterOn = st.Plain(ParamFilterOn) > 0.5
	p.FilterMode = filter.Mode(st.Plain(ParamFilterMode))
	p.Q = filter.ResonanceToQ(st.Plain(ParamResonance))
	p.FilterAmount = st.Plain(ParamFilterAmount)
	p.KeyFollow = st.Plain(ParamKeyFollow)
	p.FilterAttack = st.Plain(ParamFilterAttack)
	p.FilterDecay = st.Plain(ParamFilterDecay)
	p.FilterSustain = st.Plain(ParamFilterSustain)
	p.FilterRelease = st.Plain(ParamFilterRelease)
	s.cutoff.SetTarget(st.Plain(ParamCutoff))
	p.Cutoff = s.cutoff.Value()

	p.Transpose = 12*math.Round(st.Plain(ParamOctave)) +
		math.Round(st.Plain(ParamSemitone)) +
		st.Plain(ParamMilli)/1000
	p.A4 = st.Plain(ParamA4)
	p.Phase = st.Plain(ParamPhase)
	s.manager.SetBendRange(math.Round(st.Plain(ParamBendRange)))

	for i := range p.Ratio {
		p.Gain[i] = st.Plain(ParamOvertoneGain + uint32(i))
		p.Ratio[i] = st.Plain(ParamOvertonePitch + uint32(i))
	}

	for i := range p.Sections {
		p.Sections[i] = envelope.Section{
			Ramp:  st.Plain(SectionParam(i, SectionRamp)),
			Hold:  st.Plain(SectionParam(i, SectionHold)),
			Level: st.Plain(SectionParam(i, SectionLevel)),
			Curve: st.Plain(SectionParam(i, SectionCurve)),
		}
	}
	p.LoopStart = int(st.Plain(ParamLoopStart))
	p.LoopEnd = int(st.Plain(ParamLoopEnd))
	p.SectionRate = st.Plain(ParamSectionRate)
}

// Process renders frames samples into every channel of outputs after
// applying events at the start of the block. Malformed events are dropped
// and counted. A block with no frames or no outputs still applies its
// events. It never allocates, blocks or logs.
func (s *Synth) Process(frames int, outputs [][]float32, events []midi.RawEvent) {
	if len(outputs) == 0 {
		frames = 0
	}
	for _, out := range outputs {
		frames = min(frames, len(out))
	}
	frames = max(frames, 0)
	if !s.active {
		clearOutputs(outputs, frames)
		return
	}

	s.readParams()
	s.manager.BeginBlock()
	for _, e := range events {
		if !e.Valid() {
			s.dropped.Add(1)
			continue
		}
		s.manager.HandleEvent(e)
	}
	s.manager.Configure()
	s.gain.SetTarget(s.params.Plain(ParamGain))
	s.lastNoteID.Store(s.manager.LastNoteID())
	if frames == 0 {
		s.activeVoices.Store(int32(s.manager.ActiveCount()))
		return
	}

	s.blocks.Add(1)
	s.frames.Add(uint64(frames))

	if s.params.Plain(ParamBypass) > 0.5 {
		clearOutputs(outputs, frames)
		s.activeVoices.Store(int32(s.manager.ActiveCount()))
		return
	}

	nonFinite := uint64(0)
	for i := 0; i < frames; i++ {
		if i%voice.ControlInterval == 0 {
			s.patch.Cutoff = s.cutoff.Value()
		}
		s.cutoff.Next()

		sample := s.manager.RenderSample() * s.gain.Next()
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			sample = 0
			nonFinite++
		}
		v := float32(sample)
		for _, out := range outputs {
			out[i] = v
		}
	}
	if nonFinite > 0 {
		s.nonFinite.Add(nonFinite)
	}
	s.activeVoices.Store(int32(s.manager.ActiveCount()))
}

func clearOutputs(outputs [][]float32, frames int) {
	for _, out := range outputs {
		clear(out[:frames])
	}
}

// Stats returns the current counters. It is safe to call from any
// goroutine.
func (s *Synth) Stats() Stats {
	return Stats{
		Blocks:        s.blocks.Load(),
		Frames:        s.frames.Load(),
		DroppedEvents: s.dropped.Load(),
		NonFinite:     s.nonFinite.Load(),
		ActiveVoices:  int(s.activeVoices.Load()),
		LastNoteID:    s.lastNoteID.Load(),
	}
}

// SetByName parses value with the named parameter's own parser, so units
// such as "800 Hz" or "-6 dB" are accepted, and stores the result.
func (s *Synth) SetByName(name, value string) error {
	p, ok := s.params.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	normalized, err := p.ParseValue(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("synth: parameter %q: %w", name, err)
	}
	p.SetValue(normalized)
	return nil
}

// TailSeconds is how long voices may keep sounding after their last
// note-off with the current settings.
func (s *Synth) TailSeconds() float64 {
	release := s.params.Plain(ParamRelease)
	if s.cfg.EnvelopeKind == voice.EnvelopeSections {
		if rate := s.params.Plain(ParamSectionRate); rate > 0 {
			release /= rate
		}
	}
	if s.params.Plain(ParamFilterOn) > 0.5 {
		release = max(release, s.params.Plain(ParamFilterRelease))
	}
	return release + s.cfg.SmoothingTime
}
