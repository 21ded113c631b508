package render

import (
	"cmp"
	"math"
	"slices"

	"github.com/justyntemme/sincluster/pkg/midi"
)

// Step is one entry of a note sequence, timed in beats
type Step struct {
	Beat     float64
	Length   float64
	Notes    []uint8
	Velocity uint8
}

// DemoSteps is a short chord progression used when no MIDI file is given.
var DemoSteps = []Step{
	{Beat: 0, Length: 3.5, Notes: []uint8{48, 55, 64, 71}, Velocity: 96},
	{Beat: 4, Length: 3.5, Notes: []uint8{45, 52, 60, 67}, Velocity: 88},
	{Beat: 8, Length: 3.5, Notes: []uint8{41, 48, 57, 64}, Velocity: 92},
	{Beat: 12, Length: 1.5, Notes: []uint8{43, 50, 59, 65}, Velocity: 100},
	{Beat: 14, Length: 1.5, Notes: []uint8{43, 50, 59, 67, 74}, Velocity: 110},
	{Beat: 16, Length: 6, Notes: []uint8{36, 48, 55, 64, 72}, Velocity: 80},
}

// Sequence converts steps to timed events at the given tempo. Channel 0 is
// used throughout.
func Sequence(steps []Step, bpm, sampleRate float64) []midi.TimedEvent {
	framesPerBeat := 60 / bpm * sampleRate
	at := func(beat float64) int64 {
		return int64(math.Round(beat * framesPerBeat))
	}

	var events []midi.TimedEvent
	for _, st := range steps {
		for _, n := range st.Notes {
			events = append(events,
				midi.TimedEvent{Frame: at(st.Beat), Event: midi.NoteOn(0, n, st.Velocity)},
				midi.TimedEvent{Frame: at(st.Beat + st.Length), Event: midi.NoteOff(0, n)},
			)
		}
	}
	slices.SortStableFunc(events, func(a, b midi.TimedEvent) int {
		return cmp.Compare(a.Frame, b.Frame)
	})
	return events
}

// Demo returns the demo progression at 96 bpm with a bend into the last
// chord.
func Demo(sampleRate float64) []midi.TimedEvent {
	const bpm = 96.0
	events := Sequence(DemoSteps, bpm, sampleRate)

	framesPerBeat := 60 / bpm * sampleRate
	bendStart := int64(15 * framesPerBeat)
	steps := 16
	for i := 0; i <= steps; i++ {
		// Dip a whole tone below and come back up to center on beat 16.
		depth := math.Sin(math.Pi * float64(i) / float64(steps))
		value := uint16(math.Round(float64(midi.PitchBendCenter) * (1 - depth)))
		frame := bendStart + int64(float64(i)*framesPerBeat/float64(steps))
		events = append(events, midi.TimedEvent{Frame: frame, Event: midi.PitchBend(0, value)})
	}
	slices.SortStableFunc(events, func(a, b midi.TimedEvent) int {
		return cmp.Compare(a.Frame, b.Frame)
	})
	return events
}
