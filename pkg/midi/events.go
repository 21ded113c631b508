// Package midi holds the MIDI event types shared by the engine, the offline
// renderer and the realtime hosts.
package midi

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned by Decode for events with a wrong byte count,
// a data byte with the high bit set, or an unsupported status.
var ErrMalformed = errors.New("midi: malformed event")

// Status nibbles of channel voice messages
const (
	StatusNoteOff         uint8 = 0x80
	StatusNoteOn          uint8 = 0x90
	StatusPolyPressure    uint8 = 0xA0
	StatusControlChange   uint8 = 0xB0
	StatusProgramChange   uint8 = 0xC0
	StatusChannelPressure uint8 = 0xD0
	StatusPitchBend       uint8 = 0xE0
)

// PitchBendCenter is the 14-bit pitch bend value meaning no bend.
const PitchBendCenter uint16 = 8192

// PitchBendMax is the largest 14-bit pitch bend value.
const PitchBendMax uint16 = 16383

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypePolyPressure
	EventTypeControlChange
	EventTypeProgramChange
	EventTypeChannelPressure
	EventTypePitchBend
)

type Event interface {
	Type() EventType
	Channel() uint8
	SampleOffset() int32
	String() string
}

type BaseEvent struct {
	EventChannel uint8
	Offset       int32
}

func (e BaseEvent) Channel() uint8 {
	return e.EventChannel
}

func (e BaseEvent) SampleOffset() int32 {
	return e.Offset
}

type NoteOnEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOnEvent) Type() EventType {
	return EventTypeNoteOn
}

func (e NoteOnEvent) String() string {
	return fmt.Sprintf("NoteOn{ch:%d, note:%d, vel:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

// NoteOffEvent is also produced for a note-on with velocity 0.
type NoteOffEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOffEvent) Type() EventType {
	return EventTypeNoteOff
}

func (e NoteOffEvent) String() string {
	return fmt.Sprintf("NoteOff{ch:%d, note:%d, vel:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

type ControlChangeEvent struct {
	BaseEvent
	Controller uint8
	Value      uint8
}

func (e ControlChangeEvent) Type() EventType {
	return EventTypeControlChange
}

func (e ControlChangeEvent) String() string {
	return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}",
		e.EventChannel, e.Controller, e.Value, e.Offset)
}

const (
	CCModWheel    uint8 = 1
	CCVolume      uint8 = 7
	CCExpression  uint8 = 11
	CCSustain     uint8 = 64
	CCAllSoundOff uint8 = 120
	CCResetAll    uint8 = 121
	CCAllNotesOff uint8 = 123
)

type PitchBendEvent struct {
	BaseEvent
	Value uint16 // 0 to 16383, 8192 is center
}

func (e PitchBendEvent) Type() EventType {
	return EventTypePitchBend
}

func (e PitchBendEvent) String() string {
	return fmt.Sprintf("PitchBend{ch:%d, val:%d, offset:%d}",
		e.EventChannel, e.Value, e.Offset)
}

// NormalizedValue maps the bend to [-1, 1)
func (e PitchBendEvent) NormalizedValue() float64 {
	return (float64(e.Value) - float64(PitchBendCenter)) / float64(PitchBendCenter)
}

type PolyPressureEvent struct {
	BaseEvent
	NoteNumber uint8
	Pressure   uint8
}

func (e PolyPressureEvent) Type() EventType {
	return EventTypePolyPressure
}

func (e PolyPressureEvent) String() string {
	return fmt.Sprintf("PolyPressure{ch:%d, note:%d, pressure:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Pressure, e.Offset)
}

type ChannelPressureEvent struct {
	BaseEvent
	Pressure uint8
}

func (e ChannelPressureEvent) Type() EventType {
	return EventTypeChannelPressure
}

func (e ChannelPressureEvent) String() string {
	return fmt.Sprintf("ChannelPressure{ch:%d, pressure:%d, offset:%d}",
		e.EventChannel, e.Pressure, e.Offset)
}

type ProgramChangeEvent struct {
	BaseEvent
	Program uint8
}

func (e ProgramChangeEvent) Type() EventType {
	return EventTypeProgramChange
}

func (e ProgramChangeEvent) String() string {
	return fmt.Sprintf("ProgramChange{ch:%d, prog:%d, offset:%d}",
		e.EventChannel, e.Program, e.Offset)
}

// Decode converts a raw event into its typed form. It allocates (the result
// is an interface) so the audio thread dispatches on RawEvent directly;
// Decode is for logging and tools.
func Decode(raw RawEvent) (Event, error) {
	if !raw.Valid() {
		return nil, fmt.Errorf("%w: % x (size %d)", ErrMalformed, raw.Data[:min(int(raw.Size), 3)], raw.Size)
	}
	base := BaseEvent{EventChannel: raw.Channel(), Offset: raw.Offset}
	d1, d2 := raw.Data[1], raw.Data[2]
	switch raw.Status() {
	case StatusNoteOff:
		return NoteOffEvent{BaseEvent: base, NoteNumber: d1, Velocity: d2}, nil
	case StatusNoteOn:
		if d2 == 0 {
			return NoteOffEvent{BaseEvent: base, NoteNumber: d1}, nil
		}
		return NoteOnEvent{BaseEvent: base, NoteNumber: d1, Velocity: d2}, nil
	case StatusPolyPressure:
		return PolyPressureEvent{BaseEvent: base, NoteNumber: d1, Pressure: d2}, nil
	case StatusControlChange:
		return ControlChangeEvent{BaseEvent: base, Controller: d1, Value: d2}, nil
	case StatusProgramChange:
		return ProgramChangeEvent{BaseEvent: base, Program: d1}, nil
	case StatusChannelPressure:
		return ChannelPressureEvent{BaseEvent: base, Pressure: d1}, nil
	case StatusPitchBend:
		return PitchBendEvent{BaseEvent: base, Value: raw.PitchBend()}, nil
	}
	return nil, fmt.Errorf("%w: status %#x", ErrMalformed, raw.Data[0])
}

// NoteToFrequency returns the equal-tempered frequency of a fractional note
// number. tuningA4 <= 0 means 440 Hz.
func NoteToFrequency(note, tuningA4 float64) float64 {
	if !(tuningA4 > 0) {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Exp2((note-69.0)/12.0)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func NoteNumberToName(note uint8) string {
	octave := int(note/12) - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}
