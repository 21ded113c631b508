package midi

import "fmt"

// RawEvent is a MIDI channel message as delivered by a host: up to three
// bytes plus the frame offset inside the current block. It is a plain value
// so event slices can be preallocated and passed to the audio thread
// without boxing.
type RawEvent struct {
	Data   [3]byte
	Size   uint8
	Offset int32
}

// Status returns the status nibble (0x80..0xE0)
func (e RawEvent) Status() uint8 {
	return e.Data[0] & 0xF0
}

// Channel returns the 0-based MIDI channel
func (e RawEvent) Channel() uint8 {
	return e.Data[0] & 0x0F
}

// expectedSize returns the byte count of a channel voice message, or 0 for
// anything else.
func expectedSize(status byte) uint8 {
	switch status & 0xF0 {
	case StatusNoteOff, StatusNoteOn, StatusPolyPressure, StatusControlChange, StatusPitchBend:
		return 3
	case StatusProgramChange, StatusChannelPressure:
		return 2
	}
	return 0
}

// Valid reports whether the event is a well-formed channel voice message:
// the status byte is 0x80..0xEF, Size matches the status and every data
// byte is below 0x80.
func (e RawEvent) Valid() bool {
	want := expectedSize(e.Data[0])
	if want == 0 || e.Size != want {
		return false
	}
	for i := 1; i < int(want); i++ {
		if e.Data[i]&0x80 != 0 {
			return false
		}
	}
	return true
}

// IsNoteOn reports a note-on with non-zero velocity
func (e RawEvent) IsNoteOn() bool {
	return e.Status() == StatusNoteOn && e.Data[2] > 0
}

// IsNoteOff reports 0x80, or 0x90 with velocity 0
func (e RawEvent) IsNoteOff() bool {
	s := e.Status()
	return s == StatusNoteOff || (s == StatusNoteOn && e.Data[2] == 0)
}

// PitchBend assembles the 14-bit bend value (data2<<7 | data1)
func (e RawEvent) PitchBend() uint16 {
	return uint16(e.Data[2]&0x7F)<<7 | uint16(e.Data[1]&0x7F)
}

// At returns a copy of e with the given frame offset
func (e RawEvent) At(offset int32) RawEvent {
	e.Offset = offset
	return e
}

func (e RawEvent) String() string {
	return fmt.Sprintf("Raw{% x, size:%d, offset:%d}", e.Data, e.Size, e.Offset)
}

// FromBytes builds a RawEvent from a message of one to three bytes. Longer
// messages (SysEx) cannot be represented and are truncated with Size left
// at the real length, so Valid rejects them.
func FromBytes(b []byte, offset int32) RawEvent {
	var e RawEvent
	n := copy(e.Data[:], b)
	e.Size = uint8(n)
	if len(b) > 3 {
		e.Size = uint8(min(len(b), 255))
	}
	e.Offset = offset
	return e
}

// NoteOn builds a note-on message
func NoteOn(channel, note, velocity uint8) RawEvent {
	return RawEvent{Data: [3]byte{StatusNoteOn | channel&0x0F, note & 0x7F, velocity & 0x7F}, Size: 3}
}

// NoteOff builds a note-off message
func NoteOff(channel, note uint8) RawEvent {
	return RawEvent{Data: [3]byte{StatusNoteOff | channel&0x0F, note & 0x7F, 0}, Size: 3}
}

// ControlChange builds a control change message
func ControlChange(channel, controller, value uint8) RawEvent {
	return RawEvent{Data: [3]byte{StatusControlChange | channel&0x0F, controller & 0x7F, value & 0x7F}, Size: 3}
}

// PitchBend builds a pitch bend message from a 14-bit value
func PitchBend(channel uint8, value uint16) RawEvent {
	if value > PitchBendMax {
		value = PitchBendMax
	}
	return RawEvent{Data: [3]byte{StatusPitchBend | channel&0x0F, byte(value & 0x7F), byte(value >> 7)}, Size: 3}
}
