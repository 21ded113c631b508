package host

import (
	"github.com/justyntemme/sincluster/pkg/midi"
)

// Two tracker-style rows: the bottom row starts at C of the base octave,
// the top row an octave higher.
var keyOffsets = map[rune]int{
	'z': 0, 's': 1, 'x': 2, 'd': 3, 'c': 4, 'v': 5, 'g': 6,
	'b': 7, 'h': 8, 'n': 9, 'j': 10, 'm': 11, ',': 12,
	'q': 12, '2': 13, 'w': 14, '3': 15, 'e': 16, 'r': 17, '5': 18,
	't': 19, '6': 20, 'y': 21, '7': 22, 'u': 23, 'i': 24,
}

const (
	// MinOctave and MaxOctave bound Keyboard.Octave
	MinOctave = 0
	MaxOctave = 8
	// PanicKey releases every held note
	PanicKey = ' '
)

// Keyboard turns terminal key presses into MIDI. A raw terminal reports
// presses but not releases, so each note key toggles its note.
type Keyboard struct {
	Octave   int
	Velocity uint8
	Channel  uint8
	held     [128]bool
}

// NewKeyboard starts at octave 4 (middle C on 'z')
func NewKeyboard() *Keyboard {
	return &Keyboard{Octave: 4, Velocity: 100}
}

// Key handles one key press and appends the resulting events to dst.
// '-' and '=' shift the octave, releasing held notes first.
func (k *Keyboard) Key(r rune, dst []midi.RawEvent) []midi.RawEvent {
	switch r {
	case '-':
		if k.Octave > MinOctave {
			dst = k.ReleaseAll(dst)
			k.Octave--
		}
		return dst
	case '=', '+':
		if k.Octave < MaxOctave {
			dst = k.ReleaseAll(dst)
			k.Octave++
		}
		return dst
	case PanicKey:
		return append(k.ReleaseAll(dst), midi.ControlChange(k.Channel, midi.CCAllNotesOff, 0))
	}

	offset, ok := keyOffsets[r]
	if !ok {
		return dst
	}
	note := (k.Octave+1)*12 + offset
	if note < 0 || note > 127 {
		return dst
	}
	if k.held[note] {
		k.held[note] = false
		return append(dst, midi.NoteOff(k.Channel, uint8(note)))
	}
	k.held[note] = true
	return append(dst, midi.NoteOn(k.Channel, uint8(note), k.Velocity))
}

// ReleaseAll appends a note-off for every held note
func (k *Keyboard) ReleaseAll(dst []midi.RawEvent) []midi.RawEvent {
	for note, on := range k.held {
		if on {
			k.held[note] = false
			dst = append(dst, midi.NoteOff(k.Channel, uint8(note)))
		}
	}
	return dst
}

// Held returns the number of sounding notes
func (k *Keyboard) Held() int {
	n := 0
	for _, on := range k.held {
		if on {
			n++
		}
	}
	return n
}
