package voice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/justyntemme/sincluster/pkg/midi"
)

// StealPolicy decides which sounding voice is reused when a note-on
// arrives and every voice is busy. Every policy first narrows the choice to
// voices already in their release stage when there are any. Ties are broken
// by the smallest note id (the oldest note), then the lowest slot.
type StealPolicy int

const (
	// StealOldest reuses the voice with the smallest note id
	StealOldest StealPolicy = iota
	// StealQuietest reuses the voice with the lowest envelope level
	StealQuietest
	// StealHighest reuses the voice playing the highest note
	StealHighest
	// StealLowest reuses the voice playing the lowest note
	StealLowest
)

var stealPolicyNames = [...]string{"oldest", "quietest", "highest", "lowest"}

// ErrUnknownPolicy is returned by ParseStealPolicy
var ErrUnknownPolicy = errors.New("voice: unknown steal policy")

func (p StealPolicy) String() string {
	if p < 0 || int(p) >= len(stealPolicyNames) {
		return fmt.Sprintf("StealPolicy(%d)", int(p))
	}
	return stealPolicyNames[p]
}

// ParseStealPolicy parses a policy name as printed by String
func ParseStealPolicy(s string) (StealPolicy, error) {
	for i, name := range stealPolicyNames {
		if strings.EqualFold(s, name) {
			return StealPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// HeldCapacity bounds the list of keys waiting for a note-off. When it is
// full the oldest entry is evicted and its voice released.
const HeldCapacity = 256

// DefaultBendRange is the pitch bend range in semitones
const DefaultBendRange = 2.0

type heldNote struct {
	note uint8
	id   uint32
}

// Manager owns a fixed pool of voices and turns MIDI note, pitch bend and
// channel mode messages into voice assignments. It is driven from the audio
// thread only and never allocates after NewManager.
type Manager struct {
	patch  *Patch
	voices []*Voice
	policy StealPolicy

	noteID    uint32
	held      []heldNote
	seen      [128]bool
	sustained []bool
	sustain   bool

	lastTriggered int
	bend          uint16
	bendRange     float64
}

// NewManager creates maxVoices voices sharing patch. maxVoices < 1 is
// treated as 1.
func NewManager(patch *Patch, maxVoices int, kind EnvelopeKind) *Manager {
	if maxVoices < 1 {
		maxVoices = 1
	}
	m := &Manager{
		patch:     patch,
		voices:    make([]*Voice, maxVoices),
		policy:    StealOldest,
		held:      make([]heldNote, 0, HeldCapacity),
		sustained: make([]bool, maxVoices),
		bend:      midi.PitchBendCenter,
		bendRange: DefaultBendRange,
		// Round-robin starts at slot 0.
		lastTriggered: maxVoices - 1,
	}
	for i := range m.voices {
		m.voices[i] = New(patch, kind)
	}
	return m
}

// SetStealPolicy selects how voices are stolen
func (m *Manager) SetStealPolicy(p StealPolicy) {
	if p < StealOldest || p > StealLowest {
		p = StealOldest
	}
	m.policy = p
}

// StealPolicy returns the active steal policy
func (m *Manager) StealPolicy() StealPolicy {
	return m.policy
}

// SetEnvelopeKind switches the amplitude envelope of every voice. Sounding
// voices are stopped.
func (m *Manager) SetEnvelopeKind(kind EnvelopeKind) {
	m.Reset()
	for _, v := range m.voices {
		v.SetEnvelopeKind(kind)
	}
}

// SetBendRange sets the pitch bend range in semitones
func (m *Manager) SetBendRange(semitones float64) {
	if !(semitones >= 0) {
		semitones = 0
	}
	m.bendRange = semitones
}

// Voices exposes the pool for inspection. Callers must not modify it.
func (m *Manager) Voices() []*Voice {
	return m.voices
}

// BeginBlock clears the per-block set of received note numbers. Call it
// before handing the block's events to HandleEvent.
func (m *Manager) BeginBlock() {
	m.seen = [128]bool{}
}

// Configure publishes the current pitch bend to the patch and applies the
// patch to every voice. Call once per block after the patch is updated.
func (m *Manager) Configure() {
	m.patch.Bend = m.BendSemitones()
	for _, v := range m.voices {
		v.Configure()
	}
}

// HandleEvent dispatches one raw MIDI event. It returns false when the
// event was ignored.
func (m *Manager) HandleEvent(e midi.RawEvent) bool {
	if e.Size != 3 {
		return false
	}
	d1, d2 := e.Data[1]&0x7F, e.Data[2]&0x7F
	switch e.Status() {
	case midi.StatusNoteOff:
		return m.NoteOff(d1)
	case midi.StatusNoteOn:
		if d2 == 0 {
			return m.NoteOff(d1)
		}
		return m.NoteOn(d1, d2) != 0
	case midi.StatusPitchBend:
		m.PitchBend(e.PitchBend())
		return true
	case midi.StatusControlChange:
		switch d1 {
		case midi.CCSustain:
			m.SetSustain(d2 >= 64)
		case midi.CCAllSoundOff:
			m.AllSoundOff()
		case midi.CCAllNotesOff:
			m.AllNotesOff()
		case midi.CCResetAll:
			m.SetSustain(false)
			m.bend = midi.PitchBendCenter
		default:
			return false
		}
		return true
	}
	return false
}

// NoteOn assigns a voice to note and returns the new note id. It returns 0
// when the note number already arrived in the current block.
func (m *Manager) NoteOn(note, velocity uint8) uint32 {
	note &= 0x7F
	if m.seen[note] {
		return 0
	}
	m.seen[note] = true

	m.noteID++
	id := m.noteID
	m.pushHeld(note, id)

	idx := m.findFreeVoice()
	if idx < 0 {
		idx = m.stealVoice()
	}
	m.sustained[idx] = false
	m.voices[idx].Trigger(note, id, float64(velocity&0x7F)/127, m.patch.Phase)
	return id
}

// NoteOff releases the voice of the first held entry for note. A note-off
// without a matching note-on is ignored and returns false.
func (m *Manager) NoteOff(note uint8) bool {
	note &= 0x7F
	for i, h := range m.held {
		if h.note != note {
			continue
		}
		m.removeHeld(i)
		m.releaseID(h.id)
		return true
	}
	return false
}

func (m *Manager) releaseID(id uint32) {
	for i, v := range m.voices {
		if !v.IsActive() || v.NoteID() != id {
			continue
		}
		if m.sustain {
			m.sustained[i] = true
		} else {
			v.Release()
		}
	}
}

func (m *Manager) pushHeld(note uint8, id uint32) {
	if len(m.held) == cap(m.held) {
		evicted := m.held[0]
		m.removeHeld(0)
		m.releaseID(evicted.id)
	}
	m.held = append(m.held, heldNote{note: note, id: id})
}

func (m *Manager) removeHeld(i int) {
	copy(m.held[i:], m.held[i+1:])
	m.held = m.held[:len(m.held)-1]
}

// PitchBend stores the 14-bit bend value shared by all voices. It takes
// effect at the next Configure.
func (m *Manager) PitchBend(value uint16) {
	if value > midi.PitchBendMax {
		value = midi.PitchBendMax
	}
	m.bend = value
}

// PitchBendValue returns the raw 14-bit bend value
func (m *Manager) PitchBendValue() uint16 {
	return m.bend
}

// BendSemitones converts the bend value to semitones using the bend range
func (m *Manager) BendSemitones() float64 {
	return (float64(m.bend) - float64(midi.PitchBendCenter)) / float64(midi.PitchBendCenter) * m.bendRange
}

// SetSustain sets the sustain pedal. Lifting it releases every voice whose
// note-off arrived while it was down.
func (m *Manager) SetSustain(on bool) {
	m.sustain = on
	if on {
		return
	}
	for i, v := range m.voices {
		if m.sustained[i] {
			m.sustained[i] = false
			v.Release()
		}
	}
}

// AllNotesOff releases every voice and forgets held keys. While the
// sustain pedal is down the voices keep sounding until it lifts.
func (m *Manager) AllNotesOff() {
	m.held = m.held[:0]
	for i, v := range m.voices {
		if m.sustain {
			m.sustained[i] = v.IsActive() && !v.IsReleased()
			continue
		}
		m.sustained[i] = false
		v.Release()
	}
}

// AllSoundOff silences every voice at once
func (m *Manager) AllSoundOff() {
	m.held = m.held[:0]
	for i, v := range m.voices {
		m.sustained[i] = false
		v.Stop()
	}
}

// findFreeVoice finds an inactive voice
func (m *Manager) findFreeVoice() int {
	// Use round-robin to distribute voices evenly
	n := len(m.voices)
	for i := 1; i <= n; i++ {
		idx := (m.lastTriggered + i) % n
		if !m.voices[idx].IsActive() {
			m.lastTriggered = idx
			return idx
		}
	}
	return -1
}

// stealVoice picks the voice to reuse according to the steal policy
func (m *Manager) stealVoice() int {
	anyReleased := false
	for _, v := range m.voices {
		if v.IsReleased() {
			anyReleased = true
			break
		}
	}

	best := -1
	for i, v := range m.voices {
		if anyReleased && !v.IsReleased() {
			continue
		}
		if best < 0 || m.better(v, m.voices[best]) {
			best = i
		}
	}
	m.lastTriggered = best
	return best
}

// better reports whether a is a better steal candidate than b. Slot order
// is the final tie-break because candidates are scanned in slot order.
func (m *Manager) better(a, b *Voice) bool {
	switch m.policy {
	case StealQuietest:
		if a.Level() != b.Level() {
			return a.Level() < b.Level()
		}
	case StealHighest:
		if a.Note() != b.Note() {
			return a.Note() > b.Note()
		}
	case StealLowest:
		if a.Note() != b.Note() {
			return a.Note() < b.Note()
		}
	}
	return a.NoteID() < b.NoteID()
}

// RenderSample sums one sample of every active voice
func (m *Manager) RenderSample() float64 {
	sum := 0.0
	for _, v := range m.voices {
		if v.IsActive() {
			sum += v.RenderSample()
		}
	}
	return sum
}

// Render fills left with the summed voices and copies it to right. right
// may be nil for mono output.
func (m *Manager) Render(left, right []float32) {
	for i := range left {
		s := float32(m.RenderSample())
		left[i] = s
		if right != nil {
			right[i] = s
		}
	}
}

// ActiveCount returns the number of sounding voices
func (m *Manager) ActiveCount() int {
	count := 0
	for _, v := range m.voices {
		if v.IsActive() {
			count++
		}
	}
	return count
}

// HeldCount returns the number of keys waiting for a note-off
func (m *Manager) HeldCount() int {
	return len(m.held)
}

// LastNoteID returns the most recently assigned note id, 0 before the
// first note.
func (m *Manager) LastNoteID() uint32 {
	return m.noteID
}

// Reset returns every voice to idle with zeroed registers and forgets held
// keys, the sustain pedal and pitch bend. The note id counter keeps
// counting so ids stay unique for the lifetime of the manager.
func (m *Manager) Reset() {
	for i, v := range m.voices {
		v.Stop()
		m.sustained[i] = false
	}
	m.held = m.held[:0]
	m.seen = [128]bool{}
	m.sustain = false
	m.bend = midi.PitchBendCenter
	m.lastTriggered = len(m.voices) - 1
}

// Startup prepares the manager for processing after activation.
func (m *Manager) Startup() {
	m.seen = [128]bool{}
	m.Configure()
}
