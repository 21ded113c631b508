package midi

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeTestSMF(t *testing.T) *bytes.Buffer {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, gomidi.NoteOn(0, 60, 100))
	tr.Add(480, gomidi.NoteOn(0, 64, 90))
	tr.Add(480, gomidi.NoteOff(0, 60))
	tr.Add(0, gomidi.Pitchbend(0, 0))
	tr.Add(960, gomidi.NoteOff(0, 64))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestLoadSMF(t *testing.T) {
	events, stats, err := LoadSMF(writeTestSMF(t), 48000)
	require.NoError(t, err)
	require.Len(t, events, 5)

	assert.Equal(t, 5, stats.Events)
	assert.Equal(t, 1, stats.Tracks)

	// 120 bpm, 960 ticks per quarter: 480 ticks = 0.25 s.
	assert.Equal(t, int64(0), events[0].Frame)
	assert.True(t, events[0].Event.IsNoteOn())
	assert.InDelta(t, 12000, events[1].Frame, 1)
	assert.InDelta(t, 24000, events[2].Frame, 1)
	assert.True(t, events[2].Event.IsNoteOff())
	assert.Equal(t, StatusPitchBend, events[3].Event.Status())
	assert.Equal(t, PitchBendCenter, events[3].Event.PitchBend())
	assert.InDelta(t, 48000, events[4].Frame, 1)
	assert.Equal(t, events[4].Frame, stats.Frames)

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Frame, events[i-1].Frame)
	}
}

func TestLoadSMFErrors(t *testing.T) {
	_, _, err := LoadSMF(strings.NewReader("definitely not a midi file"), 48000)
	assert.Error(t, err)

	_, _, err = LoadSMF(writeTestSMF(t), 0)
	assert.Error(t, err)
}
