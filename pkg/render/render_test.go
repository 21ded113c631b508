package render

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/sincluster/pkg/framework/debug"
	"github.com/justyntemme/sincluster/pkg/framework/voice"
	"github.com/justyntemme/sincluster/pkg/midi"
	"github.com/justyntemme/sincluster/pkg/synth"
)

// memSink keeps every rendered channel in memory.
type memSink struct {
	channels [][]float32
	blocks   []int
	failAt   int
}

func (m *memSink) WriteFloat(channels [][]float32, frames int) error {
	if m.failAt > 0 && len(m.blocks)+1 == m.failAt {
		return errors.New("disk full")
	}
	if m.channels == nil {
		m.channels = make([][]float32, len(channels))
	}
	for ch := range channels {
		m.channels[ch] = append(m.channels[ch], channels[ch][:frames]...)
	}
	m.blocks = append(m.blocks, frames)
	return nil
}

func newSynth(t *testing.T, sampleRate float64) *synth.Synth {
	t.Helper()
	cfg := synth.DefaultConfig()
	cfg.SampleRate = sampleRate
	s, err := synth.New(cfg)
	require.NoError(t, err)
	s.Params().SetPlain(synth.ParamAttack, 0.001)
	s.Params().SetPlain(synth.ParamRelease, 0.005)
	return s
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.BlockSize = 256
	opts.Tail = 10 * time.Millisecond
	return opts
}

func TestRenderSampleAccurate(t *testing.T) {
	s := newSynth(t, 48000)
	events := []midi.TimedEvent{
		{Frame: 100, Event: midi.NoteOn(0, 60, 100)},
		{Frame: 700, Event: midi.NoteOff(0, 60)},
	}
	sink := &memSink{}

	res, err := Render(context.Background(), s, events, sink, testOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(700+480), res.Frames)
	assert.Equal(t, 2, res.Events)
	assert.Equal(t, len(sink.blocks), res.Blocks)
	require.Len(t, sink.channels, 2)
	require.Len(t, sink.channels[0], 1180)
	assert.Equal(t, sink.channels[0], sink.channels[1])

	// Blocks end on event frames.
	assert.Equal(t, 100, sink.blocks[0])
	assert.Equal(t, 256, sink.blocks[1])

	for i, v := range sink.channels[0][:100] {
		require.Zero(t, v, "frame %d", i)
	}
	onset := debug.NewAudioAnalyzer().Analyze(sink.channels[0][100:110])
	assert.False(t, onset.Silent)

	// The release is over well before the tail ends.
	end := debug.NewAudioAnalyzer().Analyze(sink.channels[0][1100:])
	assert.True(t, end.Silent)
	assert.Zero(t, s.Stats().ActiveVoices)
	assert.Greater(t, res.Peak, float32(0))
}

func TestRenderEventOverflow(t *testing.T) {
	s := newSynth(t, 48000)
	var events []midi.TimedEvent
	for i := uint8(0); i < 5; i++ {
		events = append(events, midi.TimedEvent{Event: midi.NoteOn(0, 60+i, 100)})
	}
	opts := testOptions()
	opts.MaxEvents = 2
	opts.Tail = time.Millisecond

	res, err := Render(context.Background(), s, events, &memSink{}, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Events)
	assert.Equal(t, 5, s.Stats().ActiveVoices)
}

func TestRenderProgress(t *testing.T) {
	s := newSynth(t, 48000)
	var calls int
	var last, total int64
	_, err := Render(context.Background(), s, nil, &memSink{}, testOptions(), func(done, all int64) {
		calls++
		assert.Greater(t, done, last)
		last, total = done, all
	})
	require.NoError(t, err)
	assert.Equal(t, int64(480), total)
	assert.Equal(t, total, last)
	assert.Equal(t, 2, calls)
}

func TestRenderCancelled(t *testing.T) {
	s := newSynth(t, 48000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{}
	res, err := Render(ctx, s, Demo(48000), sink, testOptions(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Frames)
	assert.Empty(t, sink.blocks)
}

func TestRenderCancelMidway(t *testing.T) {
	s := newSynth(t, 48000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := Render(ctx, s, Demo(48000), &memSink{}, testOptions(), func(done, total int64) {
		if done >= 4096 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, res.Frames, int64(4096))
	assert.Less(t, res.Frames, int64(8192))
}

func TestRenderErrors(t *testing.T) {
	s := newSynth(t, 48000)
	_, err := Render(context.Background(), s, nil, nil, testOptions(), nil)
	assert.ErrorIs(t, err, ErrNoSink)

	sink := &memSink{failAt: 2}
	res, err := Render(context.Background(), s, nil, sink, testOptions(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, res.Blocks)
}

func TestRenderDefaultTail(t *testing.T) {
	s := newSynth(t, 48000)
	opts := testOptions()
	opts.Tail = -1

	res, err := Render(context.Background(), s, nil, &memSink{}, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(math.Ceil(48000*s.TailSeconds())), res.Frames)
}

func TestRenderTailCoversSectionRelease(t *testing.T) {
	cfg := synth.DefaultConfig()
	cfg.EnvelopeKind = voice.EnvelopeSections
	s, err := synth.New(cfg)
	require.NoError(t, err)
	s.Params().SetPlain(synth.ParamRelease, 0.02)
	s.Params().SetPlain(synth.ParamSectionRate, 0.1)

	events := []midi.TimedEvent{
		{Frame: 0, Event: midi.NoteOn(0, 60, 100)},
		{Frame: 4800, Event: midi.NoteOff(0, 60)},
	}
	opts := testOptions()
	opts.Tail = -1

	res, err := Render(context.Background(), s, events, &memSink{}, opts, nil)
	require.NoError(t, err)
	assert.Greater(t, res.Frames, int64(4800+9600))
	assert.Equal(t, 0, s.Stats().ActiveVoices)
}

func TestSequence(t *testing.T) {
	steps := []Step{
		{Beat: 1, Length: 1, Notes: []uint8{60, 64}, Velocity: 90},
		{Beat: 0, Length: 0.5, Notes: []uint8{48}, Velocity: 80},
	}
	events := Sequence(steps, 120, 1000)
	require.Len(t, events, 6)

	frames := make([]int64, len(events))
	for i, e := range events {
		frames[i] = e.Frame
	}
	assert.Equal(t, []int64{0, 250, 500, 500, 1000, 1000}, frames)
	assert.True(t, events[0].Event.IsNoteOn())
	assert.True(t, events[1].Event.IsNoteOff())
}

func TestDemoRender(t *testing.T) {
	events := Demo(8000)
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		require.LessOrEqual(t, events[i-1].Frame, events[i].Frame)
	}
	var lastBend midi.RawEvent
	for _, e := range events {
		if e.Event.Status() == midi.StatusPitchBend {
			lastBend = e.Event
		}
	}
	assert.Equal(t, midi.PitchBendCenter, lastBend.PitchBend())

	profiler := debug.NewBlockProfiler(8000)
	opts := testOptions()
	opts.Profiler = profiler
	sink := &memSink{}

	res, err := Render(context.Background(), newSynth(t, 8000), events, sink, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, len(events), res.Events)
	assert.Greater(t, profiler.RealtimeFactor(), 0.0)

	result := debug.NewAudioAnalyzer().Analyze(sink.channels[0])
	assert.Zero(t, result.NonFinite)
	assert.False(t, result.Silent)
}
