// Package render drives the engine offline: it splits a timed event list
// into blocks, processes them and streams the result to a sink.
package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/justyntemme/sincluster/pkg/framework/debug"
	"github.com/justyntemme/sincluster/pkg/framework/process"
	"github.com/justyntemme/sincluster/pkg/midi"
	"github.com/justyntemme/sincluster/pkg/synth"
)

// ErrNoSink is returned when Render is called without a sink
var ErrNoSink = errors.New("render: no sink")

const (
	// DefaultBlockSize is the largest block handed to the engine
	DefaultBlockSize = 512
	// DefaultMaxEvents bounds the events applied at one block start
	DefaultMaxEvents = 256
)

// Sink receives rendered blocks. audioio.Writer implements it.
type Sink interface {
	WriteFloat(channels [][]float32, frames int) error
}

// ProgressFunc is called after every block with the frames rendered so far
// and the total.
type ProgressFunc func(done, total int64)

// Options control the block size, channel count and release tail.
type Options struct {
	BlockSize int
	Channels  int
	MaxEvents int
	// Tail is appended after the last event. Negative means the engine's
	// own release tail.
	Tail time.Duration
	// Profiler, when set, records the processing time of every block.
	Profiler *debug.BlockProfiler
}

// DefaultOptions returns stereo 512-frame blocks with the engine's tail
func DefaultOptions() Options {
	return Options{
		BlockSize: DefaultBlockSize,
		Channels:  2,
		MaxEvents: DefaultMaxEvents,
		Tail:      -1,
	}
}

// Result summarizes a render
type Result struct {
	Frames   int64
	Blocks   int
	Events   int
	Peak     float32
	Clipped  int
	Duration time.Duration
}

// Render processes events, sorted by frame, on s and writes every block to
// sink. Blocks are split at event frames so each event lands on its exact sample. The engine
// is activated first. Cancelling ctx stops between blocks and returns the
// context's error along with what was rendered so far.
func Render(ctx context.Context, s *synth.Synth, events []midi.TimedEvent, sink Sink, opts Options, progress ProgressFunc) (Result, error) {
	var res Result
	if sink == nil {
		return res, ErrNoSink
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Channels <= 0 {
		opts.Channels = 2
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultMaxEvents
	}

	sampleRate := s.Config().SampleRate
	tail := opts.Tail.Seconds()
	if opts.Tail < 0 {
		tail = s.TailSeconds()
	}
	total := int64(math.Ceil(tail * sampleRate))
	if n := len(events); n > 0 {
		total += max(events[n-1].Frame, 0)
	}

	log := debug.Logger("render").WithFields(logrus.Fields{
		"events":      len(events),
		"frames":      total,
		"block_size":  opts.BlockSize,
		"sample_rate": sampleRate,
	})
	log.Debug("Render started")

	pc := process.NewContext(opts.Channels, opts.BlockSize, opts.MaxEvents, sampleRate)
	analyzer := debug.NewAudioAnalyzer()
	s.Activate()

	start := time.Now()
	next := 0
	for res.Frames < total {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			log.WithError(err).WithField("rendered", res.Frames).Warn("Render cancelled")
			return res, err
		}

		frames := min(int64(opts.BlockSize), total-res.Frames)
		end := next
		for end < len(events) && events[end].Frame <= res.Frames && end-next < opts.MaxEvents {
			end++
		}
		// End the block at the next pending event.
		if end < len(events) {
			frames = min(frames, max(events[end].Frame-res.Frames, 1))
		}
		n := pc.Begin(int(frames))
		for _, e := range events[next:end] {
			pc.AddEvent(e.Event)
		}
		res.Events += end - next
		next = end

		blockStart := time.Now()
		s.Process(n, pc.Output, pc.Events())
		if opts.Profiler != nil {
			opts.Profiler.Block(n, time.Since(blockStart))
		}

		for _, out := range pc.Output {
			r := analyzer.Analyze(out)
			res.Peak = max(res.Peak, r.Peak)
			res.Clipped += r.ClippedSamples
		}
		if err := sink.WriteFloat(pc.Output, n); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("render: writing block %d: %w", res.Blocks, err)
		}

		res.Frames += int64(n)
		res.Blocks++
		if progress != nil {
			progress(res.Frames, total)
		}
	}

	res.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"blocks":  res.Blocks,
		"peak":    res.Peak,
		"elapsed": res.Duration,
	}).Debug("Render finished")
	return res, nil
}
