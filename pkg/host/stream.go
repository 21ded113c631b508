// Package host runs the engine in real time: a producer goroutine renders
// blocks ahead into a write-ahead buffer and an audio library pulls bytes
// through an io.Reader.
package host

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/justyntemme/sincluster/pkg/dsp/buffer"
	"github.com/justyntemme/sincluster/pkg/framework/debug"
	"github.com/justyntemme/sincluster/pkg/framework/process"
	"github.com/justyntemme/sincluster/pkg/midi"
	"github.com/justyntemme/sincluster/pkg/synth"
)

// Channels is the interleaved channel count of the stream
const Channels = 2

// BytesPerFrame is the size of one float32 stereo frame
const BytesPerFrame = Channels * process.BytesPerSample

// StreamOptions size the blocks and the write-ahead distance.
type StreamOptions struct {
	BlockSize int
	MaxEvents int
	Latency   time.Duration
}

// DefaultStreamOptions returns 256-frame blocks 50 ms ahead of the device
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BlockSize: 256,
		MaxEvents: 128,
		Latency:   buffer.DefaultLatency,
	}
}

// Stream connects the engine to a pull-based audio output. Events pushed
// to Ring are applied at the start of the next rendered block.
type Stream struct {
	synth *synth.Synth
	ring  *midi.Ring
	pc    *process.Context
	buf   *buffer.WriteAheadBuffer
	block []float32
	read  []float32
	log   *logrus.Entry

	profiler *debug.BlockProfiler
}

// NewStream builds a stream around s. The engine is activated.
func NewStream(s *synth.Synth, ring *midi.Ring, opts StreamOptions) *Stream {
	def := DefaultStreamOptions()
	if opts.BlockSize <= 0 {
		opts.BlockSize = def.BlockSize
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = def.MaxEvents
	}
	sampleRate := s.Config().SampleRate

	st := &Stream{
		synth:    s,
		ring:     ring,
		pc:       process.NewContext(Channels, opts.BlockSize, opts.MaxEvents, sampleRate),
		buf:      buffer.NewWriteAheadBuffer(sampleRate, Channels, opts.Latency),
		block:    make([]float32, opts.BlockSize*Channels),
		log:      debug.Logger("host"),
		profiler: debug.NewBlockProfiler(sampleRate),
	}
	st.read = make([]float32, st.buf.Size())
	s.Activate()

	st.log.WithFields(logrus.Fields{
		"block_size": opts.BlockSize,
		"latency":    opts.Latency,
		"buffer":     st.buf.Size(),
	}).Info("Stream created")
	return st
}

// RenderBlock renders one block into the write-ahead buffer. It returns
// false without rendering once the configured latency is queued, so events
// from the ring are heard at most one latency plus one block later.
func (st *Stream) RenderBlock() bool {
	if st.buf.Available() >= st.buf.LatencySamples() || st.buf.Space() < len(st.block) {
		return false
	}

	frames := st.pc.Begin(st.pc.MaxBlockSize())
	if st.ring != nil {
		st.pc.SetEventCount(st.ring.Drain(st.pc.EventBuffer()))
	}

	start := time.Now()
	st.synth.Process(frames, st.pc.Output, st.pc.Events())
	st.profiler.Block(frames, time.Since(start))

	n := st.pc.Interleave(st.block)
	// Space was checked above and only this goroutine writes.
	_ = st.buf.Write(st.block[:n])
	return true
}

// Fill renders blocks until the latency is queued and returns how many it
// rendered.
func (st *Stream) Fill() int {
	n := 0
	for st.RenderBlock() {
		n++
	}
	return n
}

// Run keeps the buffer topped up until ctx is cancelled.
func (st *Stream) Run(ctx context.Context) error {
	interval := time.Duration(float64(st.pc.MaxBlockSize()) / st.synth.Config().SampleRate * float64(time.Second) / 2)
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	st.Fill()
	for {
		select {
		case <-ctx.Done():
			health := st.buf.GetBufferHealth()
			st.log.WithFields(logrus.Fields{
				"underruns": health.Underruns,
				"overruns":  health.Overruns,
				"cpu_load":  st.profiler.CPULoad(),
			}).Info("Stream stopped")
			return ctx.Err()
		case <-ticker.C:
			st.Fill()
		}
	}
}

// Read implements io.Reader with float32 little-endian interleaved stereo.
// It never blocks: when the producer falls behind it returns silence.
func (st *Stream) Read(p []byte) (int, error) {
	frames := len(p) / BytesPerFrame
	written := 0
	for frames > 0 {
		chunk := min(frames, len(st.read)/Channels)
		samples := st.read[:chunk*Channels]
		st.buf.Read(samples)
		for i, v := range samples {
			binary.LittleEndian.PutUint32(p[written+i*process.BytesPerSample:], math.Float32bits(v))
		}
		written += len(samples) * process.BytesPerSample
		frames -= chunk
	}
	return written, nil
}

// Health returns the write-ahead buffer statistics
func (st *Stream) Health() buffer.BufferStats {
	return st.buf.GetBufferHealth()
}

// Profiler returns the block timing profiler
func (st *Stream) Profiler() *debug.BlockProfiler {
	return st.profiler
}
