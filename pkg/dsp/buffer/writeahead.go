package buffer

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

// ErrOverrun is returned by Write when the samples do not fit
var ErrOverrun = errors.New("buffer: overrun")

// DefaultLatency is the write-ahead distance used when none is given
const DefaultLatency = 50 * time.Millisecond

// WriteAheadBuffer is a lock-free single-producer single-consumer ring of
// interleaved samples. The reader outputs silence until the writer is a
// full latency ahead, and again after every underrun, so short producer
// stalls such as GC pauses are absorbed instead of heard as clicks.
type WriteAheadBuffer struct {
	data           []float32
	mask           uint64
	latencySamples uint64
	sampleRate     float64
	channels       int

	readPos  atomic.Uint64
	writePos atomic.Uint64
	primed   atomic.Bool

	underruns atomic.Uint64
	overruns  atomic.Uint64
	reprimes  atomic.Uint64
}

// BufferStats provides health monitoring information
type BufferStats struct {
	Underruns      uint64
	Overruns       uint64
	Reprimes       uint64
	FillPercentage float32
	CurrentLatency time.Duration
}

// NewWriteAheadBuffer creates a buffer for interleaved audio that keeps
// latency of audio queued before the reader starts. The capacity is four
// latencies rounded up to a power of two.
func NewWriteAheadBuffer(sampleRate float64, channels int, latency time.Duration) *WriteAheadBuffer {
	if latency <= 0 {
		latency = DefaultLatency
	}
	channels = max(channels, 1)
	frames := uint64(math.Max(math.Round(latency.Seconds()*sampleRate), 1))
	latencySamples := frames * uint64(channels)
	size := nextPowerOf2(latencySamples * 4)

	return &WriteAheadBuffer{
		data:           make([]float32, size),
		mask:           size - 1,
		latencySamples: latencySamples,
		sampleRate:     sampleRate,
		channels:       channels,
	}
}

// Size returns the capacity in samples
func (buf *WriteAheadBuffer) Size() int {
	return len(buf.data)
}

// LatencySamples returns the write-ahead distance in samples
func (buf *WriteAheadBuffer) LatencySamples() int {
	return int(buf.latencySamples)
}

// Space returns how many samples Write can take
func (buf *WriteAheadBuffer) Space() int {
	return len(buf.data) - buf.Available()
}

// Available returns how many samples are queued
func (buf *WriteAheadBuffer) Available() int {
	used := buf.writePos.Load() - buf.readPos.Load()
	return int(min(used, uint64(len(buf.data))))
}

// Write appends samples. It is all or nothing: when they do not fit,
// nothing is written and ErrOverrun is returned. Producer side only.
func (buf *WriteAheadBuffer) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	if buf.Space() < len(samples) {
		buf.overruns.Add(1)
		return ErrOverrun
	}

	writePos := buf.writePos.Load()
	remaining := samples
	for len(remaining) > 0 {
		idx := writePos & buf.mask
		n := copy(buf.data[idx:], remaining)
		remaining = remaining[n:]
		writePos += uint64(n)
	}
	buf.writePos.Store(writePos)
	return nil
}

// Read fills output and returns how many samples came from the buffer.
// The rest of output is zeroed. Consumer side only.
func (buf *WriteAheadBuffer) Read(output []float32) int {
	if len(output) == 0 {
		return 0
	}

	available := uint64(buf.Available())
	if !buf.primed.Load() {
		if available < buf.latencySamples {
			clear(output)
			return 0
		}
		buf.primed.Store(true)
	}

	toRead := uint64(len(output))
	if available < toRead {
		toRead = available
		buf.underruns.Add(1)
		buf.primed.Store(false)
		buf.reprimes.Add(1)
	}

	readPos := buf.readPos.Load()
	dst := output[:toRead]
	for len(dst) > 0 {
		idx := readPos & buf.mask
		n := copy(dst, buf.data[idx:])
		dst = dst[n:]
		readPos += uint64(n)
	}
	buf.readPos.Store(readPos)

	clear(output[toRead:])
	return int(toRead)
}

// GetBufferHealth returns current buffer statistics
func (buf *WriteAheadBuffer) GetBufferHealth() BufferStats {
	return BufferStats{
		Underruns:      buf.underruns.Load(),
		Overruns:       buf.overruns.Load(),
		Reprimes:       buf.reprimes.Load(),
		FillPercentage: buf.GetBufferUtilization() * 100,
		CurrentLatency: buf.GetCurrentLatency(),
	}
}

// GetCurrentLatency returns the duration of queued audio
func (buf *WriteAheadBuffer) GetCurrentLatency() time.Duration {
	frames := float64(buf.Available()) / float64(buf.channels)
	return time.Duration(frames / buf.sampleRate * float64(time.Second))
}

// GetBufferUtilization returns the fill level in [0, 1]
func (buf *WriteAheadBuffer) GetBufferUtilization() float32 {
	return float32(buf.Available()) / float32(len(buf.data))
}

// Reset empties the buffer and clears the statistics. Neither side may be
// running.
func (buf *WriteAheadBuffer) Reset() {
	clear(buf.data)
	buf.readPos.Store(0)
	buf.writePos.Store(0)
	buf.primed.Store(false)
	buf.underruns.Store(0)
	buf.overruns.Store(0)
	buf.reprimes.Store(0)
}

// nextPowerOf2 rounds up to the next power of 2
func nextPowerOf2(n uint64) uint64 {
	size := uint64(1)
	for size < n {
		size <<= 1
	}
	return size
}
