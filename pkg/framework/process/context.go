// Package process provides the pre-allocated block buffers that drive the
// engine from the offline renderer and the realtime stream.
package process

import (
	"github.com/justyntemme/sincluster/pkg/midi"
)

// Context holds output channels and a MIDI event list for one block. All
// storage is allocated by NewContext; Begin only reslices it.
type Context struct {
	Output     [][]float32
	SampleRate float64

	channels [][]float32
	events   []midi.RawEvent
	dropped  uint64
}

// NewContext creates a context with channels outputs of up to maxBlockSize
// frames and room for maxEvents MIDI events per block.
func NewContext(channels, maxBlockSize, maxEvents int, sampleRate float64) *Context {
	if channels < 1 {
		channels = 1
	}
	if maxBlockSize < 1 {
		maxBlockSize = 1
	}
	c := &Context{
		Output:     make([][]float32, channels),
		SampleRate: sampleRate,
		channels:   make([][]float32, channels),
		events:     make([]midi.RawEvent, 0, max(maxEvents, 0)),
	}
	for ch := range c.channels {
		c.channels[ch] = make([]float32, maxBlockSize)
		c.Output[ch] = c.channels[ch]
	}
	return c
}

// Begin starts a block of frames, clamped to the maximum block size, and
// empties the event list. It returns the clamped frame count.
func (c *Context) Begin(frames int) int {
	frames = min(max(frames, 0), c.MaxBlockSize())
	for ch := range c.channels {
		c.Output[ch] = c.channels[ch][:frames]
	}
	c.events = c.events[:0]
	return frames
}

// MaxBlockSize returns the largest block Begin accepts
func (c *Context) MaxBlockSize() int {
	return len(c.channels[0])
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	return len(c.Output[0])
}

// NumOutputChannels returns the number of output channels
func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// AddEvent queues e for the current block. Events beyond capacity are
// dropped and counted so the audio thread never grows the slice.
func (c *Context) AddEvent(e midi.RawEvent) bool {
	if len(c.events) == cap(c.events) {
		c.dropped++
		return false
	}
	c.events = append(c.events, e)
	return true
}

// Events returns the events queued for the current block
func (c *Context) Events() []midi.RawEvent {
	return c.events
}

// EventBuffer returns the full event storage so a ring can drain straight
// into it. Follow with SetEventCount.
func (c *Context) EventBuffer() []midi.RawEvent {
	return c.events[:cap(c.events)]
}

// SetEventCount sets how many entries of EventBuffer are valid
func (c *Context) SetEventCount(n int) {
	c.events = c.events[:min(max(n, 0), cap(c.events))]
}

// DroppedEvents returns how many events did not fit in a block
func (c *Context) DroppedEvents() uint64 {
	return c.dropped
}

// Clear zeroes all output buffers
func (c *Context) Clear() {
	for _, out := range c.Output {
		clear(out)
	}
}
