package process

import (
	"encoding/binary"
	"math"
)

// Interleave writes the block's channels frame by frame into dst and
// returns the number of samples written. A short dst truncates to whole
// frames.
func (c *Context) Interleave(dst []float32) int {
	channels := c.NumOutputChannels()
	frames := min(c.NumSamples(), len(dst)/channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			dst[i*channels+ch] = c.Output[ch][i]
		}
	}
	return frames * channels
}

// BytesPerSample is the size of one float32 sample in InterleaveBytes
const BytesPerSample = 4

// InterleaveBytes is Interleave encoding float32 little endian, the
// layout realtime audio devices take. It returns the number of bytes
// written.
func (c *Context) InterleaveBytes(dst []byte) int {
	channels := c.NumOutputChannels()
	frameSize := channels * BytesPerSample
	frames := min(c.NumSamples(), len(dst)/frameSize)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := i*frameSize + ch*BytesPerSample
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(c.Output[ch][i]))
		}
	}
	return frames * frameSize
}
