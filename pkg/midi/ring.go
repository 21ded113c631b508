package midi

import "sync/atomic"

// Ring is a lock-free single-producer single-consumer queue of RawEvents.
// A MIDI input goroutine pushes, the audio thread drains at block start.
// Neither side blocks or allocates.
type Ring struct {
	buf  []RawEvent
	mask uint64

	// write is only advanced by the producer, read only by the consumer.
	write atomic.Uint64
	read  atomic.Uint64

	dropped atomic.Uint64
}

// NewRing creates a ring holding at least capacity events. The capacity is
// rounded up to a power of two.
func NewRing(capacity int) *Ring {
	size := uint64(1)
	for size < uint64(max(capacity, 1)) {
		size <<= 1
	}
	return &Ring{
		buf:  make([]RawEvent, size),
		mask: size - 1,
	}
}

// Cap returns the number of slots
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of queued events
func (r *Ring) Len() int {
	return int(r.write.Load() - r.read.Load())
}

// Push enqueues e. It returns false and counts a drop when the ring is full.
// Producer side only.
func (r *Ring) Push(e RawEvent) bool {
	w := r.write.Load()
	if w-r.read.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}
	r.buf[w&r.mask] = e
	r.write.Store(w + 1)
	return true
}

// Drain moves up to len(dst) events into dst and returns how many were
// written. Consumer side only.
func (r *Ring) Drain(dst []RawEvent) int {
	rd := r.read.Load()
	avail := r.write.Load() - rd
	n := uint64(len(dst))
	if avail < n {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = r.buf[(rd+i)&r.mask]
	}
	r.read.Store(rd + n)
	return int(n)
}

// Dropped returns how many pushes failed because the ring was full
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}
