package buffer

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestNewWriteAheadBuffer(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		channels   int
		latency    time.Duration
		wantLat    int
	}{
		{"Stereo50ms", 48000, 2, 50 * time.Millisecond, 4800},
		{"Mono10ms", 44100, 1, 10 * time.Millisecond, 441},
		{"Default", 48000, 2, 0, 4800},
		{"ZeroChannels", 1000, 0, time.Second, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewWriteAheadBuffer(tt.sampleRate, tt.channels, tt.latency)
			assert.Equal(t, tt.wantLat, buf.LatencySamples())
			size := buf.Size()
			assert.Zero(t, size&(size-1), "size %d is not a power of two", size)
			assert.GreaterOrEqual(t, size, 4*tt.wantLat)
			assert.Equal(t, size, buf.Space())
		})
	}
}

func TestPrimingDelaysOutput(t *testing.T) {
	buf := NewWriteAheadBuffer(1000, 1, 10*time.Millisecond)
	require.Equal(t, 10, buf.LatencySamples())

	require.NoError(t, buf.Write(ramp(1, 6)))
	out := []float32{9, 9, 9, 9}
	assert.Equal(t, 0, buf.Read(out))
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.Equal(t, 6, buf.Available())

	require.NoError(t, buf.Write(ramp(7, 6)))
	assert.Equal(t, 4, buf.Read(out))
	assert.Equal(t, []float32{1, 2, 3, 4}, out)

	// Once primed the reader drains below the latency.
	assert.Equal(t, 4, buf.Read(out))
	assert.Equal(t, []float32{5, 6, 7, 8}, out)
	assert.Zero(t, buf.GetBufferHealth().Underruns)
}

func TestUnderrunReprimes(t *testing.T) {
	buf := NewWriteAheadBuffer(1000, 1, 4*time.Millisecond)
	require.NoError(t, buf.Write(ramp(1, 6)))

	out := make([]float32, 4)
	assert.Equal(t, 4, buf.Read(out))
	assert.Equal(t, 2, buf.Read(out))
	assert.Equal(t, []float32{5, 6, 0, 0}, out)

	stats := buf.GetBufferHealth()
	assert.Equal(t, uint64(1), stats.Underruns)
	assert.Equal(t, uint64(1), stats.Reprimes)

	// Silence until the writer is a full latency ahead again.
	require.NoError(t, buf.Write(ramp(7, 3)))
	assert.Equal(t, 0, buf.Read(out))
	require.NoError(t, buf.Write(ramp(10, 1)))
	assert.Equal(t, 4, buf.Read(out))
	assert.Equal(t, []float32{7, 8, 9, 10}, out)
}

func TestWrapAround(t *testing.T) {
	buf := NewWriteAheadBuffer(1000, 1, 2*time.Millisecond)
	require.Equal(t, 8, buf.Size())

	out := make([]float32, 5)
	next := 1
	for round := 0; round < 10; round++ {
		require.NoError(t, buf.Write(ramp(next, 5)))
		require.Equal(t, 5, buf.Read(out))
		assert.Equal(t, ramp(next, 5), out, "round %d", round)
		next += 5
	}
}

func TestOverrun(t *testing.T) {
	buf := NewWriteAheadBuffer(1000, 1, 2*time.Millisecond)
	require.NoError(t, buf.Write(ramp(0, 6)))
	assert.ErrorIs(t, buf.Write(ramp(0, 3)), ErrOverrun)
	assert.Equal(t, 6, buf.Available())
	require.NoError(t, buf.Write(ramp(0, 2)))
	assert.Zero(t, buf.Space())
	assert.Equal(t, uint64(1), buf.GetBufferHealth().Overruns)
}

func TestHealthAndReset(t *testing.T) {
	buf := NewWriteAheadBuffer(1000, 2, 10*time.Millisecond)
	require.Equal(t, 128, buf.Size())
	require.NoError(t, buf.Write(make([]float32, 64)))

	stats := buf.GetBufferHealth()
	assert.InDelta(t, 50, stats.FillPercentage, 1e-3)
	assert.InDelta(t, float64(32*time.Millisecond), float64(stats.CurrentLatency), float64(time.Microsecond))

	buf.Write(make([]float32, 100))
	buf.Reset()
	stats = buf.GetBufferHealth()
	assert.Zero(t, stats.Overruns)
	assert.Zero(t, stats.FillPercentage)
	assert.Zero(t, buf.Read(make([]float32, 4)))
}

func TestNextPowerOf2(t *testing.T) {
	for in, want := range map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 1000: 1024, 1024: 1024, 1025: 2048} {
		assert.Equal(t, want, nextPowerOf2(in), "input %d", in)
	}
}

// The consumer must see an unbroken ramp even when the producer is
// stalled by garbage collection.
func TestConcurrentOrdering(t *testing.T) {
	buf := NewWriteAheadBuffer(48000, 2, 20*time.Millisecond)
	const block = 256
	const total = 400 * block

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		next := 1
		for next <= total {
			if buf.Space() < block {
				runtime.Gosched()
				continue
			}
			if err := buf.Write(ramp(next, block)); err != nil {
				t.Errorf("write: %v", err)
				return
			}
			next += block
			if next%(64*block) == 1 {
				runtime.GC()
			}
		}
		// Pad so the reader primes for the last partial latency.
		pad := make([]float32, buf.LatencySamples())
		for buf.Write(pad) != nil {
			runtime.Gosched()
		}
	}()

	out := make([]float32, 128)
	expected := float32(1)
	deadline := time.Now().Add(10 * time.Second)
	for expected <= total && time.Now().Before(deadline) {
		n := buf.Read(out)
		for _, v := range out[:n] {
			if expected > total {
				break
			}
			if v != expected {
				t.Fatalf("got %v, want %v", v, expected)
			}
			expected++
		}
		if n == 0 {
			runtime.Gosched()
		}
	}
	wg.Wait()
	assert.Equal(t, float32(total+1), expected)
}

func BenchmarkWriteRead(b *testing.B) {
	buf := NewWriteAheadBuffer(48000, 2, 10*time.Millisecond)
	data := make([]float32, 512)
	out := make([]float32, 512)
	buf.Write(make([]float32, buf.LatencySamples()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Write(data)
		buf.Read(out)
	}
}
