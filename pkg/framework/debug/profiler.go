package debug

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler records timing statistics for named sections. It is safe for
// concurrent use but takes a lock, so keep it off the audio thread.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	enabled      atomic.Bool
	maxSamples   int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name    string
	Count   uint64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Last    time.Duration
	samples []time.Duration
	next    int
}

// NewProfiler creates a profiler keeping the last maxSamples timings of
// each section for percentiles.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples < 1 {
		maxSamples = 1
	}
	p := &Profiler{
		measurements: make(map[string]*Measurement),
		maxSamples:   maxSamples,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// IsEnabled returns whether profiling is enabled.
func (p *Profiler) IsEnabled() bool {
	return p.enabled.Load()
}

// Start begins timing a named section. Call the returned func to stop.
func (p *Profiler) Start(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Time measures the execution time of a function.
func (p *Profiler) Time(name string, fn func()) {
	stop := p.Start(name)
	defer stop()
	fn()
}

// Record stores one timing measurement.
func (p *Profiler) Record(name string, elapsed time.Duration) {
	if !p.enabled.Load() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.measurements[name]
	if !exists {
		m = &Measurement{
			Name:    name,
			Min:     elapsed,
			Max:     elapsed,
			samples: make([]time.Duration, 0, p.maxSamples),
		}
		p.measurements[name] = m
	}

	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	m.Min = min(m.Min, elapsed)
	m.Max = max(m.Max, elapsed)

	if len(m.samples) < p.maxSamples {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.next] = elapsed
	}
	m.next = (m.next + 1) % p.maxSamples
}

// GetMeasurement returns a copy of the measurement for a named section.
func (p *Profiler) GetMeasurement(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, exists := p.measurements[name]
	if !exists {
		return Measurement{}, false
	}
	c := *m
	c.samples = slices.Clone(m.samples)
	return c, true
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*Measurement)
}

// Report generates a performance report sorted by section name.
func (p *Profiler) Report() string {
	p.mu.RLock()
	names := make([]string, 0, len(p.measurements))
	for name := range p.measurements {
		names = append(names, name)
	}
	p.mu.RUnlock()

	if len(names) == 0 {
		return "No measurements recorded"
	}
	slices.Sort(names)

	var sb strings.Builder
	for _, name := range names {
		m, _ := p.GetMeasurement(name)
		fmt.Fprintf(&sb, "%s: count=%d avg=%v min=%v max=%v p99=%v\n",
			name, m.Count, m.Average(), m.Min, m.Max, m.Percentile(99))
	}
	return sb.String()
}

// Average returns the average time for this measurement.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the p-th percentile (0-100) of the recent samples.
func (m Measurement) Percentile(p float64) time.Duration {
	if len(m.samples) == 0 {
		return 0
	}
	sorted := slices.Clone(m.samples)
	slices.Sort(sorted)
	p = min(max(p, 0), 100)
	return sorted[int(float64(len(sorted)-1)*p/100+0.5)]
}

// ProcessSection is the section name BlockProfiler records under.
const ProcessSection = "process"

// BlockProfiler times audio blocks and relates them to the audio time they
// produced.
type BlockProfiler struct {
	*Profiler
	sampleRate float64
	frames     atomic.Int64
}

// NewBlockProfiler creates a profiler for blocks rendered at sampleRate.
func NewBlockProfiler(sampleRate float64) *BlockProfiler {
	return &BlockProfiler{
		Profiler:   NewProfiler(1000),
		sampleRate: sampleRate,
	}
}

// Block records one processed block of frames that took elapsed.
func (b *BlockProfiler) Block(frames int, elapsed time.Duration) {
	b.frames.Add(int64(frames))
	b.Record(ProcessSection, elapsed)
}

// RealtimeFactor is audio time produced divided by processing time; above
// 1 means faster than real time. It is 0 before the first block.
func (b *BlockProfiler) RealtimeFactor() float64 {
	m, ok := b.GetMeasurement(ProcessSection)
	if !ok || m.Total <= 0 || b.sampleRate <= 0 {
		return 0
	}
	audio := float64(b.frames.Load()) / b.sampleRate
	return audio / m.Total.Seconds()
}

// CPULoad is the processing time as a percentage of audio time
func (b *BlockProfiler) CPULoad() float64 {
	rtf := b.RealtimeFactor()
	if rtf == 0 {
		return 0
	}
	return 100 / rtf
}

// AudioReport adds the realtime figures to Report.
func (b *BlockProfiler) AudioReport() string {
	return b.Report() + fmt.Sprintf("sample rate=%.0f Hz frames=%d realtime factor=%.1fx cpu load=%.2f%%\n",
		b.sampleRate, b.frames.Load(), b.RealtimeFactor(), b.CPULoad())
}
