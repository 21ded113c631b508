package debug

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// AudioAnalyzer provides utilities for analyzing audio buffers.
type AudioAnalyzer struct {
	clippingThreshold float32
	dcThreshold       float32
	silenceThreshold  float32
}

// NewAudioAnalyzer creates a new audio analyzer with default settings.
func NewAudioAnalyzer() *AudioAnalyzer {
	return &AudioAnalyzer{
		clippingThreshold: 0.99,
		dcThreshold:       0.01,
		silenceThreshold:  0.0001,
	}
}

// AnalysisResult contains the results of audio buffer analysis.
type AnalysisResult struct {
	Samples        int
	Peak           float32
	RMS            float32
	DC             float32
	Clipping       bool
	ClippedSamples int
	Silent         bool
	// NonFinite counts NaN and infinite samples. They are skipped by every
	// other statistic.
	NonFinite     int
	ZeroCrossings int
}

// Analyze performs analysis on an audio buffer. It does not allocate.
func (a *AudioAnalyzer) Analyze(buffer []float32) AnalysisResult {
	result := AnalysisResult{Samples: len(buffer)}
	if len(buffer) == 0 {
		return result
	}

	var sum, sumSquares float64
	var lastSample float32
	first := true

	for _, sample := range buffer {
		s := float64(sample)
		if math.IsNaN(s) || math.IsInf(s, 0) {
			result.NonFinite++
			continue
		}

		absSample := float32(math.Abs(s))
		if absSample > result.Peak {
			result.Peak = absSample
		}
		if absSample >= a.clippingThreshold {
			result.Clipping = true
			result.ClippedSamples++
		}

		sum += s
		sumSquares += s * s

		if !first && (lastSample < 0) != (sample < 0) {
			result.ZeroCrossings++
		}
		lastSample = sample
		first = false
	}

	finite := len(buffer) - result.NonFinite
	if finite > 0 {
		result.RMS = float32(math.Sqrt(sumSquares / float64(finite)))
		result.DC = float32(sum / float64(finite))
	}
	result.Silent = result.RMS < a.silenceThreshold
	return result
}

// Issues lists the problems found in result, or nil for a clean buffer.
func (a *AudioAnalyzer) Issues(result AnalysisResult, name string) []string {
	var issues []string
	if result.NonFinite > 0 {
		issues = append(issues, fmt.Sprintf("%s: contains %d non-finite values", name, result.NonFinite))
	}
	if result.Clipping {
		issues = append(issues, fmt.Sprintf("%s: clipping detected (%d samples)", name, result.ClippedSamples))
	}
	if math.Abs(float64(result.DC)) > float64(a.dcThreshold) {
		issues = append(issues, fmt.Sprintf("%s: DC offset detected (%.3f)", name, result.DC))
	}
	return issues
}

// CompareBuffers returns the largest absolute difference between a and b
// and its index. Buffers of different length compare as infinitely
// different at index min(len(a), len(b)).
func CompareBuffers(a, b []float32) (maxDiff float64, index int) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if d := math.Abs(float64(a[i]) - float64(b[i])); d > maxDiff {
			maxDiff, index = d, i
		}
	}
	if len(a) != len(b) {
		return math.Inf(1), n
	}
	return maxDiff, index
}

// LogBufferStats analyzes buffer and logs the result on entry, warning
// about every issue found.
func LogBufferStats(entry *logrus.Entry, buffer []float32, name string) AnalysisResult {
	a := NewAudioAnalyzer()
	result := a.Analyze(buffer)

	entry.WithFields(logrus.Fields{
		"buffer":         name,
		"samples":        result.Samples,
		"peak":           fmt.Sprintf("%.3f", result.Peak),
		"rms":            fmt.Sprintf("%.3f", result.RMS),
		"zero_crossings": result.ZeroCrossings,
		"silent":         result.Silent,
	}).Info("Audio buffer stats")

	for _, issue := range a.Issues(result, name) {
		entry.Warn(issue)
	}
	return result
}
