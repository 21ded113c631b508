// Package audioio writes rendered audio to WAV and AIFF files and draws
// waveform charts for inspection.
package audioio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for file extensions and bit depths the
// writers cannot encode.
var ErrUnsupportedFormat = errors.New("audioio: unsupported format")

// Format is a container format
type Format int

const (
	FormatWAV Format = iota
	FormatAIFF
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatAIFF:
		return "aiff"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// IntMaxSignedValue is the largest sample value per supported bit depth
var IntMaxSignedValue = map[int]int{
	8:  127,
	16: 32767,
	24: 8388607,
	32: 2147483647,
}

// FormatFromPath picks the container from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".aif", ".aiff":
		return FormatAIFF, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

type encoder interface {
	Write(buf *audio.IntBuffer) error
	Close() error
}

// Writer converts float blocks to integer PCM and streams them to an
// encoder. Samples outside [-1, 1] are clipped and counted.
type Writer struct {
	format   Format
	channels int
	enc      encoder
	buf      *audio.IntBuffer
	maxValue int
	file     *os.File

	frames  int64
	clipped int64
}

// Create opens path for writing, choosing the container by extension.
func Create(path string, sampleRate, bitDepth, channels int) (*Writer, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, format, sampleRate, bitDepth, channels)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter encodes to ws. The caller keeps ownership of ws; Close only
// finalizes the header.
func NewWriter(ws io.WriteSeeker, format Format, sampleRate, bitDepth, channels int) (*Writer, error) {
	maxValue, ok := IntMaxSignedValue[bitDepth]
	if !ok {
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, bitDepth)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("audioio: invalid stream %d Hz, %d channels", sampleRate, channels)
	}

	w := &Writer{
		format:   format,
		channels: channels,
		maxValue: maxValue,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}
	switch format {
	case FormatWAV:
		w.enc = wav.NewEncoder(ws, sampleRate, bitDepth, channels, 1) // linear PCM
	case FormatAIFF:
		w.enc = aiff.NewEncoder(ws, sampleRate, bitDepth, channels)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	return w, nil
}

// WriteFloat interleaves frames samples of each channel and encodes them.
// Missing channels are written as silence.
func (w *Writer) WriteFloat(channels [][]float32, frames int) error {
	if frames <= 0 {
		return nil
	}
	n := frames * w.channels
	if cap(w.buf.Data) < n {
		w.buf.Data = make([]int, n)
	}
	w.buf.Data = w.buf.Data[:n]

	scale := float64(w.maxValue)
	for ch := 0; ch < w.channels; ch++ {
		var src []float32
		if ch < len(channels) {
			src = channels[ch]
		}
		for i := 0; i < frames; i++ {
			v := 0.0
			if i < len(src) {
				v = float64(src[i])
			}
			// clip guard: the encoder would wrap out of range values
			switch {
			case math.IsNaN(v):
				v = 0
				w.clipped++
			case v > 1:
				v = 1
				w.clipped++
			case v < -1:
				v = -1
				w.clipped++
			}
			w.buf.Data[i*w.channels+ch] = int(math.Round(v * scale))
		}
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("audioio: writing %v: %w", w.format, err)
	}
	w.frames += int64(frames)
	return nil
}

// Frames returns the number of frames written
func (w *Writer) Frames() int64 {
	return w.frames
}

// Clipped returns how many samples were out of range
func (w *Writer) Clipped() int64 {
	return w.clipped
}

// Format returns the container format
func (w *Writer) Format() Format {
	return w.format
}

// Close finalizes the header and closes the file opened by Create.
func (w *Writer) Close() error {
	err := w.enc.Close()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
		w.file = nil
	}
	return err
}
