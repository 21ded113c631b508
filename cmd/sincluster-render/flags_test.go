package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/sincluster/pkg/audioio"
	"github.com/justyntemme/sincluster/pkg/framework/voice"
	"github.com/justyntemme/sincluster/pkg/synth"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{
		"-o", "out.aiff", "-sr", "44100", "-bits", "16", "-voices", "4",
		"-steal", "quietest", "-envelope", "sections", "-tail", "250ms",
		"-set", "Cutoff=800 Hz", "-set", "Gain=-6 dB",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "out.aiff", o.output)
	assert.Equal(t, 44100.0, o.config.SampleRate)
	assert.Equal(t, 16, o.bitDepth)
	assert.Equal(t, 4, o.config.MaxVoices)
	assert.Equal(t, voice.StealQuietest, o.config.StealPolicy)
	assert.Equal(t, voice.EnvelopeSections, o.config.EnvelopeKind)
	assert.Equal(t, 250*time.Millisecond, o.tail)
	assert.Equal(t, settings{"Cutoff=800 Hz", "Gain=-6 dB"}, o.settings)
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"Help", []string{"-h"}, flag.ErrHelp},
		{"NoOutput", []string{"-i", "song.mid"}, nil},
		{"BadExtension", []string{"-o", "out.mp3"}, audioio.ErrUnsupportedFormat},
		{"BadBits", []string{"-o", "out.wav", "-bits", "12"}, audioio.ErrUnsupportedFormat},
		{"BadPolicy", []string{"-o", "out.wav", "-steal", "newest"}, voice.ErrUnknownPolicy},
		{"BadEnvelope", []string{"-o", "out.wav", "-envelope", "ar"}, voice.ErrUnknownEnvelope},
		{"TooManyPartials", []string{"-o", "out.wav", "-partials", "9"}, synth.ErrInvalidConfig},
		{"BadSetting", []string{"-o", "out.wav", "-set", "Cutoff"}, nil},
		{"ExtraArgs", []string{"-o", "out.wav", "extra"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestRunDemo(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "demo.wav")
	chart := filepath.Join(dir, "demo.html")

	o, err := parseFlags([]string{"-o", out, "-chart", chart, "-sr", "8000", "-bits", "16", "-q", "-set", "Release=50 ms"}, io.Discard)
	require.NoError(t, err)
	require.NoError(t, run(context.Background(), o))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	assert.Equal(t, 2, int(d.NumChans))
	assert.Equal(t, 8000, int(d.SampleRate))

	info, err := os.Stat(chart)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunMissingInput(t *testing.T) {
	o, err := parseFlags([]string{"-i", filepath.Join(t.TempDir(), "missing.mid"), "-o", filepath.Join(t.TempDir(), "x.wav")}, io.Discard)
	require.NoError(t, err)
	assert.Error(t, run(context.Background(), o))
}
