package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/justyntemme/sincluster/pkg/audioio"
	"github.com/justyntemme/sincluster/pkg/framework/voice"
	"github.com/justyntemme/sincluster/pkg/synth"
)

// settings collects repeated -set name=value flags
type settings []string

func (s *settings) String() string {
	return strings.Join(*s, ",")
}

func (s *settings) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected name=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

type options struct {
	input     string
	output    string
	chart     string
	bitDepth  int
	blockSize int
	tail      time.Duration
	quiet     bool
	logLevel  string
	logFormat string
	settings  settings
	config    synth.Config
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{config: synth.DefaultConfig()}
	var sampleRate int
	var steal, envelope string

	fs := flag.NewFlagSet("sincluster-render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.input, "i", "", "input file: Standard MIDI File to render. The built-in demo is used when empty")
	fs.StringVar(&o.output, "o", "", "output file: .wav or .aiff, overwritten if it exists")
	fs.StringVar(&o.chart, "chart", "", "chart file: write an HTML waveform chart of the output")
	fs.IntVar(&sampleRate, "sr", int(o.config.SampleRate), "sample rate in Hz")
	fs.IntVar(&o.bitDepth, "bits", 24, "bit depth: 16, 24 or 32")
	fs.IntVar(&o.blockSize, "block", 512, "largest block size in frames")
	fs.DurationVar(&o.tail, "tail", -1, "silence rendered after the last event, negative for the release time")
	fs.IntVar(&o.config.MaxVoices, "voices", o.config.MaxVoices, "polyphony")
	fs.IntVar(&o.config.Partials, "partials", o.config.Partials, fmt.Sprintf("partials per voice, 1 to %d", synth.OvertoneCount))
	fs.StringVar(&steal, "steal", o.config.StealPolicy.String(), "voice steal policy: oldest, quietest, highest or lowest")
	fs.StringVar(&envelope, "envelope", o.config.EnvelopeKind.String(), "amplitude envelope: adsr or sections")
	fs.Var(&o.settings, "set", "parameter assignment such as \"Cutoff=800 Hz\", repeatable")
	fs.BoolVar(&o.quiet, "q", false, "quiet: no progress bar or summary")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if o.output == "" {
		return nil, fmt.Errorf("-o <output file> is required, see sincluster-render -h")
	}
	if _, err := audioio.FormatFromPath(o.output); err != nil {
		return nil, err
	}
	if o.input != "" {
		o.input = filepath.Clean(o.input)
	}

	var err error
	if o.config.StealPolicy, err = voice.ParseStealPolicy(steal); err != nil {
		return nil, err
	}
	if o.config.EnvelopeKind, err = voice.ParseEnvelopeKind(envelope); err != nil {
		return nil, err
	}
	o.config.SampleRate = float64(sampleRate)
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if _, ok := audioio.IntMaxSignedValue[o.bitDepth]; !ok || o.bitDepth == 8 {
		return nil, fmt.Errorf("%w: bit depth %d", audioio.ErrUnsupportedFormat, o.bitDepth)
	}
	return o, nil
}
