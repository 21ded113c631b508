package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/justyntemme/sincluster/pkg/dsp/buffer"
	"github.com/justyntemme/sincluster/pkg/framework/voice"
	"github.com/justyntemme/sincluster/pkg/synth"
)

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
	port      string
	list      bool
	blockSize int
	latency   time.Duration
	logLevel  string
	logFormat string
	settings  settings
	config    synth.Config
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{config: synth.DefaultConfig()}
	var sampleRate int
	var steal, envelope string

	fs := flag.NewFlagSet("sincluster-play", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.port, "port", "", "MIDI input: part of a port name. The computer keyboard is used when empty")
	fs.BoolVar(&o.list, "list", false, "list MIDI input ports and exit")
	fs.IntVar(&sampleRate, "sr", int(o.config.SampleRate), "sample rate in Hz")
	fs.IntVar(&o.blockSize, "block", 256, "block size in frames")
	fs.DurationVar(&o.latency, "latency", buffer.DefaultLatency, "audio rendered ahead of the device")
	fs.IntVar(&o.config.MaxVoices, "voices", o.config.MaxVoices, "polyphony")
	fs.IntVar(&o.config.Partials, "partials", o.config.Partials, fmt.Sprintf("partials per voice, 1 to %d", synth.OvertoneCount))
	fs.StringVar(&steal, "steal", o.config.StealPolicy.String(), "voice steal policy: oldest, quietest, highest or lowest")
	fs.StringVar(&envelope, "envelope", o.config.EnvelopeKind.String(), "amplitude envelope: adsr or sections")
	fs.Var(&o.settings, "set", "parameter assignment such as \"Release=1.5 s\", repeatable")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if o.latency <= 0 {
		return nil, fmt.Errorf("latency must be positive, got %v", o.latency)
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
	return o, nil
}
