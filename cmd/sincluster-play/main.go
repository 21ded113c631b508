// Command sincluster-play plays the sine cluster engine live, driven by a
// hardware MIDI port or the computer keyboard.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"

	"github.com/justyntemme/sincluster/pkg/framework/debug"
	"github.com/justyntemme/sincluster/pkg/host"
	"github.com/justyntemme/sincluster/pkg/midi"
	"github.com/justyntemme/sincluster/pkg/synth"
)

// RingSize bounds the MIDI events queued between two blocks
const RingSize = 1024

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := debug.Configure(opts.logLevel, opts.logFormat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		debug.Logger("main").WithError(err).Error("Playback failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, o *options) error {
	log := debug.Logger("main")

	if o.list {
		return listPorts()
	}

	s, err := synth.New(o.config)
	if err != nil {
		return err
	}
	for _, kv := range o.settings {
		name, value, _ := strings.Cut(kv, "=")
		if err := s.SetByName(strings.TrimSpace(name), value); err != nil {
			return err
		}
	}

	ring := midi.NewRing(RingSize)
	stream := host.NewStream(s, ring, host.StreamOptions{
		BlockSize: o.blockSize,
		MaxEvents: RingSize,
		Latency:   o.latency,
	})

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(o.config.SampleRate),
		ChannelCount: host.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   o.latency / 2,
	})
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go stream.Run(ctx)

	player := otoCtx.NewPlayer(stream)
	player.Play()
	defer player.Close()

	log.WithFields(logrus.Fields{
		"sample_rate": o.config.SampleRate,
		"voices":      o.config.MaxVoices,
		"latency":     o.latency,
	}).Info("Playing")

	if o.port != "" {
		err = playMIDI(ctx, o.port, ring)
	} else {
		err = playKeyboard(ctx, ring)
	}

	health := stream.Health()
	stats := s.Stats()
	log.WithFields(logrus.Fields{
		"notes":     stats.LastNoteID,
		"dropped":   stats.DroppedEvents + ring.Dropped(),
		"underruns": health.Underruns,
		"cpu_load":  fmt.Sprintf("%.2f%%", stream.Profiler().CPULoad()),
	}).Info("Stopped")
	return err
}

func listPorts() error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("opening MIDI driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return err
	}
	if len(ins) == 0 {
		fmt.Println("no MIDI inputs")
	}
	for _, in := range ins {
		fmt.Printf("%3d  %s\n", in.Number(), in.String())
	}
	return nil
}

func findPort(ins []drivers.In, name string) (drivers.In, error) {
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("MIDI input %q not found", name)
}

// playMIDI forwards every channel message from the port to the ring until
// ctx is done.
func playMIDI(ctx context.Context, port string, ring *midi.Ring) error {
	log := debug.Logger("midi")

	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("opening MIDI driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return err
	}
	in, err := findPort(ins, port)
	if err != nil {
		return err
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening %s: %w", in.String(), err)
	}
	defer in.Close()

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		ev := midi.FromBytes(msg, 0)
		if !ev.Valid() {
			return
		}
		if !ring.Push(ev) {
			log.Debug("MIDI ring full, event dropped")
		}
		if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			if e, err := midi.Decode(ev); err == nil {
				log.Debug(e.String())
			}
		}
	}, gomidi.HandleError(func(err error) {
		log.WithError(err).Warn("MIDI input error")
	}))
	if err != nil {
		return fmt.Errorf("listening on %s: %w", in.String(), err)
	}
	defer stop()

	log.WithField("port", in.String()).Info("MIDI input connected")
	<-ctx.Done()
	return ctx.Err()
}

const keyHelp = "keys: z..m and q..i play, - and = change octave, space releases all, esc quits\r\n"

// playKeyboard reads key presses from a raw terminal until esc, ctrl-c or
// ctx is done.
func playKeyboard(ctx context.Context, ring *midi.Ring) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal, use -port for MIDI input")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state)

	keys := make(chan rune)
	go func() {
		defer close(keys)
		r := bufio.NewReader(os.Stdin)
		for {
			c, _, err := r.ReadRune()
			if err != nil {
				return
			}
			select {
			case keys <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	kb := host.NewKeyboard()
	fmt.Print(keyHelp)
	events := make([]midi.RawEvent, 0, 128)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-keys:
			if !ok || c == 3 || c == 27 {
				for _, e := range kb.ReleaseAll(events[:0]) {
					ring.Push(e)
				}
				return nil
			}
			events = kb.Key(c, events[:0])
			for _, e := range events {
				ring.Push(e)
			}
			if c == '-' || c == '=' || c == '+' {
				fmt.Printf("octave %d\r\n", kb.Octave)
			}
		}
	}
}
