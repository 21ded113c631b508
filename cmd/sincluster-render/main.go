// Command sincluster-render renders a MIDI file, or a built-in demo
// progression, through the sine cluster engine into a WAV or AIFF file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/justyntemme/sincluster/pkg/audioio"
	"github.com/justyntemme/sincluster/pkg/dsp/envelope"
	"github.com/justyntemme/sincluster/pkg/framework/debug"
	"github.com/justyntemme/sincluster/pkg/midi"
	"github.com/justyntemme/sincluster/pkg/render"
	"github.com/justyntemme/sincluster/pkg/synth"
)

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

	if err := run(ctx, opts); err != nil {
		debug.Logger("main").WithError(err).Error("Render failed")
		os.Exit(1)
	}
}

// chartSink tees the left channel into memory for the chart.
type chartSink struct {
	render.Sink
	left []float32
}

func (c *chartSink) WriteFloat(channels [][]float32, frames int) error {
	if len(channels) > 0 {
		c.left = append(c.left, channels[0][:frames]...)
	}
	return c.Sink.WriteFloat(channels, frames)
}

func run(ctx context.Context, o *options) error {
	log := debug.Logger("main")

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

	events, err := loadEvents(o)
	if err != nil {
		return err
	}

	w, err := audioio.Create(o.output, int(o.config.SampleRate), o.bitDepth, 2)
	if err != nil {
		return err
	}
	var sink render.Sink = w
	var chart *chartSink
	if o.chart != "" {
		chart = &chartSink{Sink: w}
		sink = chart
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int64) {
		if o.quiet {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetDescription("rendering..."),
				progressbar.OptionFullWidth(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		bar.Set64(done)
	}

	ropts := render.DefaultOptions()
	ropts.BlockSize = o.blockSize
	ropts.Tail = o.tail
	ropts.Profiler = debug.NewBlockProfiler(o.config.SampleRate)

	res, renderErr := render.Render(ctx, s, events, sink, ropts, progress)
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err := w.Close(); err != nil && renderErr == nil {
		renderErr = fmt.Errorf("closing %s: %w", o.output, err)
	}
	if renderErr != nil {
		return renderErr
	}

	if chart != nil {
		if err := writeChart(o, chart.left); err != nil {
			return err
		}
	}

	stats := s.Stats()
	log.WithFields(logrus.Fields{
		"output":   o.output,
		"frames":   res.Frames,
		"seconds":  float64(res.Frames) / o.config.SampleRate,
		"blocks":   res.Blocks,
		"events":   res.Events,
		"notes":    stats.LastNoteID,
		"dropped":  stats.DroppedEvents,
		"clipped":  w.Clipped(),
		"realtime": fmt.Sprintf("%.1fx", ropts.Profiler.RealtimeFactor()),
	}).Info("Render complete")
	if stats.NonFinite > 0 {
		log.WithField("samples", stats.NonFinite).Warn("Non-finite samples were replaced with silence")
	}

	if !o.quiet {
		if chart != nil {
			debug.LogBufferStats(log, chart.left, "output")
		}
		fmt.Print(ropts.Profiler.AudioReport())
	}
	return nil
}

func loadEvents(o *options) ([]midi.TimedEvent, error) {
	log := debug.Logger("main")
	if o.input == "" {
		log.Info("No input file, rendering the demo progression")
		return render.Demo(o.config.SampleRate), nil
	}

	f, err := os.Open(o.input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events, stats, err := midi.LoadSMF(f, o.config.SampleRate)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file":    o.input,
		"tracks":  stats.Tracks,
		"events":  stats.Events,
		"skipped": stats.Skipped,
	}).Info("MIDI file loaded")
	return events, nil
}

func writeChart(o *options, left []float32) error {
	f, err := os.Create(o.chart)
	if err != nil {
		return err
	}
	defer f.Close()

	title := "sincluster"
	if o.input != "" {
		title = o.input
	}
	level := make([]float32, len(left))
	envelope.NewFollower(o.config.SampleRate).Process(left, level)

	if err := audioio.WriteChart(f, title, o.config.SampleRate, audioio.DefaultChartPoints,
		audioio.Series{Name: "left", Data: left},
		audioio.Series{Name: "level", Data: level}); err != nil {
		return err
	}
	debug.Logger("main").WithField("file", o.chart).Info("Chart written")
	return f.Close()
}
