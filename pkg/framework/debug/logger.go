// Package debug provides logging, buffer analysis and profiling helpers
// for the engine and its command line tools. Nothing here may be called from
// the audio thread except AudioAnalyzer.Analyze.
package debug

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Logger returns an entry tagged with the component name. All packages log
// through the shared logrus logger so one call to SetLevel or SetOutput
// configures every component.
func Logger(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// SetLevel parses and applies a level name such as "debug" or "warn".
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("debug: %w", err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// SetOutput redirects all log output
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// SetFormat selects "text" or "json" output.
func SetFormat(format string) error {
	switch format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("debug: unknown log format %q", format)
	}
	return nil
}

// Configure applies level and format in one call, as the commands do at
// startup.
func Configure(level, format string) error {
	if err := SetLevel(level); err != nil {
		return err
	}
	return SetFormat(format)
}
