package midi

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2/smf"
)

// TimedEvent is a RawEvent placed on an absolute timeline in frames.
type TimedEvent struct {
	Frame int64
	Event RawEvent
}

// SMFStats describes what LoadSMF kept and skipped.
type SMFStats struct {
	Tracks  int
	Events  int
	Skipped int
	Frames  int64
}

// LoadSMF reads a Standard MIDI File and converts every channel voice
// message to a TimedEvent at the given sample rate, honouring tempo
// changes. Meta events, SysEx and malformed messages are skipped. The
// result is sorted by frame; events on the same frame keep file order.
func LoadSMF(r io.Reader, sampleRate float64) ([]TimedEvent, SMFStats, error) {
	var stats SMFStats
	if !(sampleRate > 0) {
		return nil, stats, fmt.Errorf("midi: invalid sample rate %v", sampleRate)
	}

	var events []TimedEvent
	tracks := map[int]struct{}{}
	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		tracks[te.TrackNo] = struct{}{}
		if te.Message.IsMeta() {
			return
		}
		ev := FromBytes([]byte(te.Message), 0)
		if !ev.Valid() {
			stats.Skipped++
			return
		}
		frame := int64(math.Round(float64(te.AbsMicroSeconds) * sampleRate / 1e6))
		events = append(events, TimedEvent{Frame: frame, Event: ev})
	}).Error()
	if err != nil {
		return nil, stats, fmt.Errorf("midi: reading SMF: %w", err)
	}

	slices.SortStableFunc(events, func(a, b TimedEvent) int {
		return cmp.Compare(a.Frame, b.Frame)
	})

	stats.Tracks = len(tracks)
	stats.Events = len(events)
	if len(events) > 0 {
		stats.Frames = events[len(events)-1].Frame
	}
	return events, stats, nil
}
