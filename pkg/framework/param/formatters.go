package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Common parameter formatters and parsers. Each pair works on the plain
// value produced by the parameter's scale.

// FrequencyFormatter formats frequency values with Hz/kHz
func FrequencyFormatter(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.2f kHz", hz/1000)
	}
	return fmt.Sprintf("%.1f Hz", hz)
}

// FrequencyParser parses frequency strings
func FrequencyParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	if num, ok := strings.CutSuffix(str, "khz"); ok {
		val, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, err
		}
		return val * 1000, nil
	}
	str = strings.TrimSuffix(str, "hz")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// GainFormatter shows a linear amplitude in dB
func GainFormatter(amp float64) string {
	if amp <= 0 {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", AmpToDB(amp))
}

// GainParser reads a dB string back into linear amplitude
func GainParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	if strings.Contains(str, "inf") {
		return 0, nil
	}
	str = strings.TrimSpace(strings.TrimSuffix(str, "db"))
	db, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	return DBToAmp(db), nil
}

// PercentFormatter formats a 0-1 value as a percentage
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value*100)
}

// PercentParser parses percentage strings into 0-1
func PercentParser(str string) (float64, error) {
	str = strings.TrimSuffix(strings.TrimSpace(str), "%")
	val, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, err
	}
	return val / 100, nil
}

// SecondsFormatter formats envelope times given in seconds
func SecondsFormatter(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.1f ms", sec*1000)
	}
	return fmt.Sprintf("%.2f s", sec)
}

// SecondsParser accepts "ms" or "s" suffixes, defaulting to seconds
func SecondsParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	if num, ok := strings.CutSuffix(str, "ms"); ok {
		val, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, err
		}
		return val / 1000, nil
	}
	str = strings.TrimSuffix(str, "s")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// SemitoneFormatter formats a signed pitch offset in semitones
func SemitoneFormatter(st float64) string {
	return fmt.Sprintf("%+.0f st", st)
}

// CentFormatter formats a signed pitch offset in cents
func CentFormatter(cents float64) string {
	return fmt.Sprintf("%+.0f ct", cents)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteFormatter formats MIDI note numbers
func NoteFormatter(noteNumber float64) string {
	n := int(math.Floor(noteNumber + 0.5))
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], n/12-1)
}

// NoteParser parses note names like "A4" or "C#-1" to MIDI numbers
func NoteParser(str string) (float64, error) {
	str = strings.ToUpper(strings.TrimSpace(str))

	octaveStart := strings.IndexFunc(str, func(r rune) bool {
		return r >= '0' && r <= '9' || r == '-'
	})
	if octaveStart <= 0 {
		return 0, fmt.Errorf("no octave number found in note: %s", str)
	}

	name := str[:octaveStart]
	offset := -1
	for i, n := range noteNames {
		if n == name {
			offset = i
			break
		}
	}
	if offset < 0 && len(name) == 2 && name[1] == 'B' {
		// Flats: Db -> C#.
		for i, n := range noteNames {
			if n == name[:1] {
				offset = (i + 11) % 12
				break
			}
		}
	}
	if offset < 0 {
		return 0, fmt.Errorf("unknown note name: %s", name)
	}

	octave, err := strconv.Atoi(str[octaveStart:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave number: %s", str[octaveStart:])
	}
	return float64((octave+1)*12 + offset), nil
}

// OnOffFormatter formats boolean as On/Off
func OnOffFormatter(value float64) string {
	if value > 0.5 {
		return "On"
	}
	return "Off"
}

// OnOffParser parses On/Off strings
func OnOffParser(str string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "on", "yes", "true", "1":
		return 1, nil
	case "off", "no", "false", "0":
		return 0, nil
	default:
		return 0, fmt.Errorf("expected 'on' or 'off', got: %s", str)
	}
}

// ChoiceFormatter returns a formatter that maps an integer plain value to
// one of names.
func ChoiceFormatter(names ...string) func(float64) string {
	return func(v float64) string {
		i := int(math.Floor(v + 0.5))
		if i < 0 || i >= len(names) {
			return strconv.Itoa(i)
		}
		return names[i]
	}
}

// ChoiceParser is the inverse of ChoiceFormatter. Matching ignores case.
func ChoiceParser(names ...string) func(string) (float64, error) {
	return func(str string) (float64, error) {
		str = strings.TrimSpace(str)
		for i, n := range names {
			if strings.EqualFold(n, str) {
				return float64(i), nil
			}
		}
		return 0, fmt.Errorf("unknown choice: %s", str)
	}
}
