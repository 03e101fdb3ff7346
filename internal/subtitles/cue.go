package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// Word is a single transcribed token with its timing in seconds.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Cue is one subtitle display unit.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// WordCount returns the number of whitespace separated words in the cue text.
func (c Cue) WordCount() int {
	return len(strings.Fields(c.Text))
}

// TimeRange renders the cue timing line without a trailing newline.
func (c Cue) TimeRange() string {
	return FormatTimestamp(c.Start) + " --> " + FormatTimestamp(c.End)
}

// CountWords sums the word counts of every cue.
func CountWords(cues []Cue) int {
	total := 0
	for _, cue := range cues {
		total += cue.WordCount()
	}
	return total
}

// Renumber assigns dense 1-based indices in slice order.
func Renumber(cues []Cue) {
	for i := range cues {
		cues[i].Index = i + 1
	}
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm rounding to the nearest
// millisecond. Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int64(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp converts HH:MM:SS,mmm into seconds. A period is accepted as
// the millisecond separator.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrMalformedInput)
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedInput, value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedInput, value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedInput, value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
