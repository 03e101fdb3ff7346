package subtitles

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.0004, "00:01:01,000"},
		{3725.9996, "01:02:06,000"},
		{-3, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("01:02:03,450")
	if err != nil {
		t.Fatalf("ParseTimestamp returned error: %v", err)
	}
	if math.Abs(got-3723.45) > 1e-9 {
		t.Fatalf("unexpected seconds: %v", got)
	}
	if got, err := ParseTimestamp("00:00:01.250"); err != nil || got != 1.25 {
		t.Fatalf("expected period separator to parse, got %v (%v)", got, err)
	}
	for _, bad := range []string{"", "1:2", "aa:bb:cc,ddd", "00:00:01"} {
		if _, err := ParseTimestamp(bad); !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("expected ErrMalformedInput for %q, got %v", bad, err)
		}
	}
}

func TestFormatSRT(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 0, End: 1.2, Text: "Hello there."},
		{Index: 2, Start: 1.5, End: 3, Text: "Two\nlines"},
	}
	want := "1\n00:00:00,000 --> 00:00:01,200\nHello there.\n\n" +
		"2\n00:00:01,500 --> 00:00:03,000\nTwo\nlines\n\n"
	if got := FormatSRT(cues); got != want {
		t.Fatalf("unexpected srt:\n%q\nwant\n%q", got, want)
	}

	var buf bytes.Buffer
	if err := WriteSRT(&buf, cues); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}
	if buf.String() != want {
		t.Fatalf("WriteSRT output differs from FormatSRT")
	}
	if FormatCue(cues[0]) != "1\n00:00:00,000 --> 00:00:01,200\nHello there.\n\n" {
		t.Fatalf("unexpected single cue: %q", FormatCue(cues[0]))
	}
}

func TestParseSRTRoundTrip(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 0.25, End: 1.75, Text: "First cue"},
		{Index: 2, Start: 2, End: 4.5, Text: "Second cue\nspans two lines"},
		{Index: 3, Start: 3600, End: 3601.5, Text: "An hour in."},
	}
	parsed, err := ParseSRT(FormatSRT(cues))
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}
	if len(parsed) != len(cues) {
		t.Fatalf("expected %d cues, got %d", len(cues), len(parsed))
	}
	for i := range cues {
		if parsed[i] != cues[i] {
			t.Fatalf("cue %d mismatch: got %+v want %+v", i, parsed[i], cues[i])
		}
	}
}

func TestParseSRTToleratesBOMAndCRLF(t *testing.T) {
	content := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nHi\r\n\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nBye\r\n"
	cues, err := ParseSRT(content)
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}
	if len(cues) != 2 || cues[0].Text != "Hi" || cues[1].Text != "Bye" {
		t.Fatalf("unexpected cues: %+v", cues)
	}
	if cues[1].Start != 3 || cues[1].End != 4 {
		t.Fatalf("unexpected timing: %+v", cues[1])
	}
}

func TestParseSRTEmptyInput(t *testing.T) {
	cues, err := ParseSRT("\n\n")
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}
	if len(cues) != 0 {
		t.Fatalf("expected no cues, got %d", len(cues))
	}
}

func TestParseSRTRejectsMalformedBlocks(t *testing.T) {
	tests := map[string]string{
		"missing range": "1\nHello\n\n",
		"bad index":     "one\n00:00:01,000 --> 00:00:02,000\nHello\n\n",
		"single line":   "1\n\n",
		"bad range":     "1\n00:00:01 --> 00:00:02\nHello\n\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSRT(content)
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("expected ErrMalformedInput, got %v", err)
			}
			if !strings.Contains(err.Error(), "cue block 1") {
				t.Fatalf("expected block position in error, got %v", err)
			}
		})
	}
}
