package subtitles

import (
	"errors"
	"strings"
	"testing"
)

func TestReflowText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{
			name:  "under limit unchanged",
			text:  "short line here",
			limit: 5,
			want:  "short line here",
		},
		{
			name:  "exactly at limit unchanged",
			text:  "one two three four five",
			limit: 5,
			want:  "one two three four five",
		},
		{
			name:  "eleven words over three lines",
			text:  "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10 w11",
			limit: 5,
			want:  "w1 w2 w3 w4\nw5 w6 w7 w8\nw9 w10 w11",
		},
		{
			name:  "even split",
			text:  "a b c d e f",
			limit: 4,
			want:  "a b c\nd e f",
		},
		{
			name:  "existing line breaks are collapsed",
			text:  "a b\nc d e f g",
			limit: 3,
			want:  "a b c\nd e f\ng",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReflowText(tt.text, tt.limit); got != tt.want {
				t.Fatalf("ReflowText(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestReflowTextKeepsLeadingLinesWithinLimit(t *testing.T) {
	for n := 1; n <= 40; n++ {
		words := make([]string, n)
		for i := range words {
			words[i] = "w"
		}
		text := strings.Join(words, " ")
		for limit := 1; limit <= 12; limit++ {
			out := ReflowText(text, limit)
			lines := strings.Split(out, "\n")
			total := 0
			for i, line := range lines {
				count := len(strings.Fields(line))
				total += count
				if i < len(lines)-1 && count > limit {
					t.Fatalf("n=%d limit=%d: line %d has %d words", n, limit, i, count)
				}
			}
			if total != n {
				t.Fatalf("n=%d limit=%d: reflow kept %d words", n, limit, total)
			}
			if again := ReflowText(out, limit); again != out {
				t.Fatalf("n=%d limit=%d: reflow not idempotent: %q then %q", n, limit, out, again)
			}
		}
	}
}

func TestReflowCues(t *testing.T) {
	cues := cuesFrom("a b c d e f g", "short")
	if err := ReflowCues(cues, 3); err != nil {
		t.Fatalf("ReflowCues returned error: %v", err)
	}
	if cues[0].Text != "a b c\nd e f\ng" {
		t.Fatalf("unexpected first cue: %q", cues[0].Text)
	}
	if cues[1].Text != "short" || cues[1].Index != 2 {
		t.Fatalf("second cue changed: %+v", cues[1])
	}
}

func TestReflowCuesRejectsNonPositiveLimit(t *testing.T) {
	if err := ReflowCues(cuesFrom("a"), 0); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}
