package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"subforge/internal/subtitles"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Cues builds sequential one-second cues from the given texts.
func Cues(texts ...string) []subtitles.Cue {
	cues := make([]subtitles.Cue, 0, len(texts))
	for i, text := range texts {
		cues = append(cues, subtitles.Cue{
			Index: i + 1,
			Start: float64(i),
			End:   float64(i) + 0.9,
			Text:  text,
		})
	}
	return cues
}

// TranscriptJSON renders words as a single-segment WhisperX transcript,
// one word per half second.
func TranscriptJSON(words ...string) string {
	var b strings.Builder
	b.WriteString(`{"language":"en","segments":[{"text":"`)
	b.WriteString(strings.Join(words, " "))
	b.WriteString(`","start":0,"end":`)
	b.WriteString(seconds(len(words)))
	b.WriteString(`,"words":[`)
	for i, w := range words {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"word":"` + w + `","start":` + seconds(i) + `,"end":` + seconds(i+1) + `}`)
	}
	b.WriteString(`]}]}`)
	return b.String()
}

func seconds(halfSteps int) string {
	return strconv.FormatFloat(float64(halfSteps)/2, 'f', 1, 64)
}
