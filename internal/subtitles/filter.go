package subtitles

import (
	"regexp"
	"strings"
	"unicode"
)

// Removal records a cue dropped by FilterHallucinations.
type Removal struct {
	Cue    Cue
	Reason string
}

// Removal reasons.
const (
	ReasonIsolatedHallucination = "isolated_hallucination"
	ReasonRepeatedHallucination = "repeated_hallucination"
	ReasonMusicSymbols          = "music_symbols"
	ReasonTrailingHallucination = "trailing_hallucination"
	ReasonTrailingMusic         = "trailing_music"
)

// FilterResult holds the surviving cues and everything removed.
type FilterResult struct {
	Cues     []Cue
	Removals []Removal
}

const (
	isolationGapSeconds  = 30.0
	repeatGapSeconds     = 10.0
	repeatRunLength      = 3
	trailingWindowSecond = 300.0
)

// Known transcription hallucination phrases (normalized form).
var hallucinationPhrases = map[string]bool{
	"thank you":              true,
	"thank you for watching": true,
	"thanks for watching":    true,
	"please subscribe":       true,
	"like and subscribe":     true,
	"well be right back":     true,
	"bye":                    true,
	"bye bye":                true,
	"see you next time":      true,
	"see you later":          true,
}

// FilterHallucinations drops cues that speech models tend to invent over
// silence or music: stock phrases sitting alone between long gaps, runs of
// the same phrase spaced far apart, isolated music-symbol cues, and any of
// those inside the final five minutes of media that is at least ten minutes
// long. mediaSeconds <= 0 uses the end of the last cue. Survivors are
// renumbered.
func FilterHallucinations(cues []Cue, mediaSeconds float64) FilterResult {
	if mediaSeconds <= 0 && len(cues) > 0 {
		mediaSeconds = cues[len(cues)-1].End
	}

	remaining, removals := removeIsolated(cues)
	remaining, trailing := sweepTrailing(remaining, mediaSeconds)
	removals = append(removals, trailing...)

	Renumber(remaining)
	return FilterResult{Cues: remaining, Removals: removals}
}

func removeIsolated(cues []Cue) ([]Cue, []Removal) {
	if len(cues) == 0 {
		return cues, nil
	}
	remove := make([]bool, len(cues))
	var removals []Removal

	markRepeated(cues, remove, &removals)

	for i := range cues {
		if remove[i] {
			continue
		}
		isolated := gapBefore(cues, i) >= isolationGapSeconds && gapAfter(cues, i) >= isolationGapSeconds
		if !isolated {
			continue
		}
		switch {
		case hallucinationPhrases[normalizePhrase(cues[i].Text)]:
			remove[i] = true
			removals = append(removals, Removal{Cue: cues[i], Reason: ReasonIsolatedHallucination})
		case isMusicCue(cues[i].Text):
			remove[i] = true
			removals = append(removals, Removal{Cue: cues[i], Reason: ReasonMusicSymbols})
		}
	}

	kept := make([]Cue, 0, len(cues))
	for i, cue := range cues {
		if !remove[i] {
			kept = append(kept, cue)
		}
	}
	return kept, removals
}

// markRepeated flags runs of three or more cues with identical normalized
// text where every gap between them exceeds repeatGapSeconds.
func markRepeated(cues []Cue, remove []bool, removals *[]Removal) {
	i := 0
	for i < len(cues) {
		norm := normalizePhrase(cues[i].Text)
		if norm == "" {
			i++
			continue
		}
		runEnd := i + 1
		for runEnd < len(cues) {
			if normalizePhrase(cues[runEnd].Text) != norm {
				break
			}
			if cues[runEnd].Start-cues[runEnd-1].End <= repeatGapSeconds {
				break
			}
			runEnd++
		}
		if runEnd-i >= repeatRunLength {
			for j := i; j < runEnd; j++ {
				remove[j] = true
				*removals = append(*removals, Removal{Cue: cues[j], Reason: ReasonRepeatedHallucination})
			}
		}
		i = runEnd
	}
}

func sweepTrailing(cues []Cue, mediaSeconds float64) ([]Cue, []Removal) {
	if mediaSeconds < 2*trailingWindowSecond || len(cues) == 0 {
		return cues, nil
	}
	threshold := mediaSeconds - trailingWindowSecond

	var removals []Removal
	kept := make([]Cue, 0, len(cues))
	for _, cue := range cues {
		if cue.Start >= threshold {
			if hallucinationPhrases[normalizePhrase(cue.Text)] {
				removals = append(removals, Removal{Cue: cue, Reason: ReasonTrailingHallucination})
				continue
			}
			if isMusicCue(cue.Text) {
				removals = append(removals, Removal{Cue: cue, Reason: ReasonTrailingMusic})
				continue
			}
		}
		kept = append(kept, cue)
	}
	return kept, removals
}

func gapBefore(cues []Cue, i int) float64 {
	if i == 0 {
		return cues[i].Start
	}
	return cues[i].Start - cues[i-1].End
}

func gapAfter(cues []Cue, i int) float64 {
	if i >= len(cues)-1 {
		return 1e9
	}
	return cues[i+1].Start - cues[i].End
}

// isMusicCue reports whether text holds only music notation and whitespace.
func isMusicCue(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range text {
		switch {
		case r == '¶', r == '♪', r == '♫', r == '*':
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return true
}

var phraseStripRe = regexp.MustCompile(`[^a-z0-9\s]`)

func normalizePhrase(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = phraseStripRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
