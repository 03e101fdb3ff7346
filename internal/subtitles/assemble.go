package subtitles

import "strings"

// AssembleCues groups words into cues. Each cue collects MinWords words and
// then looks for a cut point ending in one of the cut marks: first forward
// from the default end up to Window words, then backward by the same amount.
// When nothing is found the cue ends at the default boundary. Once fewer than
// MinWords words remain, the final cue takes all of them.
func AssembleCues(words []Word, opts AssembleOptions) ([]Cue, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	marks := opts.CutMarks.Or(DefaultCutMarks)

	last := len(words) - 1
	cues := make([]Cue, 0, len(words)/opts.MinWords+1)
	for i := 0; i <= last; {
		// A tail shorter than MinWords is never searched for a cut, so a
		// comma inside it does not split it off.
		end := last
		if i+opts.MinWords-1 <= last {
			end = findCut(words, i, i+opts.MinWords-1, opts.Window, marks)
		}
		cues = append(cues, buildCue(len(cues)+1, words[i:end+1]))
		i = end + 1
	}
	return cues, nil
}

// findCut searches [max(start, def-window), min(last, def+window)] for a word
// ending in one of marks, forward from def first and backward second.
func findCut(words []Word, start, def, window int, marks Marks) int {
	upper := min(len(words)-1, def+window)
	lower := max(start, def-window)
	for pos := def; pos <= upper; pos++ {
		if marks.Ends(words[pos].Text) {
			return pos
		}
	}
	for pos := def; pos >= lower; pos-- {
		if marks.Ends(words[pos].Text) {
			return pos
		}
	}
	return def
}

func buildCue(index int, span []Word) Cue {
	texts := make([]string, 0, len(span))
	for _, w := range span {
		texts = append(texts, w.Text)
	}
	return Cue{
		Index: index,
		Start: span[0].Start,
		End:   span[len(span)-1].End,
		Text:  strings.TrimSpace(strings.Join(texts, " ")),
	}
}
