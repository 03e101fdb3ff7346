package subtitles

import "strings"

// AdjustBoundaries walks adjacent cue pairs left to right and moves the words
// trailing the last terminal mark of a cue (or, failing that, its last pause
// mark) to the front of the following cue when fewer than WordsSplit words
// trail it. Only text moves; timings are left alone. The final cue is never
// a source. Cues are modified in place.
func AdjustBoundaries(cues []Cue, opts AdjustOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	terminal := opts.Terminal.Or(DefaultTerminalMarks)
	pause := opts.Pause.Or(DefaultPauseMarks)

	for i := 0; i+1 < len(cues); i++ {
		words := strings.Fields(cues[i].Text)
		cut := lastMarked(words, terminal)
		if cut < 0 {
			cut = lastMarked(words, pause)
		}
		if cut < 0 {
			continue
		}
		trailing := len(words) - cut - 1
		if trailing == 0 || trailing >= opts.WordsSplit {
			continue
		}
		moved := strings.Join(words[cut+1:], " ")
		cues[i].Text = strings.Join(words[:cut+1], " ")
		if next := strings.TrimSpace(cues[i+1].Text); next != "" {
			cues[i+1].Text = moved + " " + next
		} else {
			cues[i+1].Text = moved
		}
	}
	return nil
}

func lastMarked(words []string, marks Marks) int {
	for j := len(words) - 1; j >= 0; j-- {
		if marks.Ends(words[j]) {
			return j
		}
	}
	return -1
}
