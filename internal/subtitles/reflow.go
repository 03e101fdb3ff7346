package subtitles

import "strings"

// ReflowText wraps text into lines of roughly equal word counts, none of the
// leading lines exceeding limit words. Text at or under the limit is returned
// unchanged. The last line takes whatever words remain.
func ReflowText(text string, limit int) string {
	words := strings.Fields(text)
	n := len(words)
	if limit <= 0 || n <= limit {
		return text
	}
	numLines := (n + limit - 1) / limit
	perLine := n / numLines
	if n%numLines != 0 {
		perLine++
	}

	lines := make([]string, 0, numLines)
	pos := 0
	for line := 0; line < numLines; line++ {
		end := min(pos+perLine, n)
		if line == numLines-1 {
			end = n
		}
		lines = append(lines, strings.Join(words[pos:end], " "))
		pos = end
	}
	return strings.Join(lines, "\n")
}

// ReflowCues rewraps every cue's text in place. Cue boundaries and indices
// are untouched.
func ReflowCues(cues []Cue, limit int) error {
	if err := ValidateWordsPerLine(limit); err != nil {
		return err
	}
	for i := range cues {
		cues[i].Text = ReflowText(cues[i].Text, limit)
	}
	return nil
}
