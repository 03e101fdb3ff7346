package subtitles

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var timeRangeRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})$`)

// FormatCue renders a single cue block including its blank-line separator.
func FormatCue(cue Cue) string {
	var sb strings.Builder
	writeCue(&sb, cue)
	return sb.String()
}

// FormatSRT renders cues in order using the cue grammar.
func FormatSRT(cues []Cue) string {
	var sb strings.Builder
	for _, cue := range cues {
		writeCue(&sb, cue)
	}
	return sb.String()
}

// WriteSRT streams the cue grammar to w.
func WriteSRT(w io.Writer, cues []Cue) error {
	if _, err := io.WriteString(w, FormatSRT(cues)); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

func writeCue(sb *strings.Builder, cue Cue) {
	sb.WriteString(strconv.Itoa(cue.Index))
	sb.WriteByte('\n')
	sb.WriteString(cue.TimeRange())
	sb.WriteByte('\n')
	sb.WriteString(cue.Text)
	sb.WriteString("\n\n")
}

// ParseSRT reads cue blocks from content. A block is an index line, a time
// range line, and every following line up to a blank line or the end of
// input. Any non-empty block that does not fit the grammar fails the parse.
func ParseSRT(content string) ([]Cue, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	blocks := splitBlocks(content)
	cues := make([]Cue, 0, len(blocks))
	for n, block := range blocks {
		cue, err := parseBlock(block)
		if err != nil {
			return nil, fmt.Errorf("cue block %d: %w", n+1, err)
		}
		cues = append(cues, cue)
	}
	return cues, nil
}

func splitBlocks(content string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func parseBlock(lines []string) (Cue, error) {
	if len(lines) < 2 {
		return Cue{}, fmt.Errorf("%w: expected index and time range, got %q", ErrMalformedInput, strings.Join(lines, " "))
	}
	indexText := strings.TrimSpace(lines[0])
	index, err := strconv.Atoi(indexText)
	if err != nil || index < 0 || strings.ContainsAny(indexText, "+-") {
		return Cue{}, fmt.Errorf("%w: invalid index line %q", ErrMalformedInput, lines[0])
	}
	match := timeRangeRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
	if match == nil {
		return Cue{}, fmt.Errorf("%w: invalid time range line %q", ErrMalformedInput, lines[1])
	}
	start, err := ParseTimestamp(match[1])
	if err != nil {
		return Cue{}, err
	}
	end, err := ParseTimestamp(match[2])
	if err != nil {
		return Cue{}, err
	}
	text := strings.TrimSpace(strings.Join(lines[2:], "\n"))
	return Cue{Index: index, Start: start, End: end, Text: text}, nil
}
