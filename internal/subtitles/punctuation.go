package subtitles

import (
	"strings"
	"unicode/utf8"
)

// Marks is a set of punctuation runes stored as a string, e.g. ".!?".
type Marks string

const (
	// DefaultCutMarks ends a cue during assembly.
	DefaultCutMarks Marks = ".!?,"
	// DefaultTerminalMarks closes a sentence.
	DefaultTerminalMarks Marks = ".!?"
	// DefaultPauseMarks closes a clause.
	DefaultPauseMarks Marks = ","
)

// Or returns m, or fallback when m is empty.
func (m Marks) Or(fallback Marks) Marks {
	if m == "" {
		return fallback
	}
	return m
}

// Ends reports whether the last rune of text (ignoring trailing whitespace)
// is one of the marks.
func (m Marks) Ends(text string) bool {
	text = strings.TrimRightFunc(text, isSpace)
	if text == "" || m == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	return strings.ContainsRune(string(m), last)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
