package subtitles

import "fmt"

// AssembleOptions controls how the cue assembler cuts the word stream.
type AssembleOptions struct {
	// MinWords is the number of words a cue collects before a cut is considered.
	MinWords int
	// Window is how many words either side of the default cut are searched
	// for punctuation.
	Window int
	// CutMarks are the punctuation runes that may end a cue. Empty uses
	// DefaultCutMarks.
	CutMarks Marks
}

// Validate rejects degenerate assembler settings.
func (o AssembleOptions) Validate() error {
	if o.MinWords <= 0 {
		return fmt.Errorf("%w: min_words must be positive (got %d)", ErrInvalidOptions, o.MinWords)
	}
	if o.Window < 0 {
		return fmt.Errorf("%w: window must be >= 0 (got %d)", ErrInvalidOptions, o.Window)
	}
	return nil
}

// AdjustOptions controls the punctuation boundary adjuster.
type AdjustOptions struct {
	// WordsSplit is the exclusive upper bound on trailing words moved to the
	// next cue.
	WordsSplit int
	Terminal   Marks
	Pause      Marks
}

// Validate rejects degenerate adjuster settings.
func (o AdjustOptions) Validate() error {
	if o.WordsSplit < 0 {
		return fmt.Errorf("%w: words_split must be >= 0 (got %d)", ErrInvalidOptions, o.WordsSplit)
	}
	return nil
}

// BatchOptions controls how cues are grouped into rewrite batches.
type BatchOptions struct {
	// Size is the minimum number of cues before a batch may close.
	Size int
	// Offset is the overflow allowed past Size before a forced close.
	Offset   int
	Terminal Marks
	Pause    Marks
}

// Validate rejects degenerate batch settings.
func (o BatchOptions) Validate() error {
	if o.Size <= 0 {
		return fmt.Errorf("%w: batch size must be positive (got %d)", ErrInvalidOptions, o.Size)
	}
	if o.Offset < 0 {
		return fmt.Errorf("%w: batch offset must be >= 0 (got %d)", ErrInvalidOptions, o.Offset)
	}
	return nil
}

// ValidateWordsPerLine rejects a non-positive reflow limit.
func ValidateWordsPerLine(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: words_per_line must be positive (got %d)", ErrInvalidOptions, limit)
	}
	return nil
}
