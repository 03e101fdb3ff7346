package subtitles

import "errors"

var (
	// ErrMalformedInput marks records or text that do not satisfy the
	// transcript schema or the cue grammar.
	ErrMalformedInput = errors.New("malformed input")
	// ErrInvalidOptions marks degenerate engine settings rejected before any
	// processing starts.
	ErrInvalidOptions = errors.New("invalid options")
)
