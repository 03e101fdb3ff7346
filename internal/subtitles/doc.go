// Package subtitles turns word-level transcription output into subtitle cues
// and prepares those cues for an external rewrite pass.
//
// The package is deliberately pure: every transformation takes values and
// returns values (or an error for malformed input and degenerate options).
// It owns:
//   - the cue grammar (SRT blocks) used both on disk and on the wire
//   - word stream normalization from WhisperX-style transcripts
//   - cue assembly with a punctuation search window
//   - the optional boundary adjuster and hallucination filter passes
//   - batch splitting for rewrite requests
//   - line reflow bounded by words per line
//
// I/O, logging, and the remote rewrite call live in the pipeline and rewrite
// packages so these functions stay deterministic and easy to test.
package subtitles
