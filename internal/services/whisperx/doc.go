// Package whisperx turns media files into word-timestamped transcripts.
//
// This package handles:
//   - Audio extraction to mono 16 kHz PCM with ffmpeg
//   - WhisperX invocation through uvx with JSON output
//   - Decoding the JSON payload into a subtitles.Transcript
//
// External commands go through a swappable runner so tests can stand in for
// ffmpeg and uvx.
package whisperx
