// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp the input path, stage name, rewrite batch and
//     correlation identifier for logging.
//   - Structured error markers plus the Wrap helper, and ExitCode which maps
//     them onto CLI exit statuses.
//
// Integrations live in subpackages: llm (chat completion) and whisperx
// (audio extraction and transcription).
package services
