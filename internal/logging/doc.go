// Package logging assembles the structured slog loggers used across subforge.
//
// It owns the console and JSON handlers, the fanout handler that mirrors
// console output into the optional log file, and context helpers that stamp
// log lines with the input file, pipeline stage, rewrite batch and run
// correlation ID. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
