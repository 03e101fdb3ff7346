// Package main hosts the subforge CLI entrypoint and command graph.
//
// The Cobra-based command tree maps terminal invocations onto pipeline runs
// (generate, transcribe, segment, rewrite, reflow), batch planning, health
// checks, cache maintenance and configuration scaffolding. It also owns
// configuration resolution, logger setup and exit codes.
package main
