// Package pipeline runs the subtitle stages end to end.
//
// A run moves through named stages (transcribe, segment, rewrite, reflow,
// write). Each stage is logged with a start and completion event, timed into
// the metrics registry and stamped with the run's correlation id. The
// segmentation engine in internal/subtitles stays free of I/O; this package
// owns files, locks, the model client and the rewrite cache.
package pipeline
