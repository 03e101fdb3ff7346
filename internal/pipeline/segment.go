package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/subtitles"
)

// SegmentResult is the cue sequence built from one transcript.
type SegmentResult struct {
	Cues    []subtitles.Cue
	Words   int
	Dropped []subtitles.Removal
}

// Segment turns a transcript into cues. In words mode the word stream is
// assembled and optionally adjusted; in segments mode each transcript segment
// becomes a cue after short segments are merged. mediaSeconds bounds the
// hallucination filter; 0 uses the last cue's end.
func (p *Pipeline) Segment(ctx context.Context, transcript subtitles.Transcript, mediaSeconds float64) (SegmentResult, error) {
	var result SegmentResult
	logger := logging.WithContext(ctx, p.logger)

	switch p.cfg.Segmentation.Mode {
	case config.ModeSegments:
		cues, err := subtitles.SegmentCues(transcript, p.cfg.Segmentation.MergeMinWords)
		if err != nil {
			return SegmentResult{}, classify("segment", "segments", err)
		}
		result.Cues = cues
		result.Words = subtitles.CountWords(cues)
	default:
		words, err := subtitles.NormalizeWords(transcript)
		if err != nil {
			return SegmentResult{}, classify("segment", "normalize words", err)
		}
		cues, err := subtitles.AssembleCues(words, p.cfg.AssembleOptions())
		if err != nil {
			return SegmentResult{}, classify("segment", "assemble cues", err)
		}
		result.Cues = cues
		result.Words = len(words)
	}
	p.metrics.AddWords(result.Words)

	if p.cfg.Segmentation.DropHallucinations {
		filtered := subtitles.FilterHallucinations(result.Cues, mediaSeconds)
		for _, removal := range filtered.Removals {
			p.metrics.ObserveDropped(removal.Reason)
			logger.Debug("cue dropped",
				logging.String("reason", removal.Reason),
				logging.String("text", removal.Cue.Text),
				logging.Float64("start", removal.Cue.Start),
			)
		}
		result.Cues = filtered.Cues
		result.Dropped = filtered.Removals
	}

	if p.cfg.Adjuster.Enabled {
		if err := subtitles.AdjustBoundaries(result.Cues, p.cfg.AdjustOptions()); err != nil {
			return SegmentResult{}, classify("segment", "adjust boundaries", err)
		}
	}
	p.metrics.AddCues("segment", len(result.Cues))

	logger.Info("transcript segmented",
		logging.String(logging.FieldEventType, "segment_complete"),
		logging.String("mode", p.cfg.Segmentation.Mode),
		logging.Int("words", result.Words),
		logging.Int("cues", len(result.Cues)),
		logging.Int("dropped", len(result.Dropped)),
	)
	return result, nil
}

// LoadTranscript decodes a WhisperX JSON file.
func LoadTranscript(path string) (subtitles.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return subtitles.Transcript{}, services.Wrap(services.ErrNotFound, "segment", "load transcript", path, err)
		}
		return subtitles.Transcript{}, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	transcript, err := subtitles.DecodeTranscript(f)
	if err != nil {
		return subtitles.Transcript{}, classify("segment", "load transcript", err)
	}
	return transcript, nil
}

// classify tags engine errors with the service marker for their exit code.
func classify(stage, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, subtitles.ErrInvalidOptions):
		return services.Wrap(services.ErrConfiguration, stage, op, "", err)
	case errors.Is(err, subtitles.ErrMalformedInput):
		return services.Wrap(services.ErrValidation, stage, op, "", err)
	default:
		return err
	}
}
