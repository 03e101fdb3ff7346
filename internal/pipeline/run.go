package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"subforge/internal/fileutil"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/subtitles"
)

// Command names recorded in run metrics.
const (
	CommandGenerate   = "generate"
	CommandTranscribe = "transcribe"
	CommandSegment    = "segment"
	CommandRewrite    = "rewrite"
	CommandReflow     = "reflow"
)

// Generate transcribes source, writes the assembled cues to
// <base>.original.srt, then rewrites (when enabled) and reflows them into
// output. An empty output uses OutputPaths.
func (p *Pipeline) Generate(ctx context.Context, source, output string) (summary Summary, err error) {
	ctx, summary.RunID = beginRun(ctx, source)
	summary.Input = source
	started := time.Now()
	defer func() { p.finishRun(ctx, CommandGenerate, started, err) }()

	original, final := p.OutputPaths(source)
	if output != "" {
		final = output
	}
	summary.OriginalPath, summary.OutputPath = original, final

	lock, err := lockOutput(final)
	if err != nil {
		return summary, err
	}
	defer unlock(lock)

	var transcript subtitles.Transcript
	var mediaSeconds float64
	err = p.runStage(ctx, "transcribe", func(ctx context.Context) error {
		result, err := p.transcriber.Transcribe(ctx, source, p.cfg.WhisperX.AudioTrack, p.cfg.Paths.WorkDir)
		if err != nil {
			return err
		}
		transcript, mediaSeconds = result.Transcript, result.AudioSeconds
		return nil
	})
	if err != nil {
		return summary, err
	}

	cues, err := p.segmentStage(ctx, transcript, mediaSeconds, &summary)
	if err != nil {
		return summary, err
	}
	if err := p.writeStage(ctx, original, cues); err != nil {
		return summary, err
	}

	if p.cfg.Rewrite.Enabled {
		cues, err = p.rewriteStage(ctx, cues, &summary)
		if err != nil {
			return summary, err
		}
	}
	if err := p.reflowStage(ctx, cues); err != nil {
		return summary, err
	}
	summary.Cues = len(cues)
	return summary, p.writeStage(ctx, final, cues)
}

// TranscribeFile runs WhisperX on source and writes the transcript JSON to
// output (default <base>.json beside the subtitles).
func (p *Pipeline) TranscribeFile(ctx context.Context, source, output string) (summary Summary, err error) {
	ctx, summary.RunID = beginRun(ctx, source)
	summary.Input = source
	started := time.Now()
	defer func() { p.finishRun(ctx, CommandTranscribe, started, err) }()

	if output == "" {
		_, final := p.OutputPaths(source)
		output = fileutil.ReplaceExt(final, ".json")
	}
	summary.OutputPath = output

	err = p.runStage(ctx, "transcribe", func(ctx context.Context) error {
		result, err := p.transcriber.Transcribe(ctx, source, p.cfg.WhisperX.AudioTrack, p.cfg.Paths.WorkDir)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(result.Transcript, "", "  ")
		if err != nil {
			return err
		}
		for _, segment := range result.Transcript.Segments {
			summary.Words += len(segment.Words)
		}
		return fileutil.WriteFileAtomic(output, append(data, '\n'), 0o644)
	})
	return summary, err
}

// SegmentFile builds cues from a WhisperX JSON transcript and writes them to
// output (default <base>.original.srt).
func (p *Pipeline) SegmentFile(ctx context.Context, transcriptPath, output string) (summary Summary, err error) {
	ctx, summary.RunID = beginRun(ctx, transcriptPath)
	summary.Input = transcriptPath
	started := time.Now()
	defer func() { p.finishRun(ctx, CommandSegment, started, err) }()

	if output == "" {
		output, _ = p.OutputPaths(transcriptPath)
	}
	summary.OutputPath = output

	transcript, err := LoadTranscript(transcriptPath)
	if err != nil {
		return summary, err
	}
	cues, err := p.segmentStage(ctx, transcript, 0, &summary)
	if err != nil {
		return summary, err
	}
	summary.Cues = len(cues)
	return summary, p.writeStage(ctx, output, cues)
}

// RewriteFile rewrites an existing subtitle file and writes the reflowed
// result to output. The default output is <base>.srt, or <base>.rewritten.srt
// when that would overwrite the input.
func (p *Pipeline) RewriteFile(ctx context.Context, input, output string) (summary Summary, err error) {
	ctx, summary.RunID = beginRun(ctx, input)
	summary.Input = input
	started := time.Now()
	defer func() { p.finishRun(ctx, CommandRewrite, started, err) }()

	if output == "" {
		_, output = p.OutputPaths(input)
		if sameFile(output, input) {
			output = fileutil.ReplaceExt(output, ".rewritten.srt")
		}
	}
	summary.OutputPath = output

	cues, err := p.ReadCues(input)
	if err != nil {
		return summary, err
	}
	lock, err := lockOutput(output)
	if err != nil {
		return summary, err
	}
	defer unlock(lock)

	cues, err = p.rewriteStage(ctx, cues, &summary)
	if err != nil {
		return summary, err
	}
	if err := p.reflowStage(ctx, cues); err != nil {
		return summary, err
	}
	summary.Cues = len(cues)
	return summary, p.writeStage(ctx, output, cues)
}

// ReflowFile rewraps an existing subtitle file at limit words per line
// (the configured limit when limit <= 0). An empty output rewrites input.
func (p *Pipeline) ReflowFile(ctx context.Context, input, output string, limit int) (summary Summary, err error) {
	ctx, summary.RunID = beginRun(ctx, input)
	summary.Input = input
	started := time.Now()
	defer func() { p.finishRun(ctx, CommandReflow, started, err) }()

	if output == "" {
		output = input
	}
	if limit <= 0 {
		limit = p.cfg.Reflow.WordsPerLine
	}
	summary.OutputPath = output

	cues, err := p.ReadCues(input)
	if err != nil {
		return summary, err
	}
	err = p.runStage(ctx, "reflow", func(context.Context) error {
		if err := subtitles.ReflowCues(cues, limit); err != nil {
			return classify("reflow", "wrap lines", err)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	summary.Cues = len(cues)
	return summary, p.writeStage(ctx, output, cues)
}

// ReadCues parses a subtitle file in the configured encoding.
func (p *Pipeline) ReadCues(path string) ([]subtitles.Cue, error) {
	text, err := fileutil.ReadText(path, p.cfg.Files.Encoding)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "read", "subtitles", path, err)
		}
		return nil, services.Wrap(services.ErrValidation, "read", "subtitles", path, err)
	}
	cues, err := subtitles.ParseSRT(text)
	if err != nil {
		return nil, classify("read", path, err)
	}
	return cues, nil
}

func (p *Pipeline) segmentStage(ctx context.Context, transcript subtitles.Transcript, mediaSeconds float64, summary *Summary) ([]subtitles.Cue, error) {
	var result SegmentResult
	err := p.runStage(ctx, "segment", func(ctx context.Context) error {
		var err error
		result, err = p.Segment(ctx, transcript, mediaSeconds)
		return err
	})
	if err != nil {
		return nil, err
	}
	summary.Words = result.Words
	summary.Dropped = len(result.Dropped)
	summary.Cues = len(result.Cues)
	return result.Cues, nil
}

func (p *Pipeline) rewriteStage(ctx context.Context, cues []subtitles.Cue, summary *Summary) ([]subtitles.Cue, error) {
	var out []subtitles.Cue
	err := p.runStage(ctx, "rewrite", func(ctx context.Context) error {
		var err error
		out, summary.Batches, err = p.Rewrite(ctx, cues)
		return err
	})
	return out, err
}

func (p *Pipeline) reflowStage(ctx context.Context, cues []subtitles.Cue) error {
	return p.runStage(ctx, "reflow", func(context.Context) error {
		return p.Reflow(cues)
	})
}

func (p *Pipeline) writeStage(ctx context.Context, path string, cues []subtitles.Cue) error {
	return p.runStage(ctx, "write", func(ctx context.Context) error {
		if err := fileutil.WriteText(path, subtitles.FormatSRT(cues), p.cfg.Files.Encoding); err != nil {
			return services.Wrap(services.ErrTransient, "write", "subtitles", path, err)
		}
		logging.WithContext(ctx, p.logger).Info("subtitles written",
			logging.String(logging.FieldEventType, "subtitles_written"),
			logging.String("path", path),
			logging.Int("cues", len(cues)),
		)
		return nil
	})
}

func lockOutput(path string) (*flock.Flock, error) {
	lock, err := fileutil.LockOutput(path)
	if err != nil {
		if errors.Is(err, fileutil.ErrLocked) {
			return nil, services.Wrap(services.ErrValidation, "write", "lock output", "another run is writing this file", err)
		}
		return nil, err
	}
	return lock, nil
}

func unlock(lock *flock.Flock) {
	_ = lock.Unlock()
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
