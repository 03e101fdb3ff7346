package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"subforge/internal/logging"
	"subforge/internal/preflight"
	"subforge/internal/services"
)

// beginRun stamps ctx with a fresh correlation id and the input path.
func beginRun(ctx context.Context, input string) (context.Context, string) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	if input != "" {
		ctx = services.WithInput(ctx, input)
	}
	return ctx, runID
}

// finishRun records the run outcome and flushes the metrics textfile.
func (p *Pipeline) finishRun(ctx context.Context, command string, started time.Time, err error) {
	p.metrics.FinishRun(command, err)
	logger := logging.WithContext(ctx, p.logger)
	if err != nil {
		logging.ErrorWithContext(ctx, logger, "run failed", "run_failure",
			logging.String("command", command),
			logging.Duration("duration", time.Since(started)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
	} else {
		logger.Info("run completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("command", command),
			logging.Duration("duration", time.Since(started)),
		)
	}
	if werr := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); werr != nil {
		logging.WarnWithContext(ctx, logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(werr),
			logging.String(logging.FieldImpact, "run metrics are missing for this run"),
		)
	}
}

// runStage executes fn as the named stage.
func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	stop := p.metrics.StageTimer(name)
	started := time.Now()
	err := fn(stageCtx)
	stop()

	if err != nil {
		logger.Debug("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(err),
		)
		return err
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "run was interrupted"
	case errors.Is(err, services.ErrConfiguration):
		return "check the config file with 'subforge config validate'"
	case errors.Is(err, services.ErrValidation):
		return "input file is malformed"
	case errors.Is(err, services.ErrExternalTool):
		return "run 'subforge check' to verify tools and the LLM endpoint"
	default:
		return ""
	}
}

// OutputPaths returns where the assembled and final subtitles for input are
// written: <base>.original.srt and <base>.srt, in files.output_dir when set
// and next to input otherwise.
func (p *Pipeline) OutputPaths(input string) (original, final string) {
	dir := filepath.Dir(input)
	if p.cfg.Files.OutputDir != "" {
		dir = p.cfg.Files.OutputDir
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	base = strings.TrimSuffix(base, ".original")
	return filepath.Join(dir, base+".original.srt"), filepath.Join(dir, base+".srt")
}

// Preflight verifies what a run of command will touch: directories always,
// the transcription tools for generate and transcribe, and the prompt and
// LLM key when the command rewrites. Injected collaborators are trusted.
func (p *Pipeline) Preflight(ctx context.Context, command string) error {
	scope := preflight.Scope{
		Transcribe: p.ownTranscriber && (command == CommandGenerate || command == CommandTranscribe),
		Rewrite:    p.cfg.Rewrite.Enabled && (command == CommandGenerate || command == CommandRewrite),
		SkipLLM:    p.completer != nil,
	}
	if err := preflight.Require(ctx, p.cfg, scope); err != nil {
		logging.ErrorWithContext(ctx, p.logger, "preflight failed", "preflight_failed",
			logging.String("command", command),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run subforge check for details"),
		)
		return err
	}
	return nil
}
