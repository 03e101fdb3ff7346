package pipeline

import (
	"context"
	"log/slog"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/metrics"
	"subforge/internal/rewrite"
	"subforge/internal/services/whisperx"
)

// Transcriber turns a media file into a word-timed transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, source string, audioIndex int, workDir string) (whisperx.Result, error)
}

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	cfg         *config.Config
	base        *slog.Logger
	logger      *slog.Logger
	metrics     *metrics.Metrics
	transcriber Transcriber
	completer   rewrite.Completer
	cache       rewrite.Cache

	// ownTranscriber is set when New built the WhisperX service itself.
	ownTranscriber bool
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.base = logger
	}
}

// WithMetrics sets the metrics registry; nil disables recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTranscriber overrides the WhisperX service.
func WithTranscriber(t Transcriber) Option {
	return func(p *Pipeline) {
		p.transcriber = t
	}
}

// WithCompleter overrides the chat completion client.
func WithCompleter(c rewrite.Completer) Option {
	return func(p *Pipeline) {
		p.completer = c
	}
}

// WithCache supplies an already open rewrite cache. Without it the cache is
// opened per run when rewrite.cache_enabled is set.
func WithCache(c rewrite.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// New constructs a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.transcriber == nil {
		p.ownTranscriber = true
		p.transcriber = whisperx.NewService(whisperx.Config{
			Model:       cfg.WhisperX.Model,
			Language:    cfg.WhisperX.Language,
			CUDAEnabled: cfg.WhisperX.CUDAEnabled,
			VADMethod:   cfg.WhisperX.VADMethod,
			HFToken:     cfg.WhisperX.HFToken,
		}, cfg.FFmpegBinary(), cfg.UVXBinary(), p.base)
	}
	p.logger = logging.NewComponentLogger(p.base, "pipeline")
	return p
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Summary describes a finished run.
type Summary struct {
	RunID        string
	Input        string
	OriginalPath string
	OutputPath   string
	Words        int
	Cues         int
	Dropped      int
	Batches      int
}
