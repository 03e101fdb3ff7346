package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"subforge/internal/logging"
	"subforge/internal/metrics"
	"subforge/internal/services"
	"subforge/internal/services/llm"
	"subforge/internal/subtitles"
)

// ErrRewriteFailed tags every batch failure so callers can tell a rejected
// model response from a transport error.
var ErrRewriteFailed = errors.New("batch rewrite failed")

// Completer is the chat completion boundary.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Cache stores responses that parsed successfully.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, model string, cueCount int, response string) error
}

// Options configures a Rewriter.
type Options struct {
	// Prompt is the system prompt template; {blocks} becomes the batch size.
	Prompt string
	// Context is optional reference text appended to every system prompt.
	Context string
	// PreserveTiming keeps source start/end and takes only text from the model.
	PreserveTiming bool
	// Model and Temperature only feed the cache key.
	Model       string
	Temperature float64
	Cache       Cache
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Rewriter drives the completion boundary one batch at a time.
type Rewriter struct {
	completer Completer
	opts      Options
	logger    *slog.Logger
}

// New constructs a Rewriter.
func New(completer Completer, opts Options) *Rewriter {
	return &Rewriter{
		completer: completer,
		opts:      opts,
		logger:    logging.NewComponentLogger(opts.Logger, "rewriter"),
	}
}

// RewriteBatches rewrites each batch in order and returns the concatenated,
// renumbered cues. On any failure it returns nil and the error.
func (r *Rewriter) RewriteBatches(ctx context.Context, batches [][]subtitles.Cue) ([]subtitles.Cue, error) {
	if r == nil || r.completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "rewrite", "init", "no completer configured", nil)
	}
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	out := make([]subtitles.Cue, 0, total)
	cached := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batchCtx := services.WithBatch(ctx, i+1)
		cues, hit, err := r.RewriteBatch(batchCtx, batch)
		if err != nil {
			logging.ErrorWithContext(batchCtx, logging.WithContext(batchCtx, r.logger), "batch rewrite failed", "batch_rewrite_failed",
				logging.Error(err),
				logging.Int("batches", len(batches)),
				logging.String(logging.FieldErrorHint, "rerun to retry; completed batches are served from cache when enabled"),
			)
			return nil, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		if hit {
			cached++
		}
		out = append(out, cues...)
	}
	subtitles.Renumber(out)
	r.logger.Info("rewrite complete",
		logging.String(logging.FieldEventType, "rewrite_complete"),
		logging.Int("batches", len(batches)),
		logging.Int("cues", len(out)),
		logging.Int("cache_hits", cached),
	)
	return out, nil
}

// RewriteBatch rewrites one batch. The bool reports a cache hit.
func (r *Rewriter) RewriteBatch(ctx context.Context, batch []subtitles.Cue) ([]subtitles.Cue, bool, error) {
	if len(batch) == 0 {
		return nil, false, nil
	}
	logger := logging.WithContext(ctx, r.logger)
	batchText := FormatBatch(batch)
	systemPrompt := ComposeSystemPrompt(InterpolatePrompt(r.opts.Prompt, len(batch)), r.opts.Context)

	var key string
	if r.opts.Cache != nil {
		key = cacheKey(r.opts, systemPrompt, batchText)
		response, ok, err := r.opts.Cache.Get(ctx, key)
		if err != nil {
			logging.WarnWithContext(ctx, logger, "rewrite cache read failed", "cache_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "batch will be sent to the model"),
			)
		} else if ok {
			cues, err := r.parseResponse(batch, response)
			if err == nil {
				r.opts.Metrics.ObserveBatch(metrics.BatchCached)
				logger.Debug("batch served from cache", logging.Int("cues", len(cues)))
				return cues, true, nil
			}
			logger.Debug("discarding unparseable cache entry", logging.Error(err))
		}
	}

	started := time.Now()
	response, err := r.completer.Complete(ctx, BuildMessages(systemPrompt, batchText))
	r.opts.Metrics.ObserveLLMRequest(time.Since(started))
	if err != nil {
		r.opts.Metrics.ObserveBatch(metrics.BatchFailed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, false, services.Wrap(services.ErrExternalTool, "rewrite", "complete", "", fmt.Errorf("%w: %w", ErrRewriteFailed, err))
	}
	cues, err := r.parseResponse(batch, response)
	if err != nil {
		r.opts.Metrics.ObserveBatch(metrics.BatchFailed)
		return nil, false, fmt.Errorf("%w: %w", ErrRewriteFailed, err)
	}
	r.opts.Metrics.ObserveBatch(metrics.BatchRewritten)
	logger.Debug("batch rewritten",
		logging.Int("cues", len(cues)),
		logging.Duration("duration", time.Since(started)),
	)

	if r.opts.Cache != nil {
		if err := r.opts.Cache.Put(ctx, key, r.opts.Model, len(batch), response); err != nil {
			logging.WarnWithContext(ctx, logger, "rewrite cache write failed", "cache_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "batch will be requested again on the next run"),
			)
		}
	}
	return cues, false, nil
}

// parseResponse turns the model reply into cues matching batch one to one.
func (r *Rewriter) parseResponse(batch []subtitles.Cue, response string) ([]subtitles.Cue, error) {
	cues, err := subtitles.ParseSRT(StripCodeFence(response))
	if err != nil {
		return nil, err
	}
	if len(cues) != len(batch) {
		return nil, fmt.Errorf("%w: model returned %d cues for a batch of %d", subtitles.ErrMalformedInput, len(cues), len(batch))
	}
	if r.opts.PreserveTiming {
		for i := range cues {
			cues[i].Start = batch[i].Start
			cues[i].End = batch[i].End
		}
	}
	return cues, nil
}
