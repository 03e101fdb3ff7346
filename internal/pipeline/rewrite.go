package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"

	"subforge/internal/batchcache"
	"subforge/internal/config"
	"subforge/internal/fileutil"
	"subforge/internal/logging"
	"subforge/internal/rewrite"
	"subforge/internal/services"
	"subforge/internal/services/llm"
	"subforge/internal/subtitles"
)

// Plan groups cues into rewrite batches without calling the model.
func (p *Pipeline) Plan(cues []subtitles.Cue) ([][]subtitles.Cue, error) {
	batches, err := subtitles.SplitBatches(cues, p.cfg.BatchOptions())
	if err != nil {
		return nil, classify("plan", "split batches", err)
	}
	return batches, nil
}

// Rewrite splits cues into batches and rewrites them through the model in
// order. It returns the renumbered result and the batch count. Nothing is
// returned unless every batch succeeded.
func (p *Pipeline) Rewrite(ctx context.Context, cues []subtitles.Cue) ([]subtitles.Cue, int, error) {
	batches, err := p.Plan(cues)
	if err != nil {
		return nil, 0, err
	}
	if len(batches) == 0 {
		return nil, 0, nil
	}

	prompt, err := p.readPrompt()
	if err != nil {
		return nil, 0, err
	}
	promptContext, err := p.readContext()
	if err != nil {
		return nil, 0, err
	}
	completer, err := p.resolveCompleter()
	if err != nil {
		return nil, 0, err
	}
	cache, closeCache := p.resolveCache(ctx)
	defer closeCache()

	rewriter := rewrite.New(completer, rewrite.Options{
		Prompt:         prompt,
		Context:        promptContext,
		PreserveTiming: p.cfg.Rewrite.PreserveTiming,
		Model:          p.cfg.LLM.Model,
		Temperature:    p.cfg.LLM.Temperature,
		Cache:          cache,
		Logger:         p.base,
		Metrics:        p.metrics,
	})
	out, err := rewriter.RewriteBatches(ctx, batches)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		if errors.Is(err, rewrite.ErrRewriteFailed) && !errors.Is(err, services.ErrExternalTool) {
			return nil, 0, services.Wrap(services.ErrExternalTool, "rewrite", "model response", "", err)
		}
		return nil, 0, err
	}
	p.metrics.AddCues("rewrite", len(out))
	return out, len(batches), nil
}

// Reflow wraps every cue's text when reflow is enabled.
func (p *Pipeline) Reflow(cues []subtitles.Cue) error {
	if !p.cfg.Reflow.Enabled {
		return nil
	}
	if err := subtitles.ReflowCues(cues, p.cfg.Reflow.WordsPerLine); err != nil {
		return classify("reflow", "wrap lines", err)
	}
	p.metrics.AddCues("reflow", len(cues))
	return nil
}

func (p *Pipeline) readPrompt() (string, error) {
	path := p.cfg.Rewrite.PromptFile
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrConfiguration, "rewrite", "prompt", "rewrite.prompt_file is not set", nil)
	}
	text, err := fileutil.ReadText(path, p.cfg.Files.Encoding)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "rewrite", "prompt", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrConfiguration, "rewrite", "prompt", path+" is empty", nil)
	}
	return text, nil
}

func (p *Pipeline) readContext() (string, error) {
	path := p.cfg.Rewrite.ContextFile
	if path == "" {
		return "", nil
	}
	text, err := fileutil.ReadText(path, p.cfg.Files.Encoding)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "rewrite", "context", path, err)
	}
	return text, nil
}

func (p *Pipeline) resolveCompleter() (rewrite.Completer, error) {
	if p.completer != nil {
		return p.completer, nil
	}
	if err := p.cfg.RequireLLM(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "rewrite", "llm", "", err)
	}
	p.completer = NewCompleter(p.cfg.LLM, llm.WithLogger(logging.NewComponentLogger(p.base, "llm")))
	return p.completer, nil
}

// NewCompleter builds the chat completion client for the llm section.
// Extra options are applied after the configured retry count.
func NewCompleter(cfg config.LLM, extra ...llm.Option) *llm.Client {
	var opts []llm.Option
	if cfg.RetryAttempts > 0 {
		opts = append(opts, llm.WithRetryMaxAttempts(cfg.RetryAttempts))
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Organization:   cfg.Organization,
		Temperature:    cfg.Temperature,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, append(opts, extra...)...)
}

// resolveCache returns the injected cache, or opens the on-disk cache when
// enabled. A cache that cannot be opened is skipped.
func (p *Pipeline) resolveCache(ctx context.Context) (rewrite.Cache, func()) {
	if p.cache != nil {
		return p.cache, func() {}
	}
	if !p.cfg.Rewrite.CacheEnabled {
		return nil, func() {}
	}
	path := p.cfg.RewriteCachePath()
	if err := os.MkdirAll(p.cfg.Paths.CacheDir, 0o755); err != nil {
		p.warnCache(ctx, path, err)
		return nil, func() {}
	}
	store, err := batchcache.Open(path)
	if err != nil {
		p.warnCache(ctx, path, err)
		return nil, func() {}
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logging.WithContext(ctx, p.logger).Debug("close rewrite cache", logging.Error(err))
		}
	}
}

func (p *Pipeline) warnCache(ctx context.Context, path string, err error) {
	logging.WarnWithContext(ctx, logging.WithContext(ctx, p.logger), "rewrite cache unavailable", "cache_open_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "every batch is sent to the model"),
	)
}
