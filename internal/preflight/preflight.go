package preflight

import (
	"context"
	"fmt"
	"strings"

	"subforge/internal/config"
	"subforge/internal/deps"
	"subforge/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Scope selects which features a run will use.
type Scope struct {
	Transcribe bool
	Rewrite    bool
	// ProbeLLM issues a live health request when Rewrite is set.
	ProbeLLM bool
	// SkipLLM leaves out the key and endpoint checks, for callers that
	// supply their own completer.
	SkipLLM bool
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is in scope.
func RunAll(ctx context.Context, cfg *config.Config, scope Scope) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Work and cache directories (always checked)
	results = append(results,
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	)

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Files.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Files.OutputDir))
	}

	if scope.Transcribe {
		missing := deps.Missing(CheckSystemDeps(cfg))
		for _, status := range missing {
			results = append(results, Result{Name: status.Name, Detail: status.Detail})
		}
		if len(missing) == 0 {
			results = append(results, Result{Name: "Transcription tools", Passed: true, Detail: "ffmpeg and uvx found"})
		}
	}

	if scope.Rewrite {
		results = append(results, CheckFileReadable("Rewrite prompt", cfg.Rewrite.PromptFile))
		if cfg.Rewrite.ContextFile != "" {
			results = append(results, CheckFileReadable("Rewrite context", cfg.Rewrite.ContextFile))
		}
		switch {
		case scope.SkipLLM:
		case scope.ProbeLLM:
			results = append(results, CheckLLM(ctx, "Rewrite LLM", cfg.LLM))
		case strings.TrimSpace(cfg.LLM.APIKey) == "":
			results = append(results, Result{Name: "Rewrite LLM", Detail: "API key missing"})
		}
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Require runs the checks for scope and returns a configuration error naming
// every failed check.
func Require(ctx context.Context, cfg *config.Config, scope Scope) error {
	failed := Failed(RunAll(ctx, cfg, scope))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(parts, "; "), nil)
}
