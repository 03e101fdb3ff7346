package preflight

import (
	"context"
	"strings"

	"subforge/internal/config"
)

// CheckLLMFromConfig evaluates LLM status from config and connectivity.
func CheckLLMFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "LLM"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Rewrite.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	check := CheckLLM(ctx, name, cfg.LLM)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckCacheFromConfig reports whether the rewrite cache is in use.
func CheckCacheFromConfig(cfg *config.Config) Result {
	const name = "Rewrite cache"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Rewrite.CacheEnabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	dir := CheckDirectoryAccess(name, cfg.Paths.CacheDir)
	if !dir.Passed {
		return dir
	}
	return Result{Name: name, Passed: true, Detail: cfg.RewriteCachePath()}
}
