package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/preflight"
	"subforge/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipLLM bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, external tools and the LLM endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			w := newStatusWriter(cmd.OutOrStdout())

			w.section("Directories")
			dirs := []struct{ label, path string }{
				{"Work", cfg.Paths.WorkDir},
				{"Cache", cfg.Paths.CacheDir},
				{"Logs", cfg.Paths.LogDir},
				{"Output", cfg.Files.OutputDir},
			}
			for _, dir := range dirs {
				if dir.path == "" {
					w.line(dir.label, statusInfo, "not configured")
					continue
				}
				w.result(preflight.CheckDirectoryAccess(dir.label, dir.path))
			}

			w.section("Dependencies")
			for _, status := range preflight.CheckSystemDeps(cfg) {
				switch {
				case status.Available:
					detail := status.Path
					if status.Version != "" {
						detail += " (" + status.Version + ")"
					}
					w.line(status.Name, statusOK, detail)
				case status.Optional:
					w.line(status.Name, statusWarn, status.Detail)
				default:
					w.line(status.Name, statusError, fmt.Sprintf("%s; %s", status.Detail, strings.ToLower(status.Description)))
				}
			}

			w.section("Rewrite")
			if !cfg.Rewrite.Enabled {
				w.line("Rewrite", statusInfo, "disabled")
			} else {
				w.result(preflight.CheckFileReadable("Prompt", cfg.Rewrite.PromptFile))
				if cfg.Rewrite.ContextFile != "" {
					w.result(preflight.CheckFileReadable("Context", cfg.Rewrite.ContextFile))
				}
			}
			w.result(preflight.CheckCacheFromConfig(cfg))
			if skipLLM {
				w.line("LLM", statusInfo, "skipped")
			} else {
				w.result(preflight.CheckLLMFromConfig(cmd.Context(), cfg))
			}

			if w.errors > 0 {
				return services.Wrap(services.ErrConfiguration, "check", "", fmt.Sprintf("%d check(s) failed", w.errors), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Do not send a health request to the LLM endpoint")
	return cmd
}

func (w *statusWriter) result(r preflight.Result) {
	kind := statusOK
	if !r.Passed {
		kind = statusError
	}
	w.line(r.Name, kind, r.Detail)
}
