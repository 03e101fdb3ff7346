package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool
	var printOnly bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if printOnly {
				_, err := io.WriteString(out, config.SampleConfig())
				return err
			}

			target, err := configTarget(targetPath)
			if err != nil {
				return err
			}
			if err := refuseOverwrite(target, overwrite); err != nil {
				return err
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set rewrite.prompt_file and llm.api_key (or export OPENAI_API_KEY) before running subforge generate.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Write the sample to stdout instead of a file")
	return cmd
}

// configTarget expands path, falling back to the default config location.
func configTarget(path string) (string, error) {
	if path = strings.TrimSpace(path); path == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(path)
}

func refuseOverwrite(target string, overwrite bool) error {
	if overwrite {
		return nil
	}
	_, err := os.Stat(target)
	switch {
	case err == nil:
		return services.Wrap(services.ErrValidation, "config", "init",
			target+" already exists (use --overwrite to replace it)", nil)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check config path: %w", err)
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Segmentation: %s mode, min %d words, window %d\n", cfg.Segmentation.Mode, cfg.Segmentation.MinWords, cfg.Segmentation.Window)
			fmt.Fprintf(out, "Batching: size %d, offset %d\n", cfg.Batching.Size, cfg.Batching.Offset)
			fmt.Fprintf(out, "Reflow: %s (%d words per line)\n", yesNo(cfg.Reflow.Enabled), cfg.Reflow.WordsPerLine)
			fmt.Fprintf(out, "Rewrite: %s, LLM key set: %s\n", yesNo(cfg.Rewrite.Enabled), yesNo(cfg.LLM.APIKey != ""))
			if cfg.Rewrite.Enabled && cfg.Rewrite.PromptFile != "" {
				fmt.Fprintf(out, "Prompt file: %s\n", filepath.Clean(cfg.Rewrite.PromptFile))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
