package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"subforge/internal/pipeline"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var audioTrack int
	var noRewrite bool

	cmd := &cobra.Command{
		Use:   "generate <media-file>",
		Short: "Transcribe media, build cues, rewrite them through the model and write subtitles",
		Args:  exactArgs("provide the path to the media file. Example: subforge generate /path/to/video.mkv"),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := resolveInputFile(args[0])
			if err != nil {
				return err
			}
			output, err := resolveOutputFile(outputPath)
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(cmd)
			if err != nil {
				return err
			}
			cfg := p.Config()
			if cmd.Flags().Changed("audio-track") {
				cfg.WhisperX.AudioTrack = audioTrack
			}
			if noRewrite {
				cfg.Rewrite.Enabled = false
			}
			if err := p.Preflight(cmd.Context(), pipeline.CommandGenerate); err != nil {
				return err
			}
			summary, err := p.Generate(cmd.Context(), source, output)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Final subtitle path (default <media>.srt)")
	cmd.Flags().IntVar(&audioTrack, "audio-track", 0, "Audio stream to transcribe (0 is the first audio stream)")
	cmd.Flags().BoolVar(&noRewrite, "no-rewrite", false, "Skip the model rewrite and only reflow the assembled cues")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var audioTrack int

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Run WhisperX and save the word-timed transcript as JSON",
		Args:  exactArgs("provide the path to the media file. Example: subforge transcribe /path/to/video.mkv"),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := resolveInputFile(args[0])
			if err != nil {
				return err
			}
			output, err := resolveOutputFile(outputPath)
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("audio-track") {
				p.Config().WhisperX.AudioTrack = audioTrack
			}
			if err := p.Preflight(cmd.Context(), pipeline.CommandTranscribe); err != nil {
				return err
			}
			summary, err := p.TranscribeFile(cmd.Context(), source, output)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Transcript path (default <media>.json)")
	cmd.Flags().IntVar(&audioTrack, "audio-track", 0, "Audio stream to transcribe (0 is the first audio stream)")
	return cmd
}

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var mode string

	cmd := &cobra.Command{
		Use:   "segment <transcript.json>",
		Short: "Build subtitle cues from a WhisperX JSON transcript",
		Args:  exactArgs("provide the path to the transcript. Example: subforge segment /path/to/video.json"),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInputFile(args[0])
			if err != nil {
				return err
			}
			output, err := resolveOutputFile(outputPath)
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(cmd)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg := p.Config()
				cfg.Segmentation.Mode = mode
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			summary, err := p.SegmentFile(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Subtitle path (default <transcript>.original.srt)")
	cmd.Flags().StringVar(&mode, "mode", "", "Override segmentation.mode (words or segments)")
	return cmd
}

func newRewriteCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var promptPath string
	var contextPath string

	cmd := &cobra.Command{
		Use:   "rewrite <subtitles.srt>",
		Short: "Rewrite an existing subtitle file through the model in batches",
		Args:  exactArgs("provide the path to the subtitle file. Example: subforge rewrite /path/to/video.original.srt"),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInputFile(args[0])
			if err != nil {
				return err
			}
			output, err := resolveOutputFile(outputPath)
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(cmd)
			if err != nil {
				return err
			}
			if err := applyPromptFlags(p, promptPath, contextPath); err != nil {
				return err
			}
			if err := p.Preflight(cmd.Context(), pipeline.CommandRewrite); err != nil {
				return err
			}
			summary, err := p.RewriteFile(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Rewritten subtitle path (default <input>.srt)")
	cmd.Flags().StringVarP(&promptPath, "prompt", "p", "", "Override rewrite.prompt_file")
	cmd.Flags().StringVar(&contextPath, "context", "", "Override rewrite.context_file")
	return cmd
}

func newReflowCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var wordsPerLine int

	cmd := &cobra.Command{
		Use:   "reflow <subtitles.srt>",
		Short: "Wrap subtitle text into lines of at most N words",
		Args:  exactArgs("provide the path to the subtitle file. Example: subforge reflow /path/to/video.srt"),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInputFile(args[0])
			if err != nil {
				return err
			}
			output, err := resolveOutputFile(outputPath)
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(cmd)
			if err != nil {
				return err
			}
			summary, err := p.ReflowFile(cmd.Context(), input, output, wordsPerLine)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default rewrites the input)")
	cmd.Flags().IntVarP(&wordsPerLine, "words", "w", 0, "Words per line (default reflow.words_per_line)")
	return cmd
}

func applyPromptFlags(p *pipeline.Pipeline, promptPath, contextPath string) error {
	cfg := p.Config()
	if promptPath != "" {
		resolved, err := resolveInputFile(promptPath)
		if err != nil {
			return err
		}
		cfg.Rewrite.PromptFile = resolved
	}
	if contextPath != "" {
		resolved, err := resolveInputFile(contextPath)
		if err != nil {
			return err
		}
		cfg.Rewrite.ContextFile = resolved
	}
	return nil
}

func exactArgs(usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("%s\nRun %s --help for more details", usage, cmd.CommandPath())
		}
		return nil
	}
}

func printSummary(out io.Writer, summary pipeline.Summary) {
	if summary.OriginalPath != "" {
		fmt.Fprintf(out, "Original subtitles: %s\n", summary.OriginalPath)
	}
	if summary.OutputPath != "" {
		fmt.Fprintf(out, "Output: %s\n", summary.OutputPath)
	}
	if summary.Words > 0 {
		fmt.Fprintf(out, "Words: %d\n", summary.Words)
	}
	if summary.Cues > 0 {
		fmt.Fprintf(out, "Cues: %d\n", summary.Cues)
	}
	if summary.Dropped > 0 {
		fmt.Fprintf(out, "Dropped cues: %d\n", summary.Dropped)
	}
	if summary.Batches > 0 {
		fmt.Fprintf(out, "Batches: %d\n", summary.Batches)
	}
	fmt.Fprintf(out, "Run ID: %s\n", summary.RunID)
}
