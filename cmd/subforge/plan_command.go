package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/subtitles"
)

const planPreviewWords = 8

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var size int
	var offset int

	cmd := &cobra.Command{
		Use:   "plan <subtitles.srt>",
		Short: "Show how a subtitle file would be split into rewrite batches",
		Args:  exactArgs("provide the path to the subtitle file. Example: subforge plan /path/to/video.original.srt"),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInputFile(args[0])
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(cmd)
			if err != nil {
				return err
			}
			cfg := p.Config()
			if cmd.Flags().Changed("size") {
				cfg.Batching.Size = size
			}
			if cmd.Flags().Changed("offset") {
				cfg.Batching.Offset = offset
			}
			cues, err := p.ReadCues(input)
			if err != nil {
				return err
			}
			batches, err := p.Plan(cues)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				fmt.Fprintln(out, "No cues to batch")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Batch", "Cues", "Count", "Words", "Start", "End", "Ends With"},
				planRows(batches),
				1, 3, 4,
			))
			fmt.Fprintf(out, "%d cues in %d batches (size %d, offset %d)\n", len(cues), len(batches), cfg.Batching.Size, cfg.Batching.Offset)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "Override batching.size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Override batching.offset")
	return cmd
}

func planRows(batches [][]subtitles.Cue) [][]string {
	rows := make([][]string, 0, len(batches))
	for i, batch := range batches {
		first, last := batch[0], batch[len(batch)-1]
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%d-%d", first.Index, last.Index),
			strconv.Itoa(len(batch)),
			strconv.Itoa(subtitles.CountWords(batch)),
			subtitles.FormatTimestamp(first.Start),
			subtitles.FormatTimestamp(last.End),
			tailWords(last.Text, planPreviewWords),
		})
	}
	return rows
}

func tailWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return "… " + strings.Join(words[len(words)-n:], " ")
}
