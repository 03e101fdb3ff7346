package config

import "subforge/internal/subtitles"

// AssembleOptions maps the segmentation section onto assembler settings.
func (c *Config) AssembleOptions() subtitles.AssembleOptions {
	return subtitles.AssembleOptions{
		MinWords: c.Segmentation.MinWords,
		Window:   c.Segmentation.Window,
		CutMarks: subtitles.Marks(c.Segmentation.CutPunctuation),
	}
}

// AdjustOptions maps the adjuster and punctuation sections.
func (c *Config) AdjustOptions() subtitles.AdjustOptions {
	return subtitles.AdjustOptions{
		WordsSplit: c.Adjuster.WordsSplit,
		Terminal:   subtitles.Marks(c.Punctuation.Terminal),
		Pause:      subtitles.Marks(c.Punctuation.Pause),
	}
}

// BatchOptions maps the batching and punctuation sections.
func (c *Config) BatchOptions() subtitles.BatchOptions {
	return subtitles.BatchOptions{
		Size:     c.Batching.Size,
		Offset:   c.Batching.Offset,
		Terminal: subtitles.Marks(c.Punctuation.Terminal),
		Pause:    subtitles.Marks(c.Punctuation.Pause),
	}
}
